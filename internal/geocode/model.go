package geocode

import (
	"context"
	"errors"
)

// Result: 逆ジオコーディング結果。永続化しない。Address が nil なら「不明」
type Result struct {
	Address     *string `json:"address"`
	DisplayName *string `json:"display_name"`
	Postcode    *string `json:"postcode"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// Lookup: プロバイダ 1 回分の生の応答を正規化したもの
type Lookup struct {
	Components       map[string]string
	FormattedAddress string
	DisplayName      string
	Postcode         string
}

// Provider: 逆ジオコーディングの外部サービス
type Provider interface {
	Name() string
	Reverse(ctx context.Context, lat, lon float64) (*Lookup, error)
}

// Outcome: 戦略 1 回分の試行結果
type Outcome struct {
	Provider string
	Lookup   *Lookup
	Result   Result
	Err      error
}

func (o Outcome) OK() bool { return o.Err == nil }

var (
	ErrProviderFailure = errors.New("geocode provider failure")
	ErrNotConfigured   = errors.New("geocode provider not configured")
)

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
