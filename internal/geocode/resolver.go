package geocode

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"workclock-backend/internal/platform/metrics"
)

const DefaultTimeout = 5 * time.Second

type Options struct {
	// プロバイダ 1 呼び出しあたりの上限
	Timeout time.Duration
	// true: 郵便番号補修時に二次プロバイダの整形済み住所で丸ごと置き換える
	// false: 郵便番号だけを一次の住所に差し込む
	SecondaryOverridesAddress bool
	Metrics                   *metrics.Metrics
	Logger                    *slog.Logger
}

// strategy: 1 回の試行。成功すれば Outcome.OK()
type strategy func(ctx context.Context, lat, lon float64) Outcome

// Resolver: 一次（補修付き）→ 二次（そのまま）の順に試す。エラーは返さない
type Resolver struct {
	primary   Provider
	secondary Provider
	opts      Options
	log       *slog.Logger
}

// NewResolver: secondary は nil 可（認証情報が無い場合）
func NewResolver(primary, secondary Provider, opts Options) *Resolver {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		primary:   primary,
		secondary: secondary,
		opts:      opts,
		log:       log.With("component", "geocode"),
	}
}

func (r *Resolver) strategies() []strategy {
	return []strategy{r.primaryWithRepair, r.secondaryVerbatim}
}

// Resolve: best-effort。失敗時は Address=nil の結果を返す
func (r *Resolver) Resolve(ctx context.Context, lat, lon float64) Result {
	for _, s := range r.strategies() {
		out := s(ctx, lat, lon)
		if out.OK() {
			return r.finish(out.Result, lat, lon)
		}
		if !errors.Is(out.Err, ErrNotConfigured) {
			r.log.WarnContext(ctx, "geocode attempt failed",
				slog.String("provider", out.Provider),
				slog.String("error", out.Err.Error()),
			)
		}
		if ctx.Err() != nil {
			break
		}
	}
	return Result{Latitude: lat, Longitude: lon}
}

// finish: 正規化と座標文字列ガード
func (r *Resolver) finish(res Result, lat, lon float64) Result {
	res.Latitude, res.Longitude = lat, lon
	res.Address = guardAddress(res.Address, lat, lon)
	res.DisplayName = normalizePtr(res.DisplayName)
	res.Postcode = normalizePtr(res.Postcode)
	return res
}

func guardAddress(addr *string, lat, lon float64) *string {
	if addr == nil {
		return nil
	}
	s := normalize(*addr)
	if s == "" || IsCoordinatePair(s) || s == coordString(lat, lon) {
		return nil
	}
	return &s
}

func coordString(lat, lon float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + ", " + strconv.FormatFloat(lon, 'f', -1, 64)
}

func normalizePtr(p *string) *string {
	if p == nil {
		return nil
	}
	return strPtr(normalize(*p))
}

// call: タイムアウト付きでプロバイダを呼び、メトリクスを記録する
func (r *Resolver) call(ctx context.Context, p Provider, lat, lon float64) (*Lookup, error) {
	if p == nil {
		return nil, ErrNotConfigured
	}
	cctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	start := time.Now()
	l, err := p.Reverse(cctx, lat, lon)
	if err == nil && l == nil {
		err = ErrProviderFailure
	}

	outcome := "ok"
	switch {
	case errors.Is(err, ErrNotConfigured):
		return nil, err
	case err != nil && errors.Is(cctx.Err(), context.DeadlineExceeded):
		outcome = "timeout"
	case err != nil:
		outcome = "error"
	}
	r.opts.Metrics.ObserveGeocode(p.Name(), outcome, time.Since(start))
	return l, err
}

func (r *Resolver) primaryWithRepair(ctx context.Context, lat, lon float64) Outcome {
	out := Outcome{Provider: providerName(r.primary)}
	l, err := r.call(ctx, r.primary, lat, lon)
	if err != nil {
		out.Err = err
		return out
	}
	out.Lookup = l

	comps := l.Components
	postcode := l.Postcode
	if postcode == "" {
		postcode = PostcodeOf(comps)
	}
	fromComponents := true
	addr := AssembleAddress(comps)
	if addr == "" {
		fromComponents = false
		addr = DisplayNameFallback(l.DisplayName)
	}

	if NeedsPostcodeRepair(postcode) && r.secondary != nil {
		sec, err := r.call(ctx, r.secondary, lat, lon)
		switch {
		case err != nil:
			r.log.DebugContext(ctx, "postcode repair skipped",
				slog.String("provider", r.secondary.Name()),
				slog.String("error", err.Error()),
			)
		case sec.FormattedAddress != "" && (r.opts.SecondaryOverridesAddress || addr == ""):
			addr = sec.FormattedAddress
			if sec.Postcode != "" {
				postcode = sec.Postcode
			}
		case sec.Postcode != "":
			postcode = sec.Postcode
			switch {
			case fromComponents:
				addr = AssembleAddress(withPostcode(comps, postcode))
			case addr != "":
				addr = SplicePostcode(addr, postcode, comps["country"])
			}
		}
	}

	out.Result = Result{
		Address:     strPtr(addr),
		DisplayName: strPtr(l.DisplayName),
		Postcode:    strPtr(postcode),
	}
	return out
}

func (r *Resolver) secondaryVerbatim(ctx context.Context, lat, lon float64) Outcome {
	out := Outcome{Provider: providerName(r.secondary)}
	l, err := r.call(ctx, r.secondary, lat, lon)
	if err != nil {
		out.Err = err
		return out
	}
	out.Lookup = l
	out.Result = Result{
		Address:     strPtr(l.FormattedAddress),
		DisplayName: strPtr(l.DisplayName),
		Postcode:    strPtr(l.Postcode),
	}
	return out
}

func providerName(p Provider) string {
	if p == nil {
		return "none"
	}
	return p.Name()
}
