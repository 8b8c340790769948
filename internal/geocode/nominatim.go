package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultNominatimURL = "https://nominatim.openstreetmap.org"

// NominatimProvider: 一次プロバイダ（OpenStreetMap Nominatim）
type NominatimProvider struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	log        *slog.Logger
}

func NewNominatimProvider(baseURL, userAgent string, client *http.Client, logger *slog.Logger) *NominatimProvider {
	if baseURL == "" {
		baseURL = defaultNominatimURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NominatimProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: client,
		log:        logger.With("adapter", "nominatim"),
	}
}

func (p *NominatimProvider) Name() string { return "nominatim" }

type nominatimResponse struct {
	DisplayName string         `json:"display_name"`
	Address     map[string]any `json:"address"`
	Error       string         `json:"error"`
}

func (p *NominatimProvider) Reverse(ctx context.Context, lat, lon float64) (*Lookup, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("zoom", "18")
	q.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("nominatim: create request: %w", err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nominatim: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: nominatim: unexpected status %d", ErrProviderFailure, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("nominatim: read body: %w", err)
	}

	var r nominatimResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("%w: nominatim: decode json: %v", ErrProviderFailure, err)
	}
	if r.Error != "" {
		return nil, fmt.Errorf("%w: nominatim: %s", ErrProviderFailure, r.Error)
	}

	comps := make(map[string]string, len(r.Address))
	for k, v := range r.Address {
		switch tv := v.(type) {
		case string:
			comps[k] = tv
		case nil:
		default:
			comps[k] = fmt.Sprint(tv)
		}
	}

	p.log.DebugContext(ctx, "nominatim response",
		slog.Int("status", resp.StatusCode),
		slog.Int("components", len(comps)),
	)

	return &Lookup{
		Components:  comps,
		DisplayName: r.DisplayName,
		Postcode:    PostcodeOf(comps),
	}, nil
}
