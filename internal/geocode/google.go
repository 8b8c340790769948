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

const defaultGoogleURL = "https://maps.googleapis.com"

// Google の address_components.types から Nominatim 側のキーへの対応
var googleTypeKeys = map[string]string{
	"street_number":               "house_number",
	"route":                       "road",
	"neighborhood":                "neighbourhood",
	"sublocality":                 "suburb",
	"locality":                    "city",
	"administrative_area_level_1": "state",
	"postal_code":                 "postcode",
	"country":                     "country",
}

// GoogleProvider: 二次プロバイダ（Google Geocoding API）。API キーが必須
type GoogleProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger
}

func NewGoogleProvider(baseURL, apiKey string, client *http.Client, logger *slog.Logger) *GoogleProvider {
	if baseURL == "" {
		baseURL = defaultGoogleURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GoogleProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: client,
		log:        logger.With("adapter", "google"),
	}
}

func (p *GoogleProvider) Name() string { return "google" }

type googleResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress  string `json:"formatted_address"`
		AddressComponents []struct {
			LongName  string   `json:"long_name"`
			ShortName string   `json:"short_name"`
			Types     []string `json:"types"`
		} `json:"address_components"`
	} `json:"results"`
}

func (p *GoogleProvider) Reverse(ctx context.Context, lat, lon float64) (*Lookup, error) {
	if p.apiKey == "" {
		return nil, ErrNotConfigured
	}

	q := url.Values{}
	q.Set("latlng", strconv.FormatFloat(lat, 'f', -1, 64)+","+strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("key", p.apiKey)
	q.Set("result_type", "street_address|postal_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/maps/api/geocode/json?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("google: create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: google: unexpected status %d", ErrProviderFailure, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("google: read body: %w", err)
	}

	var r googleResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("%w: google: decode json: %v", ErrProviderFailure, err)
	}
	if r.Status != "OK" || len(r.Results) == 0 {
		return nil, fmt.Errorf("%w: google: status %s %s", ErrProviderFailure, r.Status, r.ErrorMessage)
	}

	first := r.Results[0]
	comps := make(map[string]string)
	for _, c := range first.AddressComponents {
		for _, t := range c.Types {
			if key, ok := googleTypeKeys[t]; ok {
				if _, seen := comps[key]; !seen {
					comps[key] = c.LongName
				}
			}
		}
	}

	p.log.DebugContext(ctx, "google response",
		slog.String("status", r.Status),
		slog.Int("results", len(r.Results)),
	)

	return &Lookup{
		Components:       comps,
		FormattedAddress: first.FormattedAddress,
		DisplayName:      first.FormattedAddress,
		Postcode:         comps["postcode"],
	}, nil
}
