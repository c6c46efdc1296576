package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"
)

// ErrEnrichmentUnavailable marks a collaborator failure that must never
// block the underlying mutation; callers downgrade to an empty value.
var ErrEnrichmentUnavailable = errors.New("enrichment unavailable")

// ImageAnalysis is the classifier's verdict for a report photo
type ImageAnalysis struct {
	IssueType  string  `json:"issueType"`
	Severity   string  `json:"severity"`
	Confidence float64 `json:"confidence"`
	Details    string  `json:"details,omitempty"`
}

// ImageAnalyzer calls the external image classification service. It is
// only used to pre-fill a new report's type/severity and never
// overrides an explicit user choice.
type ImageAnalyzer struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

// NewImageAnalyzerFromEnv builds the analyzer from ANALYZER_URL and
// ANALYZER_API_KEY. With no endpoint configured every call degrades to
// ErrEnrichmentUnavailable.
func NewImageAnalyzerFromEnv() *ImageAnalyzer {
	return &ImageAnalyzer{
		Endpoint: os.Getenv("ANALYZER_URL"),
		APIKey:   os.Getenv("ANALYZER_API_KEY"),
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Analyze classifies one image. Timeouts and non-2xx responses surface
// as ErrEnrichmentUnavailable so callers can degrade gracefully.
func (a *ImageAnalyzer) Analyze(ctx context.Context, image []byte, mimeType string) (*ImageAnalysis, error) {
	if a == nil || a.Endpoint == "" {
		return nil, ErrEnrichmentUnavailable
	}

	payload, err := json.Marshal(map[string]string{
		"image":    base64.StdEncoding.EncodeToString(image),
		"mimeType": mimeType,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnrichmentUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.Endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnrichmentUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.APIKey)
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnrichmentUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: analyzer returned %d", ErrEnrichmentUnavailable, resp.StatusCode)
	}

	var analysis ImageAnalysis
	if err := json.NewDecoder(resp.Body).Decode(&analysis); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnrichmentUnavailable, err)
	}
	return &analysis, nil
}

// WeatherConditions is the advisory weather snapshot attached to a
// report at read time
type WeatherConditions struct {
	Temperature   float64 `json:"temperature"`
	WindSpeed     float64 `json:"windSpeed"`
	Precipitation float64 `json:"precipitation"`
	Summary       string  `json:"summary"`
}

// GeoClient wraps the geocoding/weather collaborator. Absence of either
// service leaves reports fully usable.
type GeoClient struct {
	GeocodeURL string
	WeatherURL string
	Client     *http.Client
}

// NewGeoClientFromEnv builds the client from GEOCODE_URL and WEATHER_URL
func NewGeoClientFromEnv() *GeoClient {
	return &GeoClient{
		GeocodeURL: os.Getenv("GEOCODE_URL"),
		WeatherURL: os.Getenv("WEATHER_URL"),
		Client:     &http.Client{Timeout: 5 * time.Second},
	}
}

// ResolveAddress reverse-geocodes a coordinate pair to a display address
func (g *GeoClient) ResolveAddress(ctx context.Context, lat, lon float64) (string, error) {
	if g == nil || g.GeocodeURL == "" {
		return "", ErrEnrichmentUnavailable
	}

	var out struct {
		DisplayName string `json:"displayName"`
	}
	if err := g.getJSON(ctx, fmt.Sprintf("%s/reverse?lat=%f&lon=%f", g.GeocodeURL, lat, lon), &out); err != nil {
		return "", err
	}
	return out.DisplayName, nil
}

// CurrentWeather fetches the current conditions at a coordinate pair
func (g *GeoClient) CurrentWeather(ctx context.Context, lat, lon float64) (*WeatherConditions, error) {
	if g == nil || g.WeatherURL == "" {
		return nil, ErrEnrichmentUnavailable
	}

	var out WeatherConditions
	if err := g.getJSON(ctx, fmt.Sprintf("%s/current?lat=%f&lon=%f", g.WeatherURL, lat, lon), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *GeoClient) getJSON(ctx context.Context, url string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEnrichmentUnavailable, err)
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEnrichmentUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: collaborator returned %d", ErrEnrichmentUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrEnrichmentUnavailable, err)
	}
	return nil
}
