package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/roadwatch/roadwatch-api/api/handlers"
	"github.com/roadwatch/roadwatch-api/models"
)

func TestImageAnalyzer_AnalyzeUnconfigured(t *testing.T) {
	var a *handlers.ImageAnalyzer

	_, err := a.Analyze(context.Background(), []byte("jpeg-bytes"), "image/jpeg")
	if !errors.Is(err, handlers.ErrEnrichmentUnavailable) {
		t.Errorf("expected ErrEnrichmentUnavailable, got %v", err)
	}

	a = &handlers.ImageAnalyzer{}
	_, err = a.Analyze(context.Background(), []byte("jpeg-bytes"), "image/jpeg")
	if !errors.Is(err, handlers.ErrEnrichmentUnavailable) {
		t.Errorf("expected ErrEnrichmentUnavailable, got %v", err)
	}
}

func TestImageAnalyzer_AnalyzeSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"issueType": "pothole", "severity": "high", "confidence": 0.92}`))
	}))
	defer server.Close()

	a := &handlers.ImageAnalyzer{
		Endpoint: server.URL,
		APIKey:   "test-key",
		Client:   server.Client(),
	}

	analysis, err := a.Analyze(context.Background(), []byte("jpeg-bytes"), "image/jpeg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.IssueType != models.TypePothole || analysis.Severity != models.SeverityHigh {
		t.Errorf("unexpected analysis: %+v", analysis)
	}
}

func TestImageAnalyzer_AnalyzeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	a := &handlers.ImageAnalyzer{
		Endpoint: server.URL,
		Client:   server.Client(),
	}

	_, err := a.Analyze(context.Background(), []byte("jpeg-bytes"), "image/jpeg")
	if !errors.Is(err, handlers.ErrEnrichmentUnavailable) {
		t.Errorf("expected ErrEnrichmentUnavailable, got %v", err)
	}
}

func TestGeoClient_ResolveAddress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"displayName": "42 Elm St, Springfield"}`))
	}))
	defer server.Close()

	g := &handlers.GeoClient{
		GeocodeURL: server.URL,
		Client:     server.Client(),
	}

	addr, err := g.ResolveAddress(context.Background(), 39.79, -89.64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != "42 Elm St, Springfield" {
		t.Errorf("unexpected address: %v", addr)
	}
}

func TestGeoClient_CurrentWeatherUnavailable(t *testing.T) {
	g := &handlers.GeoClient{
		WeatherURL: "http://127.0.0.1:1",
		Client:     &http.Client{Timeout: 200 * time.Millisecond},
	}

	_, err := g.CurrentWeather(context.Background(), 39.79, -89.64)
	if !errors.Is(err, handlers.ErrEnrichmentUnavailable) {
		t.Errorf("expected ErrEnrichmentUnavailable, got %v", err)
	}
}
