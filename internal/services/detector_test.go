package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clearlane/inspection-backend/internal/types"
)

func TestSeverityFor(t *testing.T) {
	cases := []struct {
		confidence float64
		want       string
	}{
		{0.95, types.SeveritySevere},
		{0.91, types.SeveritySevere},
		{0.90, types.SeverityModerate},
		{0.80, types.SeverityModerate},
		{0.76, types.SeverityModerate},
		{0.75, types.SeverityMinor},
		{0.10, types.SeverityMinor},
		{0, types.SeverityMinor},
	}
	for _, tc := range cases {
		if got := SeverityFor(tc.confidence); got != tc.want {
			t.Fatalf("SeverityFor(%v) = %q, want %q", tc.confidence, got, tc.want)
		}
	}
}

func TestDetectorDetect(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"predictions":[
			{"class":"dent","confidence":0.95,"x":10,"y":20,"width":100,"height":50},
			{"class":"scratch","confidence":0.80,"x":0,"y":0,"width":30,"height":30},
			{"class":"rust","confidence":1.7,"x":1,"y":1,"width":5,"height":5}
		]}`))
	}))
	defer srv.Close()

	ds := NewDetectorService(testLog(t), DetectorConfig{
		Endpoint: srv.URL,
		APIKey:   "key",
		ModelID:  "damage-v2",
	}).(*detectorService)
	pinned := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ds.now = func() time.Time { return pinned }

	got, err := ds.Detect(context.Background(), "https://cdn.example.com/photo.jpg")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if gotAuth != "Bearer key" {
		t.Fatalf("auth header: %q", gotAuth)
	}
	if len(got.Predictions) != 3 {
		t.Fatalf("predictions: %d", len(got.Predictions))
	}
	if got.Predictions[0].Severity != types.SeveritySevere {
		t.Fatalf("first severity: %q", got.Predictions[0].Severity)
	}
	if got.Predictions[1].Severity != types.SeverityModerate {
		t.Fatalf("second severity: %q", got.Predictions[1].Severity)
	}
	// Out-of-range confidence clamps to 1 and counts as severe.
	if got.Predictions[2].Confidence != 1 || got.Predictions[2].Severity != types.SeveritySevere {
		t.Fatalf("clamped prediction: %+v", got.Predictions[2])
	}
	if !got.DetectedAt.Equal(pinned) {
		t.Fatalf("DetectedAt: %v", got.DetectedAt)
	}
}

func TestDetectorProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	ds := NewDetectorService(testLog(t), DetectorConfig{Endpoint: srv.URL, APIKey: "key", ModelID: "m"})
	if _, err := ds.Detect(context.Background(), "https://cdn.example.com/photo.jpg"); !errors.Is(err, ErrProviderError) {
		t.Fatalf("got %v, want ErrProviderError", err)
	}
}

func TestDetectorProviderUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	ds := NewDetectorService(testLog(t), DetectorConfig{Endpoint: srv.URL, APIKey: "key", ModelID: "m"})
	if _, err := ds.Detect(context.Background(), "https://cdn.example.com/photo.jpg"); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("got %v, want ErrProviderUnavailable", err)
	}
}

func TestDetectorNotConfigured(t *testing.T) {
	ds := NewDetectorService(testLog(t), DetectorConfig{})
	if ds.Configured() {
		t.Fatalf("empty config reported configured")
	}
	if _, err := ds.Detect(context.Background(), "https://cdn.example.com/photo.jpg"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("got %v, want ErrNotConfigured", err)
	}
}
