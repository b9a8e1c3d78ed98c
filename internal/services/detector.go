package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/clearlane/inspection-backend/internal/logger"
	"github.com/clearlane/inspection-backend/internal/types"
)

// SeverityFor maps a detection confidence onto the severity convention shared
// with the review workflow. The boundaries are part of the provider contract
// and must not drift.
func SeverityFor(confidence float64) string {
	switch {
	case confidence > 0.90:
		return types.SeveritySevere
	case confidence > 0.75:
		return types.SeverityModerate
	default:
		return types.SeverityMinor
	}
}

type DetectorConfig struct {
	Endpoint string
	APIKey   string
	ModelID  string
	Timeout  time.Duration
}

type DetectorService interface {
	// Configured reports whether the hosted model is usable at all. The intake
	// pipeline checks this before invoking Detect; an unconfigured detector is
	// a distinct, non-retryable condition, not a provider failure.
	Configured() bool
	Detect(ctx context.Context, imageURL string) (*types.DetectionData, error)
}

type detectorService struct {
	log    *logger.Logger
	cfg    DetectorConfig
	client *http.Client
	now    func() time.Time
}

func NewDetectorService(baseLog *logger.Logger, cfg DetectorConfig) DetectorService {
	serviceLog := baseLog.With("service", "DetectorService")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &detectorService{
		log: serviceLog,
		cfg: cfg,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		now: time.Now,
	}
}

func (ds *detectorService) Configured() bool {
	return ds.cfg.Endpoint != "" && ds.cfg.APIKey != "" && ds.cfg.ModelID != ""
}

type detectorRequest struct {
	Model    string `json:"model"`
	ImageURL string `json:"image_url"`
}

type detectorResponse struct {
	Predictions []struct {
		Class      string  `json:"class"`
		Confidence float64 `json:"confidence"`
		X          float64 `json:"x"`
		Y          float64 `json:"y"`
		Width      float64 `json:"width"`
		Height     float64 `json:"height"`
	} `json:"predictions"`
}

func (ds *detectorService) Detect(ctx context.Context, imageURL string) (*types.DetectionData, error) {
	if !ds.Configured() {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(detectorRequest{Model: ds.cfg.ModelID, ImageURL: imageURL})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrProviderError, err)
	}

	ctx, cancel := context.WithTimeout(ctx, ds.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ds.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrProviderError, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+ds.cfg.APIKey)

	resp, err := ds.client.Do(req)
	if err != nil {
		// Transport failures and timeouts are unavailability, not a bad answer.
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrProviderError, resp.StatusCode)
	}

	var parsed detectorResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrProviderError, err)
	}

	out := &types.DetectionData{
		Predictions: make([]types.DetectionPrediction, 0, len(parsed.Predictions)),
		DetectedAt:  ds.now().UTC(),
	}
	for _, p := range parsed.Predictions {
		conf := p.Confidence
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
		out.Predictions = append(out.Predictions, types.DetectionPrediction{
			Class:      p.Class,
			Confidence: conf,
			Severity:   SeverityFor(conf),
			X:          p.X,
			Y:          p.Y,
			Width:      p.Width,
			Height:     p.Height,
		})
	}
	return out, nil
}
