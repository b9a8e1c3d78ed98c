package services

import (
	"bytes"
	"image"

	// Decoder registrations shared by the quality analyzer, the metadata
	// extractor and the detection-overlay renderer.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/clearlane/inspection-backend/internal/logger"
	"github.com/clearlane/inspection-backend/internal/types"
)

const (
	// Fixed policy defaults; parity with these values matters for scoring.
	DefaultDarkLuminance = 40.0
	DefaultMinWidth      = 800
	DefaultMinHeight     = 600

	WarningTooDark       = "image is too dark"
	WarningLowResolution = "image resolution is too low"
)

type QualityConfig struct {
	DarkLuminance float64
	MinWidth      int
	MinHeight     int
}

func DefaultQualityConfig() QualityConfig {
	return QualityConfig{
		DarkLuminance: DefaultDarkLuminance,
		MinWidth:      DefaultMinWidth,
		MinHeight:     DefaultMinHeight,
	}
}

type QualityService interface {
	Analyze(data []byte) (*types.QualityData, error)
}

type qualityService struct {
	log *logger.Logger
	cfg QualityConfig
}

func NewQualityService(baseLog *logger.Logger, cfg QualityConfig) QualityService {
	if cfg.DarkLuminance <= 0 {
		cfg.DarkLuminance = DefaultDarkLuminance
	}
	if cfg.MinWidth <= 0 {
		cfg.MinWidth = DefaultMinWidth
	}
	if cfg.MinHeight <= 0 {
		cfg.MinHeight = DefaultMinHeight
	}
	return &qualityService{log: baseLog.With("service", "QualityService"), cfg: cfg}
}

func (qs *qualityService) Analyze(data []byte) (*types.QualityData, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrUnreadableImage
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	out := &types.QualityData{
		Width:        width,
		Height:       height,
		AvgLuminance: avgLuminance(img),
		Warnings:     []string{},
	}
	out.IsDark = out.AvgLuminance < qs.cfg.DarkLuminance
	out.IsLowResolution = width < qs.cfg.MinWidth || height < qs.cfg.MinHeight

	// Warning order is fixed: darkness before resolution.
	if out.IsDark {
		out.Warnings = append(out.Warnings, WarningTooDark)
	}
	if out.IsLowResolution {
		out.Warnings = append(out.Warnings, WarningLowResolution)
	}

	return out, nil
}

// avgLuminance is the arithmetic mean of the per-channel means on a 0-255
// scale, which equals the mean over all pixels of (r+g+b)/3.
func avgLuminance(img image.Image) float64 {
	bounds := img.Bounds()
	if bounds.Empty() {
		return 0
	}

	var sum float64
	var count int64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// RGBA returns 16-bit channels.
			sum += float64(r+g+b) / 3.0 / 257.0
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
