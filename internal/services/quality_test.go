package services

import (
	"errors"
	"image/color"
	"math"
	"testing"
)

func TestQualityAnalyzeCleanImage(t *testing.T) {
	qs := NewQualityService(testLog(t), QualityConfig{})

	data := pngBytes(t, 800, 600, color.RGBA{R: 200, G: 200, B: 200, A: 255})
	got, err := qs.Analyze(data)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got.Width != 800 || got.Height != 600 {
		t.Fatalf("dimensions: got %dx%d", got.Width, got.Height)
	}
	if got.IsDark || got.IsLowResolution {
		t.Fatalf("unexpected flags: %+v", got)
	}
	if len(got.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", got.Warnings)
	}
	if math.Abs(got.AvgLuminance-200) > 1.0 {
		t.Fatalf("luminance: got %f, want ~200", got.AvgLuminance)
	}
}

func TestQualityAnalyzeDark(t *testing.T) {
	qs := NewQualityService(testLog(t), QualityConfig{})

	got, err := qs.Analyze(pngBytes(t, 800, 600, color.RGBA{R: 10, G: 10, B: 10, A: 255}))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !got.IsDark || got.IsLowResolution {
		t.Fatalf("flags: %+v", got)
	}
	if len(got.Warnings) != 1 || got.Warnings[0] != WarningTooDark {
		t.Fatalf("warnings: %v", got.Warnings)
	}
}

func TestQualityAnalyzeLowResolution(t *testing.T) {
	qs := NewQualityService(testLog(t), QualityConfig{})

	got, err := qs.Analyze(pngBytes(t, 640, 480, color.RGBA{R: 200, G: 200, B: 200, A: 255}))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got.IsDark || !got.IsLowResolution {
		t.Fatalf("flags: %+v", got)
	}
	if len(got.Warnings) != 1 || got.Warnings[0] != WarningLowResolution {
		t.Fatalf("warnings: %v", got.Warnings)
	}
}

func TestQualityAnalyzeWarningOrder(t *testing.T) {
	qs := NewQualityService(testLog(t), QualityConfig{})

	got, err := qs.Analyze(pngBytes(t, 100, 80, color.Black))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(got.Warnings) != 2 {
		t.Fatalf("warnings: %v", got.Warnings)
	}
	// Darkness always precedes resolution.
	if got.Warnings[0] != WarningTooDark || got.Warnings[1] != WarningLowResolution {
		t.Fatalf("warning order: %v", got.Warnings)
	}
}

func TestQualityAnalyzeBoundary(t *testing.T) {
	qs := NewQualityService(testLog(t), QualityConfig{})

	// Exactly 800x600 at luminance 40 is neither dark nor low resolution.
	got, err := qs.Analyze(pngBytes(t, 800, 600, color.RGBA{R: 40, G: 40, B: 40, A: 255}))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got.IsDark {
		t.Fatalf("luminance %f flagged dark at threshold", got.AvgLuminance)
	}
	if got.IsLowResolution {
		t.Fatalf("800x600 flagged low resolution")
	}
}

func TestQualityAnalyzeUnreadable(t *testing.T) {
	qs := NewQualityService(testLog(t), QualityConfig{})

	if _, err := qs.Analyze([]byte("definitely not an image")); !errors.Is(err, ErrUnreadableImage) {
		t.Fatalf("got %v, want ErrUnreadableImage", err)
	}
	if _, err := qs.Analyze(nil); !errors.Is(err, ErrUnreadableImage) {
		t.Fatalf("nil payload: got %v, want ErrUnreadableImage", err)
	}
}
