package types

import (
	"time"

	"github.com/google/uuid"
)

// ExifData is the capture metadata embedded in a photo. A nil coordinate pair
// means the photo carried no usable GPS tags; a lone latitude or longitude is
// treated as absent.
type ExifData struct {
	Lat         *float64   `json:"lat,omitempty"`
	Lng         *float64   `json:"lng,omitempty"`
	CapturedAt  *time.Time `json:"captured_at,omitempty"`
	DeviceMake  string     `json:"device_make,omitempty"`
	DeviceModel string     `json:"device_model,omitempty"`
	Orientation int        `json:"orientation,omitempty"`
}

// QualityData holds objective, reproducible metrics for one photo.
type QualityData struct {
	Width           int      `json:"width"`
	Height          int      `json:"height"`
	AvgLuminance    float64  `json:"avg_luminance"`
	IsDark          bool     `json:"is_dark"`
	IsLowResolution bool     `json:"is_low_resolution"`
	Warnings        []string `json:"warnings"`
}

const (
	SeveritySevere   = "severe"
	SeverityModerate = "moderate"
	SeverityMinor    = "minor"
)

// DetectionPrediction is one normalized prediction from the damage-detection
// provider. Geometry is in source-image pixel units.
type DetectionPrediction struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	Severity   string  `json:"severity"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

type DetectionData struct {
	Predictions []DetectionPrediction `json:"predictions"`
	DetectedAt  time.Time             `json:"detected_at"`
}

const (
	RiskLevelLow    = "low"
	RiskLevelMedium = "medium"
	RiskLevelHigh   = "high"
)

// FraudAssessment is replaced wholesale on every scoring run; it is never
// merged with a prior assessment.
type FraudAssessment struct {
	InspectionID uuid.UUID `json:"inspection_id"`
	VIN          string    `json:"vin"`
	Score        int       `json:"score"`
	Level        string    `json:"level"`
	AutoFlag     bool      `json:"auto_flag"`
	Flags        []string  `json:"flags"`
	ComputedAt   time.Time `json:"computed_at"`
}
