package services

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FraudPolicy holds the signal weights and thresholds. The defaults are fixed
// policy constants; a YAML override exists for tuning but behavioral parity
// requires deploying with the defaults.
type FraudPolicy struct {
	GPSMismatchWeight       int `yaml:"gps_mismatch_weight"`
	OdometerWeight          int `yaml:"odometer_weight"`
	UndisclosedDamageWeight int `yaml:"undisclosed_damage_weight"`
	VINMismatchWeight       int `yaml:"vin_mismatch_weight"`
	TitleFlipWeight         int `yaml:"title_flip_weight"`
	ImageQualityWeight      int `yaml:"image_quality_weight"`

	GPSDistanceKM         float64 `yaml:"gps_distance_km"`
	OdometerSlack         int     `yaml:"odometer_slack"`
	TitleFlipTransfers    int     `yaml:"title_flip_transfers"`
	QualityWarningUploads int     `yaml:"quality_warning_uploads"`

	MediumThreshold int `yaml:"medium_threshold"`
	HighThreshold   int `yaml:"high_threshold"`
}

func DefaultFraudPolicy() FraudPolicy {
	return FraudPolicy{
		GPSMismatchWeight:       25,
		OdometerWeight:          30,
		UndisclosedDamageWeight: 20,
		VINMismatchWeight:       35,
		TitleFlipWeight:         15,
		ImageQualityWeight:      10,

		GPSDistanceKM:         160,
		OdometerSlack:         5000,
		TitleFlipTransfers:    2,
		QualityWarningUploads: 5,

		MediumThreshold: 30,
		HighThreshold:   70,
	}
}

// LoadFraudPolicy reads an override file on top of the defaults. An empty path
// returns the defaults unchanged.
func LoadFraudPolicy(path string) (FraudPolicy, error) {
	policy := DefaultFraudPolicy()
	if path == "" {
		return policy, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return policy, fmt.Errorf("failed to read fraud policy file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &policy); err != nil {
		return policy, fmt.Errorf("failed to parse fraud policy file: %w", err)
	}
	return policy, nil
}
