package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clearlane/inspection-backend/internal/logger"
	"github.com/clearlane/inspection-backend/internal/normalization"
	"github.com/clearlane/inspection-backend/internal/repos"
	"github.com/clearlane/inspection-backend/internal/types"
	"github.com/clearlane/inspection-backend/internal/utils"
)

type FraudService interface {
	// Score aggregates every available signal into a bounded assessment and
	// persists it onto the inspection, replacing any prior assessment. A
	// missing history record only silences the history-backed signals; it
	// never aborts scoring.
	Score(ctx context.Context, inspectionID uuid.UUID) (*types.FraudAssessment, error)
}

type fraudService struct {
	db             *gorm.DB
	log            *logger.Logger
	inspectionRepo repos.InspectionRepo
	historyService VehicleHistoryService
	geocoder       Geocoder
	policy         FraudPolicy
	locks          *utils.KeyedMutex
	now            func() time.Time
}

func NewFraudService(
	db *gorm.DB,
	baseLog *logger.Logger,
	inspectionRepo repos.InspectionRepo,
	historyService VehicleHistoryService,
	geocoder Geocoder,
	policy FraudPolicy,
	locks *utils.KeyedMutex,
) FraudService {
	serviceLog := baseLog.With("service", "FraudService")
	return &fraudService{
		db:             db,
		log:            serviceLog,
		inspectionRepo: inspectionRepo,
		historyService: historyService,
		geocoder:       geocoder,
		policy:         policy,
		locks:          locks,
		now:            time.Now,
	}
}

// signalInput is everything a signal may read. Signals are pure functions of
// this snapshot, which is what makes repeated scoring deterministic.
type signalInput struct {
	inspection *types.Inspection
	uploads    []types.Upload
	history    *types.VehicleHistoryRecord
}

type fraudSignal struct {
	name   string
	weight func(p FraudPolicy) int
	eval   func(fs *fraudService, in signalInput) (bool, string)
}

// Declaration order is evaluation order; flags come out in this order.
var fraudSignals = []fraudSignal{
	{
		name:   "gps_mismatch",
		weight: func(p FraudPolicy) int { return p.GPSMismatchWeight },
		eval:   (*fraudService).evalGPSMismatch,
	},
	{
		name:   "odometer_discrepancy",
		weight: func(p FraudPolicy) int { return p.OdometerWeight },
		eval:   (*fraudService).evalOdometerDiscrepancy,
	},
	{
		name:   "undisclosed_damage",
		weight: func(p FraudPolicy) int { return p.UndisclosedDamageWeight },
		eval:   (*fraudService).evalUndisclosedDamage,
	},
	{
		name:   "vin_mismatch",
		weight: func(p FraudPolicy) int { return p.VINMismatchWeight },
		eval:   (*fraudService).evalVINMismatch,
	},
	{
		name:   "title_flipping",
		weight: func(p FraudPolicy) int { return p.TitleFlipWeight },
		eval:   (*fraudService).evalTitleFlipping,
	},
	{
		name:   "image_quality",
		weight: func(p FraudPolicy) int { return p.ImageQualityWeight },
		eval:   (*fraudService).evalImageQuality,
	},
}

func (fs *fraudService) Score(ctx context.Context, inspectionID uuid.UUID) (*types.FraudAssessment, error) {
	inspection, err := fs.inspectionRepo.GetByIDWithUploads(ctx, nil, inspectionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	in := signalInput{
		inspection: inspection,
		uploads:    inspection.Uploads,
		history:    fs.loadHistory(ctx, inspection),
	}

	assessment := fs.evaluate(in)

	// Concurrent scoring runs for one inspection serialize; the last writer's
	// assessment (and timestamp) wins in full.
	lockKey := inspection.ID.String()
	fs.locks.Lock(lockKey)
	defer fs.locks.Unlock(lockKey)

	updates := map[string]interface{}{
		"fraud_assessment": mustJSON(assessment),
	}
	if assessment.AutoFlag && inspection.Status != types.InspectionStatusCompleted {
		updates["status"] = types.InspectionStatusFlagged
	}
	if err := fs.inspectionRepo.UpdateFields(ctx, nil, inspection.ID, updates); err != nil {
		return nil, err
	}

	fs.log.Info("Fraud assessment computed",
		"inspection_id", inspection.ID,
		"score", assessment.Score,
		"level", assessment.Level,
		"auto_flag", assessment.AutoFlag,
		"flags", len(assessment.Flags),
	)
	return assessment, nil
}

// loadHistory fetches the cached history snapshot. Invalid VINs, missing
// configuration and provider outages all degrade to "no history".
func (fs *fraudService) loadHistory(ctx context.Context, inspection *types.Inspection) *types.VehicleHistoryRecord {
	if fs.historyService == nil {
		return nil
	}
	vin := normalization.NormalizeVIN(inspection.DeclaredVIN)
	if !normalization.ValidVIN(vin) {
		return nil
	}
	record, err := fs.historyService.Lookup(ctx, vin)
	if err != nil {
		fs.log.Warn("Vehicle history unavailable, scoring without it",
			"inspection_id", inspection.ID, "vin", vin, "error", err)
		return nil
	}
	return record
}

func (fs *fraudService) evaluate(in signalInput) *types.FraudAssessment {
	score := 0
	flags := []string{}
	for _, sig := range fraudSignals {
		triggered, flag := sig.eval(fs, in)
		if !triggered {
			continue
		}
		fs.log.Debug("Fraud signal triggered", "inspection_id", in.inspection.ID, "signal", sig.name)
		score += sig.weight(fs.policy)
		flags = append(flags, flag)
	}

	// Only the upper bound is reachable with positive weights; clamp both
	// ends anyway.
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	return &types.FraudAssessment{
		InspectionID: in.inspection.ID,
		VIN:          normalization.NormalizeVIN(in.inspection.DeclaredVIN),
		Score:        score,
		Level:        levelFor(score, fs.policy),
		AutoFlag:     score >= fs.policy.HighThreshold,
		Flags:        flags,
		ComputedAt:   fs.now().UTC(),
	}
}

func levelFor(score int, p FraudPolicy) string {
	switch {
	case score >= p.HighThreshold:
		return types.RiskLevelHigh
	case score >= p.MediumThreshold:
		return types.RiskLevelMedium
	default:
		return types.RiskLevelLow
	}
}

func (fs *fraudService) evalGPSMismatch(in signalInput) (bool, string) {
	if fs.geocoder == nil {
		return false, ""
	}
	sellerLat, sellerLng, ok := fs.geocoder.Locate(in.inspection.SellerZIP)
	if !ok {
		return false, ""
	}

	far := 0
	for i := range in.uploads {
		exifData, err := in.uploads[i].ExifData()
		if err != nil || exifData == nil || exifData.Lat == nil || exifData.Lng == nil {
			continue
		}
		if HaversineKM(*exifData.Lat, *exifData.Lng, sellerLat, sellerLng) > fs.policy.GPSDistanceKM {
			far++
		}
	}
	if far == 0 {
		return false, ""
	}
	return true, fmt.Sprintf("%d photo(s) were taken far from the seller's declared ZIP %s", far, in.inspection.SellerZIP)
}

func (fs *fraudService) evalOdometerDiscrepancy(in signalInput) (bool, string) {
	if in.history == nil {
		return false, ""
	}
	latest := in.history.LatestOdometerReading()
	if latest == 0 {
		return false, ""
	}
	declared := in.inspection.DeclaredMileage
	if latest-declared < fs.policy.OdometerSlack {
		return false, ""
	}
	return true, fmt.Sprintf("declared mileage %d is %d below the last reported odometer reading %d", declared, latest-declared, latest)
}

func (fs *fraudService) evalUndisclosedDamage(in signalInput) (bool, string) {
	if in.inspection.DamageDisclosed {
		return false, ""
	}
	for i := range in.uploads {
		detection, err := in.uploads[i].DetectionData()
		if err != nil || detection == nil {
			continue
		}
		if len(detection.Predictions) > 0 {
			return true, "damage detected in uploaded photos but the seller declared no damage"
		}
	}
	return false, ""
}

func (fs *fraudService) evalVINMismatch(in signalInput) (bool, string) {
	declared := normalization.NormalizeVIN(in.inspection.DeclaredVIN)
	for i := range in.uploads {
		u := &in.uploads[i]
		if u.Category != types.CategoryVINPlate || u.RecognizedVIN == "" {
			continue
		}
		recognized := normalization.NormalizeVIN(u.RecognizedVIN)
		if recognized != declared {
			return true, fmt.Sprintf("VIN plate photo reads %s which does not match the declared VIN %s", recognized, declared)
		}
	}
	return false, ""
}

func (fs *fraudService) evalTitleFlipping(in signalInput) (bool, string) {
	if in.history == nil {
		return false, ""
	}
	if in.history.OwnershipTransfers < fs.policy.TitleFlipTransfers {
		return false, ""
	}
	return true, fmt.Sprintf("title transferred %d times", in.history.OwnershipTransfers)
}

func (fs *fraudService) evalImageQuality(in signalInput) (bool, string) {
	withWarnings := 0
	for i := range in.uploads {
		quality, err := in.uploads[i].QualityData()
		if err != nil || quality == nil {
			continue
		}
		if len(quality.Warnings) > 0 {
			withWarnings++
		}
	}
	if withWarnings <= fs.policy.QualityWarningUploads {
		return false, ""
	}
	return true, fmt.Sprintf("%d of %d photos carry quality warnings", withWarnings, len(in.uploads))
}
