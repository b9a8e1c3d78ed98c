package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/clearlane/inspection-backend/internal/logger"
	"github.com/clearlane/inspection-backend/internal/types"
)

type VehicleHistoryRepo interface {
	GetByVIN(ctx context.Context, tx *gorm.DB, vin string) (*types.VehicleHistoryRecord, error)
	Upsert(ctx context.Context, tx *gorm.DB, record *types.VehicleHistoryRecord) error
	DeleteByVIN(ctx context.Context, tx *gorm.DB, vin string) error
}

type vehicleHistoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVehicleHistoryRepo(db *gorm.DB, baseLog *logger.Logger) VehicleHistoryRepo {
	repoLog := baseLog.With("repo", "VehicleHistoryRepo")
	return &vehicleHistoryRepo{db: db, log: repoLog}
}

// GetByVIN returns nil, nil on a cache miss.
func (vr *vehicleHistoryRepo) GetByVIN(ctx context.Context, tx *gorm.DB, vin string) (*types.VehicleHistoryRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}

	var result types.VehicleHistoryRecord
	if err := transaction.WithContext(ctx).
		Where("vin = ?", vin).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &result, nil
}

func (vr *vehicleHistoryRepo) Upsert(ctx context.Context, tx *gorm.DB, record *types.VehicleHistoryRecord) error {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}

	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "vin"}},
			UpdateAll: true,
		}).
		Create(record).Error
}

func (vr *vehicleHistoryRepo) DeleteByVIN(ctx context.Context, tx *gorm.DB, vin string) error {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}

	return transaction.WithContext(ctx).
		Where("vin = ?", vin).
		Delete(&types.VehicleHistoryRecord{}).Error
}
