package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clearlane/inspection-backend/internal/logger"
	"github.com/clearlane/inspection-backend/internal/types"
)

type InspectionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, inspection *types.Inspection) (*types.Inspection, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Inspection, error)
	GetByIDWithUploads(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Inspection, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type inspectionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInspectionRepo(db *gorm.DB, baseLog *logger.Logger) InspectionRepo {
	repoLog := baseLog.With("repo", "InspectionRepo")
	return &inspectionRepo{db: db, log: repoLog}
}

func (ir *inspectionRepo) Create(ctx context.Context, tx *gorm.DB, inspection *types.Inspection) (*types.Inspection, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	if err := transaction.WithContext(ctx).Create(inspection).Error; err != nil {
		return nil, err
	}

	return inspection, nil
}

func (ir *inspectionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Inspection, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	var result types.Inspection
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (ir *inspectionRepo) GetByIDWithUploads(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Inspection, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	var result types.Inspection
	if err := transaction.WithContext(ctx).
		Preload("Uploads", func(db *gorm.DB) *gorm.DB {
			return db.Order("uploaded_at ASC")
		}).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (ir *inspectionRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	if len(updates) == 0 {
		return nil
	}

	return transaction.WithContext(ctx).
		Model(&types.Inspection{}).
		Where("id = ?", id).
		Updates(updates).Error
}
