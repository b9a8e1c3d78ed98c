package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clearlane/inspection-backend/internal/logger"
	"github.com/clearlane/inspection-backend/internal/types"
)

type UploadRepo interface {
	Create(ctx context.Context, tx *gorm.DB, upload *types.Upload) (*types.Upload, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Upload, error)
	ListByInspectionID(ctx context.Context, tx *gorm.DB, inspectionID uuid.UUID) ([]*types.Upload, error)
	UpdateDerived(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type uploadRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUploadRepo(db *gorm.DB, baseLog *logger.Logger) UploadRepo {
	repoLog := baseLog.With("repo", "UploadRepo")
	return &uploadRepo{db: db, log: repoLog}
}

func (ur *uploadRepo) Create(ctx context.Context, tx *gorm.DB, upload *types.Upload) (*types.Upload, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	if err := transaction.WithContext(ctx).Create(upload).Error; err != nil {
		return nil, err
	}

	return upload, nil
}

func (ur *uploadRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Upload, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	var result types.Upload
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (ur *uploadRepo) ListByInspectionID(ctx context.Context, tx *gorm.DB, inspectionID uuid.UUID) ([]*types.Upload, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	var results []*types.Upload
	if err := transaction.WithContext(ctx).
		Where("inspection_id = ?", inspectionID).
		Order("uploaded_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}

// UpdateDerived writes only the named derived columns. The detection merge
// arrives after the upload row is already persisted and must not touch any
// other field of the record.
func (ur *uploadRepo) UpdateDerived(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	if len(updates) == 0 {
		return nil
	}

	return transaction.WithContext(ctx).
		Model(&types.Upload{}).
		Where("id = ?", id).
		Updates(updates).Error
}
