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

type InspectionService interface {
	// Create persists a new inspection and issues its upload token. The
	// plaintext token is returned to the caller exactly once.
	Create(ctx context.Context, inspection *types.Inspection) (*types.Inspection, string, time.Time, error)

	Get(ctx context.Context, id uuid.UUID) (*types.Inspection, error)

	// Approve is the explicit administrative action that completes an
	// inspection. Only submitted or flagged inspections can be approved.
	Approve(ctx context.Context, id uuid.UUID) (*types.Inspection, error)
}

type inspectionService struct {
	db             *gorm.DB
	log            *logger.Logger
	inspectionRepo repos.InspectionRepo
	tokenService   TokenService
	locks          *utils.KeyedMutex
}

func NewInspectionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	inspectionRepo repos.InspectionRepo,
	tokenService TokenService,
	locks *utils.KeyedMutex,
) InspectionService {
	serviceLog := baseLog.With("service", "InspectionService")
	return &inspectionService{
		db:             db,
		log:            serviceLog,
		inspectionRepo: inspectionRepo,
		tokenService:   tokenService,
		locks:          locks,
	}
}

func (is *inspectionService) Create(ctx context.Context, inspection *types.Inspection) (*types.Inspection, string, time.Time, error) {
	inspection.ID = uuid.New()
	inspection.OrderRef = normalization.ParseInputString(inspection.OrderRef)
	inspection.BuyerName = normalization.ParseInputString(inspection.BuyerName)
	inspection.BuyerEmail = normalization.ParseInputString(inspection.BuyerEmail)
	inspection.SellerName = normalization.ParseInputString(inspection.SellerName)
	inspection.SellerEmail = normalization.ParseInputString(inspection.SellerEmail)
	inspection.SellerZIP = normalization.ParseInputString(inspection.SellerZIP)
	inspection.DeclaredVIN = normalization.NormalizeVIN(inspection.DeclaredVIN)
	inspection.Status = types.InspectionStatusPending

	token, tokenHash, expiry, err := is.tokenService.Issue()
	if err != nil {
		return nil, "", time.Time{}, fmt.Errorf("failed to issue upload token: %w", err)
	}
	inspection.TokenHash = tokenHash
	inspection.TokenExpiresAt = expiry

	created, err := is.inspectionRepo.Create(ctx, nil, inspection)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	is.log.Info("Inspection created",
		"inspection_id", created.ID,
		"order_ref", created.OrderRef,
		"vin", created.DeclaredVIN,
	)
	return created, token, expiry, nil
}

func (is *inspectionService) Get(ctx context.Context, id uuid.UUID) (*types.Inspection, error) {
	inspection, err := is.inspectionRepo.GetByIDWithUploads(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return inspection, nil
}

func (is *inspectionService) Approve(ctx context.Context, id uuid.UUID) (*types.Inspection, error) {
	lockKey := id.String()
	is.locks.Lock(lockKey)
	defer is.locks.Unlock(lockKey)

	inspection, err := is.inspectionRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	switch inspection.Status {
	case types.InspectionStatusSubmitted, types.InspectionStatusFlagged:
		// approvable
	default:
		return nil, fmt.Errorf("cannot approve inspection in status %q", inspection.Status)
	}

	if err := is.inspectionRepo.UpdateFields(ctx, nil, id, map[string]interface{}{
		"status": types.InspectionStatusCompleted,
	}); err != nil {
		return nil, err
	}
	inspection.Status = types.InspectionStatusCompleted

	is.log.Info("Inspection approved", "inspection_id", id)
	return inspection, nil
}
