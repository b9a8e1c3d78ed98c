package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/clearlane/inspection-backend/internal/logger"
	"github.com/clearlane/inspection-backend/internal/repos"
	"github.com/clearlane/inspection-backend/internal/types"
	"github.com/clearlane/inspection-backend/internal/utils"
)

type IngestInput struct {
	FileName string
	MimeType string
	Data     []byte

	// Declared metadata, copied verbatim onto the record.
	Category string
	Lat      *float64
	Lng      *float64
	Accuracy *float64
}

type UploadService interface {
	// Ingest is the single intake path for one photograph. Token failures,
	// a missing payload and storage faults are fatal; every enrichment step
	// degrades to a null derived field instead of failing the request.
	Ingest(ctx context.Context, inspectionID uuid.UUID, presentedToken string, in IngestInput) (*types.Upload, error)
}

type uploadService struct {
	db             *gorm.DB
	log            *logger.Logger
	inspectionRepo repos.InspectionRepo
	uploadRepo     repos.UploadRepo
	tokenService   TokenService
	bucketService  BucketService
	exifService    ExifService
	qualityService QualityService
	detector       DetectorService
	plateRecog     PlateRecognitionService
	annotate       AnnotateService
	locks          *utils.KeyedMutex
	now            func() time.Time

	wg sync.WaitGroup
}

func NewUploadService(
	db *gorm.DB,
	baseLog *logger.Logger,
	inspectionRepo repos.InspectionRepo,
	uploadRepo repos.UploadRepo,
	tokenService TokenService,
	bucketService BucketService,
	exifService ExifService,
	qualityService QualityService,
	detector DetectorService,
	plateRecog PlateRecognitionService,
	annotate AnnotateService,
	locks *utils.KeyedMutex,
) UploadService {
	serviceLog := baseLog.With("service", "UploadService")
	return &uploadService{
		db:             db,
		log:            serviceLog,
		inspectionRepo: inspectionRepo,
		uploadRepo:     uploadRepo,
		tokenService:   tokenService,
		bucketService:  bucketService,
		exifService:    exifService,
		qualityService: qualityService,
		detector:       detector,
		plateRecog:     plateRecog,
		annotate:       annotate,
		locks:          locks,
		now:            time.Now,
	}
}

func (us *uploadService) Ingest(ctx context.Context, inspectionID uuid.UUID, presentedToken string, in IngestInput) (*types.Upload, error) {
	inspection, err := us.inspectionRepo.GetByID(ctx, nil, inspectionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := us.tokenService.Validate(inspection, presentedToken); err != nil {
		return nil, err
	}

	if len(in.Data) == 0 {
		return nil, ErrMissingFile
	}

	// Durable persistence is the first fatal step; nothing downstream runs
	// without a stored file.
	uploadID := uuid.New()
	storageKey := fmt.Sprintf("inspections/%s/%s%s", inspection.ID, uploadID, filepath.Ext(in.FileName))
	if err := us.bucketService.UploadFile(ctx, storageKey, bytes.NewReader(in.Data)); err != nil {
		us.log.Error("Photo persistence failed", "inspection_id", inspection.ID, "storage_key", storageKey, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	upload := &types.Upload{
		ID:             uploadID,
		InspectionID:   inspection.ID,
		StorageKey:     storageKey,
		FileURL:        us.bucketService.GetPublicURL(storageKey),
		OriginalName:   in.FileName,
		Category:       in.Category,
		MimeType:       in.MimeType,
		SizeBytes:      int64(len(in.Data)),
		ClientLat:      in.Lat,
		ClientLng:      in.Lng,
		ClientAccuracy: in.Accuracy,
		UploadedAt:     us.now().UTC(),
	}

	us.enrichSync(upload, in.Data)

	// Append + lifecycle transition are a read-modify-write on the inspection;
	// concurrent uploads to the same inspection serialize here.
	lockKey := inspection.ID.String()
	us.locks.Lock(lockKey)
	created, err := us.uploadRepo.Create(ctx, nil, upload)
	if err != nil {
		us.locks.Unlock(lockKey)
		return nil, err
	}
	if inspection.Status == types.InspectionStatusPending {
		if err := us.inspectionRepo.UpdateFields(ctx, nil, inspection.ID, map[string]interface{}{
			"status": types.InspectionStatusSubmitted,
		}); err != nil {
			us.locks.Unlock(lockKey)
			return nil, err
		}
		inspection.Status = types.InspectionStatusSubmitted
	}
	us.locks.Unlock(lockKey)

	us.dispatchAsyncEnrichment(created, in)

	return created, nil
}

// enrichSync runs metadata extraction and quality analysis concurrently; both
// failure modes leave the corresponding field null and the upload intact.
func (us *uploadService) enrichSync(upload *types.Upload, data []byte) {
	g := new(errgroup.Group)

	g.Go(func() error {
		exifData, err := us.exifService.Extract(data)
		if err != nil {
			us.log.Warn("Metadata extraction failed", "upload_id", upload.ID, "error", err)
			return nil
		}
		if err := upload.SetExif(exifData); err != nil {
			us.log.Warn("Failed to encode metadata", "upload_id", upload.ID, "error", err)
		}
		return nil
	})

	g.Go(func() error {
		qualityData, err := us.qualityService.Analyze(data)
		if err != nil {
			us.log.Warn("Quality analysis failed", "upload_id", upload.ID, "error", err)
			return nil
		}
		if err := upload.SetQuality(qualityData); err != nil {
			us.log.Warn("Failed to encode quality metrics", "upload_id", upload.ID, "error", err)
		}
		return nil
	})

	_ = g.Wait()
}

// dispatchAsyncEnrichment fires detection and VIN-plate recognition without
// blocking the intake response; results merge back into the already-persisted
// upload via a second, derived-fields-only write.
func (us *uploadService) dispatchAsyncEnrichment(upload *types.Upload, in IngestInput) {
	runDetection := us.detector != nil && us.detector.Configured() && upload.Category != ""
	runPlate := us.plateRecog != nil && us.plateRecog.Configured() && upload.Category == types.CategoryVINPlate
	if !runDetection && !runPlate {
		return
	}

	data := in.Data
	us.wg.Add(1)
	go func() {
		defer us.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
		defer cancel()

		updates := map[string]interface{}{}

		if runDetection {
			detection, err := us.detector.Detect(ctx, upload.FileURL)
			if err != nil {
				us.log.Warn("Damage detection failed, leaving detection null",
					"upload_id", upload.ID, "error", err)
			} else {
				raw, mErr := encodeDetection(detection)
				if mErr != nil {
					us.log.Warn("Failed to encode detection", "upload_id", upload.ID, "error", mErr)
				} else {
					updates["detection"] = raw
				}
				if us.annotate != nil && len(detection.Predictions) > 0 {
					annotatedKey, aErr := us.annotate.RenderOverlay(ctx, data, detection, upload.StorageKey)
					if aErr != nil {
						us.log.Warn("Overlay rendering failed", "upload_id", upload.ID, "error", aErr)
					} else if annotatedKey != "" {
						updates["annotated_url"] = us.bucketService.GetPublicURL(annotatedKey)
					}
				}
			}
		}

		if runPlate {
			vin, err := us.plateRecog.RecognizeVIN(ctx, data)
			if err != nil {
				us.log.Warn("VIN-plate recognition failed", "upload_id", upload.ID, "error", err)
			} else if vin != "" {
				updates["recognized_vin"] = vin
			}
		}

		if len(updates) == 0 {
			return
		}
		if err := us.uploadRepo.UpdateDerived(ctx, nil, upload.ID, updates); err != nil {
			us.log.Error("Failed to merge async enrichment", "upload_id", upload.ID, "error", err)
		}
	}()
}

// waitEnrichment blocks until in-flight async enrichment drains. Test hook.
func (us *uploadService) waitEnrichment() {
	us.wg.Wait()
}

func encodeDetection(d *types.DetectionData) (datatypes.JSON, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
