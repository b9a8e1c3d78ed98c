package services

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clearlane/inspection-backend/internal/testutil"
	"github.com/clearlane/inspection-backend/internal/types"
)

func pngBytes(tb testing.TB, width, height int, c color.Color) []byte {
	tb.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		tb.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func seedInspection(tb testing.TB, db *gorm.DB, mutate func(*types.Inspection)) *types.Inspection {
	tb.Helper()
	inspection := &types.Inspection{
		ID:              uuid.New(),
		OrderRef:        "ORD-1001",
		BuyerName:       "Test Buyer",
		BuyerEmail:      "buyer@example.com",
		SellerName:      "Test Seller",
		SellerEmail:     "seller@example.com",
		DeclaredVIN:     "1HGCM82633A004352",
		DeclaredMileage: 45000,
		SellerZIP:       "10001",
		Status:          types.InspectionStatusPending,
		TokenExpiresAt:  time.Now().Add(48 * time.Hour).UTC(),
	}
	if mutate != nil {
		mutate(inspection)
	}
	if err := db.WithContext(context.Background()).Create(inspection).Error; err != nil {
		tb.Fatalf("seed inspection: %v", err)
	}
	return inspection
}

func seedUpload(tb testing.TB, db *gorm.DB, inspectionID uuid.UUID, mutate func(*types.Upload)) *types.Upload {
	tb.Helper()
	upload := &types.Upload{
		ID:           uuid.New(),
		InspectionID: inspectionID,
		StorageKey:   "inspections/" + inspectionID.String() + "/" + uuid.NewString() + ".jpg",
		OriginalName: "photo.jpg",
		Category:     "exterior",
		MimeType:     "image/jpeg",
		SizeBytes:    1024,
		UploadedAt:   time.Now().UTC(),
	}
	if mutate != nil {
		mutate(upload)
	}
	if err := db.WithContext(context.Background()).Create(upload).Error; err != nil {
		tb.Fatalf("seed upload: %v", err)
	}
	return upload
}

// stubDetector satisfies DetectorService without a provider.
type stubDetector struct {
	detection *types.DetectionData
	err       error
	calls     int
}

func (sd *stubDetector) Configured() bool { return true }

func (sd *stubDetector) Detect(ctx context.Context, imageURL string) (*types.DetectionData, error) {
	sd.calls++
	if sd.err != nil {
		return nil, sd.err
	}
	return sd.detection, nil
}

// stubPlateRecognizer satisfies PlateRecognitionService without Vision.
type stubPlateRecognizer struct {
	vin string
	err error
}

func (sp *stubPlateRecognizer) Configured() bool { return true }
func (sp *stubPlateRecognizer) Close() error     { return nil }

func (sp *stubPlateRecognizer) RecognizeVIN(ctx context.Context, img []byte) (string, error) {
	if sp.err != nil {
		return "", sp.err
	}
	return sp.vin, nil
}

// stubHistoryService serves a fixed record.
type stubHistoryService struct {
	record *types.VehicleHistoryRecord
	err    error
}

func (sh *stubHistoryService) Lookup(ctx context.Context, vin string) (*types.VehicleHistoryRecord, error) {
	if sh.err != nil {
		return nil, sh.err
	}
	return sh.record, nil
}

func (sh *stubHistoryService) Refresh(ctx context.Context, vin string) (*types.VehicleHistoryRecord, error) {
	return sh.Lookup(ctx, vin)
}

// stubGeocoder pins the seller location.
type stubGeocoder struct {
	lat, lng float64
	ok       bool
}

func (sg *stubGeocoder) Locate(zip string) (float64, float64, bool) {
	return sg.lat, sg.lng, sg.ok
}

var testLog = testutil.Logger
