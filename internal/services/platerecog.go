package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	"github.com/clearlane/inspection-backend/internal/logger"
	"github.com/clearlane/inspection-backend/internal/normalization"
)

// PlateRecognitionService OCRs a VIN-plate photo and pulls out the first token
// that satisfies the VIN grammar. The result feeds the VIN-mismatch fraud
// signal; recognition failure is never fatal to an upload.
type PlateRecognitionService interface {
	Configured() bool
	RecognizeVIN(ctx context.Context, img []byte) (string, error)
	Close() error
}

type plateRecognitionService struct {
	log          *logger.Logger
	visionClient *vision.ImageAnnotatorClient
}

func NewPlateRecognitionService(baseLog *logger.Logger) (PlateRecognitionService, error) {
	serviceLog := baseLog.With("service", "PlateRecognitionService")

	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	ctx := context.Background()
	var (
		vClient *vision.ImageAnnotatorClient
		err     error
	)
	if creds != "" {
		vClient, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(creds))
	} else {
		vClient, err = vision.NewImageAnnotatorClient(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}

	return &plateRecognitionService{log: serviceLog, visionClient: vClient}, nil
}

func (ps *plateRecognitionService) Configured() bool {
	return ps != nil && ps.visionClient != nil
}

func (ps *plateRecognitionService) Close() error {
	if ps == nil || ps.visionClient == nil {
		return nil
	}
	return ps.visionClient.Close()
}

func (ps *plateRecognitionService) RecognizeVIN(ctx context.Context, img []byte) (string, error) {
	if !ps.Configured() {
		return "", ErrNotConfigured
	}
	if len(img) == 0 {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	annotations, err := ps.visionClient.DetectTexts(ctx, &visionpb.Image{Content: img}, nil, 50)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderError, err)
	}

	for _, a := range annotations {
		if vin := scanForVIN(a.GetDescription()); vin != "" {
			return vin, nil
		}
	}
	return "", nil
}

// scanForVIN tokenizes OCR text and returns the first valid VIN. OCR cannot
// produce I/O/Q in a real VIN, so a token containing them simply fails the
// grammar and is skipped.
func scanForVIN(text string) string {
	for _, token := range strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == '\n' || r == '\t' || r == ':' || r == ',' || r == ';'
	}) {
		candidate := normalization.NormalizeVIN(token)
		if normalization.ValidVIN(candidate) {
			return candidate
		}
	}
	return ""
}
