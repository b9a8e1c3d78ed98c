package services

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/fogleman/gg"

	"github.com/clearlane/inspection-backend/internal/logger"
	"github.com/clearlane/inspection-backend/internal/types"
)

// AnnotateService renders detection boxes onto a review copy of the photo.
// The original upload is never modified.
type AnnotateService interface {
	RenderOverlay(ctx context.Context, original []byte, detection *types.DetectionData, storageKey string) (string, error)
}

type annotateService struct {
	log           *logger.Logger
	bucketService BucketService
}

func NewAnnotateService(baseLog *logger.Logger, bucketService BucketService) AnnotateService {
	return &annotateService{
		log:           baseLog.With("service", "AnnotateService"),
		bucketService: bucketService,
	}
}

func (as *annotateService) RenderOverlay(ctx context.Context, original []byte, detection *types.DetectionData, storageKey string) (string, error) {
	if detection == nil || len(detection.Predictions) == 0 {
		return "", nil
	}

	img, _, err := image.Decode(bytes.NewReader(original))
	if err != nil {
		return "", fmt.Errorf("failed to decode photo for overlay: %w", err)
	}

	dc := gg.NewContextForImage(img)
	dc.SetLineWidth(4)
	for _, p := range detection.Predictions {
		switch p.Severity {
		case types.SeveritySevere:
			dc.SetRGB(0.85, 0.1, 0.1)
		case types.SeverityModerate:
			dc.SetRGB(0.95, 0.6, 0.1)
		default:
			dc.SetRGB(0.95, 0.85, 0.2)
		}
		dc.DrawRectangle(p.X, p.Y, p.Width, p.Height)
		dc.Stroke()
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return "", fmt.Errorf("failed to encode overlay: %w", err)
	}

	annotatedKey := storageKey + "_annotated.png"
	if err := as.bucketService.UploadFile(ctx, annotatedKey, &buf); err != nil {
		return "", fmt.Errorf("failed to store overlay: %w", err)
	}
	return annotatedKey, nil
}
