package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CategoryVINPlate is the declared checklist category whose photo feeds
// VIN-plate recognition. Categories are otherwise free text.
const CategoryVINPlate = "vin_plate"

type Upload struct {
	ID           uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	InspectionID uuid.UUID   `gorm:"type:uuid;not null;index" json:"inspection_id"`
	Inspection   *Inspection `gorm:"constraint:OnDelete:CASCADE;foreignKey:InspectionID;references:ID" json:"-"`

	StorageKey   string `gorm:"column:storage_key;not null" json:"storage_key"`
	FileURL      string `gorm:"column:file_url" json:"file_url"`
	AnnotatedURL string `gorm:"column:annotated_url" json:"annotated_url,omitempty"`
	OriginalName string `gorm:"column:original_name" json:"original_name"`
	Category     string `gorm:"column:category" json:"category"`
	MimeType     string `gorm:"column:mime_type" json:"mime_type"`
	SizeBytes    int64  `gorm:"column:size_bytes" json:"size_bytes"`

	// Client-declared capture location, copied verbatim and unvalidated.
	ClientLat      *float64 `gorm:"column:client_lat" json:"client_lat,omitempty"`
	ClientLng      *float64 `gorm:"column:client_lng" json:"client_lng,omitempty"`
	ClientAccuracy *float64 `gorm:"column:client_accuracy" json:"client_accuracy,omitempty"`

	// Derived fields. Each is independently nullable: extraction can fail
	// without failing the upload, and a consumer must be able to tell
	// "failed/not attempted" (null) from "attempted, found nothing" (empty).
	Exif          datatypes.JSON `gorm:"column:exif" json:"exif,omitempty"`
	Quality       datatypes.JSON `gorm:"column:quality" json:"quality,omitempty"`
	Detection     datatypes.JSON `gorm:"column:detection" json:"detection,omitempty"`
	RecognizedVIN string         `gorm:"column:recognized_vin" json:"recognized_vin,omitempty"`

	UploadedAt time.Time      `gorm:"column:uploaded_at;not null" json:"uploaded_at"`
	CreatedAt  time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Upload) TableName() string { return "upload" }

func (u *Upload) SetExif(e *ExifData) error           { return encodeJSON(&u.Exif, e) }
func (u *Upload) SetQuality(q *QualityData) error     { return encodeJSON(&u.Quality, q) }
func (u *Upload) SetDetection(d *DetectionData) error { return encodeJSON(&u.Detection, d) }

func (u *Upload) ExifData() (*ExifData, error)       { return decodeJSON[ExifData](u.Exif) }
func (u *Upload) QualityData() (*QualityData, error) { return decodeJSON[QualityData](u.Quality) }
func (u *Upload) DetectionData() (*DetectionData, error) {
	return decodeJSON[DetectionData](u.Detection)
}

func encodeJSON[T any](dst *datatypes.JSON, v *T) error {
	if v == nil {
		*dst = nil
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	*dst = datatypes.JSON(raw)
	return nil
}

func decodeJSON[T any](raw datatypes.JSON) (*T, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
