package services

import (
	"bytes"
	"image"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/clearlane/inspection-backend/internal/logger"
	"github.com/clearlane/inspection-backend/internal/types"
)

type ExifService interface {
	// Extract parses capture metadata out of raw image bytes. A photo with no
	// metadata segment at all is a successful extraction of an all-null
	// ExifData; only a structurally corrupt payload is an error.
	Extract(data []byte) (*types.ExifData, error)
}

type exifService struct {
	log *logger.Logger
}

func NewExifService(baseLog *logger.Logger) ExifService {
	return &exifService{log: baseLog.With("service", "ExifService")}
}

func (es *exifService) Extract(data []byte) (*types.ExifData, error) {
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, ErrUnparsableFormat
	}

	out := &types.ExifData{}

	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		// Valid image without an EXIF segment.
		return out, nil
	}

	// Both coordinates must be present to report a location; goexif's LatLong
	// errors when either tag is missing, which matches that rule.
	if lat, lng, err := x.LatLong(); err == nil {
		out.Lat = &lat
		out.Lng = &lng
	}

	if ts := captureTime(x); ts != nil {
		out.CapturedAt = ts
	}

	if tag, err := x.Get(exif.Make); err == nil {
		if v, err := tag.StringVal(); err == nil {
			out.DeviceMake = v
		}
	}
	if tag, err := x.Get(exif.Model); err == nil {
		if v, err := tag.StringVal(); err == nil {
			out.DeviceModel = v
		}
	}
	if tag, err := x.Get(exif.Orientation); err == nil {
		if v, err := tag.Int(0); err == nil {
			out.Orientation = v
		}
	}

	return out, nil
}

const exifTimeLayout = "2006:01:02 15:04:05"

// Original-capture timestamp preferred, generic DateTime as fallback.
func captureTime(x *exif.Exif) *time.Time {
	for _, field := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTime} {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		raw, err := tag.StringVal()
		if err != nil {
			continue
		}
		if ts, err := time.ParseInLocation(exifTimeLayout, raw, time.UTC); err == nil {
			return &ts
		}
	}
	return nil
}
