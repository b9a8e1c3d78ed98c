package services

import (
	"errors"
	"image/color"
	"testing"
)

func TestExifExtractNoMetadata(t *testing.T) {
	es := NewExifService(testLog(t))

	// A structurally valid image without an EXIF segment succeeds with every
	// field null.
	got, err := es.Extract(pngBytes(t, 10, 10, color.White))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got == nil {
		t.Fatalf("Extract: nil result")
	}
	if got.Lat != nil || got.Lng != nil || got.CapturedAt != nil {
		t.Fatalf("expected null location/time, got %+v", got)
	}
	if got.DeviceMake != "" || got.DeviceModel != "" {
		t.Fatalf("expected empty device fields, got %+v", got)
	}
}

func TestExifExtractUnparsable(t *testing.T) {
	es := NewExifService(testLog(t))

	if _, err := es.Extract([]byte("not an image at all")); !errors.Is(err, ErrUnparsableFormat) {
		t.Fatalf("got %v, want ErrUnparsableFormat", err)
	}
	if _, err := es.Extract(nil); !errors.Is(err, ErrUnparsableFormat) {
		t.Fatalf("nil payload: got %v, want ErrUnparsableFormat", err)
	}
}
