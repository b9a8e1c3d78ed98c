package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/clearlane/inspection-backend/internal/repos"
	"github.com/clearlane/inspection-backend/internal/testutil"
)

const testVIN = "1HGCM82633A004352"

func TestHistoryLookupNormalizesAndCaches(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.Header.Get("X-Api-Key") != "secret" {
			t.Errorf("missing api key header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"year": 2019, "make": "Honda", "model": "Accord", "trim": "EX",
			"title": {"brands": ["salvage"], "salvage": true},
			"ownership": {"transfer_count": 3, "last_transfer_date": "2024-06-01", "last_transfer_type": "auction"},
			"odometer": {"readings": [
				{"date": "2023-01-01T00:00:00Z", "reading": 48000},
				{"date": "2024-05-01T00:00:00Z", "reading": 52000}
			], "rollback": false}
		}`))
	}))
	defer srv.Close()

	db := testutil.DB(t)
	repo := repos.NewVehicleHistoryRepo(db, testutil.Logger(t))
	hs := NewVehicleHistoryService(testutil.Logger(t), repo, HistoryConfig{BaseURL: srv.URL, APIKey: "secret"})
	ctx := context.Background()

	record, err := hs.Lookup(ctx, testVIN)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if record.Make != "Honda" || record.Year != 2019 {
		t.Fatalf("vehicle fields: %+v", record)
	}
	if !record.HasTitleData || !record.IsSalvage {
		t.Fatalf("title section: %+v", record)
	}
	if !record.HasOwnershipData || record.OwnershipTransfers != 3 {
		t.Fatalf("ownership section: %+v", record)
	}
	if record.LastTransferDate == nil {
		t.Fatalf("last transfer date not parsed")
	}
	if !record.HasOdometerData || record.LatestOdometerReading() != 52000 {
		t.Fatalf("odometer section: latest = %d", record.LatestOdometerReading())
	}
	// Sections the provider omitted come back as empty shapes, not absence.
	if record.HasAccidentData || record.AccidentCount != 0 {
		t.Fatalf("accident section should be empty default: %+v", record)
	}
	if record.HasRecallData {
		t.Fatalf("recall section should be empty default")
	}
	if len(record.Raw) == 0 {
		t.Fatalf("raw provider payload not kept")
	}

	// Second lookup serves the cached row.
	again, err := hs.Lookup(ctx, testVIN)
	if err != nil {
		t.Fatalf("Lookup (cached): %v", err)
	}
	if again.Make != "Honda" {
		t.Fatalf("cached record: %+v", again)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("provider hits: %d, want 1", got)
	}

	// Refresh drops the cache and fetches anew.
	if _, err := hs.Refresh(ctx, testVIN); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Fatalf("provider hits after refresh: %d, want 2", got)
	}
}

func TestHistoryLookupEmptyPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	db := testutil.DB(t)
	repo := repos.NewVehicleHistoryRepo(db, testutil.Logger(t))
	hs := NewVehicleHistoryService(testutil.Logger(t), repo, HistoryConfig{BaseURL: srv.URL, APIKey: "secret"})

	record, err := hs.Lookup(context.Background(), testVIN)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if record.HasTitleData || record.HasAccidentData || record.HasOwnershipData || record.HasOdometerData || record.HasRecallData {
		t.Fatalf("empty payload produced data sections: %+v", record)
	}
	if record.LatestOdometerReading() != 0 {
		t.Fatalf("empty odometer: %d", record.LatestOdometerReading())
	}
}

func TestHistoryProviderFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	db := testutil.DB(t)
	repo := repos.NewVehicleHistoryRepo(db, testutil.Logger(t))

	hs := NewVehicleHistoryService(testutil.Logger(t), repo, HistoryConfig{BaseURL: srv.URL, APIKey: "secret"})
	if _, err := hs.Lookup(context.Background(), testVIN); !errors.Is(err, ErrProviderError) {
		t.Fatalf("got %v, want ErrProviderError", err)
	}

	unconfigured := NewVehicleHistoryService(testutil.Logger(t), repo, HistoryConfig{})
	if _, err := unconfigured.Lookup(context.Background(), testVIN); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("got %v, want ErrNotConfigured", err)
	}
}
