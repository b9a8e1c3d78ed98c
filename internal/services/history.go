package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gorm.io/datatypes"

	"github.com/clearlane/inspection-backend/internal/logger"
	"github.com/clearlane/inspection-backend/internal/repos"
	"github.com/clearlane/inspection-backend/internal/types"
)

type HistoryConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type VehicleHistoryService interface {
	// Lookup returns the cached record for a VIN, fetching from the provider
	// on first use. The VIN must already satisfy the 17-character format;
	// callers validate, this component does not.
	Lookup(ctx context.Context, vin string) (*types.VehicleHistoryRecord, error)

	// Refresh drops the cached record and fetches anew.
	Refresh(ctx context.Context, vin string) (*types.VehicleHistoryRecord, error)
}

type vehicleHistoryService struct {
	log         *logger.Logger
	historyRepo repos.VehicleHistoryRepo
	cfg         HistoryConfig
	client      *http.Client
	now         func() time.Time
}

func NewVehicleHistoryService(baseLog *logger.Logger, historyRepo repos.VehicleHistoryRepo, cfg HistoryConfig) VehicleHistoryService {
	serviceLog := baseLog.With("service", "VehicleHistoryService")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &vehicleHistoryService{
		log:         serviceLog,
		historyRepo: historyRepo,
		cfg:         cfg,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		now: time.Now,
	}
}

func (hs *vehicleHistoryService) Lookup(ctx context.Context, vin string) (*types.VehicleHistoryRecord, error) {
	cached, err := hs.historyRepo.GetByVIN(ctx, nil, vin)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return cached, nil
	}
	return hs.fetchAndCache(ctx, vin)
}

func (hs *vehicleHistoryService) Refresh(ctx context.Context, vin string) (*types.VehicleHistoryRecord, error) {
	if err := hs.historyRepo.DeleteByVIN(ctx, nil, vin); err != nil {
		return nil, err
	}
	return hs.fetchAndCache(ctx, vin)
}

// providerHistoryResponse mirrors the provider payload. Every section is a
// pointer so "section missing" is observable during normalization.
type providerHistoryResponse struct {
	Year  int    `json:"year"`
	Make  string `json:"make"`
	Model string `json:"model"`
	Trim  string `json:"trim"`

	Title *struct {
		Brands  []string `json:"brands"`
		Salvage bool     `json:"salvage"`
		Rebuilt bool     `json:"rebuilt"`
		Junk    bool     `json:"junk"`
	} `json:"title"`

	Accidents *struct {
		Count   int               `json:"count"`
		Records []json.RawMessage `json:"records"`
	} `json:"accidents"`

	Ownership *struct {
		TransferCount    int    `json:"transfer_count"`
		LastTransferDate string `json:"last_transfer_date"`
		LastTransferType string `json:"last_transfer_type"`
	} `json:"ownership"`

	Odometer *struct {
		Readings []types.OdometerReading `json:"readings"`
		Rollback bool                    `json:"rollback"`
	} `json:"odometer"`

	Recalls *struct {
		Count   int               `json:"count"`
		Records []json.RawMessage `json:"records"`
	} `json:"recalls"`

	MarketValue json.RawMessage `json:"market_value,omitempty"`
	Warranty    json.RawMessage `json:"warranty,omitempty"`
}

func (hs *vehicleHistoryService) fetchAndCache(ctx context.Context, vin string) (*types.VehicleHistoryRecord, error) {
	if hs.cfg.BaseURL == "" || hs.cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, hs.cfg.Timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/v1/history/%s", hs.cfg.BaseURL, url.PathEscape(vin))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrProviderError, err)
	}
	req.Header.Set("X-Api-Key", hs.cfg.APIKey)

	resp, err := hs.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrProviderError, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrProviderError, err)
	}

	var parsed providerHistoryResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrProviderError, err)
	}

	record := hs.normalize(vin, raw, &parsed)
	if err := hs.historyRepo.Upsert(ctx, nil, record); err != nil {
		// The snapshot is still usable even if caching failed.
		hs.log.Warn("Failed to cache vehicle history record", "vin", vin, "error", err)
	}
	return record, nil
}

// normalize fills every sub-object with an empty/zero shape when the provider
// omitted it, so downstream scoring never branches on absence.
func (hs *vehicleHistoryService) normalize(vin string, raw []byte, p *providerHistoryResponse) *types.VehicleHistoryRecord {
	record := &types.VehicleHistoryRecord{
		VIN:              vin,
		Year:             p.Year,
		Make:             p.Make,
		Model:            p.Model,
		Trim:             p.Trim,
		TitleBrands:      mustJSON([]string{}),
		Accidents:        mustJSON([]json.RawMessage{}),
		OdometerReadings: mustJSON([]types.OdometerReading{}),
		Recalls:          mustJSON([]json.RawMessage{}),
		Raw:              datatypes.JSON(raw),
		FetchedAt:        hs.now().UTC(),
	}

	if p.Title != nil {
		record.HasTitleData = true
		record.IsSalvage = p.Title.Salvage
		record.IsRebuilt = p.Title.Rebuilt
		record.IsJunk = p.Title.Junk
		if p.Title.Brands != nil {
			record.TitleBrands = mustJSON(p.Title.Brands)
		}
	}
	if p.Accidents != nil {
		record.HasAccidentData = true
		record.AccidentCount = p.Accidents.Count
		if p.Accidents.Records != nil {
			record.Accidents = mustJSON(p.Accidents.Records)
		}
	}
	if p.Ownership != nil {
		record.HasOwnershipData = true
		record.OwnershipTransfers = p.Ownership.TransferCount
		record.LastTransferType = p.Ownership.LastTransferType
		if p.Ownership.LastTransferDate != "" {
			if ts, err := time.Parse("2006-01-02", p.Ownership.LastTransferDate); err == nil {
				record.LastTransferDate = &ts
			}
		}
	}
	if p.Odometer != nil {
		record.HasOdometerData = true
		record.OdometerRollback = p.Odometer.Rollback
		if p.Odometer.Readings != nil {
			record.OdometerReadings = mustJSON(p.Odometer.Readings)
		}
	}
	if p.Recalls != nil {
		record.HasRecallData = true
		record.RecallCount = p.Recalls.Count
		if p.Recalls.Records != nil {
			record.Recalls = mustJSON(p.Recalls.Records)
		}
	}
	if len(p.MarketValue) > 0 {
		record.MarketValue = datatypes.JSON(p.MarketValue)
	}
	if len(p.Warranty) > 0 {
		record.Warranty = datatypes.JSON(p.Warranty)
	}
	return record
}

func mustJSON(v interface{}) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(raw)
}
