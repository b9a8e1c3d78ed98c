package types

import (
	"time"

	"gorm.io/datatypes"
)

// VehicleHistoryRecord caches one VIN's normalized provider snapshot. The raw
// provider payload is kept verbatim; the normalized columns always carry an
// empty/zero shape rather than being absent, so scoring treats "no data" and
// "explicitly clean" uniformly. HasTitleData and friends record whether the
// provider actually returned the section at all.
type VehicleHistoryRecord struct {
	VIN   string `gorm:"column:vin;primaryKey" json:"vin"`
	Year  int    `gorm:"column:year" json:"year"`
	Make  string `gorm:"column:make" json:"make"`
	Model string `gorm:"column:model" json:"model"`
	Trim  string `gorm:"column:trim" json:"trim"`

	TitleBrands  datatypes.JSON `gorm:"column:title_brands" json:"title_brands"`
	IsSalvage    bool           `gorm:"column:is_salvage" json:"is_salvage"`
	IsRebuilt    bool           `gorm:"column:is_rebuilt" json:"is_rebuilt"`
	IsJunk       bool           `gorm:"column:is_junk" json:"is_junk"`
	HasTitleData bool           `gorm:"column:has_title_data" json:"has_title_data"`

	AccidentCount   int            `gorm:"column:accident_count" json:"accident_count"`
	Accidents       datatypes.JSON `gorm:"column:accidents" json:"accidents"`
	HasAccidentData bool           `gorm:"column:has_accident_data" json:"has_accident_data"`

	OwnershipTransfers int        `gorm:"column:ownership_transfers" json:"ownership_transfers"`
	LastTransferDate   *time.Time `gorm:"column:last_transfer_date" json:"last_transfer_date,omitempty"`
	LastTransferType   string     `gorm:"column:last_transfer_type" json:"last_transfer_type"`
	HasOwnershipData   bool       `gorm:"column:has_ownership_data" json:"has_ownership_data"`

	OdometerReadings datatypes.JSON `gorm:"column:odometer_readings" json:"odometer_readings"`
	OdometerRollback bool           `gorm:"column:odometer_rollback" json:"odometer_rollback"`
	HasOdometerData  bool           `gorm:"column:has_odometer_data" json:"has_odometer_data"`

	RecallCount   int            `gorm:"column:recall_count" json:"recall_count"`
	Recalls       datatypes.JSON `gorm:"column:recalls" json:"recalls"`
	HasRecallData bool           `gorm:"column:has_recall_data" json:"has_recall_data"`

	MarketValue datatypes.JSON `gorm:"column:market_value" json:"market_value,omitempty"`
	Warranty    datatypes.JSON `gorm:"column:warranty" json:"warranty,omitempty"`

	Raw       datatypes.JSON `gorm:"column:raw" json:"-"`
	FetchedAt time.Time      `gorm:"column:fetched_at;not null" json:"fetched_at"`
}

func (VehicleHistoryRecord) TableName() string { return "vehicle_history_record" }

// OdometerReading is one entry in the provider's reading list, newest last.
type OdometerReading struct {
	Date    *time.Time `json:"date,omitempty"`
	Reading int        `json:"reading"`
	Source  string     `json:"source,omitempty"`
}

// LatestOdometerReading returns the highest-dated reading, or 0 when the
// provider returned none.
func (r *VehicleHistoryRecord) LatestOdometerReading() int {
	readings, err := decodeJSON[[]OdometerReading](r.OdometerReadings)
	if err != nil || readings == nil || len(*readings) == 0 {
		return 0
	}
	list := *readings
	latest := list[0]
	for _, rd := range list[1:] {
		switch {
		case latest.Date == nil && rd.Date != nil:
			latest = rd
		case rd.Date != nil && latest.Date != nil && rd.Date.After(*latest.Date):
			latest = rd
		case rd.Date == nil && latest.Date == nil && rd.Reading > latest.Reading:
			latest = rd
		}
	}
	return latest.Reading
}
