package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	InspectionStatusPending   = "pending"
	InspectionStatusSubmitted = "submitted"
	InspectionStatusFlagged   = "flagged"
	InspectionStatusCompleted = "completed"
)

type Inspection struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OrderRef           string         `gorm:"column:order_ref;index" json:"order_ref"`
	BuyerName          string         `gorm:"column:buyer_name" json:"buyer_name"`
	BuyerEmail         string         `gorm:"column:buyer_email" json:"buyer_email"`
	SellerName         string         `gorm:"column:seller_name" json:"seller_name"`
	SellerEmail        string         `gorm:"column:seller_email" json:"seller_email"`
	DeclaredPriceCents int64          `gorm:"column:declared_price_cents" json:"declared_price_cents"`
	DeclaredVIN        string         `gorm:"column:declared_vin;index" json:"declared_vin"`
	DeclaredMileage    int            `gorm:"column:declared_mileage" json:"declared_mileage"`
	SellerZIP          string         `gorm:"column:seller_zip" json:"seller_zip"`
	Notes              string         `gorm:"column:notes" json:"notes"`
	DamageDisclosed    bool           `gorm:"column:damage_disclosed" json:"damage_disclosed"`
	TokenHash          string         `gorm:"column:token_hash" json:"-"`
	TokenExpiresAt     time.Time      `gorm:"column:token_expires_at" json:"token_expires_at"`
	Status             string         `gorm:"column:status;not null;default:'pending';index" json:"status"`
	FraudAssessment    datatypes.JSON `gorm:"column:fraud_assessment" json:"fraud_assessment,omitempty"`
	Uploads            []Upload       `gorm:"foreignKey:InspectionID;references:ID" json:"uploads,omitempty"`
	CreatedAt          time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Inspection) TableName() string { return "inspection" }

// Assessment decodes the cached fraud assessment, or returns nil when the
// inspection has never been scored.
func (i *Inspection) Assessment() (*FraudAssessment, error) {
	return decodeJSON[FraudAssessment](i.FraudAssessment)
}
