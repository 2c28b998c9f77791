package models

import (
	"time"

	"gorm.io/gorm"
)

// Refund records a refund issued against a payment. A refund belongs to
// exactly one payment and is immutable after creation except for the
// gateway-assigned reference.
type Refund struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	PaymentID uint    `gorm:"index" json:"payment_id"`
	Amount    float64 `gorm:"type:decimal(15,2)" json:"amount"`
	// Reference is assigned by the gateway after the refund is accepted
	Reference   string `gorm:"type:varchar(191)" json:"reference"`
	Description string `gorm:"type:varchar(255)" json:"description"`

	// Relationships
	Payment Payment `gorm:"foreignKey:PaymentID" json:"payment,omitempty"`
}
