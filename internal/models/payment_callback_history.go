package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// CallbackSource identifies which boundary a callback hit came through
type CallbackSource string

const (
	CallbackSourceReturn      CallbackSource = "return"
	CallbackSourceRedirect    CallbackSource = "redirect"
	CallbackSourceStatusCheck CallbackSource = "status_check"
)

// PaymentCallbackHistory keeps a raw record of every return, redirect and
// status-check hit so operators can reconstruct what a PSP sent us.
type PaymentCallbackHistory struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	PaymentID uint            `gorm:"index" json:"payment_id"`
	Gateway   string          `gorm:"type:varchar(50)" json:"gateway"`
	Source    CallbackSource  `gorm:"type:varchar(20)" json:"source"`
	Metadata  json.RawMessage `gorm:"type:jsonb" json:"metadata"`
}
