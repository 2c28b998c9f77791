package models

import (
	"time"
)

// PaymentNote is an append-only audit log entry attached to a payment.
// Notes record adapter errors and state transitions and are never deleted.
type PaymentNote struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	PaymentID uint   `gorm:"index" json:"payment_id"`
	Content   string `gorm:"type:text" json:"content"`
}
