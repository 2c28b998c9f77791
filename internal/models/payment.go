package models

import (
	"time"

	"gorm.io/gorm"
)

// PaymentStatus represents the lifecycle state of a payment
type PaymentStatus string

const (
	PaymentStatusOpen      PaymentStatus = "open"
	PaymentStatusSuccess   PaymentStatus = "success"
	PaymentStatusFailure   PaymentStatus = "failure"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusExpired   PaymentStatus = "expired"
	PaymentStatusOnHold    PaymentStatus = "on_hold"
)

// IsTerminal reports whether the status is final. Terminal payments keep
// accepting notes and refunds but their transaction reference and amount
// no longer change.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusSuccess, PaymentStatusFailure, PaymentStatusCancelled, PaymentStatusExpired:
		return true
	}
	return false
}

// PaymentMode indicates whether a payment ran against a test or live gateway
type PaymentMode string

const (
	PaymentModeTest PaymentMode = "test"
	PaymentModeLive PaymentMode = "live"
)

// Payment is the ledger entry for a single payment attempt
type Payment struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Key is the capability token required on the return path. It is the
	// only access control for status updates, so it must be unguessable.
	Key           string        `gorm:"type:varchar(64);uniqueIndex" json:"key"`
	ConfigID      uint          `gorm:"index" json:"config_id"`
	Status        PaymentStatus `gorm:"type:varchar(20);default:'open'" json:"status"`
	TransactionID string        `gorm:"type:varchar(191);index" json:"transaction_id"`
	Amount        float64       `gorm:"type:decimal(15,2)" json:"amount"`
	Currency      string        `gorm:"type:varchar(3)" json:"currency"`
	Description   string        `gorm:"type:varchar(255)" json:"description"`
	ActionURL     string        `gorm:"type:text" json:"action_url"`
	ReturnURL     string        `gorm:"type:text" json:"return_url"`
	Mode          PaymentMode   `gorm:"type:varchar(10)" json:"mode"`
	RefundedAmount float64      `gorm:"type:decimal(15,2)" json:"refunded_amount"`

	// Relationships
	Config  GatewayConfig `gorm:"foreignKey:ConfigID" json:"config,omitempty"`
	Notes   []PaymentNote `gorm:"foreignKey:PaymentID" json:"notes,omitempty"`
	Refunds []Refund      `gorm:"foreignKey:PaymentID" json:"refunds,omitempty"`
}

// AddNote appends a human-readable audit entry. Notes are append-only and
// survive every status transition.
func (p *Payment) AddNote(content string) {
	p.Notes = append(p.Notes, PaymentNote{PaymentID: p.ID, Content: content})
}

// RemainingRefundable returns how much of the payment can still be refunded
func (p *Payment) RemainingRefundable() float64 {
	return p.Amount - p.RefundedAmount
}
