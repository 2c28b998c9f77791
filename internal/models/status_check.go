package models

import (
	"time"

	"github.com/teambition/rrule-go"
	"gorm.io/gorm"
)

// StatusCheckStatus represents the state of a scheduled status check
type StatusCheckStatus string

const (
	StatusCheckStatusActive  StatusCheckStatus = "active"
	StatusCheckStatusDone    StatusCheckStatus = "done"
	StatusCheckStatusFailure StatusCheckStatus = "failure"
)

// StatusCheck tracks a deferred gateway status poll for one payment.
// At most one active row exists per payment; the worker picks up rows
// whose due time has passed.
type StatusCheck struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	PaymentID         uint              `gorm:"index:idx_status_checks_payment_status,priority:1,where:deleted_at IS NULL" json:"payment_id"`
	LastRun           *time.Time        `json:"last_run"`
	Due               time.Time         `gorm:"index:idx_status_checks_status_due,priority:2,where:deleted_at IS NULL" json:"due"`
	RecurringInterval *string           `gorm:"type:text" json:"recurring_interval"`
	Status            StatusCheckStatus `gorm:"type:varchar(20);index:idx_status_checks_status_due,priority:1,where:deleted_at IS NULL;index:idx_status_checks_payment_status,priority:2,where:deleted_at IS NULL" json:"status"`
	AttemptNumber     int               `json:"attempt_number"`
	MaxAttempt        int               `json:"max_attempt"`
}

// NextDue calculates the next due date when the check carries an rrule
// recurrence. Without one the current due time is returned and the caller
// applies its own delay ladder.
func (c StatusCheck) NextDue() time.Time {
	if c.RecurringInterval != nil && *c.RecurringInterval != "" {
		rule, err := rrule.StrToRRule(*c.RecurringInterval)
		if err == nil {
			rule.DTStart(c.Due)
			next := rule.After(time.Now(), true)
			if !next.IsZero() {
				return next
			}
		}
	}
	// Fallback to current Due if parsing fails
	return c.Due
}
