package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"payflow_app/internal/models"
)

// defaultCheckDelays is the ladder of delays between successive status
// checks for a payment that stays non-terminal.
var defaultCheckDelays = []time.Duration{
	5 * time.Minute,
	30 * time.Minute,
	2 * time.Hour,
	24 * time.Hour,
}

// StatusPoller schedules and runs deferred gateway status checks. Scheduling
// is fire-and-forget and deduplicated by payment ID, so re-scheduling a
// payment that already has a pending check is a no-op.
type StatusPoller struct {
	db     *gorm.DB
	cache  *RedisCache
	delays []time.Duration
}

// NewStatusPoller creates a poller. cache may be nil; dedupe then relies on
// the database row alone.
func NewStatusPoller(db *gorm.DB, cache *RedisCache) *StatusPoller {
	return &StatusPoller{db: db, cache: cache, delays: defaultCheckDelays}
}

// Schedule enqueues the first status check for a payment
func (s *StatusPoller) Schedule(ctx context.Context, paymentID uint) error {
	return s.ScheduleAt(ctx, paymentID, time.Now().Add(s.delays[0]), nil)
}

// ScheduleAt enqueues a status check due at the given time, optionally with
// an rrule recurrence instead of the default delay ladder.
func (s *StatusPoller) ScheduleAt(ctx context.Context, paymentID uint, due time.Time, recurringInterval *string) error {
	if s.cache != nil {
		key := fmt.Sprintf("status_check:%d", paymentID)
		acquired, err := s.cache.SetNX(ctx, key, 1, time.Minute)
		if err == nil && !acquired {
			return nil
		}
	}

	var existing models.StatusCheck
	err := s.db.WithContext(ctx).
		Where("payment_id = ? AND status = ?", paymentID, models.StatusCheckStatusActive).
		First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	check := models.StatusCheck{
		PaymentID:         paymentID,
		Due:               due,
		RecurringInterval: recurringInterval,
		Status:            models.StatusCheckStatusActive,
		AttemptNumber:     1,
		MaxAttempt:        len(s.delays),
	}
	return s.db.WithContext(ctx).Create(&check).Error
}

// ProcessDue runs every status check whose due time has passed. Each check
// calls UpdatePayment, which is idempotent and swallows gateway errors, so
// the poller only manages scheduling state.
func (s *StatusPoller) ProcessDue(ctx context.Context, updater PaymentUpdater) {
	var pending []models.StatusCheck
	now := time.Now()
	err := s.db.WithContext(ctx).
		Where("status = ? AND due <= ?", models.StatusCheckStatusActive, now).
		Find(&pending).Error
	if err != nil {
		log.Printf("Error fetching pending status checks: %v", err)
		return
	}

	if len(pending) == 0 {
		return
	}

	log.Printf("Found %d pending status checks.", len(pending))

	for _, check := range pending {
		if ctx.Err() != nil {
			return
		}
		s.runCheck(ctx, updater, check)
	}
}

func (s *StatusPoller) runCheck(ctx context.Context, updater PaymentUpdater, check models.StatusCheck) {
	log.Printf("Processing status check for payment %d (attempt %d)", check.PaymentID, check.AttemptNumber)

	now := time.Now()
	updates := map[string]interface{}{
		"last_run": &now,
	}

	var payment models.Payment
	if err := s.db.WithContext(ctx).Preload("Notes").First(&payment, check.PaymentID).Error; err != nil {
		log.Printf("Status check %d: payment %d not found: %v", check.ID, check.PaymentID, err)
		updates["status"] = models.StatusCheckStatusFailure
		s.db.WithContext(ctx).Model(&check).Updates(updates)
		return
	}

	if err := updater.UpdatePayment(ctx, &payment); err != nil {
		log.Printf("Status check %d: update failed: %v", check.ID, err)
	}

	switch {
	case payment.Status.IsTerminal():
		updates["status"] = models.StatusCheckStatusDone
	case check.RecurringInterval != nil && *check.RecurringInterval != "":
		nextDue := check.NextDue()
		if nextDue.After(check.Due) {
			updates["due"] = nextDue
			updates["attempt_number"] = check.AttemptNumber + 1
		} else {
			updates["status"] = models.StatusCheckStatusDone
		}
	case check.AttemptNumber >= check.MaxAttempt:
		// Give up; the payment stays observable through its record.
		updates["status"] = models.StatusCheckStatusDone
	default:
		updates["due"] = now.Add(s.delayFor(check.AttemptNumber))
		updates["attempt_number"] = check.AttemptNumber + 1
	}

	s.db.WithContext(ctx).Model(&check).Updates(updates)
}

func (s *StatusPoller) delayFor(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > len(s.delays) {
		attempt = len(s.delays)
	}
	return s.delays[attempt-1]
}
