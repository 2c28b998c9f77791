package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"payflow_app/internal/models"
)

// ErrPaymentNotFound is returned when a payment ID does not resolve to a record
var ErrPaymentNotFound = errors.New("payment not found")

// PaymentStore is the persistence collaborator for the orchestrator. It is a
// plain save/load contract keyed by payment ID; the storage layer is
// last-write-wins.
type PaymentStore interface {
	SavePayment(ctx context.Context, p *models.Payment) error
	LoadPayment(ctx context.Context, id uint) (*models.Payment, error)
	SaveRefund(ctx context.Context, r *models.Refund) error
}

// GormStore implements PaymentStore on top of gorm
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a store backed by the given database handle
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// SavePayment persists the payment row and creates any notes appended since
// the last save. Notes are written explicitly so an append can never turn
// into an update of an earlier entry.
func (s *GormStore) SavePayment(ctx context.Context, p *models.Payment) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Notes", "Refunds", "Config").Save(p).Error; err != nil {
			return err
		}
		for i := range p.Notes {
			if p.Notes[i].ID != 0 {
				continue
			}
			p.Notes[i].PaymentID = p.ID
			if err := tx.Create(&p.Notes[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadPayment fetches a payment with its notes and refunds
func (s *GormStore) LoadPayment(ctx context.Context, id uint) (*models.Payment, error) {
	var p models.Payment
	err := s.db.WithContext(ctx).Preload("Config").Preload("Notes").Preload("Refunds").First(&p, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

// SaveRefund persists a refund record
func (s *GormStore) SaveRefund(ctx context.Context, r *models.Refund) error {
	return s.db.WithContext(ctx).Omit("Payment").Save(r).Error
}
