package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/url"
	"os"

	"gorm.io/gorm"

	"payflow_app/internal/models"
)

// PaymentFlow is the slice of the orchestrator the handlers need
type PaymentFlow interface {
	StartPayment(ctx context.Context, p *models.Payment) (*models.Payment, error)
	UpdatePayment(ctx context.Context, p *models.Payment) error
	CreateRefund(ctx context.Context, r *models.Refund) error
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// recordCallback keeps a raw copy of every boundary hit for a payment
func recordCallback(db *gorm.DB, payment *models.Payment, source models.CallbackSource, params url.Values) {
	if db == nil {
		return
	}
	metadata, err := json.Marshal(params)
	if err != nil {
		return
	}
	history := models.PaymentCallbackHistory{
		PaymentID: payment.ID,
		Gateway:   payment.Config.Gateway,
		Source:    source,
		Metadata:  metadata,
	}
	if err := db.Create(&history).Error; err != nil {
		log.Printf("Failed to record callback history for payment %d: %v", payment.ID, err)
	}
}
