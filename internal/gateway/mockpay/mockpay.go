// Package mockpay provides a configurable in-memory gateway used in tests
// and for local development without PSP credentials.
package mockpay

import (
	"context"

	"github.com/google/uuid"

	"payflow_app/internal/gateway"
	"payflow_app/internal/models"
)

// Tag is the registry tag for this gateway
const Tag = "mockpay"

// Gateway is a fake PSP. Each hook can be overridden per test; the defaults
// behave like a synchronous gateway that approves everything.
type Gateway struct {
	StartFunc        func(ctx context.Context, p *models.Payment) error
	UpdateStatusFunc func(ctx context.Context, p *models.Payment) error
	CreateRefundFunc func(ctx context.Context, p *models.Payment, r *models.Refund) error
	Features         map[string]bool
}

// New builds a mockpay gateway. Credentials are ignored.
func New(cfg *models.GatewayConfig) (gateway.Gateway, error) {
	return &Gateway{}, nil
}

func (g *Gateway) Start(ctx context.Context, p *models.Payment) error {
	if g.StartFunc != nil {
		return g.StartFunc(ctx, p)
	}
	p.TransactionID = uuid.NewString()
	p.ActionURL = p.ReturnURL
	return nil
}

func (g *Gateway) UpdateStatus(ctx context.Context, p *models.Payment) error {
	if g.UpdateStatusFunc != nil {
		return g.UpdateStatusFunc(ctx, p)
	}
	p.Status = models.PaymentStatusSuccess
	return nil
}

func (g *Gateway) CreateRefund(ctx context.Context, p *models.Payment, r *models.Refund) error {
	if g.CreateRefundFunc != nil {
		return g.CreateRefundFunc(ctx, p, r)
	}
	r.Reference = uuid.NewString()
	return nil
}

func (g *Gateway) Supports(feature string) bool {
	if g.Features != nil {
		return g.Features[feature]
	}
	return feature == gateway.FeatureStatusRequest || feature == gateway.FeatureRefunds
}
