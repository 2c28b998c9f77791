package mockpay

import (
	"context"
	"testing"

	"payflow_app/internal/gateway"
	"payflow_app/internal/models"
)

func TestDefaultBehavior(t *testing.T) {
	g := &Gateway{}
	ctx := context.Background()

	p := &models.Payment{ID: 1, ReturnURL: "https://shop.example/?payment=1&key=k"}
	if err := g.Start(ctx, p); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if p.TransactionID == "" {
		t.Error("Start should assign a transaction reference")
	}
	if p.ActionURL != p.ReturnURL {
		t.Errorf("ActionURL = %q, want the return URL", p.ActionURL)
	}

	if err := g.UpdateStatus(ctx, p); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if p.Status != models.PaymentStatusSuccess {
		t.Errorf("Status = %q, want success", p.Status)
	}

	r := &models.Refund{PaymentID: 1, Amount: 10}
	if err := g.CreateRefund(ctx, p, r); err != nil {
		t.Fatalf("CreateRefund: %v", err)
	}
	if r.Reference == "" {
		t.Error("CreateRefund should assign a reference")
	}

	if !g.Supports(gateway.FeatureStatusRequest) || !g.Supports(gateway.FeatureRefunds) {
		t.Error("defaults should support status requests and refunds")
	}
}

func TestOverrides(t *testing.T) {
	called := false
	g := &Gateway{
		UpdateStatusFunc: func(ctx context.Context, p *models.Payment) error {
			called = true
			p.Status = models.PaymentStatusFailure
			return nil
		},
		Features: map[string]bool{},
	}

	p := &models.Payment{ID: 1}
	if err := g.UpdateStatus(context.Background(), p); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if !called {
		t.Error("override was not invoked")
	}
	if p.Status != models.PaymentStatusFailure {
		t.Errorf("Status = %q, want failure", p.Status)
	}
	if g.Supports(gateway.FeatureStatusRequest) {
		t.Error("an explicit empty feature set should disable everything")
	}
}
