package gateway

import (
	"context"

	"payflow_app/internal/models"
)

// Features a gateway can declare support for via Supports
const (
	FeatureStatusRequest = "payment_status_request"
	FeatureRefunds       = "refunds"
)

// Gateway is the contract every PSP adapter implements. Adapters mutate the
// payment they are handed (status, transaction reference, action URL) and
// report failures as *Error where a provider error code is available.
//
// All calls may perform blocking network I/O; the caller applies a timeout
// through the context.
type Gateway interface {
	// Start begins the payment at the PSP. It may set the payment's
	// transaction ID, action URL and status.
	Start(ctx context.Context, payment *models.Payment) error

	// UpdateStatus refreshes the payment's status from the PSP. It must be
	// safe to call repeatedly.
	UpdateStatus(ctx context.Context, payment *models.Payment) error

	// CreateRefund submits a refund for the payment and sets the refund's
	// gateway reference on success.
	CreateRefund(ctx context.Context, payment *models.Payment, refund *models.Refund) error

	// Supports reports whether the gateway implements the named feature.
	Supports(feature string) bool
}

// HTMLFormGateway is implemented by gateways that hand the payer to the PSP
// through a self-submitting HTML form instead of a plain location redirect.
type HTMLFormGateway interface {
	FormFields(payment *models.Payment) (action string, fields map[string]string)
}

// RedirectHook is implemented by gateways that need a final call before the
// payer is sent to the action URL.
type RedirectHook interface {
	PaymentRedirect(ctx context.Context, payment *models.Payment) error
}

// Error is a PSP-side failure. Code carries the provider's numeric error
// code when one exists, zero otherwise.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
