package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"payflow_app/internal/gateway"
	"payflow_app/internal/models"
)

// ErrGatewayUnavailable is returned from CreateRefund when the payment's
// gateway cannot be resolved. Unlike the start path this is fatal: there is
// nothing sensible to record on the payment and the caller must know.
var ErrGatewayUnavailable = errors.New("unable to process refund because the payment gateway could not be resolved")

// ErrRefundAmountExceeded is returned when a refund would push the refunded
// total past the payment amount. The check runs before any gateway call.
var ErrRefundAmountExceeded = errors.New("refund amount exceeds the refundable amount")

// DefaultAdapterTimeout bounds outbound gateway calls unless configured otherwise
const DefaultAdapterTimeout = 10 * time.Second

// Scheduler enqueues a deferred status check for a payment
type Scheduler interface {
	Schedule(ctx context.Context, paymentID uint) error
}

// PaymentUpdater refreshes a payment's status from its gateway
type PaymentUpdater interface {
	UpdatePayment(ctx context.Context, p *models.Payment) error
}

// PaymentOrchestrator drives the payment lifecycle: starting payments at
// their gateway, refreshing status, and booking refunds. Start and
// CreateRefund fail loud to the caller; UpdatePayment fails soft because it
// runs from pollers and return hits with no user to show an error to.
type PaymentOrchestrator struct {
	store          PaymentStore
	resolver       GatewayResolver
	scheduler      Scheduler
	metrics        *Metrics
	appURL         string
	adapterTimeout time.Duration

	// ConfigFilter, when set, may override the configuration a payment
	// resolves through. It runs after the explicit/default choice and its
	// return value wins.
	ConfigFilter func(p *models.Payment, configID uint) uint
}

// NewPaymentOrchestrator creates an orchestrator. scheduler and metrics may
// be nil; adapterTimeout falls back to DefaultAdapterTimeout when zero.
func NewPaymentOrchestrator(store PaymentStore, resolver GatewayResolver, scheduler Scheduler, metrics *Metrics, appURL string, adapterTimeout time.Duration) *PaymentOrchestrator {
	if adapterTimeout <= 0 {
		adapterTimeout = DefaultAdapterTimeout
	}
	return &PaymentOrchestrator{
		store:          store,
		resolver:       resolver,
		scheduler:      scheduler,
		metrics:        metrics,
		appURL:         strings.TrimRight(appURL, "/"),
		adapterTimeout: adapterTimeout,
	}
}

// StartPayment persists the payment and starts it at the resolved gateway.
//
// A configuration that does not resolve is recorded as a payment failure and
// returns without error; a gateway that fails to start is recorded the same
// way but the error is returned, since the surrounding checkout flow has to
// surface it. The record is saved again after the gateway call no matter how
// the call went.
func (o *PaymentOrchestrator) StartPayment(ctx context.Context, p *models.Payment) (*models.Payment, error) {
	configID := p.ConfigID
	if configID == 0 {
		configID = o.resolver.DefaultConfigID()
	}
	if o.ConfigFilter != nil {
		configID = o.ConfigFilter(p, configID)
	}
	p.ConfigID = configID

	if p.Key == "" {
		p.Key = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = models.PaymentStatusOpen
	}

	// First save: a crash mid-flow still leaves an observable open payment.
	if err := o.store.SavePayment(ctx, p); err != nil {
		return p, err
	}

	if p.ReturnURL == "" {
		p.ReturnURL = fmt.Sprintf("%s/?payment=%d&key=%s", o.appURL, p.ID, p.Key)
	}

	gw, cfg, err := o.resolver.Resolve(ctx, p.ConfigID)
	if err != nil {
		p.AddNote(fmt.Sprintf("Payment failed because gateway configuration with ID %d does not exist.", p.ConfigID))
		p.Status = models.PaymentStatusFailure
		o.countFailure("resolve")
		if saveErr := o.store.SavePayment(ctx, p); saveErr != nil {
			return p, saveErr
		}
		return p, nil
	}

	p.Mode = cfg.Mode

	startErr := o.withTimeout(ctx, func(cctx context.Context) error {
		return gw.Start(cctx, p)
	})
	if startErr != nil {
		p.AddNote(noteText(startErr))
		p.Status = models.PaymentStatusFailure
		o.countFailure("start")
	}

	// Unconditional save, also when the gateway call failed.
	saveErr := o.store.SavePayment(ctx, p)

	if startErr != nil {
		return p, startErr
	}
	if saveErr != nil {
		return p, saveErr
	}

	if o.metrics != nil {
		o.metrics.PaymentsStarted.Inc()
	}

	if o.scheduler != nil && gw.Supports(gateway.FeatureStatusRequest) {
		if err := o.scheduler.Schedule(ctx, p.ID); err != nil {
			// Scheduling failures must not block the payer's response.
			log.Printf("payment %d: failed to schedule status check: %v", p.ID, err)
		}
	}

	return p, nil
}

// UpdatePayment refreshes the payment's status from its gateway. Payments
// already settled as success or expired are not re-queried; failure and
// cancelled stay re-queriable because some PSPs confirm late through this
// same path. Gateway errors become notes and are never propagated.
func (o *PaymentOrchestrator) UpdatePayment(ctx context.Context, p *models.Payment) error {
	if p == nil {
		return nil
	}
	if p.Status == models.PaymentStatusSuccess || p.Status == models.PaymentStatusExpired {
		return nil
	}

	gw, _, err := o.resolver.Resolve(ctx, p.ConfigID)
	if err != nil {
		return nil
	}

	updateErr := o.withTimeout(ctx, func(cctx context.Context) error {
		return gw.UpdateStatus(cctx, p)
	})
	if updateErr != nil {
		p.AddNote(noteText(updateErr))
		o.countFailure("update")
		log.Printf("payment %d: status check failed: %v", p.ID, updateErr)
	}

	if o.metrics != nil {
		o.metrics.StatusChecks.Inc()
	}

	return o.store.SavePayment(ctx, p)
}

// CreateRefund books a refund for the payment the refund references. The
// amount is validated against the remaining refundable amount before any
// gateway call; gateway failures are noted on the payment and re-raised.
func (o *PaymentOrchestrator) CreateRefund(ctx context.Context, r *models.Refund) error {
	p, err := o.store.LoadPayment(ctx, r.PaymentID)
	if err != nil {
		return err
	}

	if r.Amount <= 0 || r.Amount > p.RemainingRefundable() {
		return ErrRefundAmountExceeded
	}

	gw, _, err := o.resolver.Resolve(ctx, p.ConfigID)
	if err != nil {
		return ErrGatewayUnavailable
	}

	refundErr := o.withTimeout(ctx, func(cctx context.Context) error {
		return gw.CreateRefund(cctx, p, r)
	})
	if refundErr == nil {
		if err := o.store.SaveRefund(ctx, r); err != nil {
			refundErr = err
		} else {
			p.RefundedAmount += r.Amount
			if o.metrics != nil {
				o.metrics.Refunds.Inc()
			}
		}
	}
	if refundErr != nil {
		p.AddNote(noteText(refundErr))
		o.countFailure("refund")
	}

	// Unconditional save of the payment, success or failure.
	saveErr := o.store.SavePayment(ctx, p)

	if refundErr != nil {
		return refundErr
	}
	return saveErr
}

func (o *PaymentOrchestrator) withTimeout(ctx context.Context, fn func(ctx context.Context) error) error {
	cctx, cancel := context.WithTimeout(ctx, o.adapterTimeout)
	defer cancel()
	return fn(cctx)
}

func (o *PaymentOrchestrator) countFailure(stage string) {
	if o.metrics != nil {
		o.metrics.PaymentFailures.WithLabelValues(stage).Inc()
	}
}

// noteText renders an error for the payment's audit log, prefixing the
// provider's numeric error code when one exists.
func noteText(err error) string {
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) && gwErr.Code > 0 {
		return fmt.Sprintf("%d: %s", gwErr.Code, gwErr.Message)
	}
	return err.Error()
}
