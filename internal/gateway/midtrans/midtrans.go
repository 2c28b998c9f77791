package midtrans

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"

	"payflow_app/internal/gateway"
	"payflow_app/internal/models"
)

// Tag is the registry tag for this gateway
const Tag = "midtrans"

// Credentials is the shape stored in GatewayConfig.Credentials
type Credentials struct {
	ServerKey string `json:"server_key"`
	ClientKey string `json:"client_key"`
}

// Gateway integrates Midtrans Snap for checkout and Core API for status
// checks and refunds.
type Gateway struct {
	snapClient snap.Client
	coreClient coreapi.Client
}

// New builds a Midtrans gateway from a stored configuration
func New(cfg *models.GatewayConfig) (gateway.Gateway, error) {
	var creds Credentials
	if err := json.Unmarshal(cfg.Credentials, &creds); err != nil {
		return nil, fmt.Errorf("midtrans: invalid credentials: %w", err)
	}
	if creds.ServerKey == "" {
		return nil, errors.New("midtrans: server key is not set")
	}

	env := midtrans.Sandbox
	if cfg.Mode == models.PaymentModeLive {
		env = midtrans.Production
	}

	var s snap.Client
	s.New(creds.ServerKey, env)

	var c coreapi.Client
	c.New(creds.ServerKey, env)

	return &Gateway{snapClient: s, coreClient: c}, nil
}

// Start creates a Snap transaction and points the payment at its checkout page
func (g *Gateway) Start(ctx context.Context, payment *models.Payment) error {
	orderID := fmt.Sprintf("payment-%d-%d", payment.ID, time.Now().Unix())

	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: int64(payment.Amount),
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    fmt.Sprintf("payment-%d", payment.ID),
				Name:  itemName(payment),
				Price: int64(payment.Amount),
				Qty:   1,
			},
		},
		Callbacks: &snap.Callbacks{
			Finish: payment.ReturnURL,
		},
	}

	resp, merr := g.snapClient.CreateTransaction(req)
	if merr != nil {
		return wrapError(merr)
	}

	payment.TransactionID = orderID
	payment.ActionURL = resp.RedirectURL
	return nil
}

// UpdateStatus queries the Core API for the transaction and maps the
// Midtrans transaction status onto the payment.
func (g *Gateway) UpdateStatus(ctx context.Context, payment *models.Payment) error {
	if payment.TransactionID == "" {
		return &gateway.Error{Message: "no transaction reference to check"}
	}

	resp, merr := g.coreClient.CheckTransaction(payment.TransactionID)
	if merr != nil {
		return wrapError(merr)
	}

	switch resp.TransactionStatus {
	case "capture":
		if resp.FraudStatus == "challenge" {
			payment.Status = models.PaymentStatusOnHold
		} else {
			payment.Status = models.PaymentStatusSuccess
		}
	case "settlement":
		payment.Status = models.PaymentStatusSuccess
	case "pending":
		payment.Status = models.PaymentStatusOpen
	case "deny", "failure":
		payment.Status = models.PaymentStatusFailure
	case "cancel":
		payment.Status = models.PaymentStatusCancelled
	case "expire":
		payment.Status = models.PaymentStatusExpired
	}
	return nil
}

// CreateRefund submits a direct refund through the Core API
func (g *Gateway) CreateRefund(ctx context.Context, payment *models.Payment, refund *models.Refund) error {
	req := &coreapi.RefundReq{
		RefundKey: fmt.Sprintf("refund-%d-%d", payment.ID, time.Now().Unix()),
		Amount:    int64(refund.Amount),
		Reason:    refund.Description,
	}

	resp, merr := g.coreClient.RefundTransaction(payment.TransactionID, req)
	if merr != nil {
		return wrapError(merr)
	}

	refund.Reference = resp.RefundKey
	return nil
}

// Supports reports the features this gateway implements
func (g *Gateway) Supports(feature string) bool {
	switch feature {
	case gateway.FeatureStatusRequest, gateway.FeatureRefunds:
		return true
	}
	return false
}

func itemName(payment *models.Payment) string {
	if payment.Description != "" {
		return payment.Description
	}
	return fmt.Sprintf("Payment #%d", payment.ID)
}

func wrapError(merr *midtrans.Error) error {
	return &gateway.Error{Code: merr.StatusCode, Message: merr.Message}
}
