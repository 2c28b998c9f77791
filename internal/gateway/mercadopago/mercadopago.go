package mercadopago

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preference"
	"github.com/mercadopago/sdk-go/pkg/refund"

	"payflow_app/internal/gateway"
	"payflow_app/internal/models"
)

// Tag is the registry tag for this gateway
const Tag = "mercadopago"

// Credentials is the shape stored in GatewayConfig.Credentials
type Credentials struct {
	AccessToken string `json:"access_token"`
}

// Gateway integrates Mercado Pago Checkout Pro. Start creates a preference,
// UpdateStatus and CreateRefund look the actual payment up by external
// reference since Mercado Pago assigns its payment ID only after checkout.
type Gateway struct {
	cfg  *config.Config
	mode models.PaymentMode
}

// New builds a Mercado Pago gateway from a stored configuration
func New(gwCfg *models.GatewayConfig) (gateway.Gateway, error) {
	var creds Credentials
	if err := json.Unmarshal(gwCfg.Credentials, &creds); err != nil {
		return nil, fmt.Errorf("mercadopago: invalid credentials: %w", err)
	}
	if creds.AccessToken == "" {
		return nil, errors.New("mercadopago: access token is not set")
	}

	cfg, err := config.New(creds.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("mercadopago: %w", err)
	}

	return &Gateway{cfg: cfg, mode: gwCfg.Mode}, nil
}

// Start creates a Checkout Pro preference and points the payment at it
func (g *Gateway) Start(ctx context.Context, p *models.Payment) error {
	client := preference.NewClient(g.cfg)

	req := preference.Request{
		Items: []preference.ItemRequest{
			{
				Title:      itemTitle(p),
				Quantity:   1,
				UnitPrice:  p.Amount,
				CurrencyID: p.Currency,
			},
		},
		ExternalReference: externalReference(p),
		AutoReturn:        "approved",
		BackURLs: &preference.BackURLsRequest{
			Success: p.ReturnURL,
			Failure: p.ReturnURL,
			Pending: p.ReturnURL,
		},
	}

	result, err := client.Create(ctx, req)
	if err != nil {
		return &gateway.Error{Message: "mercadopago: failed to create preference: " + err.Error()}
	}

	p.TransactionID = result.ID
	p.ActionURL = result.InitPoint
	if g.mode == models.PaymentModeTest && result.SandboxInitPoint != "" {
		p.ActionURL = result.SandboxInitPoint
	}
	return nil
}

// UpdateStatus searches for the payment by external reference and maps the
// Mercado Pago status onto the record. No result yet means the payer has not
// completed checkout; the status is left untouched.
func (g *Gateway) UpdateStatus(ctx context.Context, p *models.Payment) error {
	result, err := g.findPayment(ctx, p)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}

	switch result.Status {
	case "approved", "refunded", "charged_back":
		p.Status = models.PaymentStatusSuccess
	case "pending", "in_process", "authorized":
		p.Status = models.PaymentStatusOpen
	case "rejected":
		p.Status = models.PaymentStatusFailure
	case "cancelled":
		p.Status = models.PaymentStatusCancelled
	}
	return nil
}

// CreateRefund issues a partial refund against the settled payment
func (g *Gateway) CreateRefund(ctx context.Context, p *models.Payment, r *models.Refund) error {
	result, err := g.findPayment(ctx, p)
	if err != nil {
		return err
	}
	if result == nil {
		return &gateway.Error{Message: "mercadopago: no settled payment found to refund"}
	}

	client := refund.NewClient(g.cfg)
	resp, err := client.CreatePartialRefund(ctx, result.ID, r.Amount)
	if err != nil {
		return &gateway.Error{Message: "mercadopago: failed to create refund: " + err.Error()}
	}

	r.Reference = strconv.Itoa(resp.ID)
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

func (g *Gateway) findPayment(ctx context.Context, p *models.Payment) (*payment.Response, error) {
	client := payment.NewClient(g.cfg)

	result, err := client.Search(ctx, payment.SearchRequest{
		Filters: map[string]string{
			"external_reference": externalReference(p),
		},
	})
	if err != nil {
		return nil, &gateway.Error{Message: "mercadopago: failed to search payment: " + err.Error()}
	}
	if len(result.Results) == 0 {
		return nil, nil
	}
	return &result.Results[0], nil
}

func externalReference(p *models.Payment) string {
	return fmt.Sprintf("payflow-payment-%d", p.ID)
}

func itemTitle(p *models.Payment) string {
	if p.Description != "" {
		return p.Description
	}
	return fmt.Sprintf("Payment #%d", p.ID)
}
