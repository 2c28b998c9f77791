package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"payflow_app/internal/models"
	"payflow_app/internal/services"
)

// genericPaymentError is what the payer sees when a start fails; the precise
// gateway error stays in the payment's notes for operators.
const genericPaymentError = "Something went wrong with the payment. Please try again or pay another way."

type PaymentHandler struct {
	store  services.PaymentStore
	flow   PaymentFlow
	appURL string
	secret string
}

func NewPaymentHandler(store services.PaymentStore, flow PaymentFlow, appURL, secret string) *PaymentHandler {
	return &PaymentHandler{store: store, flow: flow, appURL: strings.TrimRight(appURL, "/"), secret: secret}
}

// CreatePayment creates a payment record and starts it at its gateway
func (h *PaymentHandler) CreatePayment(c echo.Context) error {
	var req CreatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	if req.Amount <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Amount must be positive")
	}
	if len(req.Currency) != 3 {
		return echo.NewHTTPError(http.StatusBadRequest, "Currency must be a 3-letter code")
	}

	payment := &models.Payment{
		ConfigID:    req.ConfigID,
		Amount:      req.Amount,
		Currency:    strings.ToUpper(req.Currency),
		Description: req.Description,
		Status:      models.PaymentStatusOpen,
	}

	payment, err := h.flow.StartPayment(c.Request().Context(), payment)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, genericPaymentError)
	}

	return c.JSON(http.StatusCreated, h.paymentResponse(payment, true))
}

// GetPayment returns a payment; the caller must present the payment's key
func (h *PaymentHandler) GetPayment(c echo.Context) error {
	payment, err := h.loadKeyedPayment(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.paymentResponse(payment, false))
}

// CreateRefund books a refund against a payment
func (h *PaymentHandler) CreateRefund(c echo.Context) error {
	payment, err := h.loadKeyedPayment(c)
	if err != nil {
		return err
	}

	var req CreateRefundRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}

	refund := &models.Refund{
		PaymentID:   payment.ID,
		Amount:      req.Amount,
		Description: req.Description,
	}

	err = h.flow.CreateRefund(c.Request().Context(), refund)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrRefundAmountExceeded):
		return echo.NewHTTPError(http.StatusBadRequest, "Refund amount exceeds the refundable amount")
	case errors.Is(err, services.ErrGatewayUnavailable):
		return echo.NewHTTPError(http.StatusBadGateway, "Unable to process refund as gateway could not be found")
	case errors.Is(err, services.ErrPaymentNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Payment not found")
	default:
		return echo.NewHTTPError(http.StatusBadGateway, "Failed to create refund")
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"id":        refund.ID,
		"amount":    refund.Amount,
		"reference": refund.Reference,
	})
}

func (h *PaymentHandler) loadKeyedPayment(c echo.Context) (*models.Payment, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid payment ID")
	}

	payment, err := h.store.LoadPayment(c.Request().Context(), uint(id))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "Payment not found")
	}

	// The key is the only credential on this surface; a mismatch looks the
	// same as a missing payment.
	if payment.Key == "" || c.QueryParam("key") != payment.Key {
		return nil, echo.NewHTTPError(http.StatusNotFound, "Payment not found")
	}
	return payment, nil
}

func (h *PaymentHandler) paymentResponse(p *models.Payment, includeSecrets bool) PaymentResponse {
	resp := PaymentResponse{
		ID:             p.ID,
		Status:         string(p.Status),
		TransactionID:  p.TransactionID,
		Amount:         p.Amount,
		Currency:       p.Currency,
		RefundedAmount: p.RefundedAmount,
		ActionURL:      p.ActionURL,
	}
	if includeSecrets {
		resp.Key = p.Key
		resp.PayRedirectURL = fmt.Sprintf("%s/?payment_redirect=%d&key=%s", h.appURL, p.ID, p.Key)
		resp.StatusNonce = services.StatusNonce(h.secret, p.ID, p.TransactionID)
	}
	return resp
}
