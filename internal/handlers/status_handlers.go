package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"payflow_app/internal/models"
	"payflow_app/internal/services"
)

// StatusHandler serves the async status-check endpoint used by pages that
// poll while the payer completes payment in another tab or app.
type StatusHandler struct {
	db     *gorm.DB
	store  services.PaymentStore
	flow   PaymentFlow
	secret string
}

func NewStatusHandler(db *gorm.DB, store services.PaymentStore, flow PaymentFlow, secret string) *StatusHandler {
	return &StatusHandler{db: db, store: store, flow: flow, secret: secret}
}

// Check refreshes a payment's status. The request must carry the nonce
// handed out at payment creation; the endpoint always answers 200 on
// gateway trouble since pollers have no user to show an error to.
func (h *StatusHandler) Check(c echo.Context) error {
	var req StatusCheckRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid payload")
	}
	if req.PaymentID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "payment_id is required")
	}

	if !services.VerifyStatusNonce(h.secret, req.PaymentID, req.TransactionID, req.Nonce) {
		return echo.NewHTTPError(http.StatusForbidden, "Invalid nonce")
	}

	payment, err := h.store.LoadPayment(c.Request().Context(), req.PaymentID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Payment not found")
	}

	recordCallback(h.db, payment, models.CallbackSourceStatusCheck, c.QueryParams())

	// Payer-submitted reference, e.g. a UPI transaction ID typed into the
	// checkout page.
	if payment.TransactionID == "" && req.TransactionID != "" {
		payment.TransactionID = req.TransactionID
	}

	notesBefore := len(payment.Notes)
	if err := h.flow.UpdatePayment(c.Request().Context(), payment); err != nil {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"success": false,
			"error":   genericPaymentError,
		})
	}

	// A new note means the gateway call failed; its text already carries
	// the provider's error code when one was present.
	if len(payment.Notes) > notesBefore {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"success": false,
			"error":   payment.Notes[len(payment.Notes)-1].Content,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"status":  payment.Status,
	})
}
