package handlers

// CreatePaymentRequest is the body for POST /payments
type CreatePaymentRequest struct {
	ConfigID    uint    `json:"config_id"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Description string  `json:"description"`
}

// CreateRefundRequest is the body for POST /payments/:id/refunds
type CreateRefundRequest struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

// StatusCheckRequest is the body for POST /payments/status-check.
// The nonce is scoped to the (payment_id, transaction_id) pair.
type StatusCheckRequest struct {
	PaymentID     uint   `json:"payment_id" form:"payment_id"`
	TransactionID string `json:"transaction_id" form:"transaction_id"`
	Nonce         string `json:"nonce" form:"nonce"`
}

// PaymentResponse is the JSON shape returned for a payment
type PaymentResponse struct {
	ID             uint    `json:"id"`
	Key            string  `json:"key,omitempty"`
	Status         string  `json:"status"`
	TransactionID  string  `json:"transaction_id,omitempty"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	RefundedAmount float64 `json:"refunded_amount"`
	ActionURL      string  `json:"action_url,omitempty"`
	PayRedirectURL string  `json:"pay_redirect_url,omitempty"`
	StatusNonce    string  `json:"status_nonce,omitempty"`
}
