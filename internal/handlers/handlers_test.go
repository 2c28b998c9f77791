package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payflow_app/internal/gateway"
	"payflow_app/internal/models"
	"payflow_app/internal/services"
)

type fakeStore struct {
	payments map[uint]*models.Payment
	loads    int
}

func (s *fakeStore) SavePayment(ctx context.Context, p *models.Payment) error { return nil }

func (s *fakeStore) LoadPayment(ctx context.Context, id uint) (*models.Payment, error) {
	s.loads++
	p, ok := s.payments[id]
	if !ok {
		return nil, services.ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) SaveRefund(ctx context.Context, r *models.Refund) error { return nil }

type fakeFlow struct {
	startErr  error
	updateErr error
	refundErr error

	startCalls  int
	updateCalls int
	refundCalls int

	onStart  func(p *models.Payment)
	onUpdate func(p *models.Payment)
}

func (f *fakeFlow) StartPayment(ctx context.Context, p *models.Payment) (*models.Payment, error) {
	f.startCalls++
	if f.onStart != nil {
		f.onStart(p)
	}
	return p, f.startErr
}

func (f *fakeFlow) UpdatePayment(ctx context.Context, p *models.Payment) error {
	f.updateCalls++
	if f.onUpdate != nil {
		f.onUpdate(p)
	}
	return f.updateErr
}

func (f *fakeFlow) CreateRefund(ctx context.Context, r *models.Refund) error {
	f.refundCalls++
	return f.refundErr
}

type fakeGateway struct {
	form       map[string]string
	formAction string
}

func (g *fakeGateway) Start(ctx context.Context, p *models.Payment) error        { return nil }
func (g *fakeGateway) UpdateStatus(ctx context.Context, p *models.Payment) error { return nil }
func (g *fakeGateway) CreateRefund(ctx context.Context, p *models.Payment, r *models.Refund) error {
	return nil
}
func (g *fakeGateway) Supports(feature string) bool { return false }

type fakeFormGateway struct {
	fakeGateway
}

func (g *fakeFormGateway) FormFields(p *models.Payment) (string, map[string]string) {
	return g.formAction, g.form
}

type fakeResolver struct {
	gw  gateway.Gateway
	err error
}

func (r *fakeResolver) Resolve(ctx context.Context, configID uint) (gateway.Gateway, *models.GatewayConfig, error) {
	if r.err != nil {
		return nil, nil, r.err
	}
	return r.gw, &models.GatewayConfig{ID: configID}, nil
}

func (r *fakeResolver) DefaultConfigID() uint { return 0 }

func newContext(method, target string, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func storeWith(payments ...*models.Payment) *fakeStore {
	s := &fakeStore{payments: map[uint]*models.Payment{}}
	for _, p := range payments {
		s.payments[p.ID] = p
	}
	return s
}

func TestCreatePayment(t *testing.T) {
	flow := &fakeFlow{onStart: func(p *models.Payment) {
		p.ID = 1
		p.Key = "k-1"
		p.TransactionID = "txn-1"
	}}
	h := NewPaymentHandler(storeWith(), flow, "https://shop.example", "secret")

	c, rec := newContext(http.MethodPost, "/payments", `{"amount": 100, "currency": "eur"}`)
	require.NoError(t, h.CreatePayment(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp PaymentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "k-1", resp.Key)
	assert.Equal(t, "EUR", resp.Currency)
	assert.Equal(t, "https://shop.example/?payment_redirect=1&key=k-1", resp.PayRedirectURL)
	assert.Equal(t, services.StatusNonce("secret", 1, "txn-1"), resp.StatusNonce)
}

func TestCreatePaymentValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing amount", `{"currency": "EUR"}`},
		{"negative amount", `{"amount": -5, "currency": "EUR"}`},
		{"bad currency", `{"amount": 10, "currency": "EURO"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow := &fakeFlow{}
			h := NewPaymentHandler(storeWith(), flow, "https://shop.example", "secret")

			c, _ := newContext(http.MethodPost, "/payments", tt.body)
			err := h.CreatePayment(c)

			var httpErr *echo.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, http.StatusBadRequest, httpErr.Code)
			assert.Zero(t, flow.startCalls)
		})
	}
}

func TestCreatePaymentStartFailureIsGeneric(t *testing.T) {
	flow := &fakeFlow{startErr: &gateway.Error{Code: 402, Message: "card declined"}}
	h := NewPaymentHandler(storeWith(), flow, "https://shop.example", "secret")

	c, _ := newContext(http.MethodPost, "/payments", `{"amount": 10, "currency": "EUR"}`)
	err := h.CreatePayment(c)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadGateway, httpErr.Code)
	// The provider's message stays in the payment notes, not the response.
	assert.Equal(t, genericPaymentError, httpErr.Message)
}

func TestGetPaymentKeyGating(t *testing.T) {
	payment := &models.Payment{ID: 1, Key: "good-key", Status: models.PaymentStatusOpen, Amount: 10, Currency: "EUR"}

	tests := []struct {
		name   string
		id     string
		target string
		want   int
	}{
		{"correct key", "1", "/payments/1?key=good-key", http.StatusOK},
		{"wrong key", "1", "/payments/1?key=bad-key", http.StatusNotFound},
		{"missing key", "1", "/payments/1", http.StatusNotFound},
		{"unknown payment", "9", "/payments/9?key=good-key", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewPaymentHandler(storeWith(payment), &fakeFlow{}, "https://shop.example", "secret")

			c, rec := newContext(http.MethodGet, tt.target, "")
			c.SetPath("/payments/:id")
			c.SetParamNames("id")
			c.SetParamValues(tt.id)

			err := h.GetPayment(c)
			if tt.want == http.StatusOK {
				require.NoError(t, err)
				assert.Equal(t, http.StatusOK, rec.Code)

				var resp PaymentResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Empty(t, resp.Key, "the key is never echoed back on reads")
				assert.Empty(t, resp.StatusNonce)
				return
			}
			var httpErr *echo.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tt.want, httpErr.Code)
			assert.Equal(t, "Payment not found", httpErr.Message)
		})
	}
}

func TestCreateRefundErrorMapping(t *testing.T) {
	payment := &models.Payment{ID: 1, Key: "good-key", Status: models.PaymentStatusSuccess, Amount: 100}

	tests := []struct {
		name     string
		flowErr  error
		wantCode int
	}{
		{"amount exceeded", services.ErrRefundAmountExceeded, http.StatusBadRequest},
		{"gateway unavailable", services.ErrGatewayUnavailable, http.StatusBadGateway},
		{"payment gone", services.ErrPaymentNotFound, http.StatusNotFound},
		{"other failure", &gateway.Error{Code: 1, Message: "nope"}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewPaymentHandler(storeWith(payment), &fakeFlow{refundErr: tt.flowErr}, "https://shop.example", "secret")

			c, _ := newContext(http.MethodPost, "/payments/1/refunds?key=good-key", `{"amount": 40}`)
			c.SetParamNames("id")
			c.SetParamValues("1")

			err := h.CreateRefund(c)
			var httpErr *echo.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tt.wantCode, httpErr.Code)
		})
	}
}

func TestCreateRefundSuccess(t *testing.T) {
	payment := &models.Payment{ID: 1, Key: "good-key", Status: models.PaymentStatusSuccess, Amount: 100}
	flow := &fakeFlow{}
	h := NewPaymentHandler(storeWith(payment), flow, "https://shop.example", "secret")

	c, rec := newContext(http.MethodPost, "/payments/1/refunds?key=good-key", `{"amount": 40}`)
	c.SetParamNames("id")
	c.SetParamValues("1")

	require.NoError(t, h.CreateRefund(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, flow.refundCalls)
}

func TestRootDispatch(t *testing.T) {
	payment := &models.Payment{ID: 1, Key: "good-key", Status: models.PaymentStatusSuccess, ActionURL: "https://psp.example/pay"}

	tests := []struct {
		name         string
		target       string
		wantCode     int
		wantLocation string
	}{
		{"plain root", "/", http.StatusOK, ""},
		{"return", "/?payment=1&key=good-key", http.StatusFound, "https://shop.example/pay/success?payment=1"},
		{"redirect", "/?payment_redirect=1&key=good-key", http.StatusFound, "https://psp.example/pay"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewReturnHandler(nil, storeWith(payment), &fakeFlow{}, &fakeResolver{gw: &fakeGateway{}}, "https://shop.example")

			c, rec := newContext(http.MethodGet, tt.target, "")
			require.NoError(t, h.Root(c))
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantLocation != "" {
				assert.Equal(t, tt.wantLocation, rec.Header().Get(echo.HeaderLocation))
			}
		})
	}
}

func TestHandleReturnKeyMismatch(t *testing.T) {
	payment := &models.Payment{ID: 1, Key: "good-key", Status: models.PaymentStatusOpen}

	tests := []struct {
		name   string
		target string
	}{
		{"wrong key", "/?payment=1&key=bad-key"},
		{"missing key", "/?payment=1"},
		{"unknown payment", "/?payment=9&key=good-key"},
		{"malformed id", "/?payment=abc&key=good-key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow := &fakeFlow{}
			h := NewReturnHandler(nil, storeWith(payment), flow, &fakeResolver{gw: &fakeGateway{}}, "https://shop.example")

			c, rec := newContext(http.MethodGet, tt.target, "")
			require.NoError(t, h.HandleReturn(c))

			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, "https://shop.example/", rec.Header().Get(echo.HeaderLocation))
			assert.Zero(t, flow.updateCalls, "a bad key must never trigger a gateway call")
		})
	}
}

func TestHandleReturnUpdatesAndRedirects(t *testing.T) {
	tests := []struct {
		status       models.PaymentStatus
		wantLocation string
	}{
		{models.PaymentStatusSuccess, "https://shop.example/pay/success?payment=1"},
		{models.PaymentStatusFailure, "https://shop.example/pay/failure?payment=1"},
		{models.PaymentStatusCancelled, "https://shop.example/pay/failure?payment=1"},
		{models.PaymentStatusExpired, "https://shop.example/pay/failure?payment=1"},
		{models.PaymentStatusOpen, "https://shop.example/pay/pending?payment=1"},
		{models.PaymentStatusOnHold, "https://shop.example/pay/pending?payment=1"},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			payment := &models.Payment{ID: 1, Key: "good-key", Status: models.PaymentStatusOpen}
			flow := &fakeFlow{onUpdate: func(p *models.Payment) { p.Status = tt.status }}
			h := NewReturnHandler(nil, storeWith(payment), flow, &fakeResolver{gw: &fakeGateway{}}, "https://shop.example")

			c, rec := newContext(http.MethodGet, "/?payment=1&key=good-key", "")
			require.NoError(t, h.HandleReturn(c))

			assert.Equal(t, 1, flow.updateCalls)
			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, tt.wantLocation, rec.Header().Get(echo.HeaderLocation))
		})
	}
}

func TestHandleReturnRedirectFilterVeto(t *testing.T) {
	payment := &models.Payment{ID: 1, Key: "good-key", Status: models.PaymentStatusSuccess}
	flow := &fakeFlow{}
	h := NewReturnHandler(nil, storeWith(payment), flow, &fakeResolver{gw: &fakeGateway{}}, "https://shop.example")
	h.RedirectFilter = func(c echo.Context, p *models.Payment) bool { return false }

	c, rec := newContext(http.MethodGet, "/?payment=1&key=good-key", "")
	require.NoError(t, h.HandleReturn(c))

	assert.Equal(t, http.StatusOK, rec.Code, "a vetoed redirect answers with the status instead")
	assert.Contains(t, rec.Body.String(), string(models.PaymentStatusSuccess))
}

func TestHandleReturnExplicitOptOut(t *testing.T) {
	payment := &models.Payment{ID: 1, Key: "good-key", Status: models.PaymentStatusSuccess}
	flow := &fakeFlow{}
	h := NewReturnHandler(nil, storeWith(payment), flow, &fakeResolver{gw: &fakeGateway{}}, "https://shop.example")

	c, rec := newContext(http.MethodGet, "/?payment=1&key=good-key&can_redirect=false", "")
	require.NoError(t, h.HandleReturn(c))

	assert.Equal(t, 1, flow.updateCalls, "opting out of the redirect still refreshes the status")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMaybeRedirect(t *testing.T) {
	payment := &models.Payment{ID: 1, Key: "good-key", ActionURL: "https://psp.example/pay"}
	h := NewReturnHandler(nil, storeWith(payment), &fakeFlow{}, &fakeResolver{gw: &fakeGateway{}}, "https://shop.example")

	c, rec := newContext(http.MethodGet, "/?payment_redirect=1&key=good-key", "")
	require.NoError(t, h.MaybeRedirect(c))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://psp.example/pay", rec.Header().Get(echo.HeaderLocation))
	assert.Contains(t, rec.Header().Get(echo.HeaderCacheControl), "no-store")
}

func TestMaybeRedirectFormGateway(t *testing.T) {
	payment := &models.Payment{ID: 1, Key: "good-key", ActionURL: "https://psp.example/pay"}
	gw := &fakeFormGateway{}
	gw.formAction = "https://psp.example/form"
	gw.form = map[string]string{"txnid": "txn-1", "amount": "100.00"}
	h := NewReturnHandler(nil, storeWith(payment), &fakeFlow{}, &fakeResolver{gw: gw}, "https://shop.example")

	c, rec := newContext(http.MethodGet, "/?payment_redirect=1&key=good-key", "")
	require.NoError(t, h.MaybeRedirect(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `action="https://psp.example/form"`)
	assert.Contains(t, body, `name="txnid" value="txn-1"`)
	assert.Contains(t, body, `name="amount" value="100.00"`)
}

func TestMaybeRedirectNoActionURL(t *testing.T) {
	payment := &models.Payment{ID: 1, Key: "good-key"}
	h := NewReturnHandler(nil, storeWith(payment), &fakeFlow{}, &fakeResolver{err: services.ErrConfigNotFound}, "https://shop.example")

	c, rec := newContext(http.MethodGet, "/?payment_redirect=1&key=good-key", "")
	require.NoError(t, h.MaybeRedirect(c))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://shop.example/", rec.Header().Get(echo.HeaderLocation))
}

func TestStatusCheckNonceGate(t *testing.T) {
	payment := &models.Payment{ID: 1, Key: "k", TransactionID: "txn-1", Status: models.PaymentStatusOpen}
	store := storeWith(payment)
	flow := &fakeFlow{}
	h := NewStatusHandler(nil, store, flow, "secret")

	body := `{"payment_id": 1, "transaction_id": "txn-1", "nonce": "wrong"}`
	c, _ := newContext(http.MethodPost, "/payments/status-check", body)

	err := h.Check(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.Code)
	assert.Zero(t, store.loads, "an invalid nonce is rejected before any lookup")
	assert.Zero(t, flow.updateCalls)
}

func TestStatusCheckSuccess(t *testing.T) {
	payment := &models.Payment{ID: 1, Key: "k", TransactionID: "txn-1", Status: models.PaymentStatusOpen}
	flow := &fakeFlow{onUpdate: func(p *models.Payment) { p.Status = models.PaymentStatusSuccess }}
	h := NewStatusHandler(nil, storeWith(payment), flow, "secret")

	nonce := services.StatusNonce("secret", 1, "txn-1")
	body := `{"payment_id": 1, "transaction_id": "txn-1", "nonce": "` + nonce + `"}`
	c, rec := newContext(http.MethodPost, "/payments/status-check", body)

	require.NoError(t, h.Check(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "success", resp["status"])
}

func TestStatusCheckFillsTransactionID(t *testing.T) {
	// A payer-submitted reference, e.g. a UPI transaction ID typed into the
	// page, is accepted only when the payment has none yet.
	payment := &models.Payment{ID: 1, Key: "k", Status: models.PaymentStatusOpen}
	var seen string
	flow := &fakeFlow{onUpdate: func(p *models.Payment) { seen = p.TransactionID }}
	h := NewStatusHandler(nil, storeWith(payment), flow, "secret")

	nonce := services.StatusNonce("secret", 1, "upi-ref-9")
	body := `{"payment_id": 1, "transaction_id": "upi-ref-9", "nonce": "` + nonce + `"}`
	c, rec := newContext(http.MethodPost, "/payments/status-check", body)

	require.NoError(t, h.Check(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "upi-ref-9", seen)
}

func TestStatusCheckReportsGatewayTrouble(t *testing.T) {
	payment := &models.Payment{ID: 1, Key: "k", TransactionID: "txn-1", Status: models.PaymentStatusOpen}
	flow := &fakeFlow{onUpdate: func(p *models.Payment) {
		p.AddNote("500: temporarily unavailable")
	}}
	h := NewStatusHandler(nil, storeWith(payment), flow, "secret")

	nonce := services.StatusNonce("secret", 1, "txn-1")
	body := `{"payment_id": 1, "transaction_id": "txn-1", "nonce": "` + nonce + `"}`
	c, rec := newContext(http.MethodPost, "/payments/status-check", body)

	require.NoError(t, h.Check(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "500: temporarily unavailable", resp["error"])
}
