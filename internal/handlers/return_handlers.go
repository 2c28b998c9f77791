package handlers

import (
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"payflow_app/internal/gateway"
	"payflow_app/internal/models"
	"payflow_app/internal/services"
)

// formRedirectTemplate hands the payer to PSPs that expect a POSTed form
// instead of a plain location redirect.
var formRedirectTemplate = template.Must(template.New("form_redirect").Parse(`<!DOCTYPE html>
<html>
<head><title>Redirecting…</title></head>
<body onload="document.forms[0].submit()">
<p>Redirecting to the payment provider…</p>
<form method="post" action="{{.Action}}">
{{range $name, $value := .Fields}}<input type="hidden" name="{{$name}}" value="{{$value}}">
{{end}}<noscript><button type="submit">Continue</button></noscript>
</form>
</body>
</html>
`))

// ReturnHandler owns the browser-facing return and redirect flows. Both are
// gated by the payment's key; a bad key ends in a silent redirect home with
// nothing touched.
type ReturnHandler struct {
	db       *gorm.DB
	store    services.PaymentStore
	flow     PaymentFlow
	resolver services.GatewayResolver
	appURL   string

	// RedirectFilter may veto the post-update redirect on payment return.
	// Its return value is authoritative.
	RedirectFilter func(c echo.Context, p *models.Payment) bool
}

func NewReturnHandler(db *gorm.DB, store services.PaymentStore, flow PaymentFlow, resolver services.GatewayResolver, appURL string) *ReturnHandler {
	return &ReturnHandler{db: db, store: store, flow: flow, resolver: resolver, appURL: strings.TrimRight(appURL, "/")}
}

// Root dispatches the query-parameter driven return contract:
// /?payment=<id>&key=<token> and /?payment_redirect=<id>&key=<token>
func (h *ReturnHandler) Root(c echo.Context) error {
	if c.QueryParam("payment_redirect") != "" {
		return h.MaybeRedirect(c)
	}
	if c.QueryParam("payment") != "" {
		return h.HandleReturn(c)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// HandleReturn processes the payer coming back from the PSP: validate the
// key, refresh the payment status, then send the browser to the
// status-derived destination unless a filter vetoes the redirect.
func (h *ReturnHandler) HandleReturn(c echo.Context) error {
	payment, ok := h.keyedPayment(c, c.QueryParam("payment"))
	if !ok {
		return c.Redirect(http.StatusFound, h.homeURL())
	}

	recordCallback(h.db, payment, models.CallbackSourceReturn, c.QueryParams())

	canRedirect := c.QueryParam("can_redirect") != "false"
	if h.RedirectFilter != nil {
		canRedirect = h.RedirectFilter(c, payment)
	}

	// Fail soft: gateway trouble is already recorded on the payment.
	if err := h.flow.UpdatePayment(c.Request().Context(), payment); err != nil {
		log.Printf("payment %d: update on return failed: %v", payment.ID, err)
	}

	if !canRedirect {
		return c.JSON(http.StatusOK, map[string]string{"status": string(payment.Status)})
	}

	return c.Redirect(http.StatusFound, h.returnRedirectURL(payment))
}

// MaybeRedirect sends the payer onward to the gateway's action URL, giving
// the gateway a pre-redirect hook and HTML-form gateways their form page.
func (h *ReturnHandler) MaybeRedirect(c echo.Context) error {
	payment, ok := h.keyedPayment(c, c.QueryParam("payment_redirect"))
	if !ok {
		return c.Redirect(http.StatusFound, h.homeURL())
	}

	noCache(c)
	recordCallback(h.db, payment, models.CallbackSourceRedirect, c.QueryParams())

	gw, _, err := h.resolver.Resolve(c.Request().Context(), payment.ConfigID)
	if err == nil {
		if hook, ok := gw.(gateway.RedirectHook); ok {
			if err := hook.PaymentRedirect(c.Request().Context(), payment); err != nil {
				log.Printf("payment %d: pre-redirect hook failed: %v", payment.ID, err)
			}
		}
		if form, ok := gw.(gateway.HTMLFormGateway); ok {
			return h.renderFormRedirect(c, form, payment)
		}
	}

	if payment.ActionURL != "" {
		return c.Redirect(http.StatusFound, payment.ActionURL)
	}
	return c.Redirect(http.StatusFound, h.homeURL())
}

func (h *ReturnHandler) keyedPayment(c echo.Context, idParam string) (*models.Payment, bool) {
	id, err := strconv.ParseUint(idParam, 10, 32)
	if err != nil || id == 0 {
		return nil, false
	}

	key := c.QueryParam("key")
	if key == "" {
		return nil, false
	}

	payment, err := h.store.LoadPayment(c.Request().Context(), uint(id))
	if err != nil {
		return nil, false
	}
	if payment.Key == "" || key != payment.Key {
		return nil, false
	}
	return payment, true
}

func (h *ReturnHandler) renderFormRedirect(c echo.Context, form gateway.HTMLFormGateway, payment *models.Payment) error {
	action, fields := form.FormFields(payment)
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return formRedirectTemplate.Execute(c.Response(), map[string]interface{}{
		"Action": action,
		"Fields": fields,
	})
}

// returnRedirectURL derives the browser destination from the payment status
func (h *ReturnHandler) returnRedirectURL(p *models.Payment) string {
	switch p.Status {
	case models.PaymentStatusSuccess:
		return fmt.Sprintf("%s/pay/success?payment=%d", h.appURL, p.ID)
	case models.PaymentStatusFailure, models.PaymentStatusCancelled, models.PaymentStatusExpired:
		return fmt.Sprintf("%s/pay/failure?payment=%d", h.appURL, p.ID)
	default:
		return fmt.Sprintf("%s/pay/pending?payment=%d", h.appURL, p.ID)
	}
}

func (h *ReturnHandler) homeURL() string {
	return h.appURL + "/"
}

func noCache(c echo.Context) {
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store, no-cache, must-revalidate, max-age=0")
	c.Response().Header().Set("Pragma", "no-cache")
}
