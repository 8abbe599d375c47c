package billing

import (
	"net/http"
	"strings"

	"chilljobs-api/internal/infra/payments"

	"github.com/gin-gonic/gin"
)

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// GET /checkout-debug reports which checkout settings are present and
// whether Stripe accepts the price. Only routed outside production.
func (h *Handler) CheckoutDebug(c *gin.Context) {
	report := gin.H{
		"stripe_key_set":     h.settings.SecretKey != "",
		"stripe_key_prefix":  prefix(h.settings.SecretKey, 7),
		"price_id_set":       h.settings.PriceID != "",
		"price_id":           h.settings.PriceID,
		"auth_secret_set":    h.sessions.Configured(),
		"webhook_secret_set": h.settings.WebhookSecret != "",
		"token_found":        false,
	}

	if raw := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "); raw != "" && raw != c.GetHeader("Authorization") {
		if claims, err := h.sessions.Parse(raw); err == nil {
			report["token_found"] = true
			report["token_email"] = claims.Email
			report["token_user_id"] = claims.UserID
		} else {
			report["token_error"] = err.Error()
		}
	}

	if h.settings.configured() {
		price, err := h.processor.RetrievePrice(c.Request.Context(), h.settings.PriceID)
		if err != nil {
			report["stripe_price_valid"] = false
			if msg, typ, code, ok := payments.ErrorDetails(err); ok {
				report["stripe_error"] = msg
				report["stripe_error_type"] = typ
				report["stripe_error_code"] = code
			} else {
				report["stripe_error"] = err.Error()
			}
		} else {
			report["stripe_price_valid"] = true
			report["stripe_price_active"] = price.Active
			report["stripe_price_amount"] = price.UnitAmount
			report["stripe_price_currency"] = price.Currency
		}
	}

	c.JSON(http.StatusOK, report)
}
