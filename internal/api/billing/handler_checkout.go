package billing

import (
	"errors"
	"io"
	"net/http"

	"chilljobs-api/internal/api/httpx"
	"chilljobs-api/internal/app/http/middleware"
	"chilljobs-api/internal/apperr"
	"chilljobs-api/internal/infra/payments"
	"chilljobs-api/internal/store"

	"github.com/gin-gonic/gin"
)

const notConfigured = "Stripe is not configured."

// POST /checkout
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}
	if !h.settings.configured() {
		h.log.Errorw("checkout attempted without Stripe configuration",
			"key_set", h.settings.SecretKey != "", "price_set", h.settings.PriceID != "")
		c.JSON(http.StatusInternalServerError, gin.H{"error": notConfigured})
		return
	}

	// the body is optional; an email in it must match the session
	var body struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if body.Email != "" && store.NormalizeEmail(body.Email) != store.NormalizeEmail(claims.Email) {
		h.log.Warnw("checkout email mismatch", "user_id", claims.UserID)
		c.JSON(http.StatusForbidden, gin.H{"error": "Email does not match the signed-in account"})
		return
	}

	user, err := h.store.GetUserByID(c.Request.Context(), claims.UserID)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}
		h.log.Errorw("checkout user lookup failed", "user_id", claims.UserID, "error", err)
		httpx.Error(c, err)
		return
	}

	url, err := h.processor.CreateCheckoutSession(c.Request.Context(), payments.CheckoutRequest{
		PriceID:    h.settings.PriceID,
		Email:      user.Email,
		UserID:     user.ID,
		CustomerID: user.CustomerID(),
		SuccessURL: h.settings.AppURL + "/pricing/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  h.settings.AppURL + "/pricing",
	})
	if err != nil {
		h.log.Errorw("checkout session creation failed", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": payments.ErrorText(err)})
		return
	}
	if url == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Checkout session has no URL"})
		return
	}

	h.log.Infow("checkout session created", "user_id", user.ID)
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// POST /billing-portal
func (h *Handler) CreateBillingPortal(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}
	if h.settings.SecretKey == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": notConfigured})
		return
	}

	user, err := h.store.GetUserByID(c.Request.Context(), claims.UserID)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}
		httpx.Error(c, err)
		return
	}
	if user.CustomerID() == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "No Stripe customer yet (subscribe first)"})
		return
	}

	url, err := h.processor.CreatePortalSession(c.Request.Context(), user.CustomerID(), h.settings.AppURL+"/pricing")
	if err != nil {
		h.log.Errorw("billing portal creation failed", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": payments.ErrorText(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
