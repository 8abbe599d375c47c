// Package admin serves the service-to-service user endpoints. Routes here sit
// behind the internal token check, not a user session.
package admin

import (
	"net/http"
	"time"

	"chilljobs-api/internal/api/httpx"
	"chilljobs-api/internal/apperr"
	"chilljobs-api/internal/domain/users"
	"chilljobs-api/internal/infra/notify"
	"chilljobs-api/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AdminUser struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Name             string     `json:"name"`
	AuthProvider     string     `json:"auth_provider"`
	IsPro            bool       `json:"is_pro"`
	ProExpiresAt     *time.Time `json:"pro_expires_at,omitempty"`
	StripeCustomerID *string    `json:"stripe_customer_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

type AdminStats struct {
	TotalUsers int `json:"total_users"`
	ProUsers   int `json:"pro_users"`
}

type Handler struct {
	store     store.Store
	publisher notify.Publisher
	log       *zap.SugaredLogger
}

func NewHandler(st store.Store, pub notify.Publisher, log *zap.SugaredLogger) *Handler {
	return &Handler{store: st, publisher: pub, log: log}
}

func toAdminUser(u users.User) AdminUser {
	return AdminUser{
		ID:               u.ID,
		Email:            u.Email,
		Name:             u.Name,
		AuthProvider:     u.AuthProvider,
		IsPro:            u.IsPro,
		ProExpiresAt:     u.ProExpiresAt,
		StripeCustomerID: u.StripeCustomerID,
		CreatedAt:        u.CreatedAt,
	}
}

// GET /internal/users
func (h *Handler) ListAllUsers(c *gin.Context) {
	list, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		h.log.Errorw("list users failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load users"})
		return
	}

	out := make([]AdminUser, 0, len(list))
	stats := AdminStats{TotalUsers: len(list)}
	for _, u := range list {
		if u.IsPro {
			stats.ProUsers++
		}
		out = append(out, toAdminUser(u))
	}
	c.JSON(http.StatusOK, gin.H{"users": out, "stats": stats})
}

// POST /internal/users/upgrade
func (h *Handler) UpgradeUser(c *gin.Context) {
	var body struct {
		Email            string `json:"email" binding:"required"`
		StripeCustomerID string `json:"stripe_customer_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}

	ok, err := h.store.Upgrade(c.Request.Context(), body.Email, body.StripeCustomerID)
	if err != nil {
		if apperr.KindOf(err) == apperr.Internal {
			h.log.Errorw("internal upgrade failed", "email", body.Email, "error", err)
		}
		httpx.Error(c, err)
		return
	}
	if ok {
		h.log.Infow("user upgraded via internal endpoint", "email", body.Email)
		h.publish(c, notify.EntitlementEvent{
			Type:       notify.RoutingUpgraded,
			Email:      store.NormalizeEmail(body.Email),
			CustomerID: body.StripeCustomerID,
			IsPro:      true,
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": ok})
}

// POST /internal/users/downgrade accepts a customer id or an email.
func (h *Handler) DowngradeUser(c *gin.Context) {
	var body struct {
		StripeCustomerID string `json:"stripe_customer_id"`
		Email            string `json:"email"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	ref := body.StripeCustomerID
	if ref == "" {
		ref = body.Email
	}

	ok, err := h.store.Downgrade(c.Request.Context(), ref)
	if err != nil {
		if apperr.KindOf(err) == apperr.Internal {
			h.log.Errorw("internal downgrade failed", "ref", ref, "error", err)
		}
		httpx.Error(c, err)
		return
	}
	if ok {
		h.log.Infow("user downgraded via internal endpoint", "ref", ref)
		h.publish(c, notify.EntitlementEvent{
			Type:       notify.RoutingDowngraded,
			Email:      body.Email,
			CustomerID: body.StripeCustomerID,
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": ok})
}

func (h *Handler) publish(c *gin.Context, ev notify.EntitlementEvent) {
	ev.Source = "internal"
	ev.OccurredAt = time.Now().UTC()
	if err := h.publisher.Publish(c.Request.Context(), ev); err != nil {
		h.log.Warnw("entitlement event not published", "type", ev.Type, "error", err)
	}
}
