package users

import (
	"net/http"
	"time"

	"chilljobs-api/internal/api/httpx"
	"chilljobs-api/internal/app/http/middleware"
	"chilljobs-api/internal/apperr"
	"chilljobs-api/internal/domain/access"
	"chilljobs-api/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	store         store.Store
	enforceExpiry bool
	now           func() time.Time
	log           *zap.SugaredLogger
}

func NewHandler(st store.Store, enforceExpiry bool, log *zap.SugaredLogger) *Handler {
	return &Handler{store: st, enforceExpiry: enforceExpiry, now: time.Now, log: log}
}

// GET /me
func (h *Handler) GetCurrentUser(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, err := h.store.GetUserByID(c.Request.Context(), claims.UserID)
	if err != nil {
		if !apperr.Is(err, apperr.NotFound) {
			h.log.Errorw("load current user failed", "user_id", claims.UserID, "error", err)
		}
		httpx.Error(c, err)
		return
	}

	now := h.now()
	policy := access.ComputePolicy(now, *user, h.enforceExpiry)

	c.JSON(http.StatusOK, MeResponse{
		User:        BuildUserDTO(*user),
		Entitlement: BuildEntitlementDTO(now, *user),
		Access:      BuildAccessDTO(policy),
	})
}
