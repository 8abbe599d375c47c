package auth

import (
	"net/http"
	"regexp"
	"strings"

	"chilljobs-api/internal/api/httpx"
	"chilljobs-api/internal/app/http/middleware"
	"chilljobs-api/internal/apperr"
	"chilljobs-api/internal/domain/users"
	"chilljobs-api/internal/session"
	"chilljobs-api/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Handler struct {
	store    store.Store
	sessions *session.Issuer
	log      *zap.SugaredLogger

	google           IdentityProvider
	frontendRedirect string
	secureCookies    bool
}

type Options struct {
	Google           IdentityProvider
	FrontendRedirect string
	SecureCookies    bool
}

func NewHandler(st store.Store, sessions *session.Issuer, log *zap.SugaredLogger, opts Options) *Handler {
	return &Handler{
		store:            st,
		sessions:         sessions,
		log:              log,
		google:           opts.Google,
		frontendRedirect: opts.FrontendRedirect,
		secureCookies:    opts.SecureCookies,
	}
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func isPasswordStrong(password string) bool {
	if len(password) < 8 {
		return false
	}
	hasLetter := false
	hasDigit := false
	for _, c := range password {
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
			hasLetter = true
		case '0' <= c && c <= '9':
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

func isEmailValid(email string) bool {
	return emailPattern.MatchString(email)
}

func tokenResponse(token string, claims session.Claims) gin.H {
	return gin.H{
		"token":      token,
		"user_id":    claims.UserID,
		"email":      claims.Email,
		"is_pro":     claims.IsPro,
		"expires_at": claims.ExpiresAt.Time,
	}
}

// POST /auth/register
func (h *Handler) Register(c *gin.Context) {
	var input struct {
		Name     string `json:"name"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	input.Email = store.NormalizeEmail(input.Email)
	if !isEmailValid(input.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email format"})
		return
	}
	if !isPasswordStrong(input.Password) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters long and contain both letters and numbers"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}
	hash := string(hashed)

	user := users.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        input.Email,
		PasswordHash: &hash,
		AuthProvider: users.ProviderLocal,
	}
	if err := h.store.CreateUser(c.Request.Context(), &user); err != nil {
		if !apperr.Is(err, apperr.Conflict) {
			h.log.Errorw("register failed", "email", input.Email, "error", err)
		}
		httpx.Error(c, err)
		return
	}

	token, claims, err := h.sessions.Issue(user)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	h.log.Infow("user registered", "user_id", user.ID)
	c.JSON(http.StatusCreated, tokenResponse(token, claims))
}

// POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	user, err := h.store.GetUserByEmail(c.Request.Context(), input.Email)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		h.log.Errorw("login lookup failed", "error", err)
		httpx.Error(c, err)
		return
	}

	if user.PasswordHash == nil || *user.PasswordHash == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "This account uses Google sign-in"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, claims, err := h.sessions.Issue(*user)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse(token, claims))
}

// POST /auth/session reissues the caller's token from the stored
// entitlement. Clients call it after returning from checkout.
func (h *Handler) RefreshSession(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	token, fresh, err := h.sessions.Refresh(c.Request.Context(), h.store, claims.UserID)
	if err != nil {
		if apperr.KindOf(err) == apperr.Internal {
			h.log.Errorw("session refresh failed", "user_id", claims.UserID, "error", err)
		}
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse(token, fresh))
}
