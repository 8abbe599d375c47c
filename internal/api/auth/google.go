package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/url"
	"sync"

	"chilljobs-api/internal/api/httpx"
	"chilljobs-api/internal/apperr"
	"chilljobs-api/internal/domain/users"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const stateCookie = "oauth_state"

// GoogleIdentity is what a verified Google ID token tells us.
type GoogleIdentity struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
}

type IdentityProvider interface {
	AuthCodeURL(state string) string
	Identify(ctx context.Context, code string) (*GoogleIdentity, error)
}

type GoogleProvider struct {
	oauth *oauth2.Config

	mu       sync.Mutex
	verifier *oidc.IDTokenVerifier
}

func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{oauth: &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		Endpoint:     google.Endpoint,
	}}
}

func (g *GoogleProvider) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// idVerifier discovers Google's keys on first use and keeps the verifier.
func (g *GoogleProvider) idVerifier(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.verifier != nil {
		return g.verifier, nil
	}
	provider, err := oidc.NewProvider(ctx, "https://accounts.google.com")
	if err != nil {
		return nil, apperr.E(apperr.Upstream, "failed to init google oidc provider", err)
	}
	g.verifier = provider.Verifier(&oidc.Config{ClientID: g.oauth.ClientID})
	return g.verifier, nil
}

func (g *GoogleProvider) Identify(ctx context.Context, code string) (*GoogleIdentity, error) {
	tok, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, apperr.E(apperr.Authentication, "failed to exchange code", err)
	}
	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, apperr.New(apperr.Authentication, "missing id_token")
	}

	verifier, err := g.idVerifier(ctx)
	if err != nil {
		return nil, err
	}
	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, apperr.E(apperr.Authentication, "invalid id_token", err)
	}

	var id GoogleIdentity
	if err := idToken.Claims(&id); err != nil {
		return nil, apperr.E(apperr.Authentication, "failed to decode token claims", err)
	}
	if id.Email == "" || id.Sub == "" {
		return nil, apperr.New(apperr.Authentication, "token missing required claims")
	}
	return &id, nil
}

func randomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GET /auth/google
func (h *Handler) GoogleStart(c *gin.Context) {
	if h.google == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Google sign-in is not configured"})
		return
	}
	state, err := randomState()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate state"})
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, 300, "/", "", h.secureCookies, true)
	c.Redirect(http.StatusFound, h.google.AuthCodeURL(state))
}

// GET /auth/google/callback
func (h *Handler) GoogleCallback(c *gin.Context) {
	if h.google == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Google sign-in is not configured"})
		return
	}
	state := c.Query("state")
	code := c.Query("code")
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code/state"})
		return
	}
	cookieState, err := c.Cookie(stateCookie)
	if err != nil || cookieState != state {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth state"})
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", h.secureCookies, true)

	id, err := h.google.Identify(c.Request.Context(), code)
	if err != nil {
		h.log.Warnw("google sign-in rejected", "error", err)
		httpx.Error(c, err)
		return
	}

	user, err := h.findOrCreateGoogleUser(c.Request.Context(), id)
	if err != nil {
		if apperr.KindOf(err) != apperr.Internal {
			h.log.Warnw("google sign-in refused", "email", id.Email, "error", err)
			httpx.Error(c, err)
			return
		}
		h.log.Errorw("google user upsert failed", "email", id.Email, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	token, claims, err := h.sessions.Issue(*user)
	if err != nil {
		httpx.Error(c, err)
		return
	}

	if h.frontendRedirect == "" {
		c.JSON(http.StatusOK, tokenResponse(token, claims))
		return
	}
	c.Redirect(http.StatusFound, h.frontendRedirect+"?token="+url.QueryEscape(token))
}

func (h *Handler) findOrCreateGoogleUser(ctx context.Context, id *GoogleIdentity) (*users.User, error) {
	if u, err := h.store.GetUserByGoogleSub(ctx, id.Sub); err == nil {
		return u, nil
	} else if !apperr.Is(err, apperr.NotFound) {
		return nil, err
	}

	u, err := h.store.GetUserByEmail(ctx, id.Email)
	switch {
	case err == nil:
		// only link an existing password account when Google vouches for the address
		if !id.EmailVerified {
			return nil, apperr.New(apperr.Forbidden, "Google email is not verified for an existing account")
		}
		if err := h.store.LinkGoogle(ctx, u.ID, id.Sub); err != nil {
			return nil, err
		}
		sub := id.Sub
		u.GoogleSub = &sub
		return u, nil
	case !apperr.Is(err, apperr.NotFound):
		return nil, err
	}

	sub := id.Sub
	created := users.User{
		Name:         firstNonEmpty(id.GivenName, id.Name),
		Email:        id.Email,
		AuthProvider: users.ProviderGoogle,
		GoogleSub:    &sub,
	}
	if err := h.store.CreateUser(ctx, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func firstNonEmpty(s ...string) string {
	for _, v := range s {
		if v != "" {
			return v
		}
	}
	return ""
}
