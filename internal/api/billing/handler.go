package billing

import (
	"chilljobs-api/internal/infra/payments"
	"chilljobs-api/internal/session"
	"chilljobs-api/internal/store"

	"go.uber.org/zap"
)

// Settings are the Stripe-related values read from config. They are checked
// per request so a missing key answers 500 instead of stopping the server.
type Settings struct {
	SecretKey     string
	PriceID       string
	WebhookSecret string
	AppURL        string
}

func (s Settings) configured() bool {
	return s.SecretKey != "" && s.PriceID != ""
}

type Handler struct {
	store     store.Store
	processor payments.Processor
	sessions  *session.Issuer
	settings  Settings
	log       *zap.SugaredLogger
}

func NewHandler(st store.Store, p payments.Processor, sessions *session.Issuer, settings Settings, log *zap.SugaredLogger) *Handler {
	return &Handler{store: st, processor: p, sessions: sessions, settings: settings, log: log}
}
