package stripewebhooks

import (
	"context"
	"io"
	"net/http"
	"time"

	"chilljobs-api/internal/apperr"
	"chilljobs-api/internal/infra/notify"
	"chilljobs-api/internal/infra/payments"
	"chilljobs-api/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
	"go.uber.org/zap"
)

const maxBodyBytes = 65536

type Handler struct {
	store     store.Store
	publisher notify.Publisher
	secret    string
	log       *zap.SugaredLogger
}

func NewHandler(st store.Store, pub notify.Publisher, webhookSecret string, log *zap.SugaredLogger) *Handler {
	return &Handler{store: st, publisher: pub, secret: webhookSecret, log: log}
}

// POST /webhook
func (h *Handler) StripeWebhook(c *gin.Context) {
	if h.secret == "" {
		h.log.Errorw("webhook received without STRIPE_WEBHOOK_SECRET")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "STRIPE_WEBHOOK_SECRET not configured"})
		return
	}

	payload, err := readStripeBody(c, maxBodyBytes)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	event, err := payments.VerifyEvent(payload, c.GetHeader("Stripe-Signature"), h.secret)
	if err != nil {
		h.log.Warnw("stripe signature verification failed", "error", err)
		c.JSON(apperr.KindOf(err).Status(), gin.H{"error": apperr.Message(err)})
		return
	}

	ctx := c.Request.Context()
	log := h.log.With("event_id", event.ID, "event_type", event.Type)

	seen, err := h.store.EventProcessed(ctx, event.ID)
	if err != nil {
		log.Errorw("event lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not check event"})
		return
	}
	if seen {
		log.Infow("duplicate event acknowledged")
		c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
		return
	}

	if err := h.dispatch(ctx, event, log); err != nil {
		if apperr.Is(err, apperr.Validation) {
			log.Warnw("malformed event object", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": apperr.Message(err)})
			return
		}
		// 500 makes Stripe retry
		log.Errorw("webhook handling failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook handler failed"})
		return
	}

	if _, err := h.store.MarkEventProcessed(ctx, event.ID, string(event.Type)); err != nil {
		log.Errorw("could not record processed event", "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *Handler) dispatch(ctx context.Context, event stripe.Event, log *zap.SugaredLogger) error {
	switch string(event.Type) {
	case payments.EventCheckoutCompleted:
		return h.handleCheckoutSessionCompleted(ctx, event, log)
	case payments.EventSubscriptionUpdated:
		return h.handleSubscriptionUpdated(ctx, event, log)
	case payments.EventSubscriptionDeleted:
		return h.handleSubscriptionDeleted(ctx, event, log)
	default:
		log.Debugw("event ignored")
		return nil
	}
}

// publish never fails the webhook.
func (h *Handler) publish(ctx context.Context, ev notify.EntitlementEvent, log *zap.SugaredLogger) {
	ev.Source = "stripe"
	ev.OccurredAt = time.Now().UTC()
	if err := h.publisher.Publish(ctx, ev); err != nil {
		log.Warnw("entitlement event not published", "type", ev.Type, "error", err)
	}
}

func readStripeBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
