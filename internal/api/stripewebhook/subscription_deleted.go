package stripewebhooks

import (
	"context"

	"chilljobs-api/internal/infra/notify"
	"chilljobs-api/internal/infra/payments"

	"github.com/stripe/stripe-go/v75"
	"go.uber.org/zap"
)

func (h *Handler) handleSubscriptionDeleted(ctx context.Context, event stripe.Event, log *zap.SugaredLogger) error {
	sub, err := payments.ParseSubscription(event.Data.Raw)
	if err != nil {
		return err
	}
	return h.downgrade(ctx, event.ID, sub, log)
}

func (h *Handler) downgrade(ctx context.Context, eventID string, sub payments.SubscriptionChange, log *zap.SugaredLogger) error {
	if sub.CustomerID == "" {
		log.Warnw("subscription event without customer", "subscription", sub.ID)
		return nil
	}

	affected, err := h.store.Downgrade(ctx, sub.CustomerID)
	if err != nil {
		return err
	}
	if !affected {
		log.Infow("no user for customer, nothing to downgrade", "customer", sub.CustomerID)
		return nil
	}

	log.Infow("user downgraded", "customer", sub.CustomerID, "subscription", sub.ID)
	h.publish(ctx, notify.EntitlementEvent{
		Type:          notify.RoutingDowngraded,
		CustomerID:    sub.CustomerID,
		IsPro:         false,
		SourceEventID: eventID,
	}, log)
	return nil
}
