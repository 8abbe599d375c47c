package stripewebhooks

import (
	"context"

	"chilljobs-api/internal/infra/notify"
	"chilljobs-api/internal/infra/payments"

	"github.com/stripe/stripe-go/v75"
	"go.uber.org/zap"
)

// Renewals push the expiry to the end of the new period. A subscription that
// turns canceled loses Pro; other statuses (past_due, incomplete) leave the
// entitlement as it is until Stripe settles.
func (h *Handler) handleSubscriptionUpdated(ctx context.Context, event stripe.Event, log *zap.SugaredLogger) error {
	sub, err := payments.ParseSubscription(event.Data.Raw)
	if err != nil {
		return err
	}

	switch {
	case payments.Entitles(sub.Status):
		if sub.CustomerID == "" || sub.CurrentPeriodEnd.IsZero() {
			log.Warnw("subscription update without customer or period end", "subscription", sub.ID)
			return nil
		}
		affected, err := h.store.ExtendByCustomer(ctx, sub.CustomerID, sub.CurrentPeriodEnd)
		if err != nil {
			return err
		}
		if !affected {
			log.Infow("no user for customer, nothing to extend", "customer", sub.CustomerID)
			return nil
		}
		until := sub.CurrentPeriodEnd
		log.Infow("pro extended", "customer", sub.CustomerID, "until", until)
		h.publish(ctx, notify.EntitlementEvent{
			Type:          notify.RoutingExtended,
			CustomerID:    sub.CustomerID,
			IsPro:         true,
			ProExpiresAt:  &until,
			SourceEventID: event.ID,
		}, log)
		return nil

	case sub.Status == "canceled":
		return h.downgrade(ctx, event.ID, sub, log)

	default:
		log.Infow("subscription status ignored", "status", sub.Status, "subscription", sub.ID)
		return nil
	}
}
