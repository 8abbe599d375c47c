package stripewebhooks

import (
	"context"

	"chilljobs-api/internal/apperr"
	"chilljobs-api/internal/infra/notify"
	"chilljobs-api/internal/infra/payments"

	"github.com/stripe/stripe-go/v75"
	"go.uber.org/zap"
)

// A completed checkout grants Pro to the account that started it. The
// client_reference_id set at checkout wins; the session's emails are tried
// only when it is missing or unknown.
func (h *Handler) handleCheckoutSessionCompleted(ctx context.Context, event stripe.Event, log *zap.SugaredLogger) error {
	session, err := payments.ParseCheckoutCompleted(event.Data.Raw)
	if err != nil {
		return err
	}
	log = log.With("session_id", session.SessionID, "customer", session.CustomerID)

	if len(session.Emails) == 0 && session.UserID == "" {
		log.Warnw("checkout completed without an email, nothing to upgrade")
		return nil
	}

	var candidates []string
	if session.UserID != "" {
		u, err := h.store.GetUserByID(ctx, session.UserID)
		switch {
		case err == nil:
			candidates = append(candidates, u.Email)
		case !apperr.Is(err, apperr.NotFound):
			return err
		}
	}
	candidates = append(candidates, session.Emails...)

	email, affected, err := h.upgradeFirst(ctx, candidates, session.CustomerID, log)
	if err != nil {
		return err
	}
	if !affected {
		log.Warnw("checkout completed for unknown user", "emails", session.Emails, "user_id", session.UserID)
		return nil
	}

	log.Infow("user upgraded to pro", "email", email)
	h.publish(ctx, notify.EntitlementEvent{
		Type:          notify.RoutingUpgraded,
		Email:         email,
		CustomerID:    session.CustomerID,
		IsPro:         true,
		SourceEventID: event.ID,
	}, log)
	return nil
}

// upgradeFirst upgrades the first candidate that matches a user. A customer
// reference already owned by another account is skipped, not retried.
func (h *Handler) upgradeFirst(ctx context.Context, candidates []string, customerID string, log *zap.SugaredLogger) (string, bool, error) {
	for _, email := range candidates {
		affected, err := h.store.Upgrade(ctx, email, customerID)
		if apperr.Is(err, apperr.Conflict) {
			log.Warnw("customer belongs to another account, skipping", "email", email)
			continue
		}
		if err != nil {
			return "", false, err
		}
		if affected {
			return email, true, nil
		}
	}
	return "", false, nil
}
