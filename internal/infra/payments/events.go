package payments

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"chilljobs-api/internal/apperr"

	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/webhook"
)

const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// VerifyEvent checks the Stripe-Signature header against secret and decodes
// the event envelope.
func VerifyEvent(payload []byte, header, secret string) (stripe.Event, error) {
	if secret == "" {
		return stripe.Event{}, apperr.New(apperr.Configuration, "STRIPE_WEBHOOK_SECRET not configured")
	}
	ev, err := webhook.ConstructEventWithOptions(payload, header, secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return stripe.Event{}, apperr.E(apperr.SignatureVerification, "Signature verification failed", err)
	}
	return ev, nil
}

// CheckoutCompleted is the part of a completed checkout session that drives
// an upgrade. Emails lists the candidate addresses in the order they should
// be tried: customer_email, metadata.email, then customer_details.email,
// which the payer can edit on the Stripe page.
type CheckoutCompleted struct {
	SessionID  string
	Emails     []string
	CustomerID string
	UserID     string
}

func ParseCheckoutCompleted(raw json.RawMessage) (CheckoutCompleted, error) {
	var s stripe.CheckoutSession
	if err := json.Unmarshal(raw, &s); err != nil {
		return CheckoutCompleted{}, apperr.E(apperr.Validation, "Failed to parse session", err)
	}

	out := CheckoutCompleted{SessionID: s.ID, UserID: s.ClientReferenceID}
	candidates := []string{s.CustomerEmail}
	if s.Metadata != nil {
		candidates = append(candidates, s.Metadata["email"])
		if out.UserID == "" {
			out.UserID = s.Metadata["user_id"]
		}
	}
	if s.CustomerDetails != nil {
		candidates = append(candidates, s.CustomerDetails.Email)
	}
	for _, email := range candidates {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" && !slices.Contains(out.Emails, email) {
			out.Emails = append(out.Emails, email)
		}
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	return out, nil
}

type SubscriptionChange struct {
	ID               string
	CustomerID       string
	Status           string
	CurrentPeriodEnd time.Time
}

func ParseSubscription(raw json.RawMessage) (SubscriptionChange, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return SubscriptionChange{}, apperr.E(apperr.Validation, "Failed to parse subscription", err)
	}
	out := SubscriptionChange{ID: sub.ID, Status: NormalizeStatus(string(sub.Status))}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.CurrentPeriodEnd > 0 {
		out.CurrentPeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	}
	return out, nil
}

// NormalizeStatus folds Stripe's subscription statuses into the handful the
// entitlement logic distinguishes.
func NormalizeStatus(s string) string {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return "none"
	case "past_due", "unpaid":
		return "past_due"
	case "canceled", "incomplete_expired":
		return "canceled"
	default:
		return s
	}
}

// Entitles reports whether a normalized status keeps Pro access.
func Entitles(status string) bool {
	return status == "active" || status == "trialing"
}
