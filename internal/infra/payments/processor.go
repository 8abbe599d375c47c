// Package payments wraps the Stripe calls the service makes so handlers can
// run against a fake in tests.
package payments

import (
	"context"
	"errors"
	"fmt"

	"chilljobs-api/internal/apperr"

	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"
)

type CheckoutRequest struct {
	PriceID    string
	Email      string
	UserID     string
	CustomerID string
	SuccessURL string
	CancelURL  string
}

type Price struct {
	ID         string
	Active     bool
	UnitAmount int64
	Currency   string
}

// Processor is the payment provider surface used by the HTTP layer.
type Processor interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	RetrievePrice(ctx context.Context, priceID string) (*Price, error)
}

type StripeProcessor struct {
	api *client.API
}

func NewStripe(secretKey string) *StripeProcessor {
	return &StripeProcessor{api: client.New(secretKey, nil)}
}

func (p *StripeProcessor) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(req.PriceID), Quantity: stripe.Int64(1)},
		},
		ClientReferenceID: stripe.String(req.UserID),
		Metadata: map[string]string{
			"email":   req.Email,
			"user_id": req.UserID,
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"user_id": req.UserID},
		},
	}
	// Stripe rejects customer and customer_email together.
	if req.CustomerID != "" {
		params.Customer = stripe.String(req.CustomerID)
	} else {
		params.CustomerEmail = stripe.String(req.Email)
	}
	params.Context = ctx

	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return "", upstream("Failed to create checkout session", err)
	}
	return s.URL, nil
}

func (p *StripeProcessor) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	s, err := p.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", upstream("Could not create billing portal session", err)
	}
	return s.URL, nil
}

func (p *StripeProcessor) RetrievePrice(ctx context.Context, priceID string) (*Price, error) {
	params := &stripe.PriceParams{}
	params.Context = ctx

	pr, err := p.api.Prices.Get(priceID, params)
	if err != nil {
		return nil, upstream("Could not retrieve price", err)
	}
	return &Price{
		ID:         pr.ID,
		Active:     pr.Active,
		UnitAmount: pr.UnitAmount,
		Currency:   string(pr.Currency),
	}, nil
}

// upstream keeps the provider message and code so the client sees
// "<message> (<code>)".
func upstream(fallback string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		msg := se.Msg
		if msg == "" {
			msg = fallback
		}
		e := apperr.E(apperr.Upstream, msg, err)
		e.Code = string(se.Code)
		if e.Code == "" {
			e.Code = string(se.Type)
		}
		return e
	}
	return apperr.E(apperr.Upstream, fallback, err)
}

// ErrorText renders a processor failure for a response body as
// "<message> (<code>)".
func ErrorText(err error) string {
	var msg, code string
	var ae *apperr.Error
	if errors.As(err, &ae) {
		msg, code = ae.Message, ae.Code
	} else if m, _, c, ok := ErrorDetails(err); ok {
		msg, code = m, c
	}
	if msg == "" {
		msg = "Payment provider request failed"
	}
	if code != "" {
		return fmt.Sprintf("%s (%s)", msg, code)
	}
	return msg
}

// ErrorDetails returns the provider's message, type and code for the debug
// report. ok is false when err did not come from Stripe.
func ErrorDetails(err error) (msg, typ, code string, ok bool) {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return "", "", "", false
	}
	return se.Msg, string(se.Type), string(se.Code), true
}
