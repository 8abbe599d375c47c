// Package paymentstest provides a fake Processor and Stripe webhook signing
// for handler tests.
package paymentstest

import (
	"context"
	"fmt"
	"sync"

	"chilljobs-api/internal/infra/payments"

	"github.com/stripe/stripe-go/v75/webhook"
)

type Processor struct {
	mu sync.Mutex

	CheckoutURL string
	PortalURL   string
	Price       *payments.Price
	Err         error

	Checkouts []payments.CheckoutRequest
	Portals   []string
}

func (p *Processor) CreateCheckoutSession(_ context.Context, req payments.CheckoutRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return "", p.Err
	}
	p.Checkouts = append(p.Checkouts, req)
	return p.CheckoutURL, nil
}

func (p *Processor) CreatePortalSession(_ context.Context, customerID, _ string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return "", p.Err
	}
	p.Portals = append(p.Portals, customerID)
	return p.PortalURL, nil
}

func (p *Processor) RetrievePrice(_ context.Context, priceID string) (*payments.Price, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Price != nil {
		return p.Price, nil
	}
	return &payments.Price{ID: priceID, Active: true, UnitAmount: 900, Currency: "usd"}, nil
}

// Sign builds a Stripe-Signature header value for payload.
func Sign(payload []byte, secret string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload,
		Secret:  secret,
	}).Header
}

// Event renders a minimal webhook envelope around object.
func Event(id, typ, object string) []byte {
	return []byte(fmt.Sprintf(`{"id":%q,"object":"event","type":%q,"data":{"object":%s}}`, id, typ, object))
}
