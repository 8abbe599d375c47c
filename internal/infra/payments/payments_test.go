package payments

import (
	"errors"
	"slices"
	"testing"
	"time"

	"chilljobs-api/internal/apperr"

	"github.com/stripe/stripe-go/v75"
)

func TestUpstreamKeepsStripeMessageAndCode(t *testing.T) {
	se := &stripe.Error{Msg: "No such price: 'price_x'", Code: stripe.ErrorCodeResourceMissing, Type: stripe.ErrorTypeInvalidRequest}
	err := upstream("fallback", se)

	if !apperr.Is(err, apperr.Upstream) {
		t.Fatalf("kind = %v, want Upstream", apperr.KindOf(err))
	}
	if got, want := ErrorText(err), "No such price: 'price_x' (resource_missing)"; got != want {
		t.Fatalf("ErrorText = %q, want %q", got, want)
	}

	msg, typ, code, ok := ErrorDetails(err)
	if !ok || msg == "" || typ != "invalid_request_error" || code != "resource_missing" {
		t.Fatalf("ErrorDetails = (%q, %q, %q, %v)", msg, typ, code, ok)
	}
}

func TestUpstreamNonStripeError(t *testing.T) {
	err := upstream("Could not retrieve price", errors.New("dial tcp: refused"))
	if got := ErrorText(err); got != "Could not retrieve price" {
		t.Fatalf("ErrorText = %q", got)
	}
	if _, _, _, ok := ErrorDetails(err); ok {
		t.Fatalf("ErrorDetails ok = true for non-stripe error")
	}
}

func TestParseCheckoutCompletedEmailOrder(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{"customer_email first", `{"id":"cs_1","customer_email":"a@x.com","customer_details":{"email":"b@x.com"}}`, []string{"a@x.com", "b@x.com"}},
		{"metadata before details", `{"id":"cs_1","customer_details":{"email":"b@x.com"},"metadata":{"email":"c@x.com"}}`, []string{"c@x.com", "b@x.com"}},
		{"details only", `{"id":"cs_1","customer_details":{"email":" B@x.com "}}`, []string{"b@x.com"}},
		{"duplicates collapse", `{"id":"cs_1","customer_email":"a@x.com","metadata":{"email":"A@x.com"}}`, []string{"a@x.com"}},
		{"none", `{"id":"cs_1"}`, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseCheckoutCompleted([]byte(tc.raw))
			if err != nil {
				t.Fatalf("parse error = %v", err)
			}
			if !slices.Equal(got.Emails, tc.want) {
				t.Fatalf("Emails = %q, want %q", got.Emails, tc.want)
			}
		})
	}
}

func TestParseCheckoutCompletedCustomer(t *testing.T) {
	got, err := ParseCheckoutCompleted([]byte(`{"id":"cs_1","customer":"cus_1","client_reference_id":"u1"}`))
	if err != nil {
		t.Fatalf("parse error = %v", err)
	}
	if got.CustomerID != "cus_1" || got.UserID != "u1" {
		t.Fatalf("parsed = %+v", got)
	}
}

func TestParseSubscription(t *testing.T) {
	got, err := ParseSubscription([]byte(`{"id":"sub_1","customer":"cus_1","status":"unpaid","current_period_end":1767225600}`))
	if err != nil {
		t.Fatalf("parse error = %v", err)
	}
	if got.CustomerID != "cus_1" || got.Status != "past_due" {
		t.Fatalf("parsed = %+v", got)
	}
	if !got.CurrentPeriodEnd.Equal(time.Unix(1767225600, 0)) {
		t.Fatalf("CurrentPeriodEnd = %v", got.CurrentPeriodEnd)
	}
}

func TestEntitles(t *testing.T) {
	for status, want := range map[string]bool{
		"active":   true,
		"trialing": true,
		"past_due": false,
		"canceled": false,
		"none":     false,
	} {
		if got := Entitles(status); got != want {
			t.Errorf("Entitles(%q) = %v, want %v", status, got, want)
		}
	}
}

func TestVerifyEvent(t *testing.T) {
	if _, err := VerifyEvent([]byte(`{}`), "t=1,v1=00", ""); !apperr.Is(err, apperr.Configuration) {
		t.Fatalf("missing secret error = %v, want Configuration", err)
	}
	if _, err := VerifyEvent([]byte(`{}`), "t=1,v1=00", "whsec_x"); !apperr.Is(err, apperr.SignatureVerification) {
		t.Fatalf("bad signature error = %v, want SignatureVerification", err)
	}
}

func TestErrorTextRawStripeError(t *testing.T) {
	err := &stripe.Error{Msg: "Your card was declined.", Code: stripe.ErrorCodeCardDeclined}
	if got, want := ErrorText(err), "Your card was declined. (card_declined)"; got != want {
		t.Fatalf("ErrorText = %q, want %q", got, want)
	}
	if got := ErrorText(errors.New("boom")); got != "Payment provider request failed" {
		t.Fatalf("ErrorText(plain) = %q", got)
	}
}
