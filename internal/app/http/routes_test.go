package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chilljobs-api/internal/api/admin"
	authapi "chilljobs-api/internal/api/auth"
	"chilljobs-api/internal/api/billing"
	"chilljobs-api/internal/api/jobs"
	stripewebhooks "chilljobs-api/internal/api/stripewebhook"
	"chilljobs-api/internal/api/users"
	"chilljobs-api/internal/infra/jobsapi"
	"chilljobs-api/internal/infra/notify"
	"chilljobs-api/internal/infra/payments/paymentstest"
	"chilljobs-api/internal/infra/ratelimit"
	"chilljobs-api/internal/session"
	"chilljobs-api/internal/store/storetest"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const webhookSecret = "whsec_routes"

func newRouter(t *testing.T, debug bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	listing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/api/jobs":
			_, _ = w.Write([]byte(`{"count":3,"offset":0,"jobs":[{"id":"a"},{"id":"b"},{"id":"c"}]}`))
		case strings.HasPrefix(r.URL.Path, "/api/jobs/"):
			_, _ = w.Write([]byte(`{"id":"a"}`))
		default:
			_, _ = w.Write([]byte(`{"total_jobs":3}`))
		}
	}))
	t.Cleanup(listing.Close)

	log := zap.NewNop().Sugar()
	st := storetest.New(t)
	iss := session.NewIssuer("routes-secret", time.Hour, false)
	rec := &notify.Recorder{}
	proc := &paymentstest.Processor{CheckoutURL: "https://checkout.stripe.test/c/pay/cs_1"}

	d := Deps{
		Store:         st,
		Sessions:      iss,
		Limiter:       ratelimit.New(nil, ""),
		Log:           log,
		InternalToken: "internal",
		Debug:         debug,
		CheckoutLimit: 5,

		Auth: authapi.NewHandler(st, iss, log, authapi.Options{}),
		Billing: billing.NewHandler(st, proc, iss, billing.Settings{
			SecretKey: "sk_test_x", PriceID: "price_x", WebhookSecret: webhookSecret, AppURL: "http://localhost:3000",
		}, log),
		Webhook: stripewebhooks.NewHandler(st, rec, webhookSecret, log),
		Users:   users.NewHandler(st, false, log),
		Jobs:    jobs.NewHandler(jobsapi.New(listing.URL, time.Second), log),
		Admin:   admin.NewHandler(st, rec, log),
	}

	r := gin.New()
	RegisterRoutes(r, d)
	return r
}

func request(r *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func bearer(tok string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + tok}
}

func tokenOf(t *testing.T, w *httptest.ResponseRecorder) (string, bool) {
	t.Helper()
	var body struct {
		Token string `json:"token"`
		IsPro bool   `json:"is_pro"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.Token == "" {
		t.Fatalf("no token in %d %s", w.Code, w.Body.String())
	}
	return body.Token, body.IsPro
}

func lockedCount(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	var body struct {
		LockedCount int `json:"locked_count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode jobs: %v", err)
	}
	return body.LockedCount
}

func TestFreeToProLifecycle(t *testing.T) {
	r := newRouter(t, true)

	tok, isPro := tokenOf(t, request(r, http.MethodPost, "/auth/register", `{"email":"a@x.com","password":"hunter22"}`, nil))
	if isPro {
		t.Fatalf("new account should be free")
	}

	if w := request(r, http.MethodGet, "/jobs", "", bearer(tok)); w.Code != http.StatusOK || lockedCount(t, w) != 2 {
		t.Fatalf("free jobs = (%d, %s)", w.Code, w.Body.String())
	}
	if w := request(r, http.MethodGet, "/jobs/a", "", bearer(tok)); w.Code != http.StatusPaymentRequired {
		t.Fatalf("free job detail status = %d, want 402", w.Code)
	}

	if w := request(r, http.MethodPost, "/checkout", "", bearer(tok)); w.Code != http.StatusOK {
		t.Fatalf("checkout status = %d body=%s", w.Code, w.Body.String())
	}

	payload := paymentstest.Event("evt_1", "checkout.session.completed", `{"id":"cs_1","customer_email":"a@x.com","customer":"cus_1"}`)
	if w := request(r, http.MethodPost, "/webhook", string(payload), map[string]string{"Stripe-Signature": paymentstest.Sign(payload, webhookSecret)}); w.Code != http.StatusOK {
		t.Fatalf("webhook status = %d body=%s", w.Code, w.Body.String())
	}

	// the old token still says free, the store already says pro
	if w := request(r, http.MethodGet, "/jobs", "", bearer(tok)); lockedCount(t, w) != 0 {
		t.Fatalf("pro caller should see every job: %s", w.Body.String())
	}

	fresh, isPro := tokenOf(t, request(r, http.MethodPost, "/auth/session", "", bearer(tok)))
	if !isPro {
		t.Fatalf("refreshed session should be pro")
	}
	if w := request(r, http.MethodGet, "/jobs/a", "", bearer(fresh)); w.Code != http.StatusOK {
		t.Fatalf("pro job detail status = %d", w.Code)
	}

	payload = paymentstest.Event("evt_2", "customer.subscription.deleted", `{"id":"sub_1","customer":"cus_1"}`)
	request(r, http.MethodPost, "/webhook", string(payload), map[string]string{"Stripe-Signature": paymentstest.Sign(payload, webhookSecret)})

	if _, isPro := tokenOf(t, request(r, http.MethodPost, "/auth/session", "", bearer(fresh))); isPro {
		t.Fatalf("session after cancellation should be free")
	}
}

func TestAnonymousJobsAndHealth(t *testing.T) {
	r := newRouter(t, true)
	if w := request(r, http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Fatalf("health status = %d", w.Code)
	}
	if w := request(r, http.MethodGet, "/jobs", "", nil); w.Code != http.StatusOK || lockedCount(t, w) != 2 {
		t.Fatalf("anonymous jobs = (%d, %s)", w.Code, w.Body.String())
	}
	if w := request(r, http.MethodGet, "/jobs/stats", "", nil); w.Code != http.StatusOK {
		t.Fatalf("stats status = %d", w.Code)
	}
	if w := request(r, http.MethodPost, "/checkout", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous checkout status = %d, want 401", w.Code)
	}
}

func TestCheckoutDebugHiddenInProduction(t *testing.T) {
	if w := request(newRouter(t, true), http.MethodGet, "/checkout-debug", "", nil); w.Code != http.StatusOK {
		t.Fatalf("debug status = %d, want 200", w.Code)
	}
	if w := request(newRouter(t, false), http.MethodGet, "/checkout-debug", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("production debug status = %d, want 404", w.Code)
	}
}

func TestInternalRoutesNeedToken(t *testing.T) {
	r := newRouter(t, false)
	if w := request(r, http.MethodGet, "/internal/users", "", nil); w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if w := request(r, http.MethodGet, "/internal/users", "", map[string]string{"X-Internal-Token": "internal"}); w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}
