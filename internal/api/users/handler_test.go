package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chilljobs-api/internal/app/http/middleware"
	domain "chilljobs-api/internal/domain/users"
	"chilljobs-api/internal/session"
	"chilljobs-api/internal/store/storetest"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func TestGetCurrentUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	st := storetest.New(t)
	iss := session.NewIssuer("secret", time.Hour, false)
	h := NewHandler(st, false, zap.NewNop().Sugar())

	r := gin.New()
	r.GET("/me", middleware.AuthMiddleware(iss), h.GetCurrentUser)

	u := domain.User{Email: "a@x.com", Name: "Ann"}
	if err := st.CreateUser(context.Background(), &u); err != nil {
		t.Fatalf("CreateUser error = %v", err)
	}
	tok, _, _ := iss.Issue(u)

	get := func() MeResponse {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
		}
		var resp MeResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return resp
	}

	free := get()
	if free.User.Email != "a@x.com" || free.Entitlement.IsPro || free.Access.State != "free" {
		t.Fatalf("free response = %+v", free)
	}
	if free.Access.JobLimit == nil || *free.Access.JobLimit != 1 {
		t.Fatalf("free job limit = %v, want 1", free.Access.JobLimit)
	}

	if _, err := st.Upgrade(context.Background(), "a@x.com", "cus_1"); err != nil {
		t.Fatalf("Upgrade error = %v", err)
	}
	pro := get()
	if !pro.Entitlement.IsPro || pro.Access.State != "pro" || pro.Access.JobLimit != nil {
		t.Fatalf("pro response = %+v", pro)
	}
	if pro.Entitlement.DaysLeft == nil || *pro.Entitlement.DaysLeft < 29 {
		t.Fatalf("days left = %v", pro.Entitlement.DaysLeft)
	}
	if !pro.Entitlement.HasStripeAccount || len(pro.Access.Capabilities) != 4 {
		t.Fatalf("pro entitlement = %+v access = %+v", pro.Entitlement, pro.Access)
	}
}

func TestDaysLeft(t *testing.T) {
	now := time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(72 * time.Hour)

	if d := daysLeft(now, domain.User{IsPro: false, ProExpiresAt: &future}); d != nil {
		t.Fatalf("free user days left = %v, want nil", *d)
	}
	if d := daysLeft(now, domain.User{IsPro: true, ProExpiresAt: &past}); d == nil || *d != 0 {
		t.Fatalf("elapsed expiry days left = %v, want 0", d)
	}
	if d := daysLeft(now, domain.User{IsPro: true, ProExpiresAt: &future}); d == nil || *d != 3 {
		t.Fatalf("days left = %v, want 3", d)
	}
}
