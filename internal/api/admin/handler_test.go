package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chilljobs-api/internal/app/http/middleware"
	"chilljobs-api/internal/domain/users"
	"chilljobs-api/internal/infra/notify"
	"chilljobs-api/internal/store"
	"chilljobs-api/internal/store/storetest"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const token = "internal-secret"

func setup(t *testing.T) (*gin.Engine, *store.GormStore, *notify.Recorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st := storetest.New(t)
	rec := &notify.Recorder{}
	h := NewHandler(st, rec, zap.NewNop().Sugar())

	r := gin.New()
	g := r.Group("/internal", middleware.RequireInternalToken(token))
	g.GET("/users", h.ListAllUsers)
	g.POST("/users/upgrade", h.UpgradeUser)
	g.POST("/users/downgrade", h.DowngradeUser)
	return r, st, rec
}

func call(r *gin.Engine, method, path, body, tok string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set(middleware.InternalTokenHeader, tok)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestInternalUpgradeDowngrade(t *testing.T) {
	r, st, rec := setup(t)
	u := users.User{Email: "a@x.com"}
	if err := st.CreateUser(context.Background(), &u); err != nil {
		t.Fatalf("CreateUser error = %v", err)
	}

	w := call(r, http.MethodPost, "/internal/users/upgrade", `{"email":"a@x.com","stripe_customer_id":"cus_1"}`, token)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"success":true`) {
		t.Fatalf("upgrade = (%d, %s)", w.Code, w.Body.String())
	}
	got, _ := st.GetUserByID(context.Background(), u.ID)
	if !got.IsPro || got.CustomerID() != "cus_1" {
		t.Fatalf("after upgrade = %+v", got)
	}

	w = call(r, http.MethodGet, "/internal/users", "", token)
	var list struct {
		Users []AdminUser `json:"users"`
		Stats AdminStats  `json:"stats"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Stats.TotalUsers != 1 || list.Stats.ProUsers != 1 || list.Users[0].Email != "a@x.com" {
		t.Fatalf("list = %+v", list)
	}

	w = call(r, http.MethodPost, "/internal/users/downgrade", `{"email":"a@x.com"}`, token)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"success":true`) {
		t.Fatalf("downgrade = (%d, %s)", w.Code, w.Body.String())
	}
	got, _ = st.GetUserByID(context.Background(), u.ID)
	if got.IsPro {
		t.Fatalf("user should be downgraded")
	}

	if n := len(rec.Snapshot()); n != 2 {
		t.Fatalf("published %d events, want 2", n)
	}
}

func TestInternalUnknownUser(t *testing.T) {
	r, _, rec := setup(t)
	w := call(r, http.MethodPost, "/internal/users/upgrade", `{"email":"ghost@x.com"}`, token)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"success":false`) {
		t.Fatalf("upgrade unknown = (%d, %s)", w.Code, w.Body.String())
	}
	if len(rec.Snapshot()) != 0 {
		t.Fatalf("nothing should be published")
	}
}

func TestInternalRejectsBadInput(t *testing.T) {
	r, _, _ := setup(t)
	if w := call(r, http.MethodPost, "/internal/users/upgrade", `{}`, token); w.Code != http.StatusBadRequest {
		t.Fatalf("upgrade without email status = %d, want 400", w.Code)
	}
	if w := call(r, http.MethodPost, "/internal/users/downgrade", `{}`, token); w.Code != http.StatusBadRequest {
		t.Fatalf("downgrade without ref status = %d, want 400", w.Code)
	}
}

func TestInternalRejectsWrongToken(t *testing.T) {
	r, _, _ := setup(t)
	if w := call(r, http.MethodGet, "/internal/users", "", "nope"); w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}
