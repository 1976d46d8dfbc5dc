package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"authcore/internal/model"
	"authcore/internal/outbox"
	"authcore/internal/service"
	"authcore/internal/token"
)

type stubUserStore struct{}

func (stubUserStore) FindByEmail(context.Context, string) (*model.User, error) { return nil, nil }

func (stubUserStore) FindByID(context.Context, int) (*model.User, error) { return nil, nil }

type stubTrustStore struct{}

func (stubTrustStore) Upsert(context.Context, *model.DeviceTrustRecord) error { return nil }
func (stubTrustStore) FindActive(context.Context, int, string, time.Time) (*model.DeviceTrustRecord, error) {
	return nil, nil
}
func (stubTrustStore) Touch(context.Context, int, time.Time) error { return nil }

type stubAuditStore struct {
	entries []model.AuditLog
}

func (s *stubAuditStore) Insert(_ context.Context, entry *model.AuditLog) error {
	s.entries = append(s.entries, *entry)
	return nil
}

// stubOutboxStore is an always-empty queue; Drain against it processes
// nothing but still exercises the handler path.
type stubOutboxStore struct{}

func (stubOutboxStore) Insert(context.Context, *model.EmailOutboxItem) error { return nil }

func (stubOutboxStore) ClaimDue(context.Context, time.Time, int) ([]*model.EmailOutboxItem, error) {
	return nil, nil
}

func (stubOutboxStore) MarkSent(context.Context, int, time.Time) error { return nil }

func (stubOutboxStore) MarkRetry(context.Context, int, int, string, time.Time) error { return nil }

func (stubOutboxStore) MarkFailed(context.Context, int, int, string) error { return nil }

func (stubOutboxStore) Stats(context.Context) (outbox.Stats, error) { return outbox.Stats{}, nil }

type stubSettingsStore struct {
	values map[string]string
}

func (s *stubSettingsStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *stubSettingsStore) GetForTenant(ctx context.Context, key string, _ int) (string, bool, error) {
	return s.Get(ctx, key)
}

func (s *stubSettingsStore) Set(_ context.Context, key, value string) error {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
	return nil
}

func testRouter(t *testing.T) (*Router, *service.AuthService, *stubAuditStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	codec := token.NewCodec(
		token.NewSecretProvider(token.StaticSecrets{token.SigningSecretKey: "router-test-secret"}, token.PostureProduction),
		zap.NewNop(),
	)
	auditStore := &stubAuditStore{}
	audit := service.NewAuditRecorder(auditStore, zap.NewNop())
	trust := service.NewDeviceTrustService(stubTrustStore{}, audit, zap.NewNop(), time.Hour)
	auth := service.NewAuthService(codec, stubUserStore{}, trust, nil, audit, zap.NewNop(), time.Hour, 30)
	engine := outbox.NewEngine(stubOutboxStore{}, nil, zap.NewNop(), outbox.Config{})

	router := NewRouter(auth,
		NewAuthHandler(auth, trust),
		NewUnsubscribeHandler(auth, audit),
		NewOutboxHandler(engine, audit),
		NewSettingsHandler(&stubSettingsStore{}, audit),
	)
	return router, auth, auditStore
}

func do(router *Router, method, path, bearer, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	router.Engine.ServeHTTP(w, req)
	return w
}

func get(router *Router, path, bearer string) *httptest.ResponseRecorder {
	return do(router, http.MethodGet, path, bearer, "")
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	router, auth, _ := testRouter(t)
	ctx := context.Background()

	if w := get(router, "/session", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", w.Code)
	}
	if w := get(router, "/session", "garbage"); w.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", w.Code)
	}

	signed, err := auth.IssueSessionToken(ctx, 1, nil, false, time.Hour)
	if err != nil {
		t.Fatalf("IssueSessionToken failed: %v", err)
	}
	if w := get(router, "/session", signed); w.Code != http.StatusOK {
		t.Errorf("valid token: status = %d, want 200", w.Code)
	}
}

func TestAdminRoutesForbiddenForNonSuperAdmin(t *testing.T) {
	router, auth, _ := testRouter(t)
	ctx := context.Background()

	member, err := auth.IssueSessionToken(ctx, 1, nil, false, time.Hour)
	if err != nil {
		t.Fatalf("IssueSessionToken failed: %v", err)
	}

	// 403, not 401: the credential is valid, the privilege is missing.
	if w := get(router, "/admin/outbox/stats", member); w.Code != http.StatusForbidden {
		t.Errorf("member on admin route: status = %d, want 403", w.Code)
	}
	if w := get(router, "/admin/outbox/stats", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous on admin route: status = %d, want 401", w.Code)
	}
}

func TestUnsubscribeRejectsSessionToken(t *testing.T) {
	router, auth, _ := testRouter(t)
	ctx := context.Background()

	session, err := auth.IssueSessionToken(ctx, 1, nil, false, time.Hour)
	if err != nil {
		t.Fatalf("IssueSessionToken failed: %v", err)
	}
	if w := get(router, "/unsubscribe?token="+session, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("session token on unsubscribe: status = %d, want 401", w.Code)
	}

	purpose, err := auth.IssuePurposeToken(ctx, 1, nil, "announcements", "email", 7)
	if err != nil {
		t.Fatalf("IssuePurposeToken failed: %v", err)
	}
	if w := get(router, "/unsubscribe?token="+purpose, ""); w.Code != http.StatusOK {
		t.Errorf("purpose token on unsubscribe: status = %d, want 200", w.Code)
	}
}

func TestManualDrainIsAudited(t *testing.T) {
	router, auth, auditStore := testRouter(t)
	ctx := context.Background()

	admin, err := auth.IssueSessionToken(ctx, 9, nil, true, time.Hour)
	if err != nil {
		t.Fatalf("IssueSessionToken failed: %v", err)
	}

	if w := do(router, http.MethodPost, "/admin/outbox/drain", admin, ""); w.Code != http.StatusOK {
		t.Fatalf("drain: status = %d, want 200", w.Code)
	}

	if len(auditStore.entries) == 0 {
		t.Fatal("manual drain should append an audit entry")
	}
	last := auditStore.entries[len(auditStore.entries)-1]
	if last.Action != "outbox.drained" {
		t.Errorf("audit action = %q, want outbox.drained", last.Action)
	}
	if last.UserID == nil || *last.UserID != 9 {
		t.Error("audit entry should carry the acting admin")
	}
}

func TestAdminSettingsRoundTrip(t *testing.T) {
	router, auth, auditStore := testRouter(t)
	ctx := context.Background()

	admin, err := auth.IssueSessionToken(ctx, 9, nil, true, time.Hour)
	if err != nil {
		t.Fatalf("IssueSessionToken failed: %v", err)
	}

	if w := get(router, "/admin/settings/mail.sender", admin); w.Code != http.StatusNotFound {
		t.Errorf("unset key: status = %d, want 404", w.Code)
	}

	if w := do(router, http.MethodPut, "/admin/settings/mail.sender", admin, `{"value":"noreply@example.com"}`); w.Code != http.StatusOK {
		t.Fatalf("set: status = %d, want 200", w.Code)
	}
	if w := get(router, "/admin/settings/mail.sender", admin); w.Code != http.StatusOK {
		t.Errorf("get after set: status = %d, want 200", w.Code)
	}
	if w := get(router, "/admin/settings/mail.sender?tenant_id=4", admin); w.Code != http.StatusOK {
		t.Errorf("tenant get should fall back to global: status = %d, want 200", w.Code)
	}

	last := auditStore.entries[len(auditStore.entries)-1]
	if last.Action != "setting.updated" || last.ResourceID == nil || *last.ResourceID != "mail.sender" {
		t.Errorf("setting update should be audited, got %+v", last)
	}
}
