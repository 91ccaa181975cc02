package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"myconnectionsvr/authdemo/internal/audit"
	"myconnectionsvr/authdemo/internal/auth"
	"myconnectionsvr/authdemo/internal/storage"
)

type fakeAuthService struct {
	loginFunc     func(email, password string) error
	registerFunc  func(username, email, password string) error
	logoutFunc    func()
	userFunc      func() (auth.User, bool)
	dashboardFunc func() (auth.Dashboard, error)
}

func (f fakeAuthService) Login(_ context.Context, email, password string) error {
	if f.loginFunc == nil {
		return errors.New("not implemented")
	}
	return f.loginFunc(email, password)
}

func (f fakeAuthService) Register(_ context.Context, username, email, password string) error {
	if f.registerFunc == nil {
		return errors.New("not implemented")
	}
	return f.registerFunc(username, email, password)
}

func (f fakeAuthService) Logout(_ context.Context) {
	if f.logoutFunc != nil {
		f.logoutFunc()
	}
}

func (f fakeAuthService) User() (auth.User, bool) {
	if f.userFunc == nil {
		return auth.User{}, false
	}
	return f.userFunc()
}

func (f fakeAuthService) Dashboard() (auth.Dashboard, error) {
	if f.dashboardFunc == nil {
		return auth.Dashboard{}, auth.ErrNotAuthenticated
	}
	return f.dashboardFunc()
}

type recordingAudit struct {
	events []audit.Event
}

func (r *recordingAudit) Record(e audit.Event) error {
	r.events = append(r.events, e)
	return nil
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var got map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return got["error"]
}

func TestHealthz(t *testing.T) {
	handler := loggingMiddleware(nil, NewHandler(Deps{}))
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected X-Request-Id header to be set")
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	handler := loggingMiddleware(nil, NewHandler(Deps{}))
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-Id"); got != "req-42" {
		t.Fatalf("expected request id req-42, got %q", got)
	}
}

func TestReadyzWithoutAuth(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(Deps{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
}

func TestInfo(t *testing.T) {
	handler := NewHandler(Deps{})
	req := httptest.NewRequest(http.MethodGet, "/v1/info", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var got map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if got["service"] != "authdemo-api" {
		t.Fatalf("expected service 'authdemo-api', got %q", got["service"])
	}
}

func TestLoginSuccess(t *testing.T) {
	rec := &recordingAudit{}
	signedIn := false
	handler := NewHandler(Deps{Audit: rec, Auth: fakeAuthService{
		loginFunc: func(email, password string) error {
			if email != "a@x.com" || password != "secret1" {
				return auth.ErrInvalidCredentials
			}
			signedIn = true
			return nil
		},
		userFunc: func() (auth.User, bool) {
			return auth.User{ID: "1", Username: "alice", Email: "a@x.com"}, signedIn
		},
	}})

	body := bytes.NewBufferString(`{"email":"a@x.com","password":"secret1"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()

	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", res.Code, res.Body.String())
	}
	var got stateResponse
	if err := json.Unmarshal(res.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if !got.IsAuthenticated || got.User == nil || got.User.Username != "alice" {
		t.Fatalf("unexpected state: %+v", got)
	}
	if len(rec.events) != 1 || rec.events[0].Action != audit.ActionLogin || rec.events[0].Outcome != audit.OutcomeSuccess {
		t.Fatalf("unexpected audit events: %+v", rec.events)
	}
}

func TestAuthErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		body    string
		err     error
		status  int
		message string
	}{
		{"invalid credentials", "/v1/auth/login", `{"email":"x@y","password":"nope"}`, auth.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password"},
		{"fields required", "/v1/auth/register", `{"email":"x@y"}`, auth.ErrFieldsRequired, http.StatusBadRequest, "All fields are required"},
		{"short password", "/v1/auth/register", `{"username":"a","email":"x@y","password":"1"}`, auth.ErrPasswordTooShort, http.StatusBadRequest, "Password must be at least 6 characters"},
		{"invalid email", "/v1/auth/register", `{"username":"a","email":"xy","password":"123456"}`, auth.ErrInvalidEmail, http.StatusBadRequest, "Invalid email format"},
		{"duplicate", "/v1/auth/register", `{"username":"a","email":"x@y","password":"123456"}`, auth.ErrDuplicateEmail, http.StatusConflict, "Email already registered"},
		{"storage failure", "/v1/auth/register", `{"username":"a","email":"x@y","password":"123456"}`, errors.New("disk full"), http.StatusInternalServerError, "registration failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler(Deps{Auth: fakeAuthService{
				loginFunc:    func(_, _ string) error { return tt.err },
				registerFunc: func(_, _, _ string) error { return tt.err },
			}})
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body)))

			if rec.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, rec.Code)
			}
			if got := decodeError(t, rec); got != tt.message {
				t.Fatalf("expected message %q, got %q", tt.message, got)
			}
		})
	}
}

func TestLoginRejectsBadBodyAndMethod(t *testing.T) {
	handler := NewHandler(Deps{Auth: fakeAuthService{}})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader("{")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/auth/login", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rec.Code)
	}
}

func TestAuthMeAnonymous(t *testing.T) {
	handler := NewHandler(Deps{Auth: fakeAuthService{}})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"user":null,"isAuthenticated":false}` {
		t.Fatalf("unexpected anonymous state %s", rec.Body.String())
	}
}

func TestAuthLogout(t *testing.T) {
	called := false
	handler := NewHandler(Deps{Auth: fakeAuthService{logoutFunc: func() { called = true }}})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if !called {
		t.Fatalf("expected Logout to be called")
	}
}

func TestDashboardRequiresSession(t *testing.T) {
	handler := NewHandler(Deps{Auth: fakeAuthService{}})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/dashboard", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestAuthFlowAgainstService(t *testing.T) {
	kv := storage.NewMemoryStorage()
	creds, err := auth.NewStorageCredentialStore(kv, nil)
	if err != nil {
		t.Fatalf("NewStorageCredentialStore() error: %v", err)
	}
	session, err := auth.NewSessionState(kv, nil)
	if err != nil {
		t.Fatalf("NewSessionState() error: %v", err)
	}
	svc, err := auth.NewService(creds, session, auth.ServiceConfig{})
	if err != nil {
		t.Fatalf("NewService() error: %v", err)
	}
	handler := loggingMiddleware(nil, NewHandler(Deps{Auth: svc}))

	do := func(method, target, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
		return rec
	}

	rec := do(http.MethodPost, "/v1/auth/register", `{"username":"alice","email":"a@x.com","password":"secret1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	var registered stateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &registered); err != nil || registered.User == nil {
		t.Fatalf("decode register response: %v body=%s", err, rec.Body.String())
	}

	rec = do(http.MethodGet, "/v1/dashboard", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected dashboard 200, got %d", rec.Code)
	}

	if rec = do(http.MethodPost, "/v1/auth/logout", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected logout 204, got %d", rec.Code)
	}

	rec = do(http.MethodPost, "/v1/auth/login", `{"email":"a@x.com","password":"secret1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected login 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	var loggedIn stateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &loggedIn); err != nil || loggedIn.User == nil {
		t.Fatalf("decode login response: %v", err)
	}
	if loggedIn.User.ID != registered.User.ID {
		t.Fatalf("expected same user id %s, got %s", registered.User.ID, loggedIn.User.ID)
	}
}

func TestUnknownRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(Deps{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/unknown", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestFrontendStaticAndSpaFallback(t *testing.T) {
	dist := t.TempDir()
	if err := os.WriteFile(filepath.Join(dist, "index.html"), []byte("<html>app</html>"), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dist, "app.js"), []byte("console.log('x')"), 0o644); err != nil {
		t.Fatalf("write asset: %v", err)
	}

	handler := NewHandler(Deps{FrontendDistDir: dist})

	for _, target := range []string{"/", "/app.js", "/dashboard"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected %s to return 200, got %d", target, rec.Code)
		}
	}

	recAPI := httptest.NewRecorder()
	handler.ServeHTTP(recAPI, httptest.NewRequest(http.MethodGet, "/v1/not-found", nil))
	if recAPI.Code != http.StatusNotFound {
		t.Fatalf("expected API not shadowed, got status %d", recAPI.Code)
	}
}
