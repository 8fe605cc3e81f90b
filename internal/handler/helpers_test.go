package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/hitoshi/folio/internal/auth"
	"github.com/hitoshi/folio/internal/validation"
)

const (
	testAccessSecret  = "test-access-secret"
	testRefreshSecret = "test-refresh-secret"
)

// testEnv はテスト用のルーターとモックをまとめたもの。
type testEnv struct {
	router  http.Handler
	tokens  *auth.TokenService
	auth    *mockAuthService
	content *mockContentService
	media   *mockMediaService
	contact *mockContactService
}

// newTestEnv はモックサービスを組み込んだルーターを生成する。
// modifyでRouterDepsを差し替えられる。
func newTestEnv(t *testing.T, modify func(*RouterDeps)) *testEnv {
	t.Helper()

	validator, err := validation.NewValidator()
	if err != nil {
		t.Fatalf("NewValidator() error = %v", err)
	}

	env := &testEnv{
		tokens:  auth.NewTokenService(auth.TokenConfig{AccessSecret: testAccessSecret, RefreshSecret: testRefreshSecret}),
		auth:    &mockAuthService{},
		content: &mockContentService{},
		media:   &mockMediaService{},
		contact: &mockContactService{},
	}
	deps := &RouterDeps{
		Logger:         slog.New(slog.NewJSONHandler(io.Discard, nil)),
		TokenVerifier:  env.tokens,
		Validator:      validator,
		AuthService:    env.auth,
		ContentService: env.content,
		MediaService:   env.media,
		ContactService: env.contact,
	}
	if modify != nil {
		modify(deps)
	}
	env.router = NewRouter(deps)
	return env
}

// accessToken は管理者のアクセストークンを発行する。
func (e *testEnv) accessToken(t *testing.T) string {
	t.Helper()
	token, err := e.tokens.IssueAccessToken(auth.Claims{Subject: "admin", Email: "admin@example.com", Role: "admin"})
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}
	return token
}

// do はリクエストをルーターに流してレスポンスを返す。
// tokenが空でなければBearerトークンを付ける。
func (e *testEnv) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := newRequest(method, path, body)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return serve(e, req)
}

// envelope はレスポンスのエンベロープ。
type envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	ErrorCode string          `json:"errorCode"`
	Details   *string         `json:"details"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode body %q: %v", w.Body.String(), err)
	}
	return env
}

func assertError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) envelope {
	t.Helper()
	if w.Code != status {
		t.Errorf("status = %d, want %d (body=%s)", w.Code, status, w.Body.String())
	}
	env := decodeEnvelope(t, w)
	if env.Success {
		t.Error("success = true, want false")
	}
	if env.ErrorCode != code {
		t.Errorf("errorCode = %q, want %q", env.ErrorCode, code)
	}
	return env
}

func newRequest(method, path, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	return httptest.NewRequest(method, path, reader)
}

func serve(e *testEnv, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}
