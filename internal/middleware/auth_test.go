package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/folio/internal/auth"
)

// mockVerifier はTokenVerifierのモック。
type mockVerifier struct {
	verifyFn func(token string) (auth.Claims, error)
}

func (m *mockVerifier) VerifyAccessToken(token string) (auth.Claims, error) {
	return m.verifyFn(token)
}

func validVerifier() *mockVerifier {
	return &mockVerifier{verifyFn: func(token string) (auth.Claims, error) {
		if token != "good-token" {
			return auth.Claims{}, &auth.VerifyError{Kind: auth.VerifySignatureInvalid}
		}
		return auth.Claims{Subject: "admin", Email: "admin@example.com", Role: "admin"}, nil
	}}
}

func TestAuthMiddleware_MissingToken_Returns401(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"ヘッダーなし", ""},
		{"Bearer以外の方式", "Basic dXNlcjpwYXNz"},
		{"接頭辞の空白なし", "Bearer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := NewAuthMiddleware(validVerifier())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodPost, "/upload/image", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if called {
				t.Error("handler should not be called")
			}
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			body := decodeEnvelope(t, w)
			if body["errorCode"] != "AUTH_TOKEN_MISSING" {
				t.Errorf("errorCode = %v, want AUTH_TOKEN_MISSING", body["errorCode"])
			}
		})
	}
}

func TestAuthMiddleware_EmptyBearerToken_IsVerifiedAndRejected(t *testing.T) {
	var verified []string
	verifier := &mockVerifier{verifyFn: func(token string) (auth.Claims, error) {
		verified = append(verified, token)
		return auth.Claims{}, &auth.VerifyError{Kind: auth.VerifyMalformed}
	}}
	called := false
	handler := NewAuthMiddleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/upload/image", nil)
	req.Header.Set("Authorization", "Bearer   ")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if called {
		t.Error("handler should not be called")
	}
	if len(verified) != 1 || verified[0] != "" {
		t.Errorf("verified tokens = %q, want one empty token", verified)
	}
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	body := decodeEnvelope(t, w)
	if body["errorCode"] != "AUTH_TOKEN_INVALID" {
		t.Errorf("errorCode = %v, want AUTH_TOKEN_INVALID", body["errorCode"])
	}
}

func TestAuthMiddleware_InvalidToken_Returns401WithDetails(t *testing.T) {
	called := false
	handler := NewAuthMiddleware(validVerifier())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodDelete, "/skills/1", nil)
	req.Header.Set("Authorization", "Bearer forged")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if called {
		t.Error("handler should not be called")
	}
	body := decodeEnvelope(t, w)
	if body["errorCode"] != "AUTH_TOKEN_INVALID" {
		t.Errorf("errorCode = %v, want AUTH_TOKEN_INVALID", body["errorCode"])
	}
	if body["details"] != "token signature is invalid" {
		t.Errorf("details = %v", body["details"])
	}
}

func TestAuthMiddleware_ValidToken_InjectsClaims(t *testing.T) {
	var got auth.Claims
	var ok bool
	handler := NewAuthMiddleware(validVerifier())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/skills", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !ok {
		t.Fatal("claims should be in context")
	}
	if got.Subject != "admin" || got.Role != "admin" || got.Email != "admin@example.com" {
		t.Errorf("claims = %+v", got)
	}
}

func TestAuthMiddleware_RealTokenService(t *testing.T) {
	tokens := auth.NewTokenService(auth.TokenConfig{AccessSecret: "access-secret", RefreshSecret: "refresh-secret"})
	refresh, err := tokens.IssueRefreshToken(auth.Claims{Subject: "admin", Role: "admin"})
	if err != nil {
		t.Fatalf("IssueRefreshToken() error = %v", err)
	}

	handler := NewAuthMiddleware(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// リフレッシュトークンはアクセストークンとして通らない
	req := httptest.NewRequest(http.MethodPost, "/skills", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestClaimsFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := ClaimsFromContext(req.Context()); ok {
		t.Error("expected no claims in empty context")
	}
}
