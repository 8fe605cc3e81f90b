package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testClaims = Claims{Subject: "admin", Email: "admin@example.com", Role: "admin"}

func newTestTokenService(now func() time.Time) *TokenService {
	return NewTokenService(TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		Now:           now,
	})
}

func TestIssueAccessToken_VerifiesWithAccessSecretOnly(t *testing.T) {
	svc := newTestTokenService(nil)

	token, err := svc.IssueAccessToken(testClaims)
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}

	got, err := svc.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("VerifyAccessToken() error = %v", err)
	}
	if got != testClaims {
		t.Errorf("claims = %+v, want %+v", got, testClaims)
	}

	_, err = svc.VerifyRefreshToken(token)
	var verr *VerifyError
	if !errors.As(err, &verr) || verr.Kind != VerifySignatureInvalid {
		t.Errorf("VerifyRefreshToken(access) error = %v, want SIGNATURE_INVALID", err)
	}
}

func TestIssueRefreshToken_VerifiesWithRefreshSecretOnly(t *testing.T) {
	svc := newTestTokenService(nil)

	token, err := svc.IssueRefreshToken(testClaims)
	if err != nil {
		t.Fatalf("IssueRefreshToken() error = %v", err)
	}

	if _, err := svc.VerifyRefreshToken(token); err != nil {
		t.Fatalf("VerifyRefreshToken() error = %v", err)
	}
	if _, err := svc.VerifyAccessToken(token); err == nil {
		t.Error("refresh token must not verify as access token")
	}
}

func TestTokenTTLs(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestTokenService(func() time.Time { return issued })

	tests := []struct {
		name  string
		issue func(Claims) (string, error)
		ttl   time.Duration
	}{
		{"access", svc.IssueAccessToken, 15 * time.Minute},
		{"refresh", svc.IssueRefreshToken, 7 * 24 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := tt.issue(testClaims)
			if err != nil {
				t.Fatalf("issue error = %v", err)
			}

			var parsed tokenClaims
			if _, _, err := jwt.NewParser().ParseUnverified(token, &parsed); err != nil {
				t.Fatalf("ParseUnverified error = %v", err)
			}
			if got := parsed.ExpiresAt.Sub(parsed.IssuedAt.Time); got != tt.ttl {
				t.Errorf("ttl = %v, want %v", got, tt.ttl)
			}
		})
	}
}

func TestVerify_Expired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	svc := newTestTokenService(func() time.Time { return clock() })

	token, err := svc.IssueAccessToken(testClaims)
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}

	clock = func() time.Time { return now.Add(16 * time.Minute) }

	_, err = svc.VerifyAccessToken(token)
	var verr *VerifyError
	if !errors.As(err, &verr) || verr.Kind != VerifyExpired {
		t.Fatalf("error = %v, want EXPIRED", err)
	}
	if verr.Error() != "token is expired" {
		t.Errorf("Error() = %q", verr.Error())
	}
}

func TestVerify_Malformed(t *testing.T) {
	svc := newTestTokenService(nil)

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		_, err := svc.VerifyAccessToken(token)
		var verr *VerifyError
		if !errors.As(err, &verr) || verr.Kind != VerifyMalformed {
			t.Errorf("VerifyAccessToken(%q) error = %v, want MALFORMED", token, err)
		}
	}
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	svc := newTestTokenService(nil)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString([]byte("access-secret"))
	if err != nil {
		t.Fatalf("sign error = %v", err)
	}

	if _, err := svc.VerifyAccessToken(token); err == nil {
		t.Error("HS512 token must be rejected")
	}
}

func TestMissingSecret_ReturnsErrSecretMissing(t *testing.T) {
	svc := NewTokenService(TokenConfig{})

	if _, err := svc.IssueAccessToken(testClaims); !errors.Is(err, ErrSecretMissing) {
		t.Errorf("IssueAccessToken() error = %v, want ErrSecretMissing", err)
	}
	if _, err := svc.VerifyRefreshToken("x.y.z"); !errors.Is(err, ErrSecretMissing) {
		t.Errorf("VerifyRefreshToken() error = %v, want ErrSecretMissing", err)
	}
}
