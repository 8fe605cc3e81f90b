package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// トークンの有効期間
const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// ErrSecretMissing は署名用シークレットが未設定であることを表す。
var ErrSecretMissing = errors.New("token secret is not configured")

// Claims はトークンに載せる利用者情報。永続化はしない。
type Claims struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Role    string `json:"role"`
}

// tokenClaims はJWTの解析・署名に使う内部表現。
type tokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// VerifyErrorKind は検証失敗の分類。
type VerifyErrorKind string

const (
	VerifyExpired          VerifyErrorKind = "EXPIRED"
	VerifyMalformed        VerifyErrorKind = "MALFORMED"
	VerifySignatureInvalid VerifyErrorKind = "SIGNATURE_INVALID"
)

// VerifyError はトークン検証の失敗を表す。
type VerifyError struct {
	Kind VerifyErrorKind
	Err  error
}

func (e *VerifyError) Error() string {
	switch e.Kind {
	case VerifyExpired:
		return "token is expired"
	case VerifySignatureInvalid:
		return "token signature is invalid"
	default:
		return "token is malformed"
	}
}

func (e *VerifyError) Unwrap() error {
	return e.Err
}

// TokenConfig はTokenServiceの設定。
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	Now           func() time.Time
}

// TokenService はアクセストークンとリフレッシュトークンを発行・検証する。
// 2つのトークンは別々のシークレットでHS256署名する。
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	now           func() time.Time
}

// NewTokenService はTokenServiceを生成する。
func NewTokenService(cfg TokenConfig) *TokenService {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &TokenService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		now:           now,
	}
}

// IssueAccessToken はアクセストークン（15分）を発行する。
func (s *TokenService) IssueAccessToken(claims Claims) (string, error) {
	return s.sign(claims, s.accessSecret, AccessTokenTTL)
}

// IssueRefreshToken はリフレッシュトークン（7日）を発行する。
func (s *TokenService) IssueRefreshToken(claims Claims) (string, error) {
	return s.sign(claims, s.refreshSecret, RefreshTokenTTL)
}

// VerifyAccessToken はアクセストークンを検証してClaimsを返す。
func (s *TokenService) VerifyAccessToken(token string) (Claims, error) {
	return s.verify(token, s.accessSecret)
}

// VerifyRefreshToken はリフレッシュトークンを検証してClaimsを返す。
func (s *TokenService) VerifyRefreshToken(token string) (Claims, error) {
	return s.verify(token, s.refreshSecret)
}

func (s *TokenService) sign(claims Claims, secret []byte, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", ErrSecretMissing
	}

	now := s.now()
	tc := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: claims.Email,
		Role:  claims.Role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tc).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *TokenService) verify(token string, secret []byte) (Claims, error) {
	if len(secret) == 0 {
		return Claims{}, ErrSecretMissing
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, &VerifyError{Kind: VerifyMalformed, Err: jwt.ErrTokenMalformed}
	}

	var parsed tokenClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}

	return Claims{
		Subject: parsed.Subject,
		Email:   parsed.Email,
		Role:    parsed.Role,
	}, nil
}

// mapJWTError はjwtライブラリのエラーを検証失敗の分類に変換する。
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return &VerifyError{Kind: VerifyExpired, Err: err}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return &VerifyError{Kind: VerifySignatureInvalid, Err: err}
	default:
		return &VerifyError{Kind: VerifyMalformed, Err: err}
	}
}
