// Package auth は管理者ログインとトークンの発行・更新を提供する。
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/folio/internal/model"
)

// 管理者のClaims固定値
const (
	AdminSubject = "admin"
	AdminRole    = "admin"
)

// ログイン試行の結果ラベル
const (
	LoginResultSuccess            = "success"
	LoginResultInvalidCredentials = "invalid_credentials"
	LoginResultConfigMissing      = "config_missing"
)

const invalidCredentialsMessage = "Invalid credentials. Please try again."

// Credentials は設定から読み込んだ管理者の認証情報。
type Credentials struct {
	AdminEmail    string
	AdminPassword string // bcryptハッシュ（$2接頭辞）または平文
	// PlaintextFallback が有効な場合のみ、ハッシュでないパスワードを平文として比較する。
	PlaintextFallback bool
}

// LoginRecorder はログイン試行の記録先。
type LoginRecorder interface {
	RecordLoginAttempt(result string)
}

// LoginResult はログイン成功時のレスポンスデータ。
type LoginResult struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         Claims `json:"user"`
}

// TokenPair はリフレッシュ時に再発行するトークンの組。
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Service はログインとトークン更新のビジネスロジックを提供する。
type Service struct {
	tokens   *TokenService
	creds    Credentials
	recorder LoginRecorder
}

// NewService はServiceを生成する。recorderはnilでもよい。
func NewService(tokens *TokenService, creds Credentials, recorder LoginRecorder) *Service {
	return &Service{
		tokens:   tokens,
		creds:    creds,
		recorder: recorder,
	}
}

// Login は管理者の認証情報を照合し、トークンを発行する。
// 管理者の認証情報が未設定の場合のみ AUTH_CONFIG_MISSING を返し、
// それ以外の不一致はすべて AUTH_INVALID_CREDENTIALS に揃える。
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	adminEmail := strings.ToLower(strings.TrimSpace(s.creds.AdminEmail))
	if adminEmail == "" || s.creds.AdminPassword == "" {
		s.record(LoginResultConfigMissing)
		return nil, &model.APIError{
			Code:     model.ErrCodeAuthConfigMissing,
			Message:  "Admin credentials are not configured on the server.",
			Category: model.CategorySystem,
		}
	}

	if email == "" || password == "" ||
		strings.ToLower(strings.TrimSpace(email)) != adminEmail ||
		!s.passwordMatches(ctx, password) {
		s.record(LoginResultInvalidCredentials)
		return nil, model.NewAuthError(model.ErrCodeAuthInvalidCredentials, invalidCredentialsMessage, "")
	}

	claims := Claims{Subject: AdminSubject, Email: adminEmail, Role: AdminRole}
	pair, err := s.issuePair(claims)
	if err != nil {
		return nil, err
	}

	s.record(LoginResultSuccess)
	return &LoginResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         claims,
	}, nil
}

// Refresh はリフレッシュトークンを検証し、新しいトークンの組を発行する。
// 検証失敗の理由はログにのみ残し、呼び出し側には AUTH_REFRESH_FAILED だけを返す。
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, model.NewValidationError(model.ErrCodeAuthRefreshMissing, "Refresh token is required.", "")
	}

	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		var verr *VerifyError
		kind := "UNKNOWN"
		if errors.As(err, &verr) {
			kind = string(verr.Kind)
		}
		slog.WarnContext(ctx, "refresh token rejected",
			slog.String("kind", kind),
			slog.String("error", err.Error()),
		)
		return nil, model.NewAuthError(model.ErrCodeAuthRefreshFailed, "Refresh token invalid or expired.", "")
	}

	return s.issuePair(claims)
}

func (s *Service) passwordMatches(ctx context.Context, password string) bool {
	stored := s.creds.AdminPassword
	if strings.HasPrefix(stored, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	if !s.creds.PlaintextFallback {
		slog.WarnContext(ctx, "admin password is not a bcrypt hash and plaintext fallback is disabled")
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}

func (s *Service) issuePair(claims Claims) (*TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(claims)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefreshToken(claims)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) record(result string) {
	if s.recorder != nil {
		s.recorder.RecordLoginAttempt(result)
	}
}
