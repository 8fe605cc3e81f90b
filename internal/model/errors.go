// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"net/http"
	"strings"
)

// エラーカテゴリ。HTTPステータスはカテゴリから決まる。
const (
	CategoryValidation = "validation"
	CategoryAuth       = "auth"
	CategoryNotFound   = "not_found"
	CategoryUpstream   = "upstream"
	CategorySystem     = "system"
)

// APIError は統一エラーフォーマットを表す。
// エンベロープの errorCode / message / details にそのまま対応する。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, auth, not_found, upstream, system
	Details  string // 上流エラーのメッセージ。空の場合はnullとして返す
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Status はカテゴリに対応するHTTPステータスコードを返す。
func (e *APIError) Status() int {
	switch e.Category {
	case CategoryValidation:
		return http.StatusBadRequest
	case CategoryAuth:
		return http.StatusUnauthorized
	case CategoryNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// 定義済みエラーコード
const (
	ErrCodeUnhandled               = "UNHANDLED_ERROR"
	ErrCodeInvalidRequest          = "INVALID_REQUEST"
	ErrCodeRequestValidationFailed = "REQUEST_VALIDATION_FAILED"
	ErrCodeQueryValidationFailed   = "QUERY_VALIDATION_FAILED"
	ErrCodeRateLimitExceeded       = "RATE_LIMIT_EXCEEDED"
	ErrCodeCORSOriginDenied        = "CORS_ORIGIN_DENIED"

	ErrCodeAuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	ErrCodeAuthConfigMissing      = "AUTH_CONFIG_MISSING"
	ErrCodeAuthRefreshFailed      = "AUTH_REFRESH_FAILED"
	ErrCodeAuthRefreshMissing     = "AUTH_REFRESH_TOKEN_MISSING"
	ErrCodeAuthTokenMissing       = "AUTH_TOKEN_MISSING"
	ErrCodeAuthTokenInvalid       = "AUTH_TOKEN_INVALID"
)

// NewValidationError は入力不備エラー（400）を生成する。
func NewValidationError(code, message, details string) *APIError {
	return &APIError{Code: code, Message: message, Category: CategoryValidation, Details: details}
}

// NewAuthError は認証エラー（401）を生成する。
func NewAuthError(code, message, details string) *APIError {
	return &APIError{Code: code, Message: message, Category: CategoryAuth, Details: details}
}

// NewNotFoundError はリソース未検出エラー（404）を生成する。
func NewNotFoundError(code, message string) *APIError {
	return &APIError{Code: code, Message: message, Category: CategoryNotFound}
}

// NewUpstreamError はストア・ストレージ呼び出しの失敗（500）を生成する。
// detailsには上流エラーのメッセージのみを格納する。
func NewUpstreamError(code, message string, cause error) *APIError {
	e := &APIError{Code: code, Message: message, Category: CategoryUpstream}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// NewUnhandledError はハンドラーから漏れたエラー用の汎用500エラーを生成する。
// 原因はログにのみ記録し、レスポンスには含めない。
func NewUnhandledError() *APIError {
	return &APIError{
		Code:     ErrCodeUnhandled,
		Message:  "Server error",
		Category: CategorySystem,
	}
}

// NewInvalidRequestError はJSONボディの解析失敗エラーを生成する。
func NewInvalidRequestError(details string) *APIError {
	return NewValidationError(ErrCodeInvalidRequest, "Request body could not be parsed.", details)
}

// ResourceCode はリソース名からエラーコードを組み立てる。
// 例: ResourceCode("skills", "LIST_FAILED") == "SKILLS_LIST_FAILED"
func ResourceCode(resource, suffix string) string {
	return strings.ToUpper(resource) + "_" + suffix
}
