// Package middleware はHTTPミドルウェアとレスポンスエンベロープを提供する。
package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/hitoshi/folio/internal/model"
)

// SuccessBody は成功レスポンスのエンベロープ。
// dataが無い場合もnullとして出力する。
type SuccessBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// ErrorBody は失敗レスポンスのエンベロープ。
// detailsが空の場合はnullとして出力する。
type ErrorBody struct {
	Success   bool    `json:"success"`
	Message   string  `json:"message"`
	ErrorCode string  `json:"errorCode"`
	Details   *string `json:"details"`
}

// WriteSuccess は成功エンベロープを書き込む。
func WriteSuccess(w http.ResponseWriter, statusCode int, message string, data any) {
	WriteJSON(w, statusCode, SuccessBody{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// WriteError は指定ステータスで失敗エンベロープを書き込む。
func WriteError(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	body := ErrorBody{
		Message:   apiErr.Message,
		ErrorCode: apiErr.Code,
	}
	if apiErr.Details != "" {
		details := apiErr.Details
		body.Details = &details
	}
	WriteJSON(w, statusCode, body)
}

// WriteAPIError はerrをエンベロープに変換して書き込む。
// *model.APIError以外のエラーは原因をログにのみ記録し、汎用の500を返す。
func WriteAPIError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		WriteError(w, apiErr.Status(), apiErr)
		return
	}

	slog.ErrorContext(r.Context(), "unhandled error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	WriteError(w, http.StatusInternalServerError, model.NewUnhandledError())
}

// WriteJSON はbodyをJSONとして書き込む。エンコードの失敗はログに残す。
func WriteJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}
