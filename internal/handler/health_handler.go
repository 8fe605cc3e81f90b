package handler

import (
	"net/http"

	"github.com/hitoshi/folio/internal/middleware"
	"github.com/hitoshi/folio/internal/model"
)

// ルーティング外のエラーコード
const (
	ErrCodeRouteNotFound    = "ROUTE_NOT_FOUND"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

type healthResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Health は死活監視用の固定レスポンスを返す。
// GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, healthResponse{Success: true, Message: "API is healthy"})
}

// NotFound は未定義のルートに404のエンベロープを返す。
func NotFound(w http.ResponseWriter, r *http.Request) {
	middleware.WriteError(w, http.StatusNotFound, model.NewNotFoundError(ErrCodeRouteNotFound, "Route not found."))
}

// MethodNotAllowed は許可されていないメソッドに405のエンベロープを返す。
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	middleware.WriteError(w, http.StatusMethodNotAllowed, &model.APIError{
		Code:     ErrCodeMethodNotAllowed,
		Message:  "Method not allowed.",
		Category: model.CategoryValidation,
	})
}
