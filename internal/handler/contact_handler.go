package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/folio/internal/middleware"
	"github.com/hitoshi/folio/internal/model"
)

// ContactServiceInterface はコンタクトハンドラーが必要とするサービスインターフェース。
type ContactServiceInterface interface {
	Submit(ctx context.Context, msg model.Message) (model.Record, error)
	List(ctx context.Context, search string) ([]model.Record, error)
	Delete(ctx context.Context, id string) error
}

// ContactHandler は公開コンタクトフォームと受信メッセージのHTTPハンドラー。
type ContactHandler struct {
	service ContactServiceInterface
}

// NewContactHandler はContactHandlerを生成する。
func NewContactHandler(service ContactServiceInterface) *ContactHandler {
	return &ContactHandler{service: service}
}

// Submit はコンタクトフォームの送信を受け付ける。
// POST /contact
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var msg model.Message
	if err := decodeBody(w, r, &msg); err != nil {
		middleware.WriteAPIError(w, r, err)
		return
	}

	created, err := h.service.Submit(r.Context(), msg)
	if err != nil {
		middleware.WriteAPIError(w, r, err)
		return
	}
	middleware.WriteSuccess(w, http.StatusCreated, "Message sent successfully. Expect a reply soon.", created)
}

// List は受信メッセージを返す。
// GET /messages
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.List(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		middleware.WriteAPIError(w, r, err)
		return
	}
	if records == nil {
		records = []model.Record{}
	}
	middleware.WriteSuccess(w, http.StatusOK, "Messages loaded.", records)
}

// Delete は受信メッセージを削除する。
// DELETE /messages/{id}
func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		middleware.WriteAPIError(w, r, err)
		return
	}
	middleware.WriteSuccess(w, http.StatusOK, "Deleted successfully.", nil)
}
