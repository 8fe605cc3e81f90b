package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/folio/internal/content"
	"github.com/hitoshi/folio/internal/middleware"
	"github.com/hitoshi/folio/internal/model"
)

// ContentServiceInterface はコンテンツハンドラーが必要とするサービスインターフェース。
type ContentServiceInterface interface {
	List(ctx context.Context, res content.Resource, search string) ([]model.Record, error)
	Get(ctx context.Context, res content.Resource, idOrSlug string) (model.Record, error)
	Create(ctx context.Context, res content.Resource, body map[string]any) (model.Record, error)
	Update(ctx context.Context, res content.Resource, id string, body map[string]any) (model.Record, error)
	Delete(ctx context.Context, res content.Resource, id string) error
	GetAbout(ctx context.Context) (model.Record, error)
	UpsertAbout(ctx context.Context, body map[string]any) (model.Record, error)
}

// ContentHandler は汎用リソースとaboutのHTTPハンドラー。
// リソースごとのハンドラーはcontent.Resourceを引数に生成する。
type ContentHandler struct {
	service ContentServiceInterface
}

// NewContentHandler はContentHandlerを生成する。
func NewContentHandler(service ContentServiceInterface) *ContentHandler {
	return &ContentHandler{service: service}
}

// List は一覧を返すハンドラーを生成する。?search= で部分一致検索する。
// GET /<resource>
func (h *ContentHandler) List(res content.Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := h.service.List(r.Context(), res, r.URL.Query().Get("search"))
		if err != nil {
			middleware.WriteAPIError(w, r, err)
			return
		}
		if records == nil {
			records = []model.Record{}
		}
		middleware.WriteSuccess(w, http.StatusOK, fmt.Sprintf("%s loaded.", res.Name), records)
	}
}

// Get はidまたはslugで1件を返すハンドラーを生成する。
// GET /<resource>/{idOrSlug}
func (h *ContentHandler) Get(res content.Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := h.service.Get(r.Context(), res, chi.URLParam(r, "idOrSlug"))
		if err != nil {
			middleware.WriteAPIError(w, r, err)
			return
		}
		middleware.WriteSuccess(w, http.StatusOK, fmt.Sprintf("%s fetched.", res.Name), rec)
	}
}

// Create は1件を作成するハンドラーを生成する。
// POST /<resource>
func (h *ContentHandler) Create(res content.Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := decodeObject(w, r)
		if err != nil {
			middleware.WriteAPIError(w, r, err)
			return
		}

		created, err := h.service.Create(r.Context(), res, body)
		if err != nil {
			middleware.WriteAPIError(w, r, err)
			return
		}
		middleware.WriteSuccess(w, http.StatusCreated, "Created successfully.", created)
	}
}

// Update は1件を部分更新するハンドラーを生成する。
// PUT /<resource>/{id}
func (h *ContentHandler) Update(res content.Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := decodeObject(w, r)
		if err != nil {
			middleware.WriteAPIError(w, r, err)
			return
		}

		updated, err := h.service.Update(r.Context(), res, chi.URLParam(r, "id"), body)
		if err != nil {
			middleware.WriteAPIError(w, r, err)
			return
		}
		middleware.WriteSuccess(w, http.StatusOK, "Updated successfully.", updated)
	}
}

// Delete は1件を削除するハンドラーを生成する。
// DELETE /<resource>/{id}
func (h *ContentHandler) Delete(res content.Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.service.Delete(r.Context(), res, chi.URLParam(r, "id")); err != nil {
			middleware.WriteAPIError(w, r, err)
			return
		}
		middleware.WriteSuccess(w, http.StatusOK, "Deleted successfully.", nil)
	}
}

// GetAbout はaboutを返す。未作成の場合のdataはnull。
// GET /about
func (h *ContentHandler) GetAbout(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.GetAbout(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, r, err)
		return
	}
	middleware.WriteSuccess(w, http.StatusOK, "About loaded.", rec)
}

// UpsertAbout はaboutを作成または更新する。
// PUT /about
func (h *ContentHandler) UpsertAbout(w http.ResponseWriter, r *http.Request) {
	body, err := decodeObject(w, r)
	if err != nil {
		middleware.WriteAPIError(w, r, err)
		return
	}

	saved, err := h.service.UpsertAbout(r.Context(), body)
	if err != nil {
		middleware.WriteAPIError(w, r, err)
		return
	}
	middleware.WriteSuccess(w, http.StatusOK, "About updated.", saved)
}
