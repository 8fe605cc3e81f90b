package handler

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/folio/internal/media"
	"github.com/hitoshi/folio/internal/middleware"
	"github.com/hitoshi/folio/internal/model"
)

// multipartの付随フィールドの上限
const (
	maxFieldBytes     = 4 << 10
	multipartOverhead = 1 << 20
)

// MediaServiceInterface はメディアハンドラーが必要とするサービスインターフェース。
type MediaServiceInterface interface {
	Upload(ctx context.Context, kind media.Kind, in media.UploadInput) (model.Record, error)
	List(ctx context.Context) ([]model.Record, error)
	Delete(ctx context.Context, id string) error
}

// MediaHandler はアップロードとメディアライブラリのHTTPハンドラー。
type MediaHandler struct {
	service MediaServiceInterface
}

// NewMediaHandler はMediaHandlerを生成する。
func NewMediaHandler(service MediaServiceInterface) *MediaHandler {
	return &MediaHandler{service: service}
}

// Upload は経路の制約に従ってファイルを受け付けるハンドラーを生成する。
// POST /upload/image, POST /upload/resume
func (h *MediaHandler) Upload(kind media.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, kind.MaxBytes+multipartOverhead)

		in, err := readUpload(r, kind)
		if err != nil {
			middleware.WriteAPIError(w, r, err)
			return
		}

		created, err := h.service.Upload(r.Context(), kind, in)
		if err != nil {
			middleware.WriteAPIError(w, r, err)
			return
		}
		middleware.WriteSuccess(w, http.StatusCreated, "Upload successful.", created)
	}
}

// List はメディアライブラリを返す。
// GET /upload
func (h *MediaHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.List(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, r, err)
		return
	}
	if records == nil {
		records = []model.Record{}
	}
	middleware.WriteSuccess(w, http.StatusOK, "Media loaded.", records)
}

// Delete はメディアを削除する。
// DELETE /upload/{id}
func (h *MediaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		middleware.WriteAPIError(w, r, err)
		return
	}
	middleware.WriteSuccess(w, http.StatusOK, "Media removed.", nil)
}

// readUpload はmultipartボディをストリームで読み、UploadInputを組み立てる。
// ファイルパートは種類を先に検査し、上限+1バイトまでしか読まない。
// multipartでないリクエストはファイルなしとして扱う。
func readUpload(r *http.Request, kind media.Kind) (media.UploadInput, error) {
	var in media.UploadInput

	mr, err := r.MultipartReader()
	if err != nil {
		return in, nil
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return in, nil
		}
		if err != nil {
			return in, multipartError(err)
		}

		switch part.FormName() {
		case "file":
			// 2つ目以降のファイルパートは読み飛ばす
			if in.File == nil {
				in.File, err = readFilePart(part, kind)
			}
		case "alt":
			in.Alt, err = readField(part)
		case "project_id":
			in.ProjectID, err = readField(part)
		case "blog_id":
			in.BlogID, err = readField(part)
		case "service_id":
			in.ServiceID, err = readField(part)
		}
		part.Close()
		if err != nil {
			return in, multipartError(err)
		}
	}
}

func readFilePart(part *multipart.Part, kind media.Kind) (*media.File, error) {
	contentType := part.Header.Get("Content-Type")
	if err := media.CheckFile(kind, contentType, 0); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(part, kind.MaxBytes+1))
	if err != nil {
		return nil, multipartError(err)
	}
	if err := media.CheckFile(kind, contentType, int64(len(data))); err != nil {
		return nil, err
	}

	return &media.File{
		Name:        part.FileName(),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func readField(part *multipart.Part) (string, error) {
	b, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// multipartError は読み込み失敗をAPIエラーに変換する。
// ボディ全体の上限超過はファイルサイズ超過として扱う。
func multipartError(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return err
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return media.FileTooLarge()
	}
	return model.NewValidationError(media.ErrCodeUploadValidation, "Upload failed: "+err.Error(), "")
}
