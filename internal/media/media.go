// Package media はファイルのアップロード、一覧、削除を提供する。
// アップロードはBlob書き込みとメタデータ挿入の2段階で、
// 挿入に失敗した場合は書き込んだBlobを補償削除する。
package media

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/folio/internal/model"
	"github.com/hitoshi/folio/internal/repository"
	"github.com/hitoshi/folio/internal/storage"
)

const table = "media"

// PathPrefix は保存パスの共通接頭辞。
const PathPrefix = "media/"

// エラーコード
const (
	ErrCodeNoFile           = "MEDIA_NO_FILE"
	ErrCodeUploadValidation = "UPLOAD_VALIDATION_FAILED"
	ErrCodeUploadType       = "UPLOAD_ERROR"
	ErrCodeUploadFailed     = "MEDIA_UPLOAD_ERROR"
	ErrCodeSaveFailed       = "MEDIA_SAVE_FAILED"
	ErrCodeListFailed       = "MEDIA_LIST_FAILED"
	ErrCodeIDRequired       = "MEDIA_ID_REQUIRED"
	ErrCodeDeleteFailed     = "MEDIA_DELETE_FAILED"
)

// Kind はアップロード経路ごとの制約。
type Kind struct {
	Name          string
	AllowedTypes  []string
	MaxBytes      int64
	TypeError     string
	NoFileMessage string
}

// Allows はcontentTypeがこの経路で受け付けられるかを返す。
func (k Kind) Allows(contentType string) bool {
	return slices.Contains(k.AllowedTypes, contentType)
}

var (
	// Image は画像アップロード（5MBまで）。
	Image = Kind{
		Name:          "image",
		AllowedTypes:  []string{"image/jpeg", "image/png", "image/webp", "image/gif", "image/svg+xml"},
		MaxBytes:      5 * 1024 * 1024,
		TypeError:     "Unsupported file type. Upload images only.",
		NoFileMessage: "Attach an image file to upload.",
	}

	// Resume はPDFの履歴書アップロード（10MBまで）。
	Resume = Kind{
		Name:          "resume",
		AllowedTypes:  []string{"application/pdf"},
		MaxBytes:      10 * 1024 * 1024,
		TypeError:     "Unsupported file type. Upload PDF resume only.",
		NoFileMessage: "Attach a PDF file to upload.",
	}
)

var extensionsByType = map[string]string{
	"image/jpeg":      "jpg",
	"image/png":       "png",
	"image/webp":      "webp",
	"image/gif":       "gif",
	"image/svg+xml":   "svg",
	"application/pdf": "pdf",
}

// File はアップロードされたファイル本体。
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// UploadInput はアップロード1件分の入力。
type UploadInput struct {
	File      *File
	Alt       string
	ProjectID string
	BlogID    string
	ServiceID string
}

// Recorder はアップロード関連のメトリクス記録先。
type Recorder interface {
	RecordUpload(kind string)
	RecordBlobCleanupFailure()
}

// Service はメディアの操作を提供する。
type Service struct {
	store    repository.TableStore
	blobs    storage.BlobStore
	recorder Recorder
	now      func() time.Time
}

// NewService はServiceを生成する。recorderはnilでもよい。
func NewService(store repository.TableStore, blobs storage.BlobStore, recorder Recorder) *Service {
	return &Service{
		store:    store,
		blobs:    blobs,
		recorder: recorder,
		now:      time.Now,
	}
}

// CheckFile はファイルの種類とサイズを経路の制約に照らして検証する。
// Blobストアへの書き込みより前に呼ぶ。
func CheckFile(kind Kind, contentType string, size int64) error {
	if !kind.Allows(contentType) {
		return model.NewValidationError(ErrCodeUploadType, kind.TypeError, "")
	}
	if size > kind.MaxBytes {
		return FileTooLarge()
	}
	return nil
}

// FileTooLarge はサイズ上限超過のエラーを返す。
func FileTooLarge() error {
	return model.NewValidationError(ErrCodeUploadValidation, "Upload failed: File too large", "")
}

// Upload はファイルを検証してBlobストアに書き込み、メタデータを保存する。
func (s *Service) Upload(ctx context.Context, kind Kind, in UploadInput) (model.Record, error) {
	if in.File == nil {
		return nil, model.NewValidationError(ErrCodeNoFile, kind.NoFileMessage, "")
	}
	if err := CheckFile(kind, in.File.ContentType, int64(len(in.File.Data))); err != nil {
		return nil, err
	}

	path := s.storagePath(in.File)
	if err := s.blobs.Put(ctx, path, in.File.Data, in.File.ContentType); err != nil {
		return nil, model.NewUpstreamError(ErrCodeUploadFailed, "Upload failed.", err)
	}

	m := model.Media{
		FileName:    in.File.Name,
		FileType:    in.File.ContentType,
		SizeBytes:   int64(len(in.File.Data)),
		StoragePath: path,
		URL:         s.blobs.PublicURL(path),
		Alt:         in.Alt,
		ProjectID:   in.ProjectID,
		BlogID:      in.BlogID,
		ServiceID:   in.ServiceID,
	}

	created, err := s.store.Insert(ctx, table, m.Record())
	if err != nil {
		slog.ErrorContext(ctx, "media metadata insert failed",
			slog.String("storage_path", path),
			slog.String("error", err.Error()),
		)
		if cleanupErr := s.removeBlob(ctx, path); cleanupErr != nil {
			s.logCleanupFailure(ctx, path, cleanupErr)
		}
		return nil, model.NewUpstreamError(ErrCodeSaveFailed, "Unable to save media metadata.", err)
	}

	if s.recorder != nil {
		s.recorder.RecordUpload(kind.Name)
	}
	return created, nil
}

// List はメディアの一覧を作成日時の降順で返す。
func (s *Service) List(ctx context.Context) ([]model.Record, error) {
	records, err := s.store.List(ctx, table, repository.ListQuery{})
	if err != nil {
		return nil, model.NewUpstreamError(ErrCodeListFailed, "Unable to load media library.", err)
	}
	return records, nil
}

// Delete はメタデータ行を削除し、成功した場合のみ記録済みのパスのBlobを削除する。
// Blob削除の失敗はログとメトリクスにのみ記録する。
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return model.NewValidationError(ErrCodeIDRequired, "Media ID is required.", "")
	}

	deleted, err := s.store.DeleteReturning(ctx, table, id)
	if err != nil {
		return model.NewUpstreamError(ErrCodeDeleteFailed, "Unable to delete media.", err)
	}

	if path := deleted.String("storage_path"); path != "" {
		if err := s.removeBlob(ctx, path); err != nil {
			s.logCleanupFailure(ctx, path, err)
		}
	}
	return nil
}

// removeBlob はリクエストのキャンセルに影響されずにBlobを削除する。
func (s *Service) removeBlob(ctx context.Context, path string) error {
	return s.blobs.Remove(context.WithoutCancel(ctx), path)
}

func (s *Service) logCleanupFailure(ctx context.Context, path string, err error) {
	slog.ErrorContext(ctx, "media blob cleanup failed",
		slog.String("storage_path", path),
		slog.String("error", err.Error()),
	)
	if s.recorder != nil {
		s.recorder.RecordBlobCleanupFailure()
	}
}

// storagePath は media/<年>/<uuid>.<拡張子> 形式の保存パスを生成する。
func (s *Service) storagePath(f *File) string {
	return fmt.Sprintf("%s%d/%s.%s", PathPrefix, s.now().Year(), uuid.NewString(), resolveExtension(f.Name, f.ContentType))
}

// resolveExtension はファイル名の拡張子を優先し、なければMIMEタイプから決める。
// どちらからも決まらない場合はpngとする。
func resolveExtension(name, contentType string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext != "" && isAlphanumeric(ext) {
		return ext
	}
	if ext, ok := extensionsByType[contentType]; ok {
		return ext
	}
	return "png"
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
