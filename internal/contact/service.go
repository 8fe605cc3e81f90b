// Package contact は公開コンタクトフォームの受付と、受信メッセージの管理を提供する。
package contact

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hitoshi/folio/internal/model"
	"github.com/hitoshi/folio/internal/repository"
	"github.com/hitoshi/folio/internal/security"
)

const table = "messages"

// エラーコード
const (
	ErrCodeSubmitFailed = "CONTACT_SUBMIT_FAILED"
	ErrCodeListFailed   = "CONTACT_LIST_FAILED"
	ErrCodeIDRequired   = "MESSAGES_ID_REQUIRED"
	ErrCodeDeleteFailed = "MESSAGES_DELETE_FAILED"
)

var searchColumns = []string{"fullname", "email"}

// Service はメッセージの操作を提供する。
type Service struct {
	store       repository.TableStore
	sanitizer   security.TextSanitizer
	notifyEmail string
}

// NewService はServiceを生成する。
// notifyEmailは受信ログに添える通知先で、空でもよい。
func NewService(store repository.TableStore, sanitizer security.TextSanitizer, notifyEmail string) *Service {
	return &Service{
		store:       store,
		sanitizer:   sanitizer,
		notifyEmail: notifyEmail,
	}
}

// Submit はメッセージのマークアップを除去して保存する。
func (s *Service) Submit(ctx context.Context, msg model.Message) (model.Record, error) {
	clean := model.Message{
		FullName: s.sanitizer.Sanitize(msg.FullName),
		Email:    strings.TrimSpace(msg.Email),
		Subject:  s.sanitizer.Sanitize(msg.Subject),
		Body:     s.sanitizer.Sanitize(msg.Body),
	}

	created, err := s.store.Insert(ctx, table, clean.Record())
	if err != nil {
		return nil, model.NewUpstreamError(ErrCodeSubmitFailed, "Unable to submit message.", err)
	}

	slog.InfoContext(ctx, "contact message received",
		slog.String("id", created.ID()),
		slog.String("notification_email", s.notifyEmail),
	)
	return created, nil
}

// List はメッセージを新しい順に返す。searchは氏名とメールアドレスの部分一致。
func (s *Service) List(ctx context.Context, search string) ([]model.Record, error) {
	records, err := s.store.List(ctx, table, repository.ListQuery{
		Search:        strings.TrimSpace(search),
		SearchColumns: searchColumns,
	})
	if err != nil {
		return nil, model.NewUpstreamError(ErrCodeListFailed, "Failed to load messages.", err)
	}
	return records, nil
}

// Delete はメッセージを1件削除する。
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return model.NewValidationError(ErrCodeIDRequired, "ID parameter is required.", "")
	}
	if err := s.store.Delete(ctx, table, id); err != nil {
		return model.NewUpstreamError(ErrCodeDeleteFailed, "Unable to delete message.", err)
	}
	return nil
}
