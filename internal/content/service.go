package content

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/hitoshi/folio/internal/model"
	"github.com/hitoshi/folio/internal/repository"
)

// aboutテーブルの定義
const (
	aboutTable          = "about"
	aboutConflictColumn = "id"
)

var aboutFields = []string{"id", "headline", "bio", "highlight", "resume_url", "profile_image_url", "socials"}

// Service は汎用リソースとaboutの操作を提供する。
type Service struct {
	store repository.TableStore
}

// NewService はServiceを生成する。
func NewService(store repository.TableStore) *Service {
	return &Service{store: store}
}

// List はリソースの一覧を作成日時の降順で返す。
func (s *Service) List(ctx context.Context, res Resource, search string) ([]model.Record, error) {
	records, err := s.store.List(ctx, res.Name, repository.ListQuery{
		Search:        strings.TrimSpace(search),
		SearchColumns: res.SearchColumns,
	})
	if err != nil {
		return nil, model.NewUpstreamError(
			model.ResourceCode(res.Name, "LIST_FAILED"),
			fmt.Sprintf("Unable to load %s.", res.Name),
			err,
		)
	}
	return records, nil
}

// Get はidまたはslugで1件を返す。
// 識別子の形ならid、それ以外はslugで検索する。ストアの失敗も404として扱う。
func (s *Service) Get(ctx context.Context, res Resource, idOrSlug string) (model.Record, error) {
	column := "slug"
	if IsCanonicalID(idOrSlug) {
		column = "id"
	}

	rec, err := s.store.FindOne(ctx, res.Name, column, idOrSlug)
	if err != nil {
		slog.WarnContext(ctx, "resource lookup failed",
			slog.String("resource", res.Name),
			slog.String("column", column),
			slog.String("error", err.Error()),
		)
	}
	if err != nil || rec == nil {
		return nil, model.NewNotFoundError(
			model.ResourceCode(res.Name, "NOT_FOUND"),
			fmt.Sprintf("%s not found.", res.Name),
		)
	}
	return rec, nil
}

// Create は許可リストに射影した内容で1件を作成する。
func (s *Service) Create(ctx context.Context, res Resource, body map[string]any) (model.Record, error) {
	payload, err := project(res.Name, body, res.CreateFields)
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, model.NewValidationError(
			model.ResourceCode(res.Name, "VALIDATION_FAILED"),
			"No valid fields supplied.",
			"",
		)
	}

	created, err := s.store.Insert(ctx, res.Name, payload)
	if err != nil {
		return nil, model.NewUpstreamError(
			model.ResourceCode(res.Name, "CREATE_FAILED"),
			fmt.Sprintf("Unable to create %s.", res.Name),
			err,
		)
	}
	return created, nil
}

// Update は指定idの行に許可リストに射影した内容を部分適用する。
// 対象行がない場合も含め、ストアの失敗はすべてUPDATE_FAILEDとする。
func (s *Service) Update(ctx context.Context, res Resource, id string, body map[string]any) (model.Record, error) {
	if id == "" {
		return nil, idRequired(res.Name)
	}

	payload, err := project(res.Name, body, res.UpdateFields)
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, model.NewValidationError(
			model.ResourceCode(res.Name, "VALIDATION_FAILED"),
			"Provide at least one field to update.",
			"",
		)
	}

	updated, err := s.store.Update(ctx, res.Name, id, payload)
	if err != nil {
		return nil, model.NewUpstreamError(
			model.ResourceCode(res.Name, "UPDATE_FAILED"),
			fmt.Sprintf("Unable to update %s.", res.Name),
			err,
		)
	}
	return updated, nil
}

// Delete は指定idの行を削除する。存在しないidでも成功として扱う。
func (s *Service) Delete(ctx context.Context, res Resource, id string) error {
	if id == "" {
		return idRequired(res.Name)
	}

	if err := s.store.Delete(ctx, res.Name, id); err != nil {
		return model.NewUpstreamError(
			model.ResourceCode(res.Name, "DELETE_FAILED"),
			fmt.Sprintf("Unable to delete from %s.", res.Name),
			err,
		)
	}
	return nil
}

// GetAbout は最も新しく更新されたaboutを返す。存在しない場合はnilを返す。
func (s *Service) GetAbout(ctx context.Context) (model.Record, error) {
	rec, err := s.store.Latest(ctx, aboutTable, "updated_at")
	if err != nil {
		return nil, model.NewUpstreamError("ABOUT_FETCH_FAILED", "Unable to load about section.", err)
	}
	return rec, nil
}

// UpsertAbout はidの衝突時に更新する形でaboutを保存する。
// headlineとbioは必須。highlightとsocialsは配列以外の場合に空配列へ置き換える。
func (s *Service) UpsertAbout(ctx context.Context, body map[string]any) (model.Record, error) {
	payload := model.Record{}
	for _, name := range aboutFields {
		if v, ok := body[name]; ok {
			payload[name] = v
		}
	}

	if !nonEmptyString(payload["headline"]) || !nonEmptyString(payload["bio"]) {
		return nil, model.NewValidationError("ABOUT_VALIDATION_FAILED", "Headline and bio are required.", "")
	}

	for _, name := range []string{"highlight", "socials"} {
		if v, ok := payload[name]; ok {
			if _, isList := v.([]any); !isList {
				payload[name] = []any{}
			}
		}
	}

	saved, err := s.store.Upsert(ctx, aboutTable, payload, aboutConflictColumn)
	if err != nil {
		return nil, model.NewUpstreamError("ABOUT_SAVE_FAILED", "Unable to save about content.", err)
	}
	return saved, nil
}

// project はbodyを許可リストに射影する。
// 許可外のフィールドは黙って捨て、型の合わない許可フィールドはVALIDATION_FAILEDとする。
func project(resource string, body map[string]any, fields []Field) (model.Record, error) {
	payload := model.Record{}
	var invalid []string
	for _, f := range fields {
		v, ok := body[f.Name]
		if !ok {
			continue
		}
		if !f.Accepts(v) {
			invalid = append(invalid, fmt.Sprintf("%s must be %s", f.Name, f.Kind))
			continue
		}
		payload[f.Name] = v
	}

	if len(invalid) > 0 {
		sort.Strings(invalid)
		return nil, model.NewValidationError(
			model.ResourceCode(resource, "VALIDATION_FAILED"),
			"Invalid field values supplied.",
			strings.Join(invalid, ", "),
		)
	}
	return payload, nil
}

func idRequired(resource string) error {
	return model.NewValidationError(
		model.ResourceCode(resource, "ID_REQUIRED"),
		"ID parameter is required.",
		"",
	)
}

// nonEmptyString は空文字列以外の文字列かを返す。空白のみの文字列は許容する。
func nonEmptyString(v any) bool {
	s, ok := v.(string)
	return ok && s != ""
}
