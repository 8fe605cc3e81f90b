package handler

import (
	"context"

	"github.com/hitoshi/folio/internal/auth"
	"github.com/hitoshi/folio/internal/content"
	"github.com/hitoshi/folio/internal/media"
	"github.com/hitoshi/folio/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	loginFn   func(ctx context.Context, email, password string) (*auth.LoginResult, error)
	refreshFn func(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*auth.LoginResult, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return &auth.LoginResult{}, nil
}

func (m *mockAuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	if m.refreshFn != nil {
		return m.refreshFn(ctx, refreshToken)
	}
	return &auth.TokenPair{}, nil
}

type mockContentService struct {
	listFn        func(ctx context.Context, res content.Resource, search string) ([]model.Record, error)
	getFn         func(ctx context.Context, res content.Resource, idOrSlug string) (model.Record, error)
	createFn      func(ctx context.Context, res content.Resource, body map[string]any) (model.Record, error)
	updateFn      func(ctx context.Context, res content.Resource, id string, body map[string]any) (model.Record, error)
	deleteFn      func(ctx context.Context, res content.Resource, id string) error
	getAboutFn    func(ctx context.Context) (model.Record, error)
	upsertAboutFn func(ctx context.Context, body map[string]any) (model.Record, error)
}

func (m *mockContentService) List(ctx context.Context, res content.Resource, search string) ([]model.Record, error) {
	if m.listFn != nil {
		return m.listFn(ctx, res, search)
	}
	return nil, nil
}

func (m *mockContentService) Get(ctx context.Context, res content.Resource, idOrSlug string) (model.Record, error) {
	if m.getFn != nil {
		return m.getFn(ctx, res, idOrSlug)
	}
	return model.Record{}, nil
}

func (m *mockContentService) Create(ctx context.Context, res content.Resource, body map[string]any) (model.Record, error) {
	if m.createFn != nil {
		return m.createFn(ctx, res, body)
	}
	return model.Record(body), nil
}

func (m *mockContentService) Update(ctx context.Context, res content.Resource, id string, body map[string]any) (model.Record, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, res, id, body)
	}
	return model.Record(body), nil
}

func (m *mockContentService) Delete(ctx context.Context, res content.Resource, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, res, id)
	}
	return nil
}

func (m *mockContentService) GetAbout(ctx context.Context) (model.Record, error) {
	if m.getAboutFn != nil {
		return m.getAboutFn(ctx)
	}
	return nil, nil
}

func (m *mockContentService) UpsertAbout(ctx context.Context, body map[string]any) (model.Record, error) {
	if m.upsertAboutFn != nil {
		return m.upsertAboutFn(ctx, body)
	}
	return model.Record(body), nil
}

type mockMediaService struct {
	uploadFn func(ctx context.Context, kind media.Kind, in media.UploadInput) (model.Record, error)
	listFn   func(ctx context.Context) ([]model.Record, error)
	deleteFn func(ctx context.Context, id string) error
}

func (m *mockMediaService) Upload(ctx context.Context, kind media.Kind, in media.UploadInput) (model.Record, error) {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, kind, in)
	}
	return model.Record{"id": "media-1"}, nil
}

func (m *mockMediaService) List(ctx context.Context) ([]model.Record, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockMediaService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockContactService struct {
	submitFn func(ctx context.Context, msg model.Message) (model.Record, error)
	listFn   func(ctx context.Context, search string) ([]model.Record, error)
	deleteFn func(ctx context.Context, id string) error
}

func (m *mockContactService) Submit(ctx context.Context, msg model.Message) (model.Record, error) {
	if m.submitFn != nil {
		return m.submitFn(ctx, msg)
	}
	return msg.Record(), nil
}

func (m *mockContactService) List(ctx context.Context, search string) ([]model.Record, error) {
	if m.listFn != nil {
		return m.listFn(ctx, search)
	}
	return nil, nil
}

func (m *mockContactService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}
