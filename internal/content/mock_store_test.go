package content

import (
	"context"

	"github.com/hitoshi/folio/internal/model"
	"github.com/hitoshi/folio/internal/repository"
)

// mockStore はrepository.TableStoreのモック。
type mockStore struct {
	listFn            func(ctx context.Context, table string, q repository.ListQuery) ([]model.Record, error)
	findOneFn         func(ctx context.Context, table, column, value string) (model.Record, error)
	latestFn          func(ctx context.Context, table, orderColumn string) (model.Record, error)
	insertFn          func(ctx context.Context, table string, rec model.Record) (model.Record, error)
	updateFn          func(ctx context.Context, table, id string, rec model.Record) (model.Record, error)
	deleteFn          func(ctx context.Context, table, id string) error
	deleteReturningFn func(ctx context.Context, table, id string) (model.Record, error)
	upsertFn          func(ctx context.Context, table string, rec model.Record, conflictColumn string) (model.Record, error)
}

var _ repository.TableStore = (*mockStore)(nil)

func (m *mockStore) List(ctx context.Context, table string, q repository.ListQuery) ([]model.Record, error) {
	if m.listFn != nil {
		return m.listFn(ctx, table, q)
	}
	return []model.Record{}, nil
}

func (m *mockStore) FindOne(ctx context.Context, table, column, value string) (model.Record, error) {
	if m.findOneFn != nil {
		return m.findOneFn(ctx, table, column, value)
	}
	return nil, nil
}

func (m *mockStore) Latest(ctx context.Context, table, orderColumn string) (model.Record, error) {
	if m.latestFn != nil {
		return m.latestFn(ctx, table, orderColumn)
	}
	return nil, nil
}

func (m *mockStore) Insert(ctx context.Context, table string, rec model.Record) (model.Record, error) {
	if m.insertFn != nil {
		return m.insertFn(ctx, table, rec)
	}
	return rec, nil
}

func (m *mockStore) Update(ctx context.Context, table, id string, rec model.Record) (model.Record, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, table, id, rec)
	}
	return rec, nil
}

func (m *mockStore) Delete(ctx context.Context, table, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, table, id)
	}
	return nil
}

func (m *mockStore) DeleteReturning(ctx context.Context, table, id string) (model.Record, error) {
	if m.deleteReturningFn != nil {
		return m.deleteReturningFn(ctx, table, id)
	}
	return nil, repository.ErrNoRows
}

func (m *mockStore) Upsert(ctx context.Context, table string, rec model.Record, conflictColumn string) (model.Record, error) {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, table, rec, conflictColumn)
	}
	return rec, nil
}
