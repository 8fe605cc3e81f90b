// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/folio/internal/model"
)

// ErrNoRows は対象行が存在しなかったことを表す。
// Update / DeleteReturning で返し、呼び出し側は上流エラーとして扱う。
var ErrNoRows = errors.New("no rows in result set")

// ListQuery は一覧取得の条件を表す。
type ListQuery struct {
	// Search は部分一致検索語。空の場合は絞り込まない。
	Search string
	// SearchColumns はSearchを大文字小文字を区別せずORで照合する列。
	SearchColumns []string
	// OrderBy は降順ソートに使う列。空の場合はcreated_at。
	OrderBy string
}

// TableStore はテーブル単位のレコード操作インターフェース。
// 列名の検証は呼び出し側（許可リスト）の責務とする。
type TableStore interface {
	// List は条件に合う全行を返す。ページングは行わない。
	List(ctx context.Context, table string, q ListQuery) ([]model.Record, error)

	// FindOne は column = value の先頭行を返す。見つからない場合はnilを返す。
	FindOne(ctx context.Context, table, column, value string) (model.Record, error)

	// Latest は orderColumn の降順で先頭の行を返す。空テーブルの場合はnilを返す。
	Latest(ctx context.Context, table, orderColumn string) (model.Record, error)

	// Insert は1行を挿入し、採番後の行を返す。
	Insert(ctx context.Context, table string, rec model.Record) (model.Record, error)

	// Update は指定idの行に部分更新を適用し、更新後の行を返す。
	// 対象行がない場合はErrNoRowsを返す。
	Update(ctx context.Context, table, id string, rec model.Record) (model.Record, error)

	// Delete は指定idの行を削除する。対象行がなくてもエラーにしない。
	Delete(ctx context.Context, table, id string) error

	// DeleteReturning は指定idの行を削除し、削除前の行を返す。
	// 対象行がない場合はErrNoRowsを返す。
	DeleteReturning(ctx context.Context, table, id string) (model.Record, error)

	// Upsert は conflictColumn の衝突時に更新する形で1行を書き込む。
	Upsert(ctx context.Context, table string, rec model.Record, conflictColumn string) (model.Record, error)
}

// MediaPathIndex は保存済みメディアのパス参照を照会するインターフェース。
// 孤立Blobの掃除ジョブが使用する。
type MediaPathIndex interface {
	// ReferencedPaths は渡したパスのうちmediaテーブルに存在するものを返す。
	ReferencedPaths(ctx context.Context, paths []string) (map[string]bool, error)
}
