package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/lib/pq"

	"github.com/hitoshi/folio/internal/model"
)

// PostgresTableStore はPostgreSQLを使用したTableStore実装。
// 行はrow_to_jsonでJSONとして取り出し、model.Recordにデコードする。
type PostgresTableStore struct {
	db *sql.DB
}

// NewPostgresTableStore はPostgresTableStoreを生成する。
func NewPostgresTableStore(db *sql.DB) *PostgresTableStore {
	return &PostgresTableStore{db: db}
}

// List は条件に合う全行を降順で返す。
func (s *PostgresTableStore) List(ctx context.Context, table string, q ListQuery) ([]model.Record, error) {
	query, args := buildListQuery(table, q)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}
	defer rows.Close()

	records := []model.Record{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		rec, err := decodeRecord(raw)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s rows: %w", table, err)
	}

	return records, nil
}

// FindOne は column = value の先頭行を返す。見つからない場合はnilを返す。
func (s *PostgresTableStore) FindOne(ctx context.Context, table, column, value string) (model.Record, error) {
	query := fmt.Sprintf(
		"SELECT row_to_json(t) FROM %s t WHERE %s = $1 LIMIT 1",
		pq.QuoteIdentifier(table), pq.QuoteIdentifier(column),
	)
	rec, err := s.queryRecord(ctx, query, value)
	if errors.Is(err, ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find %s by %s: %w", table, column, err)
	}
	return rec, nil
}

// Latest は orderColumn の降順で先頭の行を返す。空テーブルの場合はnilを返す。
func (s *PostgresTableStore) Latest(ctx context.Context, table, orderColumn string) (model.Record, error) {
	query := fmt.Sprintf(
		"SELECT row_to_json(t) FROM %s t ORDER BY %s DESC LIMIT 1",
		pq.QuoteIdentifier(table), pq.QuoteIdentifier(orderColumn),
	)
	rec, err := s.queryRecord(ctx, query)
	if errors.Is(err, ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest %s: %w", table, err)
	}
	return rec, nil
}

// Insert は1行を挿入し、採番後の行を返す。
func (s *PostgresTableStore) Insert(ctx context.Context, table string, rec model.Record) (model.Record, error) {
	query, args, err := buildInsertQuery(table, rec)
	if err != nil {
		return nil, err
	}
	created, err := s.queryRecord(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return created, nil
}

// Update は指定idの行に部分更新を適用し、更新後の行を返す。
func (s *PostgresTableStore) Update(ctx context.Context, table, id string, rec model.Record) (model.Record, error) {
	query, args, err := buildUpdateQuery(table, id, rec)
	if err != nil {
		return nil, err
	}
	updated, err := s.queryRecord(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", table, err)
	}
	return updated, nil
}

// Delete は指定idの行を削除する。
func (s *PostgresTableStore) Delete(ctx context.Context, table, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", pq.QuoteIdentifier(table))
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}

// DeleteReturning は指定idの行を削除し、削除前の行を返す。
func (s *PostgresTableStore) DeleteReturning(ctx context.Context, table, id string) (model.Record, error) {
	query := fmt.Sprintf(
		"DELETE FROM %s t WHERE t.id = $1 RETURNING row_to_json(t)",
		pq.QuoteIdentifier(table),
	)
	deleted, err := s.queryRecord(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return deleted, nil
}

// Upsert は conflictColumn の衝突時に更新する形で1行を書き込む。
func (s *PostgresTableStore) Upsert(ctx context.Context, table string, rec model.Record, conflictColumn string) (model.Record, error) {
	query, args, err := buildUpsertQuery(table, rec, conflictColumn)
	if err != nil {
		return nil, err
	}
	saved, err := s.queryRecord(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert %s: %w", table, err)
	}
	return saved, nil
}

// ReferencedPaths は渡したパスのうちmediaテーブルに存在するものを返す。
func (s *PostgresTableStore) ReferencedPaths(ctx context.Context, paths []string) (map[string]bool, error) {
	found := make(map[string]bool, len(paths))
	if len(paths) == 0 {
		return found, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT storage_path FROM media WHERE storage_path = ANY($1)`,
		pq.Array(paths),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query media paths: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan media path: %w", err)
		}
		found[p] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate media paths: %w", err)
	}
	return found, nil
}

func (s *PostgresTableStore) queryRecord(ctx context.Context, query string, args ...any) (model.Record, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, err
	}
	return decodeRecord(raw)
}

func decodeRecord(raw []byte) (model.Record, error) {
	rec := model.Record{}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode row: %w", err)
	}
	return rec, nil
}

// buildListQuery は一覧取得SQLを組み立てる。
// 検索語はLIKEのワイルドカードをエスケープし、部分一致として扱う。
func buildListQuery(table string, q ListQuery) (string, []any) {
	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = "created_at"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT row_to_json(t) FROM %s t", pq.QuoteIdentifier(table))

	var args []any
	if q.Search != "" && len(q.SearchColumns) > 0 {
		conds := make([]string, 0, len(q.SearchColumns))
		for _, col := range q.SearchColumns {
			conds = append(conds, fmt.Sprintf("t.%s::text ILIKE $1", pq.QuoteIdentifier(col)))
		}
		b.WriteString(" WHERE " + strings.Join(conds, " OR "))
		args = append(args, "%"+escapeLike(q.Search)+"%")
	}

	fmt.Fprintf(&b, " ORDER BY t.%s DESC", pq.QuoteIdentifier(orderBy))
	return b.String(), args
}

func buildInsertQuery(table string, rec model.Record) (string, []any, error) {
	cols := sortedColumns(rec)
	if len(cols) == 0 {
		return fmt.Sprintf(
			"INSERT INTO %s AS t DEFAULT VALUES RETURNING row_to_json(t)",
			pq.QuoteIdentifier(table),
		), nil, nil
	}

	quoted := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		v, err := bindValue(rec[col])
		if err != nil {
			return "", nil, fmt.Errorf("invalid value for %s: %w", col, err)
		}
		quoted[i] = pq.QuoteIdentifier(col)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = v
	}

	query := fmt.Sprintf(
		"INSERT INTO %s AS t (%s) VALUES (%s) RETURNING row_to_json(t)",
		pq.QuoteIdentifier(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "),
	)
	return query, args, nil
}

// buildUpdateQuery は部分更新SQLを組み立てる。updated_atは常に現在時刻に更新する。
func buildUpdateQuery(table, id string, rec model.Record) (string, []any, error) {
	cols := sortedColumns(rec)
	if len(cols) == 0 {
		return "", nil, fmt.Errorf("no columns to update")
	}

	sets := make([]string, 0, len(cols)+1)
	args := make([]any, 0, len(cols)+1)
	for _, col := range cols {
		if col == "id" || col == "updated_at" {
			continue
		}
		v, err := bindValue(rec[col])
		if err != nil {
			return "", nil, fmt.Errorf("invalid value for %s: %w", col, err)
		}
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(col), len(args)))
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, id)

	query := fmt.Sprintf(
		"UPDATE %s AS t SET %s WHERE t.id = $%d RETURNING row_to_json(t)",
		pq.QuoteIdentifier(table), strings.Join(sets, ", "), len(args),
	)
	return query, args, nil
}

func buildUpsertQuery(table string, rec model.Record, conflictColumn string) (string, []any, error) {
	insert, args, err := buildInsertQuery(table, rec)
	if err != nil {
		return "", nil, err
	}
	cols := sortedColumns(rec)
	if len(cols) == 0 {
		return insert, args, nil
	}

	updates := make([]string, 0, len(cols)+1)
	for _, col := range cols {
		if col == conflictColumn || col == "updated_at" {
			continue
		}
		q := pq.QuoteIdentifier(col)
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", q, q))
	}
	updates = append(updates, "updated_at = now()")

	returning := " RETURNING row_to_json(t)"
	query := strings.TrimSuffix(insert, returning) + fmt.Sprintf(
		" ON CONFLICT (%s) DO UPDATE SET %s%s",
		pq.QuoteIdentifier(conflictColumn), strings.Join(updates, ", "), returning,
	)
	return query, args, nil
}

// bindValue はRecordの値をドライバに渡せる形へ変換する。
// スライスとマップはjsonb列向けにJSON文字列へ変換する。
func bindValue(v any) (any, error) {
	switch val := v.(type) {
	case nil, string, bool, float64, int, int64:
		return val, nil
	case []any, map[string]any, []string:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

func sortedColumns(rec model.Record) []string {
	cols := make([]string, 0, len(rec))
	for col := range rec {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
