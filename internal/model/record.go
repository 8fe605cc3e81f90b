package model

// Record はリモートストアの1行を表す。
// 列名をキーとし、値はJSONとしてデコードされた値を保持する。
// idとcreated_at/updated_atはストアが採番・設定する。
type Record map[string]any

// ID はレコードのidを文字列として返す。存在しない場合は空文字列を返す。
func (r Record) ID() string {
	return r.String("id")
}

// String は指定列の値を文字列として返す。文字列以外の場合は空文字列を返す。
func (r Record) String(column string) string {
	if r == nil {
		return ""
	}
	s, _ := r[column].(string)
	return s
}
