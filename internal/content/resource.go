// Package content は汎用リソースのCRUDとaboutシングルトンを提供する。
package content

import (
	"regexp"
	"time"
)

// FieldKind は許可フィールドが受け付けるJSON値の種類。
type FieldKind int

const (
	KindText FieldKind = iota
	KindInteger
	KindBoolean
	KindDate      // YYYY-MM-DD
	KindTimestamp // RFC3339 または YYYY-MM-DD
	KindList      // JSON配列
)

func (k FieldKind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	case KindDate:
		return "date"
	case KindTimestamp:
		return "timestamp"
	case KindList:
		return "list"
	default:
		return "text"
	}
}

// Field は許可リストの1項目。
type Field struct {
	Name string
	Kind FieldKind
}

// Accepts はvがこのフィールドの値として受け入れ可能かを返す。nullは常に受け入れる。
func (f Field) Accepts(v any) bool {
	if v == nil {
		return true
	}
	switch f.Kind {
	case KindText:
		_, ok := v.(string)
		return ok
	case KindInteger:
		n, ok := v.(float64)
		return ok && n == float64(int64(n))
	case KindBoolean:
		_, ok := v.(bool)
		return ok
	case KindDate:
		s, ok := v.(string)
		if !ok {
			return false
		}
		_, err := time.Parse(time.DateOnly, s)
		return err == nil
	case KindTimestamp:
		s, ok := v.(string)
		if !ok {
			return false
		}
		if _, err := time.Parse(time.RFC3339, s); err == nil {
			return true
		}
		_, err := time.Parse(time.DateOnly, s)
		return err == nil
	case KindList:
		_, ok := v.([]any)
		return ok
	default:
		return false
	}
}

// Resource は汎用CRUDの対象となるテーブルの定義。
type Resource struct {
	Name          string   // テーブル名。エラーコードの接頭辞にも使う
	CreateFields  []Field  // 作成時の許可フィールド
	UpdateFields  []Field  // 更新時の許可フィールド
	SearchColumns []string // 一覧の部分一致検索対象
	SlugLookup    bool     // idまたはslugでの単体取得を公開するか
}

// canonicalIDPattern はidとして扱う識別子の形（16進数とハイフンの36文字）。
var canonicalIDPattern = regexp.MustCompile(`^[0-9a-fA-F-]{36}$`)

// IsCanonicalID はsがid検索の対象となる形かを返す。それ以外はslugとして扱う。
func IsCanonicalID(s string) bool {
	return canonicalIDPattern.MatchString(s)
}

func text(name string) Field { return Field{Name: name, Kind: KindText} }
func integer(name string) Field { return Field{Name: name, Kind: KindInteger} }
func boolean(name string) Field { return Field{Name: name, Kind: KindBoolean} }
func date(name string) Field { return Field{Name: name, Kind: KindDate} }
func timestamp(name string) Field { return Field{Name: name, Kind: KindTimestamp} }
func list(name string) Field { return Field{Name: name, Kind: KindList} }

// sameFields は作成と更新で同じ許可リストを使うリソースを組み立てる。
func sameFields(name string, search []string, slug bool, fields ...Field) Resource {
	return Resource{
		Name:          name,
		CreateFields:  fields,
		UpdateFields:  fields,
		SearchColumns: search,
		SlugLookup:    slug,
	}
}

var (
	Skills = sameFields("skills", []string{"name", "category"}, false,
		text("name"), text("category"), integer("proficiency"), text("icon_url"),
	)

	Projects = sameFields("projects", []string{"title", "summary"}, true,
		text("title"), text("slug"), text("summary"), text("description"),
		text("live_url"), text("repo_url"), text("preview_image_url"), text("preview_url"),
		list("tech_stack"), boolean("featured"), date("started_on"), date("completed_on"),
	)

	Blogs = sameFields("blogs", []string{"title", "excerpt"}, true,
		text("title"), text("slug"), text("excerpt"), text("content"),
		timestamp("published_at"), text("preview_image_url"), text("readme"), text("status"),
	)

	Experience = sameFields("experience", []string{"company", "title"}, false,
		text("company"), text("title"), date("start_date"), date("end_date"),
		text("location"), text("description"), list("skills"),
	)

	Education = sameFields("education", []string{"institution", "degree", "field"}, false,
		text("institution"), text("degree"), text("field"), date("start_date"), date("end_date"),
		text("location"), text("description"), list("skills"),
	)

	Awards = sameFields("awards", []string{"title", "issuer"}, false,
		text("title"), text("issuer"), date("issued_on"), text("location"), text("description"),
	)

	Certificates = sameFields("certificates", []string{"title", "issuer"}, false,
		text("title"), text("issuer"), date("issued_on"),
		text("credential_id"), text("credential_url"), text("description"),
	)

	Testimonials = sameFields("testimonials", []string{"author", "company"}, false,
		text("author"), text("role"), text("company"), text("content"), boolean("highlight"),
	)

	Services = sameFields("services", []string{"title", "description"}, false,
		text("title"), text("description"), text("price_range"), text("duration"), text("image_url"),
	)
)

// Resources はルーターに公開する汎用リソースの一覧を返す。
func Resources() []Resource {
	return []Resource{
		Skills, Projects, Blogs, Experience, Education,
		Awards, Certificates, Testimonials, Services,
	}
}
