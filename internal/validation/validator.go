// Package validation はリクエストのボディとクエリをJSON Schemaで検証する。
package validation

import (
	"embed"
	"fmt"
	"slices"
	"strings"

	"github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"
)

// 組み込みスキーマのID
const (
	SchemaLogin       = "login"
	SchemaRefresh     = "refresh"
	SchemaContact     = "contact"
	SchemaMessageList = "message-list"
)

// rootField はドキュメント全体に対する違反のフィールド名。
const rootField = "(root)"

//go:embed schemas/*.json
var schemaFS embed.FS

// Validator はスキーマIDごとにコンパイル済みのスキーマを保持する。
type Validator struct {
	schemas  map[string]*gojsonschema.Schema
	messages map[string]map[string]string
}

// schemaHeader はスキーマ本体のうち、gojsonschemaが扱わない項目。
// x-messages はプロパティごとの利用者向けメッセージ。
type schemaHeader struct {
	ID       string            `json:"$id"`
	Messages map[string]string `json:"x-messages"`
}

// NewValidator は組み込みスキーマを読み込んでValidatorを生成する。
func NewValidator() (*Validator, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("failed to read schemas: %w", err)
	}

	var docs []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		b, err := schemaFS.ReadFile("schemas/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", e.Name(), err)
		}
		docs = append(docs, string(b))
	}
	return newValidator(docs)
}

func newValidator(docs []string) (*Validator, error) {
	v := &Validator{
		schemas:  make(map[string]*gojsonschema.Schema, len(docs)),
		messages: make(map[string]map[string]string, len(docs)),
	}
	for _, doc := range docs {
		var h schemaHeader
		if err := json.Unmarshal([]byte(doc), &h); err != nil {
			return nil, fmt.Errorf("failed to parse schema: %w", err)
		}
		if h.ID == "" {
			return nil, fmt.Errorf("schema does not contain $id")
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(doc))
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema %s: %w", h.ID, err)
		}
		v.schemas[h.ID] = schema
		v.messages[h.ID] = h.Messages
	}
	return v, nil
}

// ValidateJSON はJSONドキュメントを検証し、違反内容を返す。
// 違反がなければnilを返す。errorはドキュメントが解析できない場合とスキーマ未登録の場合のみ。
func (v *Validator) ValidateJSON(schemaID string, doc []byte) ([]string, error) {
	return v.validate(schemaID, gojsonschema.NewBytesLoader(doc))
}

// ValidateValues は値のマップ（クエリパラメータなど）を検証する。
func (v *Validator) ValidateValues(schemaID string, values map[string]any) ([]string, error) {
	return v.validate(schemaID, gojsonschema.NewGoLoader(values))
}

func (v *Validator) validate(schemaID string, loader gojsonschema.JSONLoader) ([]string, error) {
	schema, ok := v.schemas[schemaID]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", schemaID)
	}

	result, err := schema.Validate(loader)
	if err != nil {
		return nil, fmt.Errorf("failed to validate against %s: %w", schemaID, err)
	}
	if result.Valid() {
		return nil, nil
	}

	messages := v.messages[schemaID]
	var issues []string
	for _, e := range result.Errors() {
		msg := issueMessage(e, messages)
		if !slices.Contains(issues, msg) {
			issues = append(issues, msg)
		}
	}
	return issues, nil
}

// issueMessage は違反1件を利用者向けの文に変換する。
// プロパティにx-messagesの文言があればそれを使う。
func issueMessage(e gojsonschema.ResultError, messages map[string]string) string {
	field := e.Field()
	if e.Type() == "required" {
		if p, ok := e.Details()["property"].(string); ok {
			field = p
		}
	}
	if msg, ok := messages[field]; ok {
		return msg
	}
	if field == rootField {
		return e.Description()
	}
	return field + ": " + e.Description()
}

// JoinIssues は違反内容をレスポンスのdetails用に連結する。
func JoinIssues(issues []string) string {
	return strings.Join(issues, ", ")
}
