package middleware

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/hitoshi/folio/internal/model"
	"github.com/hitoshi/folio/internal/validation"
)

// MaxJSONBodyBytes はmultipart以外のリクエストボディの上限。
const MaxJSONBodyBytes = 2 << 20

// SchemaValidator はスキーマ検証に必要なインターフェース。
// validation.Validatorの部分集合として定義する。
type SchemaValidator interface {
	ValidateJSON(schemaID string, doc []byte) ([]string, error)
	ValidateValues(schemaID string, values map[string]any) ([]string, error)
}

// ValidateBody はJSONボディをスキーマで検証するミドルウェアを返す。
// 違反があれば400 REQUEST_VALIDATION_FAILEDを返し、ハンドラーは呼ばない。
// 検証後のボディはハンドラーが再度読めるように差し戻す。
func ValidateBody(v SchemaValidator, schemaID string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := ReadJSONBody(w, r)
			if err != nil {
				WriteAPIError(w, r, err)
				return
			}

			issues, err := v.ValidateJSON(schemaID, body)
			if err != nil {
				WriteAPIError(w, r, err)
				return
			}
			if len(issues) > 0 {
				WriteError(w, http.StatusBadRequest, model.NewValidationError(
					model.ErrCodeRequestValidationFailed,
					"Validation failed.",
					validation.JoinIssues(issues),
				))
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}

// ValidateQuery はクエリパラメータをスキーマで検証するミドルウェアを返す。
// 同名のパラメータが複数ある場合は先頭の値を使う。
func ValidateQuery(v SchemaValidator, schemaID string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			values := make(map[string]any)
			for key, vals := range r.URL.Query() {
				if len(vals) > 0 {
					values[key] = vals[0]
				}
			}

			issues, err := v.ValidateValues(schemaID, values)
			if err != nil {
				WriteAPIError(w, r, err)
				return
			}
			if len(issues) > 0 {
				WriteError(w, http.StatusBadRequest, model.NewValidationError(
					model.ErrCodeQueryValidationFailed,
					"Query validation failed.",
					validation.JoinIssues(issues),
				))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ReadJSONBody はボディを上限付きで読み込み、JSONとして妥当かを確認する。
// 空のボディは空オブジェクトとして扱う。
func ReadJSONBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxJSONBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, model.NewInvalidRequestError(fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
		}
		return nil, model.NewInvalidRequestError(err.Error())
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return []byte("{}"), nil
	}
	if !json.Valid(body) {
		return nil, model.NewInvalidRequestError("malformed JSON")
	}
	return body, nil
}
