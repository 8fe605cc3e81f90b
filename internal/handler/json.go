// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/hitoshi/folio/internal/middleware"
	"github.com/hitoshi/folio/internal/model"
)

// decodeBody はJSONボディを上限付きで読み込み、dstへデコードする。
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := middleware.ReadJSONBody(w, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return model.NewInvalidRequestError(err.Error())
	}
	return nil
}

// decodeObject はJSONオブジェクトのボディを汎用マップとして読み込む。
// オブジェクト以外（配列、文字列など）はINVALID_REQUESTとする。
func decodeObject(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	var body map[string]any
	if err := decodeBody(w, r, &body); err != nil {
		return nil, err
	}
	if body == nil {
		return nil, model.NewInvalidRequestError("request body must be a JSON object")
	}
	return body, nil
}
