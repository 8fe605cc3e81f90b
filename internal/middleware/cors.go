package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/hitoshi/folio/internal/model"
)

// NewCORSMiddleware は許可オリジンのリストに基づくCORSミドルウェアを返す。
// リストが空、または "*" を含む場合はすべてのオリジンを許可する。
// credentialsを許可するため、Allow-Originにはリクエストのオリジンをそのまま返す。
// Originヘッダーのないリクエスト（同一オリジン、サーバー間通信）は素通しする。
// OPTIONSプリフライトリクエストには204で応答する。
func NewCORSMiddleware(allowedOrigins []string) func(next http.Handler) http.Handler {
	allowAll := len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Add("Vary", "Origin")
			if !allowAll && !slices.Contains(allowedOrigins, strings.ToLower(origin)) {
				WriteError(w, http.StatusForbidden, &model.APIError{
					Code:     model.ErrCodeCORSOriginDenied,
					Message:  "Not allowed by CORS",
					Category: model.CategoryAuth,
				})
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, POST, PUT, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
