package handler

import (
	"log/slog"
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/folio/internal/content"
	"github.com/hitoshi/folio/internal/media"
	"github.com/hitoshi/folio/internal/middleware"
	"github.com/hitoshi/folio/internal/validation"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger           *slog.Logger
	AllowedOrigins   []string
	TrustedProxies   []netip.Prefix // 転送ヘッダーを信頼する接続元。空なら無視する
	TokenVerifier    middleware.TokenVerifier
	Validator        middleware.SchemaValidator
	RateLimiter      *middleware.RateLimiter
	LoginRateLimit   int // req/min, 0で無効
	ContactRateLimit int // req/min, 0で無効

	// メトリクス（nilなら無効）
	HTTPRecorder   middleware.HTTPRecorder
	MetricsHandler http.Handler

	// サービス
	AuthService    AuthServiceInterface
	ContentService ContentServiceInterface
	MediaService   MediaServiceInterface
	ContactService ContactServiceInterface

	// 汎用リソース。nilならcontent.Resources()を使う
	Resources []content.Resource
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RealIP → Logging → Metrics → SecurityHeaders → CORS
//
// 保護ルートでは加えてAuthMiddlewareを通す。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewTrustedRealIPMiddleware(deps.TrustedProxies))
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.HTTPRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPRecorder))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.AllowedOrigins))

	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)

	requireAuth := middleware.NewAuthMiddleware(deps.TokenVerifier)
	limit := func(name string, perMinute int) func(http.Handler) http.Handler {
		if deps.RateLimiter == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return deps.RateLimiter.PerMinute(name, perMinute)
	}

	authHandler := NewAuthHandler(deps.AuthService)
	contentHandler := NewContentHandler(deps.ContentService)
	mediaHandler := NewMediaHandler(deps.MediaService)
	contactHandler := NewContactHandler(deps.ContactService)

	// --- 運用 ---
	r.Get("/health", Health)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- 認証 ---
	r.Route("/auth", func(r chi.Router) {
		r.With(
			limit("login", deps.LoginRateLimit),
			middleware.ValidateBody(deps.Validator, validation.SchemaLogin),
		).Post("/login", authHandler.Login)
		r.With(
			middleware.ValidateBody(deps.Validator, validation.SchemaRefresh),
		).Post("/refresh", authHandler.Refresh)
	})

	// --- コンタクト ---
	r.With(
		limit("contact", deps.ContactRateLimit),
		middleware.ValidateBody(deps.Validator, validation.SchemaContact),
	).Post("/contact", contactHandler.Submit)

	r.Route("/messages", func(r chi.Router) {
		r.Use(requireAuth)
		r.With(middleware.ValidateQuery(deps.Validator, validation.SchemaMessageList)).Get("/", contactHandler.List)
		r.Delete("/{id}", contactHandler.Delete)
	})

	// --- メディア ---
	r.Route("/upload", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", mediaHandler.List)
		r.Post("/image", mediaHandler.Upload(media.Image))
		r.Post("/resume", mediaHandler.Upload(media.Resume))
		r.Delete("/{id}", mediaHandler.Delete)
	})

	// --- コンテンツ ---
	r.Get("/about", contentHandler.GetAbout)
	r.With(requireAuth).Put("/about", contentHandler.UpsertAbout)

	resources := deps.Resources
	if resources == nil {
		resources = content.Resources()
	}
	for _, res := range resources {
		r.Route("/"+res.Name, func(r chi.Router) {
			r.Get("/", contentHandler.List(res))
			if res.SlugLookup {
				r.Get("/{idOrSlug}", contentHandler.Get(res))
			}
			r.With(requireAuth).Post("/", contentHandler.Create(res))
			r.With(requireAuth).Put("/{id}", contentHandler.Update(res))
			r.With(requireAuth).Delete("/{id}", contentHandler.Delete(res))
		})
	}

	return r
}
