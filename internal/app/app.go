package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/folio/internal/auth"
	"github.com/hitoshi/folio/internal/config"
	"github.com/hitoshi/folio/internal/contact"
	"github.com/hitoshi/folio/internal/content"
	"github.com/hitoshi/folio/internal/database"
	"github.com/hitoshi/folio/internal/handler"
	"github.com/hitoshi/folio/internal/logger"
	"github.com/hitoshi/folio/internal/media"
	"github.com/hitoshi/folio/internal/metrics"
	"github.com/hitoshi/folio/internal/middleware"
	"github.com/hitoshi/folio/internal/repository"
	"github.com/hitoshi/folio/internal/security"
	"github.com/hitoshi/folio/internal/storage"
	"github.com/hitoshi/folio/internal/validation"
	"github.com/hitoshi/folio/internal/worker/cleanup"
)

// defaultPort はPORT未設定時のリッスンポート。
const defaultPort = "5000"

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, os.Getenv("LOG_LEVEL"))

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 未設定の項目は警告のみ。該当機能は実行時にエラーになる
	if missing := cfg.Missing(); len(missing) > 0 {
		slog.Warn("missing environment variables",
			slog.Any("keys", missing),
		)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = defaultPort
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// newBlobStore は設定からS3互換ストアを生成する。
func newBlobStore(ctx context.Context, cfg *config.Config) (*storage.S3Store, error) {
	store, err := storage.NewS3Store(ctx, storage.S3Config{
		Endpoint:        cfg.StorageEndpoint,
		Region:          cfg.StorageRegion,
		AccessKeyID:     cfg.StorageAccessKeyID,
		SecretAccessKey: cfg.StorageSecretAccessKey,
		Bucket:          cfg.StorageBucket,
		PublicURL:       cfg.StoragePublicURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return store, nil
}

// newRouterDeps は接続済みのDBとストアから全依存関係をワイヤリングする。
func newRouterDeps(cfg *config.Config, store *repository.PostgresTableStore, blobs storage.BlobStore, reg *prometheus.Registry) (*handler.RouterDeps, *middleware.RateLimiter, error) {
	collector := metrics.NewCollector(reg)

	validator, err := validation.NewValidator()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load request schemas: %w", err)
	}

	tokens := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.RefreshSecret,
	})
	authService := auth.NewService(tokens, auth.Credentials{
		AdminEmail:        cfg.AdminEmail,
		AdminPassword:     cfg.AdminPassword,
		PlaintextFallback: cfg.AdminPlaintextFallback,
	}, collector)

	limiter := middleware.NewRateLimiter(middleware.DefaultCleanupInterval)

	deps := &handler.RouterDeps{
		Logger:           slog.Default(),
		AllowedOrigins:   cfg.AllowedOrigins,
		TrustedProxies:   cfg.TrustedProxyPrefixes(),
		TokenVerifier:    tokens,
		Validator:        validator,
		RateLimiter:      limiter,
		LoginRateLimit:   cfg.RateLimitLogin,
		ContactRateLimit: cfg.RateLimitContact,
		HTTPRecorder:     collector,
		MetricsHandler:   metrics.Handler(reg),
		AuthService:      authService,
		ContentService:   content.NewService(store),
		MediaService:     media.NewService(store, blobs, collector),
		ContactService:   contact.NewService(store, security.NewTextSanitizer(), cfg.ContactNotificationEmail),
	}
	return deps, limiter, nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx := context.Background()

	// 1. DB接続
	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	// 2. ストアの初期化
	store := repository.NewPostgresTableStore(db)
	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		return err
	}

	// 3. メトリクスレジストリ
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// 4. サービスとルーターの構築
	deps, limiter, err := newRouterDeps(cfg, store, blobs, reg)
	if err != nil {
		return err
	}
	defer limiter.Stop()

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           handler.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("API server error", slog.String("error", err.Error()))
			serveErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		return fmt.Errorf("API server failed: %w", err)
	}
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 起動直後とORPHAN_SWEEP_INTERVALごとに孤立Blobの掃除を実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. DB接続
	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	// 2. ストアとジョブの初期化
	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	job := cleanup.NewOrphanSweepJob(blobs, repository.NewPostgresTableStore(db), slog.Default(), collector)
	job.GracePeriod = cfg.OrphanGracePeriod

	// 3. ワーカーのメトリクス公開（任意）
	if cfg.WorkerMetricsPort != "" {
		metricsServer := newWorkerMetricsServer(cfg.WorkerMetricsPort, reg)
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("worker metrics server error", slog.String("error", err.Error()))
			}
		}()
		defer metricsServer.Close()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	go func() {
		select {
		case <-stop:
			slog.Info("shutting down worker...")
			cancel()
		case <-ctx.Done():
		}
	}()

	slog.Info("worker starting",
		slog.Duration("sweep_interval", cfg.OrphanSweepInterval),
		slog.Duration("grace_period", cfg.OrphanGracePeriod),
	)

	runSweepLoop(ctx, job, cfg.OrphanSweepInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// newWorkerMetricsServer はワーカー用の/metricsのみを公開するサーバーを生成する。
func newWorkerMetricsServer(port string, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(gatherer))
	return &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// sweeper は定期実行するジョブ。
type sweeper interface {
	Run(ctx context.Context) (int, error)
}

// runSweepLoop は起動直後に1回、以降intervalごとにjobを実行する。
// ctxがキャンセルされるまでブロックする。
func runSweepLoop(ctx context.Context, job sweeper, interval time.Duration) {
	run := func() {
		if _, err := job.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("orphan sweep failed", slog.String("error", err.Error()))
		}
	}

	run()

	if interval <= 0 {
		slog.Error("orphan sweep interval must be positive; periodic sweep disabled",
			slog.Duration("interval", interval),
		)
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
