package config

import (
	"fmt"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Server
	ServerPort     string   `env:"PORT" envDefault:"5000"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","` // IPまたはCIDR

	// Database
	DatabaseURL string `env:"DATABASE_URL"`

	// Storage
	StorageEndpoint        string `env:"STORAGE_ENDPOINT"`
	StorageRegion          string `env:"STORAGE_REGION" envDefault:"us-east-1"`
	StorageAccessKeyID     string `env:"STORAGE_ACCESS_KEY_ID"`
	StorageSecretAccessKey string `env:"STORAGE_SECRET_ACCESS_KEY"`
	StorageBucket          string `env:"STORAGE_BUCKET" envDefault:"media"`
	StoragePublicURL       string `env:"STORAGE_PUBLIC_URL"`

	// Auth
	JWTSecret                string `env:"APP_JWT_SECRET"`
	RefreshSecret            string `env:"APP_REFRESH_SECRET"`
	AdminEmail               string `env:"APP_ADMIN_EMAIL"`
	AdminPassword            string `env:"APP_ADMIN_PASSWORD"`
	AdminPlaintextFallback   bool   `env:"APP_ADMIN_PLAINTEXT_FALLBACK" envDefault:"false"`
	ContactNotificationEmail string `env:"CONTACT_NOTIFICATION_EMAIL"`

	// Rate Limit (req/min, 0で無効)
	RateLimitLogin   int `env:"RATE_LIMIT_LOGIN" envDefault:"10"`
	RateLimitContact int `env:"RATE_LIMIT_CONTACT" envDefault:"5"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Worker
	OrphanSweepInterval time.Duration `env:"ORPHAN_SWEEP_INTERVAL" envDefault:"24h"`
	OrphanGracePeriod   time.Duration `env:"ORPHAN_GRACE_PERIOD" envDefault:"1h"`
	WorkerMetricsPort   string        `env:"WORKER_METRICS_PORT"` // 空の場合は/metricsを公開しない
}

// Load は環境変数からConfigを読み込む。
// DATABASE_URLが未設定の場合は起動不能としてエラーを返す。
// その他の欠落はMissingで確認し、警告としてログに出す。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, fmt.Errorf("required environment variables are not set: %v", []string{"DATABASE_URL"})
	}

	cfg.AllowedOrigins = normalizeOrigins(cfg.AllowedOrigins)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate は起動時に検出できる不正値を確認する。
func (c *Config) validate() error {
	if c.OrphanSweepInterval <= 0 {
		return fmt.Errorf("ORPHAN_SWEEP_INTERVAL must be positive, got %s", c.OrphanSweepInterval)
	}
	if c.OrphanGracePeriod < 0 {
		return fmt.Errorf("ORPHAN_GRACE_PERIOD must not be negative, got %s", c.OrphanGracePeriod)
	}
	if _, err := parseTrustedProxies(c.TrustedProxies); err != nil {
		return err
	}
	return nil
}

// TrustedProxyPrefixes はTRUSTED_PROXIESをプレフィックスとして返す。
// 単一のIPは/32（IPv6は/128）として扱う。Loadで検証済みのため不正値は含まれない。
func (c *Config) TrustedProxyPrefixes() []netip.Prefix {
	prefixes, _ := parseTrustedProxies(c.TrustedProxies)
	return prefixes
}

func parseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			p, err := netip.ParsePrefix(e)
			if err != nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES contains invalid CIDR %q: %w", e, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(e)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES contains invalid IP %q: %w", e, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// Missing は動作に必要だが未設定の環境変数名を返す。
// 起動は継続するが、該当機能は実行時に失敗する。
func (c *Config) Missing() []string {
	var missing []string
	check := func(key, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}
	check("STORAGE_ACCESS_KEY_ID", c.StorageAccessKeyID)
	check("STORAGE_SECRET_ACCESS_KEY", c.StorageSecretAccessKey)
	check("APP_JWT_SECRET", c.JWTSecret)
	check("APP_REFRESH_SECRET", c.RefreshSecret)
	check("APP_ADMIN_EMAIL", c.AdminEmail)
	check("APP_ADMIN_PASSWORD", c.AdminPassword)
	return missing
}

// normalizeOrigins はCORSオリジンを scheme://host[:port] 形式に揃える。
// "*" はそのまま残し、空要素は除去する。
func normalizeOrigins(origins []string) []string {
	var result []string
	for _, o := range origins {
		if n := normalizeOrigin(o); n != "" {
			result = append(result, n)
		}
	}
	return result
}

func normalizeOrigin(origin string) string {
	trimmed := strings.TrimSpace(origin)
	if trimmed == "" || trimmed == "*" {
		return trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return strings.TrimRight(trimmed, "/")
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}
