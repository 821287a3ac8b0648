// Package app はアプリケーションの初期化・依存関係のワイヤリング・起動を担う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/uranaibaya/baya/internal/config"
	"github.com/uranaibaya/baya/internal/fortune"
	"github.com/uranaibaya/baya/internal/gate"
	"github.com/uranaibaya/baya/internal/handler"
	"github.com/uranaibaya/baya/internal/identify"
	"github.com/uranaibaya/baya/internal/kv"
	"github.com/uranaibaya/baya/internal/logger"
	"github.com/uranaibaya/baya/internal/metrics"
	"github.com/uranaibaya/baya/internal/middleware"
	"github.com/uranaibaya/baya/internal/payment"
	"github.com/uranaibaya/baya/internal/security"
	"github.com/uranaibaya/baya/internal/share"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
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
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
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
		slog.String("public_app_url", cfg.PublicAppURL),
	)

	return runServe(cfg)
}

// runServe はAPIサーバーモードで起動する。
// KVストア・生成クライアント・各門番・決済・共有をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	log := slog.Default()

	// 1. KVストア（Upstash互換REST）
	store := kv.NewRESTClient(
		&http.Client{Timeout: cfg.KVTimeout},
		log, cfg.KVRestURL, cfg.KVRestToken,
	)

	slog.Info("kv store configured")

	// 2. 識別子とセキュリティサービス
	hasher := identify.NewHasher(cfg.RateLimitSalt)
	sanitizer := security.NewContentSanitizer()

	// 3. 鑑定生成サービス
	chatClient := fortune.NewChatClient(
		&http.Client{Timeout: cfg.GenerationTimeout + 10*time.Second},
		log,
	)
	generator := fortune.NewService(chatClient, sanitizer, log, fortune.GenerationConfig{
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.OpenAIModel,
		Temperature: cfg.GenerationTemp,
		Timeout:     cfg.GenerationTimeout,
	})

	// 4. 門番（KV固定窓・無料枠・権利確認）
	windowLimiter := gate.NewFixedWindowLimiter(store, log,
		gate.WindowConfig{Window: cfg.RateLimitIPWindow, Limit: cfg.RateLimitIPLimit},
		gate.WindowConfig{Window: cfg.RateLimitSessWindow, Limit: cfg.RateLimitSessLimit},
	)
	quotaGate := gate.NewQuotaCacheGate(store, log, gate.QuotaConfig{
		DailyLimit: cfg.FreeDailyLimit,
		CounterTTL: cfg.FreeCounterTTL,
		CacheTTL:   cfg.FreeCacheTTL,
	})
	entitlementGate := gate.NewEntitlementGate(store, log)

	// 5. 決済サービス
	paymentCfg := payment.Config{
		SecretKey:      cfg.StripeSecretKey,
		WebhookSecret:  cfg.StripeWebhookSecret,
		PriceIDs:       cfg.StripePriceIDs(),
		PublicAppURL:   cfg.PublicAppURL,
		EntitlementTTL: cfg.EntitlementTTL,
		PaidSessionTTL: cfg.PaidSessionTTL,
	}
	paymentService := payment.NewService(
		payment.NewStripeGateway(cfg.StripeSecretKey),
		store, log, paymentCfg,
	)
	if !paymentCfg.Configured() {
		slog.Warn("stripe is not configured; payment endpoints will return config errors")
	}

	// 6. 共有サービス
	shareService := share.NewService(store, log, share.Config{
		TTL:        cfg.ShareTTL,
		MaxContent: cfg.ShareMaxContent,
	})

	// 7. メトリクス（専用ポートで公開）
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: metrics.SetupMetricsRoute(registry),
	}
	go func() {
		slog.Info("metrics server starting", slog.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()

	// 8. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            log,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Metrics:           collector,

		Generator:       generator,
		QuotaGate:       quotaGate,
		EntitlementGate: entitlementGate,
		WindowLimiter:   windowLimiter,
		Hasher:          hasher,

		Payment:          paymentService,
		StripeConfigured: paymentCfg.Configured(),

		Share:        shareService,
		PublicAppURL: cfg.PublicAppURL,
	})

	// 9. HTTPサーバーの起動
	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
		// 生成APIは応答まで数十秒かかるため、WriteTimeoutは生成タイムアウトより長く取る
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.GenerationTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if err := metricsServer.Shutdown(ctx); err != nil {
		slog.Error("metrics server shutdown failed", slog.String("error", err.Error()))
	}

	slog.Info("API server stopped gracefully")
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
