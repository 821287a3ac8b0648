package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/uranaibaya/baya/internal/identify"
	"github.com/uranaibaya/baya/internal/metrics"
	"github.com/uranaibaya/baya/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Metrics           metrics.MetricsCollector

	// 鑑定生成
	Generator       GeneratorInterface
	QuotaGate       QuotaGateInterface
	EntitlementGate EntitlementGateInterface
	WindowLimiter   WindowLimiterInterface
	Hasher          identify.Hasher

	// 決済
	Payment          PaymentServiceInterface
	StripeConfigured bool

	// 共有
	Share        ShareServiceInterface
	PublicAppURL string
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → HTTPMetrics → RateLimit
//
// /healthとWebhookはインプロセスのレート制限の外に置く
// （WebhookはStripeのIPから来るため、クライアント向けの制限を当てない）。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewHTTPMetricsMiddleware(deps.Metrics))

	fortuneHandler := NewFortuneHandler(
		deps.Generator,
		deps.QuotaGate,
		deps.EntitlementGate,
		deps.WindowLimiter,
		deps.Hasher,
		deps.Metrics,
	)
	paymentHandler := NewPaymentHandler(deps.Payment, deps.Hasher, deps.Metrics)
	shareHandler := NewShareHandler(deps.Share, deps.PublicAppURL)
	healthHandler := NewHealthHandler(deps.StripeConfigured)

	// --- レート制限の外のルート ---

	r.Get("/health", healthHandler.Check)
	r.Post("/api/payments/webhook", paymentHandler.Webhook)

	// --- クライアント向けルート ---
	// インプロセスのIP別トークンバケットを通す。KV固定窓の制限は生成ハンドラー内で追加で効く。
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.Middleware())

		r.Post("/api/fortune/generate", fortuneHandler.Generate)

		r.Route("/api/payments", func(r chi.Router) {
			r.Post("/checkout", paymentHandler.Checkout)
			r.Get("/verify", paymentHandler.Verify)
		})

		r.Route("/api/share", func(r chi.Router) {
			r.Post("/", shareHandler.Create)
			r.Get("/{token}", shareHandler.Get)
		})
	})

	return r
}
