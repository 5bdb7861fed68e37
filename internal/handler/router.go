package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/threads/internal/metrics"
	"github.com/hitoshi/threads/internal/middleware"
	"github.com/hitoshi/threads/internal/repository"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	SessionVerifier   middleware.SessionVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	TrustProxy        bool // X-Forwarded-For からクライアントIPを取得する

	// 運用
	HealthChecker    repository.Pinger
	MetricsCollector metrics.MetricsCollector
	MetricsHandler   http.Handler

	// 認証
	AuthService    AuthServiceInterface
	SessionCookies SessionCookies
	ProfileService ProfileServiceInterface
	ConfigStatus   ConfigStatus
	AuthConfig     AuthHandlerConfig
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	[RealIP] → Logging → Recovery → Metrics → SecurityHeaders → CORS
//	/api/auth/* は上記に加えて RateLimit、/api/auth/me はさらに Session
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if deps.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(deps.MetricsCollector))
	r.Use(middleware.NewSecurityHeadersMiddleware(middleware.SecurityHeadersConfig{
		HSTS: deps.AuthConfig.CookieSecure,
	}))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(
		deps.AuthService, deps.SessionCookies, deps.ProfileService, deps.ConfigStatus, deps.AuthConfig,
	)

	// --- 運用エンドポイント ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker).ServeHTTP)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- 認証 ---
	// 未認証で叩けるためIPごとのレート制限をかける
	r.Route("/api/auth", func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}

		r.Get("/google", authHandler.Login)
		r.With(authHandler.StateGuard()).Get("/google/callback", authHandler.Callback)
		r.Get("/debug", authHandler.Debug)
		r.Post("/logout", authHandler.Logout)
		r.With(middleware.NewSessionMiddleware(deps.SessionVerifier)).Get("/me", authHandler.Me)
	})

	return r
}
