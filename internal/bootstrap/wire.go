package bootstrap

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/omnisphere/auth-service/internal/application/auth"
	"github.com/omnisphere/auth-service/internal/audit"
	"github.com/omnisphere/auth-service/internal/config"
	"github.com/omnisphere/auth-service/internal/domain"
	"github.com/omnisphere/auth-service/internal/infrastructure/avatars"
	"github.com/omnisphere/auth-service/internal/infrastructure/db/postgres"
	"github.com/omnisphere/auth-service/internal/infrastructure/memory"
	rabbitmq_pub "github.com/omnisphere/auth-service/internal/infrastructure/messaging/rabbitmq"
	"github.com/omnisphere/auth-service/internal/infrastructure/provider"
	"github.com/omnisphere/auth-service/internal/infrastructure/redis"
	"github.com/omnisphere/auth-service/internal/infrastructure/security"
	"github.com/omnisphere/auth-service/internal/logger"
	http_handlers "github.com/omnisphere/auth-service/internal/transport/http/handlers"
	"github.com/omnisphere/auth-service/internal/transport/http/middleware"
	"github.com/omnisphere/auth-service/internal/transport/http/response"
	"github.com/omnisphere/auth-service/internal/transport/http/router"
)

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewUserRepo func(cfg *config.Config) (auth.UserRepo, func(), error)

	NewRedis func(addr string) (*redis.Client, error)

	NewPublisher func(rabbitURL string) (auth.EventPublisher, error)

	NewRouter func(router.Deps) (http.Handler, error)
}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*http.Server, func(), error) {
	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	var cleanupFns []func()

	// 1) user store
	userRepo, repoCleanup, err := deps.NewUserRepo(cfg)
	if err != nil {
		return nil, nil, err
	}
	if repoCleanup != nil {
		cleanupFns = append(cleanupFns, repoCleanup)
	}

	// 2) session + reset-code stores
	var sessionStore auth.SessionStore
	var codeStore auth.ResetCodeStore

	if cfg.RedisAddr != "" {
		redisCli, err := deps.NewRedis(cfg.RedisAddr)
		if err != nil {
			runCleanup(cleanupFns)
			return nil, nil, err
		}
		logger.Logger.Info().Str("addr", cfg.RedisAddr).Msg("redis connected")
		cleanupFns = append(cleanupFns, func() { _ = redisCli.Close() })

		sessionStore = redis.NewSessionStore(redisCli)
		codeStore = redis.NewResetCodeStore(redisCli)
	} else {
		logger.Logger.Warn().Msg("REDIS_ADDR empty; using in-memory session store")
		sessionStore = memory.NewSessionStore()
		codeStore = memory.NewResetCodeStore()
	}

	// 3) publisher
	var pub auth.EventPublisher
	if cfg.RabbitURL != "" {
		pub, err = deps.NewPublisher(cfg.RabbitURL)
		if err != nil {
			runCleanup(cleanupFns)
			return nil, nil, err
		}
		if c, ok := pub.(interface{ Close() error }); ok {
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
		}
	} else {
		logger.Logger.Warn().Msg("RABBIT_URL empty; using noop publisher")
		pub = memory.NewNoopPublisher()
	}

	// 4) avatar store
	avatarStore := avatars.NewFileStore(cfg.AvatarDir)

	// 5) security
	hasher := security.NewBcryptHasher(12)
	signer := security.NewJWTSigner(cfg.JWTSecret, cfg.JWTIssuer)

	// 6) provider registry
	registry := provider.NewRegistry(providerClients(cfg)...)

	// 7) service
	auditLog := audit.New(logger.Logger)
	authSvc := auth.NewService(
		userRepo,
		hasher,
		signer,
		sessionStore,
		codeStore,
		avatarStore,
		pub,
		auth.Config{
			AccessTTL:    cfg.AccessTokenTTL,
			RefreshTTL:   cfg.RefreshTokenTTL,
			ResetCodeTTL: cfg.ResetCodeTTL,
		},
	).WithAudit(auditLog.Emit)

	// 8) handlers + middleware
	secureCookies := cfg.Env != "dev"

	authH := http_handlers.NewAuthHandler(authSvc, cfg.RefreshTokenTTL, secureCookies)
	providerH := http_handlers.NewProviderHandler(authSvc, registry, cfg.RefreshTokenTTL, secureCookies)
	linkH := http_handlers.NewLinkHandler(authSvc, registry)
	healthH := http_handlers.NewHealthHandler(sqlDBOf(userRepo))

	authMW := middleware.Auth(signer, response.WriteError)

	// 9) router
	mux, err := deps.NewRouter(router.Deps{
		Health:   healthH,
		Auth:     authH,
		Provider: providerH,
		Link:     linkH,

		RequestID: middleware.RequestID,
		AuthMW:    authMW,
	})
	if err != nil {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	// 10) server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	cleanup := func() {
		runCleanup(cleanupFns)
	}

	return srv, cleanup, nil
}

// providerClients builds one client per configured provider. A provider with
// missing credentials is skipped and its requests fail with
// unsupported_provider.
func providerClients(cfg *config.Config) []provider.Client {
	var clients []provider.Client

	github := provider.NewCodeFlowClient(provider.CodeFlowConfig{
		Provider:     domain.ProviderGitHub,
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		TokenURL:     cfg.GitHubTokenURL,
		UserInfoURL:  cfg.GitHubUserInfoURL,
	})
	if github.IsConfigured() {
		clients = append(clients, github)
	} else {
		logger.Logger.Warn().Msg("github credentials empty; provider disabled")
	}

	clients = append(clients, provider.NewTokenFlowClient(provider.TokenFlowConfig{
		Provider:    domain.ProviderGoogle,
		UserInfoURL: cfg.GoogleUserInfoURL,
	}))

	if cfg.TelegramBotToken != "" {
		clients = append(clients, provider.NewSignedPayloadClient(provider.SignedPayloadConfig{
			Provider: domain.ProviderTelegram,
			BotToken: cfg.TelegramBotToken,
		}))
	} else {
		logger.Logger.Warn().Msg("TELEGRAM_BOT_TOKEN empty; provider disabled")
	}

	return clients
}

// sqlDBOf unwraps the underlying *sql.DB for readiness pings; the in-memory
// repo has none and readiness degrades to liveness.
func sqlDBOf(repo auth.UserRepo) *sql.DB {
	if pg, ok := repo.(*postgres.UserRepo); ok {
		return pg.DB()
	}
	return nil
}

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,

		NewUserRepo: func(cfg *config.Config) (auth.UserRepo, func(), error) {
			if cfg.DBAddr == "" {
				logger.Logger.Warn().Msg("DB_ADDR empty; using in-memory user store")
				return memory.NewUserRepo(), nil, nil
			}

			db, err := config.NewDB(cfg.DBAddr, cfg.DBDebug)
			if err != nil {
				return nil, nil, err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := postgres.EnsureSchema(ctx, db); err != nil {
				_ = db.Close()
				return nil, nil, err
			}

			return postgres.NewUserRepo(db), func() { _ = db.Close() }, nil
		},

		NewRedis: func(addr string) (*redis.Client, error) {
			c := redis.New(addr, "", 0)
			if err := c.Ping(context.Background()); err != nil {
				_ = c.Close()
				return nil, err
			}
			return c, nil
		},

		NewPublisher: func(url string) (auth.EventPublisher, error) {
			return rabbitmq_pub.NewPublisher(url)
		},

		NewRouter: router.New,
	}
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
