package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/dailog/backend/internal/client"
	"github.com/dailog/backend/internal/config"
	"github.com/dailog/backend/internal/db"
	"github.com/dailog/backend/internal/handler"
	"github.com/dailog/backend/internal/logging"
	"github.com/dailog/backend/internal/metrics"
	"github.com/dailog/backend/internal/service"
)

// @title Dailog Backend API
// @version 1.0
// @description 회원 가입, 로그인, 토큰 재발급, OAuth2 로그인을 제공하는 인증 API
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// .env 는 로컬 개발용. 없으면 환경변수만 사용
	_ = godotenv.Load()

	cfg := config.Load()

	logger, err := logging.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	codec, err := service.NewTokenCodec(cfg.Auth.JWTSecret)
	if err != nil {
		return err
	}
	cookies, err := service.NewCookieConfig(cfg.Auth)
	if err != nil {
		return err
	}

	pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()

	pg := &db.Postgres{Pool: pool}
	if err := pg.RunMigrations(ctx); err != nil {
		return err
	}

	redisClient, err := db.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() { _ = redisClient.Close() }()
	refreshStore := db.NewRedisRefreshStore(redisClient, cfg.Redis.KeyPrefix)

	authService, err := service.NewAuthService(pg, logger)
	if err != nil {
		return err
	}
	if err := authService.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		return err
	}
	sessions := service.NewSessionIssuer(codec, refreshStore)
	members := service.NewMemberService(pg, refreshStore, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewCollector(reg)

	ratePerMin, err := strconv.Atoi(cfg.Server.LoginRatePerMin)
	if err != nil {
		logger.Warn("invalid LOGIN_RATE_PER_MIN, using default", zap.String("value", cfg.Server.LoginRatePerMin))
		ratePerMin = 0
	}
	limiter := handler.NewRateLimiter(ratePerMin)
	defer limiter.Stop()

	deps := handler.RouterDeps{
		Codec:          codec,
		Sessions:       sessions,
		Cookies:        cookies,
		Auth:           handler.NewAuthHandler(authService, sessions, cookies, recorder),
		Members:        handler.NewMemberHandler(members),
		RateLimiter:    limiter,
		Recorder:       recorder,
		Metrics:        metrics.Handler(reg),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
	}

	providers := buildProviders(ctx, cfg.OAuth2, logger)
	if len(providers) > 0 {
		resolver := service.NewFederationResolver(pg, logger)
		deps.OAuth2 = handler.NewOAuth2Handler(providers, resolver, sessions, cookies, cfg.OAuth2.RedirectURL, recorder, logger)
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.Int("oauth2_providers", len(providers)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildProviders - client id 가 설정된 제공자만 등록
func buildProviders(ctx context.Context, cfg config.OAuth2Config, logger *zap.Logger) map[string]handler.OAuth2Provider {
	providers := map[string]handler.OAuth2Provider{}

	if cfg.Google.Enabled() {
		google, err := client.NewGoogleProvider(ctx, cfg.Google)
		if err != nil {
			logger.Error("google oauth2 disabled", zap.Error(err))
		} else {
			providers[service.ProviderGoogle] = google
		}
	}
	if cfg.Kakao.Enabled() {
		providers[service.ProviderKakao] = client.NewKakaoProvider(cfg.Kakao)
	}
	if cfg.Naver.Enabled() {
		providers[service.ProviderNaver] = client.NewNaverProvider(cfg.Naver)
	}
	return providers
}
