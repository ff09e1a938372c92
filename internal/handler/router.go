package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dailog/backend/internal/logging"
	"github.com/dailog/backend/internal/metrics"
	"github.com/dailog/backend/internal/model"
	"github.com/dailog/backend/internal/service"
)

type RouterDeps struct {
	Codec          *service.TokenCodec
	Sessions       *service.SessionIssuer
	Cookies        service.CookieConfig
	Auth           *AuthHandler
	Members        *MemberHandler
	OAuth2         *OAuth2Handler
	RateLimiter    *RateLimiter
	Recorder       metrics.Recorder
	Metrics        http.Handler
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewRouter wires the global filter chain in order: recovery, request log,
// CORS, logout, access gate. Route guards run after the gate.
func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.RequestLogger(d.Logger))
	r.Use(CORSMiddleware(d.AllowedOrigins, true))
	r.Use(LogoutFilter(d.Sessions, d.Cookies, d.Recorder))
	r.Use(AccessGate(d.Codec, d.Recorder))

	r.GET("/api/health-check", HealthCheck)
	r.GET("/api/openapi.json", OpenAPIDoc)
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	limited := r.Group("/")
	if d.RateLimiter != nil {
		limited.Use(d.RateLimiter.Middleware())
	}
	limited.POST("/api/auth/login", d.Auth.Login)
	limited.POST("/api/auth/join", d.Members.Join)

	r.POST("/api/auth/reissue", d.Auth.Reissue)
	r.POST("/api/oauth2-jwt-header", d.Auth.OAuth2JWTHeader)

	if d.OAuth2 != nil {
		r.GET("/oauth2/authorization/:provider", d.OAuth2.Authorize)
		r.GET("/login/oauth2/code/:provider", d.OAuth2.Callback)
	}

	authed := r.Group("/", RequireAuth())
	authed.GET("/api/member/me", d.Members.Me)
	authed.POST("/api/auth/:memberId/leave", d.Members.Leave)
	authed.POST("/api/auth/:memberId/leave-oauth2", d.Members.LeaveOAuth2)

	admin := r.Group("/api/admin", RequireRole(model.RoleAdmin))
	admin.POST("/:memberId/delete", d.Members.AdminDelete)

	return r
}
