package handler

import (
	"context"
	"crypto/subtle"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dailog/backend/internal/metrics"
	"github.com/dailog/backend/internal/model"
	"github.com/dailog/backend/internal/service"
)

const (
	oauth2StateCookie = "oauth2_state"
	oauth2StateMaxAge = 300

	msgOAuth2Failed = "OAuth2 인증에 실패하였습니다."
)

// OAuth2Provider is one external identity provider.
type OAuth2Provider interface {
	AuthCodeURL(state string) string
	// Exchange trades an authorization code for the provider's user attributes.
	Exchange(ctx context.Context, code string) (map[string]any, error)
}

type OAuth2Handler struct {
	providers   map[string]OAuth2Provider
	resolver    *service.FederationResolver
	sessions    *service.SessionIssuer
	cookies     service.CookieConfig
	redirectURL string
	rec         metrics.Recorder
	logger      *zap.Logger
}

func NewOAuth2Handler(
	providers map[string]OAuth2Provider,
	resolver *service.FederationResolver,
	sessions *service.SessionIssuer,
	cookies service.CookieConfig,
	redirectURL string,
	rec metrics.Recorder,
	logger *zap.Logger,
) *OAuth2Handler {
	return &OAuth2Handler{
		providers:   providers,
		resolver:    resolver,
		sessions:    sessions,
		cookies:     cookies,
		redirectURL: redirectURL,
		rec:         rec,
		logger:      logger,
	}
}

// Authorize godoc
// @Summary Start OAuth2 login
// @Tags oauth2
// @Param provider path string true "google | kakao | naver"
// @Success 302
// @Failure 404 {object} model.ErrorResponse
// @Router /oauth2/authorization/{provider} [get]
func (h *OAuth2Handler) Authorize(c *gin.Context) {
	provider, ok := h.providers[c.Param("provider")]
	if !ok {
		c.JSON(http.StatusNotFound, model.NewErrorResponse(http.StatusNotFound, "지원하지 않는 로그인 방식입니다."))
		return
	}

	state := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauth2StateCookie, state, oauth2StateMaxAge, "/", h.cookies.Domain, h.cookies.Secure, true)
	c.Redirect(http.StatusFound, provider.AuthCodeURL(state))
}

// Callback godoc
// @Summary OAuth2 callback
// @Description 제공자 인증 후 access/refresh 쿠키를 설정하고 프론트엔드로 리다이렉트합니다.
// @Tags oauth2
// @Param provider path string true "google | kakao | naver"
// @Param code query string true "Authorization code"
// @Param state query string true "State"
// @Success 302
// @Failure 401 {object} model.ErrorResponse
// @Router /login/oauth2/code/{provider} [get]
func (h *OAuth2Handler) Callback(c *gin.Context) {
	name := c.Param("provider")
	provider, ok := h.providers[name]
	if !ok {
		h.fail(c, "unknown", "unknown_provider", nil)
		return
	}

	expected, _ := c.Cookie(oauth2StateCookie)
	expireStateCookie(c, h.cookies)

	state := c.Query("state")
	if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(state)) != 1 {
		h.fail(c, name, "state_mismatch", nil)
		return
	}
	if errParam := c.Query("error"); errParam != "" {
		h.fail(c, name, "provider_denied", nil)
		return
	}

	code := c.Query("code")
	if code == "" {
		h.fail(c, name, "missing_code", nil)
		return
	}

	ctx := c.Request.Context()
	attrs, err := provider.Exchange(ctx, code)
	if err != nil {
		h.fail(c, name, "exchange", err)
		return
	}

	login, err := h.resolver.Resolve(ctx, name, attrs)
	if err != nil {
		h.fail(c, name, "resolve", err)
		return
	}

	pair, err := h.sessions.Issue(ctx, login.Principal)
	if err != nil {
		h.fail(c, name, "issue", err)
		return
	}

	h.rec.RecordOAuth2Login(name, "success")
	setTokenCookie(c, h.cookies, service.AccessCookieName, pair.Access, service.AccessTokenTTL)
	setTokenCookie(c, h.cookies, service.RefreshCookieName, pair.Refresh, service.RefreshTokenTTL)

	q := url.Values{}
	q.Set("name", login.Name)
	q.Set("nickname", login.Nickname)
	q.Set("role", string(login.Principal.Role()))
	c.Redirect(http.StatusFound, h.redirectURL+"?"+q.Encode())
}

func (h *OAuth2Handler) fail(c *gin.Context, provider, reason string, err error) {
	h.rec.RecordOAuth2Login(provider, reason)
	fields := []zap.Field{zap.String("provider", provider), zap.String("reason", reason)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	h.logger.Warn("oauth2 login failed", fields...)
	c.JSON(http.StatusUnauthorized, model.NewErrorResponse(http.StatusUnauthorized, msgOAuth2Failed))
}

func expireStateCookie(c *gin.Context, cfg service.CookieConfig) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauth2StateCookie, "", -1, "/", cfg.Domain, cfg.Secure, true)
}
