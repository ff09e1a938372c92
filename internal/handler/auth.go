package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dailog/backend/internal/metrics"
	"github.com/dailog/backend/internal/model"
	"github.com/dailog/backend/internal/service"
)

const msgServerError = "서버 오류가 발생했습니다."

type AuthHandler struct {
	auth     *service.AuthService
	sessions *service.SessionIssuer
	cookies  service.CookieConfig
	rec      metrics.Recorder
}

func NewAuthHandler(auth *service.AuthService, sessions *service.SessionIssuer, cookies service.CookieConfig, rec metrics.Recorder) *AuthHandler {
	return &AuthHandler{auth: auth, sessions: sessions, cookies: cookies, rec: rec}
}

// Login godoc
// @Summary Login
// @Description JSON 로그인. 성공 시 access 헤더와 refresh 쿠키를 발급합니다.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.AuthRequest true "Email and password"
// @Success 200 "access header, refresh cookie"
// @Failure 400 {object} model.ErrorResponse
// @Failure 429 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()
	p, err := h.auth.Authenticate(ctx, c.GetHeader("Content-Type"), c.Request.Body)
	if err != nil {
		h.rec.RecordLogin(loginResult(err))
		writeAuthError(c, err)
		return
	}

	pair, err := h.sessions.Issue(ctx, p)
	if err != nil {
		h.rec.RecordLogin("error")
		writeAuthError(c, err)
		return
	}

	h.rec.RecordLogin("success")
	c.Header(service.AccessHeaderName, pair.Access)
	setTokenCookie(c, h.cookies, service.RefreshCookieName, pair.Refresh, service.RefreshTokenTTL)
	c.Status(http.StatusOK)
}

// Reissue godoc
// @Summary Reissue tokens
// @Description refresh 쿠키로 access/refresh 토큰을 재발급합니다. 이전 refresh 토큰은 폐기됩니다.
// @Tags auth
// @Produce plain
// @Success 200 "access header, refresh cookie"
// @Failure 400 {string} string "Cookie not found | Refresh token not found | Refresh token expired | Malformed refresh token | Invalid refresh token"
// @Failure 500 {string} string
// @Router /api/auth/reissue [post]
func (h *AuthHandler) Reissue(c *gin.Context) {
	pair, err := h.sessions.Reissue(c.Request.Context(), c.Request.Cookies())
	if err != nil {
		if isReissueRejection(err) {
			h.rec.RecordReissue("rejected")
			c.String(http.StatusBadRequest, err.Error())
			return
		}
		h.rec.RecordReissue("error")
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, msgServerError)
		return
	}

	h.rec.RecordReissue("rotated")
	c.Header(service.AccessHeaderName, pair.Access)
	setTokenCookie(c, h.cookies, service.RefreshCookieName, pair.Refresh, service.RefreshTokenTTL)
	c.Status(http.StatusOK)
}

// OAuth2JWTHeader godoc
// @Summary Move OAuth2 access cookie to header
// @Description OAuth2 로그인 후 access 쿠키를 access 응답 헤더로 옮기고 쿠키는 만료시킵니다.
// @Tags auth
// @Success 200 "access header"
// @Failure 400 {object} model.ErrorResponse
// @Router /api/oauth2-jwt-header [post]
func (h *AuthHandler) OAuth2JWTHeader(c *gin.Context) {
	access, err := c.Cookie(service.AccessCookieName)
	if err != nil || access == "" {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "Access token cookie not found"))
		return
	}

	expireCookie(c, h.cookies, service.AccessCookieName)
	c.Header("Access-Control-Expose-Headers", service.AccessHeaderName)
	c.Header(service.AccessHeaderName, access)
	c.Status(http.StatusOK)
}

func loginResult(err error) string {
	switch {
	case errors.Is(err, service.ErrBadCredentials):
		return "bad_credentials"
	case errors.Is(err, service.ErrEmptyEmail),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrEmptyPassword),
		errors.Is(err, service.ErrUnsupportedContentType):
		return "invalid_input"
	default:
		return "error"
	}
}

func isReissueRejection(err error) bool {
	return errors.Is(err, service.ErrCookieNotFound) ||
		errors.Is(err, service.ErrRefreshTokenNotFound) ||
		errors.Is(err, service.ErrRefreshTokenExpired) ||
		errors.Is(err, service.ErrRefreshTokenMalformed) ||
		errors.Is(err, service.ErrInvalidRefreshToken)
}

func writeAuthError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		resp := model.NewErrorResponse(http.StatusBadRequest, verr.Error())
		for field, msg := range verr.Fields {
			resp = resp.AddValidation(field, msg)
		}
		c.JSON(http.StatusBadRequest, resp)
	case errors.Is(err, service.ErrUnsupportedContentType),
		errors.Is(err, service.ErrEmptyEmail),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrEmptyPassword),
		errors.Is(err, service.ErrBadCredentials),
		errors.Is(err, service.ErrEmailAlreadyExists),
		errors.Is(err, service.ErrNicknameTaken),
		errors.Is(err, service.ErrMemberPassword):
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, err.Error()))
	case errors.Is(err, service.ErrNotMemberOwner):
		c.JSON(http.StatusForbidden, model.NewErrorResponse(http.StatusForbidden, err.Error()))
	case errors.Is(err, model.ErrMemberNotFound):
		c.JSON(http.StatusNotFound, model.NewErrorResponse(http.StatusNotFound, "존재하지 않는 회원입니다."))
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(http.StatusInternalServerError, msgServerError))
	}
}
