package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dailog/backend/internal/metrics"
	"github.com/dailog/backend/internal/model"
	"github.com/dailog/backend/internal/service"
)

const (
	logoutPath   = "/api/auth/logout"
	bearerPrefix = "Bearer "
)

// 접근 게이트 401 응답 메시지
const (
	msgAccessTokenExpired = "Access token expired"
	msgInvalidJWT         = "Invalid JWT token"
	msgInvalidAccessToken = "Invalid access token"

	msgUnauthorized = "로그인 해주세요."
	msgForbidden    = "접근할 수 없습니다."
)

// AccessGate rebuilds the principal from an "Authorization: Bearer" header.
// Requests without the header pass through anonymously; route guards decide
// whether that is acceptable.
func AccessGate(codec *service.TokenCodec, rec metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		token, ok := strings.CutPrefix(header, bearerPrefix)
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			rejectGate(c, rec, "malformed", msgInvalidJWT)
			return
		}

		claims, err := codec.Verify(token)
		if err != nil {
			if errors.Is(err, service.ErrTokenExpired) {
				rejectGate(c, rec, "expired", msgAccessTokenExpired)
				return
			}
			rejectGate(c, rec, "invalid", msgInvalidJWT)
			return
		}

		if claims.Category != service.CategoryAccess {
			rejectGate(c, rec, "category", msgInvalidAccessToken)
			return
		}

		role, err := model.ParseRole(claims.Role)
		if err != nil || claims.Username == "" {
			rejectGate(c, rec, "invalid", msgInvalidJWT)
			return
		}

		var p model.Principal
		if claims.OAuth2Login {
			p = model.NewFederatedPrincipal(claims.Username, role, claims.ProviderName())
		} else {
			p = model.NewLocalPrincipal(claims.Username, role)
		}

		c.Request = c.Request.WithContext(model.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

func rejectGate(c *gin.Context, rec metrics.Recorder, reason, message string) {
	rec.RecordGateRejection(reason)
	c.AbortWithStatusJSON(http.StatusUnauthorized, model.NewErrorResponse(http.StatusUnauthorized, message))
}

// GetPrincipal returns the principal carried by the request context, or nil.
func GetPrincipal(c *gin.Context) model.Principal {
	p, _ := model.PrincipalFrom(c.Request.Context())
	return p
}

func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetPrincipal(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.NewErrorResponse(http.StatusUnauthorized, msgUnauthorized))
			return
		}
		c.Next()
	}
}

// RequireRole - ADMIN 은 MEMBER 권한을 포함하므로 권한 집합으로 판단
func RequireRole(role model.Role) gin.HandlerFunc {
	authority := "ROLE_" + string(role)
	return func(c *gin.Context) {
		p := GetPrincipal(c)
		if p == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.NewErrorResponse(http.StatusUnauthorized, msgUnauthorized))
			return
		}
		if !p.HasAuthority(authority) {
			c.AbortWithStatusJSON(http.StatusForbidden, model.NewErrorResponse(http.StatusForbidden, msgForbidden))
			return
		}
		c.Next()
	}
}

// LogoutFilter handles POST /api/auth/logout before routing. It deletes the
// stored refresh token named by the "refresh" cookie and expires the cookie.
//
// @Summary Logout
// @Description refresh 쿠키의 토큰을 폐기하고 쿠키를 만료시킵니다.
// @Tags auth
// @Produce json
// @Success 200 {object} model.AuthLogoutResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /api/auth/logout [post]
func LogoutFilter(sessions *service.SessionIssuer, cookies service.CookieConfig, rec metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost || c.Request.URL.Path != logoutPath {
			c.Next()
			return
		}
		defer c.Abort()

		token, err := c.Cookie(service.RefreshCookieName)
		if err != nil || token == "" {
			rec.RecordLogout("missing_cookie")
			c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, service.ErrRefreshTokenNotFound.Error()))
			return
		}

		if err := sessions.Revoke(c.Request.Context(), token); err != nil {
			if errors.Is(err, service.ErrInvalidRefreshToken) {
				rec.RecordLogout("invalid")
				c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, err.Error()))
				return
			}
			rec.RecordLogout("error")
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, model.NewErrorResponse(http.StatusInternalServerError, msgServerError))
			return
		}

		rec.RecordLogout("success")
		expireCookie(c, cookies, service.RefreshCookieName)
		c.JSON(http.StatusOK, model.AuthLogoutResponse{Status: "logged_out"})
	}
}

func CORSMiddleware(allowedOrigins []string, allowCredentials bool) gin.HandlerFunc {
	originMap := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		originMap[trimmed] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if _, ok := originMap[origin]; ok {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
				if allowCredentials {
					c.Header("Access-Control-Allow-Credentials", "true")
				}
				c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
				c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				// 프론트엔드가 access 헤더를 읽을 수 있도록 노출
				c.Header("Access-Control-Expose-Headers", "Set-Cookie, access, Authorization")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
