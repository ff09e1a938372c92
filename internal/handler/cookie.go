package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dailog/backend/internal/service"
)

// 토큰 쿠키는 모두 HttpOnly, Path=/
func setTokenCookie(c *gin.Context, cfg service.CookieConfig, name, value string, ttl time.Duration) {
	c.SetSameSite(cfg.SameSite)
	c.SetCookie(name, value, int(ttl.Seconds()), cfg.Path, cfg.Domain, cfg.Secure, true)
}

// expireCookie - MaxAge<0 이면 gin 이 Max-Age=0 을 기록
func expireCookie(c *gin.Context, cfg service.CookieConfig, name string) {
	c.SetSameSite(cfg.SameSite)
	c.SetCookie(name, "", -1, cfg.Path, cfg.Domain, cfg.Secure, true)
}
