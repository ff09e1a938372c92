package config

import (
	"os"
	"strings"
)

type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	OAuth2   OAuth2Config
	Postgres PostgresConfig
	Redis    RedisConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port            string
	AllowedOrigins  []string
	LoginRatePerMin string
}

// AuthConfig - 문자열 그대로 보관하고 파싱/검증은 service 생성자에서 수행
type AuthConfig struct {
	JWTSecret      string
	CookieSecure   string
	CookieSameSite string
	CookieDomain   string
	AdminEmail     string
	AdminPassword  string
}

type OAuth2Config struct {
	RedirectURL string
	Google      OAuth2ClientConfig
	Kakao       OAuth2ClientConfig
	Naver       OAuth2ClientConfig
}

type OAuth2ClientConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

func (c OAuth2ClientConfig) Enabled() bool {
	return strings.TrimSpace(c.ClientID) != ""
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

type RedisConfig struct {
	Addr      string
	Username  string
	Password  string
	DB        string
	KeyPrefix string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() Config {
	return Config{
		Server: ServerConfig{
			Port:            getenv("PORT", "8080"),
			AllowedOrigins:  splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
			LoginRatePerMin: getenv("LOGIN_RATE_PER_MIN", "30"),
		},
		Auth: AuthConfig{
			JWTSecret:      os.Getenv("JWT_SECRET"),
			CookieSecure:   os.Getenv("AUTH_COOKIE_SECURE"),
			CookieSameSite: os.Getenv("AUTH_COOKIE_SAMESITE"),
			CookieDomain:   os.Getenv("AUTH_COOKIE_DOMAIN"),
			AdminEmail:     os.Getenv("ADMIN_EMAIL"),
			AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
		},
		OAuth2: OAuth2Config{
			RedirectURL: getenv("OAUTH2_REDIRECT_URL", "http://localhost:3000/oauth2/redirect"),
			Google: OAuth2ClientConfig{
				ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
				ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
				RedirectURL:  getenv("GOOGLE_REDIRECT_URL", "http://localhost:8080/login/oauth2/code/google"),
			},
			Kakao: OAuth2ClientConfig{
				ClientID:     os.Getenv("KAKAO_CLIENT_ID"),
				ClientSecret: os.Getenv("KAKAO_CLIENT_SECRET"),
				RedirectURL:  getenv("KAKAO_REDIRECT_URL", "http://localhost:8080/login/oauth2/code/kakao"),
			},
			Naver: OAuth2ClientConfig{
				ClientID:     os.Getenv("NAVER_CLIENT_ID"),
				ClientSecret: os.Getenv("NAVER_CLIENT_SECRET"),
				RedirectURL:  getenv("NAVER_REDIRECT_URL", "http://localhost:8080/login/oauth2/code/naver"),
			},
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:      getenv("REDIS_ADDR", "localhost:6379"),
			Username:  os.Getenv("REDIS_USERNAME"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        getenv("REDIS_DB", "0"),
			KeyPrefix: getenv("REDIS_KEY_PREFIX", "dailog:"),
		},
		Log: LogConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "json"),
		},
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
