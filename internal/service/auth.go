package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/dailog/backend/internal/config"
	"github.com/dailog/backend/internal/model"
)

const (
	AccessCookieName  = "access"
	RefreshCookieName = "refresh"
	AccessHeaderName  = "access"
)

var (
	ErrMisconfigured = errors.New("auth config invalid")
	ErrInvalidInput  = errors.New("invalid input")

	ErrUnsupportedContentType = errors.New("Authentication Content-Type not supported")

	// 로그인 입력 검증 에러. 메시지를 그대로 클라이언트에 노출
	ErrEmptyEmail     = errors.New("이메일을 입력해 주세요.")
	ErrInvalidEmail   = errors.New("이메일 형식으로 입력해 주세요.")
	ErrEmptyPassword  = errors.New("비밀번호를 입력해 주세요.")
	ErrBadCredentials = errors.New("이메일 혹은 비밀번호가 올바르지 않습니다.")
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,6}$`)

// MemberRepository is the member lookup/mutation surface the auth core needs.
// Lookups return model.ErrMemberNotFound when no row matches.
type MemberRepository interface {
	CreateMember(ctx context.Context, m *model.Member) (*model.Member, error)
	GetMemberByEmail(ctx context.Context, email string) (*model.Member, error)
	GetMemberByID(ctx context.Context, id int64) (*model.Member, error)
	ExistsByNickname(ctx context.Context, nickname string) (bool, error)
	DeleteMember(ctx context.Context, id int64) error
}

type CookieConfig struct {
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

func NewCookieConfig(cfg config.AuthConfig) (CookieConfig, error) {
	cookieSecure, err := parseBool(cfg.CookieSecure, false)
	if err != nil {
		return CookieConfig{}, fmt.Errorf("%w: invalid AUTH_COOKIE_SECURE", ErrMisconfigured)
	}

	cookieSameSite, err := parseSameSite(cfg.CookieSameSite)
	if err != nil {
		return CookieConfig{}, fmt.Errorf("%w: invalid AUTH_COOKIE_SAMESITE", ErrMisconfigured)
	}

	if cookieSameSite == http.SameSiteNoneMode && !cookieSecure {
		return CookieConfig{}, fmt.Errorf("%w: SameSite=None requires Secure cookie", ErrMisconfigured)
	}

	return CookieConfig{
		Path:     "/",
		Domain:   strings.TrimSpace(cfg.CookieDomain),
		Secure:   cookieSecure,
		SameSite: cookieSameSite,
	}, nil
}

type AuthService struct {
	members   MemberRepository
	logger    *zap.Logger
	dummyHash []byte
}

func NewAuthService(members MemberRepository, logger *zap.Logger) (*AuthService, error) {
	// 존재하지 않는 이메일도 bcrypt 비교를 거치도록 더미 해시 준비
	dummyHash, err := bcrypt.GenerateFromPassword([]byte("dailog-dummy-password"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &AuthService{
		members:   members,
		logger:    logger,
		dummyHash: dummyHash,
	}, nil
}

// Authenticate reads a JSON {email, password} body and checks it against the
// stored member. Input problems come back as ErrEmptyEmail, ErrInvalidEmail or
// ErrEmptyPassword; every credential mismatch is ErrBadCredentials.
func (s *AuthService) Authenticate(ctx context.Context, contentType string, body io.Reader) (model.Principal, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "application/json" {
		return nil, ErrUnsupportedContentType
	}

	var req model.AuthRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return nil, ErrBadCredentials
	}

	if err := validateLogin(req.Email, req.Password); err != nil {
		return nil, err
	}

	member, err := s.members.GetMemberByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, model.ErrMemberNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(req.Password))
			return nil, ErrBadCredentials
		}
		return nil, err
	}

	// 소셜 로그인 회원은 비밀번호가 없으므로 폼 로그인 불가
	if member.PasswordHash == "" {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(req.Password))
		return nil, ErrBadCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrBadCredentials
	}

	return model.NewLocalPrincipal(member.Email, member.Role), nil
}

// EnsureAdmin - ADMIN_EMAIL/ADMIN_PASSWORD 가 설정된 경우에만 관리자 계정 생성
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" && strings.TrimSpace(password) == "" {
		return nil
	}
	if email == "" || strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: ADMIN_EMAIL/ADMIN_PASSWORD must be set together", ErrMisconfigured)
	}
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: ADMIN_EMAIL is not an email address", ErrMisconfigured)
	}

	existing, err := s.members.GetMemberByEmail(ctx, email)
	if err == nil {
		if existing.Role != model.RoleAdmin {
			s.logger.Warn("admin bootstrap email belongs to a non-admin member", zap.Int64("member_id", existing.ID))
		}
		return nil
	}
	if !errors.Is(err, model.ErrMemberNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	created, err := s.members.CreateMember(ctx, &model.Member{
		Email:        email,
		Name:         "관리자",
		Nickname:     "admin",
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return err
	}

	s.logger.Info("admin member created", zap.Int64("member_id", created.ID))
	return nil
}

func validateLogin(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return ErrEmptyEmail
	}
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	if strings.TrimSpace(password) == "" {
		return ErrEmptyPassword
	}
	return nil
}

func parseBool(value string, fallback bool) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, err
	}
	return parsed, nil
}

func parseSameSite(value string) (http.SameSite, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return http.SameSiteLaxMode, nil
	}
	switch value {
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, ErrInvalidInput
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
