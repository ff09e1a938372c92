package handler

import (
	"context"
	"encoding/base64"
	"net/http"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/dailog/backend/internal/db"
	"github.com/dailog/backend/internal/metrics"
	"github.com/dailog/backend/internal/model"
	"github.com/dailog/backend/internal/service"
)

var testSecret = base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

type memoryMembers struct {
	mu      sync.Mutex
	members map[string]*model.Member
	nextID  int64
}

func newMemoryMembers() *memoryMembers {
	return &memoryMembers{members: map[string]*model.Member{}, nextID: 1}
}

func (m *memoryMembers) CreateMember(ctx context.Context, in *model.Member) (*model.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *in
	stored.ID = m.nextID
	m.nextID++
	m.members[stored.Email] = &stored
	out := stored
	return &out, nil
}

func (m *memoryMembers) GetMemberByEmail(ctx context.Context, email string) (*model.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if found, ok := m.members[email]; ok {
		out := *found
		return &out, nil
	}
	return nil, model.ErrMemberNotFound
}

func (m *memoryMembers) GetMemberByID(ctx context.Context, id int64) (*model.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, found := range m.members {
		if found.ID == id {
			out := *found
			return &out, nil
		}
	}
	return nil, model.ErrMemberNotFound
}

func (m *memoryMembers) ExistsByNickname(ctx context.Context, nickname string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, found := range m.members {
		if found.Nickname == nickname {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryMembers) DeleteMember(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for email, found := range m.members {
		if found.ID == id {
			delete(m.members, email)
			return nil
		}
	}
	return model.ErrMemberNotFound
}

type testServer struct {
	router  *gin.Engine
	codec   *service.TokenCodec
	store   *db.RedisRefreshStore
	members *memoryMembers
	cookies service.CookieConfig
}

type testOption func(*RouterDeps, *testServer)

func withOAuth2Providers(providers map[string]OAuth2Provider, redirectURL string) testOption {
	return func(d *RouterDeps, s *testServer) {
		resolver := service.NewFederationResolver(s.members, zap.NewNop())
		d.OAuth2 = NewOAuth2Handler(providers, resolver, d.Sessions, s.cookies, redirectURL, metrics.Nop{}, zap.NewNop())
	}
}

func withRateLimiter(rl *RateLimiter) testOption {
	return func(d *RouterDeps, _ *testServer) {
		d.RateLimiter = rl
	}
}

func newTestServer(t *testing.T, opts ...testOption) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	codec, err := service.NewTokenCodec(testSecret)
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := db.NewRedisRefreshStore(client, "test:")

	members := newMemoryMembers()
	auth, err := service.NewAuthService(members, zap.NewNop())
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	sessions := service.NewSessionIssuer(codec, store)
	cookies := service.CookieConfig{Path: "/", SameSite: http.SameSiteLaxMode}

	s := &testServer{codec: codec, store: store, members: members, cookies: cookies}
	deps := RouterDeps{
		Codec:    codec,
		Sessions: sessions,
		Cookies:  cookies,
		Auth:     NewAuthHandler(auth, sessions, cookies, metrics.Nop{}),
		Members:  NewMemberHandler(service.NewMemberService(members, store, zap.NewNop())),
		Recorder: metrics.Nop{},
		Logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&deps, s)
	}

	s.router = NewRouter(deps)
	return s
}

func (s *testServer) addMember(t *testing.T, email, password string, role model.Role) *model.Member {
	t.Helper()
	m := &model.Member{Email: email, Name: "이름", Nickname: "nick-" + email[:1], Role: role}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("hash: %v", err)
		}
		m.PasswordHash = string(hash)
	} else {
		m.OAuth2Login = true
	}
	created, err := s.members.CreateMember(context.Background(), m)
	if err != nil {
		t.Fatalf("CreateMember: %v", err)
	}
	return created
}

func (s *testServer) issue(t *testing.T, category, username string, role model.Role, federated bool, provider string) string {
	t.Helper()
	ttl := service.AccessTokenTTL
	if category == service.CategoryRefresh {
		ttl = service.RefreshTokenTTL
	}
	token, err := s.codec.Issue(category, username, role, ttl, federated, provider)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return token
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
