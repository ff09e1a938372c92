package service

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/dailog/backend/internal/db"
	"github.com/dailog/backend/internal/model"
)

type fakeMembers struct {
	mu      sync.Mutex
	byEmail map[string]*model.Member
	nextID  int64
	creates int

	// raceOnCreate 는 다른 요청이 먼저 같은 이메일을 저장한 상황을 흉내냄
	raceOnCreate bool
}

func newFakeMembers() *fakeMembers {
	return &fakeMembers{byEmail: map[string]*model.Member{}, nextID: 1}
}

func (f *fakeMembers) add(m model.Member) *model.Member {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = f.nextID
	f.nextID++
	stored := m
	f.byEmail[m.Email] = &stored
	return &stored
}

func (f *fakeMembers) CreateMember(ctx context.Context, m *model.Member) (*model.Member, error) {
	if f.raceOnCreate {
		f.raceOnCreate = false
		f.add(*m)
		return nil, &pgconn.PgError{Code: "23505", ConstraintName: "members_email_key"}
	}

	f.mu.Lock()
	if _, ok := f.byEmail[m.Email]; ok {
		f.mu.Unlock()
		return nil, &pgconn.PgError{Code: "23505", ConstraintName: "members_email_key"}
	}
	f.creates++
	f.mu.Unlock()

	created := f.add(*m)
	copied := *created
	return &copied, nil
}

func (f *fakeMembers) GetMemberByEmail(ctx context.Context, email string) (*model.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.byEmail[email]
	if !ok {
		return nil, model.ErrMemberNotFound
	}
	copied := *m
	return &copied, nil
}

func (f *fakeMembers) GetMemberByID(ctx context.Context, id int64) (*model.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.byEmail {
		if m.ID == id {
			copied := *m
			return &copied, nil
		}
	}
	return nil, model.ErrMemberNotFound
}

func (f *fakeMembers) ExistsByNickname(ctx context.Context, nickname string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.byEmail {
		if m.Nickname == nickname {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMembers) DeleteMember(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for email, m := range f.byEmail {
		if m.ID == id {
			delete(f.byEmail, email)
			return nil
		}
	}
	return model.ErrMemberNotFound
}

func (f *fakeMembers) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byEmail)
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(hash)
}

func newTestRefreshStore(t *testing.T) (*db.RedisRefreshStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return db.NewRedisRefreshStore(client, "test:"), mr
}

func newTestSessions(t *testing.T) (*SessionIssuer, *TokenCodec, *db.RedisRefreshStore) {
	t.Helper()
	codec := newTestCodec(t)
	store, _ := newTestRefreshStore(t)
	return NewSessionIssuer(codec, store), codec, store
}

func newTestAuthService(t *testing.T, members MemberRepository) *AuthService {
	t.Helper()
	svc, err := NewAuthService(members, zap.NewNop())
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	return svc
}
