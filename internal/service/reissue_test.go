package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailog/backend/internal/model"
)

func refreshCookie(value string) []*http.Cookie {
	return []*http.Cookie{{Name: RefreshCookieName, Value: value}}
}

func TestSessionIssueStoresRefresh(t *testing.T) {
	sessions, codec, store := newTestSessions(t)
	ctx := context.Background()

	pair, err := sessions.Issue(ctx, model.NewFederatedPrincipal("kakao_1@kakao.com", model.RoleMember, "kakao"))
	require.NoError(t, err)

	access, err := codec.Verify(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, CategoryAccess, access.Category)
	assert.True(t, access.OAuth2Login)
	assert.Equal(t, "kakao", access.ProviderName())

	stored, err := store.Get(ctx, "kakao_1@kakao.com")
	require.NoError(t, err)
	assert.Equal(t, pair.Refresh, stored)
}

func TestReissueRotatesRefreshToken(t *testing.T) {
	sessions, codec, store := newTestSessions(t)
	ctx := context.Background()

	first, err := sessions.Issue(ctx, model.NewLocalPrincipal("a@b.com", model.RoleAdmin))
	require.NoError(t, err)

	second, err := sessions.Reissue(ctx, refreshCookie(first.Refresh))
	require.NoError(t, err)
	require.NotEqual(t, first.Refresh, second.Refresh)

	exists, err := store.Exists(ctx, first.Refresh)
	require.NoError(t, err)
	assert.False(t, exists, "old refresh token must be gone after rotation")

	exists, err = store.Exists(ctx, second.Refresh)
	require.NoError(t, err)
	assert.True(t, exists)

	claims, err := codec.Verify(second.Access)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", claims.Username)
	assert.Equal(t, "ADMIN", claims.Role)

	_, err = sessions.Reissue(ctx, refreshCookie(first.Refresh))
	assert.ErrorIs(t, err, ErrInvalidRefreshToken, "replaying a rotated token must fail")
}

func TestReissueFailures(t *testing.T) {
	sessions, codec, _ := newTestSessions(t)
	ctx := context.Background()

	expired, err := codec.Issue(CategoryRefresh, "a@b.com", model.RoleMember, -time.Millisecond, false, "")
	require.NoError(t, err)
	access, err := codec.Issue(CategoryAccess, "a@b.com", model.RoleMember, time.Hour, false, "")
	require.NoError(t, err)
	neverStored, err := codec.Issue(CategoryRefresh, "a@b.com", model.RoleMember, time.Hour, false, "")
	require.NoError(t, err)
	noUser, err := codec.Issue(CategoryRefresh, "", model.RoleMember, time.Hour, false, "")
	require.NoError(t, err)

	tests := []struct {
		name    string
		cookies []*http.Cookie
		want    error
	}{
		{name: "no-cookies", cookies: nil, want: ErrCookieNotFound},
		{name: "no-refresh-cookie", cookies: []*http.Cookie{{Name: "other", Value: "x"}}, want: ErrRefreshTokenNotFound},
		{name: "expired", cookies: refreshCookie(expired), want: ErrRefreshTokenExpired},
		{name: "malformed", cookies: refreshCookie("garbage"), want: ErrRefreshTokenMalformed},
		{name: "access-category", cookies: refreshCookie(access), want: ErrInvalidRefreshToken},
		{name: "missing-username", cookies: refreshCookie(noUser), want: ErrInvalidRefreshToken},
		{name: "never-stored", cookies: refreshCookie(neverStored), want: ErrInvalidRefreshToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sessions.Reissue(ctx, tt.cookies)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRevoke(t *testing.T) {
	sessions, codec, store := newTestSessions(t)
	ctx := context.Background()

	pair, err := sessions.Issue(ctx, model.NewLocalPrincipal("a@b.com", model.RoleMember))
	require.NoError(t, err)

	assert.ErrorIs(t, sessions.Revoke(ctx, pair.Access), ErrInvalidRefreshToken)
	assert.ErrorIs(t, sessions.Revoke(ctx, "garbage"), ErrInvalidRefreshToken)

	other, err := codec.Issue(CategoryRefresh, "x@b.com", model.RoleMember, time.Hour, false, "")
	require.NoError(t, err)
	assert.ErrorIs(t, sessions.Revoke(ctx, other), ErrInvalidRefreshToken)

	require.NoError(t, sessions.Revoke(ctx, pair.Refresh))
	exists, err := store.Exists(ctx, pair.Refresh)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestReissueImmediatelyAfterIssue(t *testing.T) {
	sessions, codec, store := newTestSessions(t)
	ctx := context.Background()
	fixed := time.Now()
	codec.now = func() time.Time { return fixed }

	first, err := sessions.Issue(ctx, model.NewLocalPrincipal("a@b.com", model.RoleMember))
	require.NoError(t, err)

	second, err := sessions.Reissue(ctx, refreshCookie(first.Refresh))
	require.NoError(t, err)
	require.NotEqual(t, first.Refresh, second.Refresh)

	exists, err := store.Exists(ctx, first.Refresh)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = sessions.Reissue(ctx, refreshCookie(first.Refresh))
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	third, err := sessions.Reissue(ctx, refreshCookie(second.Refresh))
	require.NoError(t, err)
	assert.NotEqual(t, second.Refresh, third.Refresh)
}
