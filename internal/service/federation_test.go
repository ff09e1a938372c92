package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dailog/backend/internal/model"
)

func decodeAttrs(t *testing.T, raw string) map[string]any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var attrs map[string]any
	if err := dec.Decode(&attrs); err != nil {
		t.Fatalf("decode attrs: %v", err)
	}
	return attrs
}

func TestExtractIdentity(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		payload  string
		want     FederatedIdentity
	}{
		{
			name:     "google",
			provider: ProviderGoogle,
			payload:  `{"sub":"109876543210","email":"gil@gmail.com","name":"홍길동"}`,
			want: FederatedIdentity{
				Provider:   "google",
				ProviderID: "109876543210",
				Email:      "google_gil@gmail.com",
				Name:       "홍길동",
				Nickname:   "GoogleUser_1098",
			},
		},
		{
			name:     "kakao-numeric-id",
			provider: ProviderKakao,
			payload:  `{"id":3141592653,"properties":{"nickname":"카카오"}}`,
			want: FederatedIdentity{
				Provider:   "kakao",
				ProviderID: "3141592653",
				Email:      "kakao_3141592653@kakao.com",
				Name:       "카카오",
				Nickname:   "KakaoUser_3141",
			},
		},
		{
			name:     "naver",
			provider: ProviderNaver,
			payload:  `{"resultcode":"00","response":{"id":"abcdEFGH","email":"n@naver.com","name":"네이버"}}`,
			want: FederatedIdentity{
				Provider:   "naver",
				ProviderID: "abcdEFGH",
				Email:      "naver_n@naver.com",
				Name:       "네이버",
				Nickname:   "NaverUser_abcd",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractIdentity(tt.provider, decodeAttrs(t, tt.payload))
			if err != nil {
				t.Fatalf("ExtractIdentity: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("identity mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractIdentityRejects(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		payload  string
		want     error
	}{
		{name: "unknown-provider", provider: "github", payload: `{"id":"1"}`, want: ErrUnsupportedProvider},
		{name: "google-missing-sub", provider: ProviderGoogle, payload: `{"email":"g@gmail.com"}`, want: ErrInvalidProviderPayload},
		{name: "kakao-missing-id", provider: ProviderKakao, payload: `{"properties":{}}`, want: ErrInvalidProviderPayload},
		{name: "naver-flat-payload", provider: ProviderNaver, payload: `{"id":"1","email":"n@naver.com"}`, want: ErrInvalidProviderPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractIdentity(tt.provider, decodeAttrs(t, tt.payload))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestResolveProvisionsOnce(t *testing.T) {
	members := newFakeMembers()
	resolver := NewFederationResolver(members, zap.NewNop())
	ctx := context.Background()
	attrs := map[string]any{"sub": "1234567", "email": "g@gmail.com", "name": "G"}

	first, err := resolver.Resolve(ctx, ProviderGoogle, attrs)
	require.NoError(t, err)
	second, err := resolver.Resolve(ctx, ProviderGoogle, attrs)
	require.NoError(t, err)

	assert.Equal(t, 1, members.count())
	assert.Equal(t, 1, members.creates)
	assert.Equal(t, "google_g@gmail.com", first.Principal.Username())
	assert.Equal(t, first.Principal, second.Principal)
	assert.True(t, first.Principal.Federated())
	assert.Equal(t, "google", first.Principal.Provider())

	stored, err := members.GetMemberByEmail(ctx, "google_g@gmail.com")
	require.NoError(t, err)
	assert.True(t, stored.OAuth2Login)
	assert.Empty(t, stored.PasswordHash)
	assert.Equal(t, model.RoleMember, stored.Role)
}

func TestResolveKeepsStoredRoleAndNickname(t *testing.T) {
	members := newFakeMembers()
	members.add(model.Member{
		Email:       "kakao_42@kakao.com",
		Name:        "운영자",
		Nickname:    "운영",
		Role:        model.RoleAdmin,
		OAuth2Login: true,
	})
	resolver := NewFederationResolver(members, zap.NewNop())

	login, err := resolver.Resolve(context.Background(), ProviderKakao, map[string]any{
		"id":         json.Number("42"),
		"properties": map[string]any{"nickname": "새이름"},
	})
	require.NoError(t, err)

	assert.Equal(t, model.RoleAdmin, login.Principal.Role())
	assert.Equal(t, "운영", login.Nickname)
	assert.Equal(t, "운영자", login.Name)
}

func TestResolveConcurrentFirstLogin(t *testing.T) {
	members := newFakeMembers()
	members.raceOnCreate = true
	resolver := NewFederationResolver(members, zap.NewNop())

	login, err := resolver.Resolve(context.Background(), ProviderNaver, map[string]any{
		"response": map[string]any{"id": "nv-1", "email": "n@naver.com", "name": "N"},
	})
	require.NoError(t, err)
	assert.Equal(t, "naver_n@naver.com", login.Principal.Username())
	assert.Equal(t, 1, members.count())
}
