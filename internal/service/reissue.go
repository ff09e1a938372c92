package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dailog/backend/internal/model"
)

// 재발급 실패 사유. 메시지가 그대로 400 응답 본문이 됨
var (
	ErrCookieNotFound        = errors.New("Cookie not found")
	ErrRefreshTokenNotFound  = errors.New("Refresh token not found")
	ErrRefreshTokenExpired   = errors.New("Refresh token expired")
	ErrRefreshTokenMalformed = errors.New("Malformed refresh token")
	ErrInvalidRefreshToken   = errors.New("Invalid refresh token")
)

// Reissue rotates a refresh token. Checks run in a fixed order and the first
// failure wins. On success the old entry is deleted before the new one is
// saved, so a failure in between leaves no live token for the user.
func (s *SessionIssuer) Reissue(ctx context.Context, cookies []*http.Cookie) (TokenPair, error) {
	if len(cookies) == 0 {
		return TokenPair{}, ErrCookieNotFound
	}

	var old string
	for _, c := range cookies {
		if c.Name == RefreshCookieName {
			old = c.Value
			break
		}
	}
	if old == "" {
		return TokenPair{}, ErrRefreshTokenNotFound
	}

	claims, err := s.codec.Verify(old)
	switch {
	case errors.Is(err, ErrTokenExpired):
		return TokenPair{}, ErrRefreshTokenExpired
	case err != nil:
		return TokenPair{}, ErrRefreshTokenMalformed
	}

	if claims.Category != CategoryRefresh || claims.Username == "" {
		return TokenPair{}, ErrInvalidRefreshToken
	}

	role, err := model.ParseRole(claims.Role)
	if err != nil {
		return TokenPair{}, ErrInvalidRefreshToken
	}

	exists, err := s.refresh.Exists(ctx, old)
	if err != nil {
		return TokenPair{}, fmt.Errorf("lookup refresh token: %w", err)
	}
	if !exists {
		return TokenPair{}, ErrInvalidRefreshToken
	}

	pair, err := s.mint(claims.Username, role, claims.OAuth2Login, claims.ProviderName())
	if err != nil {
		return TokenPair{}, err
	}

	if err := s.refresh.DeleteByToken(ctx, old); err != nil {
		return TokenPair{}, fmt.Errorf("delete refresh token: %w", err)
	}
	if err := s.refresh.Save(ctx, claims.Username, pair.Refresh, RefreshTokenTTL); err != nil {
		return TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}

	return pair, nil
}

// Revoke deletes a stored refresh token. The token must decode with the
// refresh category and still be stored.
func (s *SessionIssuer) Revoke(ctx context.Context, token string) error {
	claims, err := s.codec.Verify(token)
	if err != nil {
		return ErrInvalidRefreshToken
	}
	if claims.Category != CategoryRefresh {
		return ErrInvalidRefreshToken
	}

	exists, err := s.refresh.Exists(ctx, token)
	if err != nil {
		return fmt.Errorf("lookup refresh token: %w", err)
	}
	if !exists {
		return ErrInvalidRefreshToken
	}

	return s.refresh.DeleteByToken(ctx, token)
}
