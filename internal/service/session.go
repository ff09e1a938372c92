package service

import (
	"context"
	"fmt"

	"github.com/dailog/backend/internal/model"
)

type TokenPair struct {
	Access  string
	Refresh string
}

// SessionIssuer mints an access/refresh pair for a principal and records the
// refresh token as the principal's only live one.
type SessionIssuer struct {
	codec   *TokenCodec
	refresh RefreshStore
}

func NewSessionIssuer(codec *TokenCodec, refresh RefreshStore) *SessionIssuer {
	return &SessionIssuer{codec: codec, refresh: refresh}
}

func (s *SessionIssuer) Issue(ctx context.Context, p model.Principal) (TokenPair, error) {
	pair, err := s.mint(p.Username(), p.Role(), p.Federated(), p.Provider())
	if err != nil {
		return TokenPair{}, err
	}

	if err := s.refresh.Save(ctx, p.Username(), pair.Refresh, RefreshTokenTTL); err != nil {
		return TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}
	return pair, nil
}

func (s *SessionIssuer) mint(username string, role model.Role, federated bool, provider string) (TokenPair, error) {
	access, err := s.codec.Issue(CategoryAccess, username, role, AccessTokenTTL, federated, provider)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}

	refresh, err := s.codec.Issue(CategoryRefresh, username, role, RefreshTokenTTL, federated, provider)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}

	return TokenPair{Access: access, Refresh: refresh}, nil
}
