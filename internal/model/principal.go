package model

import (
	"context"
	"slices"
)

// Principal is the authenticated caller of one request. It is rebuilt from the
// access token on every request and never mutated afterwards.
//
// The set of implementations is closed: LocalPrincipal for email/password
// logins and FederatedPrincipal for OAuth2 logins.
type Principal interface {
	Username() string
	Role() Role
	Authorities() []string
	HasAuthority(authority string) bool
	Federated() bool
	Provider() string

	principal()
}

type LocalPrincipal struct {
	username string
	role     Role
}

func NewLocalPrincipal(username string, role Role) LocalPrincipal {
	return LocalPrincipal{username: username, role: role}
}

func (p LocalPrincipal) Username() string      { return p.username }
func (p LocalPrincipal) Role() Role            { return p.role }
func (p LocalPrincipal) Authorities() []string { return p.role.Authorities() }
func (p LocalPrincipal) Federated() bool       { return false }
func (p LocalPrincipal) Provider() string      { return "" }
func (p LocalPrincipal) principal()            {}

func (p LocalPrincipal) HasAuthority(authority string) bool {
	return slices.Contains(p.Authorities(), authority)
}

type FederatedPrincipal struct {
	username string
	role     Role
	provider string
}

func NewFederatedPrincipal(username string, role Role, provider string) FederatedPrincipal {
	return FederatedPrincipal{username: username, role: role, provider: provider}
}

func (p FederatedPrincipal) Username() string      { return p.username }
func (p FederatedPrincipal) Role() Role            { return p.role }
func (p FederatedPrincipal) Authorities() []string { return p.role.Authorities() }
func (p FederatedPrincipal) Federated() bool       { return true }
func (p FederatedPrincipal) Provider() string      { return p.provider }
func (p FederatedPrincipal) principal()            {}

func (p FederatedPrincipal) HasAuthority(authority string) bool {
	return slices.Contains(p.Authorities(), authority)
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal installed by the access gate, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
