package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/dailog/backend/internal/model"
)

const (
	ProviderGoogle = "google"
	ProviderKakao  = "kakao"
	ProviderNaver  = "naver"
)

var (
	ErrUnsupportedProvider    = errors.New("unsupported oauth2 provider")
	ErrInvalidProviderPayload = errors.New("invalid oauth2 provider payload")
)

// FederatedIdentity is what one provider payload says about the user, with
// the email already namespaced by provider.
type FederatedIdentity struct {
	Provider   string
	ProviderID string
	Email      string
	Name       string
	Nickname   string
}

// FederatedLogin is the outcome of a resolved OAuth2 login. Name and Nickname
// come from the stored member record.
type FederatedLogin struct {
	Principal model.FederatedPrincipal
	Name      string
	Nickname  string
}

type FederationResolver struct {
	members MemberRepository
	logger  *zap.Logger
}

func NewFederationResolver(members MemberRepository, logger *zap.Logger) *FederationResolver {
	return &FederationResolver{members: members, logger: logger}
}

// Resolve maps a provider payload to a local member, creating one on first
// login. An existing member keeps its stored role and nickname.
func (r *FederationResolver) Resolve(ctx context.Context, provider string, attrs map[string]any) (*FederatedLogin, error) {
	identity, err := ExtractIdentity(provider, attrs)
	if err != nil {
		return nil, err
	}

	member, err := r.members.GetMemberByEmail(ctx, identity.Email)
	switch {
	case err == nil:
	case errors.Is(err, model.ErrMemberNotFound):
		member, err = r.provision(ctx, identity)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	return &FederatedLogin{
		Principal: model.NewFederatedPrincipal(member.Email, member.Role, identity.Provider),
		Name:      member.Name,
		Nickname:  member.Nickname,
	}, nil
}

func (r *FederationResolver) provision(ctx context.Context, identity FederatedIdentity) (*model.Member, error) {
	created, err := r.members.CreateMember(ctx, &model.Member{
		Email:       identity.Email,
		Name:        identity.Name,
		Nickname:    identity.Nickname,
		Role:        model.RoleMember,
		OAuth2Login: true,
	})
	if err == nil {
		r.logger.Info("federated member provisioned",
			zap.String("provider", identity.Provider),
			zap.Int64("member_id", created.ID),
		)
		return created, nil
	}

	// 동시 첫 로그인: 먼저 생성된 회원을 다시 읽음
	if isUniqueViolation(err) {
		return r.members.GetMemberByEmail(ctx, identity.Email)
	}
	return nil, fmt.Errorf("provision federated member: %w", err)
}

// ExtractIdentity reads the provider-specific payload shape.
func ExtractIdentity(provider string, attrs map[string]any) (FederatedIdentity, error) {
	var (
		id, email, name string
		prefix          string
	)

	switch provider {
	case ProviderGoogle:
		id = stringAttr(attrs["sub"])
		email = stringAttr(attrs["email"])
		name = stringAttr(attrs["name"])
		prefix = "GoogleUser_"
	case ProviderKakao:
		id = stringAttr(attrs["id"])
		if id != "" {
			email = id + "@kakao.com"
		}
		if props, ok := attrs["properties"].(map[string]any); ok {
			name = stringAttr(props["nickname"])
		}
		prefix = "KakaoUser_"
	case ProviderNaver:
		resp, ok := attrs["response"].(map[string]any)
		if !ok {
			return FederatedIdentity{}, fmt.Errorf("%w: naver response object missing", ErrInvalidProviderPayload)
		}
		id = stringAttr(resp["id"])
		email = stringAttr(resp["email"])
		name = stringAttr(resp["name"])
		prefix = "NaverUser_"
	default:
		return FederatedIdentity{}, fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider)
	}

	if id == "" || email == "" {
		return FederatedIdentity{}, fmt.Errorf("%w: %s id or email missing", ErrInvalidProviderPayload, provider)
	}
	if name == "" {
		name = prefix + firstN(id, 4)
	}

	return FederatedIdentity{
		Provider:   provider,
		ProviderID: id,
		Email:      provider + "_" + email,
		Name:       name,
		Nickname:   prefix + firstN(id, 4),
	}, nil
}

func stringAttr(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	default:
		return ""
	}
}

func firstN(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
