// 외부 OAuth2 제공자(google, kakao, naver)와 통신하는 클라이언트
//
// 환경변수:
//   - GOOGLE_CLIENT_ID / GOOGLE_CLIENT_SECRET / GOOGLE_REDIRECT_URL
//   - KAKAO_CLIENT_ID / KAKAO_CLIENT_SECRET / KAKAO_REDIRECT_URL
//   - NAVER_CLIENT_ID / NAVER_CLIENT_SECRET / NAVER_REDIRECT_URL
//
// google 은 OIDC discovery 후 ID 토큰 클레임을 사용하고,
// kakao/naver 는 사용자 정보 API 응답을 그대로 속성 맵으로 돌려준다.

package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/dailog/backend/internal/config"
)

const (
	GoogleIssuer = "https://accounts.google.com"

	kakaoAuthURL     = "https://kauth.kakao.com/oauth/authorize"
	kakaoTokenURL    = "https://kauth.kakao.com/oauth/token"
	kakaoUserInfoURL = "https://kapi.kakao.com/v2/user/me"

	naverAuthURL     = "https://nid.naver.com/oauth2.0/authorize"
	naverTokenURL    = "https://nid.naver.com/oauth2.0/token"
	naverUserInfoURL = "https://openapi.naver.com/v1/nid/me"

	userInfoTimeout  = 10 * time.Second
	maxUserInfoBytes = 1 << 20
)

var ErrMissingIDToken = errors.New("id token missing from token response")

// OIDCProvider - ID 토큰을 검증하고 클레임을 속성으로 사용
type OIDCProvider struct {
	name     string
	config   *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

func NewOIDCProvider(ctx context.Context, name, issuer string, cfg config.OAuth2ClientConfig) (*OIDCProvider, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover %s endpoints: %w", name, err)
	}

	return &OIDCProvider{
		name: name,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

func NewGoogleProvider(ctx context.Context, cfg config.OAuth2ClientConfig) (*OIDCProvider, error) {
	return NewOIDCProvider(ctx, "google", GoogleIssuer, cfg)
}

func (p *OIDCProvider) Name() string { return p.name }

func (p *OIDCProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

func (p *OIDCProvider) Exchange(ctx context.Context, code string) (map[string]any, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s code exchange: %w", p.name, err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, ErrMissingIDToken
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%s id token: %w", p.name, err)
	}

	var attrs map[string]any
	if err := idToken.Claims(&attrs); err != nil {
		return nil, fmt.Errorf("%s id token claims: %w", p.name, err)
	}
	return attrs, nil
}

// UserInfoProvider - 액세스 토큰으로 사용자 정보 API 를 호출
type UserInfoProvider struct {
	name        string
	config      *oauth2.Config
	userInfoURL string
}

func NewUserInfoProvider(name string, conf *oauth2.Config, userInfoURL string) *UserInfoProvider {
	return &UserInfoProvider{name: name, config: conf, userInfoURL: userInfoURL}
}

func NewKakaoProvider(cfg config.OAuth2ClientConfig) *UserInfoProvider {
	return NewUserInfoProvider("kakao", &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:   kakaoAuthURL,
			TokenURL:  kakaoTokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Scopes: []string{"profile_nickname"},
	}, kakaoUserInfoURL)
}

func NewNaverProvider(cfg config.OAuth2ClientConfig) *UserInfoProvider {
	return NewUserInfoProvider("naver", &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:   naverAuthURL,
			TokenURL:  naverTokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Scopes: []string{"name", "email"},
	}, naverUserInfoURL)
}

func (p *UserInfoProvider) Name() string { return p.name }

func (p *UserInfoProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

func (p *UserInfoProvider) Exchange(ctx context.Context, code string) (map[string]any, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s code exchange: %w", p.name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, userInfoTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s user info: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s user info: status %d: %s", p.name, resp.StatusCode, body)
	}

	// kakao id 는 큰 정수라 float64 로 읽으면 자릿수가 깨짐
	dec := json.NewDecoder(io.LimitReader(resp.Body, maxUserInfoBytes))
	dec.UseNumber()
	var attrs map[string]any
	if err := dec.Decode(&attrs); err != nil {
		return nil, fmt.Errorf("%s user info decode: %w", p.name, err)
	}
	return attrs, nil
}
