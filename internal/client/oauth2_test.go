package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/oauth2"

	"github.com/dailog/backend/internal/config"
)

func newUserInfoServer(t *testing.T, userInfo string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse token form: %v", err)
		}
		if r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"provider-token","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer provider-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(userInfo))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testUserInfoProvider(srv *httptest.Server) *UserInfoProvider {
	return NewUserInfoProvider("kakao", &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8080/login/oauth2/code/kakao",
		Endpoint: oauth2.Endpoint{
			AuthURL:   srv.URL + "/authorize",
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}, srv.URL+"/me")
}

func TestUserInfoProviderExchange(t *testing.T) {
	srv := newUserInfoServer(t, `{"id":3141592653589,"properties":{"nickname":"카카오"}}`)
	p := testUserInfoProvider(srv)

	attrs, err := p.Exchange(context.Background(), "good-code")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}

	id, ok := attrs["id"].(json.Number)
	if !ok || id.String() != "3141592653589" {
		t.Fatalf("expected id to keep every digit, got %#v", attrs["id"])
	}
	props, _ := attrs["properties"].(map[string]any)
	if props["nickname"] != "카카오" {
		t.Fatalf("unexpected properties: %#v", attrs["properties"])
	}
}

func TestUserInfoProviderExchangeFailure(t *testing.T) {
	srv := newUserInfoServer(t, `{}`)
	p := testUserInfoProvider(srv)

	if _, err := p.Exchange(context.Background(), "bad-code"); err == nil {
		t.Fatal("expected exchange error for rejected code")
	}
}

func TestUserInfoProviderAuthCodeURL(t *testing.T) {
	srv := newUserInfoServer(t, `{}`)
	p := testUserInfoProvider(srv)

	raw := p.AuthCodeURL("state-123")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse auth url: %v", err)
	}
	if !strings.HasPrefix(raw, srv.URL+"/authorize") {
		t.Fatalf("unexpected auth url %s", raw)
	}
	q := u.Query()
	if q.Get("state") != "state-123" || q.Get("client_id") != "client" || q.Get("response_type") != "code" {
		t.Fatalf("unexpected auth query: %v", q)
	}
}

func TestOIDCProviderDiscovery(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 srv.URL,
			"authorization_endpoint": srv.URL + "/auth",
			"token_endpoint":         srv.URL + "/token",
			"jwks_uri":               srv.URL + "/keys",
		})
	}))
	defer srv.Close()

	p, err := NewOIDCProvider(context.Background(), "google", srv.URL, config.OAuth2ClientConfig{
		ClientID:    "client",
		RedirectURL: "http://localhost:8080/login/oauth2/code/google",
	})
	if err != nil {
		t.Fatalf("NewOIDCProvider: %v", err)
	}
	if p.Name() != "google" {
		t.Fatalf("unexpected name %q", p.Name())
	}

	u, err := url.Parse(p.AuthCodeURL("s"))
	if err != nil {
		t.Fatalf("parse auth url: %v", err)
	}
	if u.Path != "/auth" || !strings.Contains(u.Query().Get("scope"), "openid") {
		t.Fatalf("unexpected auth url %s", u)
	}
}
