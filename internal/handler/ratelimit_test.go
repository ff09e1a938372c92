package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	rl := NewRateLimiter(2)
	t.Cleanup(rl.Stop)
	s := newTestServer(t, withRateLimiter(rl))

	login := func(remoteAddr string) *httptest.ResponseRecorder {
		req := postJSON("/api/auth/login", `{"email":"a@b.com","password":"x"}`)
		req.RemoteAddr = remoteAddr
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 2; i++ {
		if w := login("10.0.0.1:1234"); w.Code != http.StatusBadRequest {
			t.Fatalf("request %d: expected 400 from handler, got %d", i, w.Code)
		}
	}

	w := login("10.0.0.1:1234")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}

	if w := login("10.0.0.2:1234"); w.Code == http.StatusTooManyRequests {
		t.Fatal("other clients must keep their own bucket")
	}

	// reissue 는 제한 대상이 아님
	req := httptest.NewRequest(http.MethodPost, "/api/auth/reissue", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rw := httptest.NewRecorder()
	s.router.ServeHTTP(rw, req)
	if rw.Code == http.StatusTooManyRequests {
		t.Fatal("reissue must not be rate limited")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(10)
	t.Cleanup(rl.Stop)

	rl.get("idle")
	rl.get("active")
	rl.mu.Lock()
	rl.clients["idle"].lastAccess = time.Now().Add(-2 * limiterIdleTTL)
	rl.mu.Unlock()

	rl.cleanup(time.Now())

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.clients["idle"]; ok {
		t.Fatal("idle client should be evicted")
	}
	if _, ok := rl.clients["active"]; !ok {
		t.Fatal("active client should be kept")
	}
}
