package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}}
}

func (f *fakeRateStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeRateStore) RateLimitKey(parts ...string) string {
	return "sf:rate_limit:" + strings.Join(parts, ":")
}

func limitedHandler(policy RateLimitPolicy, store rateCounter) http.Handler {
	return AuthRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func loginRequest(body, remote string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.RemoteAddr = remote
	return req
}

func TestAuthRateLimitRestoresBodyForHandler(t *testing.T) {
	store := newFakeRateStore()
	policy := RateLimitPolicy{Name: "login", Window: time.Minute, PerIP: 2, PerEmail: 2}
	handler := AuthRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if !strings.Contains(string(body), `"email":"tester@example.com"`) {
			t.Fatalf("unexpected body: %s", string(body))
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest(`{"email":"tester@example.com","password":"secret"}`, "1.2.3.4:5678"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthRateLimitBlocksRepeatedEmailAcrossIPs(t *testing.T) {
	store := newFakeRateStore()
	handler := limitedHandler(RateLimitPolicy{Name: "login", Window: time.Minute, PerEmail: 2}, store)

	remotes := []string{"1.1.1.1:1", "2.2.2.2:2", "3.3.3.3:3"}
	for i, remote := range remotes {
		rec := httptest.NewRecorder()
		// html forms post url-encoded; mixed case must hit the same counter
		body := "email=Blocked%40Example.com&password=secret"
		if i == 1 {
			body = `{"email":"blocked@example.com"}`
		}
		handler.ServeHTTP(rec, loginRequest(body, remote))

		if i < 2 {
			if rec.Code != http.StatusOK {
				t.Fatalf("attempt %d: expected 200, got %d", i, rec.Code)
			}
			continue
		}
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", rec.Code)
		}
		if rec.Header().Get("Retry-After") != "60" {
			t.Fatalf("unexpected Retry-After %q", rec.Header().Get("Retry-After"))
		}
		var payload struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode error: %v", err)
		}
		if payload.Error.Code != string(pkgerrors.CodeRateLimit) {
			t.Fatalf("unexpected code: %s", payload.Error.Code)
		}
	}
}

func TestAuthRateLimitBlockedIPDoesNotCountEmail(t *testing.T) {
	store := newFakeRateStore()
	handler := limitedHandler(RateLimitPolicy{Name: "otp", Window: time.Minute, PerIP: 1, PerEmail: 5}, store)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest(`{"email":"foo@example.com"}`, "5.6.7.8:1234"))
		if i == 0 && rec.Code != http.StatusOK {
			t.Fatalf("expected success, got %d", rec.Code)
		}
		if i > 0 && rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", rec.Code)
		}
	}

	var emailCount int64
	for key, count := range store.counts {
		if strings.HasPrefix(key, "sf:rate_limit:otp:email:") {
			emailCount = count
		}
	}
	if emailCount != 1 {
		t.Fatalf("expected one email attempt, got %d (%v)", emailCount, store.counts)
	}
}

func TestAuthRateLimitKeysUsePolicyThenDimension(t *testing.T) {
	store := newFakeRateStore()
	handler := limitedHandler(RateLimitPolicy{Name: " Login ", Window: time.Minute, PerIP: 5}, store)

	req := loginRequest(`{}`, "9.9.9.9:1000")
	req.Header.Set("X-Forwarded-For", "7.7.7.7, 10.0.0.1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if _, ok := store.counts["sf:rate_limit:login:ip:7.7.7.7"]; !ok {
		t.Fatalf("expected forwarded client key, got %v", store.counts)
	}
}

func TestAuthRateLimitPolicyFromConfig(t *testing.T) {
	policy := RateLimitPolicyFor("otp", config.AuthRateLimitConfig{LoginWindow: time.Minute, LoginIPLimit: 20, LoginEmailLimit: 5})
	if policy.Name != "otp" || policy.PerIP != 20 || policy.PerEmail != 5 || policy.Window != time.Minute {
		t.Fatalf("unexpected policy %+v", policy)
	}
	if (RateLimitPolicy{Window: time.Minute}).active() {
		t.Fatalf("policy without limits should be inactive")
	}
}
