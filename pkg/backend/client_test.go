package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient("http://backend.test/api/v1/", WithHTTPClient(&http.Client{Transport: rt}))
	require.NoError(t, err)
	return client
}

type fakeCredentials struct {
	mu        sync.Mutex
	token     string
	next      string
	refreshes int
	refreshOK bool
}

func (f *fakeCredentials) AccessToken(context.Context) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeCredentials) Refresh(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	if !f.refreshOK {
		return false, errors.New("refresh rejected")
	}
	f.token = f.next
	return true, nil
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient("  ")
	require.Error(t, err)
}

func TestDoAttachesBearerAndBuildsURL(t *testing.T) {
	var captured *http.Request
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		captured = req
		return jsonResponse(http.StatusOK, `{"data":{"ok":true}}`), nil
	})

	ctx := WithCredentials(context.Background(), StaticToken("tok-1"))
	var out struct {
		OK bool `json:"ok"`
	}
	body, err := client.Do(ctx, Request{Op: "cart.add", Method: http.MethodPost, Path: "/cart/add", Body: map[string]any{"productId": "p1"}})
	require.NoError(t, err)
	require.NoError(t, Decode(body, &out))

	assert.True(t, out.OK)
	assert.Equal(t, "http://backend.test/api/v1/cart/add", captured.URL.String())
	assert.Equal(t, "Bearer tok-1", captured.Header.Get("Authorization"))
	assert.Equal(t, "application/json", captured.Header.Get("Content-Type"))
}

func TestDoWithoutTokenSendsNoAuthorization(t *testing.T) {
	var header string
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		header = req.Header.Get("Authorization")
		return jsonResponse(http.StatusOK, `[]`), nil
	})

	body, err := client.Do(context.Background(), Request{Op: "products.list", Path: "products"})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(body))
	assert.Empty(t, header)
}

func TestDoSurfacesBackendMessage(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusConflict, `{"message":"Product is out of stock"}`), nil
	})

	_, err := client.Do(context.Background(), Request{Op: "cart.add", Method: http.MethodPost, Path: "cart/add"})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
	assert.Equal(t, "Product is out of stock", typed.Message())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode())
}

func TestDoTransportFailureIsDependencyError(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	_, err := client.Do(context.Background(), Request{Op: "products.list", Path: "products"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}

func TestDoRefreshesOnceAndRetries(t *testing.T) {
	var seen []string
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		auth := req.Header.Get("Authorization")
		seen = append(seen, auth)
		if auth == "Bearer fresh" {
			return jsonResponse(http.StatusOK, `{"data":[]}`), nil
		}
		return jsonResponse(http.StatusUnauthorized, `{"message":"jwt expired"}`), nil
	})

	creds := &fakeCredentials{token: "stale", next: "fresh", refreshOK: true}
	_, err := client.Do(WithCredentials(context.Background(), creds), Request{Op: "cart.get", Path: "cart"})
	require.NoError(t, err)

	assert.Equal(t, 1, creds.refreshes)
	assert.Equal(t, []string{"Bearer stale", "Bearer fresh"}, seen)
}

func TestDoRetriesAtMostOnce(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusUnauthorized, `{"error":{"message":"session revoked"}}`), nil
	})

	creds := &fakeCredentials{token: "stale", next: "still-bad", refreshOK: true}
	_, err := client.Do(WithCredentials(context.Background(), creds), Request{Op: "cart.get", Path: "cart"})
	require.Error(t, err)

	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, creds.refreshes)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
	assert.Equal(t, "session revoked", pkgerrors.As(err).Message())
}

func TestDoSkipsRetryWhenRefreshFails(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusUnauthorized, `{}`), nil
	})

	creds := &fakeCredentials{token: "stale"}
	_, err := client.Do(WithCredentials(context.Background(), creds), Request{Op: "cart.get", Path: "cart"})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "Unauthorized", pkgerrors.As(err).Message())
}

func TestAnonymousRequestIgnoresCredentials(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		calls++
		assert.Empty(t, req.Header.Get("Authorization"))
		return jsonResponse(http.StatusUnauthorized, `{"message":"invalid refresh token"}`), nil
	})

	creds := &fakeCredentials{token: "stale", refreshOK: true}
	_, err := client.Do(WithCredentials(context.Background(), creds), Request{Op: "auth.refresh", Method: http.MethodPost, Path: "auth/refresh-token", Anonymous: true})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Zero(t, creds.refreshes)
}

func TestCanceledContextStopsRequest(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return nil, req.Context().Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Do(ctx, Request{Op: "products.list", Path: "products"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
