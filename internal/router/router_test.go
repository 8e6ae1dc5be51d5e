package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-minimal-auth/internal/config"
	"go-minimal-auth/internal/handler"
	"go-minimal-auth/internal/middleware"
	"go-minimal-auth/internal/model"
	"go-minimal-auth/internal/repository"
	"go-minimal-auth/internal/security"
	"go-minimal-auth/internal/service"
)

const testSecret = "router-test-secret"

type testServer struct {
	server *httptest.Server
	store  *repository.MemoryUserRepository
}

func newTestServer(t *testing.T, overrides map[string]string) *testServer {
	t.Helper()

	vars := map[string]string{
		"JWT_SECRET":          testSecret,
		"STORE_DRIVER":        config.StoreDriverMemory,
		"AUTH_RATE_LIMIT_RPM": "1000",
		"RATE_LIMIT_RPM":      "1000",
	}
	for key, value := range overrides {
		vars[key] = value
	}

	cfg, err := config.LoadFrom(vars)
	require.NoError(t, err)

	store := repository.NewMemoryUserRepository()
	tokens, err := security.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL())
	require.NoError(t, err)
	authService, err := service.NewAuthService(store, security.NewPasswordHasher(bcrypt.MinCost), tokens)
	require.NoError(t, err)

	h := New(cfg, middleware.NewAuthMiddleware(authService), Handlers{
		Auth:   handler.NewAuthHandler(authService),
		User:   handler.NewUserHandler(authService),
		Health: handler.NewHealthHandler(store),
	})

	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	return &testServer{server: server, store: store}
}

func (s *testServer) do(t *testing.T, method string, path string, body any, token string) *http.Response {
	t.Helper()

	var payload *bytes.Reader
	switch v := body.(type) {
	case nil:
		payload = bytes.NewReader(nil)
	case string:
		payload = bytes.NewReader([]byte(v))
	default:
		encoded, err := json.Marshal(v)
		require.NoError(t, err)
		payload = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, s.server.URL+path, payload)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func credentials(username string, password string) map[string]string {
	return map[string]string{"username": username, "password": password}
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestAuthFlow(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)

	resp := ts.do(t, http.MethodPost, "/api/signup", credentials("alice", "secret1"), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	signup := decode[model.AuthResponse](t, resp)
	assert.Equal(t, "alice", signup.Username)
	require.NotEmpty(t, signup.Token)

	resp = ts.do(t, http.MethodPost, "/api/login", credentials("alice", "secret1"), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	login := decode[model.AuthResponse](t, resp)
	assert.Equal(t, "alice", login.Username)
	require.NotEmpty(t, login.Token)

	resp = ts.do(t, http.MethodGet, "/api/users", nil, login.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	users := decode[model.UsernamesResponse](t, resp)
	assert.Equal(t, []string{"alice"}, users.Usernames)

	resp = ts.do(t, http.MethodPost, "/api/login", credentials("alice", "wrong"), "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	wrongPassword := decode[model.APIResponse](t, resp)

	resp = ts.do(t, http.MethodPost, "/api/login", credentials("nobody", "secret1"), "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	unknownUser := decode[model.APIResponse](t, resp)

	// Unknown users and wrong passwords must be indistinguishable.
	assert.Equal(t, wrongPassword, unknownUser)
}

func TestSignupErrors(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)

	resp := ts.do(t, http.MethodPost, "/api/signup", credentials("alice", "secret1"), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/signup", credentials("alice", "another1"), "")
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	conflict := decode[model.APIResponse](t, resp)
	assert.False(t, conflict.Success)
	require.NotNil(t, conflict.Error)
	assert.Equal(t, "ALREADY_EXISTS", conflict.Error.Code)

	resp = ts.do(t, http.MethodPost, "/api/signup", credentials("ab", "secret1"), "")
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	invalid := decode[model.APIResponse](t, resp)
	require.NotNil(t, invalid.Error)
	assert.Equal(t, "VALIDATION_FAILED", invalid.Error.Code)
	details, ok := invalid.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, details, "username")

	resp = ts.do(t, http.MethodPost, "/api/signup", credentials("bob", "12345"), "")
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/signup", `{"username":`, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	users, err := ts.store.ListUsernamesOrderedByCreation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, users)
}

func TestWhitespaceUsernameRoundTrip(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)

	resp := ts.do(t, http.MethodPost, "/api/signup", credentials("   ", "secret1"), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "   ", decode[model.AuthResponse](t, resp).Username)

	resp = ts.do(t, http.MethodPost, "/api/login", credentials("   ", "secret1"), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := decode[model.AuthResponse](t, resp).Token

	resp = ts.do(t, http.MethodGet, "/api/users", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"   "}, decode[model.UsernamesResponse](t, resp).Usernames)
}

func TestLoginMissingFields(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)

	resp := ts.do(t, http.MethodPost, "/api/login", map[string]string{"username": "alice"}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestListUsersRequiresBearer(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)

	resp := ts.do(t, http.MethodPost, "/api/signup", credentials("zeta", "secret1"), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := decode[model.AuthResponse](t, resp).Token

	resp = ts.do(t, http.MethodPost, "/api/signup", credentials("alpha", "secret1"), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/users", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"zeta", "alpha"}, decode[model.UsernamesResponse](t, resp).Usernames)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "basic scheme", header: "Basic emV0YTpzZWNyZXQx"},
		{name: "garbage token", header: "Bearer not-a-jwt"},
		{name: "tampered token", header: "Bearer " + token + "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, ts.server.URL+"/api/users", nil)
			require.NoError(t, err)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)

	past := time.Now().Add(-2 * time.Hour)
	issuer, err := security.NewTokenIssuer(testSecret, time.Hour, security.WithClock(func() time.Time { return past }))
	require.NoError(t, err)
	token, err := issuer.Issue(security.Claims{Subject: "alice"}, time.Hour)
	require.NoError(t, err)

	resp := ts.do(t, http.MethodGet, "/api/users", nil, token)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBannerHealthAndHeaders(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)

	resp := ts.do(t, http.MethodGet, "/", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	banner := decode[model.BannerResponse](t, resp)
	assert.NotEmpty(t, banner.Message)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp = ts.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCustomPrefix(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, map[string]string{"API_PREFIX": "/"})

	resp := ts.do(t, http.MethodPost, "/signup", credentials("carol", "secret1"), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/signup", credentials("dave", "secret1"), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAuthRateLimitReturns429(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, map[string]string{"AUTH_RATE_LIMIT_RPM": "2"})

	for i := 0; i < 2; i++ {
		resp := ts.do(t, http.MethodPost, "/api/login", credentials("ghost", "secret1"), "")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp := ts.do(t, http.MethodPost, "/api/login", credentials("ghost", "secret1"), "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

type downStore struct{}

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealthReportsStoreFailure(t *testing.T) {
	t.Parallel()

	h := handler.NewHealthHandler(downStore{})
	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
