package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/auth-service/internal/config"
	"github.com/pribylovaa/auth-service/internal/metrics"
	"github.com/pribylovaa/auth-service/internal/models"
	"github.com/pribylovaa/auth-service/internal/password"
	"github.com/pribylovaa/auth-service/internal/revocation/memory"
	"github.com/pribylovaa/auth-service/internal/service"
	"github.com/pribylovaa/auth-service/internal/storage"
	"github.com/pribylovaa/auth-service/internal/token"
	"github.com/pribylovaa/auth-service/internal/validation"
)

// memUsers — потокобезопасное in-memory хранилище пользователей для сквозных тестов.
type memUsers struct {
	mu      sync.Mutex
	byName  map[string]*models.User
	byEmail map[string]*models.User
}

func newMemUsers() *memUsers {
	return &memUsers{byName: map[string]*models.User{}, byEmail: map[string]*models.User{}}
}

func (m *memUsers) SaveUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byName[u.Username]; ok {
		return storage.ErrAlreadyExists
	}
	if _, ok := m.byEmail[u.Email]; ok {
		return storage.ErrAlreadyExists
	}
	cp := *u
	m.byName[u.Username] = &cp
	m.byEmail[u.Email] = &cp
	return nil
}

func (m *memUsers) UserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byName[username]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) UserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byEmail[email]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func newTestRouter(t *testing.T) (http.Handler, *memUsers) {
	t.Helper()

	cfg := config.AuthConfig{
		JWTSecret:       "router-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "auth-service",
		Audience:        []string{"web"},
	}

	codec, err := token.NewCodec(cfg.JWTSecret, cfg.Issuer, cfg.Audience, 0)
	require.NoError(t, err)

	store := memory.New(0)
	t.Cleanup(func() { _ = store.Close() })

	hasher, err := password.New(bcrypt.MinCost, 2)
	require.NoError(t, err)

	m := metrics.New()
	users := newMemUsers()
	svc := service.New(users, hasher, validation.New(), service.NewTokenService(codec, store, cfg, m))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(svc, Options{Logger: logger, Metrics: m, Timeout: 5 * time.Second}), users
}

type tokensBody struct {
	Message      string `json:"message"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type errBody struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	} `json:"error"`
}

func do(t *testing.T, h http.Handler, method, path, body, authorization string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

const janeteJSON = `{"username":"janete_corca","email":"janete@corca.com","password":"123janete456corca"}`

func TestRegister_Created(t *testing.T) {
	t.Parallel()

	h, users := newTestRouter(t)

	rr := do(t, h, http.MethodPost, "/users", janeteJSON, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	body := decode[tokensBody](t, rr)
	require.Equal(t, "user created", body.Message)
	require.NotEmpty(t, body.AccessToken)
	require.NotEmpty(t, body.RefreshToken)

	u, err := users.UserByUsername(context.Background(), "janete_corca")
	require.NoError(t, err)
	require.NotEqual(t, "123janete456corca", u.PasswordHash)
}

func TestRegister_Errors(t *testing.T) {
	t.Parallel()

	h, users := newTestRouter(t)

	rr := do(t, h, http.MethodPost, "/users",
		`{"username":"janete_corca","email":"janete@corca.com","password":"123"}`, "")
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	eb := decode[errBody](t, rr)
	require.Equal(t, "invalid_data", eb.Error.Code)
	require.Contains(t, eb.Error.Message, "password")
	require.NotEmpty(t, eb.Error.RequestID)

	_, err := users.UserByUsername(context.Background(), "janete_corca")
	require.ErrorIs(t, err, storage.ErrNotFound)

	rr = do(t, h, http.MethodPost, "/users", `{"username":"janete_corca","extra":1}`, "")
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = do(t, h, http.MethodPost, "/users", `{not json`, "")
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = do(t, h, http.MethodPost, "/users", "", "")
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/users", janeteJSON, "").Code)

	rr = do(t, h, http.MethodPost, "/users", janeteJSON, "")
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, "duplicate_user", decode[errBody](t, rr).Error.Code)
}

func TestRegister_MultibytePasswordOverBcryptLimit(t *testing.T) {
	t.Parallel()

	h, users := newTestRouter(t)

	// 42 символа, 84 байта.
	rr := do(t, h, http.MethodPost, "/users",
		`{"username":"janete_corca","email":"janete@corca.com","password":"парольпарольпарольпарольпарольпарольпароль"}`, "")
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	eb := decode[errBody](t, rr)
	require.Equal(t, "invalid_data", eb.Error.Code)
	require.Contains(t, eb.Error.Message, "password")

	_, err := users.UserByUsername(context.Background(), "janete_corca")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLogin(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/users", janeteJSON, "").Code)

	rr := do(t, h, http.MethodPost, "/auth/login", `{"username":"janete_corca","password":"123janete456corca"}`, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decode[tokensBody](t, rr)
	require.NotEmpty(t, body.AccessToken)
	require.NotEmpty(t, body.RefreshToken)

	rr = do(t, h, http.MethodPost, "/auth/login", `{"email":"JANETE@corca.com","password":"123janete456corca"}`, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	for _, bad := range []string{
		`{"username":"janete_corca","password":"wrong-password"}`,
		`{"username":"nobody","password":"123janete456corca"}`,
	} {
		rr = do(t, h, http.MethodPost, "/auth/login", bad, "")
		require.Equal(t, http.StatusUnauthorized, rr.Code)
		require.Equal(t, "invalid_credentials", decode[errBody](t, rr).Error.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t)

	reg := decode[tokensBody](t, do(t, h, http.MethodPost, "/users", janeteJSON, ""))

	// Профиль доступен с access-токеном.
	rr := do(t, h, http.MethodGet, "/users/janete_corca", "", "Bearer "+reg.AccessToken)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	p := decode[models.Profile](t, rr)
	require.Equal(t, models.Profile{Username: "janete_corca", Email: "janete@corca.com"}, p)
	require.NotContains(t, rr.Body.String(), "password")

	// Без токена и с refresh вместо access — 401.
	rr = do(t, h, http.MethodGet, "/users/janete_corca", "", "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "missing_token", decode[errBody](t, rr).Error.Code)

	rr = do(t, h, http.MethodGet, "/users/janete_corca", "", "Bearer "+reg.RefreshToken)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "wrong_token_kind", decode[errBody](t, rr).Error.Code)

	// Несуществующий профиль — 404.
	rr = do(t, h, http.MethodGet, "/users/ghost", "", "Bearer "+reg.AccessToken)
	require.Equal(t, http.StatusNotFound, rr.Code)

	// Refresh одноразовый.
	rr = do(t, h, http.MethodPost, "/auth/refresh", "", "Bearer "+reg.RefreshToken)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	next := decode[tokensBody](t, rr)

	rr = do(t, h, http.MethodPost, "/auth/refresh", "", "Bearer "+reg.RefreshToken)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "token_revoked", decode[errBody](t, rr).Error.Code)

	rr = do(t, h, http.MethodPost, "/auth/refresh", "", "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "missing_token", decode[errBody](t, rr).Error.Code)

	// Logout отзывает access-токен.
	rr = do(t, h, http.MethodPost, "/auth/logout", "", "Bearer "+next.AccessToken)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "logged out", decode[tokensBody](t, rr).Message)

	rr = do(t, h, http.MethodGet, "/users/janete_corca", "", "Bearer "+next.AccessToken)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "token_revoked", decode[errBody](t, rr).Error.Code)
}

func TestLogout_WithoutTokenIsNoop(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t)

	for _, auth := range []string{"", "Bearer garbage", "Basic abc"} {
		rr := do(t, h, http.MethodPost, "/auth/logout", "", auth)
		require.Equal(t, http.StatusOK, rr.Code, auth)
	}
}

func TestRouter_BasePath(t *testing.T) {
	t.Parallel()

	codec, err := token.NewCodec("s", "", nil, 0)
	require.NoError(t, err)
	store := memory.New(0)
	t.Cleanup(func() { _ = store.Close() })
	hasher, err := password.New(bcrypt.MinCost, 1)
	require.NoError(t, err)

	svc := service.New(newMemUsers(), hasher, validation.New(),
		service.NewTokenService(codec, store, config.AuthConfig{AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour}, nil))
	h := NewRouter(svc, Options{BasePath: "/api"})

	rr := do(t, h, http.MethodPost, "/api/auth/logout", "", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, http.MethodPost, "/auth/logout", "", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
}
