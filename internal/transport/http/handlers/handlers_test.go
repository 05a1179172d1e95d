package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/auth-service/internal/models"
	"github.com/pribylovaa/auth-service/internal/service"
	"github.com/pribylovaa/auth-service/internal/validation"
)

// stubService — AuthService с настраиваемыми ответами.
type stubService struct {
	pair    *models.TokenPair
	profile *models.Profile
	outcome models.RevokeOutcome
	err     error

	gotRegister models.RegisterInput
	gotLogin    models.LoginInput
	gotAuth     string
}

func (s *stubService) Register(_ context.Context, in models.RegisterInput) (*models.TokenPair, error) {
	s.gotRegister = in
	return s.pair, s.err
}

func (s *stubService) Login(_ context.Context, in models.LoginInput) (*models.TokenPair, error) {
	s.gotLogin = in
	return s.pair, s.err
}

func (s *stubService) Logout(_ context.Context, authorization string) (models.RevokeOutcome, error) {
	s.gotAuth = authorization
	return s.outcome, s.err
}

func (s *stubService) Refresh(_ context.Context, authorization string) (*models.TokenPair, error) {
	s.gotAuth = authorization
	return s.pair, s.err
}

func (s *stubService) Profile(_ context.Context, _ string) (*models.Profile, error) {
	return s.profile, s.err
}

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
}

func TestRegisterUser_Created(t *testing.T) {
	t.Parallel()

	st := &stubService{pair: &models.TokenPair{AccessToken: "a", RefreshToken: "r"}}
	h := New(st)

	rr := httptest.NewRecorder()
	h.RegisterUser(rr, post(`{"username":"janete_corca","email":"janete@corca.com","password":"123janete456corca"}`))

	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	require.JSONEq(t, `{"message":"user created","accessToken":"a","refreshToken":"r"}`, rr.Body.String())
	require.Equal(t, "janete_corca", st.gotRegister.Username)
}

func TestLoginUser_OK(t *testing.T) {
	t.Parallel()

	st := &stubService{pair: &models.TokenPair{AccessToken: "a", RefreshToken: "r"}}
	h := New(st)

	rr := httptest.NewRecorder()
	h.LoginUser(rr, post(`{"email":"janete@corca.com","password":"x"}`))

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"accessToken":"a","refreshToken":"r"}`, rr.Body.String())
	require.Equal(t, "janete@corca.com", st.gotLogin.Email)
}

func TestDecodeStrict_Rejections(t *testing.T) {
	t.Parallel()

	tcs := map[string]string{
		"empty":         ``,
		"syntax":        `{"username":`,
		"unknown field": `{"username":"a","admin":true}`,
		"wrong type":    `{"username":42}`,
		"two objects":   `{"username":"a"}{"username":"b"}`,
		"too large":     `{"username":"` + strings.Repeat("a", maxBodyBytes) + `"}`,
	}

	for name, body := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var in models.RegisterInput
			err := decodeStrict(httptest.NewRecorder(), post(body), &in)
			require.ErrorIs(t, err, validation.ErrInvalidData)

			var verr *validation.Error
			require.True(t, errors.As(err, &verr))
			require.True(t, strings.HasPrefix(verr.Message, "invalid data:"))
		})
	}
}

func TestRegisterUser_MalformedBody_NoServiceCall(t *testing.T) {
	t.Parallel()

	st := &stubService{}
	h := New(st)

	rr := httptest.NewRecorder()
	h.RegisterUser(rr, post(`{"username":`))

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Empty(t, st.gotRegister.Username)
}

func TestLogout_PassesHeaderAndIgnoresOutcome(t *testing.T) {
	t.Parallel()

	st := &stubService{outcome: models.RevokeIgnored}
	h := New(st)

	req := post("")
	req.Header.Set("Authorization", "Bearer x")
	rr := httptest.NewRecorder()
	h.Logout(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"message":"logged out"}`, rr.Body.String())
	require.Equal(t, "Bearer x", st.gotAuth)
}

func TestLogout_StoreUnavailable(t *testing.T) {
	t.Parallel()

	h := New(&stubService{err: service.ErrStoreUnavailable})

	rr := httptest.NewRecorder()
	h.Logout(rr, post(""))

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRefreshToken_Errors(t *testing.T) {
	t.Parallel()

	h := New(&stubService{err: service.ErrTokenRevoked})

	rr := httptest.NewRecorder()
	h.RefreshToken(rr, post(""))

	require.Equal(t, http.StatusUnauthorized, rr.Code)

	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.Equal(t, "token_revoked", env.Error.Code)
}
