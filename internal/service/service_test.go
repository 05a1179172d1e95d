package service

import (
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/auth-service/internal/config"
	"github.com/pribylovaa/auth-service/internal/metrics"
	"github.com/pribylovaa/auth-service/internal/password"
	"github.com/pribylovaa/auth-service/internal/revocation"
	"github.com/pribylovaa/auth-service/internal/revocation/memory"
	"github.com/pribylovaa/auth-service/internal/token"
	"github.com/pribylovaa/auth-service/internal/validation"
	"github.com/pribylovaa/auth-service/mocks"
)

const (
	testSecret   = "unit-secret"
	testIssuer   = "auth-service"
	testAudience = "web"
)

func testCfg() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:       testSecret,
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          testIssuer,
		Audience:        []string{testAudience},
	}
}

func newCodec(t *testing.T, opts ...token.Option) *token.Codec {
	t.Helper()
	c, err := token.NewCodec(testSecret, testIssuer, []string{testAudience}, 0, opts...)
	require.NoError(t, err)
	return c
}

// fixture — Service с моком хранилища пользователей и реальными
// хэшером, валидатором, кодеком и in-memory чёрным списком.
type fixture struct {
	svc    *Service
	users  *mocks.MockUserStorage
	store  revocation.Store
	codec  *token.Codec
	hasher *password.Hasher
	m      *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.New(0)
	t.Cleanup(func() { _ = store.Close() })

	return newFixtureWithStore(t, store)
}

func newFixtureWithStore(t *testing.T, store revocation.Store) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserStorage(ctrl)

	hasher, err := password.New(bcrypt.MinCost, 2)
	require.NoError(t, err)

	codec := newCodec(t)
	m := metrics.New()
	tokens := NewTokenService(codec, store, testCfg(), m)

	return &fixture{
		svc:    New(users, hasher, validation.New(), tokens),
		users:  users,
		store:  store,
		codec:  codec,
		hasher: hasher,
		m:      m,
	}
}
