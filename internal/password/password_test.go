package password

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := New(bcrypt.MinCost, 2)
	require.NoError(t, err)
	return h
}

func TestNew_RejectsCostOutOfRange(t *testing.T) {
	t.Parallel()

	_, err := New(bcrypt.MinCost-1, 1)
	require.Error(t, err)

	_, err = New(bcrypt.MaxCost+1, 1)
	require.Error(t, err)

	h, err := New(bcrypt.DefaultCost, 0)
	require.NoError(t, err)
	require.NotNil(t, h)
}

func TestHashAndCompare_OK(t *testing.T) {
	t.Parallel()

	h := newHasher(t)
	ctx := context.Background()

	for _, pw := range []string{"123janete456corca", "P@ssw0rd!", "пароль-юникод", " "} {
		hashed, err := h.Hash(ctx, pw)
		require.NoError(t, err)
		require.NotEqual(t, pw, hashed)

		ok, err := h.Compare(ctx, pw, hashed)
		require.NoError(t, err)
		require.True(t, ok, "пароль %q должен совпасть со своим хэшем", pw)
	}
}

func TestCompare_DifferentPassword_False(t *testing.T) {
	t.Parallel()

	h := newHasher(t)
	ctx := context.Background()

	hashed, err := h.Hash(ctx, "123janete456corca")
	require.NoError(t, err)

	ok, err := h.Compare(ctx, "123janete456corcA", hashed)
	require.NoError(t, err)
	require.False(t, ok)
}

// Один и тот же пароль даёт разные хэши (соль), и оба проверяются.
func TestHash_Salted(t *testing.T) {
	t.Parallel()

	h := newHasher(t)
	ctx := context.Background()

	a, err := h.Hash(ctx, "same-password")
	require.NoError(t, err)
	b, err := h.Hash(ctx, "same-password")
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	for _, hashed := range []string{a, b} {
		ok, err := h.Compare(ctx, "same-password", hashed)
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestCompare_MalformedHash(t *testing.T) {
	t.Parallel()

	h := newHasher(t)
	ctx := context.Background()

	for _, hashed := range []string{"", "plain-text", "$2a$10$short", "$9z$10$abcdefghijklmnopqrstuuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ01"} {
		ok, err := h.Compare(ctx, "whatever", hashed)
		require.False(t, ok)
		require.ErrorIs(t, err, ErrInvalidCredentialFormat, "hash %q", hashed)
	}
}

func TestHash_RespectsContextWhileWaitingForWorker(t *testing.T) {
	t.Parallel()

	h, err := New(bcrypt.MinCost, 1)
	require.NoError(t, err)

	// Занимаем единственный слот.
	require.NoError(t, h.sem.Acquire(context.Background(), 1))
	defer h.sem.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = h.Hash(ctx, "pw")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = h.Compare(ctx, "pw", "$2a$04$abcdefghijklmnopqrstuu")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
