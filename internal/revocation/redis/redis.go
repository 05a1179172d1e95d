// redis реализует чёрный список токенов поверх Redis.
//
// Каждая запись — отдельный ключ prefix+jti со сроком жизни до истечения самого
// токена. Добавление выполняется одной командой SET NX, поэтому проверка
// «уже отозван?» и запись атомарны относительно других клиентов.
package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pribylovaa/auth-service/internal/revocation"
)

// DefaultPrefix — префикс ключей по умолчанию.
const DefaultPrefix = "auth:revoked:"

// Store — чёрный список в Redis.
type Store struct {
	rdb    *goredis.Client
	prefix string
	now    func() time.Time

	closeOnce sync.Once
	closeErr  error
}

// New создаёт клиент Redis из URL (например, redis://:pass@host:6379/0)
// и проверяет соединение. Если prefix пустой — используется DefaultPrefix.
func New(ctx context.Context, redisURL, prefix string) (*Store, error) {
	const op = "revocation.redis.New"

	opt, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := goredis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w: %w", op, revocation.ErrUnavailable, err)
	}

	return NewWithClient(rdb, prefix), nil
}

// NewWithClient оборачивает готовый клиент. Store становится его владельцем
// и закрывает его в Close.
func NewWithClient(rdb *goredis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return &Store{rdb: rdb, prefix: prefix, now: time.Now}
}

func (s *Store) key(tokenID string) string { return s.prefix + tokenID }

// Add выполняет SET key 1 NX с TTL до expiresAt.
func (s *Store) Add(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	const op = "revocation.redis.Add"

	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return true, nil
	}

	added, err := s.rdb.SetNX(ctx, s.key(tokenID), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w: %w", op, revocation.ErrUnavailable, err)
	}

	return added, nil
}

// Contains проверяет наличие ключа. Ошибка Redis (включая таймаут контекста)
// возвращается как ErrUnavailable, а не как «не отозван».
func (s *Store) Contains(ctx context.Context, tokenID string) (bool, error) {
	const op = "revocation.redis.Contains"

	n, err := s.rdb.Exists(ctx, s.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w: %w", op, revocation.ErrUnavailable, err)
	}

	return n == 1, nil
}

// Ping проверяет доступность Redis (readiness).
func (s *Store) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("revocation.redis.Ping: %w: %w", revocation.ErrUnavailable, err)
	}

	return nil
}

// Close закрывает клиент Redis ровно один раз.
func (s *Store) Close() error {
	s.closeOnce.Do(func() { s.closeErr = s.rdb.Close() })
	return s.closeErr
}

var _ revocation.Store = (*Store)(nil)
