// memory реализует revocation.Store в памяти процесса.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pribylovaa/auth-service/internal/revocation"
)

// Store — чёрный список в памяти процесса.
// Просроченные записи не видны сразу (ленивая проверка) и вычищаются janitor'ом.
type Store struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New создаёт хранилище. janitorPeriod <= 0 отключает фоновую очистку.
func New(janitorPeriod time.Duration) *Store {
	s := &Store{
		entries: make(map[string]time.Time),
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	if janitorPeriod <= 0 {
		close(s.done)
		return s
	}

	go s.janitor(janitorPeriod)
	return s
}

// Add атомарно добавляет tokenID, если его ещё нет; false — запись уже была.
func (s *Store) Add(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("%w: %w", revocation.ErrUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if exp, ok := s.entries[tokenID]; ok && now.Before(exp) {
		return false, nil
	}

	// Токен уже мёртв по своему сроку — хранить нечего.
	if !now.Before(expiresAt) {
		delete(s.entries, tokenID)
		return true, nil
	}

	s.entries[tokenID] = expiresAt
	return true, nil
}

// Contains сообщает, есть ли tokenID среди непросроченных записей.
func (s *Store) Contains(ctx context.Context, tokenID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("%w: %w", revocation.ErrUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.entries[tokenID]
	return ok && s.now().Before(exp), nil
}

// Len возвращает число хранимых записей (включая ещё не вычищенные просроченные).
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

// Close останавливает janitor и дожидается его выхода.
func (s *Store) Close() error {
	s.closeOnce.Do(func() { close(s.stop) })
	<-s.done
	return nil
}

func (s *Store) janitor(period time.Duration) {
	defer close(s.done)

	t := time.NewTicker(period)
	defer t.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
			s.sweep()
		}
	}
}

func (s *Store) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, exp := range s.entries {
		if !now.Before(exp) {
			delete(s.entries, id)
		}
	}
}

var _ revocation.Store = (*Store)(nil)
