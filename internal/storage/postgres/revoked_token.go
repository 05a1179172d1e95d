package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pribylovaa/auth-service/internal/revocation"
)

// RevokedTokens — долговечный чёрный список поверх таблицы revoked_tokens.
// Пул соединений принадлежит Storage, поэтому Close останавливает только janitor.
type RevokedTokens struct {
	s   *Storage
	now func() time.Time

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// RevokedTokens возвращает чёрный список, разделяющий пул с Storage.
// Если janitorPeriod > 0, запускается фоновая очистка просроченных записей.
func (s *Storage) RevokedTokens(janitorPeriod time.Duration, log *slog.Logger) *RevokedTokens {
	ctx, cancel := context.WithCancel(context.Background())
	r := &RevokedTokens{
		s:      s,
		now:    time.Now,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	if janitorPeriod <= 0 {
		close(r.done)
		return r
	}

	if log == nil {
		log = slog.Default()
	}

	go r.janitor(ctx, janitorPeriod, log)
	return r
}

// Add атомарно добавляет запись (INSERT ... ON CONFLICT DO UPDATE ... WHERE истекла).
// Просроченная запись с тем же id переписывается: её время уже вышло.
func (r *RevokedTokens) Add(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	const op = "storage.postgres.RevokedTokens.Add"

	now := r.now().UTC()
	if !now.Before(expiresAt) {
		return true, nil
	}

	query := `
		INSERT INTO revoked_tokens(token_id, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (token_id) DO UPDATE
			SET expires_at = EXCLUDED.expires_at
			WHERE revoked_tokens.expires_at <= $3
	`

	tag, err := r.s.db.Exec(ctx, query, tokenID, expiresAt.UTC(), now)
	if err != nil {
		return false, fmt.Errorf("%s: %w: %w", op, revocation.ErrUnavailable, err)
	}

	return tag.RowsAffected() == 1, nil
}

// Contains сообщает, есть ли действующая запись для tokenID.
func (r *RevokedTokens) Contains(ctx context.Context, tokenID string) (bool, error) {
	const op = "storage.postgres.RevokedTokens.Contains"

	query := `
		SELECT EXISTS (
			SELECT 1 FROM revoked_tokens
			WHERE token_id = $1 AND expires_at > $2
		)
	`

	var exists bool
	if err := r.s.db.QueryRow(ctx, query, tokenID, r.now().UTC()).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w: %w", op, revocation.ErrUnavailable, err)
	}

	return exists, nil
}

// DeleteExpired удаляет все записи, срок которых истёк к now.
func (r *RevokedTokens) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage.postgres.RevokedTokens.DeleteExpired"

	query := `
		DELETE FROM revoked_tokens
		WHERE expires_at <= $1
	`

	tag, err := r.s.db.Exec(ctx, query, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected(), nil
}

// Close останавливает janitor. Пул закрывается через Storage.Close.
func (r *RevokedTokens) Close() error {
	r.closeOnce.Do(r.cancel)
	<-r.done
	return nil
}

// janitor периодически удаляет просроченные записи.
func (r *RevokedTokens) janitor(ctx context.Context, period time.Duration, log *slog.Logger) {
	defer close(r.done)

	t := time.NewTicker(period)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := r.DeleteExpired(ctx, r.now())
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Error("revoked_janitor_failed", slog.String("err", err.Error()))
				continue
			}
			if n > 0 {
				log.Debug("revoked_janitor_swept", slog.Int64("deleted", n))
			}
		}
	}
}

var _ revocation.Store = (*RevokedTokens)(nil)
