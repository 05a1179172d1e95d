// revocation описывает чёрный список идентификаторов токенов (jti),
// отозванных до истечения их собственного срока.
//
// Хранилище — быстрая проверка существования ключа с TTL, а не система учёта:
// запись нужна не дольше, чем живёт сам токен. Реализации:
//   - revocation/redis — SET NX с истечением (основной вариант);
//   - storage/postgres — таблица revoked_tokens + janitor (долговечный вариант);
//   - revocation/memory — map в памяти процесса (local/тесты).
package revocation

//go:generate mockgen -source=revocation.go -destination=../../mocks/mock_revocation.go -package=mocks

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable — хранилище недоступно или не ответило вовремя.
// Такая ошибка временная и никогда не означает «токен не отозван».
var ErrUnavailable = errors.New("revocation store unavailable")

// Store — контракт чёрного списка. Реализации безопасны для конкурентного использования.
type Store interface {
	// Add атомарно добавляет tokenID, если его ещё нет.
	// added=false означает, что идентификатор уже был отозван ранее.
	// Запись может быть удалена не раньше expiresAt.
	Add(ctx context.Context, tokenID string, expiresAt time.Time) (added bool, err error)
	// Contains сообщает, отозван ли tokenID.
	Contains(ctx context.Context, tokenID string) (bool, error)
	// Close освобождает ресурсы. Повторный вызов безопасен.
	Close() error
}
