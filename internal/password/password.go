// password реализует необратимое хэширование паролей (bcrypt) и их проверку.
//
// Хэширование — CPU-bound операция, поэтому одновременно выполняется не больше
// workers вычислений; остальные вызовы ждут слот с учётом отмены контекста.
// Соль генерируется на каждый вызов и хранится внутри результата вместе с cost,
// поэтому для проверки отдельное хранение соли не нужно.
package password

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// ErrInvalidCredentialFormat — сохранённый хэш пустой или не является bcrypt-хэшем.
var ErrInvalidCredentialFormat = errors.New("invalid credential format")

// Hasher хэширует и проверяет пароли. Безопасен для конкурентного использования.
type Hasher struct {
	cost int
	sem  *semaphore.Weighted
}

// New создаёт Hasher с заданной стоимостью bcrypt.
// workers <= 0 означает runtime.GOMAXPROCS(0).
func New(cost, workers int) (*Hasher, error) {
	const op = "password.New"

	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%s: bcrypt cost %d out of range [%d, %d]", op, cost, bcrypt.MinCost, bcrypt.MaxCost)
	}

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	return &Hasher{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(workers)),
	}, nil
}

// Hash возвращает bcrypt-хэш пароля со случайной солью.
func (h *Hasher) Hash(ctx context.Context, plain string) (string, error) {
	const op = "password.Hash"

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer h.sem.Release(1)

	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(b), nil
}

// Compare сообщает, соответствует ли пароль хэшу.
//
// Контракт:
//   - (true, nil) — совпадение;
//   - (false, nil) — пароль не подходит;
//   - (false, ErrInvalidCredentialFormat) — hashed пустой или повреждён.
//
// Сравнение выполняется bcrypt за время, не зависящее от позиции расхождения.
func (h *Hasher) Compare(ctx context.Context, plain, hashed string) (bool, error) {
	const op = "password.Compare"

	if hashed == "" {
		return false, fmt.Errorf("%s: %w", op, ErrInvalidCredentialFormat)
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer h.sem.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%s: %w", op, ErrInvalidCredentialFormat)
	}
}
