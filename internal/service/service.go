// service содержит бизнес-логику auth-сервиса: выпуск, ротацию и отзыв
// пар токенов (TokenService) и пользовательские сценарии регистрации,
// входа, выхода и обновления (Service).
//
// Основные аспекты:
//   - Экземпляры не хранят состояние запроса и безопасны для конкурентного
//     использования при условии, что хранилища потокобезопасны.
//   - Ошибки возвращаются как sentinel-значения (errors.Is) и далее
//     маппятся транспортом на HTTP-статусы.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/pribylovaa/auth-service/internal/revocation"
	"github.com/pribylovaa/auth-service/internal/storage"
	"github.com/pribylovaa/auth-service/internal/token"
	"github.com/pribylovaa/auth-service/internal/validation"
)

var (
	// ErrInvalidData — входные данные не прошли схему валидации.
	// Транспорт: HTTP 422.
	ErrInvalidData = validation.ErrInvalidData

	// ErrDuplicateUser — username или e-mail уже заняты.
	// Транспорт: HTTP 409.
	ErrDuplicateUser = errors.New("user already exists")

	// ErrInvalidCredentials — пользователь не найден или пароль неверен.
	// Эти случаи намеренно не различаются. Транспорт: HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound — профиль не найден. Транспорт: HTTP 404.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidToken — подпись/структура токена некорректны. Транспорт: HTTP 401.
	ErrInvalidToken = token.ErrInvalidToken

	// ErrExpiredToken — срок действия токена истёк. Транспорт: HTTP 401.
	ErrExpiredToken = token.ErrExpiredToken

	// ErrWrongTokenKind — предъявлен токен не того вида (access вместо refresh и наоборот).
	// Транспорт: HTTP 401.
	ErrWrongTokenKind = errors.New("wrong token kind")

	// ErrTokenRevoked — токен отозван (logout или уже использованный refresh).
	// Транспорт: HTTP 401.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrMissingToken — заголовок Authorization отсутствует. Транспорт: HTTP 401.
	ErrMissingToken = errors.New("missing token")

	// ErrStoreUnavailable — чёрный список недоступен; ошибка временная.
	// Транспорт: HTTP 503.
	ErrStoreUnavailable = revocation.ErrUnavailable
)

// Validator проверяет входные данные по именованной схеме.
type Validator interface {
	Validate(schema string, data any) error
}

// PasswordHasher хэширует и сверяет пароли.
type PasswordHasher interface {
	Hash(ctx context.Context, plain string) (string, error)
	Compare(ctx context.Context, plain, hashed string) (bool, error)
}

// Service реализует пользовательские сценарии поверх хранилища пользователей,
// хэшера паролей и TokenService.
type Service struct {
	users     storage.UserStorage
	hasher    PasswordHasher
	validator Validator
	tokens    *TokenService
}

// New создаёт новый экземпляр Service.
func New(users storage.UserStorage, hasher PasswordHasher, validator Validator, tokens *TokenService) *Service {
	return &Service{
		users:     users,
		hasher:    hasher,
		validator: validator,
		tokens:    tokens,
	}
}

// Tokens возвращает TokenService, через который работает Service.
func (s *Service) Tokens() *TokenService {
	return s.tokens
}

// storeErr приводит ошибку чёрного списка к ErrStoreUnavailable.
func storeErr(op string, err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
