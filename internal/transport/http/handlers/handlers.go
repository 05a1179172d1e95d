// handlers — HTTP-обработчики публичного API auth-сервиса.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/pribylovaa/auth-service/internal/models"
	"github.com/pribylovaa/auth-service/internal/validation"
)

// maxBodyBytes ограничивает размер тела запроса.
const maxBodyBytes = 1 << 20

// AuthService — сценарии, которые обслуживает HTTP API.
type AuthService interface {
	Register(ctx context.Context, in models.RegisterInput) (*models.TokenPair, error)
	Login(ctx context.Context, in models.LoginInput) (*models.TokenPair, error)
	Logout(ctx context.Context, authorization string) (models.RevokeOutcome, error)
	Refresh(ctx context.Context, authorization string) (*models.TokenPair, error)
	Profile(ctx context.Context, username string) (*models.Profile, error)
}

// Handlers агрегирует зависимости обработчиков.
type Handlers struct {
	svc AuthService
}

func New(svc AuthService) *Handlers {
	return &Handlers{svc: svc}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля и хвост после объекта.
// Любая ошибка разбора — ErrInvalidData.
func decodeStrict(w http.ResponseWriter, r *http.Request, value any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(value); err != nil {
		return &validation.Error{Message: fmt.Sprintf("invalid data: malformed JSON body: %s", describeJSONErr(err))}
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return &validation.Error{Message: "invalid data: body must contain a single JSON object"}
	}

	return nil
}

func describeJSONErr(err error) string {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		maxErr    *http.MaxBytesError
	)

	switch {
	case errors.Is(err, io.EOF):
		return "empty body"
	case errors.As(err, &syntaxErr):
		return fmt.Sprintf("syntax error at offset %d", syntaxErr.Offset)
	case errors.As(err, &typeErr):
		return fmt.Sprintf("field '%s' has wrong type", typeErr.Field)
	case errors.As(err, &maxErr):
		return "body too large"
	default:
		// "json: unknown field \"x\"" и прочее — сообщения encoding/json безопасны.
		return err.Error()
	}
}
