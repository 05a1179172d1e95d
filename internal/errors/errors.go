// errors стандартизирует ответы об ошибках HTTP-слоя.
// На вход принимает доменную ошибку (sentinel из service и ниже),
// на выход даёт:
//   - корректный HTTP-статус;
//   - стабильный машиночитаемый code;
//   - безопасное message без утечки внутренних деталей.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/pribylovaa/auth-service/internal/service"
	"github.com/pribylovaa/auth-service/internal/validation"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// APIError — единый формат ошибки для клиента.
// Code — короткий стабильный код для машиночитаемой обработки.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть (для трассировки).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// mapping — порядок важен: ErrStoreUnavailable может оборачивать
// context.DeadlineExceeded и должен победить.
var mapping = []struct {
	err    error
	status int
	code   string
	msg    string
}{
	{service.ErrStoreUnavailable, http.StatusServiceUnavailable, "unavailable", "service unavailable"},
	{service.ErrDuplicateUser, http.StatusConflict, "duplicate_user", "user already exists"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", "invalid credentials"},
	{service.ErrExpiredToken, http.StatusUnauthorized, "expired_token", "token expired"},
	{service.ErrInvalidToken, http.StatusUnauthorized, "invalid_token", "invalid token"},
	{service.ErrWrongTokenKind, http.StatusUnauthorized, "wrong_token_kind", "wrong token kind"},
	{service.ErrTokenRevoked, http.StatusUnauthorized, "token_revoked", "token revoked"},
	{service.ErrMissingToken, http.StatusUnauthorized, "missing_token", "missing authorization token"},
	{service.ErrUserNotFound, http.StatusNotFound, "not_found", "not found"},
	{context.Canceled, StatusClientClosedRequest, "canceled", "canceled"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"},
}

// ToHTTP конвертирует доменную ошибку в HTTP-статус и унифицированный ответ.
//
// Поведение:
//   - err == nil — программная ошибка вызова: 500/internal, чтобы не послать
//     "200 OK" с телом ошибки;
//   - ErrInvalidData — 422/invalid_data, message перечисляет поля;
//   - известные sentinel-ошибки — по таблице mapping;
//   - прочее — 500/internal без деталей.
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return internal()
	}

	var verr *validation.Error
	if stderrors.As(err, &verr) {
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error: APIError{Code: "invalid_data", Message: verr.Message},
		}
	}
	if stderrors.Is(err, service.ErrInvalidData) {
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error: APIError{Code: "invalid_data", Message: "invalid data"},
		}
	}

	for _, m := range mapping {
		if stderrors.Is(err, m.err) {
			return m.status, ErrorResponse{
				Error: APIError{Code: m.code, Message: m.msg},
			}
		}
	}

	return internal()
}

func internal() (int, ErrorResponse) {
	return http.StatusInternalServerError, ErrorResponse{
		Error: APIError{
			Code:    "internal",
			Message: "internal error",
		},
	}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="auth-service"`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
