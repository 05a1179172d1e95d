package service

import "strings"

const bearerScheme = "Bearer"

// BearerToken извлекает токен из значения заголовка Authorization ("Bearer <token>").
//
// Пустой заголовок — ErrMissingToken; другая схема, отсутствие токена
// или лишние части — ErrInvalidToken. Схема сравнивается без учёта регистра.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingToken
	}

	scheme, tok, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return "", ErrInvalidToken
	}

	tok = strings.TrimSpace(tok)
	if tok == "" || strings.ContainsAny(tok, " \t") {
		return "", ErrInvalidToken
	}

	return tok, nil
}
