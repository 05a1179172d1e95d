package models

import "time"

// TokenKind — назначение токена: access или refresh.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Valid сообщает, является ли kind одним из известных значений.
func (k TokenKind) Valid() bool {
	return k == TokenKindAccess || k == TokenKindRefresh
}

// Claims — подписанные утверждения токена.
//
// Описание:
//   - Subject — имя пользователя, от лица которого выпущен токен;
//   - Kind — access/refresh, входит в подпись, поэтому токен одного вида
//     нельзя предъявить вместо другого;
//   - TokenID — уникальный идентификатор экземпляра (jti), ключ в чёрном списке;
//   - IssuedAt/ExpiresAt — границы действия (UTC).
type Claims struct {
	Subject   string
	Kind      TokenKind
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenPair — пара токенов, выдаваемая при регистрации, входе и обновлении.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"-"`
	RefreshExpiresAt time.Time `json:"-"`
}

// RevokeOutcome — результат попытки отзыва токена.
type RevokeOutcome int

const (
	// RevokeIgnored — токен не разобран (мусор, чужая подпись, истёк), отзывать нечего.
	RevokeIgnored RevokeOutcome = iota
	// RevokeRevoked — идентификатор токена записан в чёрный список.
	RevokeRevoked
)

func (o RevokeOutcome) String() string {
	switch o {
	case RevokeRevoked:
		return "revoked"
	default:
		return "ignored"
	}
}
