// token реализует кодек подписанных, ограниченных по времени токенов (JWT HS256).
//
// Кодек чистый и без состояния: он не обращается к чёрному списку, этим
// занимается сервисный слой. Секрет подписи передаётся при создании и далее
// только читается.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/auth-service/internal/models"
)

var (
	// ErrInvalidToken — подпись не совпала, структура не разбирается
	// или обязательные поля отсутствуют.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken — срок действия токена истёк.
	ErrExpiredToken = errors.New("token expired")
)

type claims struct {
	Kind models.TokenKind `json:"knd"`
	jwt.RegisteredClaims
}

// Codec выпускает и разбирает токены.
type Codec struct {
	secret   []byte
	issuer   string
	audience []string
	leeway   time.Duration
	now      func() time.Time
}

// Option настраивает Codec.
type Option func(*Codec)

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// NewCodec создаёт кодек. Пустой секрет недопустим.
func NewCodec(secret, issuer string, audience []string, leeway time.Duration, opts ...Option) (*Codec, error) {
	const op = "token.NewCodec"

	if secret == "" {
		return nil, fmt.Errorf("%s: empty signing secret", op)
	}

	c := &Codec{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: append([]string(nil), audience...),
		leeway:   leeway,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Leeway — допуск на расхождение часов, с которым Decode принимает exp/iat.
func (c *Codec) Leeway() time.Duration { return c.leeway }

// Encode выпускает токен вида kind для subject со сроком жизни ttl.
// Каждый вызов получает новый TokenID.
func (c *Codec) Encode(subject string, kind models.TokenKind, ttl time.Duration) (string, models.Claims, error) {
	const op = "token.Encode"

	if subject == "" || !kind.Valid() || ttl <= 0 {
		return "", models.Claims{}, fmt.Errorf("%s: bad arguments (subject=%q kind=%q ttl=%s)", op, subject, kind, ttl)
	}

	// JWT хранит время с точностью до секунды.
	now := c.now().UTC().Truncate(time.Second)
	out := models.Claims{
		Subject:   subject,
		Kind:      kind,
		TokenID:   uuid.NewString(),
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        out.TokenID,
			Subject:   subject,
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings(c.audience),
			IssuedAt:  jwt.NewNumericDate(out.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(out.ExpiresAt),
		},
	})

	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", models.Claims{}, fmt.Errorf("%s: %w", op, err)
	}

	return signed, out, nil
}

// Decode проверяет подпись, структуру и срок действия токена.
//
// Ошибки:
//   - ErrExpiredToken — now > exp (с учётом leeway);
//   - ErrInvalidToken — всё остальное (подпись, алгоритм, issuer/audience,
//     неизвестный kind, пустой sub/jti).
func (c *Codec) Decode(raw string) (models.Claims, error) {
	const op = "token.Decode"

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(c.leeway),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	if len(c.audience) > 0 {
		opts = append(opts, jwt.WithAudience(c.audience...))
	}

	var cl claims
	tok, err := jwt.ParseWithClaims(raw, &cl, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.Claims{}, fmt.Errorf("%s: %w", op, ErrExpiredToken)
		}

		return models.Claims{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if !tok.Valid || !cl.Kind.Valid() || cl.Subject == "" || cl.ID == "" || cl.IssuedAt == nil {
		return models.Claims{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return models.Claims{
		Subject:   cl.Subject,
		Kind:      cl.Kind,
		TokenID:   cl.ID,
		IssuedAt:  cl.IssuedAt.UTC(),
		ExpiresAt: cl.ExpiresAt.UTC(),
	}, nil
}
