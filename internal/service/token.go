package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pribylovaa/auth-service/internal/config"
	"github.com/pribylovaa/auth-service/internal/metrics"
	"github.com/pribylovaa/auth-service/internal/models"
	"github.com/pribylovaa/auth-service/internal/pkg/log"
	"github.com/pribylovaa/auth-service/internal/pkg/redact"
	"github.com/pribylovaa/auth-service/internal/revocation"
	"github.com/pribylovaa/auth-service/internal/token"
)

// Операции для метрики auth_tokens_total.
const (
	opIssue        = "issue"
	opRefresh      = "refresh"
	opRevoke       = "revoke"
	opAuthenticate = "authenticate"
)

// TokenService выпускает пары токенов, ротирует refresh-токены и ведёт чёрный список.
//
// Одноразовость refresh-токена обеспечивается атомарным revocation.Store.Add:
// из нескольких конкурентных Refresh с одним токеном успешен ровно один.
type TokenService struct {
	codec      *token.Codec
	store      revocation.Store
	accessTTL  time.Duration
	refreshTTL time.Duration
	metrics    *metrics.Metrics
}

// NewTokenService создаёт TokenService. m может быть nil.
func NewTokenService(codec *token.Codec, store revocation.Store, cfg config.AuthConfig, m *metrics.Metrics) *TokenService {
	return &TokenService{
		codec:      codec,
		store:      store,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		metrics:    m,
	}
}

// IssuePair выпускает access и refresh токены для subject.
func (ts *TokenService) IssuePair(ctx context.Context, subject string) (*models.TokenPair, error) {
	const op = "service.token.IssuePair"

	lg := log.From(ctx)

	access, ac, err := ts.codec.Encode(subject, models.TokenKindAccess, ts.accessTTL)
	if err != nil {
		ts.metrics.TokenOp(opIssue, metrics.ResultError)
		lg.Error("access_token_sign_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refresh, rc, err := ts.codec.Encode(subject, models.TokenKindRefresh, ts.refreshTTL)
	if err != nil {
		ts.metrics.TokenOp(opIssue, metrics.ResultError)
		lg.Error("refresh_token_sign_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ts.metrics.TokenOp(opIssue, metrics.ResultOK)

	return &models.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  ac.ExpiresAt,
		RefreshExpiresAt: rc.ExpiresAt,
	}, nil
}

// Refresh погашает refresh-токен и выпускает новую пару для того же subject.
//
// Ошибки: ErrInvalidToken/ErrExpiredToken (декодирование), ErrWrongTokenKind,
// ErrTokenRevoked (токен уже использован или отозван), ErrStoreUnavailable.
// Access-токены, выпущенные вместе с погашенным refresh, остаются действительными
// до своего истечения.
func (ts *TokenService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	const op = "service.token.Refresh"

	lg := log.From(ctx)

	claims, err := ts.codec.Decode(refreshToken)
	if err != nil {
		ts.metrics.TokenOp(opRefresh, metrics.ResultRejected)
		lg.Warn("refresh_decode_failed",
			slog.String("op", op),
			slog.String("token", redact.Token(refreshToken)),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if claims.Kind != models.TokenKindRefresh {
		ts.metrics.TokenOp(opRefresh, metrics.ResultRejected)
		lg.Warn("refresh_wrong_kind",
			slog.String("op", op),
			slog.String("kind", string(claims.Kind)),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrWrongTokenKind)
	}

	added, err := ts.store.Add(ctx, claims.TokenID, ts.retainUntil(claims))
	if err != nil {
		ts.metrics.TokenOp(opRefresh, metrics.ResultError)
		lg.Error("refresh_revoke_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, storeErr(op, err)
	}

	if !added {
		ts.metrics.TokenOp(opRefresh, metrics.ResultRejected)
		lg.Warn("refresh_reused",
			slog.String("op", op),
			slog.String("subject", claims.Subject),
			slog.String("jti", claims.TokenID),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrTokenRevoked)
	}

	pair, err := ts.IssuePair(ctx, claims.Subject)
	if err != nil {
		ts.metrics.TokenOp(opRefresh, metrics.ResultError)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ts.metrics.TokenOp(opRefresh, metrics.ResultOK)
	lg.Info("refresh_rotated",
		slog.String("op", op),
		slog.String("subject", claims.Subject),
	)

	return pair, nil
}

// Revoke заносит идентификатор токена в чёрный список до его истечения.
// Токен, который не разбирается (мусор, чужая подпись, истёк), даёт RevokeIgnored без ошибки.
// Повторный отзыв того же токена тоже RevokeRevoked.
func (ts *TokenService) Revoke(ctx context.Context, raw string) (models.RevokeOutcome, error) {
	const op = "service.token.Revoke"

	lg := log.From(ctx)

	claims, err := ts.codec.Decode(raw)
	if err != nil {
		ts.metrics.TokenOp(opRevoke, models.RevokeIgnored.String())
		lg.Debug("revoke_ignored",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return models.RevokeIgnored, nil
	}

	if _, err := ts.store.Add(ctx, claims.TokenID, ts.retainUntil(claims)); err != nil {
		ts.metrics.TokenOp(opRevoke, metrics.ResultError)
		lg.Error("revoke_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return models.RevokeIgnored, storeErr(op, err)
	}

	ts.metrics.TokenOp(opRevoke, models.RevokeRevoked.String())
	lg.Info("token_revoked",
		slog.String("op", op),
		slog.String("subject", claims.Subject),
		slog.String("kind", string(claims.Kind)),
	)

	return models.RevokeRevoked, nil
}

// IsValid сообщает, разбирается ли токен и не отозван ли он.
// Недоступность чёрного списка возвращается ошибкой, а не «не отозван».
func (ts *TokenService) IsValid(ctx context.Context, raw string) (bool, error) {
	const op = "service.token.IsValid"

	claims, err := ts.codec.Decode(raw)
	if err != nil {
		return false, nil
	}

	revoked, err := ts.store.Contains(ctx, claims.TokenID)
	if err != nil {
		return false, storeErr(op, err)
	}

	return !revoked, nil
}

// Authenticate проверяет access-токен: подпись и срок, вид access, отсутствие в чёрном списке.
func (ts *TokenService) Authenticate(ctx context.Context, accessToken string) (models.Claims, error) {
	const op = "service.token.Authenticate"

	claims, err := ts.codec.Decode(accessToken)
	if err != nil {
		ts.metrics.TokenOp(opAuthenticate, metrics.ResultRejected)
		return models.Claims{}, fmt.Errorf("%s: %w", op, err)
	}

	if claims.Kind != models.TokenKindAccess {
		ts.metrics.TokenOp(opAuthenticate, metrics.ResultRejected)
		return models.Claims{}, fmt.Errorf("%s: %w", op, ErrWrongTokenKind)
	}

	revoked, err := ts.store.Contains(ctx, claims.TokenID)
	if err != nil {
		ts.metrics.TokenOp(opAuthenticate, metrics.ResultError)
		log.From(ctx).Error("revocation_lookup_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return models.Claims{}, storeErr(op, err)
	}

	if revoked {
		ts.metrics.TokenOp(opAuthenticate, metrics.ResultRejected)
		return models.Claims{}, fmt.Errorf("%s: %w", op, ErrTokenRevoked)
	}

	ts.metrics.TokenOp(opAuthenticate, metrics.ResultOK)

	return claims, nil
}

// retainUntil — срок хранения записи в чёрном списке: пока Decode ещё
// может принять токен с учётом leeway.
func (ts *TokenService) retainUntil(c models.Claims) time.Time {
	return c.ExpiresAt.Add(ts.codec.Leeway())
}

