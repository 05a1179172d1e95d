package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pribylovaa/auth-service/internal/models"
	"github.com/pribylovaa/auth-service/internal/password"
	"github.com/pribylovaa/auth-service/internal/pkg/log"
	"github.com/pribylovaa/auth-service/internal/pkg/redact"
	"github.com/pribylovaa/auth-service/internal/storage"
	"github.com/pribylovaa/auth-service/internal/validation"
)

// Register создаёт пользователя и выпускает ему пару токенов.
// Валидация выполняется до любых побочных эффектов.
func (s *Service) Register(ctx context.Context, in models.RegisterInput) (*models.TokenPair, error) {
	const op = "service.auth.Register"

	lg := log.From(ctx)

	if err := s.validator.Validate(validation.SchemaCreateUser, &in); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		lg.Error("password_hash_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user := &models.User{
		Username:     in.Username,
		Email:        normalizeEmail(in.Email),
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.users.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			lg.Info("register_duplicate",
				slog.String("op", op),
				slog.String("username", user.Username),
				slog.String("email", redact.Email(user.Email)),
			)
			return nil, fmt.Errorf("%s: %w", op, ErrDuplicateUser)
		}

		lg.Error("save_user_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := s.tokens.IssuePair(ctx, user.Username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("user_registered",
		slog.String("op", op),
		slog.String("username", user.Username),
		slog.String("email", redact.Email(user.Email)),
	)

	return pair, nil
}

// Login проверяет пароль пользователя (по e-mail, если он задан, иначе по username)
// и выпускает пару токенов. Отсутствие пользователя и неверный пароль
// неразличимы: оба дают ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, in models.LoginInput) (*models.TokenPair, error) {
	const op = "service.auth.Login"

	lg := log.From(ctx)

	if err := s.validator.Validate(validation.SchemaLoginUser, &in); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var (
		user *models.User
		err  error
	)
	if in.Email != "" {
		user, err = s.users.UserByEmail(ctx, normalizeEmail(in.Email))
	} else {
		user, err = s.users.UserByUsername(ctx, in.Username)
	}
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Info("login_failed",
				slog.String("op", op),
				slog.String("reason", "not_found"),
			)
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		lg.Error("user_lookup_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ok, err := s.hasher.Compare(ctx, in.Password, user.PasswordHash)
	if err != nil {
		if !errors.Is(err, password.ErrInvalidCredentialFormat) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		lg.Warn("stored_hash_malformed",
			slog.String("op", op),
			slog.String("username", user.Username),
		)
	}
	if !ok {
		lg.Info("login_failed",
			slog.String("op", op),
			slog.String("reason", "bad_password"),
			slog.String("username", user.Username),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair, err := s.tokens.IssuePair(ctx, user.Username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("user_logged_in",
		slog.String("op", op),
		slog.String("username", user.Username),
	)

	return pair, nil
}

// Logout отзывает токен из заголовка Authorization.
// Отсутствующий или некорректный заголовок, как и неразбираемый токен,
// дают RevokeIgnored без ошибки. Ошибка возможна только при недоступности чёрного списка.
func (s *Service) Logout(ctx context.Context, authorization string) (models.RevokeOutcome, error) {
	const op = "service.auth.Logout"

	raw, err := BearerToken(authorization)
	if err != nil {
		log.From(ctx).Debug("logout_without_token",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return models.RevokeIgnored, nil
	}

	outcome, err := s.tokens.Revoke(ctx, raw)
	if err != nil {
		return models.RevokeIgnored, fmt.Errorf("%s: %w", op, err)
	}

	return outcome, nil
}

// Refresh ротирует refresh-токен из заголовка Authorization.
// Ошибки TokenService.Refresh возвращаются без изменения вида.
func (s *Service) Refresh(ctx context.Context, authorization string) (*models.TokenPair, error) {
	const op = "service.auth.Refresh"

	raw, err := BearerToken(authorization)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := s.tokens.Refresh(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return pair, nil
}

// Profile возвращает публичные данные пользователя.
func (s *Service) Profile(ctx context.Context, username string) (*models.Profile, error) {
	const op = "service.auth.Profile"

	user, err := s.users.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return models.ProfileOf(user), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
