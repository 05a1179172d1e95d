package middleware

import (
	"context"
	"net/http"

	apierrors "github.com/pribylovaa/auth-service/internal/errors"
	"github.com/pribylovaa/auth-service/internal/models"
	"github.com/pribylovaa/auth-service/internal/service"
)

// Authenticator проверяет access-токен, включая чёрный список.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (models.Claims, error)
}

type claimsKey struct{}

// RequireAccess пропускает запрос дальше только с действительным,
// не отозванным access-токеном в Authorization. Claims кладутся в контекст.
func RequireAccess(a Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := service.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				apierrors.WriteError(w, r, err)
				return
			}

			claims, err := a.Authenticate(r.Context(), raw)
			if err != nil {
				apierrors.WriteError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFrom достаёт claims, положенные RequireAccess.
func ClaimsFrom(ctx context.Context) (models.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(models.Claims)
	return c, ok
}
