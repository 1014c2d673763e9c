// Package identity resolves the signed-in user for protected routes.
package identity

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"link_scheduler/internal/auth"
	sl "link_scheduler/internal/lib/logger"
	"link_scheduler/internal/lib/session"
	"link_scheduler/internal/models"

	"github.com/go-chi/chi/middleware"
)

const LoginPath = "/login"

type ctxKey struct{}

type SessionReader interface {
	Username(r *http.Request) (string, error)
}

type UserResolver interface {
	User(ctx context.Context, username string) (models.User, error)
	UserByAccessToken(ctx context.Context, accessToken string) (models.User, error)
}

// * New кладет текущего пользователя в контекст; без пользователя отправляет на /login
func New(log *slog.Logger, sessions SessionReader, users UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.identity"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			user, err := resolve(r, sessions, users)
			if err != nil {
				if isAnonymous(err) {
					log.Debug("anonymous request", sl.Err(err))
				} else {
					log.Error("failed to resolve current user", sl.Err(err))
				}

				http.Redirect(w, r, LoginPath, http.StatusFound)

				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		}

		return http.HandlerFunc(fn)
	}
}

func resolve(r *http.Request, sessions SessionReader, users UserResolver) (models.User, error) {
	username, err := sessions.Username(r)
	if err == nil {
		return users.User(r.Context(), username)
	}

	// Bearer остается запасным вариантом для скриптов
	if token, ok := bearerToken(r); ok {
		return users.UserByAccessToken(r.Context(), token)
	}

	return models.User{}, err
}

// просроченная или чужая cookie это обычный анонимный запрос, а не сбой
func isAnonymous(err error) bool {
	return errors.Is(err, session.ErrNoSession) ||
		errors.Is(err, session.ErrInvalidSession) ||
		errors.Is(err, auth.ErrUserNotFound)
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")

	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return "", false
	}

	token = strings.TrimSpace(token)

	return token, token != ""
}

func WithUser(ctx context.Context, u models.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func UserFromContext(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(models.User)
	return u, ok
}
