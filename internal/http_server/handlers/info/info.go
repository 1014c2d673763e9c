package info

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"link_scheduler/internal/auth"
	"link_scheduler/internal/auth/state"
	"link_scheduler/internal/http_server/views"
	sl "link_scheduler/internal/lib/logger"
	"link_scheduler/internal/models"

	"github.com/go-chi/chi/middleware"
	"golang.org/x/oauth2"
)

type StateConsumer interface {
	Consume(ctx context.Context, state string) error
}

type TokenExchanger interface {
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// AccountFunc builds the remote account view for a freshly issued token.
type AccountFunc func(ctx context.Context, tok *oauth2.Token) auth.RemoteAccount

type UserLoginer interface {
	Login(ctx context.Context, remote auth.RemoteAccount, tok *oauth2.Token) (models.User, error)
}

type SessionIssuer interface {
	Issue(w http.ResponseWriter, username string) error
}

type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request, status int, name string, data any)
}

// * New завершает OAuth вход: проверяет state, меняет code на токен, сохраняет пользователя
func New(
	log *slog.Logger,
	states StateConsumer,
	exchanger TokenExchanger,
	account AccountFunc,
	users UserLoginer,
	sessions SessionIssuer,
	v Renderer,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.info.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		q := r.URL.Query()

		if e := q.Get("error"); e != "" {
			log.Warn("authorization denied", slog.String("error", e))

			renderError(w, r, v, http.StatusForbidden, "Authorization denied")

			return
		}

		code := q.Get("code")
		if code == "" {
			http.Redirect(w, r, "/login", http.StatusFound)

			return
		}

		if err := states.Consume(r.Context(), q.Get("state")); err != nil {
			if errors.Is(err, state.ErrInvalidState) {
				renderError(w, r, v, http.StatusBadRequest, "Invalid OAuth state")

				return
			}

			log.Error("failed to check oauth state", sl.Err(err))

			renderError(w, r, v, http.StatusInternalServerError, "Internal error")

			return
		}

		tok, err := exchanger.Exchange(r.Context(), code)
		if err != nil {
			log.Error("failed to exchange code", sl.Err(err))

			renderError(w, r, v, http.StatusBadGateway, "Failed to authorize with Reddit")

			return
		}

		user, err := users.Login(r.Context(), account(r.Context(), tok), tok)
		if err != nil {
			log.Error("failed to login user", sl.Err(err))

			renderError(w, r, v, http.StatusInternalServerError, "Internal error")

			return
		}

		if err := sessions.Issue(w, user.Username); err != nil {
			log.Error("failed to issue session", sl.Err(err))

			renderError(w, r, v, http.StatusInternalServerError, "Internal error")

			return
		}

		log.Info("User logged in", slog.String("username", user.Username))

		v.Render(w, r, http.StatusOK, views.Reddit, views.Landing{Username: user.Username})
	}
}

func renderError(w http.ResponseWriter, r *http.Request, v Renderer, status int, msg string) {
	v.Render(w, r, status, views.Error, views.ErrorPage{Status: status, Message: msg})
}
