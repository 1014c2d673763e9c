package login

import (
	"context"
	"log/slog"
	"net/http"

	"link_scheduler/internal/http_server/views"
	sl "link_scheduler/internal/lib/logger"

	"github.com/go-chi/chi/middleware"
)

type StateIssuer interface {
	Issue(ctx context.Context) (string, error)
}

type AuthURLer interface {
	AuthCodeURL(state string) string
}

type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request, status int, name string, data any)
}

// * New начинает OAuth вход: выдает state и отправляет пользователя в Reddit
func New(
	log *slog.Logger,
	states StateIssuer,
	oauth AuthURLer,
	v Renderer,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.login.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		state, err := states.Issue(r.Context())
		if err != nil {
			log.Error("failed to issue oauth state", sl.Err(err))

			v.Render(w, r, http.StatusInternalServerError, views.Error, views.ErrorPage{
				Status:  http.StatusInternalServerError,
				Message: "Internal error",
			})

			return
		}

		log.Debug("redirecting to reddit authorization")

		http.Redirect(w, r, oauth.AuthCodeURL(state), http.StatusFound)
	}
}
