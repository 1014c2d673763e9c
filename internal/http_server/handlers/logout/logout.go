package logout

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
)

type SessionClearer interface {
	Clear(w http.ResponseWriter)
}

func New(
	log *slog.Logger,
	sessions SessionClearer,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.logout.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		sessions.Clear(w)

		log.Info("User logged out")

		http.Redirect(w, r, "/", http.StatusFound)
	}
}
