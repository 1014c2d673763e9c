package scheduleform

import (
	"log/slog"
	"net/http"

	"link_scheduler/internal/http_server/views"
	"link_scheduler/internal/middleware/identity"

	"github.com/go-chi/chi/middleware"
)

const MsgNotEnoughKarma = "Sorry, you do not have enough karma"

type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request, status int, name string, data any)
}

// * New показывает форму планирования; пользователям с captcha планировать нельзя
func New(
	log *slog.Logger,
	v Renderer,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.scheduleform.New"

		user, ok := identity.UserFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, identity.LoginPath, http.StatusFound)

			return
		}

		if user.NeedCaptcha {
			log.Info("schedule form rejected, captcha required",
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("username", user.Username),
			)

			v.Render(w, r, http.StatusOK, views.SubmissionResponse, views.MessageText(MsgNotEnoughKarma))

			return
		}

		v.Render(w, r, http.StatusOK, views.SchedulePostForm, nil)
	}
}
