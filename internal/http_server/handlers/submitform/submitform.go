package submitform

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"link_scheduler/internal/http_server/views"
	sl "link_scheduler/internal/lib/logger"
	"link_scheduler/internal/middleware/identity"
	"link_scheduler/internal/models"
	"link_scheduler/internal/reddit"

	"github.com/go-chi/chi/middleware"
)

type CaptchaProvider interface {
	NewCaptchaAs(ctx context.Context, u models.User) (string, error)
}

type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request, status int, name string, data any)
}

// * New показывает форму отправки; если Reddit требует captcha, запрашивает новую
func New(
	log *slog.Logger,
	captchas CaptchaProvider,
	v Renderer,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.submitform.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		user, ok := identity.UserFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, identity.LoginPath, http.StatusFound)

			return
		}

		var form views.SubmitForm

		if user.NeedCaptcha {
			iden, err := captchas.NewCaptchaAs(r.Context(), user)
			var rejected *reddit.RejectedError
			if errors.As(err, &rejected) {
				log.Warn("reddit refused a captcha", slog.String("reason", rejected.Message))

				// части уже экранированы, сырой только разделитель <br>
				v.Render(w, r, http.StatusOK, views.SubmissionResponse, views.Message{Msg: template.HTML(rejected.Message)})

				return
			}
			if err != nil {
				log.Error("failed to get captcha", sl.Err(err))

				v.Render(w, r, http.StatusBadGateway, views.Error, views.ErrorPage{
					Status:  http.StatusBadGateway,
					Message: "Failed to get captcha",
				})

				return
			}

			form.Iden = iden
		}

		v.Render(w, r, http.StatusOK, views.SubmissionForm, form)
	}
}
