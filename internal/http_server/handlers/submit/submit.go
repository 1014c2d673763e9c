package submit

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"link_scheduler/internal/http_server/forms"
	"link_scheduler/internal/http_server/views"
	resp "link_scheduler/internal/lib/api/response"
	sl "link_scheduler/internal/lib/logger"
	"link_scheduler/internal/middleware/identity"
	"link_scheduler/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

const msgErrorOccurred = "Error Occurred"

type Submitter interface {
	SubmitAs(ctx context.Context, u models.User, form url.Values) (string, error)
}

type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request, status int, name string, data any)
}

// * New сразу отправляет ссылку в Reddit; все поля формы уходят в запрос как есть
func New(
	log *slog.Logger,
	submitter Submitter,
	v Renderer,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.submit.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		user, ok := identity.UserFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, identity.LoginPath, http.StatusFound)

			return
		}

		req, err := forms.DecodeLink(r)
		if err != nil {
			log.Error("Failed to decode form", sl.Err(err))

			v.Render(w, r, http.StatusBadRequest, views.SubmissionResponse, views.MessageText("Failed to decode request"))

			return
		}

		if err := validator.New().Struct(req); err != nil {
			var validateErr validator.ValidationErrors
			if !errors.As(err, &validateErr) {
				log.Error("Invalid request", sl.Err(err))

				v.Render(w, r, http.StatusBadRequest, views.SubmissionResponse, views.MessageText("Invalid request"))

				return
			}

			log.Info("Invalid request", sl.Err(err))

			v.Render(w, r, http.StatusBadRequest, views.SubmissionResponse, views.MessageText(resp.ValidationMessage(validateErr)))

			return
		}

		msg, err := submitter.SubmitAs(r.Context(), user, r.PostForm)
		if err != nil {
			log.Error("failed to submit link", sl.Err(err))

			v.Render(w, r, http.StatusBadGateway, views.Error, views.ErrorPage{
				Status:  http.StatusBadGateway,
				Message: msgErrorOccurred,
			})

			return
		}

		log.Info("Link submitted", slog.String("username", user.Username))

		// текст Reddit экранирован при разборе, сырые только ссылка и <br>
		v.Render(w, r, http.StatusOK, views.SubmissionResponse, views.Message{Msg: template.HTML(msg)})
	}
}
