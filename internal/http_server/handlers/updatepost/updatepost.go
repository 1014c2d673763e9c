package updatepost

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"link_scheduler/internal/http_server/forms"
	"link_scheduler/internal/http_server/handlers/schedule"
	"link_scheduler/internal/http_server/views"
	resp "link_scheduler/internal/lib/api/response"
	sl "link_scheduler/internal/lib/logger"
	"link_scheduler/internal/scheduler"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

type PostUpdater interface {
	Update(ctx context.Context, id int64, in scheduler.PostInput) error
	Layout() string
}

type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request, status int, name string, data any)
}

// * New применяет правки и возвращает на список постов
func New(
	log *slog.Logger,
	posts PostUpdater,
	v Renderer,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.updatepost.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			v.Render(w, r, http.StatusBadRequest, views.Error, views.ErrorPage{
				Status:  http.StatusBadRequest,
				Message: "Invalid post id",
			})

			return
		}

		req, err := forms.DecodePost(r)
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

			v.Render(w, r, http.StatusBadRequest, views.SubmissionResponse, views.MessageText(resp.ValidationMessage(validateErr)))

			return
		}

		if err := posts.Update(r.Context(), id, req.Input()); err != nil {
			schedule.RenderDateError(w, r, v, log, posts.Layout(), err)

			return
		}

		log.Info("Post updated", slog.Int64("post_id", id))

		http.Redirect(w, r, "/posts", http.StatusSeeOther)
	}
}
