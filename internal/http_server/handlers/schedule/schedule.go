package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"link_scheduler/internal/http_server/forms"
	"link_scheduler/internal/http_server/views"
	resp "link_scheduler/internal/lib/api/response"
	sl "link_scheduler/internal/lib/logger"
	"link_scheduler/internal/middleware/identity"
	"link_scheduler/internal/models"
	"link_scheduler/internal/scheduler"

	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

const MsgInvalidDate = "Invalid date"

type PostScheduler interface {
	Schedule(ctx context.Context, user models.User, in scheduler.PostInput) ([]models.Post, error)
	Layout() string
}

type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request, status int, name string, data any)
}

// * New сохраняет пост на будущую дату и показывает все посты пользователя
func New(
	log *slog.Logger,
	posts PostScheduler,
	v Renderer,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.schedule.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		user, ok := identity.UserFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, identity.LoginPath, http.StatusFound)

			return
		}

		req, err := forms.DecodePost(r)
		if err != nil {
			log.Error("Failed to decode form", sl.Err(err))

			v.Render(w, r, http.StatusBadRequest, views.SubmissionResponse, views.MessageText("Failed to decode request"))

			return
		}

		log.Info("User scheduling post",
			slog.String("username", user.Username),
			slog.String("sr", req.Subreddit),
			slog.String("date", req.Date),
		)

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

		list, err := posts.Schedule(r.Context(), user, req.Input())
		if err != nil {
			RenderDateError(w, r, v, log, posts.Layout(), err)

			return
		}

		v.Render(w, r, http.StatusOK, views.PostListView, views.PostList{Posts: list})
	}
}

// MalformedDateMessage shows the configured layout as an example date.
func MalformedDateMessage(layout string) string {
	return fmt.Sprintf("Invalid date format, expected a date like %s", layout)
}

// RenderDateError maps scheduler errors to the response view. Also used by the update handler.
func RenderDateError(w http.ResponseWriter, r *http.Request, v Renderer, log *slog.Logger, layout string, err error) {
	switch {
	case errors.Is(err, scheduler.ErrInvalidDate):
		v.Render(w, r, http.StatusOK, views.SubmissionResponse, views.MessageText(MsgInvalidDate))
	case errors.Is(err, scheduler.ErrMalformedDate):
		v.Render(w, r, http.StatusBadRequest, views.SubmissionResponse, views.MessageText(MalformedDateMessage(layout)))
	case errors.Is(err, scheduler.ErrPostNotFound):
		v.Render(w, r, http.StatusNotFound, views.Error, views.ErrorPage{
			Status:  http.StatusNotFound,
			Message: "Post not found",
		})
	default:
		log.Error("failed to save post", sl.Err(err))

		v.Render(w, r, http.StatusInternalServerError, views.Error, views.ErrorPage{
			Status:  http.StatusInternalServerError,
			Message: "Internal error",
		})
	}
}
