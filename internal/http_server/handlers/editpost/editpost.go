package editpost

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"link_scheduler/internal/http_server/views"
	sl "link_scheduler/internal/lib/logger"
	"link_scheduler/internal/models"
	"link_scheduler/internal/scheduler"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
)

type PostProvider interface {
	Post(ctx context.Context, id int64) (models.Post, error)
	FormatDate(t time.Time) string
}

type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request, status int, name string, data any)
}

// * New показывает форму редактирования с датой в формате формы
func New(
	log *slog.Logger,
	posts PostProvider,
	v Renderer,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.editpost.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			renderError(w, r, v, http.StatusBadRequest, "Invalid post id")

			return
		}

		post, err := posts.Post(r.Context(), id)
		if err != nil {
			if errors.Is(err, scheduler.ErrPostNotFound) {
				renderError(w, r, v, http.StatusNotFound, "Post not found")

				return
			}

			log.Error("failed to load post", slog.Int64("post_id", id), sl.Err(err))

			renderError(w, r, v, http.StatusInternalServerError, "Internal error")

			return
		}

		v.Render(w, r, http.StatusOK, views.EditPostForm, views.EditForm{
			Post:      post,
			DateValue: posts.FormatDate(post.SubmissionDate),
		})
	}
}

func renderError(w http.ResponseWriter, r *http.Request, v Renderer, status int, msg string) {
	v.Render(w, r, status, views.Error, views.ErrorPage{Status: status, Message: msg})
}
