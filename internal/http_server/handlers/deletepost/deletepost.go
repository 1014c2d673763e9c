package deletepost

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	resp "link_scheduler/internal/lib/api/response"
	sl "link_scheduler/internal/lib/logger"
	"link_scheduler/internal/scheduler"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type PostDeleter interface {
	Delete(ctx context.Context, id int64) error
}

// * New удаляет пост по id; успех это 200 с пустым телом
func New(
	log *slog.Logger,
	posts PostDeleter,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.deletepost.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Invalid post id"))

			return
		}

		if err := posts.Delete(r.Context(), id); err != nil {
			if errors.Is(err, scheduler.ErrPostNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("Post not found"))

				return
			}

			log.Error("failed to delete post", slog.Int64("post_id", id), sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		w.WriteHeader(http.StatusOK)
	}
}
