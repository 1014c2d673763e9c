package posts

import (
	"context"
	"log/slog"
	"net/http"

	"link_scheduler/internal/http_server/views"
	sl "link_scheduler/internal/lib/logger"
	"link_scheduler/internal/middleware/identity"
	"link_scheduler/internal/models"

	"github.com/go-chi/chi/middleware"
)

type PostLister interface {
	Posts(ctx context.Context, user models.User) ([]models.Post, error)
}

type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request, status int, name string, data any)
}

func New(
	log *slog.Logger,
	posts PostLister,
	v Renderer,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.posts.New"

		user, ok := identity.UserFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, identity.LoginPath, http.StatusFound)

			return
		}

		list, err := posts.Posts(r.Context(), user)
		if err != nil {
			log.Error("failed to list posts",
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				sl.Err(err),
			)

			v.Render(w, r, http.StatusInternalServerError, views.Error, views.ErrorPage{
				Status:  http.StatusInternalServerError,
				Message: "Internal error",
			})

			return
		}

		v.Render(w, r, http.StatusOK, views.PostListView, views.PostList{Posts: list})
	}
}
