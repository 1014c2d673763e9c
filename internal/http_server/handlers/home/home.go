package home

import (
	"net/http"

	"link_scheduler/internal/http_server/views"
)

type SessionReader interface {
	Username(r *http.Request) (string, error)
}

type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request, status int, name string, data any)
}

// * New показывает стартовую страницу; без сессии там ссылка на вход
func New(sessions SessionReader, v Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, _ := sessions.Username(r)

		v.Render(w, r, http.StatusOK, views.Reddit, views.Landing{Username: username})
	}
}
