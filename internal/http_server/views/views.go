// Package views renders the server-side HTML pages.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"link_scheduler/internal/lib/dateformat"
	sl "link_scheduler/internal/lib/logger"
	"link_scheduler/internal/models"

	"github.com/go-chi/render"
)

const (
	Reddit             = "reddit"
	SubmissionResponse = "submissionResponse"
	SubmissionForm     = "submissionForm"
	SchedulePostForm   = "schedulePostForm"
	PostListView       = "postListView"
	EditPostForm       = "editPostForm"
	Error              = "error"
)

//go:embed templates/*.html
var templateFS embed.FS

type Landing struct {
	Username string
}

// Message несет уже готовый HTML: ответ Reddit содержит ссылку и <br>.
type Message struct {
	Msg template.HTML
}

type SubmitForm struct {
	Iden string
}

type PostList struct {
	Posts []models.Post
}

type EditForm struct {
	Post      models.Post
	DateValue string
}

type ErrorPage struct {
	Status  int
	Message string
}

type Views struct {
	log  *slog.Logger
	tmpl *template.Template
}

func New(log *slog.Logger, layout string, loc *time.Location) (*Views, error) {
	const op = "views.New"

	funcs := template.FuncMap{
		"date": func(t time.Time) string {
			return dateformat.Format(layout, t, loc)
		},
		"layout": func() string {
			return layout
		},
	}

	tmpl, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Views{log: log, tmpl: tmpl}, nil
}

// * Render сначала пишет шаблон в буфер, чтобы ошибка шаблона не оставила полстраницы
func (v *Views) Render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	const op = "views.Render"

	var buf bytes.Buffer

	if err := v.tmpl.ExecuteTemplate(&buf, name+".html", data); err != nil {
		v.log.Error("failed to render view", slog.String("op", op), slog.String("view", name), sl.Err(err))

		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return
	}

	render.Status(r, status)
	render.HTML(w, r, buf.String())
}

// MessageText escapes plain text for the response view.
func MessageText(msg string) Message {
	return Message{Msg: template.HTML(template.HTMLEscapeString(msg))}
}
