package scheduleform

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"link_scheduler/internal/http_server/views"
	"link_scheduler/internal/lib/dateformat"
	"link_scheduler/internal/middleware/identity"
	"link_scheduler/internal/models"
)

func TestScheduleForm(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	v, err := views.New(log, dateformat.Layout, time.UTC)
	if err != nil {
		t.Fatalf("views.New() error = %v", err)
	}

	tests := []struct {
		name        string
		needCaptcha bool
		want        string
		reject      string
	}{
		{name: "form shown", want: `action="/schedule"`, reject: MsgNotEnoughKarma},
		{name: "karma gate", needCaptcha: true, want: MsgNotEnoughKarma, reject: `action="/schedule"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/postSchedule", nil)
			req = req.WithContext(identity.WithUser(req.Context(), models.User{ID: 1, NeedCaptcha: tt.needCaptcha}))
			rec := httptest.NewRecorder()

			New(log, v).ServeHTTP(rec, req)

			body := rec.Body.String()
			if rec.Code != http.StatusOK {
				t.Errorf("status = %d", rec.Code)
			}
			if !strings.Contains(body, tt.want) {
				t.Errorf("body missing %q:\n%s", tt.want, body)
			}
			if strings.Contains(body, tt.reject) {
				t.Errorf("body contains %q:\n%s", tt.reject, body)
			}
		})
	}
}
