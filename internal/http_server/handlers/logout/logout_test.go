package logout

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"link_scheduler/internal/lib/session"
)

func TestLogout(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := session.New("secret", time.Hour, "sid", false)

	rec := httptest.NewRecorder()
	New(log, sessions).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logout", nil))

	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/" {
		t.Fatalf("got %d %q, want redirect to /", rec.Code, rec.Header().Get("Location"))
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "sid" || cookies[0].MaxAge >= 0 {
		t.Errorf("session cookie not cleared: %+v", cookies)
	}
}
