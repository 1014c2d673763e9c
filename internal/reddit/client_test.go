package reddit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"link_scheduler/internal/config"
	"link_scheduler/internal/models"

	"golang.org/x/oauth2"
)

func newTestClient(srv *httptest.Server) *Client {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return New(log, config.Reddit{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8080/info",
		AuthURL:      srv.URL + "/authorize",
		TokenURL:     srv.URL + "/access_token",
		APIBaseURL:   srv.URL + "/",
		UserAgent:    "test-agent/1.0",
		Scopes:       []string{"identity", "submit"},
		Timeout:      5 * time.Second,
	})
}

func validToken() *oauth2.Token {
	return &oauth2.Token{
		AccessToken: "access",
		TokenType:   "bearer",
		Expiry:      time.Now().Add(time.Hour),
	}
}

func checkAuthHeaders(t *testing.T, r *http.Request) {
	t.Helper()

	if got := r.Header.Get("Authorization"); got != "Bearer access" {
		t.Errorf("Authorization = %q", got)
	}
	if got := r.Header.Get("User-Agent"); got != "test-agent/1.0" {
		t.Errorf("User-Agent = %q", got)
	}
}

func TestAuthCodeURL(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	u, err := url.Parse(newTestClient(srv).AuthCodeURL("xyz"))
	if err != nil {
		t.Fatalf("AuthCodeURL() returned bad url: %v", err)
	}

	q := u.Query()
	if q.Get("state") != "xyz" || q.Get("duration") != "permanent" || q.Get("client_id") != "client-id" {
		t.Errorf("AuthCodeURL() query = %v", q)
	}
	if q.Get("scope") != "identity submit" {
		t.Errorf("scope = %q", q.Get("scope"))
	}
}

func TestExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/access_token" {
			http.NotFound(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client-id" || pass != "client-secret" {
			t.Errorf("basic auth = %q/%q/%v", user, pass, ok)
		}
		if got := r.Header.Get("User-Agent"); got != "test-agent/1.0" {
			t.Errorf("User-Agent = %q", got)
		}
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != "the-code" {
			t.Errorf("code = %q (%v)", r.PostForm.Get("code"), err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"a","refresh_token":"r","token_type":"bearer","expires_in":3600}`)
	}))
	defer srv.Close()

	tok, err := newTestClient(srv).Exchange(context.Background(), "the-code")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if tok.AccessToken != "a" || tok.RefreshToken != "r" || tok.Expiry.IsZero() {
		t.Errorf("Exchange() = %+v", tok)
	}
}

func TestMe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checkAuthHeaders(t, r)
		if r.URL.Path != "/api/v1/me" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		io.WriteString(w, `{"name": "spez", "id": "1w72"}`)
	}))
	defer srv.Close()

	c := newTestClient(srv)
	name, err := c.API(context.Background(), validToken()).Me(context.Background())
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	if name != "spez" {
		t.Errorf("Me() = %q", name)
	}
}

func TestMeRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, `{"name": "spez"}`)
	}))
	defer srv.Close()

	c := newTestClient(srv)
	name, err := c.API(context.Background(), validToken()).Me(context.Background())
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	if name != "spez" || calls.Load() != 2 {
		t.Errorf("Me() = %q after %d calls", name, calls.Load())
	}
}

func TestMeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := newTestClient(srv)
	_, err := c.API(context.Background(), validToken()).Me(context.Background())

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("Me() error = %v, want APIError 403", err)
	}
}

func TestNeedsCaptcha(t *testing.T) {
	tests := []struct {
		body string
		want bool
	}{
		{body: "true", want: true},
		{body: "TRUE\n", want: true},
		{body: "false", want: false},
		{body: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				checkAuthHeaders(t, r)
				if r.URL.Path != "/api/needs_captcha.json" {
					t.Errorf("path = %s", r.URL.Path)
				}
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			got, err := newTestClient(srv).API(context.Background(), validToken()).NeedsCaptcha(context.Background())
			if err != nil {
				t.Fatalf("NeedsCaptcha() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("NeedsCaptcha() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewCaptcha(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checkAuthHeaders(t, r)
		if r.Method != http.MethodPost || r.URL.Path != "/api/new_captcha" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil || r.PostForm.Get("api_type") != "json" {
			t.Errorf("api_type = %q", r.PostForm.Get("api_type"))
		}
		io.WriteString(w, `{"json": {"errors": [], "data": {"iden": "abc123"}}}`)
	}))
	defer srv.Close()

	iden, err := newTestClient(srv).API(context.Background(), validToken()).NewCaptcha(context.Background())
	if err != nil {
		t.Fatalf("NewCaptcha() error = %v", err)
	}
	if iden != "abc123" {
		t.Errorf("NewCaptcha() = %q", iden)
	}
}

func TestSubmit(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		checkAuthHeaders(t, r)
		if r.Method != http.MethodPost || r.URL.Path != "/api/submit" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error = %v", err)
			return
		}
		if r.PostForm.Get("kind") != "link" || r.PostForm.Get("sr") != "test" || r.PostForm.Get("api_type") != "json" {
			t.Errorf("form = %v", r.PostForm)
		}
		io.WriteString(w, `{"json": {"errors": [], "data": {"url": "https://reddit.com/r/test/1"}}}`)
	}))
	defer srv.Close()

	form := url.Values{"title": {"t"}, "sr": {"test"}, "url": {"http://x"}}
	msg, err := newTestClient(srv).API(context.Background(), validToken()).Submit(context.Background(), form)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !strings.Contains(msg, `href="https://reddit.com/r/test/1"`) {
		t.Errorf("Submit() = %q", msg)
	}
	if calls.Load() != 1 {
		t.Errorf("submit endpoint called %d times, want 1", calls.Load())
	}
}

func TestSubmitIsNotRetried(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).API(context.Background(), validToken()).Submit(context.Background(), url.Values{})
	if err == nil {
		t.Fatal("Submit() expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("submit endpoint called %d times, want 1", calls.Load())
	}
}

func TestTokenFor(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	tok := TokenFor(models.User{AccessToken: "a", RefreshToken: "r", TokenExpiration: exp})

	if tok.AccessToken != "a" || tok.RefreshToken != "r" || !tok.Expiry.Equal(exp) || tok.TokenType != "bearer" {
		t.Errorf("TokenFor() = %+v", tok)
	}
}

func TestSubmitAsUsesStoredToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checkAuthHeaders(t, r)
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error = %v", err)
			return
		}
		if r.PostForm.Get("title") != "hello" {
			t.Errorf("title = %q", r.PostForm.Get("title"))
		}
		io.WriteString(w, `{"json": {"errors": [], "data": {"url": "https://reddit.com/r/test/1"}}}`)
	}))
	defer srv.Close()

	user := models.User{Username: "spez", AccessToken: "access", TokenExpiration: time.Now().Add(time.Hour)}

	msg, err := newTestClient(srv).SubmitAs(context.Background(), user, url.Values{"title": {"hello"}})
	if err != nil {
		t.Fatalf("SubmitAs() error = %v", err)
	}
	if !strings.Contains(msg, "https://reddit.com/r/test/1") {
		t.Errorf("SubmitAs() = %q", msg)
	}
}
