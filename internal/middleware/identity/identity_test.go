package identity

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"link_scheduler/internal/auth"
	"link_scheduler/internal/lib/session"
	"link_scheduler/internal/models"
)

type fakeUsers struct {
	byName  map[string]models.User
	byToken map[string]models.User
	err     error
}

func (f *fakeUsers) User(_ context.Context, username string) (models.User, error) {
	if f.err != nil {
		return models.User{}, f.err
	}
	u, ok := f.byName[username]
	if !ok {
		return models.User{}, auth.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) UserByAccessToken(_ context.Context, token string) (models.User, error) {
	u, ok := f.byToken[token]
	if !ok {
		return models.User{}, auth.ErrUserNotFound
	}
	return u, nil
}

func TestMiddleware(t *testing.T) {
	sessions := session.New("secret", time.Hour, "sid", false)
	expired := session.New("secret", -time.Minute, "sid", false)

	alice := models.User{ID: 1, Username: "alice"}
	bob := models.User{ID: 2, Username: "bob"}
	users := &fakeUsers{
		byName:  map[string]models.User{"alice": alice},
		byToken: map[string]models.User{"tok-bob": bob},
	}

	issue := func(m *session.Manager, name string) *http.Cookie {
		rec := httptest.NewRecorder()
		if err := m.Issue(rec, name); err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		c := rec.Result().Cookies()[0]
		return &http.Cookie{Name: c.Name, Value: c.Value}
	}
	sessionCookie := func(name string) *http.Cookie { return issue(sessions, name) }

	tests := []struct {
		name     string
		cookie   *http.Cookie
		auth     string
		users    UserResolver
		wantUser string
		wantErr  bool
	}{
		{name: "session cookie", cookie: sessionCookie("alice"), users: users, wantUser: "alice"},
		{name: "bearer fallback", auth: "Bearer tok-bob", users: users, wantUser: "bob"},
		{name: "session wins over bearer", cookie: sessionCookie("alice"), auth: "Bearer tok-bob", users: users, wantUser: "alice"},
		{name: "anonymous", users: users},
		{name: "unknown session user", cookie: sessionCookie("carol"), users: users},
		{name: "unknown token", auth: "Bearer nope", users: users},
		{name: "empty bearer", auth: "Bearer ", users: users},
		{name: "tampered cookie", cookie: &http.Cookie{Name: "sid", Value: "garbage"}, users: users},
		{name: "expired cookie", cookie: issue(expired, "alice"), users: users},
		{name: "store failure", cookie: sessionCookie("alice"), users: &fakeUsers{err: errors.New("db down")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				u, ok := UserFromContext(r.Context())
				if !ok {
					t.Error("user missing from context")
				}
				got = u.Username
			})

			req := httptest.NewRequest(http.MethodGet, "/posts", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rec := httptest.NewRecorder()

			var logs bytes.Buffer
			log := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

			New(log, sessions, tt.users)(next).ServeHTTP(rec, req)

			if gotErr := strings.Contains(logs.String(), "level=ERROR"); gotErr != tt.wantErr {
				t.Errorf("error logged = %v, want %v:\n%s", gotErr, tt.wantErr, logs.String())
			}

			if tt.wantUser == "" {
				if rec.Code != http.StatusFound || rec.Header().Get("Location") != LoginPath {
					t.Errorf("got %d %q, want redirect to %s", rec.Code, rec.Header().Get("Location"), LoginPath)
				}
				return
			}
			if got != tt.wantUser {
				t.Errorf("resolved user = %q, want %q", got, tt.wantUser)
			}
		})
	}
}

func TestUserFromEmptyContext(t *testing.T) {
	if _, ok := UserFromContext(context.Background()); ok {
		t.Error("UserFromContext() ok on empty context")
	}
}
