package session

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func requestWithCookies(cookies []*http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/posts", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	return r
}

func TestIssueAndRead(t *testing.T) {
	m := New("secret", time.Hour, "sid", false)

	rec := httptest.NewRecorder()
	if err := m.Issue(rec, "spez"); err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "sid" {
		t.Fatalf("unexpected cookies: %v", cookies)
	}
	if !cookies[0].HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}

	got, err := m.Username(requestWithCookies(cookies))
	if err != nil {
		t.Fatalf("Username() error = %v", err)
	}
	if got != "spez" {
		t.Errorf("Username() = %q, want %q", got, "spez")
	}
}

func TestUsernameWithoutCookie(t *testing.T) {
	m := New("secret", time.Hour, "sid", false)

	_, err := m.Username(httptest.NewRequest(http.MethodGet, "/", nil))
	if !errors.Is(err, ErrNoSession) {
		t.Errorf("Username() error = %v, want ErrNoSession", err)
	}
}

func TestUsernameRejectsForeignSignature(t *testing.T) {
	issuer := New("secret-a", time.Hour, "sid", false)
	reader := New("secret-b", time.Hour, "sid", false)

	rec := httptest.NewRecorder()
	if err := issuer.Issue(rec, "spez"); err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := reader.Username(requestWithCookies(rec.Result().Cookies())); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("Username() error = %v, want ErrInvalidSession", err)
	}
}

func TestUsernameRejectsExpired(t *testing.T) {
	m := New("secret", -time.Minute, "sid", false)

	rec := httptest.NewRecorder()
	if err := m.Issue(rec, "spez"); err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		r.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}

	if _, err := m.Username(r); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("Username() error = %v, want ErrInvalidSession for an expired session", err)
	}
}

func TestClear(t *testing.T) {
	m := New("secret", time.Hour, "sid", false)

	rec := httptest.NewRecorder()
	m.Clear(rec)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != "" || cookies[0].MaxAge >= 0 {
		t.Errorf("Clear() cookies = %v", cookies)
	}
}
