package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const purpose = "session"

var (
	ErrNoSession = errors.New("no session")
	// ErrInvalidSession covers expired, tampered and foreign cookies.
	ErrInvalidSession = errors.New("invalid session")
)

// Manager stores the authenticated username in a signed cookie.
type Manager struct {
	secret     []byte
	ttl        time.Duration
	cookieName string
	secure     bool
}

func New(secret string, ttl time.Duration, cookieName string, secure bool) *Manager {
	return &Manager{
		secret:     []byte(secret),
		ttl:        ttl,
		cookieName: cookieName,
		secure:     secure,
	}
}

// * Issue подписывает имя пользователя и кладет его в cookie
func (m *Manager) Issue(w http.ResponseWriter, username string) error {
	const op = "session.Issue"

	expires := time.Now().Add(m.ttl)

	token, err := m.generateToken(username, expires)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})

	return nil
}

func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

// * Username возвращает имя пользователя из cookie сессии
func (m *Manager) Username(r *http.Request) (string, error) {
	c, err := r.Cookie(m.cookieName)
	if err != nil || c.Value == "" {
		return "", ErrNoSession
	}

	username, err := m.parseToken(c.Value)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}

	return username, nil
}

func (m *Manager) generateToken(username string, expires time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":     username,
		"purpose": purpose,
		"iat":     time.Now().Unix(),
		"exp":     expires.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(m.secret)
}

func (m *Manager) parseToken(tokenStr string) (string, error) {
	const op = "session.parseToken"

	claims := jwt.MapClaims{}

	parsedToken, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%s: unexpected signing method", op)
		}
		return m.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%s: failed to parse token: %w", op, err)
	}

	if !parsedToken.Valid {
		return "", fmt.Errorf("%s: invalid token", op)
	}

	if p, ok := claims["purpose"].(string); !ok || p != purpose {
		return "", fmt.Errorf("%s: invalid token purpose", op)
	}

	username, ok := claims["sub"].(string)
	if !ok || username == "" {
		return "", fmt.Errorf("%s: missing sub claim", op)
	}

	return username, nil
}
