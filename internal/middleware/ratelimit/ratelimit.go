package rateLimit

import (
	"net/http"
	"time"

	httprate "github.com/go-chi/httprate"
)

func Login() func(http.Handler) http.Handler {
	return limitByIP(20, 10*time.Minute)
}

// Submit ограничивает немедленные отправки, каждая уходит в Reddit
func Submit() func(http.Handler) http.Handler {
	return limitByIP(10, 10*time.Minute)
}

func Schedule() func(http.Handler) http.Handler {
	return limitByIP(30, 10*time.Minute)
}

func Update() func(http.Handler) http.Handler {
	return limitByIP(30, 10*time.Minute)
}

func limitByIP(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(limit, window, httprate.WithKeyFuncs(httprate.KeyByIP))
}
