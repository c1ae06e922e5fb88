package ratelimit

import (
	"net/http"
	"time"

	httprate "github.com/go-chi/httprate"
)

func Login() func(http.Handler) http.Handler {
	return limitByIP(10, 5*time.Minute)
}

func Register() func(http.Handler) http.Handler {
	return limitByIP(5, time.Hour)
}

func Renew() func(http.Handler) http.Handler {
	return limitByIP(30, 10*time.Minute)
}

// Mutate covers quote create/update/delete.
func Mutate() func(http.Handler) http.Handler {
	return limitByIP(60, time.Minute)
}

func limitByIP(requestLimit int, windowLength time.Duration) func(http.Handler) http.Handler {
	return httprate.LimitByIP(requestLimit, windowLength)
}
