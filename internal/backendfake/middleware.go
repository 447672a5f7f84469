package backendfake

import (
	"fmt"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

const (
	green   = "\033[32m"
	blue    = "\033[34m"
	cyan    = "\033[36m"
	yellow  = "\033[33m"
	magenta = "\033[35m"
	gray    = "\033[90m"
	reset   = "\033[0m"
)

var methodColors = map[string]string{
	"GET":    green,
	"POST":   blue,
	"PUT":    cyan,
	"DELETE": yellow,
	"PATCH":  magenta,
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.logger.Info().
			Str("method", colourMethod(r.Method, s.colour)).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Str("request_id", chimw.GetReqID(r.Context())).
			Msg("Request")
	})
}

// failureMiddleware answers with a forced status for routes registered via
// Server.Fail.
func (s *Server) failureMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status := s.store.failure(routeKey(r.URL.Path)); status != 0 {
			writeJSON(w, status, message{Message: http.StatusText(status)})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func colourMethod(method string, enabled bool) string {
	if !enabled {
		return method
	}
	padded := fmt.Sprintf("%-7s", method)
	if c, ok := methodColors[method]; ok {
		return c + padded + reset
	}
	return gray + padded + reset
}
