package middleware

import (
	"io"
	"net/http"
)

// DrainAndCloseRequest drains and closes the request body after the handler
// ran, so keep-alive connections stay reusable even when a handler bails out
// before reading the whole payload.
func DrainAndCloseRequest() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)

			if r.Body == nil {
				return
			}
			_, _ = io.Copy(io.Discard, r.Body)
			_ = r.Body.Close()
		})
	}
}
