package httpserver

import (
	"net/http"
	"time"
)

// writeGrace is how long past the handler deadline the server keeps the
// connection writable, so the timeout middleware can still send its 504.
const writeGrace = 5 * time.Second

// New builds the HTTP server. requestTimeout is the handler deadline enforced
// by middleware; zero falls back to a 30s budget.
func New(addr string, handler http.Handler, requestTimeout time.Duration) *http.Server {
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      requestTimeout + writeGrace,
		IdleTimeout:       2 * time.Minute,
	}
}
