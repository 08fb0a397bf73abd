package health

import (
	"net/http"
)

// SetupHttpMux registers the health endpoint for checker on mux.
func SetupHttpMux(mux *http.ServeMux, checker Checker) {
	mux.Handle("/health", NewHealthCheckHttpHandler(checker))
}
