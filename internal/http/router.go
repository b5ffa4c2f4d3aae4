package http

import "net/http"

type Handlers struct {
	Users   *UserHandler
	Books   *BookHandler
	Health  *HealthHandler
	Metrics http.Handler
}

// NewRouter registers every route. Metrics may be nil.
func NewRouter(h Handlers) *http.ServeMux {
	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", h.Health.Live)
	router.HandleFunc("GET /readyz", h.Health.Ready)
	if h.Metrics != nil {
		router.Handle("GET /metrics", h.Metrics)
	}

	router.HandleFunc("GET /users", h.Users.List)
	router.HandleFunc("POST /users", h.Users.Create)
	router.HandleFunc("GET /users/{id}", h.Users.Get)
	router.HandleFunc("POST /users/{userId}/borrow/{bookId}", h.Users.Borrow)
	router.HandleFunc("POST /users/{userId}/return/{bookId}", h.Users.Return)

	router.HandleFunc("GET /books", h.Books.List)
	router.HandleFunc("POST /books", h.Books.Create)
	router.HandleFunc("GET /books/{id}", h.Books.Get)

	return router
}
