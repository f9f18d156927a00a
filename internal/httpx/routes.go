package httpx

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the API on r. When a static directory is
// configured and exists, every other path is served from it.
func MountRoutes(r chi.Router, s *Server) {
	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		if s.Limiter != nil {
			r.Use(s.Limiter)
		}
		r.Post("/paste", s.handleCreate)
		r.Get("/paste/{id}", s.handleGet)
		r.Get("/raw/{id}", s.handleRaw)
		r.Get("/langs", s.handleLangs)
	})

	if dir := s.Config.StaticDir; dir != "" {
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			r.Handle("/*", http.FileServer(http.Dir(dir)))
		}
	}
}

func NoIndex(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Robots-Tag", "noindex, nofollow")
		next.ServeHTTP(w, r)
	})
}
