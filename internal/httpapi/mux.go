package httpapi

import (
	"database/sql"
	"net/http"
)

// NewMux registers the health check, the static dashboard under /static/ and
// a redirect from / to it. Feature routes are added by the caller.
func NewMux(db *sql.DB, staticDir string) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db)

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/static/", http.StatusFound)
	})
	return mux
}
