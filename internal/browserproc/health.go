package browserproc

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// Health mounts a bare liveness endpoint for process supervisors,
// grounded on the teacher's ExtensionRelay.Handler chi-router mounting
// idiom. Purely operational: it carries no bearing on the tool-call
// surface and reports ready as soon as the Session is constructed.
func Health() http.Handler {
	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	return router
}

// ServeHealth starts the liveness endpoint on port and shuts it down
// when ctx is cancelled. A zero port disables it entirely.
func ServeHealth(ctx context.Context, port int) {
	if port <= 0 {
		return
	}
	srv := &http.Server{
		Addr:    "127.0.0.1:" + strconv.Itoa(port),
		Handler: Health(),
	}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	go func() {
		_ = srv.ListenAndServe()
	}()
}
