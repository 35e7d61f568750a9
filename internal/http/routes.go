package httpx

import (
	"net/http"

	"github.com/crosspost-labs/publisher-go/internal/service"
)

// RouterServices holds the services needed by the HTTP router.
type RouterServices struct {
	Coordinator *service.CoordinatorService
}

// NewRouter creates and configures the API router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	jobHandlers := &JobHandlers{Svc: services.Coordinator}
	registerJobRoutes(mux, jobHandlers)

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	return mux
}

func registerJobRoutes(mux *http.ServeMux, h *JobHandlers) {
	mux.HandleFunc("POST /api/jobs", h.SubmitJob)
	mux.HandleFunc("GET /api/jobs/{id}", h.GetJob)
	mux.HandleFunc("DELETE /api/jobs/{id}", h.CancelJob)
	mux.HandleFunc("GET /api/queue/depth", h.QueueDepth)
	mux.HandleFunc("GET /api/jobs/{id}/posts/{platform}/metrics", h.PostMetrics)
	mux.HandleFunc("DELETE /api/jobs/{id}/posts/{platform}", h.DeletePost)
	mux.HandleFunc("PATCH /api/jobs/{id}/posts/{platform}", h.UpdatePost)
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
