package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/micro-ha/appdriver/internal/http/handlers"
)

// NewRouter builds the gateway routing tree. requestTimeout bounds each request
// and must cover the longest background run a caller may ask for.
func NewRouter(api *handlers.API, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RecoverJSON)
	if requestTimeout > 0 {
		r.Use(middleware.Timeout(requestTimeout))
	}
	r.Use(RequestLogger(api))

	r.Get("/healthz", api.Health)
	r.Route("/api", func(apiRouter chi.Router) {
		apiRouter.Route("/apps", func(appsRouter chi.Router) {
			appsRouter.Post("/install", api.InstallApp)
			appsRouter.Post("/background", api.RunAppInBackground)
			appsRouter.Get("/{bundleId}/installed", func(w http.ResponseWriter, r *http.Request) {
				api.IsAppInstalled(w, r, chi.URLParam(r, "bundleId"))
			})
			appsRouter.Delete("/{bundleId}", func(w http.ResponseWriter, r *http.Request) {
				api.RemoveApp(w, r, chi.URLParam(r, "bundleId"))
			})
			appsRouter.Post("/{bundleId}/activate", func(w http.ResponseWriter, r *http.Request) {
				api.ActivateApp(w, r, chi.URLParam(r, "bundleId"))
			})
			appsRouter.Get("/{bundleId}/state", func(w http.ResponseWriter, r *http.Request) {
				api.QueryAppState(w, r, chi.URLParam(r, "bundleId"))
			})
			appsRouter.Post("/{bundleId}/terminate", func(w http.ResponseWriter, r *http.Request) {
				api.TerminateApp(w, r, chi.URLParam(r, "bundleId"))
			})
		})
		apiRouter.Get("/journal", api.ListJournal)
	})
	return r
}
