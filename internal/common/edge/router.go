package edge

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"maritime-edge/internal/common/errors"
	"maritime-edge/internal/common/response"
	"maritime-edge/pkg/registry"
)

// FunctionsPrefix is the path every function is mounted under.
const FunctionsPrefix = "/functions/v1"

// Pinger is a datastore checked by /ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterOptions struct {
	Mounts  []Mount
	Catalog *registry.Catalog
	Checks  map[string]Pinger
}

// NewRouter wires operational endpoints and every mounted function.
func NewRouter(rt *Runtime, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(CORS)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		rt.writeData(w, req, map[string]string{"status": "healthy"})
	})

	r.Get("/ready", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
		defer cancel()

		checks := make(map[string]string, len(opts.Checks))
		ready := true
		for name, p := range opts.Checks {
			if err := p.Ping(ctx); err != nil {
				checks[name] = err.Error()
				ready = false
				continue
			}
			checks[name] = "ok"
		}

		if !ready {
			status, resp := response.CreateResponse(nil,
				errors.New("NOT_READY", "Dependencies unavailable", http.StatusServiceUnavailable, checks),
				GetRequestID(req.Context()), rt.version)
			_ = response.Write(w, status, resp)
			return
		}
		rt.writeData(w, req, map[string]interface{}{"status": "ready", "checks": checks})
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/functions", func(w http.ResponseWriter, req *http.Request) {
		if opts.Catalog == nil {
			rt.writeData(w, req, registry.FunctionRegistry{})
			return
		}
		rt.writeData(w, req, opts.Catalog.Snapshot())
	})

	r.Route(FunctionsPrefix, func(fr chi.Router) {
		for _, m := range opts.Mounts {
			fr.Handle("/"+m.Function.Name(), rt.Handler(m))
		}
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		status, resp := response.CreateResponse(nil, errors.NewNotFoundError(req.URL.Path),
			GetRequestID(req.Context()), rt.version)
		_ = response.Write(w, status, resp)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		status, resp := response.CreateResponse(nil, errors.NewMethodNotAllowedError(req.Method),
			GetRequestID(req.Context()), rt.version)
		_ = response.Write(w, status, resp)
	})

	return r
}

func (rt *Runtime) writeData(w http.ResponseWriter, req *http.Request, data interface{}) {
	status, resp := response.CreateResponse(data, nil, GetRequestID(req.Context()), rt.version)
	if err := response.Write(w, status, resp); err != nil {
		rt.logger.Warn("failed to write response", map[string]interface{}{"error": err.Error()})
	}
}
