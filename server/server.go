// Package server exposes resources over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/ka2n/dataprovider/api"
	"github.com/ka2n/dataprovider/log"
	"github.com/morikuni/failure/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Paths served by Server
const (
	ResourcePath = "/api/data-provider/resource"
	MetricsPath  = "/metrics"
	HealthPath   = "/healthz"
)

// Response is the body of a resource request
type Response struct {
	Resource string `json:"resource"`
	Contents any    `json:"contents"`
}

// Summary describes a resource in the resource list
type Summary struct {
	Name         string `json:"name"`
	Label        string `json:"label,omitempty"`
	Fetcher      string `json:"fetcher"`
	Transformers int    `json:"transformers"`
	Caching      bool   `json:"caching"`
}

// Server serves resources of a ResourceManager
type Server struct {
	manager *api.ResourceManager
	router  *mux.Router
}

// New creates a Server. gatherer backs the metrics endpoint and may be nil.
func New(manager *api.ResourceManager, gatherer prometheus.Gatherer) *Server {
	s := &Server{manager: manager, router: mux.NewRouter()}

	s.router.HandleFunc(ResourcePath, s.handleList).Methods(http.MethodGet)
	s.router.HandleFunc(ResourcePath+"/{name}", s.handleResource).Methods(http.MethodGet)
	s.router.HandleFunc(HealthPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	if gatherer != nil {
		s.router.Handle(MetricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("Serving resources", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return failure.Wrap(err, failure.Context{"addr": addr})
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return failure.Wrap(err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return failure.Wrap(err)
	}
	return nil
}

func (s *Server) handleResource(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	contents, err := s.manager.FetchByName(r.Context(), name)
	switch {
	case failure.Is(err, api.ErrResourceNotFound):
		writeError(w, http.StatusNotFound, err)
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{Resource: name, Contents: contents})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	descriptors, err := s.manager.Resources(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	list := make([]Summary, 0, len(descriptors))
	for _, d := range descriptors {
		list = append(list, Summary{
			Name:         d.Name,
			Label:        d.Label,
			Fetcher:      d.Fetcher.PluginID,
			Transformers: len(d.Transformer.Plugins),
			Caching:      d.Caching.Enabled,
		})
	}
	writeJSON(w, http.StatusOK, list)
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	if fmsg := failure.MessageOf(err); fmsg != "" {
		msg = fmsg.String()
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("Failed to write response", "error", err.Error())
	}
}
