package runner

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/benchguard/benchguard/pkg/logging"
	"github.com/benchguard/benchguard/pkg/storage"
)

// serveMetrics exposes /metrics and /healthz for the duration of a batch
// run, so long-running grids can be watched from Prometheus.
func serveMetrics(addr string, store storage.Store, logger *logging.Logger) (*http.Server, error) {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := store.HealthCheck(); err != nil {
			http.Error(w, fmt.Sprintf("store unhealthy: %v", err), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	}).Methods("GET")

	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		logger.WithField("addr", addr).Info("metrics endpoint listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithField("error", err.Error()).Warn("metrics endpoint failed")
		}
	}()

	return srv, nil
}
