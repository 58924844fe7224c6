package cmdutil

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var metricsListenAddr = "127.0.0.1:3030"

const metricsShutdownTimeout = 5 * time.Second

func RegisterMetricsFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&metricsListenAddr,
		"metrics-listen-addr",
		metricsListenAddr,
		"Address for the metrics endpoint to listen to. Empty disables the endpoint.",
	)
}

// MetricsHandler serves /healthz and the metrics gathered by g on /metrics.
func MetricsHandler(logger zerolog.Logger, g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := fmt.Fprint(w, "OK"); err != nil {
			logger.Err(err).Msgf("error writing to healthz")
		}
	})
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return mux
}

// RunMetricsServer serves the default registry in the background until the
// returned stop function is called. With no listen address it does nothing.
func RunMetricsServer(logger zerolog.Logger) (stop func()) {
	if metricsListenAddr == "" {
		return func() {}
	}
	srv := &http.Server{
		Addr:    metricsListenAddr,
		Handler: MetricsHandler(logger, prometheus.DefaultGatherer),
	}
	logger.Debug().Str("addr", srv.Addr).Msgf("serving metrics")
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Err(err).Msgf("error exposing metrics endpoints")
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Err(err).Msgf("error stopping metrics server")
		}
	}
}
