package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type MetricsServer struct {
	srv    *http.Server
	logger zerolog.Logger
}

func NewMetricsServer(addr string, gatherer prometheus.Gatherer, logger zerolog.Logger) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &MetricsServer{
		srv:    &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

func (m *MetricsServer) Handler() http.Handler { return m.srv.Handler }

func (m *MetricsServer) Start() {
	go func() {
		m.logger.Info().Str("addr", m.srv.Addr).Msg("metrics server listening")
		if err := m.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
