package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/tphakala/monadwatch/internal/logger"
)

// ShutdownTimeout bounds the graceful shutdown of the endpoint
const ShutdownTimeout = 5 * time.Second

func getLogger() logger.Logger {
	return logger.Global().Module("observability")
}

// HealthFunc reports component health; a nil error means healthy
type HealthFunc func() map[string]error

// Endpoint serves /metrics and /healthz.
type Endpoint struct {
	listenAddress string
	metrics       *Metrics
	health        HealthFunc
}

// NewEndpoint creates an endpoint listening on listenAddress. health may be nil.
func NewEndpoint(listenAddress string, metrics *Metrics, health HealthFunc) *Endpoint {
	return &Endpoint{
		listenAddress: listenAddress,
		metrics:       metrics,
		health:        health,
	}
}

// Handler returns the HTTP handler served by the endpoint
func (e *Endpoint) Handler() http.Handler {
	mux := http.NewServeMux()
	e.metrics.RegisterHandlers(mux)
	mux.HandleFunc("/healthz", e.serveHealth)
	return mux
}

// Run serves until ctx is cancelled, then shuts the server down gracefully.
func (e *Endpoint) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", e.listenAddress)
	if err != nil {
		return err
	}
	return e.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (e *Endpoint) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           e.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	log := getLogger()
	go func() {
		log.Info("Metrics endpoint starting", logger.String("address", ln.Addr().String()))
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("Stopping metrics endpoint")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Metrics endpoint shutdown error", logger.Error(err))
		return err
	}
	<-errCh
	return nil
}

type healthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

func (e *Endpoint) serveHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok"}
	code := http.StatusOK
	if e.health != nil {
		checks := e.health()
		resp.Components = make(map[string]string, len(checks))
		for name, err := range checks {
			if err != nil {
				resp.Components[name] = err.Error()
				resp.Status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			resp.Components[name] = "ok"
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
