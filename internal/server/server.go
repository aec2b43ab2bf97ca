package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/Bahadou-Badr/segsweep/internal/metrics"
)

// Progress is the run state reported on /status.
type Progress interface {
	Snapshot() map[string]int
}

// Ops serves health, readiness, run status and Prometheus metrics while a sweep runs.
type Ops struct {
	ready    atomic.Bool
	progress Progress
}

func NewOps(progress Progress) *Ops {
	o := &Ops{progress: progress}
	o.ready.Store(true)
	return o
}

// SetReady flips the /ready answer.
func (o *Ops) SetReady(v bool) {
	o.ready.Store(v)
}

// Router returns the HTTP handler tree.
func (o *Ops) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(countRequests)
	r.Get("/health", healthHandler)
	r.Get("/ready", o.readyHandler)
	r.Get("/status", o.statusHandler)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Run listens on addr and serves until ctx is cancelled.
func (o *Ops) Run(ctx context.Context, addr string) (*http.Server, error) {
	metrics.Register()

	srv := &http.Server{
		Addr:         addr,
		Handler:      o.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	go func() {
		<-ctx.Done()
		o.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("ops server stopped")
		}
	}()
	return srv, nil
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (o *Ops) readyHandler(w http.ResponseWriter, r *http.Request) {
	if o.ready.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ready":true}`))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte(`{"ready":false}`))
}

func (o *Ops) statusHandler(w http.ResponseWriter, r *http.Request) {
	counts := map[string]int{}
	if o.progress != nil {
		counts = o.progress.Snapshot()
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(counts); err != nil {
		log.Error().Err(err).Msg("encode status")
	}
}

func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequests.WithLabelValues(r.URL.Path, r.Method, strconv.Itoa(status)).Inc()
	})
}
