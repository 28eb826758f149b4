// Package server exposes stored attendance over HTTP in the shape the
// dashboard client expects.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verte-zerg/rollcall/internal/api"
	"github.com/verte-zerg/rollcall/internal/model"
)

// Backend is the data source behind the endpoints.
type Backend interface {
	SeriesForRange(ctx context.Context, rng model.DateRange) (model.AttendanceSeries, error)
	DetailForRange(ctx context.Context, rng model.DateRange) (model.AttendanceDetail, error)
	Ping(ctx context.Context) error
}

// Default windows used when a request omits its dates.
const (
	DefaultSeriesDays = 7
	DefaultDetailDays = 31
)

const shutdownTimeout = 5 * time.Second

// Options configures the router.
type Options struct {
	Logger       *zap.Logger
	AllowOrigins []string
	Now          func() time.Time
}

// NewRouter wires the attendance endpoints onto a gin engine.
func NewRouter(backend Backend, opts Options) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	r := gin.New()
	r.Use(requestID(), requestLogger(log), gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(opts.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = opts.AllowOrigins
	}
	corsConfig.AllowMethods = []string{http.MethodGet, http.MethodOptions}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", RequestIDHeader}
	corsConfig.ExposeHeaders = []string{RequestIDHeader}
	r.Use(cors.New(corsConfig))

	h := &handler{backend: backend, log: log, now: now}
	r.GET("/healthz", h.health)
	r.GET(api.SeriesPath, h.series)
	r.GET(api.DetailPath, h.detail)
	return r
}

// Run serves handler on addr until ctx is cancelled, then shuts down
// gracefully.
func Run(ctx context.Context, addr string, handler http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
