// Package dashboard holds the chart's current dataset and view and
// coordinates refreshes against the attendance API.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/verte-zerg/rollcall/internal/api"
	"github.com/verte-zerg/rollcall/internal/chart"
	"github.com/verte-zerg/rollcall/internal/model"
)

// ErrSuperseded is returned by a refresh that completed after a newer one had
// already replaced the series. The stored series is left as the newer refresh
// set it.
var ErrSuperseded = errors.New("refresh superseded by a newer request")

// SeriesFetcher loads the aggregate series for a validated range.
type SeriesFetcher interface {
	FetchSeries(ctx context.Context, rng model.DateRange) (model.AttendanceSeries, error)
}

// Session owns the series store and the selected view mode.
type Session struct {
	fetcher  SeriesFetcher
	renderer chart.Renderer
	log      *zap.Logger

	mu     sync.RWMutex
	series model.AttendanceSeries
	rng    model.DateRange
	view   model.ViewMode
	// ticket numbers refreshes in issue order; applied is the ticket of the
	// stored series.
	ticket  uint64
	applied uint64
}

// NewSession returns a session with an empty series and the "all" view.
// renderer and log may be nil.
func NewSession(fetcher SeriesFetcher, renderer chart.Renderer, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		fetcher:  fetcher,
		renderer: renderer,
		log:      log,
		view:     model.ViewAll,
	}
}

// Series returns a copy of the stored series.
func (s *Session) Series() model.AttendanceSeries {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.series.Clone()
}

// Range returns the range of the stored series, or the zero range before
// anything was loaded.
func (s *Session) Range() model.DateRange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rng
}

// View returns the selected view mode.
func (s *Session) View() model.ViewMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Visibility returns the series flags of the selected view mode.
func (s *Session) Visibility() model.Visibility {
	return chart.ComputeVisibility(s.View())
}

// SetView selects mode and redraws. Unknown modes fall back to "all".
func (s *Session) SetView(mode model.ViewMode) error {
	mode = chart.ParseViewMode(string(mode))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = mode
	s.log.Debug("view changed", zap.String("view", string(mode)))
	return s.applyLocked()
}

// Load replaces the stored series without a fetch, used for the initial
// dataset.
func (s *Session) Load(series model.AttendanceSeries) error {
	if !series.Aligned() {
		return fmt.Errorf("%w: unaligned series", api.ErrMalformedResponse)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticket++
	s.applied = s.ticket
	s.series = series.Clone()
	if rng, err := api.ParseRange(series.StartDate, series.EndDate); err == nil {
		s.rng = rng
	}
	return s.applyLocked()
}

// RequestRefresh validates the range, fetches the series once and replaces
// the store. On any error the previous series is kept. A response older than
// the stored series is discarded with ErrSuperseded; a newer refresh that
// failed does not block an older one from landing.
func (s *Session) RequestRefresh(ctx context.Context, startDate, endDate string) (model.AttendanceSeries, error) {
	rng, err := api.ParseRange(startDate, endDate)
	if err != nil {
		return model.AttendanceSeries{}, err
	}

	s.mu.Lock()
	s.ticket++
	ticket := s.ticket
	s.mu.Unlock()

	s.log.Info("refreshing attendance", zap.String("range", rng.String()), zap.Uint64("ticket", ticket))
	series, err := s.fetcher.FetchSeries(ctx, rng)
	if err != nil {
		s.log.Warn("refresh failed", zap.String("range", rng.String()), zap.Error(err))
		return model.AttendanceSeries{}, err
	}
	if !series.Aligned() {
		return model.AttendanceSeries{}, fmt.Errorf("%w: unaligned series", api.ErrMalformedResponse)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket < s.applied {
		s.log.Info("discarding stale refresh", zap.Uint64("ticket", ticket), zap.Uint64("applied", s.applied))
		return model.AttendanceSeries{}, ErrSuperseded
	}
	s.applied = ticket
	s.series = series.Clone()
	s.rng = rng
	s.log.Info("refresh complete", zap.String("range", rng.String()), zap.Int("labels", series.Len()))
	if err := s.applyLocked(); err != nil {
		return series, fmt.Errorf("failed to redraw chart: %w", err)
	}
	return series, nil
}

func (s *Session) applyLocked() error {
	if s.renderer == nil {
		return nil
	}
	return chart.Apply(s.renderer, s.series, s.view)
}
