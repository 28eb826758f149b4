package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verte-zerg/rollcall/internal/api"
	"github.com/verte-zerg/rollcall/internal/model"
	"github.com/verte-zerg/rollcall/internal/report"
)

type handler struct {
	backend Backend
	log     *zap.Logger
	now     func() time.Time
}

type rangeQuery struct {
	StartDate string `form:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate   string `form:"end_date" binding:"omitempty,datetime=2006-01-02"`
}

// resolveRange binds the query. Unless both dates are given the last
// defaultDays days are used.
func (h *handler) resolveRange(c *gin.Context, defaultDays int) (model.DateRange, bool) {
	var q rangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format, expected YYYY-MM-DD"})
		return model.DateRange{}, false
	}
	if q.StartDate == "" || q.EndDate == "" {
		return model.LastDays(h.now(), defaultDays), true
	}
	rng, err := api.ParseRange(q.StartDate, q.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return model.DateRange{}, false
	}
	return rng, true
}

func (h *handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.backend.Ping(ctx); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": "Database connection failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) series(c *gin.Context) {
	rng, ok := h.resolveRange(c, DefaultSeriesDays)
	if !ok {
		return
	}
	series, err := h.backend.SeriesForRange(c.Request.Context(), rng)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load attendance"})
		return
	}
	c.JSON(http.StatusOK, api.SeriesPayload{
		Labels:         series.Labels,
		StudentPresent: series.StudentPresent,
		StudentAbsent:  series.StudentAbsent,
		TeacherPresent: series.TeacherPresent,
		TeacherAbsent:  series.TeacherAbsent,
		StartDate:      rng.StartString(),
		EndDate:        rng.EndString(),
		DetailAPIURL:   api.DetailPath,
	})
}

func (h *handler) detail(c *gin.Context) {
	rng, ok := h.resolveRange(c, DefaultDetailDays)
	if !ok {
		return
	}
	detail, err := h.backend.DetailForRange(c.Request.Context(), rng)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load attendance detail"})
		return
	}

	payload := api.DetailPayload{
		StartDate: rng.StartString(),
		EndDate:   rng.EndString(),
		Students:  make([]api.StudentRecord, 0, len(detail.Students)),
		Teachers:  make([]api.TeacherRecord, 0, len(detail.Teachers)),
	}
	for _, r := range detail.Students {
		remarks := r.Remarks
		payload.Students = append(payload.Students, api.StudentRecord{
			Date:      r.Date,
			StudentID: r.PersonID,
			FirstName: r.FirstName,
			LastName:  r.LastName,
			Status:    r.Status,
			Remarks:   &remarks,
		})
	}
	for _, r := range detail.Teachers {
		remarks := r.Remarks
		payload.Teachers = append(payload.Teachers, api.TeacherRecord{
			Date:      r.Date,
			TeacherID: r.PersonID,
			FirstName: r.FirstName,
			LastName:  r.LastName,
			Status:    r.Status,
			Remarks:   &remarks,
		})
	}
	summary := report.Summarize(detail)
	payload.Summary = &api.DetailSummary{
		StudentPresentCount: summary.Students.Present,
		StudentAbsentCount:  summary.Students.Absent,
		TeacherPresentCount: summary.Teachers.Present,
		TeacherAbsentCount:  summary.Teachers.Absent,
	}
	c.JSON(http.StatusOK, payload)
}
