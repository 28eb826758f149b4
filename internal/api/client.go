// Package api is the HTTP client for the attendance endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/verte-zerg/rollcall/internal/model"
)

// Endpoint paths relative to the base URL.
const (
	SeriesPath = "/api/attendance/"
	DetailPath = "/attendance/api/attendance/detail/"
)

const (
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 512
)

// SeriesPayload is the aggregate endpoint body.
type SeriesPayload struct {
	Labels         []string `json:"labels" validate:"required"`
	StudentPresent []int    `json:"student_present" validate:"required,dive,min=0"`
	StudentAbsent  []int    `json:"student_absent" validate:"required,dive,min=0"`
	TeacherPresent []int    `json:"teacher_present" validate:"required,dive,min=0"`
	TeacherAbsent  []int    `json:"teacher_absent" validate:"required,dive,min=0"`
	StartDate      string   `json:"start_date"`
	EndDate        string   `json:"end_date"`
	DetailAPIURL   string   `json:"detail_api_url"`
}

// StudentRecord is one student row of the detail endpoint.
type StudentRecord struct {
	Date      string  `json:"date" validate:"required"`
	StudentID int64   `json:"student_id,omitempty"`
	FirstName string  `json:"student_first_name"`
	LastName  string  `json:"student_last_name"`
	Status    string  `json:"status" validate:"required"`
	Remarks   *string `json:"remarks"`
}

// TeacherRecord is one teacher row of the detail endpoint.
type TeacherRecord struct {
	Date      string  `json:"date" validate:"required"`
	TeacherID int64   `json:"teacher_id,omitempty"`
	FirstName string  `json:"teacher_first_name"`
	LastName  string  `json:"teacher_last_name"`
	Status    string  `json:"status" validate:"required"`
	Remarks   *string `json:"remarks"`
}

// DetailSummary carries the server-side counts of the detail endpoint.
type DetailSummary struct {
	StudentPresentCount int `json:"student_present_count"`
	StudentAbsentCount  int `json:"student_absent_count"`
	TeacherPresentCount int `json:"teacher_present_count"`
	TeacherAbsentCount  int `json:"teacher_absent_count"`
}

// DetailPayload is the detail endpoint body. Either list may be absent.
type DetailPayload struct {
	StartDate string          `json:"start_date"`
	EndDate   string          `json:"end_date"`
	Students  []StudentRecord `json:"students" validate:"omitempty,dive"`
	Teachers  []TeacherRecord `json:"teachers" validate:"omitempty,dive"`
	Summary   *DetailSummary  `json:"summary,omitempty"`
}

// Client fetches attendance data from a backend.
type Client struct {
	baseURL  string
	http     *http.Client
	validate *validator.Validate
}

// NewClient returns a client for baseURL. A zero timeout uses the default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		validate: validator.New(),
	}
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchSeries issues one request for the aggregate series of rng.
func (c *Client) FetchSeries(ctx context.Context, rng model.DateRange) (model.AttendanceSeries, error) {
	var payload SeriesPayload
	if err := c.get(ctx, SeriesPath, rng, &payload); err != nil {
		return model.AttendanceSeries{}, err
	}
	series := model.AttendanceSeries{
		Labels:         payload.Labels,
		StudentPresent: payload.StudentPresent,
		StudentAbsent:  payload.StudentAbsent,
		TeacherPresent: payload.TeacherPresent,
		TeacherAbsent:  payload.TeacherAbsent,
		StartDate:      payload.StartDate,
		EndDate:        payload.EndDate,
		DetailAPIURL:   payload.DetailAPIURL,
	}
	if !series.Aligned() {
		return model.AttendanceSeries{}, fmt.Errorf("%w: %d labels but count lengths %d/%d/%d/%d",
			ErrMalformedResponse, len(series.Labels),
			len(series.StudentPresent), len(series.StudentAbsent),
			len(series.TeacherPresent), len(series.TeacherAbsent))
	}
	if series.StartDate == "" {
		series.StartDate = rng.StartString()
	}
	if series.EndDate == "" {
		series.EndDate = rng.EndString()
	}
	return series, nil
}

// FetchDetail issues one request for the record-level data of rng.
func (c *Client) FetchDetail(ctx context.Context, rng model.DateRange) (model.AttendanceDetail, error) {
	var payload DetailPayload
	if err := c.get(ctx, DetailPath, rng, &payload); err != nil {
		return model.AttendanceDetail{}, err
	}
	detail := model.AttendanceDetail{
		StartDate: payload.StartDate,
		EndDate:   payload.EndDate,
		Students:  make([]model.DetailRecord, 0, len(payload.Students)),
		Teachers:  make([]model.DetailRecord, 0, len(payload.Teachers)),
	}
	for _, r := range payload.Students {
		detail.Students = append(detail.Students, model.DetailRecord{
			PersonID:   r.StudentID,
			Population: model.Students,
			Date:       r.Date,
			FirstName:  r.FirstName,
			LastName:   r.LastName,
			Status:     r.Status,
			Remarks:    deref(r.Remarks),
		})
	}
	for _, r := range payload.Teachers {
		detail.Teachers = append(detail.Teachers, model.DetailRecord{
			PersonID:   r.TeacherID,
			Population: model.Teachers,
			Date:       r.Date,
			FirstName:  r.FirstName,
			LastName:   r.LastName,
			Status:     r.Status,
			Remarks:    deref(r.Remarks),
		})
	}
	return detail, nil
}

func (c *Client) get(ctx context.Context, path string, rng model.DateRange, out any) error {
	query := url.Values{}
	query.Set("start_date", rng.StartString())
	query.Set("end_date", rng.EndString())
	endpoint := c.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Message: err.Error(), Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = resp.Status
		}
		return &TransportError{Status: resp.StatusCode, Message: msg}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := c.validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Namespace())
			}
			return fmt.Errorf("%w: invalid fields %s", ErrMalformedResponse, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
