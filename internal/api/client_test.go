package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/verte-zerg/rollcall/internal/model"
)

func mustRange(t *testing.T, start, end string) model.DateRange {
	t.Helper()
	rng, err := ParseRange(start, end)
	if err != nil {
		t.Fatalf("parse range: %v", err)
	}
	return rng
}

func TestParseRange(t *testing.T) {
	cases := []struct {
		start, end string
		ok         bool
	}{
		{"2024-01-01", "2024-01-31", true},
		{"2024-01-05", "2024-01-05", true},
		{"2024-01-10", "2024-01-05", false},
		{"", "2024-01-05", false},
		{"2024-01-01", "", false},
		{"01/01/2024", "2024-01-05", false},
		{"2024-02-30", "2024-03-01", false},
	}
	for _, tc := range cases {
		_, err := ParseRange(tc.start, tc.end)
		if tc.ok && err != nil {
			t.Fatalf("%s..%s: unexpected error %v", tc.start, tc.end, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidRange) {
			t.Fatalf("%s..%s: expected ErrInvalidRange, got %v", tc.start, tc.end, err)
		}
	}
}

func TestFetchSeries(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != SeriesPath {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"labels": ["Jan 01", "Jan 02"],
			"student_present": [10, 12],
			"student_absent": [2, 0],
			"teacher_present": [3, 3],
			"teacher_absent": [0, 1],
			"start_date": "2024-01-01",
			"end_date": "2024-01-02",
			"detail_api_url": "/attendance/api/attendance/detail/"
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	series, err := c.FetchSeries(context.Background(), mustRange(t, "2024-01-01", "2024-01-02"))
	if err != nil {
		t.Fatalf("fetch series: %v", err)
	}
	if gotQuery != "end_date=2024-01-02&start_date=2024-01-01" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if series.Len() != 2 || series.StudentPresent[1] != 12 || series.TeacherAbsent[1] != 1 {
		t.Fatalf("unexpected series %+v", series)
	}
	if series.DetailAPIURL != DetailPath {
		t.Fatalf("unexpected detail url %q", series.DetailAPIURL)
	}
}

func TestFetchSeriesMalformed(t *testing.T) {
	full := map[string]string{
		"labels":          `["Jan 01"]`,
		"student_present": `[1]`,
		"student_absent":  `[1]`,
		"teacher_present": `[1]`,
		"teacher_absent":  `[1]`,
	}
	bodies := []string{`not json`}
	for missing := range full {
		parts := make([]string, 0, len(full))
		for key, val := range full {
			if key == missing {
				continue
			}
			parts = append(parts, `"`+key+`": `+val)
		}
		bodies = append(bodies, "{"+strings.Join(parts, ",")+"}")
	}
	bodies = append(bodies,
		`{"labels":["Jan 01","Jan 02"],"student_present":[1],"student_absent":[1],"teacher_present":[1],"teacher_absent":[1]}`,
		`{"labels":["Jan 01"],"student_present":[-1],"student_absent":[1],"teacher_present":[1],"teacher_absent":[1]}`,
		`{"labels":["Jan 01"],"student_present":null,"student_absent":[1],"teacher_present":[1],"teacher_absent":[1]}`,
	)

	for _, body := range bodies {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		c := NewClient(srv.URL, time.Second)
		_, err := c.FetchSeries(context.Background(), mustRange(t, "2024-01-01", "2024-01-01"))
		srv.Close()
		if !errors.Is(err, ErrMalformedResponse) {
			t.Fatalf("body %s: expected ErrMalformedResponse, got %v", body, err)
		}
	}
}

func TestFetchSeriesEmptyArrays(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"labels":[],"student_present":[],"student_absent":[],"teacher_present":[],"teacher_absent":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	series, err := c.FetchSeries(context.Background(), mustRange(t, "2024-01-01", "2024-01-03"))
	if err != nil {
		t.Fatalf("fetch series: %v", err)
	}
	if series.Len() != 0 {
		t.Fatalf("expected empty series, got %d", series.Len())
	}
	if series.StartDate != "2024-01-01" || series.EndDate != "2024-01-03" {
		t.Fatalf("expected requested range as fallback, got %s..%s", series.StartDate, series.EndDate)
	}
}

func TestFetchSeriesTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Invalid date format"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.FetchSeries(context.Background(), mustRange(t, "2024-01-01", "2024-01-02"))
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if terr.Status != http.StatusBadRequest || !strings.Contains(terr.Message, "Invalid date format") {
		t.Fatalf("unexpected transport error %+v", terr)
	}
}

func TestFetchSeriesUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second)
	_, err := c.FetchSeries(context.Background(), mustRange(t, "2024-01-01", "2024-01-02"))
	var terr *TransportError
	if !errors.As(err, &terr) || terr.Status != 0 {
		t.Fatalf("expected status-less TransportError, got %v", err)
	}
}

func TestFetchDetail(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != DetailPath {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{
			"start_date": "2024-01-01",
			"end_date": "2024-01-31",
			"students": [
				{"date":"2024-01-02","student_id":1,"student_first_name":"Ada","student_last_name":"Lovelace","status":"present","remarks":null},
				{"date":"2024-01-03","student_id":1,"student_first_name":"Ada","student_last_name":"Lovelace","status":"absent","remarks":"sick"}
			],
			"summary": {"student_present_count":1,"student_absent_count":1,"teacher_present_count":0,"teacher_absent_count":0}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	detail, err := c.FetchDetail(context.Background(), mustRange(t, "2024-01-01", "2024-01-31"))
	if err != nil {
		t.Fatalf("fetch detail: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one request, got %d", calls.Load())
	}
	if len(detail.Students) != 2 || len(detail.Teachers) != 0 {
		t.Fatalf("unexpected record counts %d/%d", len(detail.Students), len(detail.Teachers))
	}
	if detail.Students[0].FullName() != "Ada Lovelace" || detail.Students[0].Remarks != "" {
		t.Fatalf("unexpected first record %+v", detail.Students[0])
	}
	if detail.Students[1].Remarks != "sick" || detail.Students[1].Population != model.Students {
		t.Fatalf("unexpected second record %+v", detail.Students[1])
	}
}

func TestFetchDetailMissingStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"teachers":[{"date":"2024-01-02","teacher_first_name":"A","teacher_last_name":"B"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.FetchDetail(context.Background(), mustRange(t, "2024-01-01", "2024-01-31"))
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}
