package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/verte-zerg/rollcall/internal/model"
)

// ParseRange validates a pair of YYYY-MM-DD dates. The end date must not be
// before the start date.
func ParseRange(startDate, endDate string) (model.DateRange, error) {
	startDate = strings.TrimSpace(startDate)
	endDate = strings.TrimSpace(endDate)
	if startDate == "" || endDate == "" {
		return model.DateRange{}, fmt.Errorf("%w: select both start and end dates", ErrInvalidRange)
	}
	start, err := time.Parse(model.DateLayout, startDate)
	if err != nil {
		return model.DateRange{}, fmt.Errorf("%w: start date %q (expected YYYY-MM-DD)", ErrInvalidRange, startDate)
	}
	end, err := time.Parse(model.DateLayout, endDate)
	if err != nil {
		return model.DateRange{}, fmt.Errorf("%w: end date %q (expected YYYY-MM-DD)", ErrInvalidRange, endDate)
	}
	if end.Before(start) {
		return model.DateRange{}, fmt.Errorf("%w: end date must be after start date", ErrInvalidRange)
	}
	return model.DateRange{Start: start, End: end}, nil
}
