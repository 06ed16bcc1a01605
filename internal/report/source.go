package report

import (
	"context"
	"fmt"
	"time"

	"github.com/five82/pase/internal/comanda"
)

// DayFetcher lists every order of a business day.
type DayFetcher interface {
	FetchDay(ctx context.Context, day string) ([]comanda.Order, error)
}

// Source builds reports for the current business day from the backend.
type Source struct {
	API DayFetcher
	Day func() string
	Now func() time.Time
	// Dir is where exported workbooks are written.
	Dir string
}

// Generate fetches the day's orders and summarizes those matching f.
func (s Source) Generate(ctx context.Context, f Filter) (Report, error) {
	day := time.Now().Format(time.DateOnly)
	if s.Day != nil {
		day = s.Day()
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	orders, err := s.API.FetchDay(ctx, day)
	if err != nil {
		return Report{}, fmt.Errorf("fetch day %s: %w", day, err)
	}
	return Build(day, orders, f, now()), nil
}

// Export writes r to the configured directory.
func (s Source) Export(r Report) (string, error) {
	return ExportFile(s.Dir, r)
}
