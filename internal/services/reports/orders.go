package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"supplies-pos/internal/database/models"
)

var ErrInvalidRange = errors.New("invalid date range")

const dateLayout = "2006-01-02"

// Range is an inclusive span of calendar days in a store timezone.
type Range struct {
	Start time.Time
	End   time.Time
}

// ParseRange reads YYYY-MM-DD bounds. Missing bounds default to the first of
// the current month and today.
func ParseRange(start, end string, now time.Time, loc *time.Location) (Range, error) {
	today := startOfDay(now, loc)
	r := Range{
		Start: time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, loc),
		End:   today,
	}

	if start != "" {
		t, err := time.ParseInLocation(dateLayout, start, loc)
		if err != nil {
			return Range{}, fmt.Errorf("%w: start %q", ErrInvalidRange, start)
		}
		r.Start = t
	}
	if end != "" {
		t, err := time.ParseInLocation(dateLayout, end, loc)
		if err != nil {
			return Range{}, fmt.Errorf("%w: end %q", ErrInvalidRange, end)
		}
		r.End = t
	}
	if r.End.Before(r.Start) {
		return Range{}, fmt.Errorf("%w: end is before start", ErrInvalidRange)
	}
	return r, nil
}

// Bounds returns [start 00:00:00, end 23:59:59] in UTC.
func (r Range) Bounds() (time.Time, time.Time) {
	from := r.Start
	to := time.Date(r.End.Year(), r.End.Month(), r.End.Day(), 23, 59, 59, 0, r.End.Location())
	return from.UTC(), to.UTC()
}

func (r Range) StartLabel() string { return r.Start.Format(dateLayout) }
func (r Range) EndLabel() string   { return r.End.Format(dateLayout) }

// Filename is sales-report-<start>-<end>.<ext>.
func (r Range) Filename(ext string) string {
	return fmt.Sprintf("sales-report-%s-%s.%s", r.StartLabel(), r.EndLabel(), ext)
}

type OrderReport struct {
	Range   Range           `json:"-"`
	Start   string          `json:"start"`
	End     string          `json:"end"`
	Orders  []models.Order  `json:"orders"`
	Count   int             `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

// Orders lists orders in r, newest first.
func (s *Service) Orders(ctx context.Context, r Range) (*OrderReport, error) {
	from, to := r.Bounds()

	var orders []models.Order
	if err := s.db.WithContext(ctx).
		Where("created_at >= ? AND created_at <= ?", from, to).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	report := &OrderReport{
		Range:   r,
		Start:   r.StartLabel(),
		End:     r.EndLabel(),
		Orders:  orders,
		Count:   len(orders),
		Revenue: decimal.Zero,
	}
	for _, o := range orders {
		report.Revenue = report.Revenue.Add(o.Total)
	}
	return report, nil
}

// ParseRange resolves bounds against the service clock and timezone.
func (s *Service) ParseRange(start, end string) (Range, error) {
	return ParseRange(start, end, s.now(), s.loc)
}
