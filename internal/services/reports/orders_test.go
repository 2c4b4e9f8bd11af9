package reports

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplies-pos/internal/database/dbtest"
	"supplies-pos/internal/database/models"
)

func TestParseRange(t *testing.T) {
	now := at(2026, time.October, 18, 10, 0)

	t.Run("defaults to month to date", func(t *testing.T) {
		r, err := ParseRange("", "", now, manila)
		require.NoError(t, err)
		assert.Equal(t, "2026-10-01", r.StartLabel())
		assert.Equal(t, "2026-10-18", r.EndLabel())
		assert.Equal(t, "sales-report-2026-10-01-2026-10-18.pdf", r.Filename("pdf"))
	})

	t.Run("explicit bounds", func(t *testing.T) {
		r, err := ParseRange("2026-09-05", "2026-09-05", now, manila)
		require.NoError(t, err)
		from, to := r.Bounds()
		assert.Equal(t, time.Date(2026, time.September, 4, 16, 0, 0, 0, time.UTC), from)
		assert.Equal(t, time.Date(2026, time.September, 5, 15, 59, 59, 0, time.UTC), to)
	})

	t.Run("rejects garbage and inverted ranges", func(t *testing.T) {
		_, err := ParseRange("10/01/2026", "", now, manila)
		assert.ErrorIs(t, err, ErrInvalidRange)

		_, err = ParseRange("2026-10-10", "2026-10-01", now, manila)
		assert.ErrorIs(t, err, ErrInvalidRange)
	})
}

func TestService_OrdersInclusiveRange(t *testing.T) {
	db := dbtest.InitTestDB(t)
	svc := NewService(db, manila, 10)

	seed := []struct {
		total   int64
		created time.Time
	}{
		{10, time.Date(2026, time.September, 30, 15, 30, 0, 0, time.UTC)}, // Sep 30 23:30 local, out
		{20, time.Date(2026, time.September, 30, 16, 30, 0, 0, time.UTC)}, // Oct 1 00:30 local, in
		{30, time.Date(2026, time.October, 10, 4, 0, 0, 0, time.UTC)},
		{40, time.Date(2026, time.October, 18, 15, 59, 59, 0, time.UTC)}, // Oct 18 23:59:59 local, in
		{50, time.Date(2026, time.October, 18, 16, 0, 0, 0, time.UTC)},   // Oct 19 local, out
	}
	for _, s := range seed {
		o := order(s.total, s.created)
		require.NoError(t, db.Create(&o).Error)
	}

	r, err := ParseRange("2026-10-01", "2026-10-18", time.Now(), manila)
	require.NoError(t, err)

	report, err := svc.Orders(context.Background(), r)
	require.NoError(t, err)
	require.Equal(t, 3, report.Count)
	assert.True(t, report.Revenue.Equal(decimal.NewFromInt(90)))

	assert.True(t, report.Orders[0].Total.Equal(decimal.NewFromInt(40)))
	assert.True(t, report.Orders[1].Total.Equal(decimal.NewFromInt(30)))
	assert.True(t, report.Orders[2].Total.Equal(decimal.NewFromInt(20)))
}

func sampleReport(n int) *OrderReport {
	r, _ := ParseRange("2026-10-01", "2026-10-18", time.Now(), manila)
	report := &OrderReport{Range: r, Start: r.StartLabel(), End: r.EndLabel(), Revenue: decimal.Zero}
	for i := 0; i < n; i++ {
		o := models.Order{
			ID:            "a1b2c3d4-0000-0000-0000-00000000000" + string(rune('0'+i%10)),
			Total:         decimal.RequireFromString("120.50"),
			PaymentMethod: models.PaymentGCash,
			CreatedAt:     time.Date(2026, time.October, 17, 20, 30, 0, 0, time.UTC),
		}
		report.Orders = append(report.Orders, o)
		report.Revenue = report.Revenue.Add(o.Total)
	}
	report.Count = n
	return report
}
