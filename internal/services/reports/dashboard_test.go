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
	"supplies-pos/internal/format"
)

var manila = format.Location("Asia/Manila")

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, manila)
}

func order(total int64, created time.Time) models.Order {
	return models.Order{
		CashierID:     "cashier-1",
		Total:         decimal.NewFromInt(total),
		PaymentMethod: models.PaymentCash,
		CreatedAt:     created.UTC(),
	}
}

func TestDailySeries_TodayAndSixDaysAgo(t *testing.T) {
	now := at(2026, time.October, 18, 10, 0)
	orders := []models.Order{
		order(100, at(2026, time.October, 18, 9, 0)),
		order(50, at(2026, time.October, 12, 15, 0)),
	}

	points := DailySeries(orders, now, manila)
	require.Len(t, points, 7)

	assert.Equal(t, "2026-10-12", points[0].Date)
	assert.Equal(t, "Mon", points[0].Label)
	assert.Equal(t, "2026-10-18", points[6].Date)
	assert.Equal(t, "Sun", points[6].Label)

	for i, p := range points {
		switch i {
		case 0:
			assert.Equal(t, "50", p.Revenue.String())
			assert.Equal(t, 1, p.Orders)
		case 6:
			assert.Equal(t, "100", p.Revenue.String())
			assert.Equal(t, 1, p.Orders)
		default:
			assert.True(t, p.Revenue.IsZero(), "day %s", p.Date)
			assert.Zero(t, p.Orders)
		}
	}
}

func TestDailySeries_BucketsInStoreTimezone(t *testing.T) {
	now := at(2026, time.October, 18, 10, 0)
	orders := []models.Order{
		// 23:30 UTC on the 17th is 07:30 on the 18th in Manila
		order(30, time.Date(2026, time.October, 17, 23, 30, 0, 0, time.UTC)),
		// a week old, outside the window
		order(70, at(2026, time.October, 11, 12, 0)),
	}

	points := DailySeries(orders, now, manila)
	assert.Equal(t, "30", points[6].Revenue.String())
	assert.True(t, points[5].Revenue.IsZero())
	total := decimal.Zero
	for _, p := range points {
		total = total.Add(p.Revenue)
	}
	assert.Equal(t, "30", total.String())
}

func TestService_Dashboard(t *testing.T) {
	db := dbtest.InitTestDB(t)
	svc := NewService(db, manila, 10)
	svc.now = func() time.Time { return at(2026, time.October, 18, 10, 0) }

	for _, o := range []models.Order{
		order(100, at(2026, time.October, 18, 9, 0)),
		order(50, at(2026, time.October, 12, 15, 0)),
		order(25, at(2026, time.September, 1, 8, 0)),
	} {
		o := o
		require.NoError(t, db.Create(&o).Error)
	}
	require.NoError(t, db.Create(&models.Product{Name: "Glue", Category: "Art", Price: decimal.NewFromInt(30), Stock: 3}).Error)
	require.NoError(t, db.Create(&models.Product{Name: "Pencil", Category: "Writing", Price: decimal.NewFromInt(8), Stock: 40}).Error)
	require.NoError(t, db.Create(&models.Product{Name: "Folder", Category: "Paper", Price: decimal.NewFromInt(12), Stock: 10}).Error)

	dash, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	assert.True(t, dash.TotalRevenue.Equal(decimal.NewFromInt(175)), dash.TotalRevenue.String())
	assert.Equal(t, int64(3), dash.TotalOrders)
	assert.Equal(t, int64(1), dash.LowStockCount)
	require.Len(t, dash.Daily, 7)
	assert.True(t, dash.Daily[0].Revenue.Equal(decimal.NewFromInt(50)))
	assert.True(t, dash.Daily[6].Revenue.Equal(decimal.NewFromInt(100)))
}

func TestService_DashboardEmpty(t *testing.T) {
	db := dbtest.InitTestDB(t)
	svc := NewService(db, manila, 10)

	dash, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.True(t, dash.TotalRevenue.IsZero())
	assert.Zero(t, dash.TotalOrders)
	assert.Len(t, dash.Daily, 7)
}
