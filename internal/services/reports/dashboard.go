package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"supplies-pos/internal/database/models"
	"supplies-pos/internal/format"
)

const SeriesDays = 7

type DailyPoint struct {
	Date    string          `json:"date"`
	Label   string          `json:"label"`
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int             `json:"orders"`
}

type Dashboard struct {
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalOrders   int64           `json:"total_orders"`
	LowStockCount int64           `json:"low_stock_count"`
	Daily         []DailyPoint    `json:"daily"`
}

// DailySeries buckets orders into the SeriesDays calendar days ending on
// now's day in loc, oldest first. Days without orders stay at zero.
func DailySeries(orders []models.Order, now time.Time, loc *time.Location) []DailyPoint {
	today := startOfDay(now, loc)
	points := make([]DailyPoint, SeriesDays)
	index := make(map[string]int, SeriesDays)
	for i := 0; i < SeriesDays; i++ {
		day := today.AddDate(0, 0, i-(SeriesDays-1))
		key := format.Day(day, loc)
		points[i] = DailyPoint{
			Date:    key,
			Label:   day.Format("Mon"),
			Revenue: decimal.Zero,
		}
		index[key] = i
	}

	for _, o := range orders {
		i, ok := index[format.Day(o.CreatedAt, loc)]
		if !ok {
			continue
		}
		points[i].Revenue = points[i].Revenue.Add(o.Total)
		points[i].Orders++
	}
	return points
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

type Service struct {
	db                *gorm.DB
	loc               *time.Location
	lowStockThreshold int
	now               func() time.Time
}

func NewService(db *gorm.DB, loc *time.Location, lowStockThreshold int) *Service {
	if loc == nil {
		loc = format.Location("")
	}
	return &Service{
		db:                db,
		loc:               loc,
		lowStockThreshold: lowStockThreshold,
		now:               time.Now,
	}
}

func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	var totals struct {
		Revenue decimal.Decimal
		Orders  int64
	}
	if err := s.db.WithContext(ctx).Model(&models.Order{}).
		Select("COALESCE(SUM(total), 0) AS revenue, COUNT(*) AS orders").
		Scan(&totals).Error; err != nil {
		return nil, fmt.Errorf("order totals: %w", err)
	}

	var lowStock int64
	if err := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("stock < ?", s.lowStockThreshold).
		Count(&lowStock).Error; err != nil {
		return nil, fmt.Errorf("low stock count: %w", err)
	}

	now := s.now()
	from := startOfDay(now, s.loc).AddDate(0, 0, -(SeriesDays - 1))
	var recent []models.Order
	if err := s.db.WithContext(ctx).
		Select("total", "created_at").
		Where("created_at >= ?", from.UTC()).
		Find(&recent).Error; err != nil {
		return nil, fmt.Errorf("recent orders: %w", err)
	}

	return &Dashboard{
		TotalRevenue:  totals.Revenue,
		TotalOrders:   totals.Orders,
		LowStockCount: lowStock,
		Daily:         DailySeries(recent, now, s.loc),
	}, nil
}
