package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"agrisupply/internal/models"
	"agrisupply/internal/util"
)

// Range selects the lower bound of a sales trend query.
type Range string

const (
	RangeToday Range = "today"
	RangeWeek  Range = "week"
	RangeMonth Range = "month"
	RangeAll   Range = "all"
)

// ParseRange validates a range string, defaulting empty input to "week".
func ParseRange(value string) (Range, error) {
	switch Range(value) {
	case RangeToday, RangeWeek, RangeMonth, RangeAll:
		return Range(value), nil
	case "":
		return RangeWeek, nil
	}
	return "", &ValidationError{Msg: fmt.Sprintf("unknown range %q", value)}
}

func sameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// TodaysTotal sums total_amount over sales dated the same calendar day as
// now. The boundary is the local calendar date, not a rolling 24h window.
func TodaysTotal(sales []models.Sale, now time.Time) int64 {
	var total int64
	for _, sale := range sales {
		if sameDay(sale.Date, now) {
			total += sale.TotalAmount
		}
	}
	return total
}

// LowStockItems returns the items at or below their reorder threshold; an
// item sitting exactly on its threshold counts as low.
func LowStockItems(items []models.Item) []models.Item {
	low := make([]models.Item, 0)
	for _, item := range items {
		if item.IsLowStock() {
			low = append(low, item)
		}
	}
	return low
}

// FilterByRange returns the sales within [lower bound, now]. A sale dated
// exactly on the lower bound is included; future-dated sales are excluded by
// every range except "all".
func FilterByRange(sales []models.Sale, rng Range, now time.Time) []models.Sale {
	if rng == RangeAll {
		return sales
	}

	var cutoff time.Time
	switch rng {
	case RangeWeek:
		cutoff = now.AddDate(0, 0, -7)
	case RangeMonth:
		cutoff = now.AddDate(0, -1, 0)
	}

	filtered := make([]models.Sale, 0, len(sales))
	for _, sale := range sales {
		if sale.Date.After(now) {
			continue
		}
		if rng == RangeToday {
			if sameDay(sale.Date, now) {
				filtered = append(filtered, sale)
			}
			continue
		}
		if !sale.Date.Before(cutoff) {
			filtered = append(filtered, sale)
		}
	}
	return filtered
}

// DayBucket is one point of the sales trend: a calendar day and the sum of
// that day's sales.
type DayBucket struct {
	Day   string `json:"day"`
	Total int64  `json:"total"`

	date time.Time
}

// BucketByDay groups sales by calendar day, sums total_amount per day, and
// orders the buckets chronologically.
func BucketByDay(sales []models.Sale) []DayBucket {
	byDay := make(map[string]*DayBucket)
	for _, sale := range sales {
		day := sale.Date.Local()
		key := day.Format("2006-01-02")
		if bucket, ok := byDay[key]; ok {
			bucket.Total += sale.TotalAmount
			continue
		}
		byDay[key] = &DayBucket{
			Day:   day.Format("Jan 2"),
			Total: sale.TotalAmount,
			date:  time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.Local),
		}
	}

	buckets := make([]DayBucket, 0, len(byDay))
	for _, bucket := range byDay {
		buckets = append(buckets, *bucket)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].date.Before(buckets[j].date)
	})
	return buckets
}

// Summary is the dashboard card data.
type Summary struct {
	TodaysTotal   int64         `json:"todays_total"`
	AllTimeTotal  int64         `json:"all_time_total"`
	ItemCount     int           `json:"item_count"`
	LowStockCount int           `json:"low_stock_count"`
	LowStockItems []models.Item `json:"low_stock_items"`
}

// Summarize computes the dashboard summary over in-memory collections.
func Summarize(items []models.Item, sales []models.Sale, now time.Time) Summary {
	var allTime int64
	for _, sale := range sales {
		allTime += sale.TotalAmount
	}

	low := LowStockItems(items)
	return Summary{
		TodaysTotal:   TodaysTotal(sales, now),
		AllTimeTotal:  allTime,
		ItemCount:     len(items),
		LowStockCount: len(low),
		LowStockItems: low,
	}
}

// ReportStore is the persistence surface the dashboard reads from.
type ReportStore interface {
	ListItems(ctx context.Context) ([]models.Item, error)
	ListSales(ctx context.Context) ([]models.Sale, error)
}

// ReportService builds dashboard views by fetching current state and running
// the pure aggregation helpers over it.
type ReportService struct {
	store ReportStore
}

// NewReportService creates a new report service
func NewReportService(store ReportStore) *ReportService {
	return &ReportService{store: store}
}

// DashboardSummary fetches items and sales and computes the summary cards
func (s *ReportService) DashboardSummary(ctx context.Context, now time.Time) (*Summary, error) {
	ctx, span := util.StartSpan(ctx, "ReportService.DashboardSummary")
	defer span.End()

	items, err := s.store.ListItems(ctx)
	if err != nil {
		util.ListFailuresTotal.WithLabelValues("items").Inc()
		return nil, &FetchFailedError{Entity: "items", Err: err}
	}

	sales, err := s.store.ListSales(ctx)
	if err != nil {
		util.ListFailuresTotal.WithLabelValues("sales").Inc()
		return nil, &FetchFailedError{Entity: "sales", Err: err}
	}

	summary := Summarize(items, sales, now)
	return &summary, nil
}

// SalesTrend fetches sales and buckets them by day within the given range
func (s *ReportService) SalesTrend(ctx context.Context, rng Range, now time.Time) ([]DayBucket, error) {
	ctx, span := util.StartSpan(ctx, "ReportService.SalesTrend")
	defer span.End()

	sales, err := s.store.ListSales(ctx)
	if err != nil {
		util.ListFailuresTotal.WithLabelValues("sales").Inc()
		return nil, &FetchFailedError{Entity: "sales", Err: err}
	}

	return BucketByDay(FilterByRange(sales, rng, now)), nil
}
