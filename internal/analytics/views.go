package analytics

import (
	"sort"
	"strings"
	"time"

	"inventory-dashboard/internal/models"

	"github.com/shopspring/decimal"
)

// forecastGrowth is applied to current demand to project the next period
var forecastGrowth = decimal.NewFromFloat(1.1)

// dateLayouts are tried in order when reading order dates
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006",
}

// CategoryPoint is one bar of the supply/demand chart
type CategoryPoint struct {
	Category  string `json:"category"`
	Supply    int    `json:"supply"`
	Demand    int    `json:"demand"`
	Backorder int    `json:"backorder"`
	Forecast  int    `json:"forecast"`
}

// DailyOrdersPoint counts orders placed on one date
type DailyOrdersPoint struct {
	Date      string `json:"date"`
	Orders    int    `json:"orders"`
	Completed int    `json:"completed"`
	Pending   int    `json:"pending"`
}

// TrendPoint is one month of the inventory trend
type TrendPoint struct {
	Month           string  `json:"month"`
	Label           string  `json:"label"`
	Inventory       int     `json:"inventory"`
	OrderedQuantity int     `json:"orderedQuantity"`
	Turnover        float64 `json:"turnover"`
	ReorderPoint    float64 `json:"reorderPoint"`
}

// ParseDate reads an order date in any of the formats the backend emits
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CategoryBreakdown groups supply by category and joins orders to categories by part number.
// Orders for unknown parts are ignored. Categories keep first-appearance order.
func CategoryBreakdown(inventory []models.InventoryItem, orders []models.Order) []CategoryPoint {
	points := make([]CategoryPoint, 0)
	index := make(map[string]int)
	categoryOf := make(map[string]string, len(inventory))

	for _, item := range inventory {
		i, ok := index[item.Category]
		if !ok {
			i = len(points)
			index[item.Category] = i
			points = append(points, CategoryPoint{Category: item.Category})
		}
		points[i].Supply += item.InStock

		if _, seen := categoryOf[item.PartNumber]; !seen {
			categoryOf[item.PartNumber] = item.Category
		}
	}

	for _, order := range orders {
		category, ok := categoryOf[order.PartNumber]
		if !ok {
			continue
		}
		p := &points[index[category]]
		p.Demand += order.Quantity
		if order.Status == models.OrderStatusPending {
			p.Backorder += order.Quantity
		}
	}

	for i := range points {
		points[i].Forecast = int(decimal.NewFromInt(int64(points[i].Demand)).
			Mul(forecastGrowth).
			Round(0).
			IntPart())
	}

	return points
}

// DailyOrders counts orders per order date, oldest first.
// Dates that cannot be parsed sort after all others.
func DailyOrders(orders []models.Order) []DailyOrdersPoint {
	points := make([]DailyOrdersPoint, 0)
	index := make(map[string]int)

	for _, order := range orders {
		i, ok := index[order.OrderDate]
		if !ok {
			i = len(points)
			index[order.OrderDate] = i
			points = append(points, DailyOrdersPoint{Date: order.OrderDate})
		}

		points[i].Orders++
		switch order.Status {
		case models.OrderStatusCompleted:
			points[i].Completed++
		case models.OrderStatusPending:
			points[i].Pending++
		}
	}

	sort.SliceStable(points, func(a, b int) bool {
		return dateBefore(points[a].Date, points[b].Date)
	})
	return points
}

// MonthlyTrend sums ordered quantity per calendar month and relates it to current stock.
// Orders without a readable date are skipped.
func MonthlyTrend(inventory []models.InventoryItem, orders []models.Order) []TrendPoint {
	totalInventory, totalMinRequired := 0, 0
	for _, item := range inventory {
		totalInventory += item.InStock
		totalMinRequired += item.MinRequired
	}

	reorderPoint := 0.0
	if len(inventory) > 0 {
		reorderPoint = float64(totalMinRequired) / float64(len(inventory))
	}

	type month struct {
		start    time.Time
		quantity int
	}
	months := make(map[string]*month)

	for _, order := range orders {
		t, ok := ParseDate(order.OrderDate)
		if !ok {
			continue
		}
		key := t.Format("2006-01")
		m, ok := months[key]
		if !ok {
			m = &month{start: time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)}
			months[key] = m
		}
		m.quantity += order.Quantity
	}

	points := make([]TrendPoint, 0, len(months))
	for key, m := range months {
		turnover := 0.0
		if totalInventory > 0 {
			turnover = decimal.NewFromInt(int64(m.quantity)).
				Div(decimal.NewFromInt(int64(totalInventory))).
				Round(2).
				InexactFloat64()
		}

		points = append(points, TrendPoint{
			Month:           key,
			Label:           m.start.Format("Jan"),
			Inventory:       totalInventory,
			OrderedQuantity: m.quantity,
			Turnover:        turnover,
			ReorderPoint:    reorderPoint,
		})
	}

	sort.Slice(points, func(a, b int) bool { return points[a].Month < points[b].Month })
	return points
}

// LowStock returns items at or below their minimum
func LowStock(inventory []models.InventoryItem) []models.InventoryItem {
	low := make([]models.InventoryItem, 0)
	for _, item := range inventory {
		if item.InStock <= item.MinRequired {
			low = append(low, item)
		}
	}
	return low
}

func dateBefore(a, b string) bool {
	ta, okA := ParseDate(a)
	tb, okB := ParseDate(b)
	switch {
	case okA && okB:
		return ta.Before(tb)
	case okA:
		return true
	default:
		return false
	}
}
