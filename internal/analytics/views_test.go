package analytics

import (
	"testing"

	"inventory-dashboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureInventory() []models.InventoryItem {
	return []models.InventoryItem{
		{ID: 1, PartNumber: "LG-1", Name: "Brake Pad", Category: "Landing Gear", InStock: 10, MinRequired: 5},
		{ID: 2, PartNumber: "AV-1", Name: "Altimeter", Category: "Avionics", InStock: 2, MinRequired: 4},
		{ID: 3, PartNumber: "LG-2", Name: "Strut Seal", Category: "Landing Gear", InStock: 6, MinRequired: 6},
	}
}

func fixtureOrders() []models.Order {
	return []models.Order{
		{ID: 1, PartNumber: "LG-1", Quantity: 4, Status: "Pending", OrderDate: "2024-03-02"},
		{ID: 2, PartNumber: "AV-1", Quantity: 3, Status: "Completed", OrderDate: "2024-02-15"},
		{ID: 3, PartNumber: "LG-2", Quantity: 1, Status: "Completed", OrderDate: "2024-03-02"},
		{ID: 4, PartNumber: "XX-9", Quantity: 50, Status: "Pending", OrderDate: "2024-01-20"},
		{ID: 5, PartNumber: "AV-1", Quantity: 2, Status: "Shipped", OrderDate: "2023-12-31"},
	}
}

func TestCategoryBreakdown(t *testing.T) {
	points := CategoryBreakdown(fixtureInventory(), fixtureOrders())

	require.Len(t, points, 2)
	assert.Equal(t, CategoryPoint{Category: "Landing Gear", Supply: 16, Demand: 5, Backorder: 4, Forecast: 6}, points[0])
	assert.Equal(t, CategoryPoint{Category: "Avionics", Supply: 2, Demand: 5, Backorder: 0, Forecast: 6}, points[1])
}

func TestCategoryBreakdown_Empty(t *testing.T) {
	points := CategoryBreakdown(nil, fixtureOrders())

	assert.NotNil(t, points)
	assert.Empty(t, points)
}

func TestCategoryBreakdown_ForecastRounding(t *testing.T) {
	inventory := []models.InventoryItem{{PartNumber: "P", Category: "C"}}
	testCases := map[int]int{
		0:  0,
		5:  6,
		10: 11,
		15: 17,
		7:  8,
	}

	for demand, want := range testCases {
		orders := []models.Order{{PartNumber: "P", Quantity: demand, Status: "Completed"}}

		points := CategoryBreakdown(inventory, orders)

		require.Len(t, points, 1)
		assert.Equal(t, want, points[0].Forecast, "demand %d", demand)
	}
}

func TestDailyOrders(t *testing.T) {
	points := DailyOrders(fixtureOrders())

	require.Len(t, points, 4)
	assert.Equal(t, []string{"2023-12-31", "2024-01-20", "2024-02-15", "2024-03-02"}, []string{
		points[0].Date, points[1].Date, points[2].Date, points[3].Date,
	})
	assert.Equal(t, DailyOrdersPoint{Date: "2024-03-02", Orders: 2, Completed: 1, Pending: 1}, points[3])
	assert.Equal(t, DailyOrdersPoint{Date: "2023-12-31", Orders: 1}, points[0])
}

func TestDailyOrders_UnparseableDatesLast(t *testing.T) {
	orders := []models.Order{
		{OrderDate: "soon", Status: "Pending"},
		{OrderDate: "03/01/2024", Status: "Completed"},
		{OrderDate: "2024-02-01T08:30:00", Status: "Completed"},
	}

	points := DailyOrders(orders)

	require.Len(t, points, 3)
	assert.Equal(t, "2024-02-01T08:30:00", points[0].Date)
	assert.Equal(t, "03/01/2024", points[1].Date)
	assert.Equal(t, "soon", points[2].Date)
}

func TestMonthlyTrend(t *testing.T) {
	points := MonthlyTrend(fixtureInventory(), fixtureOrders())

	require.Len(t, points, 4)
	assert.Equal(t, "2023-12", points[0].Month)
	assert.Equal(t, "Dec", points[0].Label)
	assert.Equal(t, "2024-03", points[3].Month)
	assert.Equal(t, "Mar", points[3].Label)

	march := points[3]
	assert.Equal(t, 18, march.Inventory)
	assert.Equal(t, 5, march.OrderedQuantity)
	assert.Equal(t, 0.28, march.Turnover)
	assert.Equal(t, 5.0, march.ReorderPoint)

	january := points[1]
	assert.Equal(t, 50, january.OrderedQuantity)
	assert.Equal(t, 2.78, january.Turnover)
}

func TestMonthlyTrend_NoInventory(t *testing.T) {
	points := MonthlyTrend(nil, []models.Order{{Quantity: 3, OrderDate: "2024-05-01"}})

	require.Len(t, points, 1)
	assert.Zero(t, points[0].Turnover)
	assert.Zero(t, points[0].ReorderPoint)
}

func TestMonthlyTrend_SkipsUnreadableDates(t *testing.T) {
	points := MonthlyTrend(fixtureInventory(), []models.Order{{Quantity: 3, OrderDate: ""}})

	assert.NotNil(t, points)
	assert.Empty(t, points)
}

func TestLowStock(t *testing.T) {
	low := LowStock(fixtureInventory())

	require.Len(t, low, 2)
	assert.Equal(t, "AV-1", low[0].PartNumber)
	assert.Equal(t, "LG-2", low[1].PartNumber)

	assert.Empty(t, LowStock(nil))
}

func TestParseDate(t *testing.T) {
	for _, value := range []string{"2024-03-01", "2024-03-01T10:00:00Z", "2024-03-01T10:00:00", "2024-03-01 10:00:00", "03/01/2024"} {
		parsed, ok := ParseDate(value)

		require.True(t, ok, value)
		assert.Equal(t, 2024, parsed.Year(), value)
		assert.Equal(t, 3, int(parsed.Month()), value)
		assert.Equal(t, 1, parsed.Day(), value)
	}

	_, ok := ParseDate("yesterday")
	assert.False(t, ok)
}
