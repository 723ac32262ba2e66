package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyticsSummary_TotalValueIsNumber(t *testing.T) {
	summary := AnalyticsSummary{
		TotalParts:   42,
		TotalValue:   decimal.RequireFromString("42000.50"),
		LowStock:     3,
		Backorders:   1,
		TurnoverRate: 3.2,
		AccuracyRate: 98.5,
	}

	body, err := json.Marshal(summary)
	require.NoError(t, err)
	assert.JSONEq(t, `{"total_parts": 42, "total_value": 42000.5, "low_stock": 3, "backorders": 1, "turnover_rate": 3.2, "accuracy_rate": 98.5}`, string(body))

	var decoded AnalyticsSummary
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.True(t, summary.TotalValue.Equal(decoded.TotalValue))
}

func TestAnalyticsSummary_LeavesOtherDecimalsQuoted(t *testing.T) {
	body, err := json.Marshal(struct {
		Amount decimal.Decimal `json:"amount"`
	}{Amount: decimal.NewFromInt(7)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount": "7"}`, string(body))
}

func TestParseResource(t *testing.T) {
	resource, err := ParseResource("orders")
	require.NoError(t, err)
	assert.Equal(t, ResourceOrders, resource)

	_, err = ParseResource("suppliers")
	assert.Error(t, err)
}
