package parsers

import (
	"github.com/shopspring/decimal"

	"loan-report-dashboard/internal/models"
)

// AggregateNational synthesizes the national total from regional subtotals:
// amounts are summed and percentages averaged without weights. It returns nil
// when there are no regional rows.
func AggregateNational(fields []FieldSpec, regional []models.Entity) *models.Entity {
	if len(regional) == 0 {
		return nil
	}

	count := decimal.NewFromInt(int64(len(regional)))
	national := models.NewEntity("", "")

	for _, f := range fields {
		sum := decimal.Zero
		for _, r := range regional {
			sum = sum.Add(decimal.NewFromFloat(r.Value(f.Name)))
		}
		if f.Kind.IsPercent() {
			sum = sum.Div(count)
		}
		national.Values[f.Name] = sum.InexactFloat64()
	}
	return national
}
