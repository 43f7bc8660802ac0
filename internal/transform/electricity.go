package transform

import (
	"math"

	"github.com/go-gota/gota/dataframe"

	"github.com/user/datacharts-go/internal/models"
)

// CapacityColumns are the per-source installed capacity columns, in chart order.
var CapacityColumns = []string{"coal_cap", "diesel_cap", "nuclear_cap", "gas_cap", "lignite_cap", "hydro_cap", "res_cap"}

// Electricity sums each capacity column across all states. Cells that are
// not numbers are skipped.
func Electricity(df dataframe.DataFrame) ([]models.SourceCapacity, error) {
	df = trimNames(df)
	if err := requireColumns(df, CapacityColumns...); err != nil {
		return nil, err
	}
	df = df.Select(CapacityColumns)
	if err := frameErr(df, "select capacity columns"); err != nil {
		return nil, err
	}

	out := make([]models.SourceCapacity, 0, len(CapacityColumns))
	for _, col := range CapacityColumns {
		var sum float64
		for _, r := range df.Col(col).Records() {
			if v := parseNumber(r); !math.IsNaN(v) {
				sum += v
			}
		}
		out = append(out, models.SourceCapacity{Source: col, Capacity: sum})
	}
	return out, nil
}

// TotalCapacity adds up the per-source values.
func TotalCapacity(caps []models.SourceCapacity) float64 {
	var total float64
	for _, c := range caps {
		total += c.Capacity
	}
	return total
}
