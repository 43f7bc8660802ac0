package transform

import (
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"

	"github.com/user/datacharts-go/internal/models"
)

// WindColumn is the zonal wind speed column.
const WindColumn = "uwnd"

// Wind extracts the numeric wind speeds from whatever rows the loader
// read. Cells that do not parse are dropped.
func Wind(df dataframe.DataFrame) (models.WindSummary, error) {
	out := models.WindSummary{Column: WindColumn, RowsRead: df.Nrow()}

	df = trimNames(df)
	if err := requireColumns(df, WindColumn); err != nil {
		return out, err
	}
	df = numericColumn(df, WindColumn)
	if err := frameErr(df, "coerce wind speed"); err != nil {
		return out, err
	}

	for _, v := range df.Col(WindColumn).Float() {
		if !math.IsNaN(v) {
			out.Values = append(out.Values, v)
		}
	}
	if len(out.Values) == 0 {
		return out, fmt.Errorf("wind: no numeric %s values: %w", WindColumn, ErrNoRows)
	}
	return out, nil
}
