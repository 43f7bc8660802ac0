// Package transform turns loaded datasets into the derived tables the
// charts are drawn from.
package transform

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

var (
	ErrMissingColumn = errors.New("missing column")
	ErrNoRows        = errors.New("no usable rows")
)

// trimNames strips surrounding whitespace from every column name.
func trimNames(df dataframe.DataFrame) dataframe.DataFrame {
	for _, name := range df.Names() {
		if trimmed := strings.TrimSpace(name); trimmed != name {
			df = df.Rename(trimmed, name)
		}
	}
	return df
}

func requireColumns(df dataframe.DataFrame, cols ...string) error {
	have := make(map[string]bool, df.Ncol())
	for _, name := range df.Names() {
		have[name] = true
	}
	var missing []string
	for _, c := range cols {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// parseNumber coerces a cell to a float. Blank, unparsable and non-finite
// cells are NaN.
func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}

// numericColumn replaces col with a float column, coercing bad cells to NaN.
func numericColumn(df dataframe.DataFrame, col string) dataframe.DataFrame {
	records := df.Col(col).Records()
	values := make([]float64, len(records))
	for i, r := range records {
		values[i] = parseNumber(r)
	}
	return df.Mutate(series.New(values, series.Float, col))
}

// isBlank reports whether a text cell counts as missing.
func isBlank(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == "NaN" || s == "NA"
}

// keepRows returns the rows for which keep is true. ok is false when no row
// survives, since gota cannot represent a subset with zero rows.
func keepRows(df dataframe.DataFrame, keep func(i int) bool) (dataframe.DataFrame, bool) {
	idx := make([]int, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		if keep(i) {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return df, false
	}
	if len(idx) == df.Nrow() {
		return df, true
	}
	return df.Subset(idx), true
}

// head returns the first n rows.
func head(df dataframe.DataFrame, n int) dataframe.DataFrame {
	if df.Nrow() <= n {
		return df
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return df.Subset(idx)
}

// aggregateColumn finds the column gota produced for an aggregation of col.
func aggregateColumn(df dataframe.DataFrame, col string) (string, error) {
	for _, name := range df.Names() {
		if strings.HasPrefix(name, col+"_") {
			return name, nil
		}
	}
	return "", fmt.Errorf("aggregation of %s produced no column (have %v)", col, df.Names())
}

// frameErr surfaces a dataframe error.
func frameErr(df dataframe.DataFrame, op string) error {
	if df.Err != nil {
		return fmt.Errorf("%s: %w", op, df.Err)
	}
	return nil
}
