package transform

import (
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"

	"github.com/user/datacharts-go/internal/models"
)

const (
	colDateReported    = "Date_reported"
	colCountry         = "Country"
	colNewCases        = "New_cases"
	colCumulativeCases = "Cumulative_cases"

	BarSampleSize  = 100
	LineSampleSize = 50
)

var dateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", "1/2/2006", "02/01/2006"}

// Health draws two samples from the WHO daily data with the same seed: one
// for new cases per country and one for cumulative cases over time. Each
// sample is drawn on its own; callers must not rely on how they overlap.
func Health(df dataframe.DataFrame, seed uint64) (models.HealthSummary, error) {
	var out models.HealthSummary

	df = trimNames(df)
	if err := requireColumns(df, colDateReported, colCountry, colNewCases, colCumulativeCases); err != nil {
		return out, err
	}

	out.BarSample = healthRecords(df, Sample(df.Nrow(), BarSampleSize, seed))
	out.LineSample = healthRecords(df, Sample(df.Nrow(), LineSampleSize, seed))
	sort.SliceStable(out.LineSample, func(i, j int) bool {
		return out.LineSample[i].DateReported.Before(out.LineSample[j].DateReported)
	})

	for i := range out.BarSample {
		r := &out.BarSample[i]
		if math.IsNaN(r.NewCases) {
			continue
		}
		if out.MaxNewCase == nil || r.NewCases > out.MaxNewCase.NewCases {
			out.MaxNewCase = r
		}
	}
	return out, nil
}

// Sample picks k distinct row indexes out of n using a generator seeded
// with seed. The result is in draw order. If k >= n every row is returned.
func Sample(n, k int, seed uint64) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	if k >= n {
		return perm
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	for i := 0; i < k; i++ {
		j := i + rng.IntN(n-i)
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm[:k]
}

func healthRecords(df dataframe.DataFrame, rows []int) []models.HealthRecord {
	if len(rows) == 0 {
		return nil
	}
	sub := df.Subset(rows)
	dates := sub.Col(colDateReported).Records()
	countries := sub.Col(colCountry).Records()
	newCases := sub.Col(colNewCases).Records()
	cumulative := sub.Col(colCumulativeCases).Records()

	out := make([]models.HealthRecord, len(rows))
	for i, row := range rows {
		out[i] = models.HealthRecord{
			Row:             row,
			DateReported:    parseDate(dates[i]),
			Country:         strings.TrimSpace(countries[i]),
			NewCases:        parseNumber(newCases[i]),
			CumulativeCases: parseNumber(cumulative[i]),
		}
	}
	return out
}

// parseDate returns the zero time for cells that match no known layout.
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
