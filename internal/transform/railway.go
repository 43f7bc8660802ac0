package transform

import (
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"

	"github.com/user/datacharts-go/internal/models"
)

const (
	colStationCode = "Station Code"
	colDistance    = "Distance"

	TopStations = 100
	TopTrips    = 20
)

// Railway derives the three railway views: the stations with the largest
// maximum distance, every known distance, and the busiest stations by
// number of timetable rows.
func Railway(df dataframe.DataFrame) (models.RailwaySummary, error) {
	var out models.RailwaySummary

	df = trimNames(df)
	if err := requireColumns(df, colStationCode, colDistance); err != nil {
		return out, err
	}
	df = df.Select([]string{colStationCode, colDistance})
	if err := frameErr(df, "select railway columns"); err != nil {
		return out, err
	}

	codes := df.Col(colStationCode).Records()
	dists := df.Col(colDistance).Records()
	df, ok := keepRows(df, func(i int) bool {
		return !isBlank(codes[i]) && !isBlank(dists[i])
	})
	if !ok {
		return out, fmt.Errorf("railway: %w", ErrNoRows)
	}

	trips, err := stationTrips(df)
	if err != nil {
		return out, err
	}
	out.TopTrips = trips

	df = numericColumn(df, colDistance)
	values := df.Col(colDistance).Float()
	df, ok = keepRows(df, func(i int) bool { return !math.IsNaN(values[i]) })
	if !ok {
		return out, fmt.Errorf("railway: no numeric distances: %w", ErrNoRows)
	}
	out.Distances = df.Col(colDistance).Float()

	top, err := stationMaxDistance(df)
	if err != nil {
		return out, err
	}
	out.TopStations = top
	return out, nil
}

func stationMaxDistance(df dataframe.DataFrame) ([]models.StationDistance, error) {
	groups := df.GroupBy(colStationCode)
	if groups.Err != nil {
		return nil, fmt.Errorf("group by station: %w", groups.Err)
	}
	agg := groups.Aggregation([]dataframe.AggregationType{dataframe.Aggregation_MAX}, []string{colDistance})
	if err := frameErr(agg, "max distance per station"); err != nil {
		return nil, err
	}
	maxCol, err := aggregateColumn(agg, colDistance)
	if err != nil {
		return nil, err
	}

	agg = agg.Arrange(dataframe.RevSort(maxCol), dataframe.Sort(colStationCode))
	if err := frameErr(agg, "sort stations"); err != nil {
		return nil, err
	}
	agg = head(agg, TopStations)

	codes := agg.Col(colStationCode).Records()
	maxes := agg.Col(maxCol).Float()
	out := make([]models.StationDistance, len(codes))
	for i := range codes {
		out[i] = models.StationDistance{StationCode: codes[i], Distance: maxes[i]}
	}
	return out, nil
}

func stationTrips(df dataframe.DataFrame) ([]models.StationTrips, error) {
	groups := df.GroupBy(colStationCode)
	if groups.Err != nil {
		return nil, fmt.Errorf("group by station: %w", groups.Err)
	}
	agg := groups.Aggregation([]dataframe.AggregationType{dataframe.Aggregation_COUNT}, []string{colDistance})
	if err := frameErr(agg, "trips per station"); err != nil {
		return nil, err
	}
	countCol, err := aggregateColumn(agg, colDistance)
	if err != nil {
		return nil, err
	}

	agg = agg.Arrange(dataframe.RevSort(countCol), dataframe.Sort(colStationCode))
	if err := frameErr(agg, "sort trips"); err != nil {
		return nil, err
	}
	agg = head(agg, TopTrips)

	codes := agg.Col(colStationCode).Records()
	counts := agg.Col(countCol).Float()
	out := make([]models.StationTrips, len(codes))
	for i := range codes {
		out[i] = models.StationTrips{StationCode: codes[i], Trips: int(counts[i])}
	}
	return out, nil
}
