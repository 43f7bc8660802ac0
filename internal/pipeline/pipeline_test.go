package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/datacharts-go/internal/chart"
	"github.com/user/datacharts-go/internal/dataset"
	"github.com/user/datacharts-go/internal/metrics"
	"github.com/user/datacharts-go/internal/models"
	"github.com/user/datacharts-go/internal/sink"
)

type fixture struct {
	dataDir   string
	staticDir string
	runner    *Runner
	metrics   *metrics.Metrics
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newFixture(t *testing.T, naming sink.Naming, windRows int) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		dataDir:   filepath.Join(root, "data"),
		staticDir: filepath.Join(root, "static"),
		metrics:   metrics.New(),
	}
	require.NoError(t, os.MkdirAll(f.dataDir, 0755))

	loader := dataset.NewLoader(
		dataset.Source{ID: dataset.Electricity, Path: filepath.Join(f.dataDir, "electricity.csv")},
		dataset.Source{ID: dataset.Railway, Path: filepath.Join(f.dataDir, "railway.csv")},
		dataset.Source{ID: dataset.Health, Path: filepath.Join(f.dataDir, "health.csv")},
		dataset.Source{ID: dataset.Wind, Path: filepath.Join(f.dataDir, "wind.csv"), Window: dataset.Window{Rows: windRows}},
	)
	f.runner = New(loader, sink.New(f.staticDir, naming), Options{Seed: 42, Metrics: f.metrics})
	return f
}

func (f *fixture) writeEnergy(t *testing.T) {
	writeFile(t, filepath.Join(f.dataDir, "electricity.csv"),
		"state,coal_cap,diesel_cap,nuclear_cap,gas_cap,lignite_cap,hydro_cap,res_cap\n"+
			"A,10,0,0,5,0,0,0\n"+
			"B,20,0,0,5,0,0,0\n")
}

func (f *fixture) writeRailway(t *testing.T) {
	var b strings.Builder
	b.WriteString("Train No,Station Code,Distance \n")
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "%d,ST%02d,%d\n", i, i%25, i*13)
	}
	writeFile(t, filepath.Join(f.dataDir, "railway.csv"), b.String())
}

func (f *fixture) writeHealth(t *testing.T) {
	var b strings.Builder
	b.WriteString("Date_reported,Country_code,Country,WHO_region,New_cases,Cumulative_cases,New_deaths,Cumulative_deaths\n")
	for i := 0; i < 300; i++ {
		fmt.Fprintf(&b, "2020-%02d-%02d,C%d,Country %d,EURO,%d,%d,0,0\n", i%12+1, i%28+1, i%9, i%9, i, i*5)
	}
	writeFile(t, filepath.Join(f.dataDir, "health.csv"), b.String())
}

func (f *fixture) writeWind(t *testing.T, rows int, tail string) {
	var b strings.Builder
	b.WriteString("time,lat,lon, uwnd\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&b, "%d,10,20,%.2f\n", i, float64(i%17)-8)
	}
	b.WriteString(tail)
	writeFile(t, filepath.Join(f.dataDir, "wind.csv"), b.String())
}

func staticFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func factValue(page models.PageData, label string) string {
	for _, f := range page.Facts {
		if f.Label == label {
			return f.Value
		}
	}
	return ""
}

func TestEnergyEndToEnd(t *testing.T) {
	f := newFixture(t, sink.NamingFixed, 0)
	f.writeEnergy(t)

	page, err := f.runner.Run(context.Background(), dataset.Electricity)
	require.NoError(t, err)

	assert.Equal(t, "energy-data", page.Name)
	assert.Equal(t, "30", factValue(page, "coal_cap"))
	assert.Equal(t, "10", factValue(page, "gas_cap"))
	assert.Equal(t, "40", factValue(page, "total"))

	require.Len(t, page.Charts, 2)
	assert.Equal(t, "energy_pie_chart.png", page.Charts[0].Filename)
	assert.Equal(t, "energy_bar_chart.png", page.Charts[1].Filename)
	assert.ElementsMatch(t, []string{"energy_pie_chart.png", "energy_bar_chart.png"}, staticFiles(t, f.staticDir))
	for _, c := range page.Charts {
		assert.FileExists(t, c.Path)
	}
}

func TestRailwayPipeline(t *testing.T) {
	f := newFixture(t, sink.NamingContent, 0)
	f.writeRailway(t)

	page, err := f.runner.Run(context.Background(), dataset.Railway)
	require.NoError(t, err)

	require.Len(t, page.Charts, 3)
	assert.Equal(t, "railway_chart", page.Charts[0].Purpose)
	assert.Equal(t, "railway_distance_hist", page.Charts[1].Purpose)
	assert.Equal(t, "railway_trips_chart", page.Charts[2].Purpose)
	assert.Equal(t, "25", factValue(page, "stations charted"))
	assert.Equal(t, "40", factValue(page, "distances recorded"))
	assert.Equal(t, "ST14 (507 km)", factValue(page, "longest distance"))
}

func TestHealthPipeline(t *testing.T) {
	f := newFixture(t, sink.NamingContent, 0)
	f.writeHealth(t)

	page, err := f.runner.Run(context.Background(), dataset.Health)
	require.NoError(t, err)

	require.Len(t, page.Charts, 2)
	assert.Equal(t, "100", factValue(page, "bar sample rows"))
	assert.Equal(t, "50", factValue(page, "line sample rows"))
	assert.NotEmpty(t, factValue(page, "most new cases in sample"))

	again, err := f.runner.Run(context.Background(), dataset.Health)
	require.NoError(t, err)
	assert.Equal(t, page.Facts, again.Facts)
}

func TestWindPipelineIgnoresRowsPastWindow(t *testing.T) {
	f := newFixture(t, sink.NamingContent, 200)
	// a row past the window that would break parsing if it were read
	f.writeWind(t, 200, "200,10,20,\"unterminated\n")

	page, err := f.runner.Run(context.Background(), dataset.Wind)
	require.NoError(t, err)

	require.Len(t, page.Charts, 2)
	assert.Equal(t, "wind_chart", page.Charts[0].Purpose)
	assert.Equal(t, "wind_boxplot", page.Charts[1].Purpose)
	assert.Equal(t, "200", factValue(page, "rows read"))
	assert.Equal(t, "first 200 rows", factValue(page, "window"))
}

func TestWindWindowChangesOutput(t *testing.T) {
	f := newFixture(t, sink.NamingContent, 50)
	f.writeWind(t, 50, "")
	small, err := f.runner.Run(context.Background(), dataset.Wind)
	require.NoError(t, err)

	// appending rows after the window leaves the charts byte-identical
	f.writeWind(t, 50, "50,10,20,900\n51,10,20,-900\n")
	same, err := f.runner.Run(context.Background(), dataset.Wind)
	require.NoError(t, err)

	assert.Equal(t, small.Charts[0].Filename, same.Charts[0].Filename)
	assert.Equal(t, small.Charts[1].Filename, same.Charts[1].Filename)
}

func TestLoadFailureWritesNothing(t *testing.T) {
	f := newFixture(t, sink.NamingFixed, 0)

	for _, id := range dataset.All {
		_, err := f.runner.Run(context.Background(), id)
		assert.True(t, errors.Is(err, dataset.ErrNotFound), "%s: %v", id, err)
	}
	assert.Empty(t, staticFiles(t, f.staticDir))
}

func TestTransformFailureWritesNothing(t *testing.T) {
	f := newFixture(t, sink.NamingFixed, 0)
	writeFile(t, filepath.Join(f.dataDir, "electricity.csv"), "state,coal_cap\nA,1\n")

	_, err := f.runner.Run(context.Background(), dataset.Electricity)
	require.Error(t, err)
	assert.Empty(t, staticFiles(t, f.staticDir))
}

func TestUnknownDataset(t *testing.T) {
	f := newFixture(t, sink.NamingFixed, 0)
	_, err := f.runner.Run(context.Background(), dataset.ID("study"))
	assert.True(t, errors.Is(err, dataset.ErrUnknownDataset))
}

func TestRunCanceled(t *testing.T) {
	f := newFixture(t, sink.NamingFixed, 0)
	f.writeEnergy(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.runner.Run(ctx, dataset.Electricity)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, staticFiles(t, f.staticDir))
}

func TestRunAll(t *testing.T) {
	f := newFixture(t, sink.NamingContent, 100)
	f.writeEnergy(t)
	f.writeWind(t, 100, "")

	results := f.runner.RunAll(context.Background())
	require.Len(t, results, 4)

	byID := map[dataset.ID]Result{}
	for _, r := range results {
		byID[r.Dataset] = r
	}
	assert.NoError(t, byID[dataset.Electricity].Err)
	assert.NoError(t, byID[dataset.Wind].Err)
	assert.Error(t, byID[dataset.Railway].Err)
	assert.Error(t, byID[dataset.Health].Err)
	assert.Len(t, staticFiles(t, f.staticDir), 4)
}

func TestHealthPipelineWithBOM(t *testing.T) {
	f := newFixture(t, sink.NamingContent, 0)
	var b strings.Builder
	b.WriteString("\ufeffDate_reported,Country_code,Country,WHO_region,New_cases,Cumulative_cases\n")
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, "2020-01-%02d,AF,Afghanistan,EMRO,%d,%d\n", i+1, i, i*3)
	}
	writeFile(t, filepath.Join(f.dataDir, "health.csv"), b.String())

	page, err := f.runner.Run(context.Background(), dataset.Health)
	require.NoError(t, err)
	assert.Len(t, page.Charts, 2)
	assert.Equal(t, "20", factValue(page, "bar sample rows"))
}

func TestRailwayPipelineShortRow(t *testing.T) {
	f := newFixture(t, sink.NamingContent, 0)
	writeFile(t, filepath.Join(f.dataDir, "railway.csv"),
		"Train No,Station Code,Distance\n1,NDLS,0\n1,CNB\n2,HWH,1450\n")

	page, err := f.runner.Run(context.Background(), dataset.Railway)
	require.NoError(t, err)
	assert.Equal(t, "2", factValue(page, "stations charted"))
	assert.Equal(t, "HWH (1,450 km)", factValue(page, "longest distance"))
}

func TestRenderKeepsEarlierChartsOnFailure(t *testing.T) {
	f := newFixture(t, sink.NamingFixed, 0)
	caps := []models.SourceCapacity{{Source: "coal_cap", Capacity: 30}, {Source: "gas_cap", Capacity: 10}}

	arts, err := f.runner.render(context.Background(), dataset.Electricity,
		func() (*chart.Figure, error) { return chart.EnergyBar(caps) },
		func() (*chart.Figure, error) { return chart.EnergyPie(nil) },
		func() (*chart.Figure, error) { return chart.EnergyPie(caps) },
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, chart.ErrNoData), "got %v", err)

	require.Len(t, arts, 1)
	assert.FileExists(t, filepath.Join(f.staticDir, "energy_bar_chart.png"))
	assert.NoFileExists(t, filepath.Join(f.staticDir, "energy_pie_chart.png"))
	assert.Equal(t, []string{"energy_bar_chart.png"}, staticFiles(t, f.staticDir))
}
