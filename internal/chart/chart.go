// Package chart draws the derived tables with gonum/plot and encodes them
// as PNG.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/user/datacharts-go/internal/models"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("no data to plot")

// HistogramBins is the fixed bin count of every histogram.
const HistogramBins = 30

var (
	skyBlue = color.RGBA{R: 135, G: 206, B: 235, A: 255}
	navy    = color.RGBA{B: 128, A: 255}
	black   = color.RGBA{A: 255}

	// pieColors follows the usual tab10 palette.
	pieColors = []color.Color{
		color.RGBA{R: 31, G: 119, B: 180, A: 255},
		color.RGBA{R: 255, G: 127, B: 14, A: 255},
		color.RGBA{R: 44, G: 160, B: 44, A: 255},
		color.RGBA{R: 214, G: 39, B: 40, A: 255},
		color.RGBA{R: 148, G: 103, B: 189, A: 255},
		color.RGBA{R: 140, G: 86, B: 75, A: 255},
		color.RGBA{R: 227, G: 119, B: 194, A: 255},
	}
)

// Figure is a plot together with the size it is rendered at.
type Figure struct {
	Purpose string
	Title   string
	Plot    *plot.Plot
	Width   vg.Length
	Height  vg.Length
}

// PNG renders the figure.
func (f *Figure) PNG() ([]byte, error) {
	writer, err := f.Plot.WriterTo(f.Width, f.Height, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to create plot writer for %s: %w", f.Purpose, err)
	}

	var buf bytes.Buffer
	if _, err := writer.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write %s to buffer: %w", f.Purpose, err)
	}
	return buf.Bytes(), nil
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	return p
}

// rotateTicks turns the x tick labels vertical.
func rotateTicks(p *plot.Plot) {
	p.X.Tick.Label.Rotation = math.Pi / 2
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
}

// EnergyPie draws each source's share of total capacity. Sources with no
// capacity get no slice.
func EnergyPie(caps []models.SourceCapacity) (*Figure, error) {
	const title = "Energy Capacity Distributions"
	p := plot.New()
	p.Title.Text = title
	p.HideAxes()
	p.Legend.Top = true

	pie := newPie(caps)
	for i, label := range pie.labels {
		p.Legend.Add(label, sliceThumb{color: pie.colors[i]})
	}
	if len(pie.values) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, title)
	}
	p.Add(pie)

	return &Figure{Purpose: "energy_pie_chart", Title: title, Plot: p, Width: 6 * vg.Inch, Height: 6 * vg.Inch}, nil
}

// EnergyBar draws installed capacity per source.
func EnergyBar(caps []models.SourceCapacity) (*Figure, error) {
	const title = "Energy Capacity by Source"
	if len(caps) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, title)
	}
	p := newPlot(title, "Source", "Capacity (MW)")

	values := make(plotter.Values, len(caps))
	names := make([]string, len(caps))
	for i, c := range caps {
		values[i] = c.Capacity
		names[i] = c.Source
	}
	bars, err := plotter.NewBarChart(values, vg.Points(30))
	if err != nil {
		return nil, fmt.Errorf("failed to create bar chart for %s: %w", title, err)
	}
	bars.Color = skyBlue
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(names...)
	p.Add(plotter.NewGrid())

	return &Figure{Purpose: "energy_bar_chart", Title: title, Plot: p, Width: 10 * vg.Inch, Height: 6 * vg.Inch}, nil
}

// RailwayMaxDistance draws the maximum distance of each station in the
// given (already sorted) order.
func RailwayMaxDistance(stations []models.StationDistance) (*Figure, error) {
	title := fmt.Sprintf("Top %d Stations by Maximum Distance", len(stations))
	if len(stations) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, title)
	}
	p := newPlot(title, "Station Code", "Maximum Distance (km)")

	pts := make(plotter.XYs, len(stations))
	codes := make([]string, len(stations))
	for i, s := range stations {
		pts[i] = plotter.XY{X: float64(i), Y: s.Distance}
		codes[i] = s.StationCode
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("failed to create line for %s: %w", title, err)
	}
	line.Color = navy
	p.Add(line)
	p.NominalX(codes...)
	rotateTicks(p)

	return &Figure{Purpose: "railway_chart", Title: title, Plot: p, Width: 18 * vg.Inch, Height: 7 * vg.Inch}, nil
}

// DistanceHistogram bins every known distance.
func DistanceHistogram(distances []float64) (*Figure, error) {
	return histogram("railway_distance_hist", "Distribution of Station Distances", "Distance (km)", distances)
}

// StationTrips draws the busiest stations by timetable rows.
func StationTrips(trips []models.StationTrips) (*Figure, error) {
	title := fmt.Sprintf("Top %d Stations by Number of Trips", len(trips))
	if len(trips) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, title)
	}
	p := newPlot(title, "Station Code", "Trips")

	values := make(plotter.Values, len(trips))
	codes := make([]string, len(trips))
	for i, tr := range trips {
		values[i] = float64(tr.Trips)
		codes[i] = tr.StationCode
	}
	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return nil, fmt.Errorf("failed to create bar chart for %s: %w", title, err)
	}
	bars.Color = navy
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(codes...)
	rotateTicks(p)

	return &Figure{Purpose: "railway_trips_chart", Title: title, Plot: p, Width: 12 * vg.Inch, Height: 6 * vg.Inch}, nil
}

// HealthNewCases draws one bar per sampled row. Rows without a case count
// are left as gaps.
func HealthNewCases(rows []models.HealthRecord) (*Figure, error) {
	title := fmt.Sprintf("New Cases per Country (Random %d Rows Sample)", len(rows))
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, title)
	}
	p := newPlot(title, "Country", "New Cases")

	values := make(plotter.Values, len(rows))
	countries := make([]string, len(rows))
	for i, r := range rows {
		if !math.IsNaN(r.NewCases) {
			values[i] = r.NewCases
		}
		countries[i] = r.Country
	}
	bars, err := plotter.NewBarChart(values, vg.Points(8))
	if err != nil {
		return nil, fmt.Errorf("failed to create bar chart for %s: %w", title, err)
	}
	bars.Color = skyBlue
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(countries...)
	rotateTicks(p)

	return &Figure{Purpose: "health_chart", Title: title, Plot: p, Width: 20 * vg.Inch, Height: 8 * vg.Inch}, nil
}

// HealthCumulative draws cumulative cases over the report date. Rows
// without a date or a count are skipped.
func HealthCumulative(rows []models.HealthRecord) (*Figure, error) {
	const title = "Cumulative Cases Over Time (Random Sample)"
	pts := make(plotter.XYs, 0, len(rows))
	for _, r := range rows {
		if r.DateReported.IsZero() || math.IsNaN(r.CumulativeCases) {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(r.DateReported.Unix()), Y: r.CumulativeCases})
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, title)
	}

	p := newPlot(title, "Date Reported", "Cumulative Cases")
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, fmt.Errorf("failed to create line for %s: %w", title, err)
	}
	line.Color = navy
	points.Color = navy
	points.Shape = draw.CircleGlyph{}
	p.Add(line, points, plotter.NewGrid())

	return &Figure{Purpose: "health_cumulative_chart", Title: title, Plot: p, Width: 12 * vg.Inch, Height: 6 * vg.Inch}, nil
}

// WindHistogram bins the wind speeds of the leading window.
func WindHistogram(speeds []float64) (*Figure, error) {
	return histogram("wind_chart", "Distribution of Wind Speed (First Window)", "Wind Speed (m/s)", speeds)
}

// WindBoxplot summarises the wind speeds of the leading window.
func WindBoxplot(speeds []float64) (*Figure, error) {
	const title = "Wind Speed Spread (First Window)"
	if len(speeds) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, title)
	}
	p := newPlot(title, "", "Wind Speed (m/s)")

	box, err := plotter.NewBoxPlot(vg.Points(60), 0, plotter.Values(speeds))
	if err != nil {
		return nil, fmt.Errorf("failed to create boxplot for %s: %w", title, err)
	}
	box.FillColor = skyBlue
	p.Add(box)
	p.NominalX("uwnd")

	return &Figure{Purpose: "wind_boxplot", Title: title, Plot: p, Width: 6 * vg.Inch, Height: 6 * vg.Inch}, nil
}

func histogram(purpose, title, xLabel string, values []float64) (*Figure, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, title)
	}
	p := newPlot(title, xLabel, "Frequency")

	h, err := plotter.NewHist(plotter.Values(values), HistogramBins)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram for %s: %w", title, err)
	}
	h.FillColor = skyBlue
	h.LineStyle.Color = black
	p.Add(h)

	return &Figure{Purpose: purpose, Title: title, Plot: p, Width: 10 * vg.Inch, Height: 5 * vg.Inch}, nil
}
