// Package pipeline runs the load, transform, render and write steps for
// each dataset page.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/user/datacharts-go/internal/chart"
	"github.com/user/datacharts-go/internal/dataset"
	"github.com/user/datacharts-go/internal/logging"
	"github.com/user/datacharts-go/internal/metrics"
	"github.com/user/datacharts-go/internal/models"
	"github.com/user/datacharts-go/internal/sink"
	"github.com/user/datacharts-go/internal/transform"
)

// Runner holds what every pipeline needs. It keeps no per-request state
// and is safe for concurrent use.
type Runner struct {
	loader  *dataset.Loader
	sink    *sink.Sink
	metrics *metrics.Metrics
	seed    uint64
}

type Options struct {
	// Seed drives the health dataset samples.
	Seed uint64
	// Metrics may be nil.
	Metrics *metrics.Metrics
}

func New(loader *dataset.Loader, s *sink.Sink, opts Options) *Runner {
	return &Runner{loader: loader, sink: s, metrics: opts.Metrics, seed: opts.Seed}
}

// figureFunc builds one chart. Builders run in order and the first error
// stops the pipeline, so later charts are not written.
type figureFunc func() (*chart.Figure, error)

// Run dispatches to the pipeline for id.
func (r *Runner) Run(ctx context.Context, id dataset.ID) (models.PageData, error) {
	start := time.Now()
	var (
		page models.PageData
		err  error
	)
	switch id {
	case dataset.Electricity:
		page, err = r.energy(ctx)
	case dataset.Railway:
		page, err = r.railway(ctx)
	case dataset.Health:
		page, err = r.health(ctx)
	case dataset.Wind:
		page, err = r.wind(ctx)
	default:
		err = fmt.Errorf("%w: %q", dataset.ErrUnknownDataset, id)
	}

	elapsed := time.Since(start)
	r.metrics.ObservePipeline(string(id), elapsed, err)
	if err != nil {
		logging.Error().With(logging.Dataset(string(id)), logging.Duration(elapsed), logging.ErrorField(err)).Msg("pipeline failed")
		return models.PageData{}, err
	}
	logging.Info().With(logging.Dataset(string(id)), logging.Duration(elapsed)).Msg("pipeline complete")
	return page, nil
}

// Result is one pipeline outcome from RunAll.
type Result struct {
	Dataset dataset.ID
	Page    models.PageData
	Err     error
}

// RunAll runs the given pipelines one after another and keeps going past
// failures. With no ids every dataset is rendered.
func (r *Runner) RunAll(ctx context.Context, ids ...dataset.ID) []Result {
	if len(ids) == 0 {
		ids = dataset.All
	}
	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		page, err := r.Run(ctx, id)
		results = append(results, Result{Dataset: id, Page: page, Err: err})
	}
	return results
}

func (r *Runner) render(ctx context.Context, id dataset.ID, builders ...figureFunc) ([]models.ChartArtifact, error) {
	artifacts := make([]models.ChartArtifact, 0, len(builders))
	for _, build := range builders {
		if err := ctx.Err(); err != nil {
			return artifacts, err
		}
		fig, err := build()
		if err != nil {
			return artifacts, fmt.Errorf("%s chart: %w", id, err)
		}
		img, err := fig.PNG()
		if err != nil {
			return artifacts, err
		}
		art, err := r.sink.Write(fig.Purpose, fig.Title, img)
		if err != nil {
			return artifacts, err
		}
		r.metrics.ChartWritten(fig.Purpose, art.Size)
		logging.Info().With(logging.Dataset(string(id)), logging.Chart(fig.Purpose), logging.Path(art.Path)).Msg("chart saved")
		artifacts = append(artifacts, art)
	}
	return artifacts, nil
}

func (r *Runner) energy(ctx context.Context) (models.PageData, error) {
	df, err := r.loader.Load(ctx, dataset.Electricity)
	if err != nil {
		return models.PageData{}, err
	}
	caps, err := transform.Electricity(df)
	if err != nil {
		return models.PageData{}, fmt.Errorf("electricity: %w", err)
	}

	charts, err := r.render(ctx, dataset.Electricity,
		func() (*chart.Figure, error) { return chart.EnergyPie(caps) },
		func() (*chart.Figure, error) { return chart.EnergyBar(caps) },
	)
	if err != nil {
		return models.PageData{}, err
	}

	facts := make([]models.Fact, 0, len(caps)+1)
	for _, c := range caps {
		facts = append(facts, models.Fact{Label: c.Source, Value: humanize.CommafWithDigits(c.Capacity, 2)})
	}
	facts = append(facts, models.Fact{Label: "total", Value: humanize.CommafWithDigits(transform.TotalCapacity(caps), 2)})

	return models.PageData{
		Name:    "energy-data",
		Title:   "Energy Data",
		Heading: "Installed Electricity Capacity by Source",
		Charts:  charts,
		Facts:   facts,
	}, nil
}

func (r *Runner) railway(ctx context.Context) (models.PageData, error) {
	df, err := r.loader.Load(ctx, dataset.Railway)
	if err != nil {
		return models.PageData{}, err
	}
	summary, err := transform.Railway(df)
	if err != nil {
		return models.PageData{}, fmt.Errorf("railway: %w", err)
	}

	charts, err := r.render(ctx, dataset.Railway,
		func() (*chart.Figure, error) { return chart.RailwayMaxDistance(summary.TopStations) },
		func() (*chart.Figure, error) { return chart.DistanceHistogram(summary.Distances) },
		func() (*chart.Figure, error) { return chart.StationTrips(summary.TopTrips) },
	)
	if err != nil {
		return models.PageData{}, err
	}

	facts := []models.Fact{
		{Label: "stations charted", Value: humanize.Comma(int64(len(summary.TopStations)))},
		{Label: "distances recorded", Value: humanize.Comma(int64(len(summary.Distances)))},
	}
	if len(summary.TopStations) > 0 {
		top := summary.TopStations[0]
		facts = append(facts, models.Fact{Label: "longest distance", Value: fmt.Sprintf("%s (%s km)", top.StationCode, humanize.Commaf(top.Distance))})
	}
	if len(summary.TopTrips) > 0 {
		busiest := summary.TopTrips[0]
		facts = append(facts, models.Fact{Label: "busiest station", Value: fmt.Sprintf("%s (%s trips)", busiest.StationCode, humanize.Comma(int64(busiest.Trips)))})
	}

	return models.PageData{
		Name:    "railway-data",
		Title:   "Railway Data",
		Heading: "Railway Stations by Distance",
		Charts:  charts,
		Facts:   facts,
	}, nil
}

func (r *Runner) health(ctx context.Context) (models.PageData, error) {
	df, err := r.loader.Load(ctx, dataset.Health)
	if err != nil {
		return models.PageData{}, err
	}
	summary, err := transform.Health(df, r.seed)
	if err != nil {
		return models.PageData{}, fmt.Errorf("health: %w", err)
	}

	charts, err := r.render(ctx, dataset.Health,
		func() (*chart.Figure, error) { return chart.HealthNewCases(summary.BarSample) },
		func() (*chart.Figure, error) { return chart.HealthCumulative(summary.LineSample) },
	)
	if err != nil {
		return models.PageData{}, err
	}

	facts := []models.Fact{
		{Label: "bar sample rows", Value: humanize.Comma(int64(len(summary.BarSample)))},
		{Label: "line sample rows", Value: humanize.Comma(int64(len(summary.LineSample)))},
		{Label: "sample seed", Value: fmt.Sprint(r.seed)},
	}
	if m := summary.MaxNewCase; m != nil {
		facts = append(facts, models.Fact{
			Label: "most new cases in sample",
			Value: fmt.Sprintf("%s on %s (%s)", m.Country, m.DateReported.Format("2006-01-02"), humanize.Commaf(m.NewCases)),
		})
	}

	return models.PageData{
		Name:    "health-data",
		Title:   "Health Data",
		Heading: "WHO COVID-19 Daily Cases (Sampled)",
		Charts:  charts,
		Facts:   facts,
	}, nil
}

func (r *Runner) wind(ctx context.Context) (models.PageData, error) {
	df, err := r.loader.Load(ctx, dataset.Wind)
	if err != nil {
		return models.PageData{}, err
	}
	summary, err := transform.Wind(df)
	if err != nil {
		return models.PageData{}, fmt.Errorf("wind: %w", err)
	}

	charts, err := r.render(ctx, dataset.Wind,
		func() (*chart.Figure, error) { return chart.WindHistogram(summary.Values) },
		func() (*chart.Figure, error) { return chart.WindBoxplot(summary.Values) },
	)
	if err != nil {
		return models.PageData{}, err
	}

	window := "whole file"
	if src, err := r.loader.Source(dataset.Wind); err == nil && src.Window.Bounded() {
		window = "first " + humanize.Comma(int64(src.Window.Rows)) + " rows"
	}
	return models.PageData{
		Name:    "wind-data",
		Title:   "Wind Data",
		Heading: "Wind Speed Distribution",
		Charts:  charts,
		Facts: []models.Fact{
			{Label: "window", Value: window},
			{Label: "rows read", Value: humanize.Comma(int64(summary.RowsRead))},
			{Label: "numeric " + summary.Column + " values", Value: humanize.Comma(int64(len(summary.Values)))},
		},
	}, nil
}
