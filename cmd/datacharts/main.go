package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/user/datacharts-go/internal/config"
	"github.com/user/datacharts-go/internal/dataset"
	"github.com/user/datacharts-go/internal/logging"
	"github.com/user/datacharts-go/internal/metrics"
	"github.com/user/datacharts-go/internal/models"
	"github.com/user/datacharts-go/internal/pipeline"
	"github.com/user/datacharts-go/internal/platform"
	"github.com/user/datacharts-go/internal/server"
	"github.com/user/datacharts-go/internal/sink"
)

var (
	// Used for flags.
	configPath string
	logLevel   string
	logFormat  string
	dataDir    string
	staticDir  string
	naming     string
	addr       string
	jsonOutput bool

	rootCmd = &cobra.Command{
		Use:   "datacharts",
		Short: "datacharts draws charts from public CSV datasets.",
		Long: `Reads the electricity, railway, health and wind CSV datasets, renders
charts from them into a static directory and serves HTML pages that
show those charts.`,
		SilenceUsage: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serves the chart pages over HTTP.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}

			loader := newLoader(cfg)
			m := metrics.New()
			runner := newRunner(cfg, loader, m)
			collector := platform.NewCollector(loader, cfg.DataDir, cfg.StaticDir, time.Now())

			srv, err := server.New(server.Options{
				Addr:            cfg.Server.Addr,
				StaticDir:       cfg.StaticDir,
				ReadTimeout:     cfg.Server.ReadTimeout,
				WriteTimeout:    cfg.Server.WriteTimeout,
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
			}, runner, collector, m)
			if err != nil {
				return fmt.Errorf("failed to build server: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx)
		},
	}

	renderCmd = &cobra.Command{
		Use:       "render [DATASET...]",
		Short:     "Renders charts once without starting the server.",
		Long:      `Runs the pipelines for the named datasets (electricity, railway, health, wind), or all of them, and writes their charts into the static directory.`,
		ValidArgs: []string{"electricity", "railway", "health", "wind"},
		Args:      cobra.OnlyValidArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ids := make([]dataset.ID, len(args))
			for i, a := range args {
				ids[i] = dataset.ID(a)
			}

			runner := newRunner(cfg, newLoader(cfg), nil)
			results := runner.RunAll(cmd.Context(), ids...)

			if jsonOutput {
				if err := writeJSON(results); err != nil {
					return err
				}
			} else {
				writeTable(results)
			}

			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d datasets failed", failed, len(results))
			}
			return nil
		},
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	pf.StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "", "Log format (console or json)")
	pf.StringVar(&dataDir, "data-dir", "", "Directory holding the CSV datasets")
	pf.StringVar(&staticDir, "static-dir", "", "Directory chart images are written to")
	pf.StringVar(&naming, "naming", "", "Chart file naming: content or fixed")

	serveCmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from config, 127.0.0.1:5000)")
	renderCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(renderCmd)
}

// loadConfig reads the config file and environment, then applies flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = dataDir
	}
	if flags.Changed("static-dir") {
		cfg.StaticDir = staticDir
	}
	if flags.Changed("naming") {
		cfg.Charts.Naming = naming
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	cfg.Log.Output = os.Stderr
	logging.Init(cfg.Log)
	return cfg, nil
}

func newLoader(cfg config.Config) *dataset.Loader {
	return dataset.NewLoader(
		dataset.Source{ID: dataset.Electricity, Path: cfg.DatasetPath(cfg.Datasets.Electricity)},
		dataset.Source{ID: dataset.Railway, Path: cfg.DatasetPath(cfg.Datasets.Railway)},
		dataset.Source{ID: dataset.Health, Path: cfg.DatasetPath(cfg.Datasets.Health)},
		dataset.Source{
			ID:     dataset.Wind,
			Path:   cfg.DatasetPath(cfg.Datasets.Wind),
			Window: dataset.Window{Rows: cfg.Charts.WindWindowRows},
		},
	)
}

func newRunner(cfg config.Config, loader *dataset.Loader, m *metrics.Metrics) *pipeline.Runner {
	return pipeline.New(loader, sink.New(cfg.StaticDir, sink.Naming(cfg.Charts.Naming)).WithRetention(cfg.Charts.Retention), pipeline.Options{
		Seed:    cfg.Charts.SampleSeed,
		Metrics: m,
	})
}

func writeTable(results []pipeline.Result) {
	ok := color.New(color.FgGreen).SprintFunc()
	bad := color.New(color.FgRed).SprintFunc()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Dataset", "Status", "Chart", "File", "Size"})
	for _, r := range results {
		if r.Err != nil {
			table.Append([]string{string(r.Dataset), bad("failed"), "", r.Err.Error(), ""})
			continue
		}
		for _, c := range r.Page.Charts {
			table.Append([]string{string(r.Dataset), ok("ok"), c.Purpose, c.Path, humanize.Bytes(uint64(c.Size))})
		}
	}
	table.Render()
}

type jsonResult struct {
	Dataset string           `json:"dataset"`
	Error   string           `json:"error,omitempty"`
	Page    *models.PageData `json:"page,omitempty"`
}

func writeJSON(results []pipeline.Result) error {
	out := make([]jsonResult, 0, len(results))
	for _, r := range results {
		jr := jsonResult{Dataset: string(r.Dataset)}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		} else {
			page := r.Page
			jr.Page = &page
		}
		out = append(out, jr)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
