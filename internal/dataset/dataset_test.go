package dataset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write fixture %s: %v", path, err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeCSV(t, "electricity.csv", "state,coal_cap,gas_cap\nA,10,5\nB,20,5\n")
	loader := NewLoader(Source{ID: Electricity, Path: path})

	df, err := loader.Load(context.Background(), Electricity)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if df.Nrow() != 2 {
		t.Errorf("Nrow() = %d, want 2", df.Nrow())
	}
	if got := strings.Join(df.Names(), ","); got != "state,coal_cap,gas_cap" {
		t.Errorf("Names() = %s", got)
	}
	// values are kept as text
	if got := df.Col("coal_cap").Records(); got[1] != "20" {
		t.Errorf("coal_cap records = %v", got)
	}
}

func TestLoadWindow(t *testing.T) {
	var b strings.Builder
	b.WriteString("time, uwnd\n")
	for i := 0; i < 250; i++ {
		fmt.Fprintf(&b, "%d,%d\n", i, i)
	}
	path := writeCSV(t, "wind.csv", b.String())

	loader := NewLoader(
		Source{ID: Wind, Path: path, Window: Window{Rows: 100}},
		Source{ID: Railway, Path: path},
	)

	df, err := loader.Load(context.Background(), Wind)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if df.Nrow() != 100 {
		t.Errorf("windowed Nrow() = %d, want 100", df.Nrow())
	}
	last := df.Col("time").Records()[df.Nrow()-1]
	if last != "99" {
		t.Errorf("last row in window = %s, want 99", last)
	}

	full, err := loader.Load(context.Background(), Railway)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if full.Nrow() != 250 {
		t.Errorf("unbounded Nrow() = %d, want 250", full.Nrow())
	}
}

func TestLoadWindowIgnoresRowsPastBound(t *testing.T) {
	// the row after the window is malformed; it must never be read
	path := writeCSV(t, "wind.csv", "uwnd\n1\n2\n\"broken\n")
	loader := NewLoader(Source{ID: Wind, Path: path, Window: Window{Rows: 2}})

	if _, err := loader.Load(context.Background(), Wind); err != nil {
		t.Fatalf("Load() error = %v, rows past the window should not be parsed", err)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	empty := writeCSV(t, "empty.csv", "")
	headerOnly := writeCSV(t, "header.csv", "a,b\n")
	wide := writeCSV(t, "wide.csv", "a,b\n1,2\n3,4,5\n")

	loader := NewLoader(
		Source{ID: Electricity, Path: filepath.Join(dir, "missing.csv")},
		Source{ID: Railway, Path: empty},
		Source{ID: Health, Path: headerOnly},
		Source{ID: Wind, Path: wide},
	)

	tests := []struct {
		id   ID
		want error
	}{
		{Electricity, ErrNotFound},
		{Railway, ErrEmpty},
		{Health, ErrEmpty},
		{Wind, ErrMalformed},
		{ID("study"), ErrUnknownDataset},
	}
	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			_, err := loader.Load(context.Background(), tt.id)
			if !errors.Is(err, tt.want) {
				t.Errorf("Load(%s) error = %v, want %v", tt.id, err, tt.want)
			}
		})
	}
}

func TestLoadCanceled(t *testing.T) {
	path := writeCSV(t, "a.csv", "a\n1\n")
	loader := NewLoader(Source{ID: Wind, Path: path})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := loader.Load(ctx, Wind); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestDescribe(t *testing.T) {
	path := writeCSV(t, "train.csv", "Train No,Station Code,Distance\n1,NDLS,0\n1,CNB,440\n2,HWH,1450\n")
	loader := NewLoader(Source{ID: Railway, Path: path, Window: Window{Rows: 10}})

	info, err := loader.Describe(context.Background(), Railway)
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if info.Rows != 3 {
		t.Errorf("Rows = %d, want 3", info.Rows)
	}
	if len(info.Columns) != 3 || info.Columns[1] != "Station Code" {
		t.Errorf("Columns = %v", info.Columns)
	}
	if info.Size == 0 {
		t.Error("Size should be set")
	}
	if info.Window != 10 {
		t.Errorf("Window = %d, want 10", info.Window)
	}
}

func TestLoadStripsBOM(t *testing.T) {
	path := writeCSV(t, "health.csv", "\ufeffDate_reported,Country,New_cases\n2020-01-03,Afghanistan,0\n")
	loader := NewLoader(Source{ID: Health, Path: path})

	df, err := loader.Load(context.Background(), Health)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := df.Names()[0]; got != "Date_reported" {
		t.Errorf("first column = %q, want %q", got, "Date_reported")
	}

	info, err := loader.Describe(context.Background(), Health)
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if info.Columns[0] != "Date_reported" {
		t.Errorf("Describe() first column = %q", info.Columns[0])
	}
}

func TestLoadPadsShortRows(t *testing.T) {
	path := writeCSV(t, "train.csv", "Train No,Station Code,Distance\n1,NDLS,0\n1,CNB\n2,HWH,1450\n")
	loader := NewLoader(Source{ID: Railway, Path: path})

	df, err := loader.Load(context.Background(), Railway)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if df.Nrow() != 3 {
		t.Fatalf("Nrow() = %d, want 3", df.Nrow())
	}
	if got := df.Col("Distance").Records(); got[1] != "" || got[2] != "1450" {
		t.Errorf("Distance records = %q, want the short row padded with an empty cell", got)
	}
}

func TestDescribeStopsAtWindow(t *testing.T) {
	var b strings.Builder
	b.WriteString("uwnd\n")
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&b, "%d\n", i)
	}
	b.WriteString("\"broken\n")
	path := writeCSV(t, "wind.csv", b.String())

	loader := NewLoader(
		Source{ID: Wind, Path: path, Window: Window{Rows: 10}},
		Source{ID: Health, Path: writeCSV(t, "small.csv", "uwnd\n1\n2\n")},
	)

	info, err := loader.Describe(context.Background(), Wind)
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if info.Rows != 10 || !info.Truncated {
		t.Errorf("Describe() Rows = %d, Truncated = %v, want 10 and true", info.Rows, info.Truncated)
	}

	info, err = loader.Describe(context.Background(), Health)
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if info.Rows != 2 || info.Truncated {
		t.Errorf("Describe() Rows = %d, Truncated = %v, want 2 and false", info.Rows, info.Truncated)
	}
}
