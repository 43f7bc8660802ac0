package models

import "time"

// DatasetInfo describes a CSV dataset on disk.
type DatasetInfo struct {
	ID      string   `json:"id"`
	Path    string   `json:"path"`
	Columns []string `json:"columns"`
	Rows    int      `json:"rows"`
	Size    int64    `json:"size"`
	Window  int      `json:"window,omitempty"` // 0 means the whole file is read

	// Truncated is set when rows exist past Window; Rows then equals Window.
	Truncated bool `json:"truncated,omitempty"`
}

// ChartArtifact is a rendered chart image written under the static directory.
type ChartArtifact struct {
	Purpose  string `json:"purpose"`  // e.g. "energy_pie_chart"
	Title    string `json:"title"`
	Filename string `json:"filename"` // relative to the static directory
	Path     string `json:"path"`     // absolute path on disk
	Size     int64  `json:"size"`
}

// Fact is a label/value pair shown next to the charts on a page.
type Fact struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// PageData is everything a data page needs to render.
type PageData struct {
	Name    string          `json:"name"`
	Title   string          `json:"title"`
	Heading string          `json:"heading"`
	Charts  []ChartArtifact `json:"charts"`
	Facts   []Fact          `json:"facts,omitempty"`
}

// SourceCapacity is the summed installed capacity of one energy source.
type SourceCapacity struct {
	Source   string  `json:"source"`
	Capacity float64 `json:"capacity"`
}

// StationDistance is the maximum distance recorded for a station.
type StationDistance struct {
	StationCode string  `json:"station_code"`
	Distance    float64 `json:"distance"`
}

// StationTrips is the number of timetable rows that stop at a station.
type StationTrips struct {
	StationCode string `json:"station_code"`
	Trips       int    `json:"trips"`
}

// RailwaySummary holds the three railway views.
type RailwaySummary struct {
	TopStations []StationDistance `json:"top_stations"`
	Distances   []float64         `json:"distances"`
	TopTrips    []StationTrips    `json:"top_trips"`
}

// HealthRecord is one sampled row of the WHO daily dataset. Numeric fields
// that failed to parse are NaN.
type HealthRecord struct {
	Row             int       `json:"row"` // index of the row in the source file
	DateReported    time.Time `json:"date_reported"`
	Country         string    `json:"country"`
	NewCases        float64   `json:"new_cases"`
	CumulativeCases float64   `json:"cumulative_cases"`
}

// HealthSummary holds the two independent samples drawn from the WHO dataset.
type HealthSummary struct {
	BarSample  []HealthRecord `json:"bar_sample"`
	LineSample []HealthRecord `json:"line_sample"` // sorted by DateReported
	MaxNewCase *HealthRecord  `json:"max_new_case,omitempty"`
}

// WindSummary holds the wind speeds read from the leading window of the file.
type WindSummary struct {
	Column   string    `json:"column"`
	RowsRead int       `json:"rows_read"`
	Values   []float64 `json:"values"`
}

// Revision describes the commit a git-tracked data directory is checked out at.
type Revision struct {
	SHA     string    `json:"sha"`
	Branch  string    `json:"branch"`
	Date    time.Time `json:"date"`
	Author  string    `json:"author"` // Format: "Name (email)"
	Message string    `json:"message"`
}

// PlatformInfo is shown on the platform information page.
type PlatformInfo struct {
	Version   string        `json:"version"`
	StartedAt time.Time     `json:"started_at"`
	Uptime    time.Duration `json:"uptime"`
	User      string        `json:"user"`
	Hostname  string        `json:"hostname"`
	Platform  string        `json:"platform"`
	GoVersion string        `json:"go_version"`
	DataDir   string        `json:"data_dir"`
	StaticDir string        `json:"static_dir"`
	Datasets  []DatasetInfo `json:"datasets"`
	Revision  *Revision     `json:"revision,omitempty"`
}
