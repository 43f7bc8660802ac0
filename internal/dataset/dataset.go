// Package dataset loads the CSV datasets into gota dataframes.
package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/user/datacharts-go/internal/logging"
	"github.com/user/datacharts-go/internal/models"
)

// ID names a dataset.
type ID string

const (
	Electricity ID = "electricity"
	Railway     ID = "railway"
	Health      ID = "health"
	Wind        ID = "wind"
)

// All lists the datasets in page order.
var All = []ID{Electricity, Railway, Health, Wind}

var (
	ErrUnknownDataset = errors.New("unknown dataset")
	ErrNotFound       = errors.New("dataset file not found")
	ErrMalformed      = errors.New("malformed dataset")
	ErrEmpty          = errors.New("dataset has no data rows")
)

// ctxCheckEvery is how many rows are read between context checks.
const ctxCheckEvery = 4096

// Window bounds how much of a file is read. The zero Window reads the
// whole file; Window{Rows: n} reads only the first n data rows and never
// consults the rest of the file.
type Window struct {
	Rows int
}

func (w Window) Bounded() bool { return w.Rows > 0 }

// Source ties a dataset id to its file and window.
type Source struct {
	ID     ID
	Path   string
	Window Window
}

// Loader reads datasets fresh from disk on every call.
type Loader struct {
	sources map[ID]Source
}

func NewLoader(sources ...Source) *Loader {
	l := &Loader{sources: make(map[ID]Source, len(sources))}
	for _, s := range sources {
		l.sources[s.ID] = s
	}
	return l
}

// Source returns the configured source for id.
func (l *Loader) Source(id ID) (Source, error) {
	src, ok := l.sources[id]
	if !ok {
		return Source{}, fmt.Errorf("%w: %q", ErrUnknownDataset, id)
	}
	return src, nil
}

// Load reads the dataset into a dataframe with every column typed as
// string. Numeric coercion is left to the transforms so that a bad cell
// becomes a missing value instead of failing the load.
func (l *Loader) Load(ctx context.Context, id ID) (dataframe.DataFrame, error) {
	src, err := l.Source(id)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	f, err := os.Open(src.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return dataframe.DataFrame{}, fmt.Errorf("%w: %s (%s)", ErrNotFound, id, src.Path)
		}
		return dataframe.DataFrame{}, fmt.Errorf("failed to open dataset %s (%s): %w", id, src.Path, err)
	}
	defer f.Close()

	records, err := readRecords(ctx, f, src.Window)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("dataset %s (%s): %w", id, src.Path, err)
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%w: %s (%s): %v", ErrMalformed, id, src.Path, df.Err)
	}

	logging.Debug().With(logging.Dataset(string(id)), logging.Path(src.Path), logging.Rows(df.Nrow())).Msg("dataset loaded")
	return df, nil
}

// readRecords reads the header plus up to w.Rows data rows.
func readRecords(ctx context.Context, r io.Reader, w Window) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrMalformed, err)
	}
	stripBOM(header)

	capHint := 1024
	if w.Bounded() && w.Rows < capHint {
		capHint = w.Rows
	}
	records := make([][]string, 0, capHint+1)
	records = append(records, header)

	for n := 0; !w.Bounded() || n < w.Rows; n++ {
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		rec, err = fitRecord(rec, len(header))
		if err != nil {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("%w: record on line %d: %v", ErrMalformed, line, err)
		}
		records = append(records, rec)
	}

	if len(records) == 1 {
		return nil, ErrEmpty
	}
	return records, nil
}

// stripBOM drops a UTF-8 byte order mark from the first column name.
func stripBOM(header []string) {
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
}

// fitRecord pads a short record with empty cells so missing trailing fields
// read as missing values. A record wider than the header is an error.
func fitRecord(rec []string, width int) ([]string, error) {
	if len(rec) > width {
		return nil, fmt.Errorf("%d fields, header has %d", len(rec), width)
	}
	for len(rec) < width {
		rec = append(rec, "")
	}
	return rec, nil
}

// Describe reports the columns, row count and size of a dataset without
// building a dataframe. For a windowed source counting stops at the window
// and Truncated reports whether more rows follow.
func (l *Loader) Describe(ctx context.Context, id ID) (models.DatasetInfo, error) {
	src, err := l.Source(id)
	if err != nil {
		return models.DatasetInfo{}, err
	}
	info := models.DatasetInfo{ID: string(id), Path: src.Path, Window: src.Window.Rows}

	f, err := os.Open(src.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return info, fmt.Errorf("%w: %s (%s)", ErrNotFound, id, src.Path)
		}
		return info, fmt.Errorf("failed to open dataset %s (%s): %w", id, src.Path, err)
	}
	defer f.Close()

	if st, err := f.Stat(); err == nil {
		info.Size = st.Size()
	}

	cr := csv.NewReader(f)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return info, nil
	}
	if err != nil {
		return info, fmt.Errorf("%w: %s header: %v", ErrMalformed, id, err)
	}
	info.Columns = append([]string(nil), header...)
	stripBOM(info.Columns)

	for {
		if src.Window.Bounded() && info.Rows >= src.Window.Rows {
			if _, err := cr.Read(); err != io.EOF {
				info.Truncated = true
			}
			break
		}
		if info.Rows%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return info, err
			}
		}
		if _, err := cr.Read(); err != nil {
			if err == io.EOF {
				break
			}
			return info, fmt.Errorf("%w: %s: %v", ErrMalformed, id, err)
		}
		info.Rows++
	}
	return info, nil
}
