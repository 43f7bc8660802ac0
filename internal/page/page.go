// Package page renders the HTML pages from embedded templates.
package page

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/user/datacharts-go/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "templates/layout.html"

// Names of the pages the composer knows.
const (
	Index        = "index"
	EnergyData   = "energy-data"
	RailwayData  = "railway-data"
	HealthData   = "health-data"
	WindData     = "wind-data"
	PlatformInfo = "platform-info"
	ErrorPage    = "error"
)

// Link is a navigation entry on the index page.
type Link struct {
	Href  string
	Title string
	Text  string
}

// View is the value every template executes against.
type View struct {
	Title     string
	StaticURL string
	Page      models.PageData
	Links     []Link
	Platform  *models.PlatformInfo
	Status    int
	RequestID string
}

// Composer holds one parsed template set per page, each combined with the
// shared layout.
type Composer struct {
	staticURL string
	pages     map[string]*template.Template
}

func funcMap(staticURL string) template.FuncMap {
	return template.FuncMap{
		"ToUpper": strings.ToUpper,
		"Image": func(filename string) string {
			return path.Join(staticURL, filename)
		},
		"FormatDateTime": func(t time.Time) string {
			return t.Format("2006-01-02 15:04:05 MST")
		},
		"FormatDate": func(t time.Time) string {
			return t.Format("2006-01-02")
		},
		"ShortSha": func(sha string) string {
			if len(sha) > 8 {
				return sha[:8]
			}
			return sha
		},
		"Bytes": func(n int64) string {
			if n < 0 {
				return "-"
			}
			return humanize.Bytes(uint64(n))
		},
		"Comma": func(n int) string {
			return humanize.Comma(int64(n))
		},
		"Ago": humanize.Time,
	}
}

// New parses every embedded page. staticURL is the URL prefix chart files
// are served under.
func New(staticURL string) (*Composer, error) {
	c := &Composer{staticURL: staticURL, pages: make(map[string]*template.Template)}

	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	for _, file := range files {
		if file == layoutFile {
			continue
		}
		name := strings.TrimSuffix(path.Base(file), ".html")
		tmpl, err := template.New(path.Base(layoutFile)).Funcs(funcMap(staticURL)).ParseFS(templateFS, layoutFile, file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", file, err)
		}
		c.pages[name] = tmpl
	}
	return c, nil
}

// Has reports whether a page template exists.
func (c *Composer) Has(name string) bool {
	_, ok := c.pages[name]
	return ok
}

// Render executes the named page into w. The page is rendered into a
// buffer first so a template error never produces a partial response.
func (c *Composer) Render(w io.Writer, name string, view View) error {
	tmpl, ok := c.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	if view.StaticURL == "" {
		view.StaticURL = c.staticURL
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", view); err != nil {
		return fmt.Errorf("failed to execute page %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
