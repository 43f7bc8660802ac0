// Package platform gathers the host and dataset details shown on the
// platform information page.
package platform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"time"

	"github.com/user/datacharts-go/internal/dataset"
	"github.com/user/datacharts-go/internal/logging"
	"github.com/user/datacharts-go/internal/models"
	"github.com/user/datacharts-go/pkg/gitutil"
)

// Version is the service version reported on the platform page.
var Version = "0.1.0"

type Collector struct {
	loader    *dataset.Loader
	dataDir   string
	staticDir string
	startedAt time.Time
	now       func() time.Time
}

func NewCollector(loader *dataset.Loader, dataDir, staticDir string, startedAt time.Time) *Collector {
	return &Collector{
		loader:    loader,
		dataDir:   dataDir,
		staticDir: staticDir,
		startedAt: startedAt,
		now:       time.Now,
	}
}

// Collect never fails: details that cannot be determined are reported as
// unknown and logged.
func (c *Collector) Collect(ctx context.Context) models.PlatformInfo {
	userName := "unknown"
	if u, err := user.Current(); err == nil {
		userName = u.Username
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	info := models.PlatformInfo{
		Version:   Version,
		StartedAt: c.startedAt.UTC(),
		Uptime:    c.now().Sub(c.startedAt).Truncate(time.Second),
		User:      userName,
		Hostname:  hostname,
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		GoVersion: runtime.Version(),
		DataDir:   absPath(c.dataDir),
		StaticDir: absPath(c.staticDir),
	}

	for _, id := range dataset.All {
		desc, err := c.loader.Describe(ctx, id)
		if err != nil {
			logging.Warn().With(logging.Dataset(string(id)), logging.ErrorField(err)).Msg("could not describe dataset")
			if desc.ID == "" {
				desc.ID = string(id)
			}
		}
		info.Datasets = append(info.Datasets, desc)
	}

	rev, err := gitutil.DataRevision(c.dataDir)
	switch {
	case err == nil:
		info.Revision = &rev
	case errors.Is(err, gitutil.ErrNotRepository):
		// data directory is not under version control
	default:
		logging.Warn().With(logging.Path(c.dataDir), logging.ErrorField(err)).Msg("could not read dataset revision")
	}
	return info
}

func absPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}
