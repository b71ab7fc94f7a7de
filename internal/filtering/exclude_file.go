package filtering

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/quickapply/internal/jobs"
)

type excludeFileFilter struct {
	toggle
	path   string
	logger *zap.Logger
}

// NewExcludeFile creates a filter that removes listings contained in the exclude file.
func NewExcludeFile(path string, logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &excludeFileFilter{
		path:   strings.TrimSpace(path),
		logger: logger,
	}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Validate() error { return nil }

func (f *excludeFileFilter) Apply(_ context.Context, l *jobs.Listings) (*jobs.Listings, Step, error) {
	initial := l.Len()
	if f.path == "" {
		return l, Step{Initial: initial, Dropped: 0, Left: l.Len()}, nil
	}

	excluded, err := jobs.ExcludedFromFile(f.path)
	if err != nil {
		return l, Step{}, fmt.Errorf("getting excluded jobs from file: %w", err)
	}

	removed := l.Exclude(jobs.URLField, excluded.URLs())
	if len(removed) > 0 {
		f.logger.Info("excluding jobs based on exclude file",
			zap.String("path", f.path),
			zap.Strings("excluded_jobs", removed),
			zap.Int("jobs_left", l.Len()),
		)
	}

	return l, Step{Initial: initial, Dropped: len(removed), Left: l.Len()}, nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

// AppendToExcludeFile adds listings to the exclude file at path. An empty
// path is a no-op.
func AppendToExcludeFile(path string, l *jobs.Listings, actor, reason string) error {
	path = strings.TrimSpace(path)
	if path == "" || l.Len() == 0 {
		return nil
	}

	excluded, err := jobs.ExcludedFromFile(path)
	if err != nil {
		return fmt.Errorf("load excluded jobs: %w", err)
	}

	excluded.Append(l.ToExcluded(actor, reason))

	if err := excluded.ToFile(path); err != nil {
		return fmt.Errorf("write excluded jobs: %w", err)
	}
	return nil
}
