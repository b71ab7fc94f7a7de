package filtering

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/quickapply/internal/jobs"
)

const forceFlagSetMsg = "force flag is set"

// AppliedSource lists the URLs already applied to.
type AppliedSource interface {
	AppliedURLs(ctx context.Context) ([]string, error)
}

type appliedHistoryFilter struct {
	toggle
	deps *AppliedHistoryDeps
}

type AppliedHistoryDeps struct {
	History AppliedSource
	Logger  *zap.Logger
}

type AppliedHistoryConfig struct {
	Ignore bool
}

// NewAppliedHistory creates a filter that removes listings found in the applied history.
func NewAppliedHistory(cfg *AppliedHistoryConfig, deps *AppliedHistoryDeps) Filter {
	f := &appliedHistoryFilter{deps: deps}
	if cfg != nil && cfg.Ignore {
		f.Disable(forceFlagSetMsg)
	}
	return f
}

func (f *appliedHistoryFilter) Name() string { return "applied_history" }

func (f *appliedHistoryFilter) Validate() error {
	if f.deps == nil || f.deps.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if f.IsEnabled() && f.deps.History == nil {
		return fmt.Errorf("history store is required")
	}

	return nil
}

func (f *appliedHistoryFilter) Apply(ctx context.Context, l *jobs.Listings) (*jobs.Listings, Step, error) {
	initial := l.Len()
	if !f.IsEnabled() {
		f.deps.Logger.Info("ignoring already applied jobs", zap.String("reason", f.reason))
		return l, Step{Initial: initial, Dropped: 0, Left: l.Len()}, nil
	}

	applied, err := f.deps.History.AppliedURLs(ctx)
	if err != nil {
		return l, Step{}, fmt.Errorf("get applied history: %w", err)
	}

	excluded := l.Exclude(jobs.URLField, applied)
	if len(excluded) > 0 {
		f.deps.Logger.Info("excluding jobs based on applied history",
			zap.Strings("excluded_jobs", excluded),
			zap.Int("jobs_left", l.Len()),
		)
	}

	return l, Step{Initial: initial, Dropped: len(excluded), Left: l.Len()}, nil
}

func (f *appliedHistoryFilter) Status() Status {
	details := map[string]string{
		"exclude_applied": strconv.FormatBool(f.IsEnabled()),
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
