// Package runner sequences one quick apply run: login, search, discovery,
// exclusion, scoring, categorization and the apply loop.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/quickapply/internal/discovery"
	"github.com/spigell/quickapply/internal/driver"
	"github.com/spigell/quickapply/internal/filtering"
	"github.com/spigell/quickapply/internal/jobs"
	"github.com/spigell/quickapply/internal/logger"
	"github.com/spigell/quickapply/internal/matching"
	"github.com/spigell/quickapply/internal/observer"
	"github.com/spigell/quickapply/internal/report"
	"github.com/spigell/quickapply/internal/resume"
	"github.com/spigell/quickapply/internal/secrets"
	"github.com/spigell/quickapply/internal/utils"
	"github.com/spigell/quickapply/internal/wizard"
)

// ErrApplicationFailed means a quick apply attempt did not end in a submission.
var ErrApplicationFailed = errors.New("application failed")

// JobError is a per-job failure. It never aborts the run.
type JobError struct {
	URL string
	Err error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("job %s: %v", e.URL, e.Err)
}

func (e *JobError) Unwrap() error { return e.Err }

// Site is the set of site flows the run needs.
type Site interface {
	Login(ctx context.Context, identity, secret string) error
	Search(ctx context.Context, keywords, location string) error
	Description(ctx context.Context, url string) (string, error)
	OpenQuickApply(ctx context.Context, url string) error
}

// Lister reads listings off the results page.
type Lister interface {
	Discover(ctx context.Context, drv driver.Driver) (*jobs.Listings, error)
}

// Applier drives an opened quick apply wizard.
type Applier interface {
	Run(ctx context.Context, d driver.Driver) (wizard.Attempt, error)
}

// Recorder persists application outcomes.
type Recorder interface {
	Record(ctx context.Context, runID string, l *jobs.Listing) error
}

// ApproveFunc is asked once before the apply loop. Returning false leaves
// every quick apply listing not attempted.
type ApproveFunc func(ctx context.Context, quick *jobs.Listings) (bool, error)

// Config holds the run settings.
type Config struct {
	Keywords string
	Location string
	// MaxApplications caps successful submissions. Zero means no cap.
	MaxApplications int
	// Delay is the pause between consecutive attempts.
	Delay time.Duration
	// ExcludeUnsuitable appends skipped unsuitable listings to ExcludeFile.
	ExcludeUnsuitable bool
	ExcludeFile       string
}

// Deps are the collaborators of a Runner. Filters, Matcher, Profile,
// History, Approve and Observer are optional.
type Deps struct {
	Driver  driver.Driver
	Site    Site
	Lister  Lister
	Applier Applier

	Filters  *filtering.Filtering
	Matcher  matching.Matcher
	Profile  *resume.Profile
	History  Recorder
	Approve  ApproveFunc
	Observer observer.Observer
	Logger   *zap.Logger
}

// Runner executes runs. Stop may be called from any goroutine.
type Runner struct {
	cfg  Config
	deps Deps

	stop atomic.Bool
}

var now = time.Now

// New creates a Runner.
func New(cfg Config, deps Deps) *Runner {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	deps.Observer = observer.OrNop(deps.Observer)
	return &Runner{cfg: cfg, deps: deps}
}

// Stop asks the run to end before the next job. An attempt in flight always
// finishes first.
func (r *Runner) Stop() {
	r.stop.Store(true)
}

type run struct {
	*Runner
	log    *zap.Logger
	report *report.Report
}

// Run performs a full run. The returned report is never nil: on a run-level
// failure it holds whatever was collected before the failure.
func (r *Runner) Run(ctx context.Context, creds secrets.Credentials) (rep *report.Report, err error) {
	runID := uuid.NewString()
	state := &run{
		Runner: r,
		log:    logger.WithFields(r.deps.Logger, zap.String(logger.FieldRunID, runID)),
		report: &report.Report{
			RunID:     runID,
			Timestamp: now(),
			Resume:    report.NewResumeAnalysis(r.deps.Profile),
		},
	}
	rep = state.report

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("run panicked: %v", p)
			state.log.Error("run aborted", zap.Any("panic", p))
		}
		if err != nil {
			rep.Error = err.Error()
		}
	}()

	err = state.execute(ctx, creds)
	return rep, err
}

func (s *run) execute(ctx context.Context, creds secrets.Credentials) error {
	s.log.Info("logging in")
	if err := s.deps.Site.Login(ctx, creds.Identity, creds.Secret); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	s.log.Info("searching jobs", zap.String("keywords", s.cfg.Keywords), zap.String("location", s.cfg.Location))
	if err := s.deps.Site.Search(ctx, s.cfg.Keywords, s.cfg.Location); err != nil {
		return fmt.Errorf("search: %w", err)
	}

	listings, err := s.deps.Lister.Discover(ctx, s.deps.Driver)
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}
	s.report.Stats.Discovered = listings.Len()
	s.publish()

	if listings.Len() == 0 {
		s.log.Warn("no job listings found")
		return nil
	}

	if s.deps.Filters != nil {
		left, removed, err := s.deps.Filters.RunFilters(ctx, listings)
		if err != nil {
			return fmt.Errorf("filters: %w", err)
		}
		listings = left
		s.report.Excluded = removed.Items
	}

	ranked := s.scoringEnabled()
	if ranked {
		if err := discovery.Score(ctx, listings, s.deps.Site, s.deps.Matcher, s.deps.Profile, s.log); err != nil {
			return fmt.Errorf("score: %w", err)
		}
		for _, l := range listings.Items {
			if l.IsSuitable {
				s.report.Stats.Suitable++
			} else {
				s.report.Stats.Unsuitable++
			}
		}
	}

	quick, manual := discovery.Categorize(listings, ranked)
	for _, l := range manual.Items {
		l.Outcome = jobs.OutcomeManualReview
	}
	s.report.ManualReview = manual.Items
	s.report.Stats.QuickApply = quick.Len()
	s.report.Stats.Manual = manual.Len()
	s.publish()

	s.log.Info("jobs categorized",
		zap.Int("quick_apply", quick.Len()),
		zap.Int("manual_review", manual.Len()),
		zap.Bool("ranked", ranked),
	)

	if quick.Len() == 0 {
		return nil
	}

	if s.deps.Approve != nil {
		ok, err := s.deps.Approve(ctx, quick)
		if err != nil {
			s.notAttempted(quick.Items)
			return fmt.Errorf("approval: %w", err)
		}
		if !ok {
			s.log.Info("applying declined")
			s.notAttempted(quick.Items)
			return nil
		}
	}

	err = s.applyAll(ctx, quick)
	s.excludeUnsuitable()
	return err
}

func (s *run) scoringEnabled() bool {
	return s.deps.Profile != nil && s.deps.Matcher != nil
}

func (s *run) applyAll(ctx context.Context, quick *jobs.Listings) error {
	applied, attempts := 0, 0

	for i, l := range quick.Items {
		if s.stop.Load() {
			s.log.Info("stop requested", zap.Int("remaining", quick.Len()-i))
			s.notAttempted(quick.Items[i:])
			return nil
		}
		if s.cfg.MaxApplications > 0 && applied >= s.cfg.MaxApplications {
			s.log.Info("application limit reached", zap.Int("max_applications", s.cfg.MaxApplications))
			s.notAttempted(quick.Items[i:])
			return nil
		}

		jobLog := logger.WithJob(s.log, l.URL, l.Title, l.Company)

		if s.scoringEnabled() && !l.IsSuitable {
			l.Outcome = jobs.OutcomeSkippedUnsuitable
			s.report.SkippedUnsuitable = append(s.report.SkippedUnsuitable, l)
			jobLog.Info("skipping unsuitable job", zap.Float64("match_score", l.MatchScore))
			continue
		}

		if attempts > 0 {
			if err := utils.WaitFor(ctx, s.cfg.Delay); err != nil {
				s.notAttempted(quick.Items[i:])
				return err
			}
		}
		attempts++

		if err := s.apply(ctx, l); err != nil {
			l.Outcome = jobs.OutcomeFailed
			l.Error = err.Error()
			s.report.Failed = append(s.report.Failed, l)
			s.report.Stats.Failed++
			jobLog.Warn("application failed", zap.Error(err))
		} else {
			l.Outcome = jobs.OutcomeApplied
			s.report.Applied = append(s.report.Applied, l)
			s.report.Stats.Applied++
			applied++
			jobLog.Info("application submitted")
		}
		s.record(ctx, l)
		s.publish()

		if err := ctx.Err(); err != nil {
			s.notAttempted(quick.Items[i+1:])
			return err
		}
	}

	s.log.Info("apply loop finished", zap.Int("applied", applied), zap.Int("attempts", attempts))
	return nil
}

// apply opens the posting and drives the wizard. A panic inside one attempt
// fails only that job.
func (s *run) apply(ctx context.Context, l *jobs.Listing) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &JobError{URL: l.URL, Err: fmt.Errorf("%w: panic: %v", ErrApplicationFailed, p)}
		}
	}()

	if err := s.deps.Site.OpenQuickApply(ctx, l.URL); err != nil {
		return &JobError{URL: l.URL, Err: fmt.Errorf("%w: %w", ErrApplicationFailed, err)}
	}

	attempt, err := s.deps.Applier.Run(ctx, s.deps.Driver)
	if err != nil {
		return &JobError{URL: l.URL, Err: fmt.Errorf("%w: %w", ErrApplicationFailed, err)}
	}
	if attempt.State != wizard.Submitted {
		return &JobError{URL: l.URL, Err: fmt.Errorf("%w: wizard %s after %d steps", ErrApplicationFailed, attempt.State, attempt.Steps)}
	}
	return nil
}

func (s *run) notAttempted(items []*jobs.Listing) {
	for _, l := range items {
		l.Outcome = jobs.OutcomeNotAttempted
	}
	s.report.NotAttempted = append(s.report.NotAttempted, items...)
}

func (s *run) record(ctx context.Context, l *jobs.Listing) {
	if s.deps.History == nil {
		return
	}
	if err := s.deps.History.Record(ctx, s.report.RunID, l); err != nil {
		s.log.Warn("could not record application", append(logger.JobFields(l.URL, l.Title, l.Company), zap.Error(err))...)
	}
}

func (s *run) excludeUnsuitable() {
	if !s.cfg.ExcludeUnsuitable || len(s.report.SkippedUnsuitable) == 0 {
		return
	}
	unsuitable := &jobs.Listings{Items: s.report.SkippedUnsuitable}
	if err := filtering.AppendToExcludeFile(s.cfg.ExcludeFile, unsuitable, jobs.ExcludeActorScorer, "unsuitable"); err != nil {
		s.log.Warn("could not update exclude file", zap.String("path", s.cfg.ExcludeFile), zap.Error(err))
		return
	}
	s.log.Info("unsuitable jobs added to exclude file",
		zap.String("path", s.cfg.ExcludeFile),
		zap.Int("count", unsuitable.Len()),
	)
}

func (s *run) publish() {
	s.deps.Observer.OnStatsUpdate(s.report.Stats)
}
