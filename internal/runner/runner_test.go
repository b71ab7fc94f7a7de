package runner

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/quickapply/internal/driver"
	"github.com/spigell/quickapply/internal/driver/drivertest"
	"github.com/spigell/quickapply/internal/filtering"
	"github.com/spigell/quickapply/internal/jobs"
	"github.com/spigell/quickapply/internal/matching"
	"github.com/spigell/quickapply/internal/observer"
	"github.com/spigell/quickapply/internal/portal"
	"github.com/spigell/quickapply/internal/resume"
	"github.com/spigell/quickapply/internal/secrets"
	"github.com/spigell/quickapply/internal/wizard"
)

type stubSite struct {
	loginErr     error
	searchErr    error
	descriptions map[string]string
	openErr      map[string]error
	opened       []string
	onOpen       func(url string)
}

func (s *stubSite) Login(context.Context, string, string) error { return s.loginErr }

func (s *stubSite) Search(context.Context, string, string) error { return s.searchErr }

func (s *stubSite) Description(_ context.Context, url string) (string, error) {
	return s.descriptions[url], nil
}

func (s *stubSite) OpenQuickApply(_ context.Context, url string) error {
	s.opened = append(s.opened, url)
	if s.onOpen != nil {
		s.onOpen(url)
	}
	return s.openErr[url]
}

type stubLister struct {
	items []*jobs.Listing
	err   error
}

func (l stubLister) Discover(context.Context, driver.Driver) (*jobs.Listings, error) {
	return &jobs.Listings{Items: l.items}, l.err
}

// scriptedApplier returns the next outcome on every call.
type scriptedApplier struct {
	outcomes []wizard.State
	calls    int
	panicAt  int
}

func (a *scriptedApplier) Run(context.Context, driver.Driver) (wizard.Attempt, error) {
	a.calls++
	if a.panicAt == a.calls {
		panic("stale element")
	}
	state := wizard.Submitted
	if len(a.outcomes) >= a.calls {
		state = a.outcomes[a.calls-1]
	}
	return wizard.Attempt{Steps: 2, State: state}, nil
}

type statsRecorder struct {
	last  observer.Stats
	calls int
}

func (r *statsRecorder) OnLogLine(string) {}

func (r *statsRecorder) OnStatsUpdate(s observer.Stats) {
	r.last = s
	r.calls++
}

type memHistory struct {
	recorded map[string]jobs.Outcome
}

func (h *memHistory) Record(_ context.Context, _ string, l *jobs.Listing) error {
	if h.recorded == nil {
		h.recorded = make(map[string]jobs.Outcome)
	}
	h.recorded[l.URL] = l.Outcome
	return nil
}

func sampleListings() []*jobs.Listing {
	return []*jobs.Listing{
		{URL: "q1", Title: "Python Developer", Company: "Acme", HasQuickApply: true},
		{URL: "m1", Title: "Data Engineer", Company: "Globex"},
		{URL: "q2", Title: "Backend Engineer", Company: "Initech", HasQuickApply: true},
		{URL: "q3", Title: "Platform Engineer", Company: "Umbrella", HasQuickApply: true},
	}
}

func newRunner(cfg Config, deps Deps) *Runner {
	if deps.Driver == nil {
		deps.Driver = drivertest.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return New(cfg, deps)
}

func outcomeURLs(items []*jobs.Listing) []string {
	urls := make([]string, 0, len(items))
	for _, l := range items {
		urls = append(urls, l.URL)
	}
	return urls
}

func TestRunAppliesAndRoutesManual(t *testing.T) {
	site := &stubSite{}
	applier := &scriptedApplier{outcomes: []wizard.State{wizard.Submitted, wizard.Abandoned, wizard.Submitted}}
	stats := &statsRecorder{}
	history := &memHistory{}

	r := newRunner(Config{}, Deps{
		Site:     site,
		Lister:   stubLister{items: sampleListings()},
		Applier:  applier,
		Observer: stats,
		History:  history,
	})

	rep, err := r.Run(context.Background(), secrets.Credentials{Identity: "me", Secret: "pw"})
	require.NoError(t, err)

	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, []string{"q1", "q3"}, outcomeURLs(rep.Applied))
	assert.Equal(t, []string{"q2"}, outcomeURLs(rep.Failed))
	assert.Equal(t, []string{"m1"}, outcomeURLs(rep.ManualReview))
	assert.Empty(t, rep.SkippedUnsuitable)
	assert.Empty(t, rep.NotAttempted)

	require.Len(t, rep.Failed, 1)
	assert.Equal(t, jobs.OutcomeFailed, rep.Failed[0].Outcome)
	assert.Contains(t, rep.Failed[0].Error, "wizard abandoned")
	assert.Equal(t, jobs.OutcomeManualReview, rep.ManualReview[0].Outcome)

	assert.Equal(t, observer.Stats{Discovered: 4, QuickApply: 3, Manual: 1, Applied: 2, Failed: 1}, rep.Stats)
	assert.Equal(t, rep.Stats, stats.last)
	assert.Equal(t, map[string]jobs.Outcome{"q1": jobs.OutcomeApplied, "q2": jobs.OutcomeFailed, "q3": jobs.OutcomeApplied}, history.recorded)
}

func TestRunSkipsUnsuitableWithProfile(t *testing.T) {
	profile, err := resume.Parse("Python developer with SQL and Django, 4 years experience")
	require.NoError(t, err)

	site := &stubSite{descriptions: map[string]string{
		"q1": "We need strong Python and SQL experience with Django",
		"q2": "Forklift operator for warehouse night shifts",
		"q3": "Python developer with SQL and Django experience",
	}}
	excludePath := filepath.Join(t.TempDir(), "exclude.json")

	r := newRunner(Config{ExcludeUnsuitable: true, ExcludeFile: excludePath}, Deps{
		Site:    site,
		Lister:  stubLister{items: sampleListings()},
		Applier: &scriptedApplier{},
		Matcher: matching.NewScorer(matching.DefaultMinScore, nil),
		Profile: profile,
	})

	rep, err := r.Run(context.Background(), secrets.Credentials{})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"q1", "q3"}, outcomeURLs(rep.Applied))
	assert.Equal(t, []string{"q2"}, outcomeURLs(rep.SkippedUnsuitable))
	assert.NotContains(t, site.opened, "q2")
	assert.True(t, rep.Resume.Provided)
	assert.Equal(t, 4, rep.Stats.Suitable+rep.Stats.Unsuitable)

	excluded, err := jobs.ExcludedFromFile(excludePath)
	require.NoError(t, err)
	assert.Equal(t, []string{"q2"}, excluded.URLs())
}

func TestRunStopsAtApplicationCap(t *testing.T) {
	r := newRunner(Config{MaxApplications: 1}, Deps{
		Site:    &stubSite{},
		Lister:  stubLister{items: sampleListings()},
		Applier: &scriptedApplier{},
	})

	rep, err := r.Run(context.Background(), secrets.Credentials{})
	require.NoError(t, err)

	assert.Equal(t, []string{"q1"}, outcomeURLs(rep.Applied))
	assert.Equal(t, []string{"q2", "q3"}, outcomeURLs(rep.NotAttempted))
	for _, l := range rep.NotAttempted {
		assert.Equal(t, jobs.OutcomeNotAttempted, l.Outcome)
	}
}

func TestRunCapCountsSubmissionsOnly(t *testing.T) {
	r := newRunner(Config{MaxApplications: 1}, Deps{
		Site:    &stubSite{},
		Lister:  stubLister{items: sampleListings()},
		Applier: &scriptedApplier{outcomes: []wizard.State{wizard.Abandoned, wizard.Submitted}},
	})

	rep, err := r.Run(context.Background(), secrets.Credentials{})
	require.NoError(t, err)

	assert.Equal(t, []string{"q1"}, outcomeURLs(rep.Failed))
	assert.Equal(t, []string{"q2"}, outcomeURLs(rep.Applied))
	assert.Equal(t, []string{"q3"}, outcomeURLs(rep.NotAttempted))
}

func TestStopIsCheckedBetweenJobs(t *testing.T) {
	site := &stubSite{}
	var r *Runner
	site.onOpen = func(string) { r.Stop() }

	r = newRunner(Config{}, Deps{
		Site:    site,
		Lister:  stubLister{items: sampleListings()},
		Applier: &scriptedApplier{},
	})

	rep, err := r.Run(context.Background(), secrets.Credentials{})
	require.NoError(t, err)

	assert.Equal(t, []string{"q1"}, outcomeURLs(rep.Applied), "attempt in flight finishes")
	assert.Equal(t, []string{"q2", "q3"}, outcomeURLs(rep.NotAttempted))
}

func TestRunPerJobFailuresAreIsolated(t *testing.T) {
	site := &stubSite{openErr: map[string]error{"q1": portal.ErrNoQuickApply}}
	applier := &scriptedApplier{panicAt: 1}

	r := newRunner(Config{}, Deps{
		Site:    site,
		Lister:  stubLister{items: sampleListings()},
		Applier: applier,
	})

	rep, err := r.Run(context.Background(), secrets.Credentials{})
	require.NoError(t, err)

	assert.Equal(t, []string{"q1", "q2"}, outcomeURLs(rep.Failed))
	assert.Equal(t, []string{"q3"}, outcomeURLs(rep.Applied))
	assert.Contains(t, rep.Failed[1].Error, "panic: stale element")
}

func TestApplyErrorsAreJobErrors(t *testing.T) {
	site := &stubSite{openErr: map[string]error{"q1": portal.ErrNoQuickApply}}
	r := newRunner(Config{}, Deps{Site: site, Applier: &scriptedApplier{}})
	s := &run{Runner: r, log: zap.NewNop()}

	err := s.apply(context.Background(), &jobs.Listing{URL: "q1"})

	var jobErr *JobError
	require.ErrorAs(t, err, &jobErr)
	assert.Equal(t, "q1", jobErr.URL)
	assert.ErrorIs(t, err, ErrApplicationFailed)
	assert.ErrorIs(t, err, portal.ErrNoQuickApply)
}

func TestRunLoginFailureIsFatal(t *testing.T) {
	applier := &scriptedApplier{}
	r := newRunner(Config{}, Deps{
		Site:    &stubSite{loginErr: portal.ErrLoginFailed},
		Lister:  stubLister{items: sampleListings()},
		Applier: applier,
	})

	rep, err := r.Run(context.Background(), secrets.Credentials{})
	require.ErrorIs(t, err, portal.ErrLoginFailed)
	require.NotNil(t, rep)
	assert.Contains(t, rep.Error, "login failed")
	assert.Zero(t, applier.calls)
	assert.Zero(t, rep.Stats.Discovered)
}

func TestRunDeclinedApproval(t *testing.T) {
	applier := &scriptedApplier{}
	r := newRunner(Config{}, Deps{
		Site:    &stubSite{},
		Lister:  stubLister{items: sampleListings()},
		Applier: applier,
		Approve: func(_ context.Context, quick *jobs.Listings) (bool, error) {
			assert.Equal(t, 3, quick.Len())
			return false, nil
		},
	})

	rep, err := r.Run(context.Background(), secrets.Credentials{})
	require.NoError(t, err)
	assert.Zero(t, applier.calls)
	assert.Len(t, rep.NotAttempted, 3)
	assert.Len(t, rep.ManualReview, 1)
}

func TestRunExcludesByFilters(t *testing.T) {
	r := newRunner(Config{}, Deps{
		Site:    &stubSite{},
		Lister:  stubLister{items: sampleListings()},
		Applier: &scriptedApplier{},
		Filters: filtering.New([]filtering.Filter{filtering.NewExcludedCompanies([]string{"Acme", "Globex"}, nil)}, nil),
	})

	rep, err := r.Run(context.Background(), secrets.Credentials{})
	require.NoError(t, err)

	assert.Equal(t, []string{"q1", "m1"}, outcomeURLs(rep.Excluded))
	assert.Equal(t, []string{"q2", "q3"}, outcomeURLs(rep.Applied))
	assert.Empty(t, rep.ManualReview)
	assert.Equal(t, 4, rep.Stats.Discovered)
}

func TestRunDiscoveryErrorAndPanic(t *testing.T) {
	boom := errors.New("results page did not load")
	r := newRunner(Config{}, Deps{Site: &stubSite{}, Lister: stubLister{err: boom}, Applier: &scriptedApplier{}})

	_, err := r.Run(context.Background(), secrets.Credentials{})
	assert.ErrorIs(t, err, boom)

	r = newRunner(Config{}, Deps{Site: &stubSite{}, Lister: nil, Applier: &scriptedApplier{}})
	rep, err := r.Run(context.Background(), secrets.Credentials{})
	require.Error(t, err)
	assert.Contains(t, rep.Error, "run panicked")
}
