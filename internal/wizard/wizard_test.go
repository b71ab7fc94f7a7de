package wizard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/quickapply/internal/driver/drivertest"
)

type page struct {
	submit, next, review bool
	disabledSubmit       bool
	success              bool
}

// script renders pages[0] and advances to the following page on every click.
// The last page repeats once the script is exhausted.
func script(pages ...page) *drivertest.Fake {
	f := drivertest.New()
	sel := DefaultSelectors()

	var render func(i int)
	render = func(i int) {
		if i >= len(pages) {
			i = len(pages) - 1
		}
		p := pages[i]
		f.Clear()
		advance := func(*drivertest.Fake) { render(i + 1) }
		if p.submit {
			f.Set(sel.Submit, &drivertest.Node{Disabled: p.disabledSubmit, OnClick: advance})
		}
		if p.next {
			f.Set(sel.Next, &drivertest.Node{OnClick: advance})
		}
		if p.review {
			f.Set(sel.Review, &drivertest.Node{OnClick: advance})
		}
		if p.success {
			f.Set(sel.Success, &drivertest.Node{Text: "Application submitted"})
		}
	}
	render(0)
	return f
}

func newMachine() *Machine {
	return New(Config{Selectors: DefaultSelectors()}, nil)
}

func TestNextNextSubmitIsSubmittedInThreeSteps(t *testing.T) {
	f := script(
		page{next: true},
		page{next: true},
		page{submit: true},
		page{success: true},
	)

	attempt, err := newMachine().Run(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, Submitted, attempt.State)
	assert.Equal(t, 3, attempt.Steps)
	assert.Equal(t, 2, f.ClickCount(DefaultSelectors().Next))
	assert.Equal(t, 1, f.ClickCount(DefaultSelectors().Submit))
}

func TestNoControlsIsAbandonedAfterOneStep(t *testing.T) {
	f := script(page{})

	attempt, err := newMachine().Run(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, Abandoned, attempt.State)
	assert.Equal(t, 1, attempt.Steps)
	assert.Empty(t, f.Clicks)
}

func TestNoControlsButSuccessMarkerIsSubmitted(t *testing.T) {
	f := script(page{success: true})

	attempt, err := newMachine().Run(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, Submitted, attempt.State)
	assert.Equal(t, 1, attempt.Steps)
}

func TestEndlessNextHitsStepCap(t *testing.T) {
	f := script(
		page{next: true}, page{next: true}, page{next: true},
		page{next: true}, page{next: true}, page{next: true},
		page{submit: true},
		page{success: true},
	)

	attempt, err := newMachine().Run(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, Abandoned, attempt.State)
	assert.Equal(t, DefaultMaxSteps, attempt.Steps)
	assert.Equal(t, DefaultMaxSteps, f.ClickCount(DefaultSelectors().Next))
	assert.Zero(t, f.ClickCount(DefaultSelectors().Submit))
}

func TestSubmitWithoutSuccessContinues(t *testing.T) {
	f := script(
		page{submit: true},
		page{review: true},
		page{submit: true},
		page{success: true},
	)

	attempt, err := newMachine().Run(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, Submitted, attempt.State)
	assert.Equal(t, 3, attempt.Steps)
	assert.Equal(t, 1, f.ClickCount(DefaultSelectors().Review))
}

func TestPriorityPrefersSubmitOverNext(t *testing.T) {
	f := script(
		page{submit: true, next: true, review: true},
		page{success: true},
	)

	attempt, err := newMachine().Run(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, Submitted, attempt.State)
	assert.Zero(t, f.ClickCount(DefaultSelectors().Next))
}

func TestDisabledSubmitFallsThrough(t *testing.T) {
	f := script(
		page{submit: true, disabledSubmit: true, next: true},
		page{submit: true},
		page{success: true},
	)

	attempt, err := newMachine().Run(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, Submitted, attempt.State)
	assert.Equal(t, 2, attempt.Steps)
	assert.Equal(t, []string{DefaultSelectors().Next, DefaultSelectors().Submit}, f.Clicks)
}

func TestDisabledOnlyControlIsAbandoned(t *testing.T) {
	f := script(page{submit: true, disabledSubmit: true})

	attempt, err := newMachine().Run(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, Abandoned, attempt.State)
	assert.Equal(t, 1, attempt.Steps)
}

func TestClickErrorAbandonsWithoutRetry(t *testing.T) {
	f := drivertest.New()
	boom := errors.New("element detached")
	f.Set(DefaultSelectors().Next, &drivertest.Node{ClickErr: boom})

	attempt, err := newMachine().Run(context.Background(), f)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Abandoned, attempt.State)
	assert.Equal(t, 1, attempt.Steps)
}

func TestCustomStepCap(t *testing.T) {
	f := script(page{review: true})

	m := New(Config{Selectors: DefaultSelectors(), MaxSteps: 2}, nil)
	attempt, err := m.Run(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, Abandoned, attempt.State)
	assert.Equal(t, 2, attempt.Steps)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "submitted", Submitted.String())
	assert.Equal(t, "abandoned", Abandoned.String())
	assert.Equal(t, "awaiting_action", AwaitingAction.String())
}
