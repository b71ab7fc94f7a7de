package driver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultPollInterval is used by WaitUntil when no interval is given.
const DefaultPollInterval = 250 * time.Millisecond

// Condition is evaluated repeatedly by WaitUntil. It returns ok=true once
// satisfied. The element is optional and is handed back to the caller.
type Condition func(ctx context.Context, d Driver) (el Element, ok bool, err error)

var after = time.After

// WaitUntil polls cond until it holds, the timeout expires or ctx is done.
// Absence errors returned by cond are treated as "not yet". Any other error
// stops the wait.
func WaitUntil(ctx context.Context, d Driver, cond Condition, timeout, poll time.Duration) (Element, error) {
	if poll <= 0 {
		poll = DefaultPollInterval
	}

	deadline := after(timeout)
	for {
		el, ok, err := cond(ctx, d)
		if err != nil && !IsAbsent(err) {
			return nil, err
		}
		if ok {
			return el, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			return nil, ErrTimedOut
		case <-after(poll):
		}
	}
}

// Present holds once selector matches an element.
func Present(selector string) Condition {
	return func(ctx context.Context, d Driver) (Element, bool, error) {
		el, err := d.Locate(ctx, selector, nil)
		if err != nil {
			return nil, false, err
		}
		return el, true, nil
	}
}

// Clickable holds once selector matches an enabled element.
func Clickable(selector string) Condition {
	return func(ctx context.Context, d Driver) (Element, bool, error) {
		el, err := d.Locate(ctx, selector, nil)
		if err != nil {
			return nil, false, err
		}
		enabled, err := d.IsEnabled(ctx, el)
		if err != nil {
			return nil, false, err
		}
		return el, enabled, nil
	}
}

// URLContains holds once the current URL contains substr.
func URLContains(substr string) Condition {
	return func(ctx context.Context, d Driver) (Element, bool, error) {
		u, err := d.CurrentURL(ctx)
		if err != nil {
			return nil, false, err
		}
		return nil, strings.Contains(u, substr), nil
	}
}

// FirstPresent returns the first selector in order that matches an element.
func FirstPresent(ctx context.Context, d Driver, selectors ...string) (Element, error) {
	for _, selector := range selectors {
		el, err := d.Locate(ctx, selector, nil)
		if err == nil {
			return el, nil
		}
		if !errors.Is(err, ErrElementNotFound) {
			return nil, fmt.Errorf("locate %s: %w", selector, err)
		}
	}
	return nil, ErrElementNotFound
}

// TextOr reads the text of the first match of selector inside scope and
// returns fallback when nothing matches or the text is blank.
func TextOr(ctx context.Context, d Driver, scope Element, selector, fallback string) string {
	el, err := d.Locate(ctx, selector, scope)
	if err != nil {
		return fallback
	}
	text, err := d.ReadText(ctx, el)
	if err != nil {
		return fallback
	}
	if text = strings.TrimSpace(text); text == "" {
		return fallback
	}
	return text
}
