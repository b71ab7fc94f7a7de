// Package driver defines the narrow page automation capability the rest of
// the tool is written against. Selectors are XPath expressions.
package driver

import (
	"context"
	"errors"
)

var (
	// ErrElementNotFound means a selector matched nothing. Callers treat it as
	// "feature absent", never as a failure of the run.
	ErrElementNotFound = errors.New("element not found")
	// ErrTimedOut means a wait condition was not met within its timeout.
	ErrTimedOut = errors.New("timed out")
)

// Element is an opaque handle to a located node. It is only valid for the
// Driver that returned it.
type Element interface {
	// Selector returns the expression the element was located with.
	Selector() string
}

// Driver is a single browser session. It is not safe for concurrent use.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	// Locate returns the first match of selector inside scope (the whole page
	// when scope is nil) or ErrElementNotFound. It does not wait.
	Locate(ctx context.Context, selector string, scope Element) (Element, error)
	// LocateAll returns every match of selector inside scope. No match is an
	// empty slice, not an error.
	LocateAll(ctx context.Context, selector string, scope Element) ([]Element, error)
	Click(ctx context.Context, el Element) error
	TypeText(ctx context.Context, el Element, text string) error
	ReadText(ctx context.Context, el Element) (string, error)
	// ReadAttribute reports ok=false when the attribute is not set.
	ReadAttribute(ctx context.Context, el Element, name string) (value string, ok bool, err error)
	IsEnabled(ctx context.Context, el Element) (bool, error)
	CurrentURL(ctx context.Context) (string, error)
	ScrollToBottom(ctx context.Context) error
	DocumentHeight(ctx context.Context) (int, error)
	Close() error
}

// IsAbsent reports whether err only signals a missing element or an expired
// wait. Such errors are expected while probing a page.
func IsAbsent(err error) bool {
	return errors.Is(err, ErrElementNotFound) || errors.Is(err, ErrTimedOut)
}
