// Package browser implements driver.Driver on top of a Chrome session
// controlled through go-rod.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/spigell/quickapply/internal/driver"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultNavTimeout = 30 * time.Second
)

// Config configures the Chrome session.
type Config struct {
	// RemoteURL is the DevTools WebSocket URL of an already running Chrome.
	// Empty launches a local browser.
	RemoteURL string
	Headless  bool
	// Timeout bounds every element operation.
	Timeout time.Duration
	// NavigationTimeout bounds page loads.
	NavigationTimeout time.Duration
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = defaultNavTimeout
	}
}

// Session is a single Chrome tab. It is not safe for concurrent use.
type Session struct {
	cfg     Config
	logger  *zap.Logger
	browser *rod.Browser
	page    *rod.Page
	lnch    *launcher.Launcher
}

var _ driver.Driver = (*Session)(nil)

// Launch starts (or connects to) Chrome and opens a blank tab.
func Launch(ctx context.Context, cfg Config, logger *zap.Logger) (*Session, error) {
	cfg.defaults()

	s := &Session{cfg: cfg, logger: logger}

	wsURL := cfg.RemoteURL
	if wsURL != "" {
		logger.Info("connecting to remote browser", zap.String("url", wsURL))
	} else {
		l := launcher.New().Headless(cfg.Headless)
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		s.lnch = l
		logger.Info("launched local browser", zap.Bool("headless", cfg.Headless))
	}

	b := rod.New().ControlURL(wsURL).Context(ctx)
	if err := b.Connect(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	s.browser = b

	page, err := b.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}
	s.page = page

	return s, nil
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	p := s.page.Context(navCtx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, translate(err))
	}
	if err := p.WaitLoad(); err != nil {
		s.logger.Debug("wait load did not finish", zap.String("url", url), zap.Error(err))
	}
	return nil
}

func (s *Session) Locate(ctx context.Context, selector string, scope driver.Element) (driver.Element, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	var (
		el  *rod.Element
		err error
	)
	if scope == nil {
		el, err = s.page.Context(opCtx).Sleeper(rod.NotFoundSleeper).ElementX(selector)
	} else {
		parent, perr := unwrap(scope)
		if perr != nil {
			return nil, perr
		}
		el, err = parent.Context(opCtx).Sleeper(rod.NotFoundSleeper).ElementX(selector)
	}
	if err != nil {
		return nil, translate(err)
	}
	return &element{el: el, selector: selector}, nil
}

func (s *Session) LocateAll(ctx context.Context, selector string, scope driver.Element) ([]driver.Element, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	var (
		els rod.Elements
		err error
	)
	if scope == nil {
		els, err = s.page.Context(opCtx).ElementsX(selector)
	} else {
		parent, perr := unwrap(scope)
		if perr != nil {
			return nil, perr
		}
		els, err = parent.Context(opCtx).ElementsX(selector)
	}
	if err != nil {
		return nil, translate(err)
	}

	out := make([]driver.Element, 0, len(els))
	for _, el := range els {
		out = append(out, &element{el: el, selector: selector})
	}
	return out, nil
}

func (s *Session) Click(ctx context.Context, el driver.Element) error {
	return s.withElement(ctx, el, func(e *rod.Element) error {
		if err := e.ScrollIntoView(); err != nil {
			return err
		}
		return e.Click(proto.InputMouseButtonLeft, 1)
	})
}

func (s *Session) TypeText(ctx context.Context, el driver.Element, text string) error {
	return s.withElement(ctx, el, func(e *rod.Element) error {
		if err := e.SelectAllText(); err != nil {
			s.logger.Debug("select text before typing", zap.Error(err))
		}
		return e.Input(text)
	})
}

func (s *Session) ReadText(ctx context.Context, el driver.Element) (string, error) {
	var text string
	err := s.withElement(ctx, el, func(e *rod.Element) error {
		var err error
		text, err = e.Text()
		return err
	})
	return strings.TrimSpace(text), err
}

func (s *Session) ReadAttribute(ctx context.Context, el driver.Element, name string) (string, bool, error) {
	var value *string
	err := s.withElement(ctx, el, func(e *rod.Element) error {
		var err error
		value, err = e.Attribute(name)
		return err
	})
	if err != nil || value == nil {
		return "", false, err
	}
	return *value, true, nil
}

func (s *Session) IsEnabled(ctx context.Context, el driver.Element) (bool, error) {
	var disabled bool
	err := s.withElement(ctx, el, func(e *rod.Element) error {
		var err error
		disabled, err = e.Disabled()
		return err
	})
	return !disabled, err
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	info, err := s.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("browser: page info: %w", translate(err))
	}
	return info.URL, nil
}

func (s *Session) ScrollToBottom(ctx context.Context) error {
	_, err := s.page.Context(ctx).Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	if err != nil {
		return fmt.Errorf("browser: scroll: %w", translate(err))
	}
	return nil
}

func (s *Session) DocumentHeight(ctx context.Context) (int, error) {
	res, err := s.page.Context(ctx).Eval(`() => document.body.scrollHeight`)
	if err != nil {
		return 0, fmt.Errorf("browser: document height: %w", translate(err))
	}
	return res.Value.Int(), nil
}

// Close closes the browser and kills a locally launched process.
func (s *Session) Close() error {
	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	s.cleanup()
	return err
}

func (s *Session) cleanup() {
	if s.lnch != nil {
		s.lnch.Kill()
		s.lnch.Cleanup()
		s.lnch = nil
	}
}

func (s *Session) withElement(ctx context.Context, el driver.Element, fn func(*rod.Element) error) error {
	e, err := unwrap(el)
	if err != nil {
		return err
	}

	opCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	if err := fn(e.Context(opCtx)); err != nil {
		return fmt.Errorf("browser: %s: %w", el.Selector(), translate(err))
	}
	return nil
}

type element struct {
	el       *rod.Element
	selector string
}

func (e *element) Selector() string { return e.selector }

func unwrap(el driver.Element) (*rod.Element, error) {
	e, ok := el.(*element)
	if !ok || e.el == nil {
		return nil, fmt.Errorf("browser: foreign element %T", el)
	}
	return e.el, nil
}

// translate maps rod conditions onto the driver boundary errors.
func translate(err error) error {
	var notFound *rod.ElementNotFoundError
	switch {
	case errors.As(err, &notFound):
		return driver.ErrElementNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", driver.ErrTimedOut, err)
	default:
		return err
	}
}
