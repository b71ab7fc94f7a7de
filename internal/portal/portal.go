// Package portal implements the job site flows around the apply wizard:
// signing in, running a search, reading a description and opening the
// quick-apply dialog of a posting.
package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/quickapply/internal/driver"
	"github.com/spigell/quickapply/internal/utils"
)

var (
	// ErrLoginFailed means the credentials were rejected or the signed-in
	// page was not reached in time. It is fatal to a run.
	ErrLoginFailed = errors.New("login failed")
	// ErrSearchFailed means the search form could not be submitted.
	ErrSearchFailed = errors.New("search failed")
	// ErrNoQuickApply means the posting page has no quick-apply button.
	ErrNoQuickApply = errors.New("quick apply button not found")
)

// Site holds the URLs of the job site.
type Site struct {
	LoginURL string `mapstructure:"login-url"`
	JobsURL  string `mapstructure:"jobs-url"`
	// SignedInMarker is a URL fragment present once the login succeeded.
	SignedInMarker string `mapstructure:"signed-in-marker"`
}

// DefaultSite returns the default job site.
func DefaultSite() Site {
	return Site{
		LoginURL:       "https://www.linkedin.com/login",
		JobsURL:        "https://www.linkedin.com/jobs/",
		SignedInMarker: "linkedin.com/feed",
	}
}

// Selectors locate the controls the portal flows interact with.
type Selectors struct {
	LoginIdentity      string   `mapstructure:"login-identity"`
	LoginSecret        string   `mapstructure:"login-secret"`
	LoginSubmit        string   `mapstructure:"login-submit"`
	SearchKeywords     string   `mapstructure:"search-keywords"`
	SearchLocation     string   `mapstructure:"search-location"`
	SearchSubmit       string   `mapstructure:"search-submit"`
	Description        []string `mapstructure:"description"`
	QuickApply         string   `mapstructure:"quick-apply"`
	QuickApplyFallback string   `mapstructure:"quick-apply-fallback"`
}

// DefaultSelectors returns selectors for the default job site.
func DefaultSelectors() Selectors {
	return Selectors{
		LoginIdentity:  "//input[@id='username']",
		LoginSecret:    "//input[@id='password']",
		LoginSubmit:    "//button[@type='submit']",
		SearchKeywords: "//input[contains(@placeholder, 'Search jobs')]",
		SearchLocation: "//input[contains(@placeholder, 'City, state, or zip code')]",
		SearchSubmit:   "//button[contains(@class, 'jobs-search-box__submit-button')]",
		Description: []string{
			"//div[contains(@class, 'jobs-description-content__text')]",
			"//div[contains(@class, 'jobs-box__html-content')]",
			"//div[contains(@class, 'job-description')]",
		},
		QuickApply:         "//button[contains(@class, 'jobs-apply-button') and contains(., 'Easy Apply')]",
		QuickApplyFallback: "//button[contains(text(), 'Easy Apply')]",
	}
}

// Config configures a Portal.
type Config struct {
	Site      Site
	Selectors Selectors
	// Timeout bounds every explicit wait.
	Timeout time.Duration
	// Settle is the pause after navigation and clicks.
	Settle time.Duration
	// Poll is the wait polling interval; zero uses the driver default.
	Poll time.Duration
}

// Portal runs site flows on a driver.
type Portal struct {
	cfg    Config
	drv    driver.Driver
	logger *zap.Logger
}

const defaultTimeout = 10 * time.Second

// New creates a Portal bound to drv.
func New(cfg Config, drv driver.Driver, logger *zap.Logger) *Portal {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Portal{cfg: cfg, drv: drv, logger: logger}
}

// Login signs in with the identity/secret pair and waits until the signed-in
// page is reached. Every failure wraps ErrLoginFailed.
func (p *Portal) Login(ctx context.Context, identity, secret string) error {
	sel := p.cfg.Selectors

	p.logger.Info("navigating to login page", zap.String("url", p.cfg.Site.LoginURL))
	if err := p.drv.Navigate(ctx, p.cfg.Site.LoginURL); err != nil {
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	field, err := driver.WaitUntil(ctx, p.drv, driver.Present(sel.LoginIdentity), p.cfg.Timeout, p.cfg.Poll)
	if err != nil {
		return fmt.Errorf("%w: identity field: %w", ErrLoginFailed, err)
	}
	if err := p.drv.TypeText(ctx, field, identity); err != nil {
		return fmt.Errorf("%w: type identity: %w", ErrLoginFailed, err)
	}

	if err := p.typeInto(ctx, sel.LoginSecret, secret); err != nil {
		return fmt.Errorf("%w: secret field: %w", ErrLoginFailed, err)
	}
	if err := p.click(ctx, sel.LoginSubmit); err != nil {
		return fmt.Errorf("%w: submit: %w", ErrLoginFailed, err)
	}

	if _, err := driver.WaitUntil(ctx, p.drv, driver.URLContains(p.cfg.Site.SignedInMarker), p.cfg.Timeout, p.cfg.Poll); err != nil {
		return fmt.Errorf("%w: signed-in page not reached: %w", ErrLoginFailed, err)
	}

	p.logger.Info("logged in")
	return nil
}

// Search opens the jobs page and submits the search form. Empty keywords or
// location leave the corresponding field untouched.
func (p *Portal) Search(ctx context.Context, keywords, location string) error {
	sel := p.cfg.Selectors

	if err := p.drv.Navigate(ctx, p.cfg.Site.JobsURL); err != nil {
		return fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}
	if err := utils.WaitFor(ctx, p.cfg.Settle); err != nil {
		return err
	}

	if keywords = strings.TrimSpace(keywords); keywords != "" {
		field, err := driver.WaitUntil(ctx, p.drv, driver.Present(sel.SearchKeywords), p.cfg.Timeout, p.cfg.Poll)
		if err != nil {
			return fmt.Errorf("%w: keywords field: %w", ErrSearchFailed, err)
		}
		if err := p.drv.TypeText(ctx, field, keywords); err != nil {
			return fmt.Errorf("%w: type keywords: %w", ErrSearchFailed, err)
		}
	}

	if location = strings.TrimSpace(location); location != "" {
		if err := p.typeInto(ctx, sel.SearchLocation, location); err != nil {
			return fmt.Errorf("%w: location field: %w", ErrSearchFailed, err)
		}
	}

	if err := p.click(ctx, sel.SearchSubmit); err != nil {
		return fmt.Errorf("%w: submit: %w", ErrSearchFailed, err)
	}
	if err := utils.WaitFor(ctx, p.cfg.Settle); err != nil {
		return err
	}

	p.logger.Info("job search completed",
		zap.String("keywords", keywords),
		zap.String("location", location),
	)
	return nil
}

// Description opens the posting and returns the text of the first
// description container found. No container yields an empty description.
func (p *Portal) Description(ctx context.Context, url string) (string, error) {
	if err := p.drv.Navigate(ctx, url); err != nil {
		return "", err
	}
	if err := utils.WaitFor(ctx, p.cfg.Settle); err != nil {
		return "", err
	}

	el, err := driver.FirstPresent(ctx, p.drv, p.cfg.Selectors.Description...)
	if driver.IsAbsent(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return p.drv.ReadText(ctx, el)
}

// OpenQuickApply opens the posting and clicks its quick-apply button, trying
// a clickable primary button first and a plain fallback second.
func (p *Portal) OpenQuickApply(ctx context.Context, url string) error {
	sel := p.cfg.Selectors

	if err := p.drv.Navigate(ctx, url); err != nil {
		return err
	}
	if err := utils.WaitFor(ctx, p.cfg.Settle); err != nil {
		return err
	}

	button, err := driver.WaitUntil(ctx, p.drv, driver.Clickable(sel.QuickApply), p.cfg.Timeout, p.cfg.Poll)
	if driver.IsAbsent(err) && sel.QuickApplyFallback != "" {
		button, err = p.drv.Locate(ctx, sel.QuickApplyFallback, nil)
	}
	if driver.IsAbsent(err) {
		return ErrNoQuickApply
	}
	if err != nil {
		return err
	}

	if err := p.drv.Click(ctx, button); err != nil {
		return fmt.Errorf("click quick apply: %w", err)
	}
	return utils.WaitFor(ctx, p.cfg.Settle)
}

func (p *Portal) typeInto(ctx context.Context, selector, text string) error {
	el, err := p.drv.Locate(ctx, selector, nil)
	if err != nil {
		return err
	}
	return p.drv.TypeText(ctx, el, text)
}

func (p *Portal) click(ctx context.Context, selector string) error {
	el, err := p.drv.Locate(ctx, selector, nil)
	if err != nil {
		return err
	}
	return p.drv.Click(ctx, el)
}
