// Package discovery extracts job listings from a rendered results page and
// splits them into quick-apply and manual-review groups.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/quickapply/internal/driver"
	"github.com/spigell/quickapply/internal/jobs"
	"github.com/spigell/quickapply/internal/logger"
	"github.com/spigell/quickapply/internal/utils"
)

const (
	DefaultMaxRounds   = 25
	DefaultMaxDuration = 2 * time.Minute
	DefaultScrollPause = 2 * time.Second
)

var errNoLink = errors.New("card has no job link")

// Selectors locate result cards and their fields. Field selectors are
// relative to the card.
type Selectors struct {
	Card       string `mapstructure:"card"`
	Link       string `mapstructure:"link"`
	Company    string `mapstructure:"company"`
	Location   string `mapstructure:"location"`
	QuickApply string `mapstructure:"quick-apply"`
}

// DefaultSelectors returns selectors for the default job site.
func DefaultSelectors() Selectors {
	return Selectors{
		Card:       "//div[contains(@class, 'job-card-container')]",
		Link:       ".//a[contains(@class, 'job-card-list__title')]",
		Company:    ".//a[contains(@class, 'job-card-container__company-name')]",
		Location:   ".//li[contains(@class, 'job-card-container__metadata-item')]",
		QuickApply: ".//span[contains(text(), 'Easy Apply')]",
	}
}

// Config configures a Discoverer.
type Config struct {
	Selectors Selectors
	// ScrollPause is the wait between a scroll and the next height measurement.
	ScrollPause time.Duration
	// MaxRounds and MaxDuration cap the page growth loop.
	MaxRounds   int
	MaxDuration time.Duration
}

// Discoverer reads listings off the current page of a driver.
type Discoverer struct {
	cfg    Config
	logger *zap.Logger
}

var now = time.Now

// New creates a Discoverer. Zero caps are replaced by the defaults.
func New(cfg Config, logger *zap.Logger) *Discoverer {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = DefaultMaxDuration
	}
	if cfg.ScrollPause < 0 {
		cfg.ScrollPause = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{cfg: cfg, logger: logger}
}

// LoadAll scrolls to the bottom until the document height stops growing,
// the round cap is reached or the time cap expires. It returns the number
// of scroll rounds performed.
func (d *Discoverer) LoadAll(ctx context.Context, drv driver.Driver) (int, error) {
	last, err := drv.DocumentHeight(ctx)
	if err != nil {
		return 0, fmt.Errorf("measure page: %w", err)
	}

	deadline := now().Add(d.cfg.MaxDuration)
	rounds := 0
	for rounds < d.cfg.MaxRounds {
		if err := drv.ScrollToBottom(ctx); err != nil {
			return rounds, fmt.Errorf("scroll: %w", err)
		}
		rounds++

		if err := utils.WaitFor(ctx, d.cfg.ScrollPause); err != nil {
			return rounds, err
		}

		height, err := drv.DocumentHeight(ctx)
		if err != nil {
			return rounds, fmt.Errorf("measure page: %w", err)
		}
		if height <= last {
			return rounds, nil
		}
		last = height

		if !now().Before(deadline) {
			d.logger.Warn("page kept growing, stopping at time cap",
				zap.Int("rounds", rounds),
				zap.Duration("max_duration", d.cfg.MaxDuration),
			)
			return rounds, nil
		}
	}

	d.logger.Warn("page kept growing, stopping at round cap", zap.Int("rounds", rounds))
	return rounds, nil
}

// Discover loads every lazily rendered card and extracts one listing per
// card in page order. A card that cannot be read is logged and skipped.
// Listings repeating an already seen URL are dropped.
func (d *Discoverer) Discover(ctx context.Context, drv driver.Driver) (*jobs.Listings, error) {
	if _, err := d.LoadAll(ctx, drv); err != nil {
		return nil, err
	}

	cards, err := drv.LocateAll(ctx, d.cfg.Selectors.Card, nil)
	if err != nil {
		return nil, fmt.Errorf("locate cards: %w", err)
	}

	listings := &jobs.Listings{}
	seen := make(map[string]struct{}, len(cards))
	for i, card := range cards {
		listing, err := d.extract(ctx, drv, card)
		if err != nil {
			d.logger.Warn("skipping job card", zap.Int("card", i), zap.Error(err))
			continue
		}
		if _, dup := seen[listing.URL]; dup {
			d.logger.Debug("duplicate job card", logger.JobFields(listing.URL, listing.Title, listing.Company)...)
			continue
		}
		seen[listing.URL] = struct{}{}
		listings.Items = append(listings.Items, listing)
	}

	d.logger.Info("discovered job listings",
		zap.Int("cards", len(cards)),
		zap.Int("listings", listings.Len()),
	)
	return listings, nil
}

func (d *Discoverer) extract(ctx context.Context, drv driver.Driver, card driver.Element) (*jobs.Listing, error) {
	sel := d.cfg.Selectors

	link, err := drv.Locate(ctx, sel.Link, card)
	if err != nil {
		if driver.IsAbsent(err) {
			return nil, errNoLink
		}
		return nil, err
	}

	href, ok, err := drv.ReadAttribute(ctx, link, "href")
	if err != nil {
		return nil, fmt.Errorf("read link: %w", err)
	}
	if href = strings.TrimSpace(href); !ok || href == "" {
		return nil, errNoLink
	}

	title, err := drv.ReadText(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("read title: %w", err)
	}
	if title = strings.TrimSpace(title); title == "" {
		title = jobs.UnknownTitle
	}

	_, markerErr := drv.Locate(ctx, sel.QuickApply, card)
	if markerErr != nil && !driver.IsAbsent(markerErr) {
		return nil, fmt.Errorf("read quick apply marker: %w", markerErr)
	}

	fields := map[string]any{
		"url":             href,
		"title":           title,
		"company":         driver.TextOr(ctx, drv, card, sel.Company, jobs.UnknownCompany),
		"location":        driver.TextOr(ctx, drv, card, sel.Location, jobs.UnknownLocation),
		"has_quick_apply": markerErr == nil,
	}

	var listing jobs.Listing
	if err := mapstructure.Decode(fields, &listing); err != nil {
		return nil, fmt.Errorf("decode card: %w", err)
	}
	return &listing, nil
}

// Categorize partitions listings by quick-apply availability. When ranked is
// set each group is stable sorted by descending match score.
func Categorize(listings *jobs.Listings, ranked bool) (quick, manual *jobs.Listings) {
	quick, manual = listings.Partition()
	if ranked {
		quick.SortByScore()
		manual.SortByScore()
	}
	return quick, manual
}
