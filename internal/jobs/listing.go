// Package jobs holds the job listing model shared by discovery, filtering,
// the apply loop and reporting.
package jobs

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Sentinels used when a card field cannot be located.
const (
	UnknownTitle    = "Unknown Title"
	UnknownCompany  = "Unknown Company"
	UnknownLocation = "Unknown Location"
)

// Field names accepted by Listings.Exclude.
const (
	URLField     = "URL"
	CompanyField = "Company"
)

// Outcome is the terminal classification of a listing after a run.
type Outcome string

const (
	OutcomeNone              Outcome = ""
	OutcomeApplied           Outcome = "applied"
	OutcomeFailed            Outcome = "failed"
	OutcomeSkippedUnsuitable Outcome = "skipped_unsuitable"
	OutcomeManualReview      Outcome = "manual_review"
	OutcomeNotAttempted      Outcome = "not_attempted"
	OutcomeExcluded          Outcome = "excluded"
)

// Listing is one posting found on a search results page. URL is the identity.
type Listing struct {
	URL              string  `json:"url" yaml:"url" mapstructure:"url"`
	Title            string  `json:"title" yaml:"title" mapstructure:"title"`
	Company          string  `json:"company" yaml:"company" mapstructure:"company"`
	Location         string  `json:"location" yaml:"location" mapstructure:"location"`
	HasQuickApply    bool    `json:"has_quick_apply" yaml:"has_quick_apply" mapstructure:"has_quick_apply"`
	Description      string  `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"-"`
	MatchScore       float64 `json:"match_score" yaml:"match_score" mapstructure:"-"`
	IsSuitable       bool    `json:"is_suitable" yaml:"is_suitable" mapstructure:"-"`
	MatchExplanation string  `json:"match_explanation,omitempty" yaml:"match_explanation,omitempty" mapstructure:"-"`
	Outcome          Outcome `json:"outcome,omitempty" yaml:"outcome,omitempty" mapstructure:"-"`
	Error            string  `json:"error,omitempty" yaml:"error,omitempty" mapstructure:"-"`
}

// GetStringField returns the value of a field addressable by Exclude.
func (l *Listing) GetStringField(name string) string {
	switch name {
	case URLField:
		return l.URL
	case CompanyField:
		return l.Company
	default:
		return ""
	}
}

// Listings is an ordered collection of postings.
type Listings struct {
	Items []*Listing
}

// Len returns the number of listings.
func (l *Listings) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Items)
}

// FindByURL returns the listing with the given URL or nil.
func (l *Listings) FindByURL(url string) *Listing {
	for _, item := range l.Items {
		if item.URL == url {
			return item
		}
	}
	return nil
}

// URLs returns the listing URLs in order.
func (l *Listings) URLs() []string {
	urls := make([]string, 0, len(l.Items))
	for _, item := range l.Items {
		urls = append(urls, item.URL)
	}
	return urls
}

// Exclude removes every listing whose field equals one of targets and returns
// the URLs of the removed listings. Order of the remaining listings is kept.
func (l *Listings) Exclude(name string, targets []string) []string {
	if len(targets) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		set[t] = struct{}{}
	}

	var excluded []string
	kept := l.Items[:0]
	for _, item := range l.Items {
		if _, ok := set[item.GetStringField(name)]; ok {
			excluded = append(excluded, item.URL)
			continue
		}
		kept = append(kept, item)
	}
	for i := len(kept); i < len(l.Items); i++ {
		l.Items[i] = nil
	}
	l.Items = kept

	return excluded
}

// Partition splits listings by HasQuickApply preserving discovery order.
func (l *Listings) Partition() (quick, manual *Listings) {
	quick, manual = &Listings{}, &Listings{}
	for _, item := range l.Items {
		if item.HasQuickApply {
			quick.Items = append(quick.Items, item)
		} else {
			manual.Items = append(manual.Items, item)
		}
	}
	return quick, manual
}

// SortByScore orders listings by descending MatchScore. Ties keep their order.
func (l *Listings) SortByScore() {
	sort.SliceStable(l.Items, func(i, j int) bool {
		return l.Items[i].MatchScore > l.Items[j].MatchScore
	})
}

// ReportByCompany groups listings by company for interactive review.
func (l *Listings) ReportByCompany() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, item := range l.Items {
		entry := map[string]string{
			"title":       item.Title,
			"url":         item.URL,
			"location":    item.Location,
			"quick_apply": fmt.Sprintf("%t", item.HasQuickApply),
		}
		if item.MatchExplanation != "" {
			entry["match_score"] = fmt.Sprintf("%.2f", item.MatchScore)
			entry["match"] = item.MatchExplanation
		}
		report[item.Company] = append(report[item.Company], entry)
	}
	return report
}

// DumpToTmpFile writes the listings as indented JSON into a temporary file
// and returns its name.
func (l *Listings) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "listings_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(l); err != nil {
		return "", err
	}
	return file.Name(), nil
}
