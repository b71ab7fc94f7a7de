package jobs

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"time"
)

// Exclusion actors recorded in the exclude file.
const (
	ExcludeActorUser   = "user"
	ExcludeActorScorer = "scorer"
)

// Excluded is the content of an exclude file.
type Excluded struct {
	Items []*ExcludedListing
}

// ExcludedListing is a posting that must not be considered again.
type ExcludedListing struct {
	URL        string
	Title      string
	Company    string
	Actor      string
	Reason     string `json:",omitempty"`
	ExcludedAt time.Time
}

// ToExcluded converts listings into exclude file entries.
func (l *Listings) ToExcluded(actor, reason string) *Excluded {
	excluded := &Excluded{}
	now := time.Now().UTC()
	for _, item := range l.Items {
		excluded.Items = append(excluded.Items, &ExcludedListing{
			URL:        item.URL,
			Title:      item.Title,
			Company:    item.Company,
			Actor:      actor,
			Reason:     reason,
			ExcludedAt: now,
		})
	}
	return excluded
}

// ExcludedFromFile reads an exclude file. A missing or empty file is an
// empty list.
func ExcludedFromFile(path string) (*Excluded, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Excluded{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return &Excluded{}, nil
	}

	var excluded Excluded
	if err := json.Unmarshal(data, &excluded); err != nil {
		return nil, err
	}
	return &excluded, nil
}

// Append adds entries whose URL is not present yet.
func (e *Excluded) Append(other *Excluded) {
	seen := make(map[string]struct{}, len(e.Items))
	for _, item := range e.Items {
		seen[item.URL] = struct{}{}
	}
	for _, item := range other.Items {
		if _, ok := seen[item.URL]; ok {
			continue
		}
		seen[item.URL] = struct{}{}
		e.Items = append(e.Items, item)
	}
}

// URLs returns the excluded URLs.
func (e *Excluded) URLs() []string {
	urls := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		urls = append(urls, item.URL)
	}
	return urls
}

// ToFile overwrites path with the list.
func (e *Excluded) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}
