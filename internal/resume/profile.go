package resume

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrUnparseableDocument is returned when a document carries no usable text.
var ErrUnparseableDocument = errors.New("unparseable document")

// Contact holds the first e-mail and phone found in a résumé. Empty means absent.
type Contact struct {
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
	Phone string `json:"phone,omitempty" yaml:"phone,omitempty"`
}

// Profile is the structured view of a résumé. It is built once per run and
// only read afterwards.
type Profile struct {
	Skills          map[string][]string `json:"skills" yaml:"skills"`
	ExperienceLevel string              `json:"experience_level" yaml:"experience_level"`
	YearsExperience int                 `json:"years_experience" yaml:"years_experience"`
	Education       []string            `json:"education,omitempty" yaml:"education,omitempty"`
	Contact         Contact             `json:"contact" yaml:"contact"`
	RawText         string              `json:"-" yaml:"-"`
}

var (
	yearsPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d+)\+?\s*years?\s*(?:of\s*)?experience`),
		regexp.MustCompile(`(\d+)\+?\s*years?\s*in`),
		regexp.MustCompile(`experience\s*(?:of\s*)?(\d+)\+?\s*years?`),
	}
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`(\+\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
)

// Parse extracts a Profile from plain résumé text.
//
// Skills are matched as plain substrings of the lower-cased text, so short
// tokens can hit inside longer words ("go" in "google").
func Parse(text string) (*Profile, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrUnparseableDocument
	}

	lower := strings.ToLower(text)

	return &Profile{
		Skills:          extractSkills(lower),
		ExperienceLevel: experienceLevel(lower),
		YearsExperience: yearsOfExperience(lower),
		Education:       extractEducation(text),
		Contact:         extractContact(text),
		RawText:         text,
	}, nil
}

// SkillCount returns the total number of matched skill tokens.
func (p *Profile) SkillCount() int {
	total := 0
	for _, skills := range p.Skills {
		total += len(skills)
	}
	return total
}

// FlattenSkills renders the skills as "<category>: tok tok " per catalog
// category, in catalog order.
func (p *Profile) FlattenSkills() string {
	var b strings.Builder
	for _, category := range Catalog {
		b.WriteString(category.Name)
		b.WriteString(": ")
		for _, skill := range p.Skills[category.Name] {
			b.WriteString(skill)
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// SkillTokens returns every matched skill in catalog order.
func (p *Profile) SkillTokens() []string {
	tokens := make([]string, 0, p.SkillCount())
	for _, category := range Catalog {
		tokens = append(tokens, p.Skills[category.Name]...)
	}
	return tokens
}

func extractSkills(lower string) map[string][]string {
	skills := make(map[string][]string, len(Catalog))
	for _, category := range Catalog {
		found := []string{}
		for _, skill := range category.Skills {
			if strings.Contains(lower, skill) {
				found = append(found, skill)
			}
		}
		skills[category.Name] = found
	}
	return skills
}

func experienceLevel(lower string) string {
	for _, lvl := range experienceLevels {
		for _, keyword := range lvl.keywords {
			if strings.Contains(lower, keyword) {
				return lvl.level
			}
		}
	}
	return LevelUnknown
}

func yearsOfExperience(lower string) int {
	best := 0
	for _, pattern := range yearsPatterns {
		for _, match := range pattern.FindAllStringSubmatch(lower, -1) {
			n, err := strconv.Atoi(match[1])
			if err != nil {
				continue
			}
			if n > best {
				best = n
			}
		}
	}
	return best
}

func extractEducation(text string) []string {
	lines := strings.Split(text, "\n")
	seen := make(map[string]struct{})
	var education []string

	for _, keyword := range educationKeywords {
		for _, line := range lines {
			if !strings.Contains(strings.ToLower(line), keyword) {
				continue
			}
			line = strings.TrimSpace(line)
			if _, ok := seen[line]; !ok {
				seen[line] = struct{}{}
				education = append(education, line)
			}
			break
		}
	}

	return education
}

func extractContact(text string) Contact {
	return Contact{
		Email: emailPattern.FindString(text),
		Phone: phonePattern.FindString(text),
	}
}
