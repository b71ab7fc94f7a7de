// Package report writes the run summary and the manual-review export.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spigell/quickapply/internal/jobs"
	"github.com/spigell/quickapply/internal/observer"
	"github.com/spigell/quickapply/internal/resume"
)

// Formats of the summary file.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ResumeAnalysis is the résumé metadata included in a report.
type ResumeAnalysis struct {
	Provided        bool                `json:"resume_provided" yaml:"resume_provided"`
	Skills          map[string][]string `json:"skills_found" yaml:"skills_found"`
	ExperienceLevel string              `json:"experience_level" yaml:"experience_level"`
	YearsExperience int                 `json:"years_experience" yaml:"years_experience"`
}

// NewResumeAnalysis summarizes profile. A nil profile means no résumé.
func NewResumeAnalysis(profile *resume.Profile) ResumeAnalysis {
	if profile == nil {
		return ResumeAnalysis{Skills: map[string][]string{}, ExperienceLevel: resume.LevelUnknown}
	}
	return ResumeAnalysis{
		Provided:        true,
		Skills:          profile.Skills,
		ExperienceLevel: profile.ExperienceLevel,
		YearsExperience: profile.YearsExperience,
	}
}

// Report is the structured summary of a run.
type Report struct {
	RunID     string         `json:"run_id" yaml:"run_id"`
	Timestamp time.Time      `json:"timestamp" yaml:"timestamp"`
	Error     string         `json:"error,omitempty" yaml:"error,omitempty"`
	Resume    ResumeAnalysis `json:"resume_analysis" yaml:"resume_analysis"`
	Stats     observer.Stats `json:"job_statistics" yaml:"job_statistics"`

	Applied           []*jobs.Listing `json:"applied_jobs" yaml:"applied_jobs"`
	Failed            []*jobs.Listing `json:"failed_jobs" yaml:"failed_jobs"`
	SkippedUnsuitable []*jobs.Listing `json:"unsuitable_jobs" yaml:"unsuitable_jobs"`
	ManualReview      []*jobs.Listing `json:"manual_review_jobs" yaml:"manual_review_jobs"`
	NotAttempted      []*jobs.Listing `json:"not_attempted_jobs,omitempty" yaml:"not_attempted_jobs,omitempty"`
	Excluded          []*jobs.Listing `json:"excluded_jobs,omitempty" yaml:"excluded_jobs,omitempty"`
}

// SuccessRate is applied/(applied+failed) in percent, 0 without attempts.
func (r *Report) SuccessRate() float64 {
	attempts := r.Stats.Applied + r.Stats.Failed
	if attempts == 0 {
		return 0
	}
	return float64(r.Stats.Applied) / float64(attempts) * 100
}

// Files written by Write.
type Files struct {
	Summary      string
	ManualReview string
}

// Write stores the summary under dir in the given format and, when there are
// manual-review listings, a CSV export next to it.
func Write(r *Report, dir, format string) (Files, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Files{}, fmt.Errorf("report dir: %w", err)
	}

	stamp := r.Timestamp.UTC().Format("20060102_150405")

	var (
		data []byte
		err  error
		ext  string
	)
	switch format {
	case FormatYAML:
		ext = "yaml"
		data, err = yaml.Marshal(r)
	case FormatJSON, "":
		ext = "json"
		data, err = json.MarshalIndent(r, "", "  ")
	default:
		return Files{}, fmt.Errorf("unsupported report format %q", format)
	}
	if err != nil {
		return Files{}, fmt.Errorf("encode report: %w", err)
	}

	files := Files{Summary: filepath.Join(dir, fmt.Sprintf("quickapply_report_%s.%s", stamp, ext))}
	if err := os.WriteFile(files.Summary, data, 0o644); err != nil {
		return Files{}, fmt.Errorf("write report: %w", err)
	}

	if len(r.ManualReview) == 0 {
		return files, nil
	}

	files.ManualReview = filepath.Join(dir, fmt.Sprintf("manual_review_jobs_%s.csv", stamp))
	f, err := os.Create(files.ManualReview)
	if err != nil {
		return files, fmt.Errorf("create manual review export: %w", err)
	}
	defer f.Close()

	if err := WriteCSV(f, r.ManualReview); err != nil {
		return files, fmt.Errorf("write manual review export: %w", err)
	}
	return files, nil
}

var csvHeader = []string{"title", "company", "location", "url", "has_quick_apply", "match_score", "is_suitable", "match_explanation"}

// WriteCSV writes listings as CSV with a header row.
func WriteCSV(w io.Writer, listings []*jobs.Listing) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, l := range listings {
		if err := cw.Write([]string{
			l.Title,
			l.Company,
			l.Location,
			l.URL,
			strconv.FormatBool(l.HasQuickApply),
			strconv.FormatFloat(l.MatchScore, 'f', 2, 64),
			strconv.FormatBool(l.IsSuitable),
			l.MatchExplanation,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// PrintSummary renders a human readable summary.
func PrintSummary(w io.Writer, r *Report) {
	s := r.Stats
	fmt.Fprintln(w, "============================================================")
	fmt.Fprintln(w, "QUICK APPLY RUN REPORT")
	fmt.Fprintln(w, "============================================================")
	fmt.Fprintf(w, "Run: %s\n", r.RunID)
	fmt.Fprintln(w, "Job statistics:")
	fmt.Fprintf(w, "  Total jobs found:     %d\n", s.Discovered)
	fmt.Fprintf(w, "  Quick apply jobs:     %d\n", s.QuickApply)
	fmt.Fprintf(w, "  Manual review jobs:   %d\n", s.Manual)
	fmt.Fprintf(w, "  Applications sent:    %d\n", s.Applied)
	fmt.Fprintf(w, "  Applications failed:  %d\n", s.Failed)

	if r.Resume.Provided {
		fmt.Fprintln(w, "Resume matching:")
		fmt.Fprintf(w, "  Suitable jobs:        %d\n", s.Suitable)
		fmt.Fprintf(w, "  Unsuitable jobs:      %d\n", s.Unsuitable)
		fmt.Fprintf(w, "  Experience level:     %s\n", r.Resume.ExperienceLevel)
		fmt.Fprintf(w, "  Years of experience:  %d\n", r.Resume.YearsExperience)
	}

	if s.Manual > 0 {
		fmt.Fprintf(w, "Manual application required for %d jobs\n", s.Manual)
	}
	if r.Error != "" {
		fmt.Fprintf(w, "Run ended early: %s\n", r.Error)
	}
	fmt.Fprintf(w, "Success rate: %.1f%%\n", r.SuccessRate())
	fmt.Fprintln(w, "============================================================")
}
