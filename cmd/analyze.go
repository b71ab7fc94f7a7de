package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/spigell/quickapply/internal/matching"
	"github.com/spigell/quickapply/internal/resume"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <resume>",
	Short: "Print what is extracted from a resume and optionally score it against a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		descriptionFile, _ := cmd.Flags().GetString("description-file")
		minScore, _ := cmd.Flags().GetFloat64("min-score")

		return analyze(cmd.OutOrStdout(), args[0], title, descriptionFile, minScore)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringP("title", "t", "", "job title to score the resume against")
	analyzeCmd.Flags().String("description-file", "", "file with the job description to score the resume against")
	analyzeCmd.Flags().Float64("min-score", matching.DefaultMinScore, "suitability threshold")
}

type analysis struct {
	Resume *resume.Profile `yaml:"resume"`
	Job    *jobAssessment  `yaml:"job,omitempty"`
}

type jobAssessment struct {
	Title       string  `yaml:"title"`
	Suitable    bool    `yaml:"suitable"`
	Score       float64 `yaml:"score"`
	Explanation string  `yaml:"explanation"`
}

func analyze(w io.Writer, path, title, descriptionFile string, minScore float64) error {
	if minScore < 0 || minScore > 1 {
		return fmt.Errorf("min-score must be between 0 and 1, got %v", minScore)
	}

	profile, err := resume.ParseFile(path)
	if err != nil {
		return err
	}

	out := analysis{Resume: profile}

	if title != "" || descriptionFile != "" {
		var description string
		if descriptionFile != "" {
			data, err := os.ReadFile(descriptionFile)
			if err != nil {
				return fmt.Errorf("reading job description: %w", err)
			}
			description = string(data)
		}

		fit, score, explanation := matching.NewScorer(minScore, nil).Score(profile, title, description)
		out.Job = &jobAssessment{Title: title, Suitable: fit, Score: score, Explanation: explanation}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding analysis: %w", err)
	}
	return enc.Close()
}
