// Package gemini provides a matching.Matcher backed by the Gemini API.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/quickapply/internal/matching"
	"github.com/spigell/quickapply/internal/resume"
	"github.com/spigell/quickapply/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Matcher asks the model for a verdict and applies the local threshold on top.
type Matcher struct {
	generator contentGenerator
	minScore  float64
	logger    *zap.Logger
	maxLogLen int
}

var _ matching.Matcher = (*Matcher)(nil)

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200
	maxDescriptionRunes = 8000
)

func NewMatcher(generator contentGenerator, logger *zap.Logger, minScore float64, maxLogLength int) *Matcher {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Matcher{
		generator: generator,
		minScore:  minScore,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// Evaluate implements matching.Matcher. Any failure yields an unfit verdict.
func (m *Matcher) Evaluate(ctx context.Context, profile *resume.Profile, title, description string) (a matching.Assessment) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("gemini evaluation panicked", zap.Any("panic", r))
			a = matching.Failure(fmt.Errorf("panic: %v", r))
		}
	}()

	a, err := m.evaluate(ctx, profile, title, description)
	if err != nil {
		m.logger.Warn("gemini evaluation failed", zap.String("job_title", title), zap.Error(err))
		return matching.Failure(err)
	}
	return a
}

func (m *Matcher) evaluate(ctx context.Context, profile *resume.Profile, title, description string) (matching.Assessment, error) {
	if profile == nil {
		return matching.Assessment{}, errors.New("resume profile is required")
	}
	if m.generator == nil {
		return matching.Assessment{}, errors.New("gemini generator is not configured")
	}

	profileJSON, err := json.MarshalIndent(map[string]any{
		"skills":           profile.Skills,
		"experience_level": profile.ExperienceLevel,
		"years_experience": profile.YearsExperience,
		"education":        profile.Education,
	}, "", "  ")
	if err != nil {
		return matching.Assessment{}, fmt.Errorf("marshal profile payload: %w", err)
	}

	prompt := buildPrompt(string(profileJSON), title, description)

	m.logger.Debug("gemini generate content request",
		zap.String("job_title", title),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, m.maxLogLen)),
	)

	raw, err := m.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return matching.Assessment{}, err
	}

	m.logger.Debug("gemini generate content response",
		zap.String("job_title", title),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, m.maxLogLen)),
	)

	verdict, err := parseResponse(raw)
	if err != nil {
		return matching.Assessment{}, err
	}

	score := math.Max(0, math.Min(1, verdict.score))
	// The threshold decides; the model's own verdict is advisory.
	fit := score >= m.minScore
	if verdict.fit != fit {
		m.logger.Debug("model verdict overridden by score threshold",
			zap.String("job_title", title),
			zap.Bool("model_fit", verdict.fit),
			zap.Float64("score", score),
			zap.Float64("threshold", m.minScore),
		)
	}

	label := "Poor match"
	if fit {
		label = "Good match"
	}
	explanation := fmt.Sprintf("%s (Score: %.2f)", label, score)
	if verdict.reason != "" {
		explanation += " - " + verdict.reason
	}

	return matching.Assessment{Fit: fit, Score: score, Explanation: explanation}, nil
}

func buildPrompt(profileJSON, title, description string) string {
	if utf8.RuneCountInString(description) > maxDescriptionRunes {
		description = string([]rune(description)[:maxDescriptionRunes])
	}
	r := strings.NewReplacer(
		"{{PROFILE_JSON}}", profileJSON,
		"{{JOB_TITLE}}", strings.TrimSpace(title),
		"{{JOB_DESCRIPTION}}", strings.TrimSpace(description),
	)
	return r.Replace(promptTemplate)
}

type verdict struct {
	fit    bool
	score  float64
	reason string
}

func parseResponse(raw string) (verdict, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return verdict{}, fmt.Errorf("parse gemini response: %w", err)
	}

	score := coerceFloat(data["score"])
	if math.IsNaN(score) {
		score = 0
	}

	return verdict{
		fit:    coerceBool(data["fit"]),
		score:  score,
		reason: coerceString(data["reason"]),
	}, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		lower := strings.ToLower(strings.TrimSpace(val))
		return lower == "true" || lower == "yes"
	case float64:
		return val != 0
	default:
		return false
	}
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", val))
	}
}
