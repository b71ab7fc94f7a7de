// Package matching scores how well a résumé fits a job posting.
package matching

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/quickapply/internal/resume"
)

// DefaultMinScore is the suitability threshold used when none is configured.
const DefaultMinScore = 0.3

const (
	textWeight  = 0.7
	skillWeight = 0.3
)

// Assessment is the verdict of a Matcher for one posting.
type Assessment struct {
	Fit         bool
	Score       float64
	Explanation string
}

// Matcher evaluates a résumé against a posting. Implementations never fail:
// a posting that cannot be evaluated is reported as unfit with score 0.
type Matcher interface {
	Evaluate(ctx context.Context, profile *resume.Profile, title, description string) Assessment
}

type vectorizer interface {
	Vectors(docs ...string) ([][]float64, error)
}

// Scorer blends TF-IDF cosine similarity with literal skill overlap.
type Scorer struct {
	minScore   float64
	vectorizer vectorizer
	logger     *zap.Logger
}

var _ Matcher = (*Scorer)(nil)

// NewScorer returns a Scorer with the given suitability threshold.
func NewScorer(minScore float64, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{
		minScore:   minScore,
		vectorizer: Vectorizer{MaxFeatures: defaultMaxFeatures},
		logger:     logger,
	}
}

// MinScore returns the configured threshold.
func (s *Scorer) MinScore() float64 { return s.minScore }

// Evaluate implements Matcher.
func (s *Scorer) Evaluate(_ context.Context, profile *resume.Profile, title, description string) Assessment {
	fit, score, explanation := s.Score(profile, title, description)
	return Assessment{Fit: fit, Score: score, Explanation: explanation}
}

// Score returns the suitability verdict, the score in [0,1] and a one line
// explanation. Errors never escape: they yield (false, 0, "Error in analysis: ...").
func (s *Scorer) Score(profile *resume.Profile, title, description string) (fit bool, score float64, explanation string) {
	defer func() {
		if r := recover(); r != nil {
			fit, score, explanation = failed(fmt.Errorf("panic: %v", r))
			s.logger.Error("scoring panicked", zap.Any("panic", r))
		}
	}()

	score, err := s.compute(profile, title, description)
	if err != nil {
		s.logger.Warn("scoring failed", zap.String("job_title", title), zap.Error(err))
		return failed(err)
	}

	fit = score >= s.minScore
	if fit {
		return fit, score, fmt.Sprintf("Good match (Score: %.2f) - Skills and experience align well", score)
	}
	return fit, score, fmt.Sprintf("Poor match (Score: %.2f) - Limited skill overlap", score)
}

func (s *Scorer) compute(profile *resume.Profile, title, description string) (float64, error) {
	if profile == nil {
		return 0, errors.New("resume profile is required")
	}

	resumeDoc := profile.RawText + " " + profile.FlattenSkills()
	jobDoc := title + " " + description

	vectors, err := s.vectorizer.Vectors(resumeDoc, jobDoc)
	if err != nil {
		return 0, err
	}
	if len(vectors) != 2 {
		return 0, fmt.Errorf("expected 2 vectors, got %d", len(vectors))
	}

	similarity := Cosine(vectors[0], vectors[1])
	boost := SkillBoost(profile, title, description)

	final := textWeight*similarity + skillWeight*boost
	if math.IsNaN(final) {
		return 0, errors.New("score is not a number")
	}

	s.logger.Debug("scored job",
		zap.String("job_title", title),
		zap.Float64("text_similarity", similarity),
		zap.Float64("skill_boost", boost),
		zap.Float64("score", final),
	)

	return clamp(final), nil
}

// SkillBoost is the share of résumé skill tokens found literally in the
// lower-cased "title description" text. Zero when the résumé has no skills.
func SkillBoost(profile *resume.Profile, title, description string) float64 {
	tokens := profile.SkillTokens()
	if len(tokens) == 0 {
		return 0
	}

	text := strings.ToLower(title + " " + description)
	matched := 0
	for _, tok := range tokens {
		if strings.Contains(text, strings.ToLower(tok)) {
			matched++
		}
	}
	return float64(matched) / float64(len(tokens))
}

func failed(err error) (bool, float64, string) {
	a := Failure(err)
	return a.Fit, a.Score, a.Explanation
}

// Failure is the Assessment reported when a posting cannot be evaluated.
func Failure(err error) Assessment {
	return Assessment{Score: 0, Explanation: fmt.Sprintf("Error in analysis: %s", err)}
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
