package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/quickapply/internal/resume"
)

const pythonResume = `John Smith
Backend developer. 4 years experience building services in Python.
Designed SQL schemas and wrote reporting queries.`

func mustParse(t *testing.T, text string) *resume.Profile {
	t.Helper()
	profile, err := resume.Parse(text)
	require.NoError(t, err)
	return profile
}

func TestScoreSuitablePythonJob(t *testing.T) {
	profile := mustParse(t, pythonResume)
	require.Equal(t, []string{"python", "sql"}, profile.SkillTokens())

	scorer := NewScorer(DefaultMinScore, nil)
	fit, score, explanation := scorer.Score(profile, "Python Developer", "Python and SQL experience")

	assert.True(t, fit)
	assert.GreaterOrEqual(t, score, DefaultMinScore)
	assert.LessOrEqual(t, score, 1.0)
	assert.Contains(t, explanation, "Good match")
}

func TestScoreUnrelatedJob(t *testing.T) {
	profile := mustParse(t, pythonResume)

	scorer := NewScorer(DefaultMinScore, nil)
	fit, score, explanation := scorer.Score(profile, "Pastry Chef", "Bake croissants and decorate wedding cakes")

	assert.False(t, fit)
	assert.Less(t, score, DefaultMinScore)
	assert.Contains(t, explanation, "Poor match")
}

func TestScoreSelfSimilarityDominates(t *testing.T) {
	profile := mustParse(t, pythonResume)
	scorer := NewScorer(DefaultMinScore, nil)

	_, self, _ := scorer.Score(profile, "", profile.RawText)
	_, disjoint, _ := scorer.Score(profile, "", "knitting gardening pottery")

	assert.GreaterOrEqual(t, self, disjoint)
	for _, s := range []float64{self, disjoint} {
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}

func TestFitMatchesThreshold(t *testing.T) {
	profile := mustParse(t, pythonResume)
	for _, min := range []float64{0, 0.1, 0.3, 0.5, 0.9, 1} {
		scorer := NewScorer(min, nil)
		fit, score, _ := scorer.Score(profile, "Python Developer", "Python, SQL and Kubernetes")
		assert.Equal(t, score >= min, fit, "min score %v", min)
	}
}

type failingVectorizer struct{ err error }

func (f failingVectorizer) Vectors(...string) ([][]float64, error) { return nil, f.err }

type panickingVectorizer struct{}

func (panickingVectorizer) Vectors(...string) ([][]float64, error) { panic("index out of range") }

func TestScoreInternalErrorIsUnsuitable(t *testing.T) {
	profile := mustParse(t, pythonResume)

	scorer := NewScorer(0, nil)
	scorer.vectorizer = failingVectorizer{err: ErrEmptyVocabulary}

	fit, score, explanation := scorer.Score(profile, "Python Developer", "Python")
	assert.False(t, fit)
	assert.Zero(t, score)
	assert.Contains(t, explanation, "Error in analysis")
	assert.Contains(t, explanation, ErrEmptyVocabulary.Error())

	scorer.vectorizer = panickingVectorizer{}
	fit, score, explanation = scorer.Score(profile, "Python Developer", "Python")
	assert.False(t, fit)
	assert.Zero(t, score)
	assert.Contains(t, explanation, "index out of range")
}

func TestScoreNilProfile(t *testing.T) {
	got := NewScorer(0, nil).Evaluate(context.Background(), nil, "title", "description")
	assert.False(t, got.Fit)
	assert.Zero(t, got.Score)
	assert.Contains(t, got.Explanation, "resume profile is required")
}

func TestSkillBoost(t *testing.T) {
	profile := mustParse(t, "python sql docker git")
	assert.Equal(t, 0.5, SkillBoost(profile, "PYTHON engineer", "we use Git"))

	empty := mustParse(t, "no known skills here")
	assert.Zero(t, SkillBoost(empty, "Python", "SQL"))
}

func TestVectorizerEmptyVocabulary(t *testing.T) {
	_, err := Vectorizer{}.Vectors("the and of", "a an")
	assert.True(t, errors.Is(err, ErrEmptyVocabulary))
}

func TestVectorizerDisjointDocuments(t *testing.T) {
	vectors, err := Vectorizer{}.Vectors("python sql", "pastry baking")
	require.NoError(t, err)
	assert.Zero(t, Cosine(vectors[0], vectors[1]))

	vectors, err = Vectorizer{}.Vectors("python sql", "python sql")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, Cosine(vectors[0], vectors[1]), 1e-9)
}

func TestVectorizerCapsVocabulary(t *testing.T) {
	vectors, err := Vectorizer{MaxFeatures: 2}.Vectors("alpha alpha beta gamma", "alpha beta delta")
	require.NoError(t, err)
	assert.Len(t, vectors[0], 2)
}
