package matching

import (
	"errors"
	"math"
	"sort"
	"strings"
	"unicode"
)

// ErrEmptyVocabulary is returned when no document contributes a single term.
var ErrEmptyVocabulary = errors.New("empty vocabulary; perhaps the documents only contain stop words")

const defaultMaxFeatures = 1000

// Vectorizer turns a small corpus into L2 normalised TF-IDF vectors.
//
// Tokens are lower-cased runs of two or more letters, digits or underscores.
// English stop words are dropped, the vocabulary keeps the MaxFeatures most
// frequent terms and idf is smoothed: ln((1+n)/(1+df)) + 1.
type Vectorizer struct {
	MaxFeatures int
}

// Vectors returns one vector per document, indexed by the shared vocabulary.
func (v Vectorizer) Vectors(docs ...string) ([][]float64, error) {
	counts := make([]map[string]int, len(docs))
	total := make(map[string]int)
	df := make(map[string]int)

	for i, doc := range docs {
		counts[i] = make(map[string]int)
		for _, tok := range tokenize(doc) {
			if _, stop := stopWords[tok]; stop {
				continue
			}
			if counts[i][tok] == 0 {
				df[tok]++
			}
			counts[i][tok]++
			total[tok]++
		}
	}

	if len(total) == 0 {
		return nil, ErrEmptyVocabulary
	}

	vocab := v.vocabulary(total)
	n := float64(len(docs))

	vectors := make([][]float64, len(docs))
	for i := range docs {
		vec := make([]float64, len(vocab))
		var norm float64
		for j, term := range vocab {
			tf := float64(counts[i][term])
			if tf == 0 {
				continue
			}
			idf := math.Log((1+n)/(1+float64(df[term]))) + 1
			vec[j] = tf * idf
			norm += vec[j] * vec[j]
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for j := range vec {
				vec[j] /= norm
			}
		}
		vectors[i] = vec
	}

	return vectors, nil
}

// vocabulary keeps the most frequent terms; ties are broken alphabetically
// and the result is sorted alphabetically.
func (v Vectorizer) vocabulary(total map[string]int) []string {
	terms := make([]string, 0, len(total))
	for term := range total {
		terms = append(terms, term)
	}

	limit := v.MaxFeatures
	if limit <= 0 {
		limit = defaultMaxFeatures
	}
	if len(terms) > limit {
		sort.Slice(terms, func(i, j int) bool {
			if total[terms[i]] != total[terms[j]] {
				return total[terms[i]] > total[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:limit]
	}

	sort.Strings(terms)
	return terms
}

// Cosine returns the cosine similarity of two equally sized vectors, or 0 when
// either of them is all zeros.
func Cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func tokenize(doc string) []string {
	fields := strings.FieldsFunc(strings.ToLower(doc), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})

	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
