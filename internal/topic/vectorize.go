package topic

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/IshaanNene/nfrminer/internal/types"
)

// Weighting selects how term occurrences are turned into matrix entries.
type Weighting int

const (
	// RawCounts keeps term frequencies (used for LDA).
	RawCounts Weighting = iota
	// TFIDF applies smoothed inverse document frequency and L2-normalizes
	// each document row (used for NMF).
	TFIDF
)

// Vectorizer turns a small document set into a document-term matrix.
type Vectorizer struct {
	Weighting Weighting

	// MaxFeatures caps the vocabulary to the most frequent terms. Zero
	// means no cap.
	MaxFeatures int

	// MaxDF and MinDF are document-frequency ratios in [0, 1]. Terms
	// present in more than MaxDF*n or fewer than MinDF*n documents are
	// dropped.
	MaxDF float64
	MinDF float64

	// KeepStopWords disables English stop-word removal.
	KeepStopWords bool
}

// FitTransform learns the vocabulary of docs and returns the document-term
// matrix along with its column terms in alphabetical order. It fails with
// types.ErrSparseContent when no term survives the frequency bounds.
func (v Vectorizer) FitTransform(docs []string) (*mat.Dense, []string, error) {
	if len(docs) == 0 {
		return nil, nil, fmt.Errorf("no documents: %w", types.ErrSparseContent)
	}

	counts := make([]map[string]int, len(docs))
	df := make(map[string]int)
	total := make(map[string]int)
	for i, doc := range docs {
		counts[i] = make(map[string]int)
		for _, tok := range Tokenize(doc) {
			if !v.KeepStopWords && IsStopWord(tok) {
				continue
			}
			if counts[i][tok] == 0 {
				df[tok]++
			}
			counts[i][tok]++
			total[tok]++
		}
	}
	if len(df) == 0 {
		return nil, nil, fmt.Errorf("empty vocabulary, documents only contain stop words: %w", types.ErrSparseContent)
	}

	n := float64(len(docs))
	maxDocs, minDocs := v.MaxDF*n, v.MinDF*n
	if maxDocs < minDocs {
		return nil, nil, fmt.Errorf("max_df covers fewer documents than min_df: %w", types.ErrSparseContent)
	}

	terms := make([]string, 0, len(df))
	for t, d := range df {
		if float64(d) <= maxDocs && float64(d) >= minDocs {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return nil, nil, fmt.Errorf("no terms remain after document-frequency pruning: %w", types.ErrSparseContent)
	}

	if v.MaxFeatures > 0 && len(terms) > v.MaxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if total[terms[i]] != total[terms[j]] {
				return total[terms[i]] > total[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:v.MaxFeatures]
	}
	sort.Strings(terms)

	x := mat.NewDense(len(docs), len(terms), nil)
	for i := range docs {
		for j, t := range terms {
			x.Set(i, j, float64(counts[i][t]))
		}
	}

	if v.Weighting == TFIDF {
		applyTFIDF(x, terms, df, len(docs))
	}
	return x, terms, nil
}

// applyTFIDF scales counts by idf = ln((1+n)/(1+df)) + 1 and normalizes each
// row to unit length.
func applyTFIDF(x *mat.Dense, terms []string, df map[string]int, n int) {
	rows, cols := x.Dims()
	idf := make([]float64, cols)
	for j, t := range terms {
		idf[j] = math.Log(float64(1+n)/float64(1+df[t])) + 1
	}
	for i := 0; i < rows; i++ {
		row := x.RawRowView(i)
		for j := range row {
			row[j] *= idf[j]
		}
		if norm := mat.Norm(mat.NewVecDense(cols, row), 2); norm > 0 {
			for j := range row {
				row[j] /= norm
			}
		}
	}
}

// DocumentCounts returns, for each term of a fixed vocabulary, the number of
// docs containing it. Vocabulary entries are lowercased before matching and
// stop words are not removed.
func DocumentCounts(docs []string, vocabulary []string) []int {
	index := make(map[string][]int, len(vocabulary))
	for j, term := range vocabulary {
		key := strings.ToLower(term)
		index[key] = append(index[key], j)
	}

	out := make([]int, len(vocabulary))
	for _, doc := range docs {
		seen := make(map[string]bool)
		for _, tok := range Tokenize(doc) {
			if seen[tok] {
				continue
			}
			seen[tok] = true
			for _, j := range index[tok] {
				out[j]++
			}
		}
	}
	return out
}
