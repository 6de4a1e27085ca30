package topic

import (
	"context"
	"log/slog"
	"math"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/IshaanNene/nfrminer/internal/config"
	"github.com/IshaanNene/nfrminer/internal/corpus"
	"github.com/IshaanNene/nfrminer/internal/observability"
	"github.com/IshaanNene/nfrminer/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestTokenize(t *testing.T) {
	got := Tokenize("Faster cache-lookup, I/O x_y 2024")
	assert.Equal(t, []string{"faster", "cache", "lookup", "x_y", "2024"}, got)
}

func TestIsStopWord(t *testing.T) {
	assert.True(t, IsStopWord("The"))
	assert.True(t, IsStopWord("whereas"))
	assert.False(t, IsStopWord("cache"))
}

func column(terms []string, term string) int {
	for i, t := range terms {
		if t == term {
			return i
		}
	}
	return -1
}

func TestVectorizerCounts(t *testing.T) {
	v := Vectorizer{MaxDF: 0.95, MinDF: 0.2}
	x, terms, err := v.FitTransform([]string{
		"slow startup time",
		"the startup cache uses memory",
		"memory leak",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"cache", "leak", "memory", "slow", "startup", "time", "uses"}, terms)
	r, c := x.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, len(terms), c)
	assert.Equal(t, 1.0, x.At(0, column(terms, "startup")))
	assert.Equal(t, 0.0, x.At(2, column(terms, "startup")))
	assert.Equal(t, 1.0, x.At(2, column(terms, "leak")))
}

func TestVectorizerMaxDFDropsCommonTerms(t *testing.T) {
	v := Vectorizer{MaxDF: 0.95, MinDF: 0.2}
	_, terms, err := v.FitTransform([]string{"cache memory", "cache leak"})
	require.NoError(t, err)
	assert.Equal(t, []string{"leak", "memory"}, terms)
}

func TestVectorizerMaxFeatures(t *testing.T) {
	v := Vectorizer{MaxFeatures: 2, MaxDF: 1, MinDF: 0}
	_, terms, err := v.FitTransform([]string{"cache cache cache leak", "memory memory", "zeta"})
	require.NoError(t, err)
	assert.Equal(t, []string{"cache", "memory"}, terms)
}

func TestVectorizerSparse(t *testing.T) {
	tests := []struct {
		name string
		docs []string
	}{
		{"no documents", nil},
		{"single field", []string{"improve startup time"}},
		{"only stop words", []string{"the and", "of it"}},
		{"every term shared", []string{"cache leak", "leak cache"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Vectorizer{MaxDF: 0.95, MinDF: 0.2}.FitTransform(tt.docs)
			assert.ErrorIs(t, err, types.ErrSparseContent)
		})
	}
}

func TestVectorizerTFIDFRowsAreUnitLength(t *testing.T) {
	v := Vectorizer{Weighting: TFIDF, MaxDF: 1, MinDF: 0}
	x, _, err := v.FitTransform([]string{"cache cache leak", "leak memory", "startup"})
	require.NoError(t, err)

	r, c := x.Dims()
	for i := 0; i < r; i++ {
		norm := mat.Norm(mat.NewVecDense(c, x.RawRowView(i)), 2)
		assert.InDelta(t, 1.0, norm, 1e-9, "row %d", i)
	}
	// "leak" appears in two documents and weighs less than "cache" in row 0.
	assert.Greater(t, x.At(0, 0), x.At(0, 1))
}

func TestDocumentCounts(t *testing.T) {
	got := DocumentCounts(
		[]string{"latency", "throughput", "Latency budget"},
		[]string{"cache", "latency", "THROUGHPUT"},
	)
	assert.Equal(t, []int{0, 2, 1}, got)
}

func TestTopWords(t *testing.T) {
	components := mat.NewDense(2, 4, []float64{
		0.1, 0.9, 0.5, 0.5,
		0.7, 0.0, 0.0, 0.3,
	})
	terms := []string{"cache", "latency", "memory", "speed"}

	got := TopWords(components, terms, 3)
	want := [][]string{
		{"latency", "memory", "speed"},
		{"cache", "speed", "latency"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TopWords mismatch (-want +got):\n%s", diff)
	}

	assert.Len(t, TopWords(components, terms, 10)[0], 4)
}

func TestKeywordsDropsRepeats(t *testing.T) {
	got := Keywords([][]string{{"cache", "latency"}, {"latency", "memory"}, {"cache"}})
	assert.Equal(t, []string{"cache", "latency", "memory"}, got)
}

func TestNMFFit(t *testing.T) {
	x := mat.NewDense(2, 4, []float64{
		1, 1, 0, 0,
		0, 0, 1, 1,
	})
	h, err := NMF{Components: 2, MaxIter: 500, Seed: 1}.Fit(x)
	require.NoError(t, err)

	r, c := h.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 4, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := h.At(i, j)
			assert.False(t, math.IsNaN(v))
			assert.GreaterOrEqual(t, v, 0.0)
		}
	}

	_, err = NMF{Components: 0}.Fit(x)
	assert.Error(t, err)
}

func TestLDAFitIsDeterministic(t *testing.T) {
	x := mat.NewDense(3, 4, []float64{
		2, 1, 0, 0,
		0, 0, 3, 1,
		1, 0, 0, 2,
	})
	lda := LDA{Components: 2, Iterations: 50, Seed: 7}
	a, err := lda.Fit(x)
	require.NoError(t, err)
	b, err := lda.Fit(x)
	require.NoError(t, err)
	assert.True(t, mat.Equal(a, b))

	// Every token is assigned to exactly one topic.
	beta := 0.5
	assert.InDelta(t, mat.Sum(x), mat.Sum(a)-beta*8, 1e-9)

	_, err = lda.Fit(mat.NewDense(1, 1, []float64{0.5}))
	assert.Error(t, err)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod(" NMF ")
	require.NoError(t, err)
	assert.Equal(t, MethodNMF, m)

	_, err = ParseMethod("svd")
	assert.Error(t, err)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig().Topics
	cfg.Method = "lda"
	cfg.MinDFLDA = 0.3
	cfg.LDAIterations = 42

	opts, err := OptionsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, MethodLDA, opts.Method)
	assert.Equal(t, 0.3, opts.MinDF)
	assert.Equal(t, 42, opts.Iterations)
}

func TestModelTopicsSkipsSparseIssues(t *testing.T) {
	for _, method := range []Method{MethodNMF, MethodLDA} {
		t.Run(string(method), func(t *testing.T) {
			metrics := observability.NewMetrics(testLogger)
			m, err := NewModeler(Options{
				Method:      method,
				NumTopics:   2,
				TopWords:    3,
				MaxFeatures: 1000,
				MaxDF:       0.95,
				MinDF:       0.2,
				Iterations:  50,
				Seed:        1,
			}, metrics, testLogger)
			require.NoError(t, err)

			c := corpus.Corpus{
				"100": {"Reduce startup latency", "Startup spends seconds loading the plugin cache", "profile startup trace"},
				"200": {"Only a title"},
			}
			got, err := m.ModelTopics(context.Background(), c)
			require.NoError(t, err)

			require.Contains(t, got, "100")
			assert.NotContains(t, got, "200")
			words := got["100"]
			assert.NotEmpty(t, words)
			seen := map[string]bool{}
			for _, w := range words {
				assert.False(t, seen[w], "duplicate keyword %q", w)
				seen[w] = true
				assert.NotEqual(t, "startup", w, "term shared by every field survived max_df")
			}
			assert.Equal(t, int64(1), metrics.IssuesModeled.Load())
			assert.Equal(t, int64(1), metrics.IssuesSparse.Load())
		})
	}
}

func TestModelTopicsHonorsContext(t *testing.T) {
	m, err := NewModeler(Options{Method: MethodNMF, NumTopics: 1, TopWords: 1, MaxDF: 0.95}, nil, testLogger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.ModelTopics(ctx, corpus.Corpus{"1": {"a b", "c d"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewModelerRejectsBadOptions(t *testing.T) {
	_, err := NewModeler(Options{Method: "svd", NumTopics: 1, TopWords: 1}, nil, testLogger)
	assert.Error(t, err)
	_, err = NewModeler(Options{Method: MethodLDA, NumTopics: 0, TopWords: 1}, nil, testLogger)
	assert.Error(t, err)
}
