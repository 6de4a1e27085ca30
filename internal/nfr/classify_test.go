package nfr

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/nfrminer/internal/observability"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"efficiency.txt":      {Data: []byte("# speed\nlatency\nthroughput\n\nmemory\n")},
		"functionality.txt":   {Data: []byte("feature\nsearch\n")},
		"maintainability.txt": {Data: []byte("refactor\nmodule\n")},
		"portability.txt":     {Data: []byte("linux\nwindows\n")},
		"reliability.txt":     {Data: []byte("crash\nrecovery\n")},
		"usability.txt":       {Data: []byte("menu\nShortcut\n")},
	}
}

func newTestClassifier() *Classifier {
	return NewClassifier(NewLexicon(testFS()), nil, testLogger)
}

func TestClassifyPicksBestCategory(t *testing.T) {
	got, err := newTestClassifier().Classify([]string{"cache", "latency", "throughput"})
	require.NoError(t, err)
	assert.Equal(t, Efficiency, got)
}

func TestClassifyNone(t *testing.T) {
	c := newTestClassifier()

	got, err := c.Classify([]string{"bugzilla", "patch"})
	require.NoError(t, err)
	assert.Equal(t, None, got)

	got, err = c.Classify(nil)
	require.NoError(t, err)
	assert.Equal(t, None, got)
}

func TestClassifyTieGoesToEarlierCategory(t *testing.T) {
	got, err := newTestClassifier().Classify([]string{"crash", "menu"})
	require.NoError(t, err)
	assert.Equal(t, Reliability, got)
}

func TestScoresCountDistinctHits(t *testing.T) {
	scores, err := newTestClassifier().Scores([]string{"latency", "latency", "shortcut", "menu"})
	require.NoError(t, err)

	require.Len(t, scores, len(Categories))
	byCat := map[Category]int{}
	for i, s := range scores {
		assert.Equal(t, Categories[i], s.Category)
		byCat[s.Category] = s.Hits
	}
	assert.Equal(t, 1, byCat[Efficiency])
	assert.Equal(t, 2, byCat[Usability])
	assert.Equal(t, 0, byCat[Portability])
}

func TestClassifyAll(t *testing.T) {
	metrics := observability.NewMetrics(testLogger)
	c := NewClassifier(NewLexicon(testFS()), metrics, testLogger)

	got, err := c.ClassifyAll(map[string][]string{
		"1": {"linux", "windows", "crash"},
		"2": {"unrelated"},
		"3": {"refactor"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]Category{"1": Portability, "2": None, "3": Maintainability}, got)
	assert.Equal(t, int64(2), metrics.IssuesClassified.Load())
	assert.Equal(t, int64(1), metrics.IssuesUnmatched.Load())
}

func TestMissingWordList(t *testing.T) {
	fsys := testFS()
	delete(fsys, "usability.txt")
	_, err := NewClassifier(NewLexicon(fsys), nil, testLogger).Classify([]string{"latency"})
	assert.Error(t, err)
}

func TestLexiconLoadsOnce(t *testing.T) {
	dir := t.TempDir()
	for name, f := range testFS() {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), f.Data, 0o644))
	}
	lex := DirLexicon(dir)

	first, err := lex.Words(Efficiency)
	require.NoError(t, err)
	assert.Equal(t, []string{"latency", "throughput", "memory"}, first)

	// Later edits on disk are not observed.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "efficiency.txt"), []byte("other\n"), 0o644))
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			words, err := lex.Words(Efficiency)
			assert.NoError(t, err)
			assert.Equal(t, first, words)
		}()
	}
	wg.Wait()

	_, err = lex.Words(Category("security"))
	assert.Error(t, err)
}

func TestBuiltinLexicon(t *testing.T) {
	lex := BuiltinLexicon()
	assert.Same(t, lex, BuiltinLexicon())
	for _, cat := range Categories {
		words, err := lex.Words(cat)
		require.NoError(t, err, cat)
		assert.NotEmpty(t, words, cat)
	}

	got, err := NewClassifier(lex, nil, testLogger).Classify([]string{"latency", "throughput", "startup"})
	require.NoError(t, err)
	assert.Equal(t, Efficiency, got)
}
