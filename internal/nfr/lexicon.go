package nfr

import (
	"bufio"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
)

//go:embed wordlists/*.txt
var builtinFS embed.FS

// Lexicon holds the word list of every category. Each list is read on its
// first use and never changes afterwards, so a Lexicon is safe for
// concurrent readers.
type Lexicon struct {
	lists map[Category]func() ([]string, error)
}

// NewLexicon reads word lists named "<category>.txt" from the root of fsys.
func NewLexicon(fsys fs.FS) *Lexicon {
	l := &Lexicon{lists: make(map[Category]func() ([]string, error), len(Categories))}
	for _, c := range Categories {
		l.lists[c] = sync.OnceValues(func() ([]string, error) {
			return readWordList(fsys, c.fileName())
		})
	}
	return l
}

// DirLexicon reads word lists from a directory on disk.
func DirLexicon(dir string) *Lexicon {
	return NewLexicon(os.DirFS(dir))
}

var builtinLexicon = sync.OnceValue(func() *Lexicon {
	sub, err := fs.Sub(builtinFS, "wordlists")
	if err != nil {
		panic(err)
	}
	return NewLexicon(sub)
})

// BuiltinLexicon returns the process-wide lexicon backed by the word lists
// compiled into the binary.
func BuiltinLexicon() *Lexicon {
	return builtinLexicon()
}

// Words returns the word list of c. The returned slice must not be modified.
func (l *Lexicon) Words(c Category) ([]string, error) {
	load, ok := l.lists[c]
	if !ok {
		return nil, fmt.Errorf("unknown category %q", c)
	}
	return load()
}

// readWordList reads one lowercase term per line, skipping blank lines and
// lines starting with '#'.
func readWordList(fsys fs.FS, name string) ([]string, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open word list: %w", err)
	}
	defer f.Close()

	var words []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.ToLower(strings.TrimSpace(sc.Text()))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read word list %s: %w", name, err)
	}
	return words, nil
}
