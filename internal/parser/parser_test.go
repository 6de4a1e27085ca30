package parser

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/IshaanNene/nfrminer/internal/types"
)

const testHTML = `<!DOCTYPE html>
<html>
<body>
    <h1 id="summary">  Make the
        cache faster  </h1>
    <table>
        <tr><th><a href="page.cgi?id=fields.html#importance">Importance</a>:</th><td>P3   enhancement</td></tr>
    </table>
    <div id="c0" class="comment"><span class="fn">Jane
        Doe</span><pre class="text">first</pre></div>
    <div id="c1" class="comment"><span class="fn">Bob</span></div>
    <div id="c12x">not a comment</div>
    <div id="comment-3">jira style</div>
</body>
</html>`

func parse(t *testing.T) *html.Node {
	t.Helper()
	root, err := html.Parse(strings.NewReader(testHTML))
	require.NoError(t, err)
	return root
}

func TestFirstTextCSS(t *testing.T) {
	root := parse(t)
	got, err := FirstText(root, CSS("#summary"))
	require.NoError(t, err)
	assert.Equal(t, "Make the cache faster", got)
}

func TestFirstTextXPath(t *testing.T) {
	root := parse(t)
	got, err := FirstText(root, XPath(`//th[a[contains(@href,'importance')]]/following-sibling::td[1]`))
	require.NoError(t, err)
	assert.Equal(t, "P3 enhancement", got)
}

func TestFirstMissing(t *testing.T) {
	root := parse(t)
	_, err := First(root, CSS("#nope"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrNodeNotFound))

	var pe *types.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "css:#nope", pe.Selector)
}

func TestRelativeSelection(t *testing.T) {
	root := parse(t)
	comments := ByIDPattern(root, regexp.MustCompile(`^c\d+$`))
	require.Len(t, comments, 2)

	name, err := FirstText(comments[0], CSS(".fn"))
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", name)

	name, err = FirstText(comments[1], XPath(`.//span[@class='fn']`))
	require.NoError(t, err)
	assert.Equal(t, "Bob", name)
}

func TestByIDPatternJira(t *testing.T) {
	root := parse(t)
	nodes := ByIDPattern(root, regexp.MustCompile(`^comment-\d+$`))
	require.Len(t, nodes, 1)
	assert.Equal(t, "jira style", Text(nodes[0]))
}

func TestCompile(t *testing.T) {
	assert.NoError(t, CSS("#field-reporter .fna").Compile())
	assert.NoError(t, XPath("//td[1]").Compile())
	assert.Error(t, CSS("div[").Compile())
	assert.Error(t, XPath("//td[").Compile())
	assert.Error(t, Selector{Expr: "x", Type: "regex"}.Compile())
}

func TestNormalizeSpace(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeSpace("\n  a\tb \r\n c  "))
	assert.Equal(t, "", NormalizeSpace(" \n "))
	assert.Equal(t, "log shows [31mERROR[0m on start", NormalizeSpace("log shows \x1b[31mERROR\x1b[0m  on start"))
	assert.Equal(t, "", NormalizeSpace("\x1b\x00"))
}
