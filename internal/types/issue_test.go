package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIssueRejectsMoreCommentersThanComments(t *testing.T) {
	_, err := NewIssue("1", "t", "", nil, 1, 2)
	require.Error(t, err)

	_, err = NewIssue("", "t", "", nil, 1, 1)
	require.Error(t, err)
}

func TestNewIssueRejectsNonXMLText(t *testing.T) {
	_, err := NewIssue("1", "t", "log shows \x1b[31mERROR", nil, 1, 1)
	require.Error(t, err)

	_, err = NewIssue("1", "t", "", []string{"bad \xff byte"}, 1, 1)
	require.Error(t, err)

	_, err = NewIssue("1", "tab\tand\r\nnewline \u00e9 \U0001F600", "", nil, 1, 1)
	require.NoError(t, err)
}

func TestStripNonXML(t *testing.T) {
	assert.Equal(t, "log shows [31mERROR[0m", StripNonXML("log shows \x1b[31mERROR\x1b[0m"))
	assert.Equal(t, "a\tb\nc", StripNonXML("a\tb\nc\x00\x07\uFFFE"))
	assert.Equal(t, "bad \uFFFD byte", StripNonXML("bad \xff byte"))
	assert.True(t, IsXMLChar('\u00e9'))
	assert.False(t, IsXMLChar(0x1b))
}

func TestIssueAttachmentsAreCopied(t *testing.T) {
	src := []string{"patch v1", "patch v2"}
	iss, err := NewIssue("42", "Title", "", src, 3, 2)
	require.NoError(t, err)

	src[0] = "changed"
	assert.Equal(t, []string{"patch v1", "patch v2"}, iss.Attachments())

	got := iss.Attachments()
	got[1] = "changed"
	assert.Equal(t, "patch v2", iss.Attachments()[1])
}

func TestIssueEqual(t *testing.T) {
	a, _ := NewIssue("7", "T", "D", nil, 2, 1)
	b, _ := NewIssue("7", "T", "D", []string{}, 2, 1)
	c, _ := NewIssue("7", "T", "D", []string{"x"}, 2, 1)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
}

func TestResponseNodeEmptyBody(t *testing.T) {
	resp := &Response{StatusCode: 200}
	_, err := resp.Node()
	assert.True(t, errors.Is(err, ErrEmptyResponse))
}

func TestFetchErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &FetchError{URL: "https://example.com", StatusCode: 503, Err: inner, Retryable: true}
	assert.ErrorIs(t, err, inner)
	assert.True(t, err.IsRetryable())
	assert.Contains(t, err.Error(), "status 503")
}
