package storage

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/nfrminer/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func sampleIssues(t *testing.T) []*types.Issue {
	t.Helper()
	a, err := types.NewIssue("101", "Faster startup", "Startup takes <5s> & should be quicker", []string{"profile.txt", "patch v2", "patch v1"}, 4, 3)
	require.NoError(t, err)
	b, err := types.NewIssue("102", "Dark theme", "", nil, 2, 2)
	require.NoError(t, err)
	return []*types.Issue{a, b}
}

func TestXMLRoundTrip(t *testing.T) {
	issues := sampleIssues(t)

	var buf bytes.Buffer
	require.NoError(t, WriteXML(&buf, "Mylyn", issues))

	system, got, err := ReadXML(&buf)
	require.NoError(t, err)
	assert.Equal(t, "Mylyn", system)

	// cmp uses Issue.Equal.
	if diff := cmp.Diff(issues, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"profile.txt", "patch v2", "patch v1"}, got[0].Attachments())
}

func TestXMLSchema(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXML(&buf, "Firefox", sampleIssues(t)[:1]))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`))
	for _, want := range []string{
		"<root>",
		"<system>Firefox</system>",
		"<issues>",
		"<id>101</id>",
		"<attachments>",
		"<attach>patch v2</attach>",
		"<comments>4</comments>",
		"<commenters>3</commenters>",
	} {
		assert.Contains(t, out, want)
	}
}

func TestReadXMLRejectsInvalidIssue(t *testing.T) {
	doc := `<root><system>Mylyn</system><issues><issue><id>1</id><comments>1</comments><commenters>2</commenters></issue></issues></root>`
	_, _, err := ReadXML(strings.NewReader(doc))

	var se *types.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "xml", se.Backend)
}

func TestXMLStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "Mylyn-1-2.xml")

	s, err := NewXMLStorage(path, "Mylyn", testLogger)
	require.NoError(t, err)
	issues := sampleIssues(t)
	require.NoError(t, s.Store(issues[:1]))
	require.NoError(t, s.Store(issues[1:]))
	require.NoError(t, s.Close())

	system, got, err := LoadXML(path)
	require.NoError(t, err)
	assert.Equal(t, "Mylyn", system)
	assert.True(t, cmp.Equal(issues, got))
}

func TestWriteReport(t *testing.T) {
	var buf bytes.Buffer
	err := WriteReport(&buf, []Classification{
		{ID: "101", Category: "efficiency", Keywords: []string{"startup", "latency"}},
		{ID: "102", Category: "none"},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `<issue id="101" category="efficiency">startup latency</issue>`)
	assert.Contains(t, out, `<issue id="102" category="none"></issue>`)
}
