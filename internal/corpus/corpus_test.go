package corpus

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/nfrminer/internal/types"
)

func issue(t *testing.T, id, title, desc string, att []string, comments, commenters int) *types.Issue {
	t.Helper()
	iss, err := types.NewIssue(id, title, desc, att, comments, commenters)
	require.NoError(t, err)
	return iss
}

func TestFilterActiveMean(t *testing.T) {
	busy := issue(t, "1", "busy", "", nil, 5, 5)
	quiet := issue(t, "2", "quiet", "", nil, 1, 1)

	got, err := FilterActive([]*types.Issue{busy, quiet}, 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID())
}

func TestFilterActiveBothThresholds(t *testing.T) {
	// Means are 4 comments and 2 commenters.
	issues := []*types.Issue{
		issue(t, "1", "t", "", nil, 6, 1),
		issue(t, "2", "t", "", nil, 4, 2),
		issue(t, "3", "t", "", nil, 2, 2),
		issue(t, "4", "t", "", nil, 4, 3),
	}

	got, err := FilterActive(issues, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "4"}, IDs(got))

	got, err = FilterActive(issues, -2, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3", "4"}, IDs(got))

	got, err = FilterActive(issues, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"4"}, IDs(got))
}

func TestFilterActiveEmpty(t *testing.T) {
	_, err := FilterActive(nil, 0, 0)
	assert.ErrorIs(t, err, types.ErrEmptyInput)
}

func TestToCorpus(t *testing.T) {
	issues := []*types.Issue{
		issue(t, "1", "Faster startup", "", []string{"profile", "patch"}, 2, 1),
		issue(t, "2", "Dark theme", "Add a dark theme", nil, 2, 1),
		issue(t, "3", "Sync", "Offline sync", []string{"design doc"}, 2, 1),
	}

	want := Corpus{
		"1": {"Faster startup", "profile patch"},
		"2": {"Dark theme", "Add a dark theme"},
		"3": {"Sync", "Offline sync", "design doc"},
	}
	if diff := cmp.Diff(want, ToCorpus(issues)); diff != "" {
		t.Errorf("ToCorpus mismatch (-want +got):\n%s", diff)
	}
}

func TestToCorpusLastWriteWins(t *testing.T) {
	c := ToCorpus([]*types.Issue{
		issue(t, "1", "old", "", nil, 2, 1),
		issue(t, "1", "new", "", nil, 2, 1),
	})
	assert.Equal(t, Corpus{"1": {"new"}}, c)
}
