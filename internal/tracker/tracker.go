// Package tracker describes the issue trackers nfrminer can scrape. Each
// tracker is a Config built by one constructor per tracker family; the
// extractor switches on Config.Kind rather than on tracker names.
package tracker

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/IshaanNene/nfrminer/internal/parser"
	"github.com/IshaanNene/nfrminer/internal/types"
)

// Kind is the tracker family.
type Kind int

const (
	KindBugzilla Kind = iota + 1
	KindJira
)

func (k Kind) String() string {
	switch k {
	case KindBugzilla:
		return "bugzilla"
	case KindJira:
		return "jira"
	default:
		return "unknown"
	}
}

// DuplicateMarkers are the normalized status prefixes of a duplicate issue.
var DuplicateMarkers = []string{"RESOLVED DUPLICATE", "VERIFIED DUPLICATE"}

// Selectors is the per-tracker selector set used by the extractor.
// Comment-relative selectors are evaluated against one comment node.
type Selectors struct {
	// Status holds one or more selectors whose texts are joined with a space
	// before duplicate matching (Jira splits status and resolution).
	Status []parser.Selector

	// Importance locates the severity/importance/type field.
	Importance parser.Selector

	// CommentID matches the id attribute of comment nodes.
	CommentID *regexp.Regexp

	Commenter   parser.Selector
	CommentText parser.Selector

	Title    parser.Selector
	Reporter parser.Selector

	// AttachmentContainer is optional on the page; when absent the issue
	// has no attachments.
	AttachmentContainer parser.Selector
	AttachmentRow       parser.Selector
	AttachmentText      parser.Selector
}

// Config is the complete description of one tracker.
type Config struct {
	Name string
	Kind Kind

	// URLTemplate is formatted with the issue id.
	URLTemplate string

	// RequiredMarkers lists the importance texts that mark a requirement.
	// The field must contain at least one of them (case-insensitive).
	RequiredMarkers []string

	// SkipFirstAttachment drops the leading attachment row.
	SkipFirstAttachment bool

	Selectors Selectors
}

// NewBugzilla returns a Bugzilla-family tracker. Bugzilla pages mark
// requirements with an "enhancement" importance and carry a template row at
// the top of the attachment table.
func NewBugzilla(name, urlTemplate string, sel Selectors) Config {
	if sel.CommentID == nil {
		sel.CommentID = regexp.MustCompile(`^c\d+$`)
	}
	return Config{
		Name:                name,
		Kind:                KindBugzilla,
		URLTemplate:         urlTemplate,
		RequiredMarkers:     []string{"enhancement"},
		SkipFirstAttachment: true,
		Selectors:           sel,
	}
}

// NewJira returns a Jira-family tracker.
func NewJira(name, urlTemplate string, sel Selectors) Config {
	if sel.CommentID == nil {
		sel.CommentID = regexp.MustCompile(`^comment-\d+$`)
	}
	return Config{
		Name:            name,
		Kind:            KindJira,
		URLTemplate:     urlTemplate,
		RequiredMarkers: []string{"New Feature", "Improvement"},
		Selectors:       sel,
	}
}

// URL returns the page URL of an issue.
func (c Config) URL(issueID string) string {
	return fmt.Sprintf(c.URLTemplate, issueID)
}

// Validate compiles every selector of the tracker.
func (c Config) Validate() error {
	s := c.Selectors
	named := map[string]parser.Selector{
		"importance":   s.Importance,
		"commenter":    s.Commenter,
		"comment_text": s.CommentText,
		"title":        s.Title,
		"reporter":     s.Reporter,
	}
	for i, st := range s.Status {
		named[fmt.Sprintf("status[%d]", i)] = st
	}
	for name, sel := range named {
		if sel.IsZero() {
			return fmt.Errorf("tracker %s: %s selector is empty", c.Name, name)
		}
	}
	if !s.AttachmentContainer.IsZero() {
		named["attachment_container"] = s.AttachmentContainer
		named["attachment_row"] = s.AttachmentRow
		named["attachment_text"] = s.AttachmentText
	}
	for name, sel := range named {
		if err := sel.Compile(); err != nil {
			return fmt.Errorf("tracker %s: %s selector %s: %w", c.Name, name, sel, err)
		}
	}
	if len(s.Status) == 0 {
		return fmt.Errorf("tracker %s: no status selector", c.Name)
	}
	if s.CommentID == nil {
		return fmt.Errorf("tracker %s: no comment id pattern", c.Name)
	}
	return nil
}

// Firefox is bugzilla.mozilla.org (bug_modal layout).
func Firefox() Config {
	return NewBugzilla("Firefox", "https://bugzilla.mozilla.org/show_bug.cgi?id=%s", Selectors{
		Status:              []parser.Selector{parser.CSS("#field-value-status_summary")},
		Importance:          parser.CSS("#field-value-bug_type"),
		Commenter:           parser.CSS(".fna"),
		CommentText:         parser.CSS(".comment-text"),
		Title:               parser.CSS("#field-value-short_desc"),
		Reporter:            parser.CSS("#field-reporter .fna"),
		AttachmentContainer: parser.CSS("#attachments"),
		AttachmentRow:       parser.CSS(".attach-desc"),
		AttachmentText:      parser.CSS("a"),
	})
}

// Mylyn is bugs.eclipse.org (classic Bugzilla layout).
func Mylyn() Config {
	return NewBugzilla("Mylyn", "https://bugs.eclipse.org/bugs/show_bug.cgi?id=%s", Selectors{
		Status:              []parser.Selector{parser.CSS("#static_bug_status")},
		Importance:          parser.XPath(`//th[a[contains(@href,'importance')]]/following-sibling::td[1]`),
		Commenter:           parser.CSS(".bz_comment_user .fn"),
		CommentText:         parser.CSS(".bz_comment_text"),
		Title:               parser.CSS("#short_desc_nonedit_display"),
		Reporter:            parser.CSS("#bz_show_bug_column_2 .fn"),
		AttachmentContainer: parser.CSS("#attachment_table"),
		AttachmentRow:       parser.XPath(`.//tr[starts-with(@id,'a')]`),
		AttachmentText:      parser.CSS("b"),
	})
}

// Lucene is the Apache Jira LUCENE project, with all comments expanded.
func Lucene() Config {
	return NewJira("Lucene",
		"https://issues.apache.org/jira/browse/LUCENE-%s?page=com.atlassian.jira.plugin.system.issuetabpanels:comment-tabpanel&showAll=true",
		Selectors{
			Status:              []parser.Selector{parser.CSS("#status-val"), parser.CSS("#resolution-val")},
			Importance:          parser.CSS("#type-val"),
			Commenter:           parser.CSS(".action-details .user-hover"),
			CommentText:         parser.CSS(".action-body"),
			Title:               parser.CSS("#summary-val"),
			Reporter:            parser.CSS("#reporter-val .user-hover"),
			AttachmentContainer: parser.CSS("#attachmentmodule"),
			AttachmentRow:       parser.CSS(".attachment-title"),
			AttachmentText:      parser.CSS("a"),
		})
}

var registry = map[string]func() Config{
	"firefox": Firefox,
	"mylyn":   Mylyn,
	"lucene":  Lucene,
}

// Names returns the supported tracker names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for _, fn := range registry {
		names = append(names, fn().Name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the tracker registered under name, case-insensitively.
func Lookup(name string) (Config, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if fn, ok := registry[key]; ok {
		return fn(), nil
	}
	if s := suggest(key); s != "" {
		return Config{}, fmt.Errorf("%w: %q (did you mean %q?)", types.ErrUnsupportedTracker, name, s)
	}
	return Config{}, fmt.Errorf("%w: %q (supported: %s)", types.ErrUnsupportedTracker, name, strings.Join(Names(), ", "))
}

func suggest(key string) string {
	best, bestScore := "", 0.8
	for _, name := range Names() {
		if score := matchr.JaroWinkler(key, strings.ToLower(name), false); score >= bestScore {
			best, bestScore = name, score
		}
	}
	return best
}
