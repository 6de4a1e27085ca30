package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/IshaanNene/nfrminer/internal/types"
)

// Checkpoint records the progress of a parallel scrape so that an
// interrupted run can resume: for every sub-range, the next id to fetch and
// the issues accepted so far.
type Checkpoint struct {
	path   string
	logger *slog.Logger

	mu    sync.Mutex
	data  checkpointData
	dirty bool
}

// checkpointData is the on-disk form.
type checkpointData struct {
	Timestamp time.Time        `json:"timestamp"`
	Tracker   string           `json:"tracker"`
	Span      IDRange          `json:"span"`
	Parts     []checkpointPart `json:"parts"`
}

type checkpointPart struct {
	Range  IDRange           `json:"range"`
	Next   uint64            `json:"next"`
	Done   bool              `json:"done"`
	Issues []checkpointIssue `json:"issues,omitempty"`
}

type checkpointIssue struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
	Comments    int      `json:"comments"`
	Commenters  int      `json:"commenters"`
}

// NewCheckpoint creates a checkpoint stored at path.
func NewCheckpoint(path string, logger *slog.Logger) *Checkpoint {
	return &Checkpoint{
		path:   path,
		logger: logger.With("component", "checkpoint", "path", path),
	}
}

// Path returns the checkpoint file path.
func (c *Checkpoint) Path() string { return c.path }

// Begin prepares the checkpoint for a scrape of span split into parts. A
// saved checkpoint of the same tracker, span and split is resumed; any
// other saved state is discarded. It reports whether it resumed.
func (c *Checkpoint) Begin(tracker string, span IDRange, parts []IDRange) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	saved, err := c.load()
	if err != nil {
		return false, err
	}
	if saved != nil && saved.matches(tracker, span, parts) {
		c.data = *saved
		c.logger.Info("resuming scrape", "tracker", tracker, "range", span.String(), "saved_at", saved.Timestamp)
		return true, nil
	}
	if saved != nil {
		c.logger.Warn("checkpoint belongs to another scrape, starting over",
			"tracker", saved.Tracker, "range", saved.Span.String(), "parts", len(saved.Parts))
	}

	c.data = checkpointData{Tracker: tracker, Span: span, Parts: make([]checkpointPart, len(parts))}
	for i, p := range parts {
		c.data.Parts[i] = checkpointPart{Range: p, Next: p.From}
	}
	c.dirty = true
	return false, nil
}

// Remaining returns the ids of part i still to fetch and the issues it has
// accepted so far. ok is false when the part is finished.
func (c *Checkpoint) Remaining(i int) (todo IDRange, accepted []*types.Issue, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.data.Parts[i]
	for _, ci := range p.Issues {
		iss, err := types.NewIssue(ci.ID, ci.Title, ci.Description, ci.Attachments, ci.Comments, ci.Commenters)
		if err != nil {
			return IDRange{}, nil, false, fmt.Errorf("checkpoint %s: %w", c.path, err)
		}
		accepted = append(accepted, iss)
	}
	if p.Done {
		return IDRange{}, accepted, false, nil
	}
	return IDRange{From: p.Next, To: p.Range.To}, accepted, true, nil
}

// Advance marks id of part i as scraped, recording iss when it was accepted.
func (c *Checkpoint) Advance(i int, id uint64, iss *types.Issue) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := &c.data.Parts[i]
	if iss != nil {
		p.Issues = append(p.Issues, checkpointIssue{
			ID:          iss.ID(),
			Title:       iss.Title(),
			Description: iss.Description(),
			Attachments: iss.Attachments(),
			Comments:    iss.CommentCount(),
			Commenters:  iss.CommenterCount(),
		})
	}
	if id == p.Range.To {
		p.Done = true
	} else {
		p.Next = id + 1
	}
	c.dirty = true
}

// Save writes the checkpoint if it changed since the last save. The file is
// replaced atomically.
func (c *Checkpoint) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty {
		return nil
	}
	c.data.Timestamp = time.Now()
	data, err := json.MarshalIndent(c.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	c.dirty = false
	return nil
}

// Clean removes the checkpoint file.
func (c *Checkpoint) Clean() error {
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (c *Checkpoint) load() (*checkpointData, error) {
	raw, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	var data checkpointData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode checkpoint %s: %w", c.path, err)
	}
	return &data, nil
}

func (d *checkpointData) matches(tracker string, span IDRange, parts []IDRange) bool {
	if d.Tracker != tracker || d.Span != span || len(d.Parts) != len(parts) {
		return false
	}
	return slices.EqualFunc(d.Parts, parts, func(cp checkpointPart, r IDRange) bool {
		return cp.Range == r && (cp.Done || (cp.Next >= r.From && cp.Next <= r.To))
	})
}
