package storage

import (
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/IshaanNene/nfrminer/internal/types"
)

type xmlRoot struct {
	XMLName xml.Name   `xml:"root"`
	System  string     `xml:"system"`
	Issues  []xmlIssue `xml:"issues>issue"`
}

type xmlIssue struct {
	ID          string   `xml:"id"`
	Title       string   `xml:"title"`
	Description string   `xml:"description"`
	Attachments []string `xml:"attachments>attach"`
	Comments    int      `xml:"comments"`
	Commenters  int      `xml:"commenters"`
}

// WriteXML encodes issues of one tracker as an XML document.
func WriteXML(w io.Writer, system string, issues []*types.Issue) error {
	doc := xmlRoot{System: system, Issues: make([]xmlIssue, len(issues))}
	for i, iss := range issues {
		doc.Issues[i] = xmlIssue{
			ID:          iss.ID(),
			Title:       iss.Title(),
			Description: iss.Description(),
			Attachments: iss.Attachments(),
			Comments:    iss.CommentCount(),
			Commenters:  iss.CommenterCount(),
		}
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return &types.StorageError{Backend: "xml", Err: err}
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return &types.StorageError{Backend: "xml", Err: fmt.Errorf("encode: %w", err)}
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return &types.StorageError{Backend: "xml", Err: err}
	}
	return nil
}

// ReadXML decodes a document written by WriteXML and returns the tracker
// name and the issues in document order.
func ReadXML(r io.Reader) (string, []*types.Issue, error) {
	var doc xmlRoot
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return "", nil, &types.StorageError{Backend: "xml", Err: fmt.Errorf("decode: %w", err)}
	}

	issues := make([]*types.Issue, 0, len(doc.Issues))
	for _, x := range doc.Issues {
		iss, err := types.NewIssue(x.ID, x.Title, x.Description, x.Attachments, x.Comments, x.Commenters)
		if err != nil {
			return "", nil, &types.StorageError{Backend: "xml", Err: fmt.Errorf("issue %q: %w", x.ID, err)}
		}
		issues = append(issues, iss)
	}
	return doc.System, issues, nil
}

// SaveXML writes issues to path, creating parent directories as needed.
func SaveXML(path, system string, issues []*types.Issue) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &types.StorageError{Backend: "xml", Err: fmt.Errorf("create output dir: %w", err)}
	}
	f, err := os.Create(path)
	if err != nil {
		return &types.StorageError{Backend: "xml", Err: fmt.Errorf("create output file: %w", err)}
	}
	if err := WriteXML(f, system, issues); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadXML reads the issues stored at path.
func LoadXML(path string) (string, []*types.Issue, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, &types.StorageError{Backend: "xml", Err: err}
	}
	defer f.Close()
	return ReadXML(f)
}

// XMLStorage buffers issues and writes them as one document on Close.
type XMLStorage struct {
	path   string
	system string
	issues []*types.Issue
	mu     sync.Mutex
	logger *slog.Logger
}

// NewXMLStorage creates a new XML file storage for one tracker.
func NewXMLStorage(outputPath, system string, logger *slog.Logger) (*XMLStorage, error) {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	return &XMLStorage{
		path:   outputPath,
		system: system,
		logger: logger.With("component", "xml_storage"),
	}, nil
}

func (s *XMLStorage) Name() string { return "xml" }

func (s *XMLStorage) Store(issues []*types.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issues = append(s.issues, issues...)
	s.logger.Debug("issues buffered", "count", len(issues), "total", len(s.issues))
	return nil
}

func (s *XMLStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := SaveXML(s.path, s.system, s.issues); err != nil {
		return err
	}
	s.logger.Info("XML written", "path", s.path, "issues", len(s.issues))
	return nil
}
