package storage

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/IshaanNene/nfrminer/internal/types"
)

// Classification is one row of a classification report.
type Classification struct {
	ID       string
	Category string
	Keywords []string
}

type xmlReport struct {
	XMLName xml.Name            `xml:"classifications"`
	Issues  []xmlClassification `xml:"issue"`
}

type xmlClassification struct {
	ID       string `xml:"id,attr"`
	Category string `xml:"category,attr"`
	Keywords string `xml:",chardata"`
}

// WriteReport encodes classifications as a flat XML document. Keywords are
// joined with single spaces.
func WriteReport(w io.Writer, rows []Classification) error {
	doc := xmlReport{Issues: make([]xmlClassification, len(rows))}
	for i, r := range rows {
		doc.Issues[i] = xmlClassification{
			ID:       r.ID,
			Category: r.Category,
			Keywords: strings.Join(r.Keywords, " "),
		}
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return &types.StorageError{Backend: "report", Err: err}
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return &types.StorageError{Backend: "report", Err: fmt.Errorf("encode: %w", err)}
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// SaveReport writes the report to path.
func SaveReport(path string, rows []Classification) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &types.StorageError{Backend: "report", Err: fmt.Errorf("create output dir: %w", err)}
	}
	f, err := os.Create(path)
	if err != nil {
		return &types.StorageError{Backend: "report", Err: err}
	}
	if err := WriteReport(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
