// Package processor turns input files into the plain source text sent to
// providers.
package processor

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Extractor pulls translatable text out of raw content.
type Extractor interface {
	Extract(content string) (string, error)
	ContentType() string
}

// Plain passes text through, trimming surrounding whitespace.
type Plain struct{}

func (Plain) Extract(content string) (string, error) {
	return strings.TrimSpace(content), nil
}

func (Plain) ContentType() string { return "text" }

// ForPath picks an extractor by file extension.
func ForPath(path string) Extractor {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".xhtml":
		return NewHTML()
	default:
		return Plain{}
	}
}

// ExtractionError reports content that could not be parsed.
type ExtractionError struct {
	ContentType string
	Cause       error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.ContentType, e.Cause)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}
