// Package plaintext handles text and markdown uploads, which have no
// page structure and pass through as a single page.
package plaintext

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/finsync-labs/finsync-server/internal/core/domain"
	"github.com/finsync-labs/finsync-server/internal/core/ports/driven"
)

var _ driven.TextExtractor = (*Extractor)(nil)

var supportedExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// Extractor passes plain text uploads through unchanged.
type Extractor struct{}

// NewExtractor creates a plain text extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Supports reports whether the filename has a .txt or .md extension.
func (e *Extractor) Supports(filename string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Extract returns the content as a single page with no page number.
func (e *Extractor) Extract(_ context.Context, data []byte, filename string) ([]driven.Page, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%s: %w: not valid UTF-8", filename, domain.ErrInvalidInput)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, fmt.Errorf("%s: %w", filename, domain.ErrNoExtractableText)
	}

	return []driven.Page{{Number: 0, Text: text}}, nil
}
