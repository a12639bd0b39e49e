package driven

import "context"

// Page is one page of extracted text.
type Page struct {
	// Number is the 1-based page number. Zero when the source format
	// has no page structure.
	Number int

	// Text is the page content.
	Text string
}

// TextExtractor turns uploaded bytes into per-page text.
//
// Implementations may include:
//   - PDF via the poppler pdftotext tool
//   - Plain text and markdown passthrough
type TextExtractor interface {
	// Supports reports whether this extractor handles the given
	// filename (by extension).
	Supports(filename string) bool

	// Extract returns the document's pages in order. A document with
	// no extractable text yields domain.ErrNoExtractableText.
	Extract(ctx context.Context, data []byte, filename string) ([]Page, error)
}

// CommandRunner executes an external command and returns its combined
// output. Extracted as an interface so extractors that shell out can be
// tested without the underlying tool.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}
