// Package pdf extracts text from PDF uploads by shelling out to the
// poppler pdftotext tool. The command runner is injected so tests can
// run without the binary installed.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/finsync-labs/finsync-server/internal/core/domain"
	"github.com/finsync-labs/finsync-server/internal/core/ports/driven"
)

var _ driven.TextExtractor = (*Extractor)(nil)

// pageSeparator is the form feed pdftotext emits between pages.
const pageSeparator = "\f"

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes the command and returns its standard output.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%s: %s", name, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, err
	}
	return output, nil
}

// Extractor extracts per-page text from PDF files.
type Extractor struct {
	runner driven.CommandRunner
}

// NewExtractor creates a PDF extractor using the given command runner.
// Pass ExecRunner{} for real execution.
func NewExtractor(runner driven.CommandRunner) *Extractor {
	return &Extractor{runner: runner}
}

// Supports reports whether the filename has a .pdf extension.
func (e *Extractor) Supports(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

// Extract writes the upload to a temporary file, runs pdftotext on it
// and splits the output on form feeds into pages.
func (e *Extractor) Extract(ctx context.Context, data []byte, filename string) ([]driven.Page, error) {
	tmp, err := os.CreateTemp("", "finsync-upload-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("closing temp file: %w", err)
	}

	// -layout preserves table-ish structure, "-" sends text to stdout
	output, err := e.runner.Run(ctx, "pdftotext", "-layout", tmpPath, "-")
	if err != nil {
		return nil, fmt.Errorf("running pdftotext on %s: %w", filename, err)
	}

	raw := strings.Split(string(output), pageSeparator)
	pages := make([]driven.Page, 0, len(raw))
	for i, text := range raw {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			continue
		}
		pages = append(pages, driven.Page{Number: i + 1, Text: trimmed})
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("%s: %w", filename, domain.ErrNoExtractableText)
	}
	return pages, nil
}
