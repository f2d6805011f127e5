// Package extraction provides the text-extraction boundary of the
// ingestion pipeline and the classifier that maps opaque extraction
// failures onto a closed error taxonomy.
package extraction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNoCommand indicates the extractor was constructed without a command.
var ErrNoCommand = errors.New("extraction command not configured")

// Extractor extracts plain text from a document file.
//
// Implementations are opaque collaborators: they may fail for
// password-protected, encrypted, unsupported, or corrupt input, and their
// errors carry no structure beyond the message text.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// plainTextExtensions are read directly as text, bypassing the native
// extractor entirely.
var plainTextExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".text":     true,
}

// IsPlainText reports whether path has a plain-text or markdown
// extension.
func IsPlainText(path string) bool {
	return plainTextExtensions[strings.ToLower(filepath.Ext(path))]
}

// PlainText reads a file directly as text.
type PlainText struct{}

// Extract reads the file contents without any conversion.
func (PlainText) Extract(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading text file: %w", err)
	}
	return string(data), nil
}

// Command invokes an external extraction tool and captures its stdout as
// the extracted text. The document path is appended as the final
// argument.
type Command struct {
	// Name is the executable to run (e.g. "pdftotext").
	Name string

	// Args are fixed arguments placed before the document path.
	Args []string
}

// NewCommand creates a command-based extractor.
func NewCommand(name string, args ...string) *Command {
	return &Command{Name: name, Args: args}
}

// Extract runs the external tool against path. The tool's stderr is
// folded into the returned error so the classifier can inspect it.
func (c *Command) Extract(ctx context.Context, path string) (string, error) {
	if c == nil || c.Name == "" {
		return "", ErrNoCommand
	}

	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("stat document: %w", err)
	}

	args := make([]string, 0, len(c.Args)+1)
	args = append(args, c.Args...)
	args = append(args, path)

	cmd := exec.CommandContext(ctx, c.Name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return "", fmt.Errorf("%s: %s", c.Name, detail)
	}

	return stdout.String(), nil
}
