package extraction

import (
	"strings"

	"github.com/mengdehong/LexAI/internal/sanitize"
)

// Kind is a stable error code for a classified extraction failure.
// Callers switch on it to show a user-appropriate message.
type Kind string

// The closed set of extraction failure kinds.
const (
	KindEncrypted         Kind = "encrypted_document"
	KindPasswordProtected Kind = "password_protected"
	KindUnsupportedFormat Kind = "unsupported_format"
	KindParserTimeout     Kind = "parser_timeout"
	KindFileNotFound      Kind = "file_not_found"
	KindExtractionFailure Kind = "extraction_failure"
)

// messages maps each kind to its user-facing message.
var messages = map[Kind]string{
	KindEncrypted:         "The document is encrypted and cannot be read",
	KindPasswordProtected: "The document is password-protected",
	KindUnsupportedFormat: "The document format is not supported",
	KindParserTimeout:     "The document parser timed out",
	KindFileNotFound:      "The document file could not be found",
	KindExtractionFailure: "Failed to extract text from the document",
}

// Message returns the user-facing message for a kind.
func Message(k Kind) string {
	if m, ok := messages[k]; ok {
		return m
	}
	return messages[KindExtractionFailure]
}

// fileNotFoundPhrases match OS-level missing-file errors across
// platforms.
var fileNotFoundPhrases = []string{
	"no such file",
	"file not found",
	"cannot find the file",
	"does not exist",
}

// Classify maps an opaque extraction failure onto the error taxonomy.
//
// Matching is case-insensitive substring sniffing over the failure text,
// tested in priority order with first match winning. The ordering matters
// for overlapping keywords: a message containing both "password" and
// "format" must classify as password-protected because that check runs
// earlier. Classify never fails: error text that cannot be rendered
// cleanly is filtered of unrepresentable characters before matching.
func Classify(err error) Kind {
	if err == nil {
		return KindExtractionFailure
	}

	text := strings.ToLower(sanitize.Text(err.Error()))

	for _, phrase := range fileNotFoundPhrases {
		if strings.Contains(text, phrase) {
			return KindFileNotFound
		}
	}

	switch {
	case strings.Contains(text, "encrypted"):
		return KindEncrypted
	case strings.Contains(text, "password"):
		return KindPasswordProtected
	case strings.Contains(text, "unsupported"),
		strings.Contains(text, "format"),
		strings.Contains(text, "invalid header"):
		return KindUnsupportedFormat
	case strings.Contains(text, "parser") && strings.Contains(text, "timeout"):
		return KindParserTimeout
	default:
		return KindExtractionFailure
	}
}
