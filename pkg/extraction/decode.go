package extraction

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"
)

var metaCharsetRegex = regexp.MustCompile(`(?i)<meta[^>]*?charset\s*=\s*["']?\s*([\w\-:.]+)`)

// DetectCharset returns the charset declared in an HTML meta tag, or "" if there is none
func DetectCharset(document []byte) string {
	// The declaration has to be in the head, no need to scan a whole page
	head := document
	if len(head) > 4096 {
		head = head[:4096]
	}

	match := metaCharsetRegex.FindSubmatch(head)
	if match == nil {
		return ""
	}

	return strings.ToLower(string(match[1]))
}

// Decode converts a downloaded document to a string using the charset declared in the document,
// the fallback charset or UTF-8, in that order
func Decode(document []byte, fallbackCharset string) (string, error) {
	label := DetectCharset(document)
	if label == "" {
		label = fallbackCharset
	}
	if label == "" {
		label = "utf-8"
	}

	if encoding, _ := charset.Lookup(label); encoding == nil {
		log.Debug().Str("charset", label).Msg("Unknown charset, decoding as utf-8")
		label = "utf-8"
	}

	reader, err := charset.NewReaderLabel(label, bytes.NewReader(document))
	if err != nil {
		return "", fmt.Errorf("decode document as %s: %w", label, err)
	}

	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("decode document as %s: %w", label, err)
	}

	return string(decoded), nil
}
