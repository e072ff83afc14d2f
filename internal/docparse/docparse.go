// Package docparse extracts plain text from uploaded contract files so the
// analysis pipeline can chunk them uniformly regardless of source format.
package docparse

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".html": true,
	".htm":  true,
	".pdf":  true,
	".docx": true,
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// ExtractText converts raw document bytes into plain text. Unknown
// extensions are treated as plain text when the bytes are valid UTF-8.
func ExtractText(data []byte, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return extractPDF(data)
	case ".docx":
		return extractDOCX(data)
	case ".md", ".markdown":
		return extractMarkdown(data)
	case ".html", ".htm":
		return extractHTML(data)
	default:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("unsupported file format: %s", ext)
		}
		return string(data), nil
	}
}
