package resume

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadFile extracts plain text from a résumé document. Supported formats are
// .txt, .md, .pdf and .docx.
func LoadFile(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("resume file: %w", err)
	}

	var (
		text string
		err  error
	)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt", ".md":
		var data []byte
		data, err = os.ReadFile(path)
		text = string(data)
	case ".pdf":
		text, err = extractPDF(path)
	case ".docx":
		text, err = extractDocx(path)
	default:
		return "", fmt.Errorf("unsupported resume format %q", ext)
	}
	if err != nil {
		return "", fmt.Errorf("read resume %s: %w", path, err)
	}

	return text, nil
}

// ParseFile loads the document at path and parses it into a Profile.
func ParseFile(path string) (*Profile, error) {
	text, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	profile, err := Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse resume %s: %w", path, err)
	}

	return profile, nil
}
