package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"syllabo/internal/pkg/pdfextract"
)

// ErrExtraction marks a source file the pipeline could not read. Per-file
// failures are recorded against the file; the rest of the batch proceeds.
var ErrExtraction = errors.New("text extraction failed")

// ExtractFile pulls plain text out of a PDF, text, or markdown file.
func ExtractFile(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("%w: open %s: %v", ErrExtraction, filepath.Base(path), err)
		}
		defer f.Close()
		text, err := pdfextract.ExtractText(f)
		if err != nil {
			return "", fmt.Errorf("%w: pdf %s: %v", ErrExtraction, filepath.Base(path), err)
		}
		return text, nil
	case ".txt", ".md":
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("%w: read %s: %v", ErrExtraction, filepath.Base(path), err)
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("%w: unsupported file type %s", ErrExtraction, filepath.Ext(path))
	}
}
