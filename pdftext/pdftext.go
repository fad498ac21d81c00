package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// ErrUnsupportedFormat is returned for files that are neither PDF nor text.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// textExtensions are loaded as plain text.
var textExtensions = map[string]bool{
	".txt":  true,
	".text": true,
	".md":   true,
}

// IsPDF reports whether filename has a .pdf extension.
func IsPDF(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

// ExtractPages returns the plain text of every page of a PDF, in page order.
// Pages that are missing or fail to decode yield an empty string so the
// slice index still matches the page number.
func ExtractPages(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	n := reader.NumPage()
	pages := make([]string, n)
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages[i-1] = text
	}
	return pages, nil
}

// SplitText splits plain text into pages on form feeds.
func SplitText(text string) []string {
	return strings.Split(text, "\f")
}

// Load reads the file at path and returns its page texts.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, filepath.Base(path))
}

// Read returns the page texts of r, choosing the decoder by filename.
func Read(r io.Reader, filename string) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case ext == ".pdf":
		return ExtractPages(r)
	case textExtensions[ext]:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		return SplitText(string(data)), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}
