package ingestion

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/ledongthuc/pdf"
)

// Extracted is the text of an uploaded PDF plus its metadata
type Extracted struct {
	Text     string
	Metadata *Metadata
}

// ExtractPDFText reads every page of a PDF and returns the cleaned text.
func ExtractPDFText(filename string, data []byte) (result *Extracted, err error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, &UploadError{Filename: filename, Reason: "file is not a PDF document"}
	}

	// the reader panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("failed to read PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("failed to extract PDF text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return nil, fmt.Errorf("failed to extract PDF text: %w", err)
	}

	text := CleanText(buf.String())
	if text == "" {
		return nil, &UploadError{Filename: filename, Reason: "no text could be extracted (scanned PDF?)"}
	}

	meta := NewMetadata(filename, data)
	meta.Pages = reader.NumPage()
	meta.TextLength = len(text)
	return &Extracted{Text: text, Metadata: meta}, nil
}

// ExtractPDFFile validates and extracts a PDF from disk
func ExtractPDFFile(path string) (*Extracted, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %w", err)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	name := filepath.Base(path)
	if err := ValidateUpload(name, http.DetectContentType(data), int64(len(data))); err != nil {
		return nil, err
	}
	return ExtractPDFText(name, data)
}
