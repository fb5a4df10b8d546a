// Package ingestion validates uploaded CV files and extracts their text for
// the import assistant.
package ingestion

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MaxUploadBytes is the largest accepted upload (10 MiB)
const MaxUploadBytes = 10 << 20

// PDFContentType is the only accepted upload type
const PDFContentType = "application/pdf"

// UploadError explains why an upload was rejected
type UploadError struct {
	Filename string
	Reason   string
}

func (e *UploadError) Error() string {
	if e.Filename == "" {
		return "upload rejected: " + e.Reason
	}
	return fmt.Sprintf("upload %q rejected: %s", e.Filename, e.Reason)
}

// ValidateUpload rejects anything that is not a PDF of at most 10 MiB. It
// runs before any extraction or network call.
func ValidateUpload(filename, contentType string, size int64) error {
	ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	ext := strings.ToLower(filepath.Ext(filename))

	switch {
	case ct == PDFContentType:
	case (ct == "" || ct == "application/octet-stream") && ext == ".pdf":
	default:
		return &UploadError{Filename: filename, Reason: fmt.Sprintf("only PDF files are accepted (got %q)", contentType)}
	}

	if size <= 0 {
		return &UploadError{Filename: filename, Reason: "file is empty"}
	}
	if size > MaxUploadBytes {
		return &UploadError{Filename: filename, Reason: fmt.Sprintf("file is %d bytes, the limit is 10 MiB", size)}
	}
	return nil
}
