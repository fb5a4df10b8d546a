package export

import (
	"bytes"

	"github.com/ledongthuc/pdf"
)

// CountPages returns the number of pages in a PDF document.
func CountPages(data []byte) (n int, err error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return 0, &Error{Stage: "pdf", Message: "output is not a PDF document"}
	}
	// the reader panics on some malformed trailers
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, &Error{Stage: "pdf", Message: "malformed PDF output"}
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, &Error{Stage: "pdf", Message: "failed to read PDF output", Cause: err}
	}
	return reader.NumPage(), nil
}
