package chunker

import (
	"bytes"
	"fmt"
	"strings"

	"rsc.io/pdf"
)

// extractPDFText pulls the raw text out of a PDF transcript, page by page.
// rsc.io/pdf panics on malformed files, so the whole extraction runs under a
// recover and surfaces the panic as an error.
func extractPDFText(raw []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		var lastY float64
		for _, t := range page.Content().Text {
			// A change in the baseline means a new line of text.
			if lastY != 0 && t.Y != lastY {
				sb.WriteString("\n")
			} else if lastY != 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(t.S)
			lastY = t.Y
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
