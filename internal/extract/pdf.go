package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF concatenates the text of every page in order, each followed by
// a newline, and trims the result.
func extractPDF(ctx context.Context, data []byte) (text string, err error) {
	// The pdf reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = newError(KindPDF, "malformed PDF", fmt.Errorf("%v", r))
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", newError(KindPDF, "cannot open PDF", err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", newError(KindPDF, "extraction cancelled", err)
		}

		p := r.Page(i)
		if !p.V.IsNull() {
			pageText, err := p.GetPlainText(nil)
			if err != nil {
				return "", newError(KindPDF, fmt.Sprintf("cannot read page %d", i), err)
			}
			b.WriteString(pageText)
		}
		b.WriteString("\n")
	}

	return strings.TrimSpace(b.String()), nil
}
