package extract

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// SourceKind is the declared format of a document.
type SourceKind string

// Supported source kinds
const (
	KindPDF  SourceKind = "pdf"
	KindWord SourceKind = "word"
)

const (
	mimePDF = "application/pdf"
	mimeZip = "application/zip"
)

// Document is the text pulled out of one upload.
type Document struct {
	RawText    string
	SourceKind SourceKind
}

// Extractor turns document bytes into text.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates an Extractor. A nil logger uses slog.Default().
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger.With(slog.String("component", "text_extractor"))}
}

// KindFromFilename maps a file extension onto a SourceKind.
// Both .docx and .doc map to KindWord.
func KindFromFilename(name string) (SourceKind, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	switch ext {
	case "pdf":
		return KindPDF, nil
	case "docx", "doc":
		return KindWord, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
}

// DetectMIME sniffs the content type of data.
func DetectMIME(data []byte) *mimetype.MIME {
	return mimetype.Detect(data)
}

// Extract returns the plain text of data interpreted as kind.
//
// The bytes are sniffed first so a stream that is not of the declared kind
// fails fast without reaching the parser. Empty output is an error: a
// document without extractable text cannot produce tasks.
func (e *Extractor) Extract(ctx context.Context, data []byte, kind SourceKind) (*Document, error) {
	if len(data) == 0 {
		return nil, newError(kind, "document is empty", nil)
	}

	mt := DetectMIME(data)
	log := e.logger.With(
		slog.String("source_kind", string(kind)),
		slog.String("detected_mime", mt.String()),
		slog.Int("size_bytes", len(data)),
	)

	var (
		text string
		err  error
	)
	switch kind {
	case KindPDF:
		if !mt.Is(mimePDF) {
			log.Warn("declared PDF does not look like a PDF")
			return nil, newError(kind, fmt.Sprintf("content is %s, not a PDF", mt.String()), nil)
		}
		text, err = extractPDF(ctx, data)
	case KindWord:
		if !isZip(mt) {
			log.Warn("declared Word document is not an OOXML package")
			return nil, newError(kind, fmt.Sprintf("content is %s, not a .docx package", mt.String()), nil)
		}
		text, err = extractDOCX(data)
	default:
		return nil, newError(kind, "unknown source kind", ErrUnsupportedType)
	}
	if err != nil {
		log.Error("failed to extract text", slog.String("error", err.Error()))
		return nil, err
	}

	if text == "" {
		return nil, newError(kind, "document contains no extractable text", nil)
	}

	log.Debug("extracted document text", slog.Int("text_length", len(text)))
	return &Document{RawText: text, SourceKind: kind}, nil
}

// isZip reports whether mt is a zip archive or a format built on one.
func isZip(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is(mimeZip) {
			return true
		}
	}
	return false
}
