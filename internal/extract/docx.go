package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

const documentPart = "word/document.xml"

// wordDocument maps the parts of word/document.xml that carry text.
// Only paragraphs and tables that are direct children of the body are read.
type wordDocument struct {
	Body struct {
		Paragraphs []wordParagraph `xml:"p"`
		Tables     []wordTable     `xml:"tbl"`
	} `xml:"body"`
}

type wordTable struct {
	Rows []struct {
		Cells []struct {
			Paragraphs []wordParagraph `xml:"p"`
		} `xml:"tc"`
	} `xml:"tr"`
}

// wordParagraph is the visible text of a w:p element.
type wordParagraph string

// UnmarshalXML collects run text in document order. Tabs and breaks become
// whitespace; properties, deleted text and text boxes are skipped.
func (p *wordParagraph) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var (
		b      strings.Builder
		inText bool
		depth  int
	)
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "pPr", "rPr", "delText", "instrText", "txbxContent":
				if err := d.Skip(); err != nil {
					return err
				}
				continue
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
			depth++
		case xml.EndElement:
			if depth == 0 {
				*p = wordParagraph(b.String())
				return nil
			}
			depth--
			if t.Name.Local == "t" {
				inText = false
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
}

// extractDOCX reads body paragraphs one per line, then every table row as
// its cells' text, each followed by a space, and a trailing newline.
func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", newError(KindWord, "cannot open .docx package", err)
	}

	var part *zip.File
	for _, f := range zr.File {
		if f.Name == documentPart {
			part = f
			break
		}
	}
	if part == nil {
		return "", newError(KindWord, "missing "+documentPart, nil)
	}

	rc, err := part.Open()
	if err != nil {
		return "", newError(KindWord, "cannot open "+documentPart, err)
	}
	defer func() { _ = rc.Close() }()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", newError(KindWord, "cannot read "+documentPart, err)
	}

	var doc wordDocument
	if err := xml.Unmarshal(raw, &doc); err != nil {
		var syntaxErr *xml.SyntaxError
		if errors.As(err, &syntaxErr) {
			return "", newError(KindWord, "malformed "+documentPart, err)
		}
		return "", newError(KindWord, "cannot decode "+documentPart, err)
	}

	var b strings.Builder
	for _, p := range doc.Body.Paragraphs {
		b.WriteString(string(p))
		b.WriteByte('\n')
	}
	for _, tbl := range doc.Body.Tables {
		for _, row := range tbl.Rows {
			for _, cell := range row.Cells {
				texts := make([]string, len(cell.Paragraphs))
				for i, p := range cell.Paragraphs {
					texts[i] = string(p)
				}
				b.WriteString(strings.Join(texts, "\n"))
				b.WriteByte(' ')
			}
			b.WriteByte('\n')
		}
	}

	return strings.TrimSpace(b.String()), nil
}
