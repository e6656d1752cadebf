// Package extract converts uploaded binary documents into plain text.
//
// PDF files are read page by page with github.com/ledongthuc/pdf. Word files
// are read from the OOXML package (word/document.xml): body paragraphs first,
// then the rows of every table. Legacy binary .doc files are rejected.
//
// Every failure is an *Error and matches ErrExtraction with errors.Is.
// Extraction failures describe malformed input and are never retried.
package extract
