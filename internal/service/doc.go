// Package service contains the application use cases that sit between the
// HTTP edge and the generation core.
//
// WorksheetService accepts an upload, extracts its text, stores the raw
// bytes and the worksheet record, and emits a generation event that the
// task package turns into background work. It owns the worksheet status
// lifecycle on the request path; the generation core never touches it.
package service
