// Package events decouples request handlers from background work.
//
// Services emit a TaskRequestEvent without knowing which handler turns it
// into a task. The only event type today asks for a worksheet's task set to
// be generated; see NewWorksheetGenerationEvent.
package events
