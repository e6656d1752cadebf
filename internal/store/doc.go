// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the application's core logic. The only persisted entities are worksheets
// and the ordered task set generated for each of them.
package store
