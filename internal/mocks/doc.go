// Package mocks provides test doubles for the interfaces that sit at the
// edges of the worksheet pipeline.
package mocks
