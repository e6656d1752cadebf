// Package domain contains the core entities of the worksheet pipeline:
// uploaded worksheets and the typed exercise records generated from them.
// It is independent of any storage, transport or language-model provider.
package domain
