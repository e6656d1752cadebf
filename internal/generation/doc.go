// Package generation turns extracted document text into validated tasks.
//
// A Client (backed by an external LLM service, see internal/platform/gemini
// and internal/platform/openai) returns a loosely typed RawResponse. The
// Validator filters it into domain.TaskRecord values, dropping malformed
// candidates. The Orchestrator ties the two together with the generation
// cache: at most one Client call is in flight per content fingerprint, and
// concurrent requests for the same fingerprint share its result.
package generation
