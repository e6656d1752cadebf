// Package gemini implements generation.Client on top of Google's Gemini API
// using the google.golang.org/genai SDK.
//
// Each Generate call renders the task prompt, sends it with the shared
// system instruction in JSON response mode, and decodes the reply into a
// generation.RawResponse. No retries happen here: API failures are mapped
// onto the generation error taxonomy (rate limits and server errors become
// generation.ErrTransient, safety blocks generation.ErrContentBlocked) and
// the caller decides whether to try again.
package gemini
