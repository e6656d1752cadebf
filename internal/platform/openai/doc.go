// Package openai implements generation.Client with the OpenAI Chat
// Completions API in JSON object mode, via github.com/openai/openai-go/v3.
//
// The SDK's built-in retries are disabled so that retry policy stays with
// the caller, as it does for the Gemini client.
package openai
