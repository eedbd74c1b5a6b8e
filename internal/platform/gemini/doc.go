// Package gemini implements generation.TextGenerator on Google's Gemini API
// through the google.golang.org/genai client.
//
// Safety blocks are reported as generation.ErrContentBlocked, empty answers
// as generation.ErrEmptyResult and HTTP failures through
// generation.StatusError, so the orchestrator sees the same error kinds it
// gets from every other provider.
package gemini
