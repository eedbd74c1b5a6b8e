// Package generation defines the boundary between the application core and
// external AI providers. Provider adapters implement TextGenerator or
// ImageGenerator and report failures through the error taxonomy in errors.go,
// which the orchestrator uses to record why a generation failed and whether a
// client may retry it.
package generation
