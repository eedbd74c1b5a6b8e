// Package service contains the generation use case: it classifies a
// prompt, routes it to a provider adapter, and records the outcome.
//
// GenerationService is the only entry point the API layer uses. A request
// produces a PENDING record before any provider call, and exactly one
// terminal update afterwards. Completion and its analytics event are
// written in one transaction through store.TxRunner.
//
// Provider failures surface as *GenerationError, which carries the
// generation ID and whether the caller may retry. Other errors are the
// sentinels declared in errors.go.
//
// The service depends on store interfaces and the provider registry, never
// on concrete infrastructure.
package service
