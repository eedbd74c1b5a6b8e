// Package events carries generation lifecycle notifications from the
// orchestrator to observers such as the metrics recorder.
//
// The primary components are:
// - Event: a typed envelope with a JSON payload
// - GenerationFinished: the payload emitted when a generation is persisted in a terminal state
// - EventHandler: Interface for components that can handle events
// - EventEmitter: Interface for components that can emit events
package events
