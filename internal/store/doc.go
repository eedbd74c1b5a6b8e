// Package store declares the persistence ports of the generation service:
// GenerationStore, AnalyticsStore, TemplateStore and TxRunner.
//
// Generation records are created PENDING and moved to a terminal state
// exactly once; analytics events are append-only. Implementations live in
// internal/platform/postgres, with in-memory doubles in internal/mocks.
package store
