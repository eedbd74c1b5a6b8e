// Package mocks provides shared test doubles for the generation service.
//
// MemoryDB stands in for the generations and analytics_events tables and
// implements store.TxRunner with rollback, so service and task tests can
// assert on exactly what was persisted. MockTextGenerator and
// MockImageGenerator replace provider adapters, and MockJWTService and
// MockTemplateStore replace the identity and template collaborators.
//
// Mocks follow one pattern: a function field (GenerateTextFn, ValidateTokenFn,
// ...) overrides the behavior, and default Result/Err fields are used when
// the function is nil.
//
//	gen := mocks.NewMockTextGeneratorWithText("hello", nil)
//	gen.GenerateTextFn = func(ctx context.Context, req generation.TextRequest) (*generation.TextResult, error) {
//	    return nil, generation.ErrRateLimited
//	}
package mocks
