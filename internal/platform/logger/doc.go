// Package logger configures the process-wide slog JSON handler and carries
// request-scoped loggers through context.Context.
//
// The HTTP middleware stores a logger enriched with trace_id and user_id;
// services and stores retrieve it with FromContextOrDefault so every line
// for a request can be correlated.
package logger
