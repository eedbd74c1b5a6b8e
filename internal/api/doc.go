// Package api is the HTTP surface of the generation service. It decodes and
// validates requests, calls service.GenerationService and maps results and
// errors to JSON responses. Authentication and request tracing live in the
// middleware subpackage; response helpers shared with it live in shared.
package api
