// Package observe provides observability primitives for cache operations.
//
// It is a pure instrumentation library: no cache logic, no transport, no I/O
// beyond exporter setup. The cache package logs absorbed store faults through
// Logger; the dispatch package wraps every HTTP-triggered cache operation in
// Middleware.
package observe
