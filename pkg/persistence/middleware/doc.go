// Package middleware wraps audit sinks with redaction and encryption.
//
// Middlewares compose with Chain; the first middleware sees each entry first:
//
//	sink := middleware.Chain(redisSink, pii, encryption)
package middleware
