package middleware

import "github.com/aretw0/fieldbot/pkg/ports"

// Middleware allows wrapping an AuditSink to add behavior.
type Middleware func(ports.AuditSink) ports.AuditSink

// Chain wraps sink with mws. Entries pass through mws in order before reaching sink.
func Chain(sink ports.AuditSink, mws ...Middleware) ports.AuditSink {
	for i := len(mws) - 1; i >= 0; i-- {
		sink = mws[i](sink)
	}
	return sink
}
