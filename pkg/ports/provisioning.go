package ports

import (
	"context"

	"github.com/aretw0/fieldbot/pkg/domain"
)

// Provisioner submits a change request to the remote gateway.
// Transport failures wrap domain.ErrTransport.
type Provisioner interface {
	Submit(ctx context.Context, req domain.ChangeRequest) (domain.Outcome, error)
}

// AuditSink records provisioning exchanges.
type AuditSink interface {
	Record(ctx context.Context, entry domain.AuditEntry) error
}
