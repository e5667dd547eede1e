package ports

import (
	"context"

	"github.com/aretw0/fieldbot/pkg/domain"
)

// DatasetSource fetches the raw dataset from a fixed location.
type DatasetSource interface {
	Fetch(ctx context.Context) ([]byte, error)

	// Location describes where the data comes from (URL or path), for logs.
	Location() string
}

// DatasetProvider serves the current snapshot, loading it on first use.
type DatasetProvider interface {
	Get(ctx context.Context) (*domain.Snapshot, error)
}
