package repository

import (
	"context"

	"terastream/domain/model"
)

// IResolveHistory is the append-only audit of resolution events. Writes are
// best-effort; the pipeline never fails a request on a history error.
type IResolveHistory interface {
	Record(ctx context.Context, ev *model.ResolveEvent) error
	Recent(ctx context.Context, limit int) ([]model.ResolveEvent, error)
}

// IEventPublisher publishes resolve events to an external broker when one is
// configured. Implementations are nil-safe collaborators wired in main.
type IEventPublisher interface {
	PublishResolved(ctx context.Context, payload []byte) error
}
