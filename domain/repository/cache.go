package repository

import (
	"context"
	"time"

	"terastream/domain/model"
)

// IFastCache is the short-TTL cache of one canonical record per surl.
// A nil record with a nil error means a miss.
type IFastCache interface {
	Get(ctx context.Context, surl string) (*model.CanonicalRecord, error)
	Put(ctx context.Context, surl string, rec *model.CanonicalRecord, ttl time.Duration) error
	Delete(ctx context.Context, surl string) error
}

// ITokenStore caches scraped page tokens keyed by (surl, caller fingerprint).
// An empty token with a nil error means a miss.
type ITokenStore interface {
	Get(ctx context.Context, surl, fingerprint string) (string, error)
	Put(ctx context.Context, surl, fingerprint, token string, ttl time.Duration) error
	Delete(ctx context.Context, surl, fingerprint string) error
}
