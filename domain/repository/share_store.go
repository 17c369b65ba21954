package repository

import (
	"context"

	"terastream/domain/model"
)

// IShareStore is the durable, queryable storage of full upstream responses.
// Store must isolate per-file failures: one file failing to persist does not
// abort the remaining files.
type IShareStore interface {
	Store(ctx context.Context, payload *model.SharePayload) error
	Fetch(ctx context.Context, surl string) (*model.SharePayload, error)
	FetchFile(ctx context.Context, fsID int64) (*model.MediaFile, error)
}
