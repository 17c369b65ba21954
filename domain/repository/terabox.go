package repository

import (
	"context"
	"errors"

	"terastream/domain/dto"
)

// ErrUpstreamAuth signals that the upstream rejected the supplied token. The
// pipeline reacts by invalidating the cached token and re-scraping once.
var ErrUpstreamAuth = errors.New("upstream rejected authentication token")

// ITerabox performs the upstream network calls needed to resolve a share.
type ITerabox interface {
	// FetchSharePage downloads the share page HTML. pwd is the optional
	// share password, cookie the caller's session cookie header.
	FetchSharePage(ctx context.Context, surl, pwd, cookie string) (string, error)
	// ExtractToken pulls the page token out of share page HTML; returns ""
	// when the page carries none.
	ExtractToken(html string) string
	// ShareList calls the metadata API with a previously scraped token.
	// Returns ErrUpstreamAuth when the upstream rejects the token.
	ShareList(ctx context.Context, surl, token, cookie string) (*dto.ShareListResponse, error)
	// FetchManifest downloads a streaming manifest. No retry on this path.
	FetchManifest(ctx context.Context, manifestURL, cookie string) ([]byte, int, error)
}
