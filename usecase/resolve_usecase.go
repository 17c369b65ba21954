package usecase

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"terastream/domain/dto"
	"terastream/domain/model"
	"terastream/domain/repository"
	"terastream/infrastructure/logger"
	"terastream/infrastructure/metrics"
)

// Source tags for the resolution envelope.
const (
	SourceFastCache    = "fast-cache"
	SourceDurableStore = "durable-store"
	SourceLive         = "live"
)

const noteNoDownloadLink = "download link unavailable: upstream requires session cookies to issue one"

type IResolveUsecase interface {
	// Resolve runs the tiered pipeline. refresh bypasses every cache; raw
	// returns the full upstream payload instead of the canonical projection.
	Resolve(ctx context.Context, surl, pwd, cookie string, refresh, raw bool) (*dto.ResolveResponse, error)
	// Lookup reads the durable store only.
	Lookup(ctx context.Context, surl string) (*model.SharePayload, error)
	// LookupFile reads a single stored file by fs_id.
	LookupFile(ctx context.Context, fsID int64) (*model.MediaFile, error)
	// Purge drops the fast-cache record and the anonymous token for surl.
	Purge(ctx context.Context, surl string) error
	// History returns recent resolution events.
	History(ctx context.Context, limit int) ([]model.ResolveEvent, error)
}

type resolveUsecase struct {
	upstream  repository.ITerabox
	store     repository.IShareStore
	fastCache repository.IFastCache
	tokens    repository.ITokenStore
	metrics   repository.IMetrics
	history   repository.IResolveHistory
	events    repository.IEventPublisher
	originURL string
	tokenTTL  time.Duration
	cacheTTL  time.Duration
}

// ResolveConfig carries the tunables and optional collaborators of the
// pipeline. Store, FastCache, Tokens, History and Events may be nil; the
// pipeline degrades to live resolution without them.
type ResolveConfig struct {
	Store     repository.IShareStore
	FastCache repository.IFastCache
	Tokens    repository.ITokenStore
	Metrics   repository.IMetrics
	History   repository.IResolveHistory
	Events    repository.IEventPublisher
	OriginURL string
	TokenTTL  time.Duration
	CacheTTL  time.Duration
}

func NewResolveUsecase(upstream repository.ITerabox, cfg ResolveConfig) IResolveUsecase {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NoopMetrics{}
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 5 * time.Minute
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 7 * 24 * time.Hour
	}
	return &resolveUsecase{
		upstream:  upstream,
		store:     cfg.Store,
		fastCache: cfg.FastCache,
		tokens:    cfg.Tokens,
		metrics:   cfg.Metrics,
		history:   cfg.History,
		events:    cfg.Events,
		originURL: cfg.OriginURL,
		tokenTTL:  cfg.TokenTTL,
		cacheTTL:  cfg.CacheTTL,
	}
}

func (u *resolveUsecase) Resolve(ctx context.Context, surl, pwd, cookie string, refresh, raw bool) (*dto.ResolveResponse, error) {
	started := time.Now()
	resp, err := u.resolve(ctx, surl, pwd, cookie, refresh, raw)
	u.recordEvent(ctx, surl, resp, err, time.Since(started))
	return resp, err
}

// tier is one entry of the ordered read path. Tiers are tried in sequence;
// a read error falls through to the next tier, never to the caller.
type tier struct {
	name    string
	enabled bool
	lookup  func(ctx context.Context, surl string) (interface{}, string, error)
}

func (u *resolveUsecase) resolve(ctx context.Context, surl, pwd, cookie string, refresh, raw bool) (*dto.ResolveResponse, error) {
	if surl == "" {
		return nil, model.NewMissingParamError("surl")
	}

	tiers := []tier{
		{name: SourceFastCache, enabled: !refresh && !raw && u.fastCache != nil, lookup: u.fromFastCache},
		{name: SourceDurableStore, enabled: !refresh && raw && u.store != nil, lookup: u.fromDurableStore},
	}
	for _, t := range tiers {
		if !t.enabled {
			continue
		}
		data, note, err := t.lookup(ctx, surl)
		if err != nil {
			u.metrics.IncCacheOp("read:"+t.name, false)
			logger.GetLogger().WithField("tier", t.name).WithField("surl", surl).WithField("error", err).
				Warn("cache tier read failed, falling through")
			continue
		}
		if data == nil {
			u.metrics.IncCacheMiss(t.name)
			continue
		}
		u.metrics.IncCacheHit(t.name)
		return &dto.ResolveResponse{Source: t.name, Data: data, Note: note}, nil
	}

	return u.resolveLive(ctx, surl, pwd, cookie, raw)
}

func (u *resolveUsecase) fromFastCache(ctx context.Context, surl string) (interface{}, string, error) {
	rec, err := u.fastCache.Get(ctx, surl)
	if err != nil || rec == nil {
		return nil, "", err
	}
	note := ""
	if rec.DownloadLink == "" {
		note = noteNoDownloadLink
	}
	return rec, note, nil
}

func (u *resolveUsecase) fromDurableStore(ctx context.Context, surl string) (interface{}, string, error) {
	payload, err := u.store.Fetch(ctx, surl)
	if err != nil || payload == nil {
		return nil, "", err
	}
	return payload, "", nil
}

// resolveLive performs the token/scrape/API sequence against the upstream
// and repopulates both cache tiers on success.
func (u *resolveUsecase) resolveLive(ctx context.Context, surl, pwd, cookie string, raw bool) (*dto.ResolveResponse, error) {
	fp := callerFingerprint(cookie)

	var listResp *dto.ShareListResponse
	token := u.cachedToken(ctx, surl, fp)
	if token != "" {
		resp, err := u.upstream.ShareList(ctx, surl, token, cookie)
		switch {
		case errors.Is(err, repository.ErrUpstreamAuth):
			// Stale token: drop it and fall through to a fresh scrape.
			u.deleteToken(ctx, surl, fp)
			token = ""
		case err != nil:
			return nil, model.NewUpstreamError("metadata API call failed", err.Error())
		default:
			listResp = resp
		}
	}

	if listResp == nil {
		html, err := u.upstream.FetchSharePage(ctx, surl, pwd, cookie)
		if err != nil {
			return nil, model.NewUpstreamError("share page fetch failed", err.Error())
		}
		// No retry on extraction: a token-less page is a shape change, not
		// a transient failure.
		token = u.upstream.ExtractToken(html)
		if token == "" {
			return nil, model.NewTokenExtractionError(surl)
		}
		u.putToken(ctx, surl, fp, token)

		listResp, err = u.upstream.ShareList(ctx, surl, token, cookie)
		if errors.Is(err, repository.ErrUpstreamAuth) {
			u.deleteToken(ctx, surl, fp)
			return nil, model.NewTokenExtractionError(surl)
		}
		if err != nil {
			return nil, model.NewUpstreamError("metadata API call failed", err.Error())
		}
	}

	if len(listResp.List) == 0 {
		return nil, model.NewEmptyUpstreamError(surl)
	}

	payload := buildSharePayload(listResp, surl)
	u.persistPayload(ctx, payload)

	if raw {
		return &dto.ResolveResponse{Source: SourceLive, Data: payload}, nil
	}

	rec := projectCanonical(listResp, surl, u.originURL)
	u.cacheRecord(ctx, surl, rec)
	u.publishResolved(ctx, surl, rec)

	note := ""
	if rec.DownloadLink == "" {
		note = noteNoDownloadLink
	}
	return &dto.ResolveResponse{Source: SourceLive, Data: rec, Note: note}, nil
}

func (u *resolveUsecase) Lookup(ctx context.Context, surl string) (*model.SharePayload, error) {
	if surl == "" {
		return nil, model.NewMissingParamError("surl")
	}
	if u.store == nil {
		return nil, model.NewCollaboratorUnavailableError("durable store")
	}
	payload, err := u.store.Fetch(ctx, surl)
	if err != nil {
		return nil, model.NewInternalError("durable store read failed")
	}
	if payload == nil {
		return nil, model.NewNotFoundError("share " + surl)
	}
	return payload, nil
}

func (u *resolveUsecase) LookupFile(ctx context.Context, fsID int64) (*model.MediaFile, error) {
	if fsID == 0 {
		return nil, model.NewMissingParamError("fs_id")
	}
	if u.store == nil {
		return nil, model.NewCollaboratorUnavailableError("durable store")
	}
	f, err := u.store.FetchFile(ctx, fsID)
	if err != nil {
		return nil, model.NewInternalError("durable store read failed")
	}
	if f == nil {
		return nil, model.NewNotFoundError(fmt.Sprintf("file %d", fsID))
	}
	return f, nil
}

func (u *resolveUsecase) Purge(ctx context.Context, surl string) error {
	if surl == "" {
		return model.NewMissingParamError("surl")
	}
	if u.fastCache == nil {
		return model.NewCollaboratorUnavailableError("fast cache")
	}
	if err := u.fastCache.Delete(ctx, surl); err != nil {
		u.metrics.IncCacheOp("delete:"+SourceFastCache, false)
		return model.NewInternalError("cache purge failed")
	}
	u.metrics.IncCacheOp("delete:"+SourceFastCache, true)
	if u.tokens != nil {
		if err := u.tokens.Delete(ctx, surl, ""); err != nil {
			u.metrics.IncCacheOp("delete:token", false)
		}
	}
	return nil
}

func (u *resolveUsecase) History(ctx context.Context, limit int) ([]model.ResolveEvent, error) {
	if u.history == nil {
		return nil, model.NewCollaboratorUnavailableError("resolution history")
	}
	events, err := u.history.Recent(ctx, limit)
	if err != nil {
		return nil, model.NewInternalError("history read failed")
	}
	return events, nil
}

// Best-effort helpers. Cache and store failures are counted and logged but
// never surfaced: the caches are optimizations, not correctness dependencies
// of the resolve path.

func (u *resolveUsecase) cachedToken(ctx context.Context, surl, fp string) string {
	if u.tokens == nil {
		return ""
	}
	token, err := u.tokens.Get(ctx, surl, fp)
	if err != nil {
		u.metrics.IncCacheOp("read:token", false)
		return ""
	}
	if token == "" {
		u.metrics.IncCacheMiss("token")
	} else {
		u.metrics.IncCacheHit("token")
	}
	return token
}

func (u *resolveUsecase) putToken(ctx context.Context, surl, fp, token string) {
	if u.tokens == nil {
		return
	}
	err := u.tokens.Put(ctx, surl, fp, token, u.tokenTTL)
	u.metrics.IncCacheOp("write:token", err == nil)
	if err != nil {
		logger.GetLogger().WithField("surl", surl).WithField("error", err).Warn("token cache write failed")
	}
}

func (u *resolveUsecase) deleteToken(ctx context.Context, surl, fp string) {
	if u.tokens == nil {
		return
	}
	err := u.tokens.Delete(ctx, surl, fp)
	u.metrics.IncCacheOp("delete:token", err == nil)
}

func (u *resolveUsecase) persistPayload(ctx context.Context, payload *model.SharePayload) {
	if u.store == nil {
		return
	}
	err := u.store.Store(ctx, payload)
	u.metrics.IncCacheOp("write:"+SourceDurableStore, err == nil)
	if err != nil {
		logger.GetLogger().WithField("surl", payload.Share.Surl).WithField("error", err).
			Error("durable store write failed, serving response anyway")
	}
}

func (u *resolveUsecase) cacheRecord(ctx context.Context, surl string, rec *model.CanonicalRecord) {
	if u.fastCache == nil {
		return
	}
	err := u.fastCache.Put(ctx, surl, rec, u.cacheTTL)
	u.metrics.IncCacheOp("write:"+SourceFastCache, err == nil)
	if err != nil {
		logger.GetLogger().WithField("surl", surl).WithField("error", err).Warn("fast cache write failed")
	}
}

func (u *resolveUsecase) publishResolved(ctx context.Context, surl string, rec *model.CanonicalRecord) {
	if u.events == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"surl":   surl,
		"fs_id":  rec.FsID,
		"source": SourceLive,
	})
	if err != nil {
		return
	}
	if err := u.events.PublishResolved(ctx, payload); err != nil {
		logger.GetLogger().WithField("surl", surl).WithField("error", err).Warn("resolve event publish failed")
	}
}

func (u *resolveUsecase) recordEvent(ctx context.Context, surl string, resp *dto.ResolveResponse, resolveErr error, took time.Duration) {
	if u.history == nil {
		return
	}
	ev := &model.ResolveEvent{
		Surl:       surl,
		DurationMs: took.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if resolveErr != nil {
		ev.ErrorKind = errorKind(resolveErr)
	} else if resp != nil {
		ev.Source = resp.Source
	}
	if err := u.history.Record(ctx, ev); err != nil {
		logger.GetLogger().WithField("surl", surl).WithField("error", err).Debug("history record failed")
	}
}

// errorKind maps an error to the stable metric/audit label.
func errorKind(err error) string {
	var appErr *model.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "internal_error"
}

// callerFingerprint derives the token-scope key from the caller's cookie
// header. Anonymous callers share one scope.
func callerFingerprint(cookie string) string {
	if cookie == "" {
		return ""
	}
	sum := sha1.Sum([]byte(cookie))
	return hex.EncodeToString(sum[:])[:12]
}

// buildSharePayload maps the upstream body into the durable-store shape.
func buildSharePayload(resp *dto.ShareListResponse, surl string) *model.SharePayload {
	payload := &model.SharePayload{
		Share: model.Share{
			Surl:       surl,
			ShareID:    resp.ShareID,
			Uk:         resp.Uk,
			Title:      resp.Title,
			ServerTime: resp.ServerTime,
			Channel:    resp.Channel,
			Errno:      resp.Errno,
			RequestID:  fmt.Sprintf("%d", resp.RequestID),
			UpdatedAt:  time.Now().UTC(),
		},
	}
	for _, item := range resp.List {
		f := model.MediaFile{
			FsID:         item.FsID,
			Surl:         surl,
			Category:     item.Category,
			IsDir:        item.IsDir,
			LocalCtime:   item.LocalCtime,
			LocalMtime:   item.LocalMtime,
			ServerCtime:  item.ServerCtime,
			ServerMtime:  item.ServerMtime,
			MD5:          item.MD5,
			ServerMD5:    item.ServerMD5,
			Path:         item.Path,
			PlayForbid:   item.PlayForbid,
			Size:         item.Size,
			AdultType:    item.AdultType,
			DownloadLink: item.Dlink,
		}
		f.Thumbnails = thumbnailSet(item.FsID, item.Thumbs)
		payload.Files = append(payload.Files, f)
	}
	return payload
}

func thumbnailSet(fsID int64, thumbs dto.Thumbs) []model.Thumbnail {
	var out []model.Thumbnail
	for _, pair := range []struct{ tag, url string }{
		{"icon", thumbs.Icon},
		{"url1", thumbs.URL1},
		{"url2", thumbs.URL2},
		{"url3", thumbs.URL3},
	} {
		if pair.url != "" {
			out = append(out, model.Thumbnail{FsID: fsID, Type: pair.tag, URL: pair.url})
		}
	}
	return out
}

// projectCanonical builds the minimal record from the first file of the
// upstream list, preferring the largest available thumbnail.
func projectCanonical(resp *dto.ShareListResponse, surl, originBase string) *model.CanonicalRecord {
	first := resp.List[0]
	now := time.Now().UTC()
	return &model.CanonicalRecord{
		FileName:     first.ServerFilename,
		DownloadLink: first.Dlink,
		Size:         first.Size,
		ServerMtime:  first.ServerMtime,
		OriginalURL:  fmt.Sprintf("%s/s/1%s", originBase, surl),
		Thumbnail:    bestThumbnail(first.Thumbs),
		Uk:           resp.Uk,
		ShareID:      resp.ShareID,
		FsID:         first.FsID,
		CreatedAt:    now,
		VerifiedAt:   now,
	}
}

func bestThumbnail(thumbs dto.Thumbs) string {
	for _, u := range []string{thumbs.URL3, thumbs.URL2, thumbs.URL1, thumbs.Icon} {
		if u != "" {
			return u
		}
	}
	return ""
}
