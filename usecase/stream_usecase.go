package usecase

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-querystring/query"

	"terastream/domain/model"
	"terastream/domain/repository"
	"terastream/infrastructure/logger"
	"terastream/infrastructure/metrics"
)

type IStreamUsecase interface {
	// Manifest fetches the streaming playlist for surl and rewrites its
	// media URLs against proxyBase, the caller's own segment-relay URL.
	Manifest(ctx context.Context, surl, streamType, cookie, proxyBase string) ([]byte, error)
}

type streamUsecase struct {
	upstream    repository.ITerabox
	fastCache   repository.IFastCache
	resolver    IResolveUsecase
	metrics     repository.IMetrics
	host        string
	defaultType string
}

type StreamConfig struct {
	FastCache   repository.IFastCache
	Resolver    IResolveUsecase
	Metrics     repository.IMetrics
	Host        string
	DefaultType string
}

func NewStreamUsecase(upstream repository.ITerabox, cfg StreamConfig) IStreamUsecase {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NoopMetrics{}
	}
	if cfg.DefaultType == "" {
		cfg.DefaultType = "M3U8_AUTO_720"
	}
	return &streamUsecase{
		upstream:    upstream,
		fastCache:   cfg.FastCache,
		resolver:    cfg.Resolver,
		metrics:     cfg.Metrics,
		host:        cfg.Host,
		defaultType: cfg.DefaultType,
	}
}

// manifestQuery carries the fixed client parameters of the streaming call.
// The signed session parameters ride along from the download link instead.
type manifestQuery struct {
	Uk         int64  `url:"uk"`
	ShareID    int64  `url:"shareid"`
	FsID       int64  `url:"fid"`
	Type       string `url:"type"`
	AppID      string `url:"app_id"`
	Web        string `url:"web"`
	Channel    string `url:"channel"`
	ClientType string `url:"clienttype"`
}

func (u *streamUsecase) Manifest(ctx context.Context, surl, streamType, cookie, proxyBase string) ([]byte, error) {
	if surl == "" {
		return nil, model.NewMissingParamError("surl")
	}
	if streamType == "" {
		streamType = u.defaultType
	}

	rec, err := u.canonicalRecord(ctx, surl, cookie)
	if err != nil {
		return nil, err
	}
	if missing := missingStreamFields(rec); len(missing) > 0 {
		return nil, model.NewIncompleteMetadataError(missing)
	}

	manifestURL, err := u.manifestURL(rec, streamType)
	if err != nil {
		return nil, model.NewInternalError("manifest URL construction failed")
	}

	body, status, err := u.upstream.FetchManifest(ctx, manifestURL, cookie)
	if err != nil {
		return nil, model.NewUpstreamError("manifest fetch failed", err.Error())
	}
	if status < 200 || status > 299 {
		return nil, model.NewUpstreamError(fmt.Sprintf("manifest fetch returned status %d", status), nil)
	}

	return []byte(RewriteManifest(string(body), proxyBase)), nil
}

// canonicalRecord reads the fast cache, falling back to a canonical-mode
// resolution that repopulates it.
func (u *streamUsecase) canonicalRecord(ctx context.Context, surl, cookie string) (*model.CanonicalRecord, error) {
	if u.fastCache != nil {
		rec, err := u.fastCache.Get(ctx, surl)
		if err != nil {
			u.metrics.IncCacheOp("read:"+SourceFastCache, false)
			logger.GetLogger().WithField("surl", surl).WithField("error", err).Warn("fast cache read failed before stream")
		} else if rec != nil {
			u.metrics.IncCacheHit(SourceFastCache)
			return rec, nil
		} else {
			u.metrics.IncCacheMiss(SourceFastCache)
		}
	}

	resp, err := u.resolver.Resolve(ctx, surl, "", cookie, false, false)
	if err != nil {
		return nil, err
	}
	rec, ok := resp.Data.(*model.CanonicalRecord)
	if !ok {
		return nil, model.NewInternalError("resolution returned an unexpected record shape")
	}
	return rec, nil
}

func missingStreamFields(rec *model.CanonicalRecord) []string {
	var missing []string
	if rec.Uk == 0 {
		missing = append(missing, "uk")
	}
	if rec.ShareID == 0 {
		missing = append(missing, "share_id")
	}
	if rec.FsID == 0 {
		missing = append(missing, "fs_id")
	}
	if rec.DownloadLink == "" {
		missing = append(missing, "download_link")
	}
	return missing
}

// manifestURL merges the fixed client parameters with every query parameter
// of the signed download link. The dlink parameters are copied verbatim; the
// sign and timestamp they carry are not recomputed here.
func (u *streamUsecase) manifestURL(rec *model.CanonicalRecord, streamType string) (string, error) {
	values, err := query.Values(manifestQuery{
		Uk:         rec.Uk,
		ShareID:    rec.ShareID,
		FsID:       rec.FsID,
		Type:       streamType,
		AppID:      "250528",
		Web:        "1",
		Channel:    "dubox",
		ClientType: "0",
	})
	if err != nil {
		return "", err
	}

	dlink, err := url.Parse(rec.DownloadLink)
	if err != nil {
		return "", err
	}
	for key, vals := range dlink.Query() {
		for _, v := range vals {
			values.Set(key, v)
		}
	}

	return strings.TrimRight(u.host, "/") + "/share/streaming?" + values.Encode(), nil
}

var _ IStreamUsecase = (*streamUsecase)(nil)
