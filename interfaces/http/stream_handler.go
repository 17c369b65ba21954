package http

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"terastream/domain/model"
	"terastream/domain/repository"
	"terastream/infrastructure/logger"
	"terastream/usecase"
)

// Headers forwarded from the client to the upstream segment request.
var segmentRequestHeaders = []string{"Range", "If-Range", "If-Modified-Since", "If-None-Match", "Accept-Encoding"}

// Headers passed back from the upstream segment response to the client.
var segmentResponseHeaders = []string{"Content-Range", "Accept-Ranges", "Content-Length", "Content-Type", "ETag", "Last-Modified"}

type IStreamHandler interface {
	Manifest(c *gin.Context)
	Segment(c *gin.Context)
}

type StreamHandler struct {
	streamUsecase  usecase.IStreamUsecase
	metrics        repository.IMetrics
	allowedDomains []string
	client         *http.Client
}

func NewStreamHandler(streamUsecase usecase.IStreamUsecase, metrics repository.IMetrics, allowedDomains []string) IStreamHandler {
	return &StreamHandler{
		streamUsecase:  streamUsecase,
		metrics:        metrics,
		allowedDomains: allowedDomains,
		// No retry transport here: segment fetches are high volume and a
		// retry would amplify load on the streaming path.
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (h *StreamHandler) Manifest(c *gin.Context) {
	started := time.Now()
	h.metrics.IncRequest("stream")

	surl := c.Query("surl")
	streamType := c.Query("type")
	cookie := c.GetHeader("Cookie")

	body, err := h.streamUsecase.Manifest(c.Request.Context(), surl, streamType, cookie, segmentProxyBase(c))
	h.metrics.ObserveLatency("stream", time.Since(started))
	if err != nil {
		respondError(c, h.metrics, "stream", err)
		return
	}

	// Manifests embed caller-specific signed parameters; intermediaries
	// must not cache them.
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/vnd.apple.mpegurl", body)
}

func (h *StreamHandler) Segment(c *gin.Context) {
	started := time.Now()
	h.metrics.IncRequest("segment")

	raw := c.Query("url")
	if raw == "" {
		respondError(c, h.metrics, "segment", model.NewMissingParamError("url"))
		return
	}
	target, err := url.Parse(raw)
	if err != nil || target.Hostname() == "" || (target.Scheme != "http" && target.Scheme != "https") {
		respondError(c, h.metrics, "segment", model.NewInvalidSegmentURLError(raw))
		return
	}
	// The allow-list check is the only SSRF defense; it must run before
	// any outbound call.
	if !usecase.HostAllowed(target.Hostname(), h.allowedDomains) {
		respondError(c, h.metrics, "segment", model.NewInvalidSegmentURLError(target.Hostname()))
		return
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, target.String(), nil)
	if err != nil {
		respondError(c, h.metrics, "segment", model.NewInternalError("segment request construction failed"))
		return
	}
	for _, name := range segmentRequestHeaders {
		if v := c.GetHeader(name); v != "" {
			req.Header.Set(name, v)
		}
	}
	if cookie := c.GetHeader("Cookie"); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		logger.GetLogger().WithField("url", target.String()).WithField("error", err).Warn("segment fetch failed")
		respondError(c, h.metrics, "segment", model.NewUpstreamError("segment fetch failed", err.Error()))
		return
	}
	defer resp.Body.Close()

	for _, name := range segmentResponseHeaders {
		if v := resp.Header.Get(name); v != "" {
			c.Header(name, v)
		}
	}
	c.Status(resp.StatusCode)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		logger.GetLogger().WithField("url", target.String()).WithField("error", err).Debug("segment stream interrupted")
	}
	h.metrics.ObserveLatency("segment", time.Since(started))
}

// segmentProxyBase derives the relay URL manifests should point at from the
// inbound request, honoring proxy forwarding headers.
func segmentProxyBase(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if fwd := c.GetHeader("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	return fmt.Sprintf("%s://%s/api/stream/segment", scheme, c.Request.Host)
}
