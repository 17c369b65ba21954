package terabox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"terastream/domain/dto"
	"terastream/domain/repository"
	"terastream/infrastructure/logger"

	"github.com/google/go-querystring/query"
)

// Config represents the upstream endpoint configuration.
type Config struct {
	Host       string
	Cookie     string
	UserAgent  string
	MaxRetries int
	RetryBase  time.Duration
	Timeout    time.Duration
}

// Client talks to the file-sharing upstream. Page fetch and metadata API
// calls go through the retrying transport; manifest fetches do not retry.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 200 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 12 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// shareListQuery is serialized with go-querystring into the metadata call.
type shareListQuery struct {
	AppID      string `url:"app_id"`
	Web        string `url:"web"`
	Channel    string `url:"channel"`
	ClientType string `url:"clienttype"`
	JsToken    string `url:"jsToken"`
	ShortURL   string `url:"shorturl"`
	Root       string `url:"root"`
}

// transientStatus reports whether a response status warrants a retry.
func transientStatus(status int) bool {
	return status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests ||
		status >= 500
}

// doWithRetry performs the request with bounded retry and exponential
// backoff. The request is rebuilt per attempt so bodies are never reused.
func (c *Client) doWithRetry(ctx context.Context, build func() (*http.Request, error)) (*http.Response, error) {
	attempts := c.cfg.MaxRetries + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := c.cfg.RetryBase << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		req, err := build()
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			logger.GetLogger().
				WithField("attempt", attempt+1).
				WithField("error", err).
				Warn("upstream request failed")
			continue
		}
		if transientStatus(resp.StatusCode) && attempt < attempts-1 {
			lastErr = fmt.Errorf("upstream returned status %d", resp.StatusCode)
			_ = resp.Body.Close()
			logger.GetLogger().
				WithField("attempt", attempt+1).
				WithField("status", resp.StatusCode).
				Warn("transient upstream status, retrying")
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("upstream call exhausted %d attempts: %w", attempts, lastErr)
}

func (c *Client) newRequest(ctx context.Context, rawURL, cookie string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if cookie == "" {
		cookie = c.cfg.Cookie
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	return req, nil
}

// FetchSharePage downloads the short-link landing page HTML.
func (c *Client) FetchSharePage(ctx context.Context, surl, pwd, cookie string) (string, error) {
	pageURL := fmt.Sprintf("%s/s/1%s", c.cfg.Host, surl)
	if pwd != "" {
		pageURL += "?pwd=" + pwd
	}
	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, pageURL, cookie)
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("share page fetch returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// ShareList calls the metadata API with a scraped token. A 401/403 maps to
// ErrUpstreamAuth so the caller can invalidate the token and re-scrape.
func (c *Client) ShareList(ctx context.Context, surl, token, cookie string) (*dto.ShareListResponse, error) {
	q := shareListQuery{
		AppID:      "250528",
		Web:        "1",
		Channel:    "dubox",
		ClientType: "0",
		JsToken:    token,
		ShortURL:   "1" + surl,
		Root:       "1",
	}
	vals, err := query.Values(q)
	if err != nil {
		return nil, err
	}
	listURL := fmt.Sprintf("%s/share/list?%s", c.cfg.Host, vals.Encode())

	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, listURL, cookie)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, repository.ErrUpstreamAuth
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("share list returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var out dto.ShareListResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("upstream returned non-JSON body: %w", err)
	}
	// errno -6 is the upstream's in-band auth rejection.
	if out.Errno == -6 {
		return nil, repository.ErrUpstreamAuth
	}
	if out.Errno != 0 {
		return nil, fmt.Errorf("upstream errno %d", out.Errno)
	}
	return &out, nil
}

// FetchManifest downloads a streaming manifest. Deliberately no retry: this
// sits on the playback path and must not amplify upstream load.
func (c *Client) FetchManifest(ctx context.Context, manifestURL, cookie string) ([]byte, int, error) {
	req, err := c.newRequest(ctx, manifestURL, cookie)
	if err != nil {
		return nil, 0, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// Host returns the configured upstream base URL without a trailing slash.
func (c *Client) Host() string {
	return strings.TrimRight(c.cfg.Host, "/")
}

var _ repository.ITerabox = (*Client)(nil)
