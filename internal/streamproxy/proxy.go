package streamproxy

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/courseforge/vod/internal/config"
	"github.com/courseforge/vod/internal/logging"
	"github.com/courseforge/vod/internal/metrics"
)

// Proxy streams remote video files to browser clients, forwarding
// byte-range semantics so players can seek without this service ever
// buffering a whole file. It is stateless; every request owns its own
// upstream connection.
type Proxy struct {
	client *http.Client
	log    *logging.Logger
}

// New creates a streaming proxy. Connect and response-header times are
// bounded so a dead upstream cannot hang requests; there is no overall
// body deadline because long videos stream for longer than any sane
// fixed timeout.
func New(cfg config.ProxyConfig, log *logging.Logger) *Proxy {
	return &Proxy{
		client: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: cfg.DialTimeout,
				}).DialContext,
				ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
			},
		},
		log: log,
	}
}

// Stream handles GET /video-stream?url=...
func (p *Proxy) Stream(c *gin.Context) {
	p.serve(c, http.MethodGet)
}

// Head handles HEAD /video-stream?url=... so clients can discover size
// and seekability before playback.
func (p *Proxy) Head(c *gin.Context) {
	p.serve(c, http.MethodHead)
}

// Options answers CORS preflight.
func (p *Proxy) Options(c *gin.Context) {
	writeCORSHeaders(c)
	c.Header("Access-Control-Max-Age", "86400")
	c.Status(http.StatusNoContent)
}

func (p *Proxy) serve(c *gin.Context, method string) {
	target, err := parseTargetURL(c.Query("url"))
	if err != nil {
		writeCORSHeaders(c)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rangeHeader := c.GetHeader("Range")

	resp, err := p.fetch(c, method, target, rangeHeader)
	if err != nil {
		writeCORSHeaders(c)
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("upstream fetch failed: %v", err)})
		return
	}

	// Some blob backends reject ranged requests for reasons unrelated
	// to the client; a full fetch is preferable to a hard failure.
	if rangeHeader != "" && !is2xx(resp.StatusCode) {
		resp.Body.Close()
		metrics.ProxyRangeRetriesTotal.Inc()
		p.log.Warnf("upstream rejected ranged fetch of %s with %d, retrying unranged", target, resp.StatusCode)

		resp, err = p.fetch(c, method, target, "")
		if err != nil {
			writeCORSHeaders(c)
			c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("upstream fetch failed: %v", err)})
			return
		}
	}
	defer resp.Body.Close()

	metrics.ProxyRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	// Never mask an upstream failure as success: relay its status and
	// a diagnostic payload.
	if !is2xx(resp.StatusCode) {
		diag, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		writeCORSHeaders(c)
		c.Data(resp.StatusCode, "text/plain; charset=utf-8",
			[]byte(fmt.Sprintf("upstream returned %d: %s", resp.StatusCode, diag)))
		return
	}

	// The server's write timeout is sized for API responses; a video
	// stream legitimately runs for as long as the video does. Lift the
	// per-request deadline before the body copy.
	if err := http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{}); err != nil {
		p.log.Warnf("could not clear write deadline for %s: %v", target, err)
	}

	writeCORSHeaders(c)
	mirrorHeader(c, resp, "Content-Type")
	mirrorHeader(c, resp, "Content-Length")
	mirrorHeader(c, resp, "Content-Range")
	mirrorHeader(c, resp, "Accept-Ranges")
	// Bytes at a given URL are immutable in this system, so clients may
	// cache renditions aggressively.
	c.Header("Cache-Control", "public, max-age=31536000, immutable")

	status := http.StatusOK
	if resp.StatusCode == http.StatusPartialContent {
		status = http.StatusPartialContent
	}
	c.Status(status)

	if method == http.MethodHead {
		return
	}

	// Direct pass-through: backpressure comes from the client reading
	// the response body.
	n, err := io.Copy(c.Writer, resp.Body)
	metrics.ProxyBytesStreamedTotal.Add(float64(n))
	if err != nil {
		// Client disconnects mid-stream are routine.
		p.log.Debugf("stream of %s ended early after %d bytes: %v", target, n, err)
	}
}

func (p *Proxy) fetch(c *gin.Context, method, target, rangeHeader string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(c.Request.Context(), method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream request: %w", err)
	}
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}

	return p.client.Do(req)
}

func parseTargetURL(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("missing url parameter")
	}

	parsed, err := url.ParseRequestURI(raw)
	if err != nil {
		return "", fmt.Errorf("malformed url parameter")
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", fmt.Errorf("url must be absolute http(s)")
	}

	return parsed.String(), nil
}

func mirrorHeader(c *gin.Context, resp *http.Response, name string) {
	if value := resp.Header.Get(name); value != "" {
		c.Header(name, value)
	}
}

func writeCORSHeaders(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Range, Content-Type")
	c.Header("Access-Control-Expose-Headers", "Content-Length, Content-Range, Accept-Ranges")
}

func is2xx(status int) bool {
	return status >= 200 && status < 300
}
