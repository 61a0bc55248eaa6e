package streamproxy

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courseforge/vod/internal/config"
	"github.com/courseforge/vod/internal/logging"
)

func newTestRouter() (*gin.Engine, *Proxy) {
	gin.SetMode(gin.TestMode)

	proxy := New(config.ProxyConfig{
		DialTimeout:           5 * time.Second,
		ResponseHeaderTimeout: 5 * time.Second,
	}, logging.Nop())

	router := gin.New()
	router.GET("/video-stream", proxy.Stream)
	router.HEAD("/video-stream", proxy.Head)
	router.OPTIONS("/video-stream", proxy.Options)

	return router, proxy
}

func doProxyRequest(t *testing.T, router *gin.Engine, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, "/video-stream?url="+url.QueryEscape(target), nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestStreamForwardsRangeAndMirrors206(t *testing.T) {
	payload := "0123456789abcdef"

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rangeHeader := r.Header.Get("Range")
		require.Equal(t, "bytes=4-7", rangeHeader)

		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Content-Range", fmt.Sprintf("bytes 4-7/%d", len(payload)))
		w.Header().Set("Accept-Ranges", "bytes")
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte(payload[4:8]))
	}))
	defer upstream.Close()

	router, _ := newTestRouter()
	w := doProxyRequest(t, router, http.MethodGet, upstream.URL, map[string]string{"Range": "bytes=4-7"})

	assert.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "4567", w.Body.String())
	assert.Equal(t, fmt.Sprintf("bytes 4-7/%d", len(payload)), w.Header().Get("Content-Range"))
	assert.Equal(t, "video/mp4", w.Header().Get("Content-Type"))
	assert.Equal(t, "bytes", w.Header().Get("Accept-Ranges"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Cache-Control"), "immutable")
}

func TestStreamRetriesUnrangedWhenUpstreamRejectsRange(t *testing.T) {
	payload := "full video body"

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Range") != "" {
			http.Error(w, "ranges not supported here", http.StatusNotImplemented)
			return
		}
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte(payload))
	}))
	defer upstream.Close()

	router, _ := newTestRouter()
	w := doProxyRequest(t, router, http.MethodGet, upstream.URL, map[string]string{"Range": "bytes=0-4"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, payload, w.Body.String())
}

func TestStreamRelaysUpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "object does not exist", http.StatusNotFound)
	}))
	defer upstream.Close()

	router, _ := newTestRouter()
	w := doProxyRequest(t, router, http.MethodGet, upstream.URL, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "object does not exist")
}

func TestStreamPlainFetchNo206(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte("whole file"))
	}))
	defer upstream.Close()

	router, _ := newTestRouter()
	w := doProxyRequest(t, router, http.MethodGet, upstream.URL, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Content-Range"))
}

func TestStreamRejectsMalformedURL(t *testing.T) {
	router, _ := newTestRouter()

	for _, raw := range []string{"", "not a url", "ftp://example.com/a.mp4", "/relative/path"} {
		req := httptest.NewRequest(http.MethodGet, "/video-stream?url="+url.QueryEscape(raw), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, "input %q", raw)
	}
}

func TestHeadMirrorsHeadersWithoutBody(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodHead, r.Method)
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Content-Length", "12345")
		w.Header().Set("Accept-Ranges", "bytes")
	}))
	defer upstream.Close()

	router, _ := newTestRouter()
	w := doProxyRequest(t, router, http.MethodHead, upstream.URL, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "12345", w.Header().Get("Content-Length"))
	assert.Equal(t, "bytes", w.Header().Get("Accept-Ranges"))
	assert.Empty(t, w.Body.String())
}

func TestStreamOutlivesServerWriteTimeout(t *testing.T) {
	chunk := strings.Repeat("v", 4096)
	const chunks = 4

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		flusher := w.(http.Flusher)
		for i := 0; i < chunks; i++ {
			w.Write([]byte(chunk))
			flusher.Flush()
			time.Sleep(150 * time.Millisecond)
		}
	}))
	defer upstream.Close()

	// Real server with a write timeout far shorter than the stream, the
	// way cmd/api runs the router.
	router, _ := newTestRouter()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &http.Server{Handler: router, WriteTimeout: 200 * time.Millisecond}
	go srv.Serve(ln)
	defer srv.Close()

	resp, err := http.Get("http://" + ln.Addr().String() + "/video-stream?url=" + url.QueryEscape(upstream.URL))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "stream must not be cut by the server write timeout")
	assert.Len(t, body, chunks*len(chunk))
}

func TestOptionsPreflight(t *testing.T) {
	router, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodOptions, "/video-stream?url=x", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Range")
}
