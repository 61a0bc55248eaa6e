package storage

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"
)

// ProgressFunc receives download progress as a fraction in [0,1].
// When the upstream does not advertise a Content-Length the fraction
// is unknown and the callback is not invoked.
type ProgressFunc func(fraction float64)

// Downloader fetches source videos from their upload URLs.
type Downloader struct {
	client *http.Client
}

// NewDownloader creates a downloader with a bounded connect time and
// no overall deadline, since source videos can be large.
func NewDownloader() *Downloader {
	return &Downloader{
		client: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 15 * time.Second,
				}).DialContext,
				ResponseHeaderTimeout: 30 * time.Second,
			},
		},
	}
}

// Download fetches url into destPath, reporting best-effort progress.
func (d *Downloader) Download(ctx context.Context, url, destPath string, progress ProgressFunc) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("source fetch returned status %d", resp.StatusCode)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer out.Close()

	var reader io.Reader = resp.Body
	if resp.ContentLength > 0 && progress != nil {
		reader = &progressReader{
			reader:   resp.Body,
			total:    resp.ContentLength,
			progress: progress,
		}
	}

	if _, err := io.Copy(out, reader); err != nil {
		return fmt.Errorf("failed to write source to disk: %w", err)
	}

	return nil
}

// progressReader reports cumulative read progress against a known total.
type progressReader struct {
	reader   io.Reader
	total    int64
	read     int64
	progress ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.reader.Read(b)
	if n > 0 {
		p.read += int64(n)
		fraction := float64(p.read) / float64(p.total)
		if fraction > 1 {
			fraction = 1
		}
		p.progress(fraction)
	}
	return n, err
}
