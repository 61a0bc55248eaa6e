package muxasset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/courseforge/vod/internal/config"
	"github.com/courseforge/vod/pkg/models"
)

// Asset is the remote service's view of a managed asset. IDs are
// opaque tokens issued by the service.
type Asset struct {
	ID         string
	PlaybackID string
	Status     string
}

// Client talks to the Mux-style remote transcoding API.
type Client struct {
	baseURL     string
	tokenID     string
	tokenSecret string
	httpClient  *http.Client
}

// NewClient creates a remote transcoding service client
func NewClient(cfg config.MuxConfig) *Client {
	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		tokenID:     cfg.TokenID,
		tokenSecret: cfg.TokenSecret,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type assetPayload struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	PlaybackIDs []struct {
		ID     string `json:"id"`
		Policy string `json:"policy"`
	} `json:"playback_ids"`
}

type assetEnvelope struct {
	Data assetPayload `json:"data"`
}

// CreateAsset submits a source URL for remote processing and returns
// the opaque asset and playback identifiers.
func (c *Client) CreateAsset(ctx context.Context, sourceURL string) (*Asset, error) {
	body, err := json.Marshal(map[string]interface{}{
		"input":           sourceURL,
		"playback_policy": []string{"public"},
		"mp4_support":     "standard",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/video/v1/assets", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.upstreamError("create asset", resp)
	}

	var envelope assetEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode asset response: %w", err)
	}

	return toAsset(envelope.Data), nil
}

// GetAsset fetches the current remote state of an asset. The
// processing-to-ready transition happens inside the remote service and
// is only observed here.
func (c *Client) GetAsset(ctx context.Context, assetID string) (*Asset, error) {
	resp, err := c.do(ctx, http.MethodGet, "/video/v1/assets/"+assetID, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("remote asset %s: %w", assetID, models.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.upstreamError("get asset", resp)
	}

	var envelope assetEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode asset response: %w", err)
	}

	return toAsset(envelope.Data), nil
}

// DeleteAsset deletes a remote asset.
func (c *Client) DeleteAsset(ctx context.Context, assetID string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/video/v1/assets/"+assetID, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Already gone counts as deleted.
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.upstreamError("delete asset", resp)
	}

	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.SetBasicAuth(c.tokenID, c.tokenSecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote transcoding service unreachable: %v: %w", err, models.ErrUpstreamFailure)
	}

	return resp, nil
}

func (c *Client) upstreamError(op string, resp *http.Response) error {
	diag, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("%s returned status %d: %s: %w",
		op, resp.StatusCode, strings.TrimSpace(string(diag)), models.ErrUpstreamFailure)
}

func toAsset(payload assetPayload) *Asset {
	asset := &Asset{
		ID:     payload.ID,
		Status: payload.Status,
	}
	if len(payload.PlaybackIDs) > 0 {
		asset.PlaybackID = payload.PlaybackIDs[0].ID
	}
	return asset
}
