package muxasset

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courseforge/vod/internal/config"
	"github.com/courseforge/vod/pkg/models"
)

func newTestClient(serverURL string) *Client {
	return NewClient(config.MuxConfig{
		BaseURL:     serverURL,
		TokenID:     "token-id",
		TokenSecret: "token-secret",
		Timeout:     5 * time.Second,
	})
}

func TestCreateAsset(t *testing.T) {
	var gotInput string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/video/v1/assets", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "token-id", user)
		assert.Equal(t, "token-secret", pass)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotInput, _ = body["input"].(string)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"id":     "asset-abc",
				"status": "preparing",
				"playback_ids": []map[string]string{
					{"id": "playback-xyz", "policy": "public"},
				},
			},
		})
	}))
	defer server.Close()

	asset, err := newTestClient(server.URL).CreateAsset(context.Background(),
		"https://blob.example.com/course-videos/videos/v1/source.mp4")
	require.NoError(t, err)

	assert.Equal(t, "asset-abc", asset.ID)
	assert.Equal(t, "playback-xyz", asset.PlaybackID)
	assert.Equal(t, "preparing", asset.Status)
	assert.Equal(t, "https://blob.example.com/course-videos/videos/v1/source.mp4", gotInput)
}

func TestCreateAssetUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid input"}`, http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CreateAsset(context.Background(), "https://blob.example.com/x.mp4")

	assert.ErrorIs(t, err, models.ErrUpstreamFailure)
	assert.Contains(t, err.Error(), "422")
}

func TestCreateAssetUnreachableKeepsDiagnostics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := newTestClient(server.URL).CreateAsset(context.Background(), "https://blob.example.com/x.mp4")

	assert.ErrorIs(t, err, models.ErrUpstreamFailure)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestDeleteAssetTreatsMissingAsDeleted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	err := newTestClient(server.URL).DeleteAsset(context.Background(), "asset-gone")

	assert.NoError(t, err)
}

func TestGetAssetObservesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/video/v1/assets/asset-abc", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"id":     "asset-abc",
				"status": "ready",
				"playback_ids": []map[string]string{
					{"id": "playback-xyz", "policy": "public"},
				},
			},
		})
	}))
	defer server.Close()

	asset, err := newTestClient(server.URL).GetAsset(context.Background(), "asset-abc")
	require.NoError(t, err)

	assert.Equal(t, models.AssetStatusReady, asset.Status)
}
