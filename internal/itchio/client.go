// Package itchio is a minimal client for the itch.io server API, covering
// the endpoints needed to enumerate and download purchased assets.
package itchio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/itchgrab/itchgrab/internal/models"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.itch.io"

// Client talks to the itch.io server API with bearer authentication.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	// maxRetryElapsed bounds the retry window for catalog requests.
	maxRetryElapsed time.Duration
}

// New creates a client for the given API key. If baseURL is empty it uses
// ITCHGRAB_API_URL or falls back to the production endpoint.
func New(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("ITCHGRAB_API_URL")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			// No client-wide timeout: download streams are long-lived and
			// cancellation flows through the request context.
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 32,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		maxRetryElapsed: 30 * time.Second,
	}
}

// getJSON issues an authenticated GET and decodes the JSON response into
// out. Transport failures and 5xx responses are retried with exponential
// backoff; 4xx responses are permanent.
func (c *Client) getJSON(ctx context.Context, p string, query url.Values, out any) error {
	operation := func() error {
		u := c.baseURL + p
		if len(query) > 0 {
			u += "?" + query.Encode()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("execute request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			io.Copy(io.Discard, resp.Body)
			return fmt.Errorf("server error: %s", resp.Status)
		}
		if err := checkStatus(resp); err != nil {
			return backoff.Permanent(err)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = c.maxRetryElapsed

	return backoff.Retry(operation, backoff.WithContext(bo, ctx))
}

// checkStatus converts a non-success response into a kinded error.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	err := fmt.Errorf("api request failed: %s: %s", resp.Status, string(body))

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return models.NewTaskError(models.ErrKindAuth, err)
	}
	return models.NewTaskError(models.ErrKindNetwork, err)
}

// ListOwnedKeys fetches every purchase record, walking pagination until a
// short page. The full set is returned in memory.
func (c *Client) ListOwnedKeys(ctx context.Context) ([]OwnedKey, error) {
	var all []OwnedKey

	for page := 1; ; page++ {
		slog.Debug("fetching owned keys", "page", page)

		var resp ownedKeysResponse
		query := url.Values{"page": {strconv.Itoa(page)}}
		if err := c.getJSON(ctx, "/profile/owned-keys", query, &resp); err != nil {
			return nil, fmt.Errorf("list owned keys page %d: %w", page, err)
		}

		all = append(all, resp.OwnedKeys...)

		if resp.PerPage <= 0 || len(resp.OwnedKeys) < resp.PerPage {
			break
		}
	}

	slog.Info("fetched catalog", "purchases", len(all))
	return all, nil
}

// FetchAssets lists all purchases and converts them to asset references.
func (c *Client) FetchAssets(ctx context.Context) ([]models.AssetRef, error) {
	keys, err := c.ListOwnedKeys(ctx)
	if err != nil {
		return nil, err
	}

	assets := make([]models.AssetRef, 0, len(keys))
	for _, k := range keys {
		assets = append(assets, models.AssetRef{
			ID:     k.Game.ID,
			Author: k.Game.User.AuthorName(),
			Title:  k.Game.Title,
			KeyID:  k.ID,
		})
	}
	return assets, nil
}

// Uploads lists the downloadable files for a game.
func (c *Client) Uploads(ctx context.Context, gameID, keyID int64) ([]Upload, error) {
	var resp uploadsResponse
	query := url.Values{"download_key_id": {strconv.FormatInt(keyID, 10)}}
	if err := c.getJSON(ctx, fmt.Sprintf("/games/%d/uploads", gameID), query, &resp); err != nil {
		return nil, fmt.Errorf("list uploads for game %d: %w", gameID, err)
	}
	return resp.Uploads, nil
}

// PickUpload chooses which upload to download: the first .zip if present,
// otherwise the first upload. Returns nil for an empty list.
func PickUpload(uploads []Upload) *Upload {
	for i := range uploads {
		if strings.HasSuffix(strings.ToLower(uploads[i].Filename), ".zip") {
			return &uploads[i]
		}
	}
	if len(uploads) > 0 {
		return &uploads[0]
	}
	return nil
}

// Open acquires the asset's download stream. If the asset carries a
// pre-resolved URL it is used directly; otherwise the asset's uploads are
// listed and one is picked. The download request itself is issued once,
// without retries — retry policy belongs to the caller.
func (c *Client) Open(ctx context.Context, asset models.AssetRef) (*models.Download, error) {
	downloadURL := asset.DownloadURL
	filename := ""

	if downloadURL == "" {
		uploads, err := c.Uploads(ctx, asset.ID, asset.KeyID)
		if err != nil {
			return nil, err
		}
		up := PickUpload(uploads)
		if up == nil {
			return nil, models.NewTaskError(models.ErrKindNetwork,
				fmt.Errorf("no uploads available for %q", asset.Title))
		}
		filename = up.Filename
		downloadURL = fmt.Sprintf("%s/uploads/%d/download?download_key_id=%d",
			c.baseURL, up.ID, asset.KeyID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, models.NewTaskError(models.ErrKindNetwork, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, models.NewTaskError(models.ErrKindNetwork, fmt.Errorf("download request: %w", err))
	}
	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	if filename == "" {
		filename = filenameFromResponse(resp)
	}

	return &models.Download{
		Body:     resp.Body,
		Size:     resp.ContentLength,
		Filename: filename,
	}, nil
}

// filenameFromResponse extracts a filename from Content-Disposition or the
// final request URL.
func filenameFromResponse(resp *http.Response) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := params["filename"]; name != "" {
				return path.Base(name)
			}
		}
	}
	if resp.Request != nil && resp.Request.URL != nil {
		if base := path.Base(resp.Request.URL.Path); base != "." && base != "/" {
			return base
		}
	}
	return ""
}
