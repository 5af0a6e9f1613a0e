package itchio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itchgrab/itchgrab/internal/models"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New("test-key", srv.URL)
	c.maxRetryElapsed = time.Millisecond // keep retries from stalling tests
	return c
}

func ownedKey(gameID int64, title, author string) OwnedKey {
	return OwnedKey{
		ID:     gameID * 100,
		GameID: gameID,
		Game: Game{
			ID:    gameID,
			Title: title,
			User:  User{Username: author},
		},
	}
}

func TestListOwnedKeysPagination(t *testing.T) {
	perPage := 2
	pages := [][]OwnedKey{
		{ownedKey(1, "One", "a"), ownedKey(2, "Two", "b")},
		{ownedKey(3, "Three", "c")}, // short page ends pagination
	}

	var gotAuth string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/profile/owned-keys", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		require.GreaterOrEqual(t, page, 1)
		require.LessOrEqual(t, page, len(pages), "client must stop after the short page")

		json.NewEncoder(w).Encode(map[string]any{
			"owned_keys": pages[page-1],
			"page":       page,
			"per_page":   perPage,
		})
	})

	c := newTestClient(t, handler)
	keys, err := c.ListOwnedKeys(context.Background())
	require.NoError(t, err)
	assert.Len(t, keys, 3)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, int64(3), keys[2].GameID)
}

func TestListOwnedKeysAuthError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":["invalid key"]}`, http.StatusUnauthorized)
	})

	c := newTestClient(t, handler)
	_, err := c.ListOwnedKeys(context.Background())
	require.Error(t, err)
	assert.Equal(t, models.ErrKindAuth, models.KindOf(err))
}

func TestFetchAssets(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"owned_keys": []OwnedKey{
				{
					ID:     42,
					GameID: 7,
					Game: Game{
						ID:    7,
						Title: "Downwell",
						User:  User{Username: "moppin", DisplayName: "Moppin"},
					},
				},
			},
			"page":     1,
			"per_page": 50,
		})
	})

	c := newTestClient(t, handler)
	assets, err := c.FetchAssets(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 1)

	assert.Equal(t, int64(7), assets[0].ID)
	assert.Equal(t, int64(42), assets[0].KeyID)
	assert.Equal(t, "Moppin", assets[0].Author, "display name preferred over username")
	assert.Equal(t, "Downwell", assets[0].Title)
}

func TestPickUploadPrefersZip(t *testing.T) {
	uploads := []Upload{
		{ID: 1, Filename: "game-linux.AppImage"},
		{ID: 2, Filename: "game-all.ZIP"},
		{ID: 3, Filename: "game-win.exe"},
	}
	up := PickUpload(uploads)
	require.NotNil(t, up)
	assert.Equal(t, int64(2), up.ID)

	up = PickUpload(uploads[2:])
	require.NotNil(t, up)
	assert.Equal(t, int64(3), up.ID, "falls back to first upload without a zip")

	assert.Nil(t, PickUpload(nil))
}

func TestOpenResolvesUploadAndStreams(t *testing.T) {
	payload := "asset bytes"

	mux := http.NewServeMux()
	mux.HandleFunc("/games/7/uploads", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "42", r.URL.Query().Get("download_key_id"))
		json.NewEncoder(w).Encode(map[string]any{
			"uploads": []Upload{{ID: 99, Filename: "downwell.zip", GameID: 7}},
		})
	})
	mux.HandleFunc("/uploads/99/download", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "42", r.URL.Query().Get("download_key_id"))
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		fmt.Fprint(w, payload)
	})

	c := newTestClient(t, mux)
	dl, err := c.Open(context.Background(), models.AssetRef{ID: 7, KeyID: 42, Title: "Downwell"})
	require.NoError(t, err)
	defer dl.Body.Close()

	assert.Equal(t, "downwell.zip", dl.Filename)
	assert.Equal(t, int64(len(payload)), dl.Size)

	got, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	assert.Equal(t, payload, string(got))
}

func TestOpenNoUploads(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/games/7/uploads", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"uploads": []Upload{}})
	})

	c := newTestClient(t, mux)
	_, err := c.Open(context.Background(), models.AssetRef{ID: 7, KeyID: 42, Title: "Empty"})
	require.Error(t, err)
	assert.Equal(t, models.ErrKindNetwork, models.KindOf(err))
}

func TestOpenDirectURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "direct")
	}))
	t.Cleanup(srv.Close)

	c := New("test-key", srv.URL)
	dl, err := c.Open(context.Background(), models.AssetRef{
		ID:          1,
		DownloadURL: srv.URL + "/files/bundle.zip",
	})
	require.NoError(t, err)
	defer dl.Body.Close()

	assert.Equal(t, "bundle.zip", dl.Filename, "filename derived from URL path")
}
