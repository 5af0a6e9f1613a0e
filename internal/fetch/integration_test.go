//go:build integration

// Integration tests that exercise the full download pipeline against a
// real HTTP server running in a container. Run with:
//
//	go test -tags integration ./internal/fetch/
package fetch

import (
	"archive/zip"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/itchgrab/itchgrab/internal/models"
)

var serverBaseURL string

// TestMain sets up and tears down the nginx container for all tests.
func TestMain(m *testing.M) {
	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	zipPath, err := buildFixtureZip()
	if err != nil {
		log.Fatalf("Failed to build fixture archive: %v", err)
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nginx:1.27-alpine",
			ExposedPorts: []string{"80/tcp"},
			Files: []testcontainers.ContainerFile{
				{
					HostFilePath:      zipPath,
					ContainerFilePath: "/usr/share/nginx/html/pack.zip",
					FileMode:          0o644,
				},
			},
			WaitingFor: wait.ForListeningPort("80/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start nginx container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	// Workaround: testcontainers may return "null" as host in some environments
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := container.MappedPort(ctx, "80")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}
	serverBaseURL = fmt.Sprintf("http://%s:%s", host, mappedPort.Port())

	code := m.Run()

	_ = container.Terminate(ctx)

	os.Exit(code)
}

func buildFixtureZip() (string, error) {
	path := filepath.Join(os.TempDir(), "itchgrab-fixture.zip")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("assets/sprite.txt")
	if err != nil {
		return "", err
	}
	if _, err := w.Write([]byte("sprite data")); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	return path, f.Close()
}

// httpSource streams assets from the fixture server over real TCP.
type httpSource struct{}

func (httpSource) Open(ctx context.Context, asset models.AssetRef) (*models.Download, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.DownloadURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, models.NewTaskError(models.ErrKindNetwork, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, models.NewTaskError(models.ErrKindNetwork,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	return &models.Download{
		Body:     resp.Body,
		Size:     resp.ContentLength,
		Filename: filepath.Base(asset.DownloadURL),
	}, nil
}

func TestPipelineOverHTTP(t *testing.T) {
	dir := t.TempDir()
	worklist := models.Worklist{
		{ID: 1, Author: "studio", Title: "Sprite Pack", DownloadURL: serverBaseURL + "/pack.zip"},
	}

	summary, err := Run(context.Background(), worklist, httpSource{}, Options{
		MaxConcurrent: 2,
		OutputDir:     dir,
		Unzip:         true,
	})
	require.NoError(t, err)

	require.Equal(t, 1, summary.Succeeded)
	assert.Empty(t, summary.Failed)

	data, err := os.ReadFile(filepath.Join(dir, "Sprite Pack", "assets", "sprite.txt"))
	require.NoError(t, err, "extracted content should be on disk")
	assert.Equal(t, "sprite data", string(data))
}

func TestPipelineMissingAssetFails(t *testing.T) {
	dir := t.TempDir()
	worklist := models.Worklist{
		{ID: 2, Author: "studio", Title: "Gone", DownloadURL: serverBaseURL + "/missing.zip"},
	}

	summary, err := Run(context.Background(), worklist, httpSource{}, Options{
		MaxConcurrent: 1,
		OutputDir:     dir,
	})
	require.NoError(t, err)

	require.Len(t, summary.Failed, 1)
	assert.Equal(t, models.ErrKindNetwork, summary.Failed[0].Err.Kind)
	assert.Equal(t, models.ExitFailed, summary.ExitCode())
}
