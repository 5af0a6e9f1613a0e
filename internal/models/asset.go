// Package models defines the data structures shared across the itchgrab
// download pipeline.
package models

import (
	"io"
	"strings"
)

// AssetRef identifies one purchased asset in the remote catalog.
// Instances are immutable once constructed by the catalog client.
type AssetRef struct {
	ID          int64
	Author      string
	Title       string
	KeyID       int64  // download key granting access to this asset
	DownloadURL string // pre-resolved URL; empty until the worker acquires one
}

// Download is an open byte stream for one asset, produced by the catalog
// client when a worker acquires the asset's download URL.
type Download struct {
	Body     io.ReadCloser
	Size     int64 // -1 if the server did not report a length
	Filename string
}

// Worklist is the ordered set of assets targeted for one run.
// Order follows the catalog; IDs are unique within a run.
type Worklist []AssetRef

// FilterAssets returns the subsequence of catalog whose author and title
// fields case-insensitively contain the given substrings. An empty filter
// matches everything. Catalog order is preserved.
func FilterAssets(catalog []AssetRef, author, title string) Worklist {
	author = strings.ToLower(author)
	title = strings.ToLower(title)

	out := make(Worklist, 0, len(catalog))
	for _, a := range catalog {
		if author != "" && !strings.Contains(strings.ToLower(a.Author), author) {
			continue
		}
		if title != "" && !strings.Contains(strings.ToLower(a.Title), title) {
			continue
		}
		out = append(out, a)
	}
	return out
}
