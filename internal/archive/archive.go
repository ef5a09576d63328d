// Package archive writes JSON snapshots of distributed ads to a blob store.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/JakeFAU/adfiller/internal/ad"
)

const contentType = "application/json"

// Archiver stores one object per ad, keyed by observation date and id.
type Archiver struct {
	store  ad.BlobStore
	prefix string
}

// New returns an Archiver writing below prefix ("ads" when empty).
func New(store ad.BlobStore, prefix string) (*Archiver, error) {
	if store == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if prefix == "" {
		prefix = "ads"
	}
	return &Archiver{store: store, prefix: prefix}, nil
}

// ObjectPath is the object key for a, e.g. ads/2024/03/02/41925800.json.
func (a *Archiver) ObjectPath(item ad.Ad) string {
	return path.Join(a.prefix, item.ObservedAt.UTC().Format("2006/01/02"), fmt.Sprintf("%d.json", item.ID))
}

// Archive writes item and returns the object URI.
func (a *Archiver) Archive(ctx context.Context, item ad.Ad) (string, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return "", fmt.Errorf("marshal ad %d: %w", item.ID, err)
	}
	uri, err := a.store.PutObject(ctx, a.ObjectPath(item), contentType, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("archive ad %d: %w", item.ID, err)
	}
	return uri, nil
}
