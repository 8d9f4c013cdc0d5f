// Package media copies article images into our own bucket so platforms that
// fetch by URL are not blocked by the source site's hotlink rules.
package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"newsrelay/config"
)

// presignTTL must outlive the Instagram settle delay and platform-side fetches.
const presignTTL = 24 * time.Hour

// ObjectStore is the subset of common.S3 the mirror uses.
type ObjectStore interface {
	Exists(ctx context.Context, bucket, key string) (bool, error)
	Put(ctx context.Context, bucket, key string, body io.Reader, contentType, cacheControl string) error
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// Mirror uploads each image once, keyed by a hash of its source URL.
type Mirror struct {
	store      ObjectStore
	bucket     string
	prefix     string
	httpClient *http.Client
}

func NewMirror(store ObjectStore, bucket, prefix string, httpClient *http.Client) *Mirror {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.MediaTimeout}
	}
	return &Mirror{store: store, bucket: bucket, prefix: prefix, httpClient: httpClient}
}

// Key is the object key for a source image URL.
func (m *Mirror) Key(imageURL string) string {
	sum := sha256.Sum256([]byte(imageURL))
	return m.prefix + "media/" + hex.EncodeToString(sum[:16]) + extension(imageURL)
}

// Mirror returns a presigned URL for the bucket copy of imageURL, uploading it
// first when it is not there yet.
func (m *Mirror) Mirror(ctx context.Context, imageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, config.MediaTimeout)
	defer cancel()

	key := m.Key(imageURL)
	exists, err := m.store.Exists(ctx, m.bucket, key)
	if err != nil {
		return "", fmt.Errorf("failed to check %s: %w", key, err)
	}

	if !exists {
		data, contentType, err := m.fetch(ctx, imageURL)
		if err != nil {
			return "", err
		}
		if err := m.store.Put(ctx, m.bucket, key, bytes.NewReader(data), contentType, "public, max-age=86400"); err != nil {
			return "", fmt.Errorf("failed to upload %s: %w", key, err)
		}
		log.Printf("Mirrored image %s to s3://%s/%s", imageURL, m.bucket, key)
	}

	signed, err := m.store.PresignGet(ctx, m.bucket, key, presignTTL)
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return signed, nil
}

func (m *Mirror) fetch(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("image download returned %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", fmt.Errorf("not an image: %s", contentType)
	}
	return data, contentType, nil
}

func extension(imageURL string) string {
	if i := strings.IndexAny(imageURL, "?#"); i >= 0 {
		imageURL = imageURL[:i]
	}
	ext := strings.ToLower(path.Ext(imageURL))
	if ext == "" || mime.TypeByExtension(ext) == "" {
		return ""
	}
	return ext
}
