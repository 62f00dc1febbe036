package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"sync"
)

type memoryObject struct {
	ContentType string
	Data        []byte
}

// MemoryUploader keeps objects in process memory. Used by tests and by
// local runs that want archive URLs without a bucket.
type MemoryUploader struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	base    *url.URL
}

func NewMemoryUploader(publicBaseURL string) (*MemoryUploader, error) {
	base, err := url.Parse(publicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid public base URL %q: %w", publicBaseURL, err)
	}
	return &MemoryUploader{objects: make(map[string]memoryObject), base: base}, nil
}

func (u *MemoryUploader) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	sum := md5.Sum(buf.Bytes())

	u.mu.Lock()
	u.objects[key] = memoryObject{ContentType: contentType, Data: buf.Bytes()}
	u.mu.Unlock()

	return &UploadResult{Key: key, Location: u.GetPublicURL(key), ETag: hex.EncodeToString(sum[:])}, nil
}

func (u *MemoryUploader) Delete(ctx context.Context, key string) error {
	u.mu.Lock()
	delete(u.objects, key)
	u.mu.Unlock()
	return nil
}

func (u *MemoryUploader) GetPublicURL(key string) string {
	return publicURL(u.base, key)
}

// Object returns the stored bytes of key.
func (u *MemoryUploader) Object(key string) ([]byte, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	o, ok := u.objects[key]
	return o.Data, ok
}
