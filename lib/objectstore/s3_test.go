// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package objectstore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/whiteboard/lib/assetid"
)

type fakeObject struct {
	data        []byte
	contentType string
	hash        string
	modified    time.Time
}

// fakeBucket serves the path-style subset of the S3 API the store
// uses: PUT, GET, and HEAD on /{bucket}/{key}.
type fakeBucket struct {
	bucket string

	mu      sync.Mutex
	objects map[string]fakeObject
	paths   []string
}

func newFakeBucket(bucket string) *fakeBucket {
	return &fakeBucket{bucket: bucket, objects: make(map[string]fakeObject)}
}

func (b *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	prefix := "/" + b.bucket + "/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.Error(w, "wrong bucket", http.StatusBadRequest)
		return
	}
	key := strings.TrimPrefix(r.URL.Path, prefix)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.paths = append(b.paths, r.Method+" "+key)

	switch r.Method {
	case http.MethodPut:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b.objects[key] = fakeObject{
			data:        data,
			contentType: r.Header.Get("Content-Type"),
			hash:        r.Header.Get("X-Amz-Meta-Blake3"),
			modified:    time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC),
		}
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)

	case http.MethodGet, http.MethodHead:
		object, ok := b.objects[key]
		if !ok {
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>`+
				`<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", object.contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(object.data)))
		w.Header().Set("Last-Modified", object.modified.Format(http.TimeFormat))
		w.Header().Set("X-Amz-Meta-Blake3", object.hash)
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			w.Write(object.data)
		}

	default:
		http.Error(w, "unsupported", http.StatusMethodNotAllowed)
	}
}

func newTestS3Store(t *testing.T, prefix string) (*S3Store, *fakeBucket) {
	t.Helper()

	// Keep the developer's AWS configuration out of the test. A CA
	// bundle cannot be applied to the plain test client, so it would
	// fail LoadDefaultConfig.
	missing := filepath.Join(t.TempDir(), "missing")
	t.Setenv("AWS_CONFIG_FILE", missing)
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", missing)
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_CA_BUNDLE", "")

	bucket := newFakeBucket("whiteboard")
	server := httptest.NewServer(bucket)
	t.Cleanup(server.Close)

	store, err := NewS3Store(context.Background(), S3Options{
		Bucket:          "whiteboard",
		Prefix:          prefix,
		Endpoint:        server.URL,
		AccessKeyID:     "test-key",
		AccessKeySecret: "test-secret",
		DisableHTTPS:    true,
		HTTPClient:      server.Client(),
	})
	if err != nil {
		t.Fatalf("NewS3Store: %v", err)
	}
	return store, bucket
}

func TestNewS3StoreRequiresBucket(t *testing.T) {
	if _, err := NewS3Store(context.Background(), S3Options{}); err == nil {
		t.Fatal("expected error for missing bucket")
	}
}

func TestS3StorePutGetStat(t *testing.T) {
	store, bucket := newTestS3Store(t, "uploads/")
	ctx := context.Background()
	data := []byte("<svg xmlns=\"http://www.w3.org/2000/svg\"/>")

	put, err := store.Put(ctx, "id1-diagram.svg", "image/svg+xml", data)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if put.Key != "id1-diagram.svg" || put.ContentType != "image/svg+xml" {
		t.Errorf("Put returned %+v", put)
	}
	if put.Size != int64(len(data)) {
		t.Errorf("Size = %d, want %d", put.Size, len(data))
	}
	if put.Hash != assetid.HashBytes(data) {
		t.Errorf("Hash = %q, want content hash", put.Hash)
	}
	if put.StoredAt.IsZero() {
		t.Error("StoredAt should come from Last-Modified")
	}

	bucket.mu.Lock()
	stored, ok := bucket.objects["uploads/id1-diagram.svg"]
	bucket.mu.Unlock()
	if !ok {
		t.Fatal("object not stored under the prefixed key")
	}
	if string(stored.data) != string(data) {
		t.Errorf("bucket holds %q", stored.data)
	}

	object, reader, err := store.Get(ctx, "id1-diagram.svg")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer reader.Close()
	got, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("Get body = %q", got)
	}
	if object.Hash != put.Hash || object.ContentType != "image/svg+xml" {
		t.Errorf("Get metadata = %+v", object)
	}

	stat, err := store.Stat(ctx, "id1-diagram.svg")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if stat.Size != put.Size || !stat.StoredAt.Equal(put.StoredAt) {
		t.Errorf("Stat = %+v, want %+v", stat, put)
	}
}

func TestS3StoreNotFound(t *testing.T) {
	store, _ := newTestS3Store(t, "")
	ctx := context.Background()

	if _, _, err := store.Get(ctx, "missing.png"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get error = %v, want ErrNotFound", err)
	}
	if _, err := store.Stat(ctx, "missing.png"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Stat error = %v, want ErrNotFound", err)
	}
}

func TestS3StoreInvalidKey(t *testing.T) {
	store, bucket := newTestS3Store(t, "")

	if _, err := store.Put(context.Background(), "../other", "", []byte("x")); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Put error = %v, want ErrInvalidKey", err)
	}

	bucket.mu.Lock()
	defer bucket.mu.Unlock()
	if len(bucket.paths) != 0 {
		t.Errorf("invalid key reached the bucket: %v", bucket.paths)
	}
}
