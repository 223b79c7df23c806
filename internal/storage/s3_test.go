package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 - минимальный S3 API в path-style: бакеты и объекты в памяти
type fakeS3 struct {
	mu      sync.Mutex
	buckets map[string]bool
	objects map[string][]byte
	types   map[string]string
}

func newFakeS3(t *testing.T) (*fakeS3, *httptest.Server) {
	t.Helper()
	fake := &fakeS3{buckets: map[string]bool{}, objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(http.HandlerFunc(fake.serve))
	t.Cleanup(srv.Close)
	return fake, srv
}

func (f *fakeS3) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.TrimPrefix(r.URL.Path, "/")
	bucket, object, _ := strings.Cut(key, "/")

	switch {
	case object == "" && r.Method == http.MethodPut:
		f.buckets[bucket] = true
		w.WriteHeader(http.StatusOK)
	case object == "" && r.Method == http.MethodHead:
		if !f.buckets[bucket] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[key] = data
		f.types[key] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodHead:
		data, ok := f.objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("Last-Modified", "Mon, 02 Mar 2026 10:00:00 GMT")
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func (f *fakeS3) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

func newS3(t *testing.T, srv *httptest.Server, baseURL string) *S3Storage {
	t.Helper()
	store, err := NewS3Storage(context.Background(), Config{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		Bucket:    "apartments",
		Region:    "us-east-1",
		AccessKey: "test",
		SecretKey: "testsecret",
		BaseURL:   baseURL,
	})
	require.NoError(t, err)
	return store
}

func TestS3Storage_SaveExistsDelete(t *testing.T) {
	fake, srv := newFakeS3(t)
	store := newS3(t, srv, "https://cdn.example.com/")
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "apartments/c.webp", strings.NewReader("webp"), 4, "image/webp"))
	assert.True(t, fake.has("apartments/apartments/c.webp"))
	assert.Equal(t, "image/webp", fake.types["apartments/apartments/c.webp"])

	exists, err := store.Exists(ctx, "apartments/c.webp")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.Delete(ctx, "apartments/c.webp"))
	assert.False(t, fake.has("apartments/apartments/c.webp"))

	exists, err = store.Exists(ctx, "apartments/c.webp")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestS3Storage_URLs(t *testing.T) {
	_, srv := newFakeS3(t)

	cdn := newS3(t, srv, "https://cdn.example.com/")
	url := cdn.GetURL("apartments/c.webp")
	assert.Equal(t, "https://cdn.example.com/apartments/c.webp", url)
	path, ok := cdn.PathFromURL(url)
	require.True(t, ok)
	assert.Equal(t, "apartments/c.webp", path)

	_, ok = cdn.PathFromURL("/uploads/apartments/c.webp")
	assert.False(t, ok)

	// без публичного URL ссылки строятся от endpoint и бакета
	direct := newS3(t, srv, "")
	assert.Equal(t, srv.URL+"/apartments/apartments/c.webp", direct.GetURL("apartments/c.webp"))
}
