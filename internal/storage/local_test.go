package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) (*LocalStorage, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewLocalStorage(Config{BasePath: dir, BaseURL: "/uploads/"})
	require.NoError(t, err)
	return store, dir
}

func TestLocalStorage_SaveGetDelete(t *testing.T) {
	store, dir := newLocal(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "apartments/a.jpg", strings.NewReader("jpeg-bytes"), 10, "image/jpeg"))
	assert.FileExists(t, filepath.Join(dir, "apartments", "a.jpg"))

	exists, err := store.Exists(ctx, "apartments/a.jpg")
	require.NoError(t, err)
	assert.True(t, exists)

	file, err := store.Get(ctx, "apartments/a.jpg")
	require.NoError(t, err)
	data, err := io.ReadAll(file)
	require.NoError(t, file.Close())
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	require.NoError(t, store.Delete(ctx, "apartments/a.jpg"))
	exists, err = store.Exists(ctx, "apartments/a.jpg")
	require.NoError(t, err)
	assert.False(t, exists)

	// повторное удаление не ошибка
	assert.NoError(t, store.Delete(ctx, "apartments/a.jpg"))
}

func TestLocalStorage_PathStaysInsideBase(t *testing.T) {
	store, dir := newLocal(t)

	require.NoError(t, store.Save(context.Background(), "../../escape.jpg", strings.NewReader("x"), 1, "image/jpeg"))
	assert.FileExists(t, filepath.Join(dir, "escape.jpg"))

	assert.Error(t, store.Save(context.Background(), "", strings.NewReader("x"), 1, "image/jpeg"))
}

func TestLocalStorage_URLRoundTrip(t *testing.T) {
	store, _ := newLocal(t)

	url := store.GetURL("apartments/b.png")
	assert.Equal(t, "/uploads/apartments/b.png", url)

	path, ok := store.PathFromURL(url)
	require.True(t, ok)
	assert.Equal(t, "apartments/b.png", path)

	for _, foreign := range []string{
		"https://cdn.example.com/apartments/b.png",
		"/uploads/",
		"/uploads/../etc/passwd",
		"/uploadsX/apartments/b.png",
	} {
		_, ok := store.PathFromURL(foreign)
		assert.False(t, ok, foreign)
	}
}

func TestNewLocalStorage_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "uploads")
	_, err := NewLocalStorage(Config{BasePath: dir})
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewStorage_UnsupportedType(t *testing.T) {
	_, err := NewStorage(Config{Type: "ftp"})
	assert.ErrorContains(t, err, "unsupported storage type")

	_, err = NewStorage(Config{Type: "s3"})
	assert.ErrorContains(t, err, "requires endpoint and bucket")
}
