package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Storage - хранилище файлов изображений объявлений
type Storage interface {
	// Save сохраняет файл по относительному пути (ключу)
	Save(ctx context.Context, path string, reader io.Reader, size int64, contentType string) error

	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete удаляет файл; отсутствие файла ошибкой не считается
	Delete(ctx context.Context, path string) error

	Exists(ctx context.Context, path string) (bool, error)

	// GetURL возвращает публичный URL файла
	GetURL(path string) string

	// PathFromURL возвращает ключ файла по его URL, если файл принадлежит этому хранилищу
	PathFromURL(url string) (string, bool)
}

type Config struct {
	Type      string // local, s3
	BasePath  string // для local
	BaseURL   string // публичный URL
	Bucket    string // для s3
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string // MinIO, Cloudflare R2 или AWS S3
	UseSSL    bool
}

// NewStorage создает хранилище по конфигурации
func NewStorage(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "local", "":
		return NewLocalStorage(cfg)
	case "s3", "minio", "cloudflare_r2":
		return NewS3Storage(context.Background(), cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

func trimPrefixURL(url, base string) (string, bool) {
	base = strings.TrimRight(base, "/")
	if base == "" || !strings.HasPrefix(url, base+"/") {
		return "", false
	}
	path := strings.TrimPrefix(url, base+"/")
	if path == "" || strings.Contains(path, "..") {
		return "", false
	}
	return path, true
}
