package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"rentals_backend/internal/logger"
	"rentals_backend/internal/storage"
	"rentals_backend/pkg/apperrors"

	"github.com/google/uuid"
)

const imagesPrefix = "apartments"

var allowedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// ImageService - загрузка и удаление изображений объявлений
type ImageService interface {
	Validate(file *multipart.FileHeader) error
	// Store сохраняет файлы и возвращает их URL; при ошибке уже сохраненные удаляются
	Store(ctx context.Context, files []*multipart.FileHeader) ([]string, error)
	// Remove удаляет файлы по URL; чужие URL и ошибки только логируются
	Remove(ctx context.Context, urls []string)
}

type ImageConfig struct {
	MaxSize      int64
	AllowedTypes []string
}

type imageService struct {
	storage      storage.Storage
	maxSize      int64
	allowedTypes map[string]bool
}

func NewImageService(store storage.Storage, cfg ImageConfig) ImageService {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 10 * 1024 * 1024
	}
	if len(cfg.AllowedTypes) == 0 {
		cfg.AllowedTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/webp"}
	}
	allowed := make(map[string]bool, len(cfg.AllowedTypes))
	for _, t := range cfg.AllowedTypes {
		allowed[strings.ToLower(t)] = true
	}
	return &imageService{storage: store, maxSize: cfg.MaxSize, allowedTypes: allowed}
}

func (s *imageService) Validate(file *multipart.FileHeader) error {
	if file == nil {
		return apperrors.ErrInvalidFileType
	}
	if file.Size > s.maxSize {
		return apperrors.ErrFileTooLarge.WithMessage(
			fmt.Sprintf("File %s exceeds %d bytes", file.Filename, s.maxSize))
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	fallback, ok := allowedImageExtensions[ext]
	if !ok {
		return apperrors.ErrInvalidFileType.WithMessage(
			fmt.Sprintf("File %s has unsupported extension", file.Filename))
	}

	mimeType := strings.ToLower(file.Header.Get("Content-Type"))
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = fallback
	}
	if !s.allowedTypes[mimeType] {
		return apperrors.ErrInvalidFileType.WithMessage(
			fmt.Sprintf("File %s has unsupported content type %s", file.Filename, mimeType))
	}
	return nil
}

func (s *imageService) Store(ctx context.Context, files []*multipart.FileHeader) ([]string, error) {
	urls := make([]string, 0, len(files))
	for _, file := range files {
		url, err := s.storeOne(ctx, file)
		if err != nil {
			s.Remove(ctx, urls)
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func (s *imageService) storeOne(ctx context.Context, file *multipart.FileHeader) (string, error) {
	if err := s.Validate(file); err != nil {
		return "", err
	}

	src, err := file.Open()
	if err != nil {
		return "", apperrors.InternalError(err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(file.Filename))
	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = allowedImageExtensions[ext]
	}

	path := fmt.Sprintf("%s/%s%s", imagesPrefix, uuid.NewString(), ext)
	if err := s.storage.Save(ctx, path, src, file.Size, contentType); err != nil {
		return "", apperrors.ExternalServiceError(err, "storage")
	}
	return s.storage.GetURL(path), nil
}

func (s *imageService) Remove(ctx context.Context, urls []string) {
	for _, url := range urls {
		path, ok := s.storage.PathFromURL(url)
		if !ok {
			continue
		}
		if err := s.storage.Delete(ctx, path); err != nil {
			logger.CtxWithError(ctx, "Failed to delete image", err, "path", path)
		}
	}
}
