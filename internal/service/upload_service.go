package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/adaptive-learning-portal/internal/models"
	appErrors "github.com/noah-isme/adaptive-learning-portal/pkg/errors"
)

type fileUploader interface {
	Upload(ctx context.Context, filename string, r io.Reader) (*models.UploadResult, error)
}

// Attachment is a file received from a form, not yet forwarded.
type Attachment struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// UploadService forwards lesson attachments to the backend's /upload endpoint.
type UploadService struct {
	uploader fileUploader
	maxBytes int64
	logger   *zap.Logger
}

// NewUploadService constructs an UploadService. maxBytes <= 0 disables the size check.
func NewUploadService(uploader fileUploader, maxBytes int64, logger *zap.Logger) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadService{uploader: uploader, maxBytes: maxBytes, logger: logger}
}

// Upload sends file and returns the URL the backend stored it under.
func (s *UploadService) Upload(ctx context.Context, file Attachment) (*models.UploadResult, error) {
	if strings.TrimSpace(file.Filename) == "" || file.Content == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if s.maxBytes > 0 && file.Size > s.maxBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes", s.maxBytes))
	}
	content := file.Content
	if s.maxBytes > 0 {
		content = io.LimitReader(content, s.maxBytes)
	}
	result, err := s.uploader.Upload(ctx, file.Filename, content)
	if err != nil {
		return nil, err
	}
	s.logger.Info("attachment uploaded", zap.String("filename", result.Filename), zap.String("url", result.URL))
	return result, nil
}
