package client

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/noah-isme/adaptive-learning-portal/internal/models"
	appErrors "github.com/noah-isme/adaptive-learning-portal/pkg/errors"
)

// Upload forwards a lesson attachment as the multipart "file" field.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (*models.UploadResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "prepare upload")
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "read upload")
	}
	if err := writer.Close(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "prepare upload")
	}

	var out models.UploadResult
	rc := call{
		method:      http.MethodPost,
		path:        "/upload",
		raw:         &buf,
		contentType: writer.FormDataContentType(),
	}
	if err := c.do(ctx, rc, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
