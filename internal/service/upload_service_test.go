package service

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/adaptive-learning-portal/internal/models"
	appErrors "github.com/noah-isme/adaptive-learning-portal/pkg/errors"
)

type fileUploaderStub struct {
	name string
	body []byte
}

func (f *fileUploaderStub) Upload(_ context.Context, filename string, r io.Reader) (*models.UploadResult, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.name, f.body = filename, body
	return &models.UploadResult{URL: "http://backend/static/" + filename, Filename: filename}, nil
}

func TestUploadServiceForwardsFile(t *testing.T) {
	backend := &fileUploaderStub{}
	svc := NewUploadService(backend, 1024, nil)

	res, err := svc.Upload(context.Background(), Attachment{Filename: "notes.pdf", Size: 5, Content: strings.NewReader("hello")})
	require.NoError(t, err)
	assert.Equal(t, "http://backend/static/notes.pdf", res.URL)
	assert.Equal(t, "hello", string(backend.body))
}

func TestUploadServiceEnforcesLimits(t *testing.T) {
	backend := &fileUploaderStub{}
	svc := NewUploadService(backend, 4, nil)

	_, err := svc.Upload(context.Background(), Attachment{Filename: "big.png", Size: 10, Content: bytes.NewReader(make([]byte, 10))})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Upload(context.Background(), Attachment{Filename: "", Content: strings.NewReader("x")})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Empty(t, backend.name)

	// A lying size header still cannot push more than the limit upstream.
	_, err = svc.Upload(context.Background(), Attachment{Filename: "a.png", Size: 1, Content: strings.NewReader("abcdefgh")})
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(backend.body))
}
