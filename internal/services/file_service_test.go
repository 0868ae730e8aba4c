package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMediaStore struct {
	failures  int
	result    *uploader.UploadResult
	uploads   int
	params    uploader.UploadParams
	body      string
	destroyed string
}

func (m *fakeMediaStore) Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error) {
	m.uploads++
	m.params = params
	if m.uploads <= m.failures {
		return nil, errors.New("connection reset")
	}
	data, _ := io.ReadAll(file.(io.Reader))
	m.body = string(data)
	return m.result, nil
}

func (m *fakeMediaStore) Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error) {
	m.destroyed = params.PublicID
	return &uploader.DestroyResult{Result: "ok"}, nil
}

func okUpload() *uploader.UploadResult {
	return &uploader.UploadResult{
		SecureURL: "https://res.cloudinary.com/demo/image/upload/v1/proof.jpg",
		PublicID:  "sidequest/submissions/proof",
		Bytes:     5,
		Format:    "jpg",
		Width:     640,
		Height:    480,
	}
}

func photoUpload(body string) *FileUploadRequest {
	return &FileUploadRequest{
		UserID:      7,
		File:        strings.NewReader(body),
		Filename:    "proof.jpg",
		ContentType: "image/jpeg",
		Size:        int64(len(body)),
	}
}

func TestUploadMedia_Success(t *testing.T) {
	store := &fakeMediaStore{result: okUpload()}
	svc := NewFileServiceWithStore(store, zap.NewNop(), nil)

	res, err := svc.UploadMedia(context.Background(), photoUpload("hello"))
	require.NoError(t, err)
	assert.Equal(t, "image", res.Type)
	assert.Equal(t, "sidequest/submissions/proof", res.PublicID)
	assert.Equal(t, int64(5), res.Size)
	assert.Equal(t, "hello", store.body)
	assert.Equal(t, "image", store.params.ResourceType)
	assert.True(t, strings.HasPrefix(store.params.Folder, "sidequest/submissions/"))
	assert.True(t, strings.HasSuffix(store.params.Folder, "/user_7"))
}

func TestUploadMedia_RetriesTransientFailures(t *testing.T) {
	store := &fakeMediaStore{failures: 1, result: okUpload()}
	svc := NewFileServiceWithStore(store, zap.NewNop(), nil)

	_, err := svc.UploadMedia(context.Background(), photoUpload("hello"))
	require.NoError(t, err)
	assert.Equal(t, 2, store.uploads)
	assert.Equal(t, "hello", store.body)
}

func TestUploadMedia_RejectedFileIsNotRetried(t *testing.T) {
	store := &fakeMediaStore{result: &uploader.UploadResult{Error: api.ErrorResp{Message: "Invalid image file"}}}
	svc := NewFileServiceWithStore(store, zap.NewNop(), nil)

	_, err := svc.UploadMedia(context.Background(), photoUpload("hello"))
	require.Error(t, err)
	assert.Equal(t, ErrTypeUnavailable, GetServiceError(err).Type)
	assert.Equal(t, 1, store.uploads)
}

func TestUploadMedia_Validation(t *testing.T) {
	cfg := DefaultFileConfig()
	cfg.MaxImageSize = 4

	tests := []struct {
		name string
		req  *FileUploadRequest
	}{
		{"missing file", &FileUploadRequest{Filename: "proof.jpg", ContentType: "image/jpeg"}},
		{"bad extension", &FileUploadRequest{File: strings.NewReader("x"), Filename: "proof.exe", ContentType: "image/jpeg"}},
		{"path traversal", &FileUploadRequest{File: strings.NewReader("x"), Filename: "../proof.jpg", ContentType: "image/jpeg"}},
		{"bad content type", &FileUploadRequest{File: strings.NewReader("x"), Filename: "proof.jpg", ContentType: "application/pdf"}},
		{"declared too large", &FileUploadRequest{File: strings.NewReader("x"), Filename: "proof.jpg", ContentType: "image/jpeg", Size: 5}},
		{"body too large", &FileUploadRequest{File: strings.NewReader("hello"), Filename: "proof.jpg", ContentType: "image/jpeg"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeMediaStore{result: okUpload()}
			svc := NewFileServiceWithStore(store, zap.NewNop(), cfg)

			_, err := svc.UploadMedia(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			assert.Zero(t, store.uploads)
		})
	}
}

func TestDeleteFile(t *testing.T) {
	store := &fakeMediaStore{}
	svc := NewFileServiceWithStore(store, zap.NewNop(), nil)

	require.NoError(t, svc.DeleteFile(context.Background(), "sidequest/submissions/proof", ""))
	assert.Equal(t, "sidequest/submissions/proof", store.destroyed)

	assert.True(t, IsValidationError(svc.DeleteFile(context.Background(), "", "image")))
}
