// internal/services/file_service.go
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

// MediaStore is the part of the Cloudinary upload API the file service uses
type MediaStore interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// fileService implements FileService on Cloudinary
type fileService struct {
	store  MediaStore
	logger *zap.Logger
	config *FileServiceConfig
}

// FileServiceConfig holds file service configuration
type FileServiceConfig struct {
	MaxImageSize      int64         `json:"max_image_size"`
	MaxVideoSize      int64         `json:"max_video_size"`
	AllowedImageTypes []string      `json:"allowed_image_types"`
	AllowedVideoTypes []string      `json:"allowed_video_types"`
	AllowedExtensions []string      `json:"allowed_extensions"`
	RootFolder        string        `json:"root_folder"`
	UploadTimeout     time.Duration `json:"upload_timeout"`
	MaxRetries        uint64        `json:"max_retries"`
}

// NewFileService creates a file service backed by a Cloudinary account
func NewFileService(cld *cloudinary.Cloudinary, logger *zap.Logger, config *FileServiceConfig) FileService {
	return NewFileServiceWithStore(&cld.Upload, logger, config)
}

// NewFileServiceWithStore creates a file service over any MediaStore
func NewFileServiceWithStore(store MediaStore, logger *zap.Logger, config *FileServiceConfig) FileService {
	if config == nil {
		config = DefaultFileConfig()
	}
	return &fileService{
		store:  store,
		logger: logger,
		config: config,
	}
}

// DefaultFileConfig returns default file service configuration
func DefaultFileConfig() *FileServiceConfig {
	return &FileServiceConfig{
		MaxImageSize: 10 * 1024 * 1024,
		MaxVideoSize: 100 * 1024 * 1024,
		AllowedImageTypes: []string{
			"image/jpeg", "image/jpg", "image/png",
			"image/gif", "image/webp", "image/heic",
		},
		AllowedVideoTypes: []string{
			"video/mp4", "video/quicktime", "video/webm",
		},
		AllowedExtensions: []string{
			".jpg", ".jpeg", ".png", ".gif", ".webp", ".heic",
			".mp4", ".mov", ".webm",
		},
		RootFolder:    "sidequest",
		UploadTimeout: 2 * time.Minute,
		MaxRetries:    3,
	}
}

// ===============================
// UPLOAD
// ===============================

// UploadMedia validates and uploads one submission photo or video. Transient
// upload failures are retried with exponential backoff.
func (s *fileService) UploadMedia(ctx context.Context, req *FileUploadRequest) (*FileUploadResult, error) {
	resourceType, err := s.validateUpload(req)
	if err != nil {
		return nil, NewValidationError(err.Error(), err)
	}

	// The body is buffered so every attempt can re-read it.
	limit := s.maxSize(resourceType)
	data, err := io.ReadAll(io.LimitReader(req.File, limit+1))
	if err != nil {
		return nil, NewValidationError("failed to read upload", err)
	}
	if int64(len(data)) > limit {
		return nil, NewValidationError(fmt.Sprintf("file too large (max %d bytes)", limit), nil)
	}

	params := uploader.UploadParams{
		Folder:         s.uploadFolder(req.Folder, req.UserID),
		ResourceType:   resourceType,
		UseFilename:    BoolPtr(false),
		UniqueFilename: BoolPtr(true),
		Tags:           append([]string{"sidequest", "submission"}, req.Tags...),
	}

	var result *uploader.UploadResult
	attempt := 0
	op := func() error {
		attempt++
		uploadCtx, cancel := context.WithTimeout(ctx, s.config.UploadTimeout)
		defer cancel()

		res, err := s.store.Upload(uploadCtx, bytes.NewReader(data), params)
		if err != nil {
			return err
		}
		if res.Error.Message != "" {
			// Cloudinary reports rejected files in the body; retrying won't help.
			return backoff.Permanent(errors.New(res.Error.Message))
		}
		result = res
		return nil
	}
	notify := func(err error, wait time.Duration) {
		s.logger.Warn("Media upload failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", wait),
			zap.Error(err),
		)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 300 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	b := backoff.WithContext(backoff.WithMaxRetries(policy, s.config.MaxRetries), ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		s.logger.Error("Failed to upload media to Cloudinary",
			zap.Error(err),
			zap.Int64("user_id", req.UserID),
			zap.String("filename", req.Filename),
			zap.Int("attempts", attempt),
		)
		return nil, NewServiceUnavailableError("failed to upload media")
	}

	uploaded := &FileUploadResult{
		URL:      result.SecureURL,
		PublicID: result.PublicID,
		Size:     int64(result.Bytes),
		Format:   result.Format,
		Width:    result.Width,
		Height:   result.Height,
		Type:     resourceType,
		Filename: req.Filename,
	}

	s.logger.Info("Media uploaded successfully",
		zap.Int64("user_id", req.UserID),
		zap.String("public_id", uploaded.PublicID),
		zap.String("type", resourceType),
		zap.Int64("size", uploaded.Size),
	)
	return uploaded, nil
}

// DeleteFile deletes a file from Cloudinary
func (s *fileService) DeleteFile(ctx context.Context, publicID, resourceType string) error {
	if publicID == "" {
		return NewValidationError("public ID is required", nil)
	}
	if resourceType == "" {
		resourceType = "image"
	}

	deleteCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result, err := s.store.Destroy(deleteCtx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: resourceType,
	})
	if err != nil {
		s.logger.Error("Failed to delete file from Cloudinary",
			zap.Error(err),
			zap.String("public_id", publicID),
		)
		return NewInternalError("failed to delete file")
	}
	if result.Result != "ok" {
		s.logger.Warn("File deletion result was not OK",
			zap.String("public_id", publicID),
			zap.String("result", result.Result),
		)
		return NewInternalError("file deletion was not successful")
	}

	s.logger.Info("File deleted successfully", zap.String("public_id", publicID))
	return nil
}

// ===============================
// VALIDATION
// ===============================

// validateUpload checks name, type and declared size and returns the
// Cloudinary resource type.
func (s *fileService) validateUpload(req *FileUploadRequest) (string, error) {
	if req == nil || req.File == nil {
		return "", fmt.Errorf("file is required")
	}
	if err := validateFilename(req.Filename); err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(req.Filename))
	if !slices.Contains(s.config.AllowedExtensions, ext) {
		return "", fmt.Errorf("unsupported file extension: %s", ext)
	}

	contentType := strings.ToLower(strings.TrimSpace(strings.SplitN(req.ContentType, ";", 2)[0]))
	var resourceType string
	switch {
	case slices.Contains(s.config.AllowedImageTypes, contentType):
		resourceType = "image"
	case slices.Contains(s.config.AllowedVideoTypes, contentType):
		resourceType = "video"
	default:
		return "", fmt.Errorf("unsupported media type: %s", req.ContentType)
	}

	if limit := s.maxSize(resourceType); req.Size > limit {
		return "", fmt.Errorf("file too large (max %d bytes)", limit)
	}
	return resourceType, nil
}

func (s *fileService) maxSize(resourceType string) int64 {
	if resourceType == "video" {
		return s.config.MaxVideoSize
	}
	return s.config.MaxImageSize
}

// validateFilename validates filename for security
func validateFilename(filename string) error {
	if filename == "" {
		return fmt.Errorf("filename is required")
	}
	dangerousChars := []string{"../", "..\\", "<", ">", ":", "\"", "|", "?", "*"}
	for _, char := range dangerousChars {
		if strings.Contains(filename, char) {
			return fmt.Errorf("filename contains invalid characters")
		}
	}
	if filepath.Ext(filename) == "" {
		return fmt.Errorf("file must have an extension")
	}
	return nil
}

// uploadFolder creates a structured folder path: root/folder/2025/01/user_123
func (s *fileService) uploadFolder(folder string, userID int64) string {
	if folder == "" {
		folder = "submissions"
	}
	now := time.Now()
	return fmt.Sprintf("%s/%s/%d/%02d/user_%d",
		s.config.RootFolder, folder, now.Year(), now.Month(), userID)
}

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool {
	return &b
}
