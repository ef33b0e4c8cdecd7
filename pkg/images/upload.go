// Package images hosts photo uploads on Cloudinary, or inlines them as data
// URLs when no image host is configured or the upload fails.
package images

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/unowned-ai/wayfarer/pkg/metrics"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.cloudinary.com/v1_1"
	// PlaceholderCloudName ships in sample configs and counts as unset.
	PlaceholderCloudName = "your_cloud_name"
)

var ErrEmptyImage = errors.New("image is empty")

// Config selects the image host.
type Config struct {
	CloudName    string
	UploadPreset string
	BaseURL      string
	Timeout      time.Duration
}

// Result is a stored photo location. When Inline is true URL is a data URL;
// RemoteErr then says why hosting was skipped, if it was attempted.
type Result struct {
	URL       string
	Inline    bool
	RemoteErr error
}

// Uploader turns image bytes into a URL for a Photo.
type Uploader struct {
	cfg     Config
	client  *http.Client
	logger  *zap.Logger
	metrics *metrics.Collector
}

func NewUploader(cfg Config, logger *zap.Logger, m *metrics.Collector) *Uploader {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
		metrics: m,
	}
}

// Configured reports whether uploads go to Cloudinary.
func (u *Uploader) Configured() bool {
	name := strings.TrimSpace(u.cfg.CloudName)
	return name != "" && name != PlaceholderCloudName
}

// Upload hosts data remotely when configured, and otherwise (or on failure)
// returns it inline. Only empty input and an inline encoding failure are
// errors.
func (u *Uploader) Upload(ctx context.Context, name string, data []byte) (Result, error) {
	if len(data) == 0 {
		return Result{}, ErrEmptyImage
	}

	var remoteErr error
	if u.Configured() {
		url, err := u.uploadCloudinary(ctx, name, data)
		if err == nil {
			return Result{URL: url}, nil
		}
		remoteErr = err
		u.metrics.ImageFallback()
		u.logger.Warn("image upload failed, inlining instead", zap.String("name", name), zap.Error(err))
	}

	url, err := Inline(data)
	if err != nil {
		return Result{}, err
	}
	return Result{URL: url, Inline: true, RemoteErr: remoteErr}, nil
}

type cloudinaryResponse struct {
	SecureURL string `json:"secure_url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (u *Uploader) uploadCloudinary(ctx context.Context, name string, data []byte) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if name == "" {
		name = "photo"
	}
	part, err := w.CreateFormFile("file", filepath.Base(name))
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := w.WriteField("upload_preset", u.cfg.UploadPreset); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/%s/image/upload", strings.TrimRight(u.cfg.BaseURL, "/"), u.cfg.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read cloudinary response: %w", err)
	}
	var parsed cloudinaryResponse
	if err := json.Unmarshal(raw, &parsed); err != nil && resp.StatusCode == http.StatusOK {
		return "", fmt.Errorf("decode cloudinary response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil && parsed.Error.Message != "" {
			return "", fmt.Errorf("cloudinary upload: %s (%d)", parsed.Error.Message, resp.StatusCode)
		}
		return "", fmt.Errorf("cloudinary upload: status %d", resp.StatusCode)
	}
	if parsed.SecureURL == "" {
		return "", errors.New("cloudinary response has no secure_url")
	}
	return parsed.SecureURL, nil
}
