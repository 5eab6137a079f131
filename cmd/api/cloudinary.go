package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const (
	folderAvatars   = "avatars"
	folderCars      = "cars"
	folderChatImage = "chat/images"
	folderChatVoice = "chat/voice"

	maxImagesPerUpload = 10
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

var allowedAudioTypes = map[string]bool{
	"audio/mpeg":  true,
	"audio/mp4":   true,
	"audio/aac":   true,
	"audio/ogg":   true,
	"audio/webm":  true,
	"audio/wav":   true,
	"audio/x-m4a": true,
}

var errUnsupportedFileType = errors.New("unsupported file type")

// uploadAsset stores file under folder with the given public id. Audio goes
// up as a "video" resource, which is how Cloudinary stores sound.
func (app *application) uploadAsset(ctx context.Context, file io.Reader, folder, publicID, resourceType string) (string, error) {
	params := uploader.UploadParams{
		Folder:       folder,
		PublicID:     publicID,
		Overwrite:    api.Bool(false),
		ResourceType: resourceType,
	}
	if resourceType == "image" {
		params.Transformation = "c_limit,w_1600,h_1600,q_auto"
	}

	resp, err := app.cld.Upload.Upload(ctx, file, params)
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload: %s", resp.Error.Message)
	}
	return resp.SecureURL, nil
}

// uploadImages uploads every header as an image named prefix_<n>. Files
// that are not images are rejected before anything is uploaded.
func (app *application) uploadImages(ctx context.Context, files []*multipart.FileHeader, folder, prefix string) ([]string, error) {
	if len(files) > maxImagesPerUpload {
		return nil, fmt.Errorf("at most %d images per upload", maxImagesPerUpload)
	}
	for _, fh := range files {
		if !allowedImageTypes[fh.Header.Get("Content-Type")] {
			return nil, fmt.Errorf("%w: %s", errUnsupportedFileType, fh.Filename)
		}
	}

	urls := make([]string, 0, len(files))
	for i, fh := range files {
		url, err := app.uploadHeader(ctx, fh, folder, fmt.Sprintf("%s_%d_%d", prefix, time.Now().UnixNano(), i), "image")
		if err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func (app *application) uploadHeader(ctx context.Context, fh *multipart.FileHeader, folder, publicID, resourceType string) (string, error) {
	file, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	return app.uploadAsset(ctx, file, folder, publicID, resourceType)
}

// deleteAsset removes an uploaded file. Failures are only logged since the
// database row no longer points at it.
func (app *application) deleteAsset(ctx context.Context, assetURL, resourceType string) {
	publicID, err := extractPublicIDFromURL(assetURL)
	if err != nil {
		app.logger.Warnw("skip cloudinary delete", "url", assetURL, "error", err)
		return
	}

	if _, err := app.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: resourceType,
	}); err != nil {
		app.logger.Warnw("cloudinary delete failed", "public_id", publicID, "error", err)
	}
}

// extractPublicIDFromURL turns
// https://res.cloudinary.com/<cloud>/image/upload/v123/cars/car_1.jpg
// into cars/car_1.
func extractPublicIDFromURL(assetURL string) (string, error) {
	parsed, err := url.Parse(assetURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}

	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i, part := range parts {
		if part != "upload" || i+1 >= len(parts) {
			continue
		}
		rest := parts[i+1:]
		if len(rest) > 1 && isVersionSegment(rest[0]) {
			rest = rest[1:]
		}
		id := strings.Join(rest, "/")
		return strings.TrimSuffix(id, path.Ext(id)), nil
	}

	return "", errors.New("failed to extract public ID from URL")
}

func isVersionSegment(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	for _, c := range s[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
