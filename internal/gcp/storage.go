package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GCSUploader copies local artifacts into a Cloud Storage bucket.
type GCSUploader struct {
	client *storage.Client
	bucket string
}

// NewGCSUploader returns an uploader writing into bucket.
func NewGCSUploader(client *storage.Client, bucket string) *GCSUploader {
	return &GCSUploader{client: client, bucket: bucket}
}

// Upload writes the local file to the object, replacing any previous
// version, and returns its gs:// URI. Transient failures are retried with
// exponential backoff; client errors (4xx) are not.
func (u *GCSUploader) Upload(ctx context.Context, localPath, objectName string) (string, error) {
	const maxRetries = 4
	var backoff = 1 * time.Second
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := u.uploadOnce(ctx, localPath, objectName)
		if err == nil {
			return fmt.Sprintf("gs://%s/%s", u.bucket, objectName), nil
		}
		lastErr = err
		if permanent(err) {
			break
		}

		slog.Warn(
			"Upload failed, will retry.",
			"gcsObject", objectName,
			"attempt", i+1,
			"maxRetries", maxRetries,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	slog.Error("Upload failed.", "gcsObject", objectName, "error", lastErr)
	return "", fmt.Errorf("upload for %s failed: %w", objectName, lastErr)
}

func (u *GCSUploader) uploadOnce(ctx context.Context, localPath, objectName string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("could not open local file %s: %w", localPath, err)
	}
	defer f.Close()

	writeCtx, cancel := context.WithTimeout(ctx, 50*time.Second)
	defer cancel()

	w := u.client.Bucket(u.bucket).Object(objectName).NewWriter(writeCtx)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("io.Copy to GCS failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer (finalize upload): %w", err)
	}
	return nil
}

func permanent(err error) bool {
	if errors.Is(err, os.ErrNotExist) {
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code >= http.StatusBadRequest && gerr.Code < http.StatusInternalServerError && gerr.Code != http.StatusTooManyRequests
	}
	return false
}
