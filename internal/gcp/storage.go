package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// SaveToGCSAtomically writes content to a GCS object only if it doesn't already exist.
// An existing object is not an error.
func SaveToGCSAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName, contentType string, content io.Reader) error {
	writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, content); err != nil {
		_ = writer.Close()
		if isPreconditionFailed(err) {
			slog.Info("Object already exists, skipping.", "object", objectName)
			return nil
		}
		slog.Error("Failed to copy content to GCS object", "object", objectName, "error", err)
		return fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		if isPreconditionFailed(err) {
			slog.Info("Object already exists, skipping.", "object", objectName)
			return nil
		}
		slog.Error("Failed to close GCS writer", "object", objectName, "error", err)
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

// BucketArchiver stores pipeline artifacts in one bucket with create-if-absent semantics.
type BucketArchiver struct {
	bucket *storage.BucketHandle
	name   string
}

func NewBucketArchiver(client *storage.Client, bucketName string) *BucketArchiver {
	return &BucketArchiver{bucket: client.Bucket(bucketName), name: bucketName}
}

// Archive saves content under objectName and returns its gs:// URI.
func (a *BucketArchiver) Archive(ctx context.Context, objectName, contentType string, content io.Reader) (string, error) {
	if err := SaveToGCSAtomically(ctx, a.bucket, objectName, contentType, content); err != nil {
		return "", err
	}
	return fmt.Sprintf("gs://%s/%s", a.name, objectName), nil
}
