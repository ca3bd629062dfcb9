// Package publish uploads generated statements so the dashboard can pick
// them up.
package publish

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// uploadTimeout bounds a single object upload.
const uploadTimeout = 2 * time.Minute

// Publisher uploads a local report and returns where it was stored.
type Publisher interface {
	Publish(ctx context.Context, localPath, objectName string) (string, error)
}

// Nop is a Publisher that does nothing. It is used when no bucket is
// configured.
type Nop struct{}

// Publish returns an empty location.
func (Nop) Publish(context.Context, string, string) (string, error) {
	return "", nil
}

// GCSPublisher uploads reports to a Cloud Storage bucket.
type GCSPublisher struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSPublisher creates a publisher for bucket. Objects are stored under
// prefix. It assumes Application Default Credentials are configured
// (gcloud auth application-default login).
func NewGCSPublisher(ctx context.Context, bucket, prefix string) (*GCSPublisher, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &GCSPublisher{client: client, bucket: bucket, prefix: prefix}, nil
}

// Close releases the storage client.
func (p *GCSPublisher) Close() error {
	return p.client.Close()
}

// Publish uploads localPath as objectName under the publisher's prefix and
// returns the gs:// URI of the object.
func (p *GCSPublisher) Publish(ctx context.Context, localPath, objectName string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open file %q: %w", localPath, err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	name := ObjectPath(p.prefix, objectName)
	w := p.client.Bucket(p.bucket).Object(name).NewWriter(ctx)
	w.ContentType = ContentType(localPath)

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("copy file to GCS writer: %w", err)
	}

	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", p.bucket, name), nil
}

// ObjectPath joins a prefix and an object name with forward slashes.
func ObjectPath(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	name = strings.TrimLeft(filepath.ToSlash(name), "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// ContentType guesses the MIME type of a report from its extension.
func ContentType(localPath string) string {
	switch strings.ToLower(filepath.Ext(localPath)) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	}
	if t := mime.TypeByExtension(filepath.Ext(localPath)); t != "" {
		return t
	}
	return "application/octet-stream"
}
