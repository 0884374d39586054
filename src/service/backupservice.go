package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ARahim900/muscatbay-sub004/config/log"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

var unsafeObjectChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// BlobStore keeps a raw copy of an uploaded file.
type BlobStore interface {
	Put(ctx context.Context, objectName string, content []byte, contentType string) error
}

// GCSBlobStore writes objects to one Google Cloud Storage bucket.
type GCSBlobStore struct {
	client *storage.Client
	bucket string
}

// NewGCSBlobStore uses credentialsJSON when set and application default
// credentials otherwise.
func NewGCSBlobStore(ctx context.Context, bucket, credentialsJSON string) (*GCSBlobStore, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}
	var opts []option.ClientOption
	if strings.TrimSpace(credentialsJSON) != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSBlobStore{client: client, bucket: bucket}, nil
}

func (g *GCSBlobStore) Put(ctx context.Context, objectName string, content []byte, contentType string) error {
	obj := g.client.Bucket(g.bucket).Object(objectName).If(storage.Conditions{DoesNotExist: true})
	wc := obj.NewWriter(ctx)
	wc.ContentType = contentType
	wc.CacheControl = "max-age=3600"
	if _, err := wc.Write(content); err != nil {
		_ = wc.Close()
		return fmt.Errorf("write gcs object %q: %w", objectName, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("close gcs object %q: %w", objectName, err)
	}
	return nil
}

func (g *GCSBlobStore) Close() error {
	return g.client.Close()
}

type BackupServiceImpl struct {
	blobs  BlobStore
	prefix string
	now    func() time.Time
}

// NewBackupServiceImpl accepts a nil store, in which case backups are skipped.
func NewBackupServiceImpl(blobs BlobStore, prefix string) *BackupServiceImpl {
	if prefix == "" {
		prefix = "water"
	}
	return &BackupServiceImpl{blobs: blobs, prefix: prefix, now: time.Now}
}

// Backup stores the raw upload and returns its object path, or "" when the
// copy could not be made. It never fails the caller.
func (b *BackupServiceImpl) Backup(ctx context.Context, fileName string, content []byte, month string, year int) string {
	if b.blobs == nil {
		log.Logger.Warn("blob storage not configured, skipping backup")
		return ""
	}
	path := BackupPath(b.prefix, fileName, month, year, b.now())
	if err := b.blobs.Put(ctx, path, content, "text/csv"); err != nil {
		log.Logger.Warn("storage backup skipped", zap.String("path", path), zap.Error(err))
		return ""
	}
	log.Logger.Info("file backed up", zap.String("path", path))
	return path
}

// BackupPath builds "<prefix>/<year>/<month>/<unix-ms>_<name>" with every
// character outside [a-zA-Z0-9.-] in the name replaced by '_'.
func BackupPath(prefix, fileName, month string, year int, at time.Time) string {
	return fmt.Sprintf("%s/%d/%s/%d_%s", prefix, year, month, at.UnixMilli(), unsafeObjectChars.ReplaceAllString(fileName, "_"))
}
