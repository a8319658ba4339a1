// Package objectstore mirrors selected keyframes into an S3-compatible
// bucket.
package objectstore

import (
	"context"
	"fmt"
	"mime"
	"path"
	"path/filepath"
	"strings"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Prefix    string
}

type MinIOMirror struct {
	client *miniogo.Client
	bucket string
	prefix string
}

func NewMinIOMirror(cfg Config) (*MinIOMirror, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinIOMirror{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

func (m *MinIOMirror) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", m.bucket, err)
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, miniogo.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", m.bucket, err)
		}
	}
	return nil
}

// DocumentPrefix is the key prefix, with trailing slash, under which a
// document's keyframes are stored.
func (m *MinIOMirror) DocumentPrefix(doc string) string {
	if m.prefix == "" {
		return doc + "/"
	}
	return path.Join(m.prefix, doc) + "/"
}

// MirrorDocument makes the bucket copy of doc match keyframes: objects
// no longer selected are removed and every keyframe is uploaded.
func (m *MinIOMirror) MirrorDocument(ctx context.Context, doc string, keyframes []string) error {
	prefix := m.DocumentPrefix(doc)

	want := make(map[string]bool, len(keyframes))
	for _, kf := range keyframes {
		want[prefix+filepath.Base(kf)] = true
	}

	// Cancelling stops the listing goroutine when we return early.
	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for obj := range m.client.ListObjects(listCtx, m.bucket, miniogo.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return fmt.Errorf("list objects: %w", obj.Err)
		}
		if want[obj.Key] {
			continue
		}
		if err := m.client.RemoveObject(ctx, m.bucket, obj.Key, miniogo.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("remove stale object %s: %w", obj.Key, err)
		}
	}

	for _, kf := range keyframes {
		key := prefix + filepath.Base(kf)
		_, err := m.client.FPutObject(ctx, m.bucket, key, kf, miniogo.PutObjectOptions{
			ContentType: ContentType(kf),
		})
		if err != nil {
			return fmt.Errorf("upload %s: %w", key, err)
		}
	}
	return nil
}

// ContentType guesses the MIME type of an image file from its extension.
func ContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".tif", ".tiff":
		return "image/tiff"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
