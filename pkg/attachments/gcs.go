package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"alumnichat/pkg/logger"
	"alumnichat/pkg/models"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// GCSStore keeps attachments in a Google Cloud Storage bucket.
type GCSStore struct {
	client  *storage.Client
	bucket  string
	prefix  string
	maxSize int64
}

// NewGCS connects with the service account key at credentialsFile, or with
// application default credentials when it is empty.
func NewGCS(ctx context.Context, bucket, prefix, credentialsFile string, maxSize int64) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		if _, err := os.Stat(credentialsFile); err != nil {
			return nil, fmt.Errorf("service account key not found at path %s: %w", credentialsFile, err)
		}
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/"), maxSize: maxSize}, nil
}

func (s *GCSStore) object(id string) string {
	if s.prefix == "" {
		return id
	}
	return path.Join(s.prefix, id)
}

func (s *GCSStore) Put(ctx context.Context, name, mimeType string, r io.Reader) (models.Attachment, error) {
	name = cleanName(name)
	id := uuid.NewString() + objectExt(name)
	objName := s.object(id)
	obj := s.client.Bucket(s.bucket).Object(objName)

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w := obj.NewWriter(wctx)
	w.ContentType = normalizeMime(mimeType)
	w.Metadata = map[string]string{"name": name}

	n, err := copyLimited(w, r, s.maxSize)
	if err != nil {
		// cancelling before Close abandons the upload
		cancel()
		_ = w.Close()
		return models.Attachment{}, err
	}
	if err := w.Close(); err != nil {
		return models.Attachment{}, fmt.Errorf("failed to close GCS writer for %s: %w", objName, err)
	}
	logger.Debug("attachment_stored", "bucket", s.bucket, "object", objName, "size", n)

	return models.Attachment{
		URL:      fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, objName),
		MimeType: w.ContentType,
		Name:     name,
		Size:     n,
	}, nil
}

func (s *GCSStore) Open(ctx context.Context, id string) (io.ReadCloser, Info, error) {
	rd, err := s.client.Bucket(s.bucket).Object(s.object(id)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, Info{}, ErrNotFound
		}
		return nil, Info{}, err
	}
	return rd, Info{ID: id, MimeType: rd.Attrs.ContentType, Size: rd.Attrs.Size}, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
