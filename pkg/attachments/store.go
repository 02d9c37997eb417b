package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"alumnichat/pkg/chaterr"
	"alumnichat/pkg/config"
	"alumnichat/pkg/models"
)

// ErrNotFound is returned by Open for an unknown object id.
var ErrNotFound = errors.New("attachment not found")

// Info describes a stored object.
type Info struct {
	ID       string
	Name     string
	MimeType string
	Size     int64
}

// Store keeps uploaded files and hands back the reference that goes into a message.
type Store interface {
	Put(ctx context.Context, name, mimeType string, r io.Reader) (models.Attachment, error)
	Open(ctx context.Context, id string) (io.ReadCloser, Info, error)
	Close() error
}

// New opens the backend selected by cfg. attachmentsDir is used by the fs
// backend when cfg.Dir is empty.
func New(ctx context.Context, cfg config.AttachmentsConfig, attachmentsDir string) (Store, error) {
	switch cfg.Backend {
	case "", "fs":
		dir := cfg.Dir
		if dir == "" {
			dir = attachmentsDir
		}
		return NewFS(dir, cfg.PublicURL, cfg.MaxSize.Int64())
	case "gcs":
		return NewGCS(ctx, cfg.GCS.Bucket, cfg.GCS.Prefix, cfg.GCS.CredentialsFile, cfg.MaxSize.Int64())
	default:
		return nil, fmt.Errorf("unknown attachments backend %q", cfg.Backend)
	}
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// cleanName keeps the base name of an upload, safe for object keys.
func cleanName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeName.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if len(name) > 128 {
		name = name[len(name)-128:]
	}
	if name == "" {
		return "file"
	}
	return name
}

func objectExt(name string) string {
	ext := path.Ext(name)
	if len(ext) > 16 {
		return ""
	}
	return strings.ToLower(ext)
}

// copyLimited copies r into w and fails once more than max bytes were read.
// max <= 0 means unlimited.
func copyLimited(w io.Writer, r io.Reader, max int64) (int64, error) {
	if max <= 0 {
		return io.Copy(w, r)
	}
	n, err := io.Copy(w, io.LimitReader(r, max+1))
	if err != nil {
		return n, err
	}
	if n > max {
		return n, chaterr.ErrAttachmentSize
	}
	return n, nil
}

func normalizeMime(mimeType string) string {
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		return "application/octet-stream"
	}
	return mimeType
}
