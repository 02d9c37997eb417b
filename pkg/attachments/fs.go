package attachments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"alumnichat/pkg/logger"
	"alumnichat/pkg/models"

	"github.com/google/uuid"
)

// FSStore keeps attachments as files in one directory, each with a JSON sidecar.
type FSStore struct {
	dir       string
	publicURL string
	maxSize   int64
}

func NewFS(dir, publicURL string, maxSize int64) (*FSStore, error) {
	if dir == "" {
		return nil, errors.New("attachments dir is empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create attachments dir: %w", err)
	}
	if publicURL == "" {
		publicURL = "/v1/attachments"
	}
	return &FSStore{dir: dir, publicURL: strings.TrimSuffix(publicURL, "/"), maxSize: maxSize}, nil
}

func (s *FSStore) Put(ctx context.Context, name, mimeType string, r io.Reader) (models.Attachment, error) {
	name = cleanName(name)
	id := uuid.NewString() + objectExt(name)

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return models.Attachment{}, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := copyLimited(tmp, r, s.maxSize)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return models.Attachment{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.Attachment{}, err
	}

	info := Info{ID: id, Name: name, MimeType: normalizeMime(mimeType), Size: n}
	meta, err := json.Marshal(info)
	if err != nil {
		return models.Attachment{}, err
	}
	if err := os.WriteFile(s.metaPath(id), meta, 0o600); err != nil {
		return models.Attachment{}, fmt.Errorf("write attachment meta: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.dataPath(id)); err != nil {
		_ = os.Remove(s.metaPath(id))
		return models.Attachment{}, fmt.Errorf("store attachment: %w", err)
	}
	logger.Debug("attachment_stored", "id", id, "size", n, "mime", info.MimeType)

	return models.Attachment{
		URL:      s.publicURL + "/" + id,
		MimeType: info.MimeType,
		Name:     name,
		Size:     n,
	}, nil
}

func (s *FSStore) Open(ctx context.Context, id string) (io.ReadCloser, Info, error) {
	if !validID(id) {
		return nil, Info{}, ErrNotFound
	}
	raw, err := os.ReadFile(s.metaPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, Info{}, ErrNotFound
		}
		return nil, Info{}, err
	}
	var info Info
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, Info{}, fmt.Errorf("decode attachment meta: %w", err)
	}
	f, err := os.Open(s.dataPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, Info{}, ErrNotFound
		}
		return nil, Info{}, err
	}
	return f, info, nil
}

func (s *FSStore) Close() error { return nil }

func (s *FSStore) dataPath(id string) string { return filepath.Join(s.dir, id) }

func (s *FSStore) metaPath(id string) string { return filepath.Join(s.dir, id+".json") }

// ids are a uuid plus an optional extension
func validID(id string) bool {
	base, _, _ := strings.Cut(id, ".")
	if _, err := uuid.Parse(base); err != nil {
		return false
	}
	return !strings.ContainsAny(id, `/\`) && !strings.HasSuffix(id, ".json")
}
