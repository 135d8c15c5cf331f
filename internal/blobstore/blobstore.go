// Package blobstore is the opaque binary-store collaborator: upload bytes,
// get back public URLs, delete by object path.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

type Object struct {
	PublicURL string `json:"public_url"`
	ThumbURL  string `json:"thumb_url"`
	Path      string `json:"path"`
}

type Store interface {
	Upload(ctx context.Context, name string, data []byte, contentType string) (*Object, error)
	// Delete removes the object; deleting an absent object is not an error.
	Delete(ctx context.Context, objectPath string) error
}

// fsStore keeps objects on the local filesystem and serves them under a
// configured public base URL. It serves the original as its own thumbnail;
// a real deployment swaps in an object store that renders proper thumbnails.
type fsStore struct {
	dir     string
	baseURL string
}

func NewFS(dir, baseURL string) (Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("blobstore: %w", err)
	}
	return &fsStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func sanitize(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, name)
	if name == "" || name == "." {
		name = "object"
	}
	return name
}

func (s *fsStore) Upload(_ context.Context, name string, data []byte, _ string) (*Object, error) {
	objectPath := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), sanitize(name))
	if err := os.WriteFile(filepath.Join(s.dir, objectPath), data, 0o644); err != nil {
		return nil, fmt.Errorf("blobstore: %w", err)
	}
	url := s.baseURL + "/" + objectPath
	return &Object{PublicURL: url, ThumbURL: url, Path: objectPath}, nil
}

func (s *fsStore) Delete(_ context.Context, objectPath string) error {
	if objectPath == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, sanitize(objectPath)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
