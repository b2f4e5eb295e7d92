package blob

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// LocalStore keeps PDFs in a directory. Its URLs point at the HTTP API's
// file route, so it suits development and single-host deployments.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocal creates a LocalStore rooted at dir. baseURL is the public
// prefix objects are served under, e.g. http://localhost:8080/files.
func NewLocal(dir, baseURL string) (*LocalStore, error) {
	if dir == "" {
		return nil, eris.New("blob: local dir is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, eris.Wrapf(err, "blob: create %s", dir)
	}
	return &LocalStore{dir: dir, baseURL: baseURL}, nil
}

func (s *LocalStore) UploadPDF(_ context.Context, data []byte, key string) (Object, error) {
	key, err := cleanKey(key)
	if err != nil {
		return Object{}, err
	}
	dst := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return Object{}, eris.Wrapf(err, "blob: create dir for %s", key)
	}

	// Write then rename so readers never see a partial file.
	tmp := dst + ".part"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return Object{}, eris.Wrapf(err, "blob: write %s", key)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return Object{}, eris.Wrapf(err, "blob: commit %s", key)
	}

	u, err := url.JoinPath(s.baseURL, key)
	if err != nil {
		return Object{}, eris.Wrap(err, "blob: build url")
	}
	return Object{Key: key, URL: u}, nil
}

func (s *LocalStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if _, err := cleanKey(key); err != nil || key == "" {
		return nil, ErrNotFound
	}
	f, err := os.Open(filepath.Join(s.dir, filepath.FromSlash(key)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "blob: open %s", key)
	}
	return f, nil
}
