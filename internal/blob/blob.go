// Package blob stores original PDF uploads and hands back URLs that can be
// dereferenced without further credentials.
package blob

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// ContentTypePDF is the content type of every stored object.
const ContentTypePDF = "application/pdf"

// ErrNotFound is returned by Open for unknown keys.
var ErrNotFound = eris.New("blob: object not found")

// Object identifies a stored PDF.
type Object struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Store is a key to URL blob store.
type Store interface {
	// UploadPDF stores data under key, or under a fresh unique key when key
	// is empty.
	UploadPDF(ctx context.Context, data []byte, key string) (Object, error)
	// Open returns the stored bytes of key.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// NewKey returns a fresh unique object key.
func NewKey() string {
	return uuid.New().String() + ".pdf"
}

// cleanKey validates a caller-supplied key, defaulting an empty one.
func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return NewKey(), nil
	}
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != key || strings.Contains(key, "\\") {
		return "", eris.Errorf("blob: invalid key %q", key)
	}
	return key, nil
}
