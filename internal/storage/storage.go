// Package storage persists uploaded objects.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidKey is returned for keys that escape the store root.
var ErrInvalidKey = errors.New("invalid object key")

// Object describes a stored object.
type Object struct {
	Key  string
	URL  string
	Size int64
}

// ObjectStore saves objects under slash-separated keys and returns their
// public URL.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader) (*Object, error)
	Delete(ctx context.Context, key string) error
}

// LocalStore writes objects to a directory on disk.
type LocalStore struct {
	root    string
	baseURL string
}

// NewLocalStore stores objects below root and builds URLs from baseURL. An
// empty baseURL produces root-relative URLs.
func NewLocalStore(root, baseURL string) *LocalStore {
	return &LocalStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

// Root returns the directory objects are written to.
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if key == "" || clean == "/" || clean != "/"+key {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// Put copies r into the object named key.
func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dest, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create object: %w", err)
	}
	size, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(dest)
		return nil, fmt.Errorf("write object: %w", errors.Join(copyErr, closeErr))
	}

	return &Object{Key: key, URL: s.baseURL + "/" + key, Size: size}, nil
}

// Delete removes the object. Missing objects are not an error.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	dest, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
