// Package cas implements a content-addressed artifact cache.
package cas

import (
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/flaskblog/assetflow/internal/core/domain"
	"go.trai.ch/zerr"
)

// Store implements ports.ArtifactStore with one file per key below dir.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir. The directory is created lazily.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Key derives a cache key from the given parts. Parts are length-prefixed so
// that ("ab","c") and ("a","bc") differ.
func Key(parts ...[]byte) string {
	d := xxhash.New()
	var size [8]byte
	for _, p := range parts {
		n := uint64(len(p))
		for i := range size {
			size[i] = byte(n >> (8 * i))
		}
		_, _ = d.Write(size[:])
		_, _ = d.Write(p)
	}
	var sum [8]byte
	return hex.EncodeToString(d.Sum(sum[:0]))
}

// Get returns the artifact stored under key. ok is false on a miss.
func (s *Store) Get(key string) ([]byte, bool, error) {
	//nolint:gosec // Path is constructed from the cache dir and a hex key
	data, err := os.ReadFile(s.filename(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, zerr.With(zerr.Wrap(err, domain.ErrStoreReadFailed.Error()), "key", key)
	}
	return data, true, nil
}

// Put stores data under key, replacing any previous artifact atomically.
func (s *Store) Put(key string, data []byte) error {
	filename := s.filename(key)
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "key", key)
	}

	tmp, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "key", key)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "key", key)
	}
	if err := tmp.Close(); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "key", key)
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "key", key)
	}
	return nil
}

func (s *Store) filename(key string) string {
	if len(key) < 3 {
		return filepath.Join(s.dir, key)
	}
	return filepath.Join(s.dir, key[:2], key[2:])
}
