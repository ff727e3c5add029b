package cache

import (
	"context"
	"crypto/sha1" //nolint:gosec // used for file names, not security
	"encoding/binary"
	"encoding/hex"
	"os"
	"path/filepath"
	"time"

	"github.com/peterbourgon/diskv"
	"github.com/pkg/errors"
)

// Namespace is the directory created under a FileStore's root.
const Namespace = "foundation-cache"

// headerSize is the length of the expiry prefix on every stored entry.
const headerSize = 8

// FileStore keeps entries as files below a root directory. Keys are hashed,
// so any string is a valid key.
type FileStore struct {
	root string
	disk *diskv.Diskv
	now  func() time.Time
}

// NewFileStore creates a store rooted at dir. Entries live in
// dir/Namespace, which Flush empties; nothing else under dir is touched.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("cache: empty directory")
	}
	base := filepath.Join(dir, Namespace)
	if err := os.MkdirAll(base, 0o700); err != nil {
		return nil, errors.Wrapf(err, "cache: create %s", base)
	}
	return &FileStore{
		root: dir,
		disk: diskv.New(diskv.Options{
			BasePath:  base,
			Transform: shard,
			FilePerm:  0o600,
			PathPerm:  0o700,
		}),
		now: time.Now,
	}, nil
}

// Dir returns the root directory the store was created with.
func (s *FileStore) Dir() string { return s.root }

// Path returns the directory holding the entries.
func (s *FileStore) Path() string { return s.disk.BasePath }

// Get returns the value for key. An expired or truncated entry is removed and
// reported as a miss.
func (s *FileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	name := hashKey(key)
	if !s.disk.Has(name) {
		return nil, false, nil
	}
	raw, err := s.disk.Read(name)
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "cache: read %q", key)
	}
	if len(raw) < headerSize {
		_ = s.disk.Erase(name)
		return nil, false, nil
	}
	if exp := int64(binary.BigEndian.Uint64(raw[:headerSize])); exp != 0 && s.now().UnixNano() >= exp {
		_ = s.disk.Erase(name)
		return nil, false, nil
	}
	return raw[headerSize:], true, nil
}

// Set writes value under key with an expiry header. A ttl of zero or less
// never expires.
func (s *FileStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var exp int64
	if ttl > 0 {
		exp = s.now().Add(ttl).UnixNano()
	}
	buf := make([]byte, headerSize+len(value))
	binary.BigEndian.PutUint64(buf[:headerSize], uint64(exp))
	copy(buf[headerSize:], value)
	return errors.Wrapf(s.disk.Write(hashKey(key), buf), "cache: write %q", key)
}

// Has reports whether key holds an unexpired value.
func (s *FileStore) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.Get(ctx, key)
	return ok, err
}

// Delete removes the entries for keys.
func (s *FileStore) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		name := hashKey(key)
		if !s.disk.Has(name) {
			continue
		}
		if err := s.disk.Erase(name); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "cache: delete %q", key)
		}
	}
	return nil
}

// Flush removes every entry and recreates the store directory. Siblings of
// the store directory are left alone.
func (s *FileStore) Flush(_ context.Context) error {
	if err := s.disk.EraseAll(); err != nil {
		return errors.Wrap(err, "cache: flush")
	}
	return errors.Wrap(os.MkdirAll(s.disk.BasePath, 0o700), "cache: flush")
}

// hashKey maps any key to a fixed-length file name.
func hashKey(key string) string {
	sum := sha1.Sum([]byte(key)) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])
}

// shard spreads entries over 256 directories.
func shard(name string) []string {
	return []string{name[:2]}
}
