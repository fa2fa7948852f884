package store

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	bolt "go.etcd.io/bbolt"

	"github.com/mmcdole/lensgrid/internal/domain"
)

// Bucket names
var (
	bucketThumbnails = []byte("thumbnails")
	bucketStamps     = []byte("stamps")
)

// DefaultMemoryEntries bounds the in-memory layer when no size is configured
const DefaultMemoryEntries = 512

// ThumbnailStore persists encoded thumbnails in BoltDB with a bounded
// in-memory layer in front of it.
type ThumbnailStore struct {
	db *bolt.DB

	// Hot-path reads, promoted on access and evicted least recently used
	cache *lru.Cache[string, []byte]
}

// NewThumbnailStore opens the thumbnail database for a library. An empty
// baseCacheDir keeps thumbnails in memory only.
func NewThumbnailStore(baseCacheDir, libraryPath string, memoryEntries int) (*ThumbnailStore, error) {
	if memoryEntries <= 0 {
		memoryEntries = DefaultMemoryEntries
	}
	cache, err := lru.New[string, []byte](memoryEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}

	if baseCacheDir == "" {
		return &ThumbnailStore{cache: cache}, nil
	}

	dir := baseCacheDir
	if libraryPath != "" {
		dir = filepath.Join(baseCacheDir, hashLibraryPath(libraryPath))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "thumbnails.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketThumbnails, bucketStamps} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &ThumbnailStore{db: db, cache: cache}, nil
}

func hashLibraryPath(path string) string {
	normalized := strings.TrimRight(filepath.Clean(path), string(filepath.Separator))
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

// Key builds the thumbnail key for an asset rendition: {assetID}\x00{W}x{H}:{quality}.
// Asset IDs are file paths and never contain NUL, so the prefix up to the
// separator names exactly one asset.
func Key(id domain.AssetID, size domain.Size, q domain.Quality) string {
	return fmt.Sprintf("%s\x00%dx%d:%s", id, int(size.Width), int(size.Height), q)
}

func assetPrefix(id domain.AssetID) string {
	return string(id) + "\x00"
}

func (s *ThumbnailStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get returns the encoded thumbnail for key
func (s *ThumbnailStore) Get(key string) ([]byte, bool) {
	if data, ok := s.cache.Get(key); ok {
		return data, true
	}

	if s.db == nil {
		return nil, false
	}

	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketThumbnails)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return nil, false
	}

	s.cache.Add(key, data)
	return data, true
}

// Put stores an encoded thumbnail
func (s *ThumbnailStore) Put(key string, data []byte) error {
	s.cache.Add(key, data)

	if s.db == nil {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketThumbnails).Put([]byte(key), data)
	})
}

// Has reports whether key is stored, without promoting it
func (s *ThumbnailStore) Has(key string) bool {
	if s.cache.Contains(key) {
		return true
	}
	if s.db == nil {
		return false
	}
	found := false
	s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(bucketThumbnails); b != nil {
			found = b.Get([]byte(key)) != nil
		}
		return nil
	})
	return found
}

// Validate drops every rendition of an asset whose source stamp (its
// modification time) differs from the one recorded with the renditions.
// It reports whether anything was invalidated.
func (s *ThumbnailStore) Validate(id domain.AssetID, stamp int64) bool {
	if s.db == nil {
		return false
	}

	var stored []byte
	s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketStamps).Get([]byte(id)); v != nil {
			stored = append([]byte(nil), v...)
		}
		return nil
	})
	if len(stored) == 8 && int64(binary.BigEndian.Uint64(stored)) == stamp {
		return false
	}

	if stored != nil {
		s.InvalidateAsset(id)
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(stamp))
	s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketStamps).Put([]byte(id), buf)
	})
	return stored != nil
}

// InvalidateAsset removes every rendition of an asset
func (s *ThumbnailStore) InvalidateAsset(id domain.AssetID) {
	s.deletePrefix(assetPrefix(id))
}

func (s *ThumbnailStore) deletePrefix(prefix string) {
	for _, k := range s.cache.Keys() {
		if strings.HasPrefix(k, prefix) {
			s.cache.Remove(k)
		}
	}

	if s.db == nil {
		return
	}

	// Delete from BoltDB using prefix scan
	s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketThumbnails)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		prefixBytes := []byte(prefix)
		for k, _ := c.Seek(prefixBytes); k != nil && strings.HasPrefix(string(k), prefix); k, _ = c.Seek(prefixBytes) {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// InvalidateAll drops every stored thumbnail and stamp
func (s *ThumbnailStore) InvalidateAll() {
	s.cache.Purge()

	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketThumbnails, bucketStamps} {
			if tx.Bucket(bucket) != nil {
				if err := tx.DeleteBucket(bucket); err != nil {
					return err
				}
			}
			if _, err := tx.CreateBucket(bucket); err != nil {
				return err
			}
		}
		return nil
	})
}

// MemoryLen returns the number of thumbnails held in memory
func (s *ThumbnailStore) MemoryLen() int {
	return s.cache.Len()
}
