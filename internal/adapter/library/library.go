// Package library serves photos from a directory tree as a grid asset store.
package library

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	"image/png"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/webp" // register decoder
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/mmcdole/lensgrid/internal/domain"
	"github.com/mmcdole/lensgrid/internal/store"
)

// Extensions the library lists, lower case
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
}

// Options configures a Library
type Options struct {
	Root       string                // Directory to scan
	Match      string                // Fuzzy file name filter; empty lists everything
	MaxDecodes int                   // Concurrent source decodes, default 4
	Warmers    int                   // Concurrent warm-ups per caching hint, default MaxDecodes
	Thumbs     *store.ThumbnailStore // Rendition cache; memory-only when nil
	Logger     *slog.Logger
}

// Library is a domain.AssetStore over a directory of image files
type Library struct {
	root    string
	match   string
	thumbs  *store.ThumbnailStore
	logger  *slog.Logger
	warmers int

	decodes *semaphore.Weighted
	group   singleflight.Group

	mu      sync.Mutex
	stamps  map[domain.AssetID]int64 // Modification time seen at listing
	fresh   map[domain.AssetID]bool  // Stamp already checked against the store
	warming map[string]*warmJob

	base   context.Context
	cancel context.CancelFunc
}

var _ domain.AssetStore = (*Library)(nil)

// New creates a library rooted at opts.Root
func New(opts Options) (*Library, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("library root is not set")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxDecodes <= 0 {
		opts.MaxDecodes = 4
	}
	if opts.Warmers <= 0 {
		opts.Warmers = opts.MaxDecodes
	}
	if opts.Thumbs == nil {
		thumbs, err := store.NewThumbnailStore("", "", 0)
		if err != nil {
			return nil, err
		}
		opts.Thumbs = thumbs
	}

	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve library root: %w", err)
	}

	base, cancel := context.WithCancel(context.Background())
	return &Library{
		root:    root,
		match:   opts.Match,
		thumbs:  opts.Thumbs,
		logger:  opts.Logger,
		warmers: opts.Warmers,
		decodes: semaphore.NewWeighted(int64(opts.MaxDecodes)),
		stamps:  make(map[domain.AssetID]int64),
		fresh:   make(map[domain.AssetID]bool),
		warming: make(map[string]*warmJob),
		base:    base,
		cancel:  cancel,
	}, nil
}

// Close stops every warm-up. The thumbnail store is left open.
func (l *Library) Close() {
	l.StopCachingAll()
	l.cancel()
}

// Root returns the absolute library directory
func (l *Library) Root() string {
	return l.root
}

// Path returns the file path of an asset, or an error if the ID escapes the root
func (l *Library) Path(id domain.AssetID) (string, error) {
	rel := path.Clean(string(id))
	if rel == "." || path.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%w: %s", domain.ErrAssetNotFound, id)
	}
	return filepath.Join(l.root, filepath.FromSlash(rel)), nil
}

// Authorization maps the directory's accessibility onto the library
// permission states
func (l *Library) Authorization(_ context.Context) domain.AuthorizationStatus {
	info, err := os.Stat(l.root)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return domain.AuthorizationNotDetermined
	case errors.Is(err, fs.ErrPermission):
		return domain.AuthorizationDenied
	case err != nil:
		return domain.AuthorizationRestricted
	case !info.IsDir():
		return domain.AuthorizationRestricted
	}

	dir, err := os.Open(l.root)
	if err != nil {
		return domain.AuthorizationDenied
	}
	dir.Close()

	if l.match != "" {
		return domain.AuthorizationLimited
	}
	return domain.AuthorizationAuthorized
}

// ListAssets walks the library and returns every image, newest first
func (l *Library) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	if !l.Authorization(ctx).CanRead() {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotAuthorized, l.root)
	}

	var assets []domain.Asset
	stamps := make(map[domain.AssetID]int64)

	err := filepath.WalkDir(l.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal
			l.logger.Debug("skipping unreadable path", "path", p, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if p != l.root && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !imageExtensions[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}
		if l.match != "" && !fuzzy.MatchNormalizedFold(l.match, d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			return nil
		}

		id := domain.AssetID(filepath.ToSlash(rel))
		assets = append(assets, domain.Asset{
			ID:        id,
			Name:      d.Name(),
			CreatedAt: info.ModTime(),
		})
		stamps[id] = info.ModTime().UnixNano()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan library: %w", err)
	}

	sort.SliceStable(assets, func(i, j int) bool {
		if !assets[i].CreatedAt.Equal(assets[j].CreatedAt) {
			return assets[i].CreatedAt.After(assets[j].CreatedAt)
		}
		return assets[i].ID < assets[j].ID
	})

	l.mu.Lock()
	l.stamps = stamps
	l.fresh = make(map[domain.AssetID]bool)
	l.mu.Unlock()

	l.logger.Info("library scanned", "root", l.root, "count", len(assets))
	return assets, nil
}

// FetchImage returns the asset rendered to fill target. Identical concurrent
// requests share one decode.
func (l *Library) FetchImage(ctx context.Context, id domain.AssetID, target domain.Size, q domain.Quality) (*domain.Image, error) {
	if target.IsEmpty() {
		return nil, fmt.Errorf("invalid target size %vx%v", target.Width, target.Height)
	}
	src, err := l.Path(id)
	if err != nil {
		return nil, err
	}
	l.checkFresh(id, src)

	key := store.Key(id, target, q)
	if data, ok := l.thumbs.Get(key); ok {
		if img, err := decodeRendition(id, q, data); err == nil {
			return img, nil
		}
		l.thumbs.InvalidateAsset(id)
	}

	for {
		ch := l.group.DoChan(key, func() (any, error) {
			return l.render(ctx, id, src, key, target, q)
		})

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				// The caller that started the shared render gave up; render again
				if errors.Is(res.Err, context.Canceled) && ctx.Err() == nil {
					continue
				}
				return nil, res.Err
			}
			return res.Val.(*domain.Image), nil
		}
	}
}

// checkFresh drops stored renditions of a file that changed since they were made
func (l *Library) checkFresh(id domain.AssetID, src string) {
	l.mu.Lock()
	if l.fresh[id] {
		l.mu.Unlock()
		return
	}
	stamp, known := l.stamps[id]
	l.mu.Unlock()

	if !known {
		info, err := os.Stat(src)
		if err != nil {
			return
		}
		stamp = info.ModTime().UnixNano()
	}
	if l.thumbs.Validate(id, stamp) {
		l.logger.Debug("source changed, dropped renditions", "asset", id)
	}

	l.mu.Lock()
	l.fresh[id] = true
	l.mu.Unlock()
}

func (l *Library) render(ctx context.Context, id domain.AssetID, src, key string, target domain.Size, q domain.Quality) (*domain.Image, error) {
	if err := l.decodes.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer l.decodes.Release(1)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrAssetNotFound, id)
		}
		return nil, fmt.Errorf("failed to open %s: %w", id, err)
	}
	defer f.Close()

	source, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrUnsupportedFormat, id, err)
	}

	thumb := Fill(source, target, q)

	var buf bytes.Buffer
	if err := png.Encode(&buf, thumb); err != nil {
		return nil, fmt.Errorf("failed to encode rendition of %s: %w", id, err)
	}
	if err := l.thumbs.Put(key, buf.Bytes()); err != nil {
		// The rendition is still usable, only the cache write failed
		l.logger.Warn("failed to store rendition", "asset", id, "error", err)
	}

	return newImage(id, q, thumb), nil
}

func decodeRendition(id domain.AssetID, q domain.Quality, data []byte) (*domain.Image, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return newImage(id, q, img), nil
}

func newImage(id domain.AssetID, q domain.Quality, img image.Image) *domain.Image {
	b := img.Bounds()
	return &domain.Image{
		AssetID: id,
		Size:    domain.Size{Width: float64(b.Dx()), Height: float64(b.Dy())},
		Quality: q,
		Pixels:  img,
	}
}
