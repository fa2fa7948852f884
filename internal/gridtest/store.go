package gridtest

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/mmcdole/lensgrid/internal/domain"
)

// Assets builds n assets with IDs "asset-0".."asset-(n-1)", newest first
func Assets(n int) []domain.Asset {
	base := time.Date(2024, 11, 20, 0, 0, 0, 0, time.UTC)
	out := make([]domain.Asset, n)
	for i := range out {
		out[i] = domain.Asset{
			ID:        domain.AssetID(fmt.Sprintf("asset-%d", i)),
			Name:      fmt.Sprintf("IMG_%04d.JPG", i),
			CreatedAt: base.Add(-time.Duration(i) * time.Minute),
		}
	}
	return out
}

// Image builds a small solid image for an asset
func Image(id domain.AssetID, q domain.Quality) *domain.Image {
	return &domain.Image{
		AssetID: id,
		Size:    domain.Size{Width: 4, Height: 4},
		Quality: q,
		Pixels:  image.NewRGBA(image.Rect(0, 0, 4, 4)),
	}
}

type result struct {
	img *domain.Image
	err error
}

// Fetch is one FetchImage call awaiting completion by the test
type Fetch struct {
	AssetID domain.AssetID
	Target  domain.Size
	Quality domain.Quality

	ctx    context.Context
	result chan result
}

// Cancelled reports whether the caller abandoned the fetch
func (f *Fetch) Cancelled() bool {
	return f.ctx.Err() != nil
}

// Hint is a recorded caching call
type Hint struct {
	Assets []domain.AssetID
	Target domain.Size
}

// Store is a domain.AssetStore whose fetches block until the test completes them
type Store struct {
	mu      sync.Mutex
	assets  []domain.Asset
	status  domain.AuthorizationStatus
	listErr error
	fetches []*Fetch
	started []Hint
	stopped []Hint
	stopAll int

	// Auto, when set, answers fetches immediately instead of blocking
	Auto func(id domain.AssetID, target domain.Size, q domain.Quality) (*domain.Image, error)
}

var _ domain.AssetStore = (*Store)(nil)

// NewStore creates an authorized store serving assets
func NewStore(assets []domain.Asset) *Store {
	return &Store{assets: assets, status: domain.AuthorizationAuthorized}
}

// SetAuthorization changes the reported authorization status
func (s *Store) SetAuthorization(status domain.AuthorizationStatus) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// SetListError makes ListAssets fail
func (s *Store) SetListError(err error) {
	s.mu.Lock()
	s.listErr = err
	s.mu.Unlock()
}

func (s *Store) FetchImage(ctx context.Context, id domain.AssetID, target domain.Size, q domain.Quality) (*domain.Image, error) {
	f := &Fetch{AssetID: id, Target: target, Quality: q, ctx: ctx, result: make(chan result, 1)}

	s.mu.Lock()
	s.fetches = append(s.fetches, f)
	auto := s.Auto
	s.mu.Unlock()

	if auto != nil {
		return auto(id, target, q)
	}

	select {
	case r := <-f.result:
		return r.img, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Complete delivers a result to a pending fetch
func (s *Store) Complete(f *Fetch, img *domain.Image, err error) {
	f.result <- result{img: img, err: err}
}

// Fetches returns a copy of every fetch issued so far
func (s *Store) Fetches() []*Fetch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Fetch(nil), s.fetches...)
}

// FindFetch returns the latest fetch for an asset at a quality
func (s *Store) FindFetch(id domain.AssetID, q domain.Quality) *Fetch {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.fetches) - 1; i >= 0; i-- {
		if f := s.fetches[i]; f.AssetID == id && f.Quality == q {
			return f
		}
	}
	return nil
}

func (s *Store) StartCaching(assets []domain.Asset, target domain.Size) {
	s.mu.Lock()
	s.started = append(s.started, Hint{Assets: ids(assets), Target: target})
	s.mu.Unlock()
}

func (s *Store) StopCaching(assets []domain.Asset, target domain.Size) {
	s.mu.Lock()
	s.stopped = append(s.stopped, Hint{Assets: ids(assets), Target: target})
	s.mu.Unlock()
}

func (s *Store) StopCachingAll() {
	s.mu.Lock()
	s.stopAll++
	s.mu.Unlock()
}

// Started returns the recorded StartCaching calls
func (s *Store) Started() []Hint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Hint(nil), s.started...)
}

// Stopped returns the recorded StopCaching calls
func (s *Store) Stopped() []Hint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Hint(nil), s.stopped...)
}

// StopAllCalls returns how many times StopCachingAll was called
func (s *Store) StopAllCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopAll
}

// ResetHints forgets recorded caching calls
func (s *Store) ResetHints() {
	s.mu.Lock()
	s.started, s.stopped, s.stopAll = nil, nil, 0
	s.mu.Unlock()
}

func (s *Store) ListAssets(_ context.Context) ([]domain.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]domain.Asset(nil), s.assets...), nil
}

func (s *Store) Authorization(_ context.Context) domain.AuthorizationStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func ids(assets []domain.Asset) []domain.AssetID {
	out := make([]domain.AssetID, len(assets))
	for i, a := range assets {
		out[i] = a.ID
	}
	return out
}

// CountingHandle counts Cancel calls
type CountingHandle struct {
	mu      sync.Mutex
	cancels int
}

// Cancel records a cancel
func (h *CountingHandle) Cancel() {
	h.mu.Lock()
	h.cancels++
	h.mu.Unlock()
}

// Cancels returns how many times Cancel was called
func (h *CountingHandle) Cancels() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancels
}
