package library

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/mmcdole/lensgrid/internal/domain"
	"github.com/mmcdole/lensgrid/internal/store"
)

// warmJob is one background rendition
type warmJob struct {
	cancel context.CancelFunc
}

// StartCaching renders the high quality rendition of each asset in the
// background. Hints are best effort: failures are logged and never retried.
func (l *Library) StartCaching(assets []domain.Asset, target domain.Size) {
	if target.IsEmpty() || len(assets) == 0 {
		return
	}

	type pending struct {
		id  domain.AssetID
		key string
		ctx context.Context
		job *warmJob
	}
	var batch []pending

	l.mu.Lock()
	for _, a := range assets {
		key := store.Key(a.ID, target, domain.QualityHigh)
		if _, ok := l.warming[key]; ok {
			continue
		}
		ctx, cancel := context.WithCancel(l.base)
		job := &warmJob{cancel: cancel}
		l.warming[key] = job
		batch = append(batch, pending{id: a.ID, key: key, ctx: ctx, job: job})
	}
	l.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	l.logger.Debug("start caching", "count", len(batch), "width", target.Width)

	go func() {
		var g errgroup.Group
		g.SetLimit(l.warmers)
		for _, p := range batch {
			g.Go(func() error {
				defer l.finishWarm(p.key, p.job)
				if p.ctx.Err() != nil || l.thumbs.Has(p.key) {
					return nil
				}
				if _, err := l.FetchImage(p.ctx, p.id, target, domain.QualityHigh); err != nil && !errors.Is(err, context.Canceled) {
					l.logger.Warn("caching failed", "asset", p.id, "error", err)
				}
				return nil
			})
		}
		g.Wait()
	}()
}

// StopCaching abandons warm-ups of assets at target
func (l *Library) StopCaching(assets []domain.Asset, target domain.Size) {
	l.mu.Lock()
	var stopped []*warmJob
	for _, a := range assets {
		key := store.Key(a.ID, target, domain.QualityHigh)
		if job, ok := l.warming[key]; ok {
			delete(l.warming, key)
			stopped = append(stopped, job)
		}
	}
	l.mu.Unlock()

	for _, job := range stopped {
		job.cancel()
	}
	if len(stopped) > 0 {
		l.logger.Debug("stop caching", "count", len(stopped))
	}
}

// StopCachingAll abandons every warm-up
func (l *Library) StopCachingAll() {
	l.mu.Lock()
	jobs := l.warming
	l.warming = make(map[string]*warmJob)
	l.mu.Unlock()

	for _, job := range jobs {
		job.cancel()
	}
}

// Warming returns the number of warm-ups not yet finished or stopped
func (l *Library) Warming() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warming)
}

// finishWarm forgets a job if it is still the registered one for key
func (l *Library) finishWarm(key string, job *warmJob) {
	l.mu.Lock()
	if l.warming[key] == job {
		delete(l.warming, key)
	}
	l.mu.Unlock()
	job.cancel()
}
