package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"listenlab/internal/domain"
)

// ContentLoader fetches listening content from a backing store (e.g. Postgres).
type ContentLoader interface {
	LoadContent(ctx context.Context, contentID string) (domain.Content, error)
}

// ContentRepository caches content with TTL to avoid repeated DB hits.
type ContentRepository struct {
	loader ContentLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedContent
}

type cachedContent struct {
	content   domain.Content
	expiresAt time.Time
}

func NewContentRepository(loader ContentLoader, ttl time.Duration) *ContentRepository {
	return &ContentRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedContent),
	}
}

func (r *ContentRepository) GetContent(ctx context.Context, contentID string) (domain.Content, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[contentID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.content, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(contentID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[contentID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.content, nil
		}
		r.mu.RUnlock()

		content, err := r.loader.LoadContent(ctx, contentID)
		if err != nil {
			return domain.Content{}, err
		}

		r.mu.Lock()
		r.cache[contentID] = cachedContent{
			content:   content,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return content, nil
	})
	if err != nil {
		return domain.Content{}, err
	}
	return result.(domain.Content), nil
}

func (r *ContentRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticContentLoader is a loader backed by an in-memory map (tests/demos).
type StaticContentLoader struct {
	contents map[string]domain.Content
}

func NewStaticContentLoader(contents map[string]domain.Content) *StaticContentLoader {
	return &StaticContentLoader{contents: contents}
}

func (l *StaticContentLoader) LoadContent(_ context.Context, contentID string) (domain.Content, error) {
	if content, ok := l.contents[contentID]; ok {
		return content, nil
	}
	return domain.Content{}, domain.ErrContentNotFound
}
