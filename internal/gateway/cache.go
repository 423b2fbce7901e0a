package gateway

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"rounds-service/internal/domain"
)

// RoundContent bundles everything a round page load needs.
type RoundContent struct {
	Config    domain.RoundConfig
	Questions []domain.Question
}

// ContentLoader fetches round content from the backing store.
type ContentLoader interface {
	LoadRound(ctx context.Context, roundID string) (RoundContent, error)
}

// LoadRound makes Gateway a ContentLoader: config plus the round's questions.
func (g *Gateway) LoadRound(ctx context.Context, roundID string) (RoundContent, error) {
	cfg, err := g.GetRound(ctx, roundID)
	if err != nil {
		if err == domain.ErrNotFound {
			return RoundContent{}, domain.ErrRoundNotFound
		}
		return RoundContent{}, err
	}
	content := RoundContent{Config: cfg}
	if cfg.Type == domain.RoundTypeMCQ {
		content.Questions, err = g.QuestionsForRound(ctx, roundID)
		if err != nil {
			return RoundContent{}, err
		}
	}
	return content, nil
}

// RoundCache caches round content with TTL to avoid re-reading config and
// questions from the store on every answer.
type RoundCache struct {
	loader ContentLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedRound
}

type cachedRound struct {
	content   RoundContent
	expiresAt time.Time
}

func NewRoundCache(loader ContentLoader, ttl time.Duration) *RoundCache {
	return &RoundCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedRound),
	}
}

func (c *RoundCache) GetRound(ctx context.Context, roundID string) (RoundContent, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[roundID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.content, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(roundID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[roundID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.content, nil
		}
		c.mu.RUnlock()

		content, err := c.loader.LoadRound(ctx, roundID)
		if err != nil {
			return RoundContent{}, err
		}

		c.mu.Lock()
		c.cache[roundID] = cachedRound{
			content:   content,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return content, nil
	})
	if err != nil {
		return RoundContent{}, err
	}
	return result.(RoundContent), nil
}

// Invalidate drops a round after an admin edit so the next read is fresh.
func (c *RoundCache) Invalidate(roundID string) {
	c.mu.Lock()
	delete(c.cache, roundID)
	c.mu.Unlock()
}

func (c *RoundCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
