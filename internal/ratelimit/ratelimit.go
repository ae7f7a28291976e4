// Package ratelimit throttles message sends per chat channel.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// PerKey выдаёт token-bucket лимитер на ключ (transaction ID).
// Простаивающие лимитеры периодически выбрасываются, чтобы карта не
// росла по брошенным каналам.
type PerKey struct {
	ratePerMin int
	burst      int

	mu      sync.Mutex
	buckets map[string]*entry
	lastGC  time.Time
}

type entry struct {
	limiter *rate.Limiter
	seen    time.Time
}

const gcInterval = 10 * time.Minute

func NewPerKey(ratePerMin int) *PerKey {
	burst := ratePerMin / 3
	if burst < 1 {
		burst = 1
	}
	return &PerKey{
		ratePerMin: ratePerMin,
		burst:      burst,
		buckets:    make(map[string]*entry),
		lastGC:     time.Now(),
	}
}

// Allow сообщает, можно ли сейчас принять сообщение для key.
func (p *PerKey) Allow(key string) bool {
	if p.ratePerMin <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	if now.Sub(p.lastGC) > gcInterval {
		for k, e := range p.buckets {
			if now.Sub(e.seen) > gcInterval {
				delete(p.buckets, k)
			}
		}
		p.lastGC = now
	}

	e, ok := p.buckets[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Limit(float64(p.ratePerMin)/60.0), p.burst)}
		p.buckets[key] = e
	}
	e.seen = now
	return e.limiter.Allow()
}
