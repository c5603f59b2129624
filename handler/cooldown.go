package handler

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
)

const lockShards = 64

// cooldown remembers when a verify code was last requested per email.
type cooldown struct {
	cache  *bigcache.BigCache
	window time.Duration
	now    func() time.Time
	// serializes check-and-set per email
	locks [lockShards]sync.Mutex
}

func (c *cooldown) lock(email string) *sync.Mutex {
	hash := uint32(2166136261)
	const prime32 = uint32(16777619)
	for i := 0; i < len(email); i++ {
		hash *= prime32
		hash ^= uint32(email[i])
	}
	return &c.locks[hash%lockShards]
}

func newCooldown(window time.Duration) (*cooldown, error) {
	cacheConfig := bigcache.Config{
		Shards:      64,
		LifeWindow:  window,
		CleanWindow: window,

		// rps * lifeWindow, used only in initial memory allocation
		MaxEntriesInWindow: 1000 * 60,

		// max entry size in bytes, used only in initial memory allocation
		MaxEntrySize: 8,

		Verbose: false,

		// value in MB
		HardMaxCacheSize: 16,
	}
	cache, err := bigcache.NewBigCache(cacheConfig)
	if err != nil {
		return nil, err
	}
	return &cooldown{cache: cache, window: window, now: time.Now}, nil
}

// allow reports whether email may request a new code and, if so, starts a
// new window for it. Entries are only evicted on clean, so the stored
// timestamp decides.
func (c *cooldown) allow(email string) bool {
	mu := c.lock(email)
	mu.Lock()
	defer mu.Unlock()

	now := c.now()
	if v, err := c.cache.Get(email); err == nil && len(v) == 8 {
		last := time.Unix(0, int64(binary.BigEndian.Uint64(v)))
		if now.Sub(last) < c.window {
			return false
		}
	}
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(now.UnixNano()))
	_ = c.cache.Set(email, b)
	return true
}

// forget drops email so a failed request does not count.
func (c *cooldown) forget(email string) {
	mu := c.lock(email)
	mu.Lock()
	defer mu.Unlock()
	_ = c.cache.Delete(email)
}

func (c *cooldown) Close() error {
	return c.cache.Close()
}
