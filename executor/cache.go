package executor

import (
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// renderCache holds rendered viewport images keyed by document revision and
// size, so repeated screenshot requests against an unchanged document skip
// the render. Entries expire on TTL; a revision bump naturally misses.
type renderCache struct {
	cache *ttlcache.Cache[string, []byte]
}

func newRenderCache(ttl time.Duration) *renderCache {
	c := ttlcache.New[string, []byte](
		ttlcache.WithTTL[string, []byte](ttl),
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	)
	go c.Start()
	return &renderCache{cache: c}
}

func (rc *renderCache) stop() {
	rc.cache.Stop()
}

func renderKey(revision int64, width, height int) string {
	return fmt.Sprintf("%d:%dx%d", revision, width, height)
}

func (rc *renderCache) get(revision int64, width, height int) []byte {
	item := rc.cache.Get(renderKey(revision, width, height))
	if item == nil {
		return nil
	}
	return item.Value()
}

func (rc *renderCache) put(revision int64, width, height int, img []byte) {
	rc.cache.Set(renderKey(revision, width, height), img, ttlcache.DefaultTTL)
}
