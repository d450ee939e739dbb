package backend

import (
	"os/exec"
	"time"

	"github.com/dgraph-io/ristretto"
)

// toolLocator resolves external tools on PATH. Results are kept for a short
// TTL so a sweep does not stat PATH hundreds of times, but a tool that is
// installed or removed is noticed once the entry expires.
type toolLocator struct {
	ttl   time.Duration
	cache *ristretto.Cache
	look  func(string) (string, error)
}

func newToolLocator(ttl time.Duration) *toolLocator {
	l := &toolLocator{ttl: ttl, look: exec.LookPath}
	if ttl <= 0 {
		return l
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        100,
		MaxCost:            1 << 10,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err == nil {
		l.cache = cache
	}
	return l
}

// Find returns the absolute path of the named tool and whether it exists.
func (l *toolLocator) Find(name string) (string, bool) {
	if l.cache != nil {
		if v, ok := l.cache.Get(name); ok {
			p, _ := v.(string)
			return p, p != ""
		}
	}

	path, err := l.look(name)
	if err != nil {
		path = ""
	}
	if l.cache != nil {
		l.cache.SetWithTTL(name, path, 1, l.ttl)
		l.cache.Wait()
	}
	return path, path != ""
}
