package toolchain

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/TimurManjosov/horizons/internal/probe"
)

// provisionCache remembers versions already made available so repeated trials
// on the same version skip the host check. Failures are cached as well: a
// version that could not be installed is not retried within a run.
type provisionCache struct {
	mu     sync.Mutex
	status map[probe.Version]bool
}

func newProvisionCache() *provisionCache {
	return &provisionCache{status: make(map[probe.Version]bool)}
}

// ensure returns the cached status for v, or calls install and caches its answer.
// Answers produced under a cancelled context are not cached.
func (c *provisionCache) ensure(ctx context.Context, v probe.Version, logger zerolog.Logger, install func() bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ok, seen := c.status[v]; seen {
		return ok
	}
	ok := install()
	if ctx.Err() != nil {
		return false
	}
	c.status[v] = ok
	if !ok {
		logger.Warn().Str("version", string(v)).Msg("runtime version unavailable")
	}
	return ok
}
