package inventory

import (
	"github.com/haught/akips-inventory/internal/akips"
	"github.com/haught/akips-inventory/internal/cache"
	"github.com/haught/akips-inventory/internal/config"
	"github.com/haught/akips-inventory/internal/log"
)

// NewFromConfig compiles the configured rules and wires a Builder to
// the live api-db endpoint, with the sqlite response cache when
// enabled. Rule compilation happens here, before any network request.
// The returned closer releases the cache database.
func NewFromConfig(cfg *config.Config) (*Builder, func() error, error) {
	rules, err := cfg.Compile()
	if err != nil {
		return nil, nil, err
	}

	var respCache akips.Cache
	closer := func() error { return nil }
	if cfg.Cache.Enabled {
		store, err := cache.Open(cfg.Cache.Dir, cfg.Cache.TTL)
		if err != nil {
			// The cache is an optimization; a broken cache database
			// should not block an inventory run.
			log.Warn("Response cache unavailable, fetching live", "error", err)
		} else {
			respCache = store
			closer = store.Close
		}
	}

	client, err := akips.NewClient(cfg, respCache)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return NewBuilder(client, rules), closer, nil
}
