package cache

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

// Maintenance sweeps the cache namespaces, assigning a default TTL to keys
// that have none and reclaiming keys that are already gone or expired. It
// runs on a schedule but can also be triggered on demand.
type Maintenance struct {
	store      Store
	namespaces []string
	defaultTTL time.Duration
}

// NewMaintenance returns a sweeper over the given namespaces. Keys found
// without a TTL are given defaultTTL so nothing lingers forever.
func NewMaintenance(store Store, namespaces []string, defaultTTL time.Duration) *Maintenance {
	if len(namespaces) == 0 {
		namespaces = Namespaces()
	}
	return &Maintenance{store: store, namespaces: namespaces, defaultTTL: defaultTTL}
}

// RunSweep walks every namespace once. It returns the number of reclaimed
// entries. Per-key failures are logged and skipped; only a failure to
// enumerate a namespace is returned as an error.
func (m *Maintenance) RunSweep(ctx context.Context) (int, error) {
	runID := uuid.NewString()
	start := time.Now()
	reclaimed := 0
	assigned := 0

	for _, namespace := range m.namespaces {
		keys, err := m.store.Keys(ctx, namespace)
		if err != nil {
			log.Printf("[maintenance] run %s: enumerate %s: %v", runID, namespace, err)
			return reclaimed, err
		}
		for _, key := range keys {
			ttl, err := m.store.TTL(ctx, namespace, key)
			if err != nil {
				log.Printf("[maintenance] run %s: ttl %s:%s: %v", runID, namespace, key, err)
				continue
			}
			switch ttl {
			case TTLPersistent:
				if m.store.Expire(ctx, namespace, key, m.defaultTTL) {
					assigned++
				}
			case TTLMissing:
				m.store.Delete(ctx, namespace, key)
				reclaimed++
			}
		}
	}

	log.Printf("[maintenance] run %s: swept %d namespace(s) in %s (reclaimed=%d, ttl assigned=%d)",
		runID, len(m.namespaces), time.Since(start).Round(time.Millisecond), reclaimed, assigned)
	return reclaimed, nil
}
