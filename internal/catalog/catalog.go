// Package catalog holds the operator's SKU list with its review counts.
package catalog

import (
	"context"
	"log/slog"
	"sync"

	"github.com/leca/skureview/internal/model"
)

// Lister fetches the SKU list from the backend.
type Lister interface {
	ListSKUs(ctx context.Context, email string) ([]model.SKU, error)
}

// Catalog is a local cache of the SKU list. Every successful Load replaces it
// wholesale; a failed Load leaves it as it was.
type Catalog struct {
	lister Lister
	logger *slog.Logger

	mu        sync.RWMutex
	skus      []model.SKU
	loaded    bool
	seq       uint64
	committed uint64
}

// New creates an empty catalog.
func New(lister Lister, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{lister: lister, logger: logger}
}

// Load fetches the catalog for identity and replaces the local copy. When
// overlapping loads finish out of order, an older result never overwrites a
// newer one. It returns the catalog as committed after the call.
func (c *Catalog) Load(ctx context.Context, identity string) ([]model.SKU, error) {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	skus, err := c.lister.ListSKUs(ctx, identity)
	if err != nil {
		c.logger.Warn("Catalog load failed, keeping previous catalog", "err", err)
		return c.SKUs(), err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq <= c.committed {
		c.logger.Debug("Discarding stale catalog result", "seq", seq, "committed", c.committed)
		return clone(c.skus), nil
	}
	c.skus = clone(skus)
	c.loaded = true
	c.committed = seq
	return clone(c.skus), nil
}

// SKUs returns a copy of the catalog.
func (c *Catalog) SKUs() []model.SKU {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return clone(c.skus)
}

// Loaded reports whether any load has succeeded.
func (c *Catalog) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Filter returns the SKUs whose id contains query, case-insensitively.
func (c *Catalog) Filter(query string) []model.SKU {
	return model.FilterSKUs(c.SKUs(), query)
}

// Lookup returns the entry for id.
func (c *Catalog) Lookup(id string) (model.SKU, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := model.IndexOfSKU(c.skus, id); i >= 0 {
		return c.skus[i], true
	}
	return model.SKU{}, false
}

// First returns the id of the first entry with a usable id, or "".
func (c *Catalog) First() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.skus {
		if s.ID() != "" {
			return s.ID()
		}
	}
	return ""
}

// Clear drops the catalog, e.g. at logout. Loads still in flight are
// discarded when they finish.
func (c *Catalog) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.skus = nil
	c.loaded = false
	c.committed = c.seq
}

func clone(skus []model.SKU) []model.SKU {
	if skus == nil {
		return []model.SKU{}
	}
	return append([]model.SKU(nil), skus...)
}
