package inventory

import (
	"sync"
	"time"

	"github.com/haught/akips-inventory/internal/model"
)

// Holder keeps the latest built inventory for serve mode. Refreshes
// swap the whole inventory; readers never see a partial build.
type Holder struct {
	mu        sync.RWMutex
	inv       *model.Inventory
	refreshed time.Time
}

// NewHolder returns a holder primed with an initial inventory.
func NewHolder(inv *model.Inventory) *Holder {
	return &Holder{inv: inv, refreshed: time.Now()}
}

// Current returns the latest inventory and when it was built.
func (h *Holder) Current() (*model.Inventory, time.Time) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.inv, h.refreshed
}

// Update replaces the held inventory.
func (h *Holder) Update(inv *model.Inventory) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inv = inv
	h.refreshed = time.Now()
}
