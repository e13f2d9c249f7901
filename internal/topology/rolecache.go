package topology

import (
	"sync"

	"github.com/ELBIXishere/aidd/internal/types"
)

// Role is the derived electrical classification of a pole.
type Role struct {
	Class types.PoleClass
	Phase types.PhaseClass
}

// roleCache persists pole classifications across requests. Entries are
// write-once: the first classification of a pole id wins for the process
// lifetime, which keeps repeated designs over the same area deterministic.
type roleCache struct {
	mu    sync.RWMutex
	roles map[string]Role
}

var poleRoles = &roleCache{roles: make(map[string]Role)}

func (c *roleCache) get(id string) (Role, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.roles[id]
	return r, ok
}

func (c *roleCache) put(id string, r Role) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.roles[id]; exists {
		return
	}
	c.roles[id] = r
}

func (c *roleCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.roles)
}

// ResetRoleCache clears the process-wide pole role cache. Test hook.
func ResetRoleCache() {
	poleRoles.mu.Lock()
	defer poleRoles.mu.Unlock()
	poleRoles.roles = make(map[string]Role)
}

// RoleCacheSize reports how many poles have been classified this process.
func RoleCacheSize() int { return poleRoles.size() }
