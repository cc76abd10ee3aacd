package table

import "sync"

// Registry owns every live Table session in one process, created lazily on
// first reference. Grounded on the teacher's pkg/server/server.go Server,
// which keeps its tables in a plain map guarded by one mutex rather than a
// sync.Map — table count per process is small enough that contention on the
// registry mutex itself is never the bottleneck.
type Registry struct {
	mu      sync.Mutex
	tables  map[string]*Table
	factory func(id string) *Table
}

// NewRegistry returns a Registry that builds a Table for an unseen id using
// factory — typically table.New with the store/wallet/broadcaster/scheduler
// a process shares across every table it owns.
func NewRegistry(factory func(id string) *Table) *Registry {
	return &Registry{
		tables:  make(map[string]*Table),
		factory: factory,
	}
}

// GetOrCreate returns the Table for id, constructing and caching one via
// the registry's factory on first reference.
func (r *Registry) GetOrCreate(id string) *Table {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tables[id]; ok {
		return t
	}
	t := r.factory(id)
	r.tables[id] = t
	return t
}

// Get returns the Table for id without creating one.
func (r *Registry) Get(id string) (*Table, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tables[id]
	return t, ok
}

// Remove drops id from the registry, e.g. after its last seat empties out
// and the caller doesn't want to keep an idle Table resident in memory.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tables, id)
}
