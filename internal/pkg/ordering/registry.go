package ordering

import (
	"sync"

	"github.com/trevall/carfolio/app/models"
)

// Registry hands out one Engine per gallery so concurrent requests against
// the same gallery share a single optimistic view of its order.
type Registry struct {
	mu        sync.Mutex
	engines   map[uint]*Engine
	persister Persister
}

func NewRegistry(persister Persister) *Registry {
	return &Registry{
		engines:   make(map[uint]*Engine),
		persister: persister,
	}
}

// ForGallery returns the gallery's engine, creating it from the loader on
// first use. The loader supplies both the persisted sequence and the gallery's
// persisted sort state, so a rebuilt engine comes back in the same mode it was
// evicted in. The loader runs outside the registry lock would be nicer, but
// creation happens once per gallery and the load is a single indexed query.
func (r *Registry) ForGallery(galleryID uint, load func() ([]models.Image, SortState, error)) (*Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if engine, ok := r.engines[galleryID]; ok {
		return engine, nil
	}

	images, state, err := load()
	if err != nil {
		return nil, err
	}
	engine := NewEngine(galleryID, r.persister, images)
	engine.restoreSortState(state)
	r.engines[galleryID] = engine
	return engine, nil
}

// Evict drops a gallery's engine; the next request rebuilds it from the
// persisted order.
func (r *Registry) Evict(galleryID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.engines, galleryID)
}
