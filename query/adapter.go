package query

import (
	"errors"
	"sync"

	"github.com/jonit-dev/vibe-coder-3d-sub004/geom"
	"github.com/jonit-dev/vibe-coder-3d-sub004/log"
	"github.com/jonit-dev/vibe-coder-3d-sub004/manager"
	"github.com/jonit-dev/vibe-coder-3d-sub004/types"
)

var (
	ErrInvalidRequest   = errors.New("query: invalid request")
	ErrUnknownOperation = errors.New("query: unknown operation")
)

// The max distance used when a script does not specify one.
const DefaultMaxDistance float32 = 1000

// A raycast hit as seen by scripts.
type Hit struct {
	EntityID uint64  `json:"entityId"`
	Distance float32 `json:"distance"`
	Point    Vector  `json:"point"`

	// Barycentric coordinates (u, v, w) of the hit point where w = 1 - u - v.
	// All zero for dynamic entities.
	Barycentric Vector `json:"barycentric"`

	// Triangle index within the entity's geometry or -1 for dynamic
	// entities.
	TriangleIndex int32 `json:"triangleIndex"`
}

// A Raycaster answers script raycast queries.
type Raycaster interface {
	RaycastFirst(origin, dir Vector, maxDistance float32) (Hit, bool)
	RaycastAll(origin, dir Vector, maxDistance float32) []Hit
}

// An Adapter exposes the raycast queries of an index manager to scripts.
type Adapter struct {
	logger log.Logger
	mgr    *manager.Manager

	// Guards mgr when scripts run outside the frame loop goroutine.
	lock sync.Locker

	// The functions used to encode responses and decode requests.
	encoder func(interface{}) ([]byte, error)
	decoder func([]byte, interface{}) error
}

// An Option configures an adapter.
type Option func(*Adapter)

// WithLock serializes all manager access through l.
func WithLock(l sync.Locker) Option {
	return func(a *Adapter) {
		a.lock = l
	}
}

// WithEncoder sets the function used to encode script responses.
func WithEncoder(enc func(interface{}) ([]byte, error)) Option {
	return func(a *Adapter) {
		a.encoder = enc
	}
}

// WithDecoder sets the function used to decode script requests.
func WithDecoder(dec func([]byte, interface{}) error) Option {
	return func(a *Adapter) {
		a.decoder = dec
	}
}

// Create a new adapter. A nil manager yields an adapter that never reports
// hits.
func NewAdapter(mgr *manager.Manager, opts ...Option) *Adapter {
	a := &Adapter{
		logger:  log.New("query"),
		mgr:     mgr,
		lock:    noLock{},
		encoder: defaultEncoder,
		decoder: defaultDecoder,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RaycastFirst returns the nearest hit along dir. The direction does not need
// to be normalized.
func (a *Adapter) RaycastFirst(origin, dir Vector, maxDistance float32) (Hit, bool) {
	if a.mgr == nil {
		a.logger.Warning("raycastFirst: no index manager attached")
		return Hit{}, false
	}

	a.lock.Lock()
	defer a.lock.Unlock()

	hit, ok := a.mgr.RaycastFirst(geom.NewRay(origin.vec3(), dir.vec3()), maxDistance)
	if !ok {
		return Hit{}, false
	}
	return convertHit(hit), true
}

// RaycastAll returns every hit along dir sorted by distance, then entity id,
// then triangle index.
func (a *Adapter) RaycastAll(origin, dir Vector, maxDistance float32) []Hit {
	if a.mgr == nil {
		a.logger.Warning("raycastAll: no index manager attached")
		return []Hit{}
	}

	a.lock.Lock()
	defer a.lock.Unlock()

	hits := a.mgr.RaycastAll(geom.NewRay(origin.vec3(), dir.vec3()), maxDistance)
	out := make([]Hit, len(hits))
	for i, hit := range hits {
		out[i] = convertHit(hit)
	}
	return out
}

func convertHit(h manager.Hit) Hit {
	out := Hit{
		EntityID:      h.Entity,
		Distance:      h.Distance,
		Point:         fromVec3(h.Point),
		TriangleIndex: h.Triangle,
	}
	if h.Triangle >= 0 {
		out.Barycentric = fromVec3(types.XYZ(h.U, h.V, 1-h.U-h.V))
	}
	return out
}

type noLock struct{}

func (noLock) Lock()   {}
func (noLock) Unlock() {}
