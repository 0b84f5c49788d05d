package manager

import (
	"fmt"
	"sort"
	"time"

	"github.com/jonit-dev/vibe-coder-3d-sub004/geom"
	"github.com/jonit-dev/vibe-coder-3d-sub004/log"
	"github.com/jonit-dev/vibe-coder-3d-sub004/meshindex"
	"github.com/jonit-dev/vibe-coder-3d-sub004/metrics"
	"github.com/jonit-dev/vibe-coder-3d-sub004/sceneindex"
	"github.com/jonit-dev/vibe-coder-3d-sub004/types"
)

// The dirty state of the scene index.
type DirtyState uint8

const (
	Clean DirtyState = iota
	TransformDirty
	StructurallyDirty
)

func (s DirtyState) String() string {
	switch s {
	case Clean:
		return "clean"
	case TransformDirty:
		return "transform-dirty"
	case StructurallyDirty:
		return "structurally-dirty"
	}
	return fmt.Sprintf("DirtyState(%d)", uint8(s))
}

type entry struct {
	// The shared object index or nil for dynamic entities.
	index *meshindex.Index

	localBox geom.AABB
	worldBox geom.AABB

	// The last valid world matrix and its inverse.
	world      types.Mat4
	inverse    types.Mat4
	invertible bool
}

func (e *entry) dynamic() bool {
	return e.index == nil
}

// A Manager owns the scene index and the per-entity state required to answer
// culling and raycast queries. The mutation methods and
// RebuildSceneIfNeeded must be called from a single goroutine; queries must
// not run concurrently with them.
type Manager struct {
	logger log.Logger
	opts   Options

	entries map[uint64]*entry
	scene   *sceneindex.Index
	state   DirtyState

	// Registered entities that are missing from the committed scene tree.
	fresh map[uint64]struct{}

	// Entities whose box in the committed scene tree may be stale.
	moved map[uint64]struct{}

	// True once a scene tree has been committed.
	committed bool

	// Incremented on every transform change; used to detect changes made
	// while a budgeted build was in progress.
	transformEpoch uint64
	buildEpoch     uint64

	metrics metrics.Snapshot
	scratch []uint64
}

// Create a new manager.
func New(opts Options) (*Manager, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		logger:  log.New("manager"),
		opts:    opts,
		entries: make(map[uint64]*entry),
		scene:   sceneindex.New(opts.SceneOptions()),
		fresh:   make(map[uint64]struct{}),
		moved:   make(map[uint64]struct{}),
	}
	return m, nil
}

// Get the manager options.
func (m *Manager) Options() Options {
	return m.opts
}

// Get the current dirty state.
func (m *Manager) State() DirtyState {
	return m.state
}

// RegisterObject adds an entity backed by a shared object index. The world
// matrix is assumed to be the identity until UpdateTransform is called;
// initialWorldBox is used for culling until then. An empty initialWorldBox
// falls back to the index bounds.
func (m *Manager) RegisterObject(id uint64, index *meshindex.Index, initialWorldBox geom.AABB) error {
	if index == nil {
		return ErrNilIndex
	}

	e := &entry{
		index:      index,
		localBox:   index.Bounds(),
		world:      types.Ident4(),
		inverse:    types.Ident4(),
		invertible: true,
	}

	switch {
	case initialWorldBox.IsEmpty():
		e.worldBox = e.localBox
	case !initialWorldBox.IsFinite():
		m.logger.Warningf("entity %d: non-finite initial bounds %v; treating as unbounded", id, initialWorldBox)
		e.worldBox = geom.UnboundedAABB()
	default:
		e.worldBox = initialWorldBox
	}

	m.insert(id, e)
	return nil
}

// RegisterObjectWithTransform adds an entity backed by a shared object index
// and places it using world.
func (m *Manager) RegisterObjectWithTransform(id uint64, index *meshindex.Index, world types.Mat4) error {
	if index == nil {
		return ErrNilIndex
	}

	e := &entry{
		index:    index,
		localBox: index.Bounds(),
	}
	err := m.applyTransform(id, e, world)
	m.insert(id, e)
	return err
}

// RegisterDynamic adds an entity whose geometry changes every frame and is
// therefore not indexed. It is represented by localBox transformed by world
// and padded on every side; raycasts report hits at the box entry distance.
func (m *Manager) RegisterDynamic(id uint64, localBox geom.AABB, world types.Mat4) error {
	e := &entry{localBox: localBox}
	err := m.applyTransform(id, e, world)
	m.insert(id, e)
	return err
}

// Add or replace an entity. Until the next committed build it is served from
// the fresh set only, even if a previous registration of the same id is
// still present in the scene tree.
func (m *Manager) insert(id uint64, e *entry) {
	delete(m.moved, id)
	m.entries[id] = e
	m.fresh[id] = struct{}{}
	m.state = StructurallyDirty

	// A pending build may have captured the previous box of this id.
	m.transformEpoch++
}

// UnregisterObject removes an entity. It returns ErrMissingEntity if the
// entity is not registered.
func (m *Manager) UnregisterObject(id uint64) error {
	if _, exists := m.entries[id]; !exists {
		return ErrMissingEntity
	}

	delete(m.entries, id)
	delete(m.fresh, id)
	delete(m.moved, id)
	m.state = StructurallyDirty
	return nil
}

// UpdateTransform sets the world matrix of an entity and recomputes its world
// box from its local bounds. Transform changes are coalesced until the next
// RebuildSceneIfNeeded call. It returns ErrMissingEntity for unknown
// entities and geom.ErrNumericInstability if the matrix contains NaN or Inf
// values; in the latter case the entity is treated as unbounded for culling
// and raycasts keep using the last valid matrix.
func (m *Manager) UpdateTransform(id uint64, world types.Mat4) error {
	e, exists := m.entries[id]
	if !exists {
		return ErrMissingEntity
	}

	err := m.applyTransform(id, e, world)
	if _, isFresh := m.fresh[id]; !isFresh {
		m.moved[id] = struct{}{}
	}
	m.transformEpoch++
	if m.state == Clean {
		m.state = TransformDirty
	}
	return err
}

func (m *Manager) applyTransform(id uint64, e *entry, world types.Mat4) error {
	if !types.IsFiniteMat4(world) {
		m.logger.Warningf("entity %d: non-finite world matrix; treating as unbounded", id)
		e.worldBox = geom.UnboundedAABB()
		return fmt.Errorf("entity %d: %w", id, geom.ErrNumericInstability)
	}

	e.world = world
	e.inverse, e.invertible = types.Invert4(world)

	box := e.localBox.Transform(world)
	if e.dynamic() {
		box = box.Pad(m.opts.DynamicPadding)
	}
	if !box.IsEmpty() && !box.IsFinite() {
		box = geom.UnboundedAABB()
	}
	e.worldBox = box
	return nil
}

// RebuildSceneIfNeeded brings the scene index up to date. It should be called
// once per frame after all mutations. Structural changes trigger a full
// rebuild, transform-only changes a refit. If a rebuild does not complete
// within the configured budget, sceneindex.ErrBudgetExceeded is returned,
// the previous tree keeps serving queries and the build resumes on the next
// call.
func (m *Manager) RebuildSceneIfNeeded() error {
	if m.scene.Pending() {
		return m.advanceBuild(m.deadline())
	}

	switch m.state {
	case Clean:
		return nil
	case TransformDirty:
		if m.opts.EnableIncrementalUpdates && m.committed {
			m.refit()
			m.state = Clean
			return nil
		}
	}

	m.beginBuild()
	return m.advanceBuild(m.deadline())
}

// ForceRebuild discards any pending build and synchronously rebuilds the
// scene index, ignoring the budget.
func (m *Manager) ForceRebuild() {
	m.scene.CancelBuild()
	m.beginBuild()
	m.advanceBuild(time.Time{})
}

func (m *Manager) deadline() time.Time {
	budget := m.opts.Budget()
	if budget <= 0 {
		return time.Time{}
	}
	return time.Now().Add(budget)
}

func (m *Manager) beginBuild() {
	ids := m.Entities()
	refs := make([]sceneindex.Ref, len(ids))
	for i, id := range ids {
		refs[i] = sceneindex.Ref{Entity: id, Box: m.entries[id].worldBox}
	}

	m.scene.BeginBuild(refs)
	m.buildEpoch = m.transformEpoch
	m.state = Clean
}

func (m *Manager) advanceBuild(deadline time.Time) error {
	if err := m.scene.Advance(deadline); err != nil {
		m.metrics.BudgetOverruns++
		m.logger.Debugf("scene rebuild over budget (%d entities); deferring remaining work", len(m.scene.PendingRefs()))

		// Keep the committed tree conservative while the build continues.
		if m.committed && len(m.moved) > 0 {
			m.refit()
		}
		return err
	}

	m.committed = true
	stats := m.scene.Stats()
	m.metrics.Rebuilds++
	m.metrics.SceneBuildTime = stats.BuildTime

	// Fold in transform changes made after the build started.
	if m.transformEpoch != m.buildEpoch {
		m.scene.RefitFunc(m.lookupBox)
	}
	m.moved = make(map[uint64]struct{})

	m.fresh = make(map[uint64]struct{})
	for id := range m.entries {
		if !m.scene.Contains(id) {
			m.fresh[id] = struct{}{}
		}
	}

	if m.state == TransformDirty {
		m.state = Clean
	}

	m.logger.Debugf("rebuilt scene index in %d ms (%d entities, %d nodes)", stats.BuildTime.Nanoseconds()/1e6, m.scene.Len(), m.scene.NodeCount())
	return nil
}

func (m *Manager) refit() {
	m.scene.RefitFunc(m.lookupBox)
	m.moved = make(map[uint64]struct{})
	m.metrics.Refits++
	m.metrics.RefitTime = m.scene.Stats().RefitTime
}

func (m *Manager) lookupBox(id uint64) (geom.AABB, bool) {
	e, exists := m.entries[id]
	if !exists {
		return geom.AABB{}, false
	}
	return e.worldBox, true
}

// Returns true once the scene index has been built at least once.
func (m *Manager) Ready() bool {
	return m.committed
}

// Returns true if the entity is registered.
func (m *Manager) IsRegistered(id uint64) bool {
	_, exists := m.entries[id]
	return exists
}

// Get the number of registered entities.
func (m *Manager) Count() int {
	return len(m.entries)
}

// Get the registered entity ids in ascending order.
func (m *Manager) Entities() []uint64 {
	ids := make([]uint64, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Get the current world box of an entity.
func (m *Manager) WorldBounds(id uint64) (geom.AABB, bool) {
	return m.lookupBox(id)
}

// Clear removes all entities and resets the scene index.
func (m *Manager) Clear() {
	m.entries = make(map[uint64]*entry)
	m.fresh = make(map[uint64]struct{})
	m.moved = make(map[uint64]struct{})
	m.scene = sceneindex.New(m.opts.SceneOptions())
	m.state = Clean
	m.committed = false
	m.metrics = metrics.Snapshot{}
}
