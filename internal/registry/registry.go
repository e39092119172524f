// Package registry implements the ScalableAppManager: the in-memory
// registry of ScalableApps, coordinated with the persistent store and the
// bus. See spec §4.2.
package registry

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"autoscaler/internal/app"
	"autoscaler/internal/bus"
	"autoscaler/internal/metrics"
	"autoscaler/internal/store"
	"autoscaler/internal/validate"
)

// Manager maps binding id to ScalableApp. Mutation (add/remove) and
// iteration (getFlatCopyOfApps and friends) are safe to run concurrently:
// the app list itself is guarded by a read-write lock, matching the
// teacher's AppManager.lock discipline (controller_go/manager.go), while
// each ScalableApp's own contents stay behind its own per-app mutex.
type Manager struct {
	mu   sync.RWMutex
	apps []*app.ScalableApp

	store store.Store
	bus   bus.Publisher
}

// New creates an empty Manager backed by store and publishing lifecycle
// events to publisher.
func New(st store.Store, publisher bus.Publisher) *Manager {
	return &Manager{store: st, bus: publisher}
}

// Add registers app a. It succeeds iff no existing entry shares a's
// binding id or resourceId (§4.2 uniqueness invariant) — both checks and
// the append happen under the same lock acquisition, so two concurrent
// Add calls for distinct binding ids that share a resourceId can't both
// observe "not present yet" and both win. On success, if loadedFromStore
// is false the blueprint is persisted and a BindingEvent with action
// CREATING is published; otherwise LOADING is published and nothing is
// written back (it just came from the store).
func (m *Manager) Add(a *app.ScalableApp, loadedFromStore bool) bool {
	m.mu.Lock()
	for _, existing := range m.apps {
		if existing.Binding.ID == a.Binding.ID || existing.Binding.ResourceID == a.Binding.ResourceID {
			m.mu.Unlock()
			return false
		}
	}
	m.apps = append(m.apps, a)
	m.mu.Unlock()

	action := metrics.BindingCreating
	if loadedFromStore {
		action = metrics.BindingLoading
	} else {
		if err := m.store.Save(store.FromApp(a)); err != nil {
			log.Printf("[registry] failed to persist binding %s: %v", a.Binding.ID, err)
		}
	}
	m.bus.PublishBindingEvent(metrics.BindingEvent{ID: uuid.New().String(), BindingID: a.Binding.ID, Action: action})
	return true
}

// Remove deletes the app with the given binding id, deletes it from the
// store, and publishes a DELETING BindingEvent. Reports whether an entry
// was present.
func (m *Manager) Remove(bindingID string) bool {
	m.mu.Lock()
	idx := -1
	for i, a := range m.apps {
		if a.Binding.ID == bindingID {
			idx = i
			break
		}
	}
	if idx == -1 {
		m.mu.Unlock()
		return false
	}
	m.apps = append(m.apps[:idx], m.apps[idx+1:]...)
	m.mu.Unlock()

	if err := m.store.Delete(bindingID); err != nil {
		log.Printf("[registry] failed to delete binding %s from store: %v", bindingID, err)
	}
	m.bus.PublishBindingEvent(metrics.BindingEvent{ID: uuid.New().String(), BindingID: bindingID, Action: metrics.BindingDeleting})
	return true
}

// Get returns the app with the given binding id, or nil if absent.
func (m *Manager) Get(bindingID string) *app.ScalableApp {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.apps {
		if a.Binding.ID == bindingID {
			return a
		}
	}
	return nil
}

// GetByResourceID returns the app bound to the given resourceId, or nil.
func (m *Manager) GetByResourceID(resourceID string) *app.ScalableApp {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.apps {
		if a.Binding.ResourceID == resourceID {
			return a
		}
	}
	return nil
}

// Contains reports whether bindingID is registered.
func (m *Manager) Contains(bindingID string) bool {
	return m.Get(bindingID) != nil
}

// ContainsResourceID reports whether resourceID is already bound. The
// bind path uses this as a fast, non-atomic pre-check; Add itself also
// rejects a duplicate resourceId under the registry lock.
func (m *Manager) ContainsResourceID(resourceID string) bool {
	return m.GetByResourceID(resourceID) != nil
}

// GetFlatCopyOfApps returns a snapshot of the app list. It is a shallow
// copy — the list itself is fixed, but callers must still Acquire each
// app before inspecting its contents.
func (m *Manager) GetFlatCopyOfApps() []*app.ScalableApp {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*app.ScalableApp, len(m.apps))
	copy(out, m.apps)
	return out
}

// GetListOfBindings acquires each app in turn and collects its Binding.
// An app whose mutex acquisition is interrupted by ctx is skipped rather
// than aborting the whole iteration (§4.2).
func (m *Manager) GetListOfBindings(ctx context.Context) []app.Binding {
	apps := m.GetFlatCopyOfApps()
	out := make([]app.Binding, 0, len(apps))
	for _, a := range apps {
		if err := a.Acquire(ctx); err != nil {
			continue
		}
		out = append(out, a.Binding)
		a.Release()
	}
	return out
}

// GetListOfIdentifierStrings mirrors GetListOfBindings but returns
// binding ids. Release is only called when Acquire actually succeeded —
// spec §9's open question flags the source's release-outside-the-catch
// bug, which would double-release on interruption; this avoids it by
// skipping to the next app on a failed Acquire instead of falling through
// to a shared release call.
func (m *Manager) GetListOfIdentifierStrings(ctx context.Context) []string {
	apps := m.GetFlatCopyOfApps()
	out := make([]string, 0, len(apps))
	for _, a := range apps {
		if err := a.Acquire(ctx); err != nil {
			continue
		}
		out = append(out, a.Binding.ID)
		a.Release()
	}
	return out
}

// UpdateInStore persists a's current blueprint. Caller must hold a's
// mutex so the snapshot it takes is consistent.
func (m *Manager) UpdateInStore(a *app.ScalableApp) error {
	return m.store.Save(store.FromApp(a))
}

// LogScalingAction records a confirmed scale to the store's scaling
// history, if the backing store supports it (store.ScalingHistory). A
// store that doesn't implement it (e.g. a test fake) silently skips
// this — scaling still proceeds without a persisted audit trail.
func (m *Manager) LogScalingAction(bindingID, reason string, old, new int, decisionTime time.Time, payload interface{}) error {
	hist, ok := m.store.(store.ScalingHistory)
	if !ok {
		return nil
	}
	return hist.LogScalingAction(bindingID, reason, old, new, decisionTime, payload)
}

// GetScalingHistory returns the most recent scaling logs for a binding,
// or nil if the backing store doesn't retain scaling history.
func (m *Manager) GetScalingHistory(bindingID string, limit int) ([]map[string]interface{}, error) {
	hist, ok := m.store.(store.ScalingHistory)
	if !ok {
		return nil, nil
	}
	return hist.GetScalingHistory(bindingID, limit)
}

// LoadFromStore reads every persisted blueprint, validates each, and adds
// the valid ones with loadedFromStore=true. An invalid blueprint is
// logged and skipped — it never aborts startup (§4.2, §7).
func (m *Manager) LoadFromStore() error {
	blueprints, err := m.store.FindAll()
	if err != nil {
		return err
	}
	for _, bp := range blueprints {
		if err := validate.Blueprint(bp); err != nil {
			log.Printf("[registry] dropping invalid blueprint for binding %s: %v", bp.Binding.ID, err)
			continue
		}
		a := app.New(bp.ToConfig())
		if !m.Add(a, true) {
			log.Printf("[registry] duplicate binding id or resourceId for binding %s found while loading from store", bp.Binding.ID)
		}
	}
	return nil
}
