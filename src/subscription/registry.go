package subscription

import (
	"fmt"
	"sort"

	"symbollist-observer/src/helpers"
	"symbollist-observer/src/interfaces"
	"symbollist-observer/src/logger"
	"symbollist-observer/src/models"

	"github.com/mohae/deepcopy"
)

// -----------------------------------------------------------------------------
// Registry maps session handles to the items they were opened for. All items
// are requested on one service. Callers serialise access.
// -----------------------------------------------------------------------------

type Registry struct {
	Session     interfaces.ISession
	ServiceName string
	Logger      *logger.Logger

	queue   chan<- models.MEvent
	entries map[models.SubscriptionHandle]models.ItemIdentity
}

func NewRegistry(session interfaces.ISession, queue chan<- models.MEvent, serviceName string, log *logger.Logger) *Registry {
	return &Registry{
		Session:     session,
		ServiceName: serviceName,
		Logger:      log,
		queue:       queue,
		entries:     make(map[models.SubscriptionHandle]models.ItemIdentity),
	}
}

// -----------------------------------------------------------------------------

// Identity returns the identity itemName is requested under.
func (r *Registry) Identity(itemName string) models.ItemIdentity {
	return models.ItemIdentity{Name: itemName, ServiceName: r.ServiceName}
}

// -----------------------------------------------------------------------------

// Subscribe registers itemName with the session, or reissues the request on
// the existing handle when the item is already watched. The returned bool is
// true for a reissue.
func (r *Registry) Subscribe(itemName string) (models.SubscriptionHandle, bool, error) {
	identity := r.Identity(itemName)
	interest := models.NewSymbolListInterest(identity)

	if handle, ok := r.FindHandle(itemName); ok {
		if err := r.Session.Reissue(handle, interest); err != nil {
			return handle, true, helpers.NewSessionError(fmt.Sprintf("reissue %s", identity.Key()), err)
		}
		r.Logger.Info("Reissued request for %s", identity.Key())
		return handle, true, nil
	}

	handle, err := r.Session.Register(r.queue, interest)
	if err != nil {
		return "", false, helpers.NewSessionError(fmt.Sprintf("register %s", identity.Key()), err)
	}

	if existing, taken := r.entries[handle]; taken {
		err := helpers.NewRegistryError(
			fmt.Sprintf("insert %s into watchlist", identity.Key()),
			fmt.Errorf("handle %s already held by %s", handle, existing.Key()))
		r.Logger.Error("%v", err)
		return "", false, err
	}

	r.entries[handle] = identity
	r.Logger.Info("Registered %s (handle %s)", identity.Key(), handle)
	return handle, false, nil
}

// -----------------------------------------------------------------------------

// Unsubscribe closes the subscription for itemName. Unknown items are
// ignored; the result reports whether an entry was removed.
func (r *Registry) Unsubscribe(itemName string) bool {
	handle, ok := r.FindHandle(itemName)
	if !ok {
		return false
	}

	if err := r.Session.Unregister(handle); err != nil {
		r.Logger.Warning("Unregister %s (handle %s): %v", r.entries[handle].Key(), handle, err)
	}
	r.Logger.Info("Unregistered %s", r.entries[handle].Key())
	delete(r.entries, handle)
	return true
}

// UnsubscribeAll closes every subscription and empties the registry.
func (r *Registry) UnsubscribeAll() {
	if len(r.entries) == 0 {
		return
	}
	if err := r.Session.UnregisterAll(); err != nil {
		r.Logger.Warning("Unregister all: %v", err)
	}
	r.Logger.Info("Unregistered %d item(s)", len(r.entries))
	r.entries = make(map[models.SubscriptionHandle]models.ItemIdentity)
}

// -----------------------------------------------------------------------------

// ResolveIdentity returns the identity registered under handle.
func (r *Registry) ResolveIdentity(handle models.SubscriptionHandle) (models.ItemIdentity, bool) {
	identity, ok := r.entries[handle]
	return identity, ok
}

// FindHandle scans for the handle of itemName on the registry's service.
func (r *Registry) FindHandle(itemName string) (models.SubscriptionHandle, bool) {
	want := r.Identity(itemName)
	for handle, identity := range r.entries {
		if identity == want {
			return handle, true
		}
	}
	return "", false
}

func (r *Registry) Len() int {
	return len(r.entries)
}

// -----------------------------------------------------------------------------

// Snapshot returns an independent copy of handle -> identity.
func (r *Registry) Snapshot() map[models.SubscriptionHandle]models.ItemIdentity {
	return deepcopy.Copy(r.entries).(map[models.SubscriptionHandle]models.ItemIdentity)
}

// Entries returns the watch list ordered by item key.
func (r *Registry) Entries() []models.WatchEntry {
	out := make([]models.WatchEntry, 0, len(r.entries))
	for handle, identity := range r.entries {
		out = append(out, models.WatchEntry{Handle: handle, Identity: identity})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Identity.Key() < out[j].Identity.Key()
	})
	return out
}
