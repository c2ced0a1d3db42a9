package models

import "strings"

// ItemDelimiter joins item name and service in legacy item keys.
const ItemDelimiter = "."

// SubscriptionHandle is issued by the session when an item is registered.
// It is opaque to everything except the session that created it.
type SubscriptionHandle string

// -----------------------------------------------------------------------------

// ItemIdentity names one subscribed item on one service.
type ItemIdentity struct {
	Name        string `json:"name"`
	ServiceName string `json:"service"`
}

// Key renders the legacy "name.service" form used in logs, storage and subjects.
func (i ItemIdentity) Key() string {
	return i.Name + ItemDelimiter + i.ServiceName
}

// -----------------------------------------------------------------------------

// ParseItemKey splits a legacy "name.service" key. The last segment is the
// service and every earlier segment is rejoined into the name, so a key of
// "0#.SPX.ELEKTRON" yields {"0#.SPX", "ELEKTRON"}. A key without a delimiter
// is returned as a bare name.
func ParseItemKey(key string) ItemIdentity {
	idx := strings.LastIndex(key, ItemDelimiter)
	if idx < 0 {
		return ItemIdentity{Name: key}
	}
	return ItemIdentity{Name: key[:idx], ServiceName: key[idx+1:]}
}

// -----------------------------------------------------------------------------

// WatchEntry is one row of the subscription registry.
type WatchEntry struct {
	Handle   SubscriptionHandle `json:"handle"`
	Identity ItemIdentity       `json:"identity"`
}

// -----------------------------------------------------------------------------

// RefreshState tracks a possibly multi-part refresh for one item.
type RefreshState struct {
	Complete     bool `json:"complete"`
	PartialCount int  `json:"partial_count"`
}

// -----------------------------------------------------------------------------

// MItemStatus summarises one tracked item for the control surfaces.
type MItemStatus struct {
	Identity ItemIdentity       `json:"identity"`
	Handle   SubscriptionHandle `json:"handle,omitempty"`
	Watched  bool               `json:"watched"`
	Refresh  RefreshState       `json:"refresh"`
	Symbols  int                `json:"symbols"`
	Active   bool               `json:"active"`
}

// -----------------------------------------------------------------------------

// ResolveItemName accepts either a bare item name or a legacy
// "name.service" key for the given service and returns the item name.
func ResolveItemName(raw, service string) string {
	id := ParseItemKey(raw)
	if id.ServiceName != "" && id.ServiceName == service && id.Name != "" {
		return id.Name
	}
	return raw
}
