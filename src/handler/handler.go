package handler

import (
	"sort"
	"sync"
	"time"

	"symbollist-observer/src/decoder"
	"symbollist-observer/src/interfaces"
	"symbollist-observer/src/logger"
	"symbollist-observer/src/metrics"
	"symbollist-observer/src/models"
	"symbollist-observer/src/subscription"
)

var _ interfaces.ISymbolListController = (*SymbolListHandler)(nil)

// itemState is the refresh progress and symbol cache of one item.
type itemState struct {
	refresh models.RefreshState
	symbols *decoder.SymbolSet
}

// -----------------------------------------------------------------------------
// SymbolListHandler requests symbol list items, decodes their responses and
// keeps per-item refresh state and symbol caches.
// -----------------------------------------------------------------------------

type SymbolListHandler struct {
	Registry *subscription.Registry
	Maps     *decoder.MapDecoder
	Metrics  *metrics.Metrics
	Logger   *logger.Logger

	serviceName string
	debug       bool
	active      models.ItemIdentity
	items       map[models.ItemIdentity]*itemState
	mu          sync.Mutex
}

// NewSymbolListHandler wires a handler whose responses arrive on queue.
// m may be nil.
func NewSymbolListHandler(
	session interfaces.ISession,
	queue chan<- models.MEvent,
	dict interfaces.IFieldDictionary,
	serviceName string,
	m *metrics.Metrics,
	log *logger.Logger,
) *SymbolListHandler {
	fields := decoder.NewFieldListDecoder(dict, log)
	return &SymbolListHandler{
		Registry:    subscription.NewRegistry(session, queue, serviceName, log),
		Maps:        decoder.NewMapDecoder(fields, log),
		Metrics:     m,
		Logger:      log,
		serviceName: serviceName,
		items:       make(map[models.ItemIdentity]*itemState),
	}
}

// -----------------------------------------------------------------------------

func (h *SymbolListHandler) ServiceName() string {
	return h.serviceName
}

// SetDebugMode turns record tracing on or off.
func (h *SymbolListHandler) SetDebugMode(debug bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.debug = debug
}

func (h *SymbolListHandler) state(identity models.ItemIdentity) *itemState {
	st, ok := h.items[identity]
	if !ok {
		st = &itemState{
			refresh: models.RefreshState{Complete: true},
			symbols: decoder.NewSymbolSet(),
		}
		h.items[identity] = st
	}
	return st
}

// -----------------------------------------------------------------------------

// SendRequest opens (or reissues) the subscription for itemName and restarts
// its refresh cycle. On failure nothing changes and the error is returned.
func (h *SymbolListHandler) SendRequest(itemName string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	_, reissued, err := h.Registry.Subscribe(itemName)
	if err != nil {
		h.Logger.Error("Request for %s failed: %v", itemName, err)
		return err
	}
	if reissued {
		h.Metrics.RequestSent("reissue")
	} else {
		h.Metrics.RequestSent("register")
	}

	identity := h.Registry.Identity(itemName)
	st := h.state(identity)
	st.refresh = models.RefreshState{Complete: false}
	st.symbols.Reset()
	h.active = identity

	h.Metrics.SetWatched(h.Registry.Len())
	h.Metrics.SetSymbols(identity.Key(), 0)
	h.Logger.Info("Sent request for %s", identity.Key())
	return nil
}

// -----------------------------------------------------------------------------

// CloseRequest closes itemName. Unknown items are ignored.
func (h *SymbolListHandler) CloseRequest(itemName string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closeRequest(itemName)
}

func (h *SymbolListHandler) closeRequest(itemName string) {
	if h.Registry.Unsubscribe(itemName) {
		h.Metrics.RequestSent("close")
		h.Metrics.SetWatched(h.Registry.Len())
	}
	if st, ok := h.items[h.Registry.Identity(itemName)]; ok {
		st.refresh = models.RefreshState{Complete: true}
	}
}

// CloseAllRequest closes every subscription.
func (h *SymbolListHandler) CloseAllRequest() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.Registry.UnsubscribeAll()
	for _, st := range h.items {
		st.refresh = models.RefreshState{Complete: true}
	}
	h.Metrics.SetWatched(0)
}

// -----------------------------------------------------------------------------

// ProcessResponse decodes one response delivered for handle and returns the
// records it produced, in order.
func (h *SymbolListHandler) ProcessResponse(msg *models.MResponseMessage, handle models.SubscriptionHandle) []models.DecodedRecord {
	if msg == nil {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	start := time.Now()

	identity, ok := h.Registry.ResolveIdentity(handle)
	if !ok {
		identity = models.ItemIdentity{Name: msg.Name, ServiceName: h.serviceName}
		h.Logger.Debug("Handle %s not in watchlist, using %s", handle, identity.Key())
	}

	var records []models.DecodedRecord

	switch msg.Type {
	case models.RespRefresh:
		records = h.processRefresh(msg, identity)
	case models.RespUpdate:
		records = h.processUpdate(msg, identity)
	case models.RespStatus:
		records = h.processStatus(msg, identity)
	default:
		h.Logger.Warning("Unknown response type '%s' for %s", msg.Type, identity.Key())
	}

	if msg.Status.IsTerminal() {
		h.Logger.Error("%s closed: %s (stream %s, data %s, code %s)",
			identity.Key(), msg.Status.Text, msg.Status.StreamState, msg.Status.DataState, msg.Status.StatusCode)
		h.closeRequest(identity.Name)
		h.Metrics.AutoClosed()
	}

	for _, r := range records {
		h.Metrics.RecordEmitted(r.GetString(models.KeyMType), r.GetString(models.KeyAction))
		if h.debug {
			h.Logger.Debug("%s", r.String())
		}
	}
	h.Metrics.ObserveResponse(string(msg.Type), time.Since(start))

	return records
}

// -----------------------------------------------------------------------------

func (h *SymbolListHandler) processRefresh(msg *models.MResponseMessage, identity models.ItemIdentity) []models.DecodedRecord {
	st := h.state(identity)

	var records []models.DecodedRecord
	if st.refresh.PartialCount == 0 {
		records = append(records, models.NewItemRecord(identity, models.MTypeRefresh))
	}

	if msg.Payload == nil || len(msg.Payload.Entries) == 0 {
		h.Logger.Info("Empty refresh for %s", identity.Key())
	} else {
		decoded, err := h.Maps.Decode(msg.Payload, identity, models.MTypeImage, st.symbols)
		if err != nil {
			h.Metrics.DecodeAborted()
		}
		records = append(records, decoded...)
		h.Metrics.SetSymbols(identity.Key(), st.symbols.Len())
	}

	if msg.RefreshComplete {
		st.refresh = models.RefreshState{Complete: true}
		h.Logger.Info("Refresh complete for %s (%d symbols)", identity.Key(), st.symbols.Len())
	} else {
		st.refresh.PartialCount++
	}
	return records
}

func (h *SymbolListHandler) processUpdate(msg *models.MResponseMessage, identity models.ItemIdentity) []models.DecodedRecord {
	if msg.Payload == nil || len(msg.Payload.Entries) == 0 {
		h.Logger.Info("Empty update for %s", identity.Key())
		return nil
	}

	st := h.state(identity)
	records, err := h.Maps.Decode(msg.Payload, identity, models.MTypeUpdate, st.symbols)
	if err != nil {
		h.Metrics.DecodeAborted()
	}
	h.Metrics.SetSymbols(identity.Key(), st.symbols.Len())
	return records
}

func (h *SymbolListHandler) processStatus(msg *models.MResponseMessage, identity models.ItemIdentity) []models.DecodedRecord {
	status := msg.Status
	if status == nil {
		status = &models.MRespStatus{}
	}
	h.Logger.Warning("Status for %s: %s", identity.Key(), status.Text)

	r := models.NewItemRecord(identity, models.MTypeStatus)
	r.Set(models.KeyText, status.Text)
	r.Set(models.KeyDataState, string(status.DataState))
	r.Set(models.KeyStreamState, string(status.StreamState))
	r.Set(models.KeyStatusCode, string(status.StatusCode))
	return []models.DecodedRecord{r}
}

// -----------------------------------------------------------------------------

// IsRefreshComplete reports whether every tracked item has completed its
// refresh. With no tracked items it is true.
func (h *SymbolListHandler) IsRefreshComplete() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, st := range h.items {
		if !st.refresh.Complete {
			return false
		}
	}
	return true
}

func (h *SymbolListHandler) IsItemRefreshComplete(itemName string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	st, ok := h.items[h.Registry.Identity(itemName)]
	return !ok || st.refresh.Complete
}

// GetSymbolList returns the symbols of the most recently requested item.
func (h *SymbolListHandler) GetSymbolList() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	st, ok := h.items[h.active]
	if !ok {
		return []string{}
	}
	return st.symbols.Snapshot()
}

func (h *SymbolListHandler) GetItemSymbolList(itemName string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	st, ok := h.items[h.Registry.Identity(itemName)]
	if !ok {
		return []string{}
	}
	return st.symbols.Snapshot()
}

// GetWatchList returns a copy of handle -> identity for open subscriptions.
func (h *SymbolListHandler) GetWatchList() map[models.SubscriptionHandle]models.ItemIdentity {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Registry.Snapshot()
}

// WatchedItems returns the names of open subscriptions, sorted.
func (h *SymbolListHandler) WatchedItems() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := h.Registry.Entries()
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Identity.Name)
	}
	return names
}

// -----------------------------------------------------------------------------

// ItemStatuses describes every tracked or watched item, ordered by key.
func (h *SymbolListHandler) ItemStatuses() []models.MItemStatus {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]models.MItemStatus, 0, len(h.items))
	for identity, st := range h.items {
		handle, watched := h.Registry.FindHandle(identity.Name)
		out = append(out, models.MItemStatus{
			Identity: identity,
			Handle:   handle,
			Watched:  watched,
			Refresh:  st.refresh,
			Symbols:  st.symbols.Len(),
			Active:   identity == h.active,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Identity.Key() < out[j].Identity.Key()
	})
	return out
}
