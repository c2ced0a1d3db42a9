package handler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"symbollist-observer/src/dictionary"
	"symbollist-observer/src/logger"
	"symbollist-observer/src/metrics"
	"symbollist-observer/src/models"
	"symbollist-observer/src/session"

	"github.com/op/go-logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const service = "ELEKTRON"

func newTestHandler(t *testing.T) (*SymbolListHandler, *session.LoopbackSession, chan models.MEvent) {
	t.Helper()
	dict := dictionary.New()
	dict.Add(models.MFieldDef{FID: 3, Name: "DSPLY_NAME", DataType: models.BufferRMTES})
	dict.Add(models.MFieldDef{FID: 6, Name: "TRDPRC_1", DataType: models.BufferDouble})

	sess := session.NewLoopbackSession()
	queue := make(chan models.MEvent, 16)
	h := NewSymbolListHandler(sess, queue, dict, service, metrics.New(), logger.NewLogger(nil, "SymbolListHandler"))
	return h, sess, queue
}

func handleOf(t *testing.T, sess *session.LoopbackSession, item string) models.SubscriptionHandle {
	t.Helper()
	handle, ok := sess.HandleFor(item)
	require.True(t, ok, "no handle for %s", item)
	return handle
}

func add(key string) models.MMapEntry {
	return models.MMapEntry{Action: models.MapAdd, Key: models.MDataBuffer{Type: models.BufferASCII, Value: key}}
}

func del(key string) models.MMapEntry {
	return models.MMapEntry{Action: models.MapDelete, Key: models.MDataBuffer{Type: models.BufferASCII, Value: key}}
}

func refresh(complete bool, entries ...models.MMapEntry) *models.MResponseMessage {
	return &models.MResponseMessage{
		Type:            models.RespRefresh,
		RefreshComplete: complete,
		Payload:         &models.MMapPayload{Entries: entries},
		Status:          &models.MRespStatus{DataState: models.DataStateOk, StreamState: models.StreamStateOpen},
	}
}

func update(entries ...models.MMapEntry) *models.MResponseMessage {
	return &models.MResponseMessage{Type: models.RespUpdate, Payload: &models.MMapPayload{Entries: entries}}
}

func mtypes(records []models.DecodedRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.GetString(models.KeyMType)
	}
	return out
}

// -----------------------------------------------------------------------------

func TestEndToEndSingleRefresh(t *testing.T) {
	h, sess, _ := newTestHandler(t)
	require.NoError(t, h.SendRequest("IBM"))
	assert.False(t, h.IsRefreshComplete())

	records := h.ProcessResponse(refresh(true, add("IBM.N"), add("IBM.O")), handleOf(t, sess, "IBM"))

	require.Len(t, records, 3)
	assert.Equal(t, []string{"REFRESH", "IMAGE", "IMAGE"}, mtypes(records))
	assert.Equal(t, []string{"RIC", "SERVICE", "MTYPE"}, records[0].Keys())
	assert.Equal(t, "IBM", records[0].GetString(models.KeyRIC))
	assert.Equal(t, service, records[0].GetString(models.KeyService))
	assert.Equal(t, "ADD", records[1].GetString(models.KeyAction))
	assert.Equal(t, "IBM.N", records[1].GetString(models.KeyKey))
	assert.Equal(t, "IBM.O", records[2].GetString(models.KeyKey))

	assert.True(t, h.IsRefreshComplete())
	assert.Equal(t, []string{"IBM.N", "IBM.O"}, h.GetSymbolList())
}

func TestMultiPartRefreshEmitsOneMarker(t *testing.T) {
	h, sess, _ := newTestHandler(t)
	require.NoError(t, h.SendRequest("0#.SPX"))
	handle := handleOf(t, sess, "0#.SPX")

	const parts = 4
	markers := 0
	for i := 0; i < parts; i++ {
		last := i == parts-1
		records := h.ProcessResponse(refresh(last, add(string(rune('A'+i)))), handle)
		for _, r := range records {
			if r.GetString(models.KeyMType) == models.MTypeRefresh {
				markers++
			}
		}
		if !last {
			assert.False(t, h.IsRefreshComplete(), "part %d", i)
			assert.False(t, h.IsItemRefreshComplete("0#.SPX"))
		}
	}

	assert.Equal(t, 1, markers)
	assert.True(t, h.IsRefreshComplete())
	assert.Equal(t, []string{"A", "B", "C", "D"}, h.GetSymbolList())

	// A later refresh cycle starts with a fresh marker.
	records := h.ProcessResponse(refresh(true, add("E")), handle)
	assert.Equal(t, []string{"REFRESH", "IMAGE"}, mtypes(records))
}

func TestEmptyRefreshStillCompletes(t *testing.T) {
	h, sess, _ := newTestHandler(t)
	require.NoError(t, h.SendRequest("IBM"))

	msg := &models.MResponseMessage{Type: models.RespRefresh, RefreshComplete: true}
	records := h.ProcessResponse(msg, handleOf(t, sess, "IBM"))
	assert.Equal(t, []string{"REFRESH"}, mtypes(records))
	assert.True(t, h.IsRefreshComplete())
}

func TestUpdatesMaintainSymbols(t *testing.T) {
	h, sess, _ := newTestHandler(t)
	require.NoError(t, h.SendRequest("IBM"))
	handle := handleOf(t, sess, "IBM")
	h.ProcessResponse(refresh(true, add("IBM.N"), add("IBM.O")), handle)

	withField := add("IBM.L")
	withField.Data = &models.MEntryData{DataType: models.DataFieldList, Fields: []models.MFieldEntry{
		{FieldID: 6, Value: models.MDataBuffer{Type: models.BufferReal32, Value: "1.5"}},
	}}
	records := h.ProcessResponse(update(del("IBM.N"), withField, del("NOT.THERE")), handle)

	require.Len(t, records, 3)
	assert.Equal(t, []string{"UPDATE", "UPDATE", "UPDATE"}, mtypes(records))
	v, ok := records[1].Get("TRDPRC_1")
	require.True(t, ok)
	assert.Equal(t, 1.5, v)
	assert.Equal(t, []string{"IBM.O", "IBM.L"}, h.GetSymbolList())

	assert.Empty(t, h.ProcessResponse(&models.MResponseMessage{Type: models.RespUpdate}, handle))
}

func TestUpdateTypeMismatchAbortsMessageOnly(t *testing.T) {
	h, sess, _ := newTestHandler(t)
	require.NoError(t, h.SendRequest("IBM"))
	handle := handleOf(t, sess, "IBM")

	bad := models.MMapEntry{
		Action: models.MapUpdate,
		Key:    models.MDataBuffer{Type: models.BufferASCII, Value: "X"},
		Data:   &models.MEntryData{DataType: models.DataMap},
	}
	records := h.ProcessResponse(update(add("A"), bad, add("B")), handle)
	require.Len(t, records, 1)
	assert.Equal(t, "A", records[0].GetString(models.KeyKey))

	records = h.ProcessResponse(update(add("C")), handle)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"A", "C"}, h.GetSymbolList())
}

// -----------------------------------------------------------------------------

func TestSendRequestTwiceReissues(t *testing.T) {
	h, sess, _ := newTestHandler(t)
	require.NoError(t, h.SendRequest("IBM"))
	h.ProcessResponse(refresh(true, add("IBM.N")), handleOf(t, sess, "IBM"))
	require.NoError(t, h.SendRequest("IBM"))

	stats := sess.Stats()
	assert.Equal(t, 1, stats.Registered)
	assert.Equal(t, 1, stats.Reissued)
	assert.Len(t, h.GetWatchList(), 1)

	assert.False(t, h.IsRefreshComplete())
	assert.Empty(t, h.GetSymbolList())
}

type failingSession struct{ *session.LoopbackSession }

func (failingSession) Register(chan<- models.MEvent, models.MInterestSpec) (models.SubscriptionHandle, error) {
	return "", errors.New("not connected")
}

func TestSendRequestFailureLeavesStateUnchanged(t *testing.T) {
	h := NewSymbolListHandler(failingSession{session.NewLoopbackSession()}, make(chan models.MEvent, 1),
		dictionary.New(), service, nil, logger.NewLogger(nil, "SymbolListHandler"))

	assert.Error(t, h.SendRequest("IBM"))
	assert.Empty(t, h.GetWatchList())
	assert.True(t, h.IsRefreshComplete())
	assert.Empty(t, h.ItemStatuses())
}

func TestCloseUnknownItemIsQuiet(t *testing.T) {
	h, sess, _ := newTestHandler(t)
	backend := logging.NewMemoryBackend(64)
	t.Cleanup(logger.UseBackend(backend))

	assert.NotPanics(t, func() { h.CloseRequest("NEVER") })
	assert.Equal(t, 0, sess.Stats().Unregistered)

	for n := backend.Head(); n != nil; n = n.Next() {
		assert.NotEqual(t, logging.ERROR, n.Record.Level, n.Record.Message())
		assert.NotEqual(t, logging.CRITICAL, n.Record.Level, n.Record.Message())
	}
}

func TestPartialRefreshAfterCloseKeepsComplete(t *testing.T) {
	h, sess, _ := newTestHandler(t)
	require.NoError(t, h.SendRequest("A"))
	handle := handleOf(t, sess, "A")
	h.ProcessResponse(refresh(true, add("A.N")), handle)

	h.CloseRequest("A")
	require.True(t, h.IsRefreshComplete())

	// A late partial part on the old handle must not reopen the cycle.
	records := h.ProcessResponse(refresh(false, add("A.O")), handle)
	assert.NotEmpty(t, records)
	assert.True(t, h.IsRefreshComplete())
	assert.True(t, h.IsItemRefreshComplete("A"))
	assert.Empty(t, h.GetWatchList())
}

func TestCloseRequestAndCloseAll(t *testing.T) {
	h, sess, _ := newTestHandler(t)
	require.NoError(t, h.SendRequest("IBM"))
	require.NoError(t, h.SendRequest("MSFT"))
	assert.Len(t, h.GetWatchList(), 2)
	assert.Equal(t, []string{"IBM", "MSFT"}, h.WatchedItems())

	h.CloseRequest("IBM")
	assert.Len(t, h.GetWatchList(), 1)
	assert.True(t, h.IsItemRefreshComplete("IBM"))
	assert.False(t, h.IsRefreshComplete())

	h.CloseAllRequest()
	assert.Empty(t, h.GetWatchList())
	assert.True(t, h.IsRefreshComplete())
	assert.Equal(t, 2, sess.Stats().Unregistered)
}

// -----------------------------------------------------------------------------

func TestStatusClosedRemovesItem(t *testing.T) {
	h, sess, _ := newTestHandler(t)
	require.NoError(t, h.SendRequest("AAA"))
	handle := handleOf(t, sess, "AAA")

	msg := &models.MResponseMessage{
		Type: models.RespStatus,
		Status: &models.MRespStatus{
			Text:        "Item closed",
			DataState:   models.DataStateSuspect,
			StreamState: models.StreamStateClosed,
			StatusCode:  models.StatusCodeNotFound,
		},
	}
	records := h.ProcessResponse(msg, handle)

	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, []string{"RIC", "SERVICE", "MTYPE", "TEXT", "DATA_STATE", "STREAM_STATE", "STATUS_CODE"}, r.Keys())
	assert.Equal(t, "STATUS", r.GetString(models.KeyMType))
	assert.Equal(t, "Item closed", r.GetString(models.KeyText))
	assert.Equal(t, "Suspect", r.GetString(models.KeyDataState))
	assert.Equal(t, "Closed", r.GetString(models.KeyStreamState))
	assert.Equal(t, "NotFound", r.GetString(models.KeyStatusCode))

	assert.NotContains(t, h.GetWatchList(), handle)
	assert.Empty(t, h.WatchedItems())
	assert.True(t, h.IsRefreshComplete())
}

func TestOpenOkStatusKeepsItem(t *testing.T) {
	h, sess, _ := newTestHandler(t)
	require.NoError(t, h.SendRequest("AAA"))
	handle := handleOf(t, sess, "AAA")

	msg := &models.MResponseMessage{
		Type:   models.RespStatus,
		Status: &models.MRespStatus{DataState: models.DataStateOk, StreamState: models.StreamStateOpen},
	}
	h.ProcessResponse(msg, handle)
	assert.Contains(t, h.GetWatchList(), handle)
}

func TestSuspectRefreshTearsDown(t *testing.T) {
	h, sess, _ := newTestHandler(t)
	require.NoError(t, h.SendRequest("AAA"))
	handle := handleOf(t, sess, "AAA")

	msg := refresh(false, add("X"))
	msg.Status = &models.MRespStatus{DataState: models.DataStateSuspect, StreamState: models.StreamStateOpen}
	records := h.ProcessResponse(msg, handle)

	assert.Equal(t, []string{"REFRESH", "IMAGE"}, mtypes(records))
	assert.Empty(t, h.GetWatchList())
	assert.True(t, h.IsItemRefreshComplete("AAA"))
	// The cache survives the close until the next request.
	assert.Equal(t, []string{"X"}, h.GetItemSymbolList("AAA"))
}

func TestUnknownHandleUsesResponseName(t *testing.T) {
	h, _, _ := newTestHandler(t)
	msg := &models.MResponseMessage{
		Type:   models.RespStatus,
		Name:   "GHOST",
		Status: &models.MRespStatus{Text: "hello", DataState: models.DataStateOk, StreamState: models.StreamStateOpen},
	}
	records := h.ProcessResponse(msg, "nope")
	require.Len(t, records, 1)
	assert.Equal(t, "GHOST", records[0].GetString(models.KeyRIC))
	assert.Equal(t, service, records[0].GetString(models.KeyService))
}

// -----------------------------------------------------------------------------

func TestPerItemRefreshTracking(t *testing.T) {
	h, sess, _ := newTestHandler(t)
	require.NoError(t, h.SendRequest("A"))
	require.NoError(t, h.SendRequest("B"))

	h.ProcessResponse(refresh(true, add("a1")), handleOf(t, sess, "A"))
	assert.True(t, h.IsItemRefreshComplete("A"))
	assert.False(t, h.IsItemRefreshComplete("B"))
	assert.False(t, h.IsRefreshComplete())

	h.ProcessResponse(refresh(true, add("b1"), add("b2")), handleOf(t, sess, "B"))
	assert.True(t, h.IsRefreshComplete())

	assert.Equal(t, []string{"b1", "b2"}, h.GetSymbolList())
	assert.Equal(t, []string{"a1"}, h.GetItemSymbolList("A"))
	assert.Empty(t, h.GetItemSymbolList("Z"))

	statuses := h.ItemStatuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, "A", statuses[0].Identity.Name)
	assert.False(t, statuses[0].Active)
	assert.True(t, statuses[1].Active)
	assert.Equal(t, 2, statuses[1].Symbols)
	assert.True(t, statuses[1].Watched)
}

func TestGetWatchListIsACopy(t *testing.T) {
	h, _, _ := newTestHandler(t)
	require.NoError(t, h.SendRequest("IBM"))

	wl := h.GetWatchList()
	for k := range wl {
		delete(wl, k)
	}
	assert.Len(t, h.GetWatchList(), 1)
}

// -----------------------------------------------------------------------------

type captureSink struct {
	mu      sync.Mutex
	records []models.DecodedRecord
}

func (c *captureSink) Name() string { return "capture" }
func (c *captureSink) Close() error { return nil }
func (c *captureSink) Publish(records []models.DecodedRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, records...)
	return nil
}
func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

func TestRunnerDrainsQueue(t *testing.T) {
	h, sess, queue := newTestHandler(t)
	sink := &captureSink{}
	runner := NewRunner(h, sink, logger.NewLogger(nil, "Runner"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx, queue) }()

	require.NoError(t, h.SendRequest("IBM"))
	require.NoError(t, sess.DeliverTo("IBM", refresh(true, add("IBM.N"), add("IBM.O"))))

	assert.Eventually(t, func() bool { return sink.count() == 3 }, time.Second, 5*time.Millisecond)
	assert.True(t, h.IsRefreshComplete())

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, int64(3), runner.Published())
}
