package grpc_control

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"symbollist-observer/src/config"
	"symbollist-observer/src/dictionary"
	"symbollist-observer/src/handler"
	"symbollist-observer/src/logger"
	"symbollist-observer/src/models"
	"symbollist-observer/src/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const testConfig = `
name: symbollist-observer
host: 127.0.0.1
port: 8080
session:
  url: nats://127.0.0.1:4222
service_name: ELEKTRON
items: []
`

type fixture struct {
	client  *ControlClient
	handler *handler.SymbolListHandler
	sess    *session.LoopbackSession
	cfg     *config.Config
	cfgPath string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.NewLogger(nil, "grpc-test")

	cfg, err := config.Parse([]byte(testConfig))
	require.NoError(t, err)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	sess := session.NewLoopbackSession()
	h := handler.NewSymbolListHandler(sess, make(chan models.MEvent, 16), dictionary.New(), "ELEKTRON", nil, log)

	lis := bufconn.Listen(1 << 20)
	srv := NewServer("127.0.0.1", 0, NewControlService(cfg, h, cfgPath, log), log)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &fixture{client: NewControlClient(conn), handler: h, sess: sess, cfg: cfg, cfgPath: cfgPath}
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// -----------------------------------------------------------------------------

func TestSendRequestPersistsItem(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)

	require.NoError(t, f.client.SendRequest(ctx, "0#.SPX.ELEKTRON"))
	assert.Equal(t, []string{"0#.SPX"}, f.handler.WatchedItems())
	assert.Equal(t, []string{"0#.SPX"}, f.cfg.Items)

	saved, err := config.NewConfig(f.cfgPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"0#.SPX"}, saved.Items)

	watch, err := f.client.GetWatchList(ctx)
	require.NoError(t, err)
	require.Len(t, watch, 1)
	for _, key := range watch {
		assert.Equal(t, "0#.SPX.ELEKTRON", key)
	}
}

func TestSendRequestRejectsEmptyName(t *testing.T) {
	f := newFixture(t)

	err := f.client.SendRequest(testContext(t), "  ")
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestSymbolListAndRefreshState(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)
	require.NoError(t, f.client.SendRequest(ctx, "IBM"))

	done, err := f.client.IsRefreshComplete(ctx, "")
	require.NoError(t, err)
	assert.False(t, done)

	handle, ok := f.sess.HandleFor("IBM")
	require.True(t, ok)
	f.handler.ProcessResponse(&models.MResponseMessage{
		Type:            models.RespRefresh,
		RefreshComplete: true,
		Payload: &models.MMapPayload{Entries: []models.MMapEntry{
			{Action: models.MapAdd, Key: models.MDataBuffer{Type: models.BufferASCII, Value: "IBM.N"}},
			{Action: models.MapAdd, Key: models.MDataBuffer{Type: models.BufferASCII, Value: "IBM.O"}},
		}},
		Status: &models.MRespStatus{DataState: models.DataStateOk, StreamState: models.StreamStateOpen},
	}, handle)

	done, err = f.client.IsRefreshComplete(ctx, "IBM")
	require.NoError(t, err)
	assert.True(t, done)

	symbols, err := f.client.GetSymbolList(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"IBM.N", "IBM.O"}, symbols)

	symbols, err = f.client.GetSymbolList(ctx, "IBM")
	require.NoError(t, err)
	assert.Equal(t, []string{"IBM.N", "IBM.O"}, symbols)

	st, err := f.client.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ELEKTRON", st["service"])
	assert.Equal(t, true, st["refresh_complete"])
	items, ok := st["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "IBM", items[0].(map[string]any)["name"])
}

func TestCloseRequestRemovesItem(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)
	require.NoError(t, f.client.SendRequest(ctx, "IBM"))
	require.NoError(t, f.client.SendRequest(ctx, "MSFT"))

	require.NoError(t, f.client.CloseRequest(ctx, "IBM"))
	assert.Equal(t, []string{"MSFT"}, f.handler.WatchedItems())
	assert.Equal(t, []string{"MSFT"}, f.cfg.Items)

	// Closing an unknown item is not an error.
	require.NoError(t, f.client.CloseRequest(ctx, "NOPE"))

	require.NoError(t, f.client.CloseAllRequest(ctx))
	assert.Empty(t, f.handler.WatchedItems())
	assert.Equal(t, 2, f.sess.Stats().Unregistered)
}
