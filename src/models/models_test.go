package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseItemKey(t *testing.T) {
	tests := []struct {
		key  string
		want ItemIdentity
	}{
		{"IBM.ELEKTRON", ItemIdentity{Name: "IBM", ServiceName: "ELEKTRON"}},
		{"0#.SPX.ELEKTRON", ItemIdentity{Name: "0#.SPX", ServiceName: "ELEKTRON"}},
		{"IBM", ItemIdentity{Name: "IBM"}},
		{"IBM.", ItemIdentity{Name: "IBM"}},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseItemKey(tt.key))
		})
	}

	id := ItemIdentity{Name: "0#.SPX", ServiceName: "ELEKTRON"}
	assert.Equal(t, id, ParseItemKey(id.Key()))
}

func TestResolveItemName(t *testing.T) {
	assert.Equal(t, "IBM", ResolveItemName("IBM.ELEKTRON", "ELEKTRON"))
	assert.Equal(t, "0#.SPX", ResolveItemName("0#.SPX.ELEKTRON", "ELEKTRON"))
	// Only the configured service is stripped.
	assert.Equal(t, "0#.SPX", ResolveItemName("0#.SPX", "ELEKTRON"))
	assert.Equal(t, "IBM.N", ResolveItemName("IBM.N", "ELEKTRON"))
	assert.Equal(t, "IBM", ResolveItemName("IBM", "ELEKTRON"))
}

func TestRecordKeepsInsertionOrder(t *testing.T) {
	r := NewItemRecord(ItemIdentity{Name: "IBM", ServiceName: "ELEKTRON"}, MTypeImage)
	r.Set(KeyAction, ActionAdd)
	r.Set(KeyKey, "IBM.N")
	r.Set("TRDPRC_1", 101.25)
	r.Set("BID_SIZE", int32(7))
	r.Set(KeyMType, MTypeUpdate)

	assert.Equal(t, []string{"RIC", "SERVICE", "MTYPE", "ACTION", "KEY", "TRDPRC_1", "BID_SIZE"}, r.Keys())
	assert.Equal(t, MTypeUpdate, r.GetString(KeyMType))
	assert.Equal(t, "", r.GetString("TRDPRC_1"))
	assert.Equal(t,
		"{'RIC':'IBM','SERVICE':'ELEKTRON','MTYPE':'UPDATE','ACTION':'ADD','KEY':'IBM.N','TRDPRC_1':101.25,'BID_SIZE':7}",
		r.String())

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t,
		`{"RIC":"IBM","SERVICE":"ELEKTRON","MTYPE":"UPDATE","ACTION":"ADD","KEY":"IBM.N","TRDPRC_1":101.25,"BID_SIZE":7}`,
		string(b))
}

func TestZeroRecordIsEmpty(t *testing.T) {
	var r DecodedRecord
	r.Set("X", "y")
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, "{}", r.String())

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(b))
}

func TestStatusIsTerminal(t *testing.T) {
	var none *MRespStatus
	assert.False(t, none.IsTerminal())
	assert.False(t, (&MRespStatus{DataState: DataStateOk, StreamState: StreamStateOpen}).IsTerminal())
	assert.True(t, (&MRespStatus{DataState: DataStateOk, StreamState: StreamStateClosed}).IsTerminal())
	assert.True(t, (&MRespStatus{DataState: DataStateSuspect, StreamState: StreamStateOpen}).IsTerminal())
}

func TestSymbolListInterest(t *testing.T) {
	in := NewSymbolListInterest(ItemIdentity{Name: "0#.SPX", ServiceName: "ELEKTRON"})
	assert.Equal(t, NameTypeRIC, in.NameType)
	assert.Equal(t, DomainSymbolList, in.Domain)
	assert.Equal(t, InitialImage|InterestAfterRefresh, in.Interaction)
}
