package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/elliotchance/orderedmap/v3"
)

// Record keys emitted by the handler.
const (
	KeyRIC         = "RIC"
	KeyService     = "SERVICE"
	KeyMType       = "MTYPE"
	KeyAction      = "ACTION"
	KeyKey         = "KEY"
	KeyText        = "TEXT"
	KeyDataState   = "DATA_STATE"
	KeyStreamState = "STREAM_STATE"
	KeyStatusCode  = "STATUS_CODE"
)

// Message types carried in MTYPE.
const (
	MTypeRefresh = "REFRESH"
	MTypeImage   = "IMAGE"
	MTypeUpdate  = "UPDATE"
	MTypeStatus  = "STATUS"
)

// Map entry actions carried in ACTION.
const (
	ActionAdd    = "ADD"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

// -----------------------------------------------------------------------------
// DecodedRecord is an insertion-ordered key/value record. Values are string,
// int32, int64 or float64.
// -----------------------------------------------------------------------------

type DecodedRecord struct {
	fields *orderedmap.OrderedMap[string, any]
}

// NewRecord creates an empty record
func NewRecord() DecodedRecord {
	return DecodedRecord{fields: orderedmap.NewOrderedMap[string, any]()}
}

// NewItemRecord creates a record pre-filled with RIC, SERVICE and MTYPE.
func NewItemRecord(identity ItemIdentity, mtype string) DecodedRecord {
	r := NewRecord()
	r.Set(KeyRIC, identity.Name)
	r.Set(KeyService, identity.ServiceName)
	r.Set(KeyMType, mtype)
	return r
}

// -----------------------------------------------------------------------------

func (r DecodedRecord) ensure() *orderedmap.OrderedMap[string, any] {
	if r.fields == nil {
		return orderedmap.NewOrderedMap[string, any]()
	}
	return r.fields
}

// Set stores a value. An existing key keeps its position.
func (r DecodedRecord) Set(key string, value any) {
	if r.fields == nil {
		return
	}
	r.fields.Set(key, value)
}

// Get returns the value stored under key.
func (r DecodedRecord) Get(key string) (any, bool) {
	return r.ensure().Get(key)
}

// GetString returns a string value, or "" when absent or not a string.
func (r DecodedRecord) GetString(key string) string {
	v, ok := r.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Len returns the number of keys.
func (r DecodedRecord) Len() int {
	return r.ensure().Len()
}

// Keys returns the keys in insertion order.
func (r DecodedRecord) Keys() []string {
	m := r.ensure()
	keys := make([]string, 0, m.Len())
	for el := m.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Key)
	}
	return keys
}

// Each calls fn for every key in insertion order.
func (r DecodedRecord) Each(fn func(key string, value any)) {
	m := r.ensure()
	for el := m.Front(); el != nil; el = el.Next() {
		fn(el.Key, el.Value)
	}
}

// String renders the record as {'K':'v',...}, quoting strings only.
func (r DecodedRecord) String() string {
	var buf bytes.Buffer
	buf.WriteByte('{')
	i := 0
	r.Each(func(k string, v any) {
		if i > 0 {
			buf.WriteByte(',')
		}
		if s, ok := v.(string); ok {
			fmt.Fprintf(&buf, "'%s':'%s'", k, s)
		} else {
			fmt.Fprintf(&buf, "'%s':%v", k, v)
		}
		i++
	})
	buf.WriteByte('}')
	return buf.String()
}

// -----------------------------------------------------------------------------

// MarshalJSON writes the record as a JSON object preserving key order.
func (r DecodedRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	var err error
	i := 0
	r.Each(func(k string, v any) {
		if err != nil {
			return
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		i++
		kb, kerr := json.Marshal(k)
		if kerr != nil {
			err = kerr
			return
		}
		vb, verr := json.Marshal(v)
		if verr != nil {
			err = verr
			return
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	})
	if err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
