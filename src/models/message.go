package models

// -----------------------------------------------------------------------------
// Response messages as delivered by the session. The session has already
// parsed the transport frame into this map / field-list shape; the handler
// only decodes it.
// -----------------------------------------------------------------------------

type RespType string

const (
	RespRefresh RespType = "REFRESH"
	RespUpdate  RespType = "UPDATE"
	RespStatus  RespType = "STATUS"
)

// BufferType is the encoded type of a single primitive value.
type BufferType string

const (
	BufferUnspecified BufferType = ""
	BufferInt32       BufferType = "INT32"
	BufferUInt32      BufferType = "UINT32"
	BufferInt64       BufferType = "INT64"
	BufferUInt64      BufferType = "UINT64"
	BufferFloat       BufferType = "FLOAT"
	BufferDouble      BufferType = "DOUBLE"
	BufferReal32      BufferType = "REAL32"
	BufferReal64      BufferType = "REAL64"
	BufferDateTime    BufferType = "DATETIME"
	BufferEnumeration BufferType = "ENUM"
	BufferBuffer      BufferType = "BUFFER"
	BufferASCII       BufferType = "ASCII_STRING"
	BufferUTF8        BufferType = "UTF8_STRING"
	BufferRMTES       BufferType = "RMTES_STRING"
	BufferNoData      BufferType = "NO_DATA"
	BufferUnknown     BufferType = "UNKNOWN"
)

// DataType is the container type of a map entry payload.
type DataType string

const (
	DataFieldList   DataType = "FIELD_LIST"
	DataElementList DataType = "ELEMENT_LIST"
	DataMap         DataType = "MAP"
	DataNoData      DataType = "NO_DATA"
)

type MapAction string

const (
	MapAdd    MapAction = "ADD"
	MapUpdate MapAction = "UPDATE"
	MapDelete MapAction = "DELETE"
)

// -----------------------------------------------------------------------------

// MDataBuffer is a primitive value in its textual form.
type MDataBuffer struct {
	Type  BufferType `json:"type,omitempty"`
	Value string     `json:"value"`
	Blank bool       `json:"blank,omitempty"`
}

// MFieldEntry is one (field ID, value) pair of a field list.
type MFieldEntry struct {
	FieldID int16       `json:"fid"`
	Value   MDataBuffer `json:"value"`
}

// MEntryData is the payload embedded in a map entry.
type MEntryData struct {
	DataType DataType      `json:"data_type"`
	Blank    bool          `json:"blank,omitempty"`
	Fields   []MFieldEntry `json:"fields,omitempty"`
}

// IsFieldList reports whether the payload is a non-blank field list.
func (d *MEntryData) IsFieldList() bool {
	return d != nil && d.DataType == DataFieldList && !d.Blank
}

// MMapEntry is one keyed entry of a symbol list map.
type MMapEntry struct {
	Action MapAction   `json:"action"`
	Key    MDataBuffer `json:"key"`
	Data   *MEntryData `json:"data,omitempty"`
}

// MMapPayload is the keyed collection carried by refreshes and updates.
type MMapPayload struct {
	Entries []MMapEntry `json:"entries,omitempty"`
}

// -----------------------------------------------------------------------------

type DataState string

const (
	DataStateUnspecified DataState = "Unspecified"
	DataStateOk          DataState = "Ok"
	DataStateSuspect     DataState = "Suspect"
)

type StreamState string

const (
	StreamStateUnspecified   StreamState = "Unspecified"
	StreamStateOpen          StreamState = "Open"
	StreamStateNonStreaming  StreamState = "NonStreaming"
	StreamStateClosedRecover StreamState = "ClosedRecover"
	StreamStateClosed        StreamState = "Closed"
	StreamStateRedirected    StreamState = "Redirected"
)

type StatusCode string

const (
	StatusCodeNone          StatusCode = "None"
	StatusCodeNotFound      StatusCode = "NotFound"
	StatusCodeTimeout       StatusCode = "Timeout"
	StatusCodeNotAuthorized StatusCode = "NotAuthorized"
	StatusCodeInvalidArg    StatusCode = "InvalidArgument"
	StatusCodeUsageError    StatusCode = "UsageError"
	StatusCodePreempted     StatusCode = "Preempted"
	StatusCodeAlreadyOpen   StatusCode = "AlreadyOpen"
	StatusCodeSourceUnknown StatusCode = "SourceUnknown"
)

// MRespStatus is the status detail attached to a response.
type MRespStatus struct {
	Text        string      `json:"text"`
	DataState   DataState   `json:"data_state"`
	StreamState StreamState `json:"stream_state"`
	StatusCode  StatusCode  `json:"status_code"`
}

// IsTerminal reports whether the status should tear the subscription down.
func (s *MRespStatus) IsTerminal() bool {
	if s == nil {
		return false
	}
	return s.StreamState == StreamStateClosed || s.DataState != DataStateOk
}

// -----------------------------------------------------------------------------

// MResponseMessage is one Refresh, Update or Status response.
type MResponseMessage struct {
	Type            RespType     `json:"type"`
	Name            string       `json:"name,omitempty"`
	ServiceName     string       `json:"service,omitempty"`
	RefreshComplete bool         `json:"refresh_complete,omitempty"`
	Payload         *MMapPayload `json:"payload,omitempty"`
	Status          *MRespStatus `json:"status,omitempty"`
}

// -----------------------------------------------------------------------------

// InteractionFlags select request behaviour.
type InteractionFlags uint8

const (
	InitialImage InteractionFlags = 1 << iota
	InterestAfterRefresh
)

const (
	NameTypeRIC      = "RIC"
	DomainSymbolList = "SYMBOL_LIST"
)

// MInterestSpec describes a subscription to the session.
type MInterestSpec struct {
	Name        string           `json:"name"`
	ServiceName string           `json:"service"`
	NameType    string           `json:"name_type"`
	Domain      string           `json:"domain"`
	Interaction InteractionFlags `json:"interaction"`
}

// NewSymbolListInterest builds the interest used for every symbol list request.
func NewSymbolListInterest(identity ItemIdentity) MInterestSpec {
	return MInterestSpec{
		Name:        identity.Name,
		ServiceName: identity.ServiceName,
		NameType:    NameTypeRIC,
		Domain:      DomainSymbolList,
		Interaction: InitialImage | InterestAfterRefresh,
	}
}

// MEvent is a response queued for the handler.
type MEvent struct {
	Handle  SubscriptionHandle
	Message *MResponseMessage
}

// -----------------------------------------------------------------------------
// Field dictionary definitions
// -----------------------------------------------------------------------------

// MEnumTable maps an enumerated value to its display string.
type MEnumTable map[int]string

// MFieldDef is a field dictionary entry.
type MFieldDef struct {
	FID      int16
	Name     string
	DataType BufferType
	Enum     MEnumTable
}

// -----------------------------------------------------------------------------

// SessionAction is the verb of a request published to the upstream bridge.
type SessionAction string

const (
	SessionOpen    SessionAction = "OPEN"
	SessionReissue SessionAction = "REISSUE"
	SessionClose   SessionAction = "CLOSE"
)

// MSessionRequest is published to the bridge for every register, reissue and
// unregister. Responses are expected on ReplySubject.
type MSessionRequest struct {
	Handle       SubscriptionHandle `json:"handle"`
	Action       SessionAction      `json:"action"`
	Interest     *MInterestSpec     `json:"interest,omitempty"`
	ReplySubject string             `json:"reply_subject,omitempty"`
}
