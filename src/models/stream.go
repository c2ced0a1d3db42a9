package models

// Stream message types sent to websocket clients.
const (
	StreamHistory = "HISTORY"
	StreamRecords = "RECORDS"
)

// MStreamMessage is one frame pushed to websocket clients.
type MStreamMessage struct {
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Records   []DecodedRecord `json:"records"`
}

// MStreamCommand is sent by websocket clients to narrow the stream to some
// items. An empty item list receives everything.
type MStreamCommand struct {
	Command string   `json:"command"`
	Items   []string `json:"items"`
}
