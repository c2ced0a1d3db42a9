package interfaces

import "symbollist-observer/src/models"

// -----------------------------------------------------------------------------
// IRecordSink consumes the decoded records produced for each response.
// -----------------------------------------------------------------------------

type IRecordSink interface {
	// Name returns the unique identifier of the sink
	Name() string

	// -----------------------------------------------------------------------------

	// Publish delivers records in the order they were decoded.
	Publish(records []models.DecodedRecord) error

	// -----------------------------------------------------------------------------

	// Close releases the sink's resources.
	Close() error
}
