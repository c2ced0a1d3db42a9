package interfaces

import "symbollist-observer/src/models"

// -----------------------------------------------------------------------------
// IDatabase defines the contract for storage operations.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveRecords appends decoded records and applies their ADD/DELETE
	// actions to the symbol membership table.
	SaveRecords(records []models.DecodedRecord) error

	// -----------------------------------------------------------------------------

	// LoadSymbolList returns the stored members of one symbol list.
	LoadSymbolList(identity models.ItemIdentity) ([]string, error)

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
