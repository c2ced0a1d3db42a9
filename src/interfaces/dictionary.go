package interfaces

import "symbollist-observer/src/models"

// IFieldDictionary resolves numeric field IDs.
type IFieldDictionary interface {
	// Lookup returns the definition of a field, or false when unknown.
	Lookup(fid int16) (*models.MFieldDef, bool)
}
