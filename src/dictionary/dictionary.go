package dictionary

import (
	"fmt"
	"os"
	"sync"

	"symbollist-observer/src/logger"
	"symbollist-observer/src/models"
)

// -----------------------------------------------------------------------------
// FieldDictionary is an in-memory RDM field dictionary. It is filled once at
// start-up and read concurrently afterwards.
// -----------------------------------------------------------------------------

type FieldDictionary struct {
	fields map[int16]*models.MFieldDef
	byName map[string]int16
	mu     sync.RWMutex
}

// New creates an empty dictionary
func New() *FieldDictionary {
	return &FieldDictionary{
		fields: make(map[int16]*models.MFieldDef),
		byName: make(map[string]int16),
	}
}

// -----------------------------------------------------------------------------

// Add registers or replaces a field definition.
func (d *FieldDictionary) Add(def models.MFieldDef) {
	d.mu.Lock()
	defer d.mu.Unlock()
	stored := def
	d.fields[def.FID] = &stored
	d.byName[def.Name] = def.FID
}

// -----------------------------------------------------------------------------

// SetEnum attaches an enumeration table to an already known field.
func (d *FieldDictionary) SetEnum(fid int16, table models.MEnumTable) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	def, ok := d.fields[fid]
	if !ok {
		return false
	}
	def.Enum = table
	return true
}

// -----------------------------------------------------------------------------

// Lookup returns the definition of a field, or false when unknown.
func (d *FieldDictionary) Lookup(fid int16) (*models.MFieldDef, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	def, ok := d.fields[fid]
	return def, ok
}

// LookupName resolves a field acronym to its ID.
func (d *FieldDictionary) LookupName(name string) (int16, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fid, ok := d.byName[name]
	return fid, ok
}

// Len returns the number of fields.
func (d *FieldDictionary) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.fields)
}

// -----------------------------------------------------------------------------

// Load reads an RDMFieldDictionary file and, when enumPath is not empty, an
// enumtype.def file, and returns the combined dictionary.
func Load(fieldPath, enumPath string, log *logger.Logger) (*FieldDictionary, error) {
	d := New()

	f, err := os.Open(fieldPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open field dictionary '%s': %w", fieldPath, err)
	}
	defer f.Close()

	if err := d.ReadFields(f); err != nil {
		return nil, fmt.Errorf("failed to parse field dictionary '%s': %w", fieldPath, err)
	}
	if log != nil {
		log.Info("Loaded %d field definitions from %s", d.Len(), fieldPath)
	}

	if enumPath == "" {
		return d, nil
	}

	ef, err := os.Open(enumPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open enum dictionary '%s': %w", enumPath, err)
	}
	defer ef.Close()

	tables, err := ReadEnumTypes(ef)
	if err != nil {
		return nil, fmt.Errorf("failed to parse enum dictionary '%s': %w", enumPath, err)
	}

	attached := 0
	for fid, table := range tables {
		if d.SetEnum(fid, table) {
			attached++
		}
	}
	if log != nil {
		log.Info("Attached %d/%d enum tables from %s", attached, len(tables), enumPath)
	}
	return d, nil
}
