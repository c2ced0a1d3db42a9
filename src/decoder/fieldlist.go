package decoder

import (
	"strconv"
	"strings"

	"symbollist-observer/src/interfaces"
	"symbollist-observer/src/logger"
	"symbollist-observer/src/models"
)

// -----------------------------------------------------------------------------
// FieldListDecoder turns (field ID, value) pairs into named record entries.
// -----------------------------------------------------------------------------

type FieldListDecoder struct {
	Dictionary interfaces.IFieldDictionary
	Logger     *logger.Logger
}

func NewFieldListDecoder(dict interfaces.IFieldDictionary, log *logger.Logger) *FieldListDecoder {
	return &FieldListDecoder{
		Dictionary: dict,
		Logger:     log,
	}
}

// -----------------------------------------------------------------------------

// Decode merges every field into record. Fields missing from the dictionary
// are keyed by their numeric ID and keep their trimmed text. Known fields
// decode by the type actually on the wire; the dictionary type is used only
// when the wire does not carry one.
func (d *FieldListDecoder) Decode(fields []models.MFieldEntry, record models.DecodedRecord) {
	for _, field := range fields {
		def, ok := d.lookup(field.FieldID)
		if !ok {
			record.Set(strconv.Itoa(int(field.FieldID)), strings.TrimSpace(field.Value.Value))
			continue
		}

		actual := field.Value.Type
		if actual == models.BufferUnspecified {
			actual = def.DataType
		}

		value, err := DecodeBuffer(actual, field.Value.Value, def.Enum)
		if err != nil && d.Logger != nil {
			d.Logger.Warning("[FieldListDecoder] %s (FID %d): %v", def.Name, field.FieldID, err)
		}
		record.Set(def.Name, value.Interface())
	}
}

func (d *FieldListDecoder) lookup(fid int16) (*models.MFieldDef, bool) {
	if d.Dictionary == nil {
		return nil, false
	}
	def, ok := d.Dictionary.Lookup(fid)
	if !ok || def == nil {
		return nil, false
	}
	return def, true
}
