package decoder

import (
	"fmt"
	"strings"

	"symbollist-observer/src/helpers"
	"symbollist-observer/src/logger"
	"symbollist-observer/src/models"
)

// -----------------------------------------------------------------------------
// MapDecoder walks the keyed entries of a symbol list payload.
// -----------------------------------------------------------------------------

type MapDecoder struct {
	Fields *FieldListDecoder
	Logger *logger.Logger
}

func NewMapDecoder(fields *FieldListDecoder, log *logger.Logger) *MapDecoder {
	return &MapDecoder{
		Fields: fields,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

// Decode produces one record per accepted entry, in entry order, and applies
// ADD/DELETE actions to symbols. Entries with an empty or unsupported key are
// skipped. An UPDATE entry carrying anything other than a field list stops
// the walk: the records built so far are returned with a DecodeError.
func (d *MapDecoder) Decode(
	payload *models.MMapPayload,
	identity models.ItemIdentity,
	mtype string,
	symbols *SymbolSet,
) ([]models.DecodedRecord, error) {
	if payload == nil || len(payload.Entries) == 0 {
		return nil, nil
	}

	records := make([]models.DecodedRecord, 0, len(payload.Entries))

	for i, entry := range payload.Entries {
		key, ok := d.entryKey(entry.Key)
		if !ok {
			continue
		}

		var record models.DecodedRecord
		switch entry.Action {
		case models.MapAdd:
			symbols.Add(key)
			record = entryRecord(identity, mtype, models.ActionAdd, key)
			if entry.Data.IsFieldList() {
				d.Fields.Decode(entry.Data.Fields, record)
			}

		case models.MapUpdate:
			if entry.Data != nil && entry.Data.DataType != models.DataNoData && entry.Data.DataType != models.DataFieldList {
				err := helpers.NewDecodeError(
					fmt.Sprintf("entry %d (%s): expected data type %s", i, key, models.DataFieldList),
					fmt.Errorf("got %s", entry.Data.DataType))
				d.Logger.Error("[MapDecoder] %v", err)
				return records, err
			}
			record = entryRecord(identity, mtype, models.ActionUpdate, key)
			if entry.Data.IsFieldList() {
				d.Fields.Decode(entry.Data.Fields, record)
			}

		case models.MapDelete:
			symbols.Remove(key)
			record = entryRecord(identity, mtype, models.ActionDelete, key)

		default:
			d.Logger.Error("[MapDecoder] Unknown map entry action '%s' for key %s.", entry.Action, key)
			continue
		}

		records = append(records, record)
	}

	return records, nil
}

// -----------------------------------------------------------------------------

func (d *MapDecoder) entryKey(key models.MDataBuffer) (string, bool) {
	if key.Blank || strings.TrimSpace(key.Value) == "" {
		d.Logger.Error("[MapDecoder] KeyData is empty.")
		return "", false
	}
	if !IsKeyType(key.Type) {
		d.Logger.Error("[MapDecoder] KeyData type '%s' not supported.", key.Type)
		return "", false
	}
	return key.Value, true
}

func entryRecord(identity models.ItemIdentity, mtype, action, key string) models.DecodedRecord {
	r := models.NewRecord()
	r.Set(models.KeyService, identity.ServiceName)
	r.Set(models.KeyRIC, identity.Name)
	r.Set(models.KeyMType, mtype)
	r.Set(models.KeyAction, action)
	r.Set(models.KeyKey, key)
	return r
}
