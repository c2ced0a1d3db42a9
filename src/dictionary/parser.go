package dictionary

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"symbollist-observer/src/models"
)

// RWF type column of RDMFieldDictionary.
var rwfTypes = map[string]models.BufferType{
	"INT32":        models.BufferInt32,
	"UINT32":       models.BufferUInt32,
	"INT64":        models.BufferInt64,
	"UINT64":       models.BufferUInt64,
	"INT":          models.BufferInt64,
	"UINT":         models.BufferUInt64,
	"REAL32":       models.BufferReal32,
	"REAL64":       models.BufferReal64,
	"REAL":         models.BufferReal64,
	"FLOAT":        models.BufferFloat,
	"DOUBLE":       models.BufferDouble,
	"ENUM":         models.BufferEnumeration,
	"ASCII_STRING": models.BufferASCII,
	"UTF8_STRING":  models.BufferUTF8,
	"RMTES_STRING": models.BufferRMTES,
	"BUFFER":       models.BufferBuffer,
	"DATE":         models.BufferDateTime,
	"TIME":         models.BufferDateTime,
	"DATETIME":     models.BufferDateTime,
}

// Marketfeed FIELD_TYPE column, used when the RWF columns are missing.
var mfTypes = map[string]models.BufferType{
	"INTEGER":      models.BufferInt64,
	"PRICE":        models.BufferReal64,
	"ALPHANUMERIC": models.BufferASCII,
	"ENUMERATED":   models.BufferEnumeration,
	"DATE":         models.BufferDateTime,
	"TIME":         models.BufferDateTime,
	"TIME_SECONDS": models.BufferDateTime,
	"BINARY":       models.BufferBuffer,
}

// -----------------------------------------------------------------------------

// tokenize splits a dictionary line on whitespace, keeping quoted strings
// whole and dropping parenthesised length annotations such as "( 3 )".
func tokenize(line string) []string {
	var tokens []string
	var cur strings.Builder
	inQuote := false
	depth := 0

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for _, r := range line {
		switch {
		case inQuote:
			if r == '"' {
				inQuote = false
				tokens = append(tokens, cur.String())
				cur.Reset()
				continue
			}
			cur.WriteRune(r)
		case r == '"':
			flush()
			inQuote = true
		case r == '(':
			flush()
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
			cur.Reset()
		case depth > 0:
			// inside a length annotation
		case r == ' ' || r == '\t':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

func isComment(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed == "" || strings.HasPrefix(trimmed, "!")
}

// -----------------------------------------------------------------------------

// ReadFields parses RDMFieldDictionary content into d. Columns are
// ACRONYM DDE_ACRONYM FID RIPPLES_TO FIELD_TYPE LENGTH [RWF_TYPE RWF_LEN].
func (d *FieldDictionary) ReadFields(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if isComment(line) {
			continue
		}

		tokens := tokenize(line)
		if len(tokens) < 5 {
			return fmt.Errorf("line %d: expected at least 5 columns, got %d", lineNo, len(tokens))
		}

		fid, err := strconv.ParseInt(tokens[2], 10, 16)
		if err != nil {
			return fmt.Errorf("line %d: invalid FID '%s': %w", lineNo, tokens[2], err)
		}

		dataType := models.BufferUnknown
		if len(tokens) >= 7 {
			if t, ok := rwfTypes[strings.ToUpper(tokens[6])]; ok {
				dataType = t
			}
		}
		if dataType == models.BufferUnknown {
			if t, ok := mfTypes[strings.ToUpper(tokens[4])]; ok {
				dataType = t
			}
		}

		d.Add(models.MFieldDef{
			FID:      int16(fid),
			Name:     tokens[0],
			DataType: dataType,
		})
	}
	return scanner.Err()
}

// -----------------------------------------------------------------------------

// ReadEnumTypes parses enumtype.def content. A block of "ACRONYM FID" lines
// is followed by the "VALUE DISPLAY [MEANING]" rows they all share.
func ReadEnumTypes(r io.Reader) (map[int16]models.MEnumTable, error) {
	result := make(map[int16]models.MEnumTable)
	var pending []int16
	table := models.MEnumTable{}
	sawValues := false

	flush := func() {
		for _, fid := range pending {
			result[fid] = table
		}
		pending = nil
		table = models.MEnumTable{}
		sawValues = false
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if isComment(line) {
			continue
		}
		tokens := tokenize(line)
		if len(tokens) < 2 {
			return nil, fmt.Errorf("line %d: expected at least 2 columns", lineNo)
		}

		value, err := strconv.Atoi(tokens[0])
		if err != nil {
			// acronym line
			if sawValues {
				flush()
			}
			fid, ferr := strconv.ParseInt(tokens[1], 10, 16)
			if ferr != nil {
				return nil, fmt.Errorf("line %d: invalid FID '%s': %w", lineNo, tokens[1], ferr)
			}
			pending = append(pending, int16(fid))
			continue
		}

		if len(pending) == 0 {
			return nil, fmt.Errorf("line %d: enum value without a field", lineNo)
		}
		display, err := decodeDisplay(tokens[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		table[value] = display
		sawValues = true
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return result, nil
}

// decodeDisplay turns a #hex# display into its bytes; quoted displays are
// already unquoted by the tokenizer.
func decodeDisplay(token string) (string, error) {
	if len(token) >= 2 && strings.HasPrefix(token, "#") && strings.HasSuffix(token, "#") {
		raw, err := hex.DecodeString(token[1 : len(token)-1])
		if err != nil {
			return "", fmt.Errorf("invalid hex display '%s': %w", token, err)
		}
		return string(raw), nil
	}
	return token, nil
}
