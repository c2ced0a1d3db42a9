package decoder

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"symbollist-observer/src/models"

	"golang.org/x/text/unicode/norm"
)

// ValueKind tags the variant held by a FieldValue.
type ValueKind int

const (
	KindUnsupported ValueKind = iota
	KindString
	KindInt32
	KindInt64
	KindFloat64
	KindEnum
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindEnum:
		return "enum"
	default:
		return "unsupported"
	}
}

// -----------------------------------------------------------------------------

// FieldValue is a decoded primitive. Exactly one of the payload fields is
// meaningful, selected by Kind. Empty numeric values decode to an empty
// KindString.
type FieldValue struct {
	Kind ValueKind
	Str  string
	I32  int32
	I64  int64
	F64  float64
}

// Interface returns the record value for the variant.
func (v FieldValue) Interface() any {
	switch v.Kind {
	case KindInt32:
		return v.I32
	case KindInt64:
		return v.I64
	case KindFloat64:
		return v.F64
	default:
		return v.Str
	}
}

// -----------------------------------------------------------------------------

// BufferClass groups buffer types that decode the same way.
type BufferClass int

const (
	ClassOther BufferClass = iota
	ClassEnum
	ClassFloat
	ClassInt32
	ClassInt64
	ClassText
	ClassInvalid
)

// Classify maps a buffer type to its decode class.
func Classify(t models.BufferType) BufferClass {
	switch t {
	case models.BufferEnumeration:
		return ClassEnum
	case models.BufferFloat, models.BufferDouble, models.BufferReal32, models.BufferReal64:
		return ClassFloat
	case models.BufferInt32, models.BufferUInt32:
		return ClassInt32
	case models.BufferInt64, models.BufferUInt64:
		return ClassInt64
	case models.BufferASCII, models.BufferUTF8, models.BufferRMTES:
		return ClassText
	case models.BufferNoData, models.BufferUnknown, models.BufferUnspecified:
		return ClassInvalid
	default:
		return ClassOther
	}
}

// IsKeyType reports whether a map entry key of this type can be rendered as
// a symbol key.
func IsKeyType(t models.BufferType) bool {
	switch Classify(t) {
	case ClassEnum, ClassInvalid:
		return false
	}
	return true
}

// -----------------------------------------------------------------------------

// DecodeBuffer converts a raw buffer of the given (actual) type. enum is
// consulted only for enumerations and may be nil.
func DecodeBuffer(t models.BufferType, raw string, enum models.MEnumTable) (FieldValue, error) {
	text := strings.TrimSpace(raw)

	switch Classify(t) {
	case ClassEnum:
		if text == "" {
			return FieldValue{Kind: KindEnum}, nil
		}
		n, err := strconv.Atoi(text)
		if err != nil {
			return FieldValue{Kind: KindString, Str: text}, fmt.Errorf("invalid enum value '%s': %w", text, err)
		}
		if display, ok := enum[n]; ok {
			return FieldValue{Kind: KindEnum, Str: display}, nil
		}
		return FieldValue{Kind: KindEnum, Str: text}, nil

	case ClassFloat:
		if text == "" {
			return FieldValue{Kind: KindString}, nil
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return FieldValue{Kind: KindString, Str: text}, fmt.Errorf("invalid %s value '%s': %w", t, text, err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return FieldValue{Kind: KindString, Str: text}, fmt.Errorf("invalid %s value '%s': %w", t, text, errNonFinite)
		}
		return FieldValue{Kind: KindFloat64, F64: f}, nil

	case ClassInt32:
		if text == "" {
			return FieldValue{Kind: KindString}, nil
		}
		n, err := parseInt(t == models.BufferUInt32, text, 32)
		if err != nil {
			return FieldValue{Kind: KindString, Str: text}, fmt.Errorf("invalid %s value '%s': %w", t, text, err)
		}
		return FieldValue{Kind: KindInt32, I32: int32(n)}, nil

	case ClassInt64:
		if text == "" {
			return FieldValue{Kind: KindString}, nil
		}
		n, err := parseInt(t == models.BufferUInt64, text, 64)
		if err != nil {
			return FieldValue{Kind: KindString, Str: text}, fmt.Errorf("invalid %s value '%s': %w", t, text, err)
		}
		return FieldValue{Kind: KindInt64, I64: n}, nil

	case ClassText:
		return FieldValue{Kind: KindString, Str: norm.NFC.String(text)}, nil

	case ClassInvalid:
		return FieldValue{Kind: KindUnsupported, Str: text}, nil

	default:
		return FieldValue{Kind: KindString, Str: text}, nil
	}
}

var (
	errNonFinite  = errors.New("non-finite number")
	errOutOfRange = errors.New("unsigned value exceeds signed range")
)

// parseInt parses signed or unsigned text into the signed range of the
// target width. Unsigned values above that range are rejected.
func parseInt(unsigned bool, text string, bits int) (int64, error) {
	if !unsigned {
		return strconv.ParseInt(text, 10, bits)
	}
	u, err := strconv.ParseUint(text, 10, bits)
	if err != nil {
		return 0, err
	}
	if u > uint64(1)<<(bits-1)-1 {
		return 0, errOutOfRange
	}
	return int64(u), nil
}
