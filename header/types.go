package header

import "fmt"

// ValueType is the closed set of RPM tag value types.
type ValueType uint32

const (
	TypeNull ValueType = iota
	TypeChar
	TypeInt8
	TypeInt16
	TypeInt32
	TypeInt64
	TypeString
	TypeBinary
	TypeStringArray
	TypeI18NString
)

// alignment returns the data-store alignment required for t, per spec §6:
// 2 for Int16, 4 for Int32, 8 for Int64, 1 otherwise.
func (t ValueType) alignment() int {
	switch t {
	case TypeInt16:
		return 2
	case TypeInt32:
		return 4
	case TypeInt64:
		return 8
	default:
		return 1
	}
}

func (t ValueType) elementSize() int {
	switch t {
	case TypeInt16:
		return 2
	case TypeInt32:
		return 4
	case TypeInt64:
		return 8
	default:
		return 1
	}
}

func (t ValueType) String() string {
	switch t {
	case TypeNull:
		return "Null"
	case TypeChar:
		return "Char"
	case TypeInt8:
		return "Int8"
	case TypeInt16:
		return "Int16"
	case TypeInt32:
		return "Int32"
	case TypeInt64:
		return "Int64"
	case TypeString:
		return "String"
	case TypeBinary:
		return "Binary"
	case TypeStringArray:
		return "StringArray"
	case TypeI18NString:
		return "I18NString"
	default:
		return fmt.Sprintf("ValueType(%d)", uint32(t))
	}
}

// Value is a closed tagged union over the ten RPM value types. Exactly
// one of the typed fields is meaningful, selected by Type.
type Value struct {
	Type ValueType

	Int8   []uint8
	Int16  []uint16
	Int32  []uint32
	Int64  []uint64
	Str    string
	Bin    []byte
	StrArr []string
}

// Count is the element count that belongs in the tag's index entry.
func (v Value) Count() int {
	switch v.Type {
	case TypeNull:
		return 0
	case TypeChar, TypeInt8:
		return len(v.Int8)
	case TypeInt16:
		return len(v.Int16)
	case TypeInt32:
		return len(v.Int32)
	case TypeInt64:
		return len(v.Int64)
	case TypeString, TypeI18NString:
		return 1
	case TypeBinary:
		return len(v.Bin)
	case TypeStringArray:
		return len(v.StrArr)
	default:
		return 0
	}
}

// Int32Value is a convenience constructor for a scalar/array Int32 tag.
func Int32Value(v ...uint32) Value { return Value{Type: TypeInt32, Int32: v} }

// Int16Value is a convenience constructor for a scalar/array Int16 tag.
func Int16Value(v ...uint16) Value { return Value{Type: TypeInt16, Int16: v} }

// Int64Value is a convenience constructor for a scalar/array Int64 tag.
func Int64Value(v ...uint64) Value { return Value{Type: TypeInt64, Int64: v} }

// StringValue is a convenience constructor for a String tag.
func StringValue(s string) Value { return Value{Type: TypeString, Str: s} }

// I18NStringValue is a convenience constructor for an I18NString tag.
func I18NStringValue(s string) Value { return Value{Type: TypeI18NString, Str: s} }

// StringArrayValue is a convenience constructor for a StringArray tag.
func StringArrayValue(v ...string) Value { return Value{Type: TypeStringArray, StrArr: v} }

// BinaryValue is a convenience constructor for a Binary tag.
func BinaryValue(b []byte) Value { return Value{Type: TypeBinary, Bin: b} }
