// Package value implements the tagged dynamic value used throughout the
// runtime: null, a 32-bit IEEE-754 number, a boolean, an owned string, or a
// handle to an object living in the object manager's table.
package value

import (
	"strconv"
)

// Kind discriminates the variant currently held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindBoolean
	KindString
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is copied by value; a String variant owns its text (Go strings are
// already immutable and reference-counted by the runtime, so a Go-level copy
// is a deep copy of the text from the caller's point of view).
type Value struct {
	kind   Kind
	number float32
	boolean bool
	str     string
	handle  uint32
}

// Null is the zero value of Value.
var Null = Value{kind: KindNull}

func Number(n float32) Value  { return Value{kind: KindNumber, number: n} }
func Boolean(b bool) Value    { return Value{kind: KindBoolean, boolean: b} }
func String(s string) Value   { return Value{kind: KindString, str: s} }
func Object(handle uint32) Value { return Value{kind: KindObject, handle: handle} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool    { return v.kind == KindNull }
func (v Value) IsNumber() bool  { return v.kind == KindNumber }
func (v Value) IsBoolean() bool { return v.kind == KindBoolean }
func (v Value) IsString() bool  { return v.kind == KindString }
func (v Value) IsObject() bool  { return v.kind == KindObject }

// TypeError is raised by accessors that require a specific variant.
type TypeError struct {
	Want Kind
	Got  Kind
}

func (e *TypeError) Error() string {
	return "TypeError: expected " + e.Want.String() + ", got " + e.Got.String()
}

// Number coerces v to a float32 per §4.1: boolean -> 0/1, null -> 0,
// string -> parsed lexical form (0 on failure), number -> itself. Object
// handles have no numeric coercion and yield a TypeError.
func (v Value) Number() (float32, error) {
	switch v.kind {
	case KindNumber:
		return v.number, nil
	case KindBoolean:
		if v.boolean {
			return 1, nil
		}
		return 0, nil
	case KindNull:
		return 0, nil
	case KindString:
		f, err := strconv.ParseFloat(v.str, 32)
		if err != nil {
			return 0, nil
		}
		return float32(f), nil
	default:
		return 0, &TypeError{Want: KindNumber, Got: v.kind}
	}
}

// AsNumber coerces silently, per bytecode arithmetic semantics: an
// incompatible value (an object handle) becomes 0 rather than erroring.
// Use Number() when the caller needs to distinguish that case.
func (v Value) AsNumber() float32 {
	n, err := v.Number()
	if err != nil {
		return 0
	}
	return n
}

// AsString renders v per §4.1: number -> lexical form, boolean -> "true"/
// "false", null -> "null", object -> the fixed placeholder "[object]" (the
// runtime's string built-in is outside this core's scope; callers that need
// the real textual form of an object go through its program pool).
func (v Value) AsString() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(float64(v.number), 'g', -1, 32)
	case KindBoolean:
		if v.boolean {
			return "true"
		}
		return "false"
	case KindNull:
		return "null"
	case KindObject:
		return "[object]"
	default:
		return ""
	}
}

// AsBoolean computes truthiness: null and zero-valued numbers/empty strings
// and the null handle are false; everything else is true.
func (v Value) AsBoolean() bool {
	switch v.kind {
	case KindBoolean:
		return v.boolean
	case KindNumber:
		return v.number != 0
	case KindString:
		return len(v.str) > 0
	case KindObject:
		return v.handle != 0
	case KindNull:
		return false
	default:
		return false
	}
}

// ObjectHandle requires an ObjectHandle variant; any other kind is a
// TypeError (no silent coercion, per §4.1).
func (v Value) ObjectHandle() (uint32, error) {
	if v.kind != KindObject {
		return 0, &TypeError{Want: KindObject, Got: v.kind}
	}
	return v.handle, nil
}

// Equal implements structural equality.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindNumber:
		return v.number == other.number
	case KindBoolean:
		return v.boolean == other.boolean
	case KindString:
		return v.str == other.str
	case KindObject:
		return v.handle == other.handle
	default:
		return false
	}
}

// Compare implements the three-way comparison used by CMP. It is total
// enough to drive the relational operators on same-typed operands: numbers
// compare by IEEE-754 order, strings lexicographically, booleans false<true,
// object handles by numeric value. Ordering between mismatched kinds is
// unspecified but still total (kind order is used as a tiebreaker) so CMP
// never needs to fail.
func (v Value) Compare(other Value) int {
	if v.kind != other.kind {
		if v.kind < other.kind {
			return -1
		}
		return 1
	}
	switch v.kind {
	case KindNull:
		return 0
	case KindNumber:
		switch {
		case v.number < other.number:
			return -1
		case v.number > other.number:
			return 1
		default:
			return 0
		}
	case KindBoolean:
		switch {
		case v.boolean == other.boolean:
			return 0
		case other.boolean:
			return -1
		default:
			return 1
		}
	case KindString:
		switch {
		case v.str < other.str:
			return -1
		case v.str > other.str:
			return 1
		default:
			return 0
		}
	case KindObject:
		switch {
		case v.handle < other.handle:
			return -1
		case v.handle > other.handle:
			return 1
		default:
			return 0
		}
	default:
		return 0
	}
}

// Concat implements CAT: string conversion on both operands, concatenated.
func Concat(a, b Value) Value {
	return String(a.AsString() + b.AsString())
}

// TypeName is the string yielded by the typeof ladder (§4.5): number,
// string, object, boolean, null, tested in that order.
func (v Value) TypeName() string {
	switch {
	case v.IsNumber():
		return "number"
	case v.IsString():
		return "string"
	case v.IsObject():
		return "object"
	case v.IsBoolean():
		return "boolean"
	default:
		return "null"
	}
}
