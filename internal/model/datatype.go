package model

import "strings"

// DataType is a slash-separated type expression over the fixed vocabulary
// {String, Number, Bool, Map, Array, Null, Value}. "Array/T" means array-of-T;
// the array order is the depth of "Array/" prefixes. "Value" is the top
// (generic) type, compatible with anything.
type DataType string

// The fixed scalar/container vocabulary. Nested forms are built by prefixing
// "Array/" or "Map/".
const (
	TypeString DataType = "String"
	TypeNumber DataType = "Number"
	TypeBool   DataType = "Bool"
	TypeMap    DataType = "Map"
	TypeArray  DataType = "Array"
	TypeNull   DataType = "Null"
	TypeValue  DataType = "Value"
)

var scalarTypes = map[string]bool{
	string(TypeString): true,
	string(TypeNumber): true,
	string(TypeBool):   true,
	string(TypeMap):    true,
	string(TypeArray):  true,
	string(TypeNull):   true,
	string(TypeValue):  true,
}

// ArrayOrder returns the depth of leading "Array/" prefixes, and the
// remaining element type. ArrayOrder("Array/Array/Number") == (2, "Number").
func (d DataType) ArrayOrder() (order int, element DataType) {
	s := string(d)
	for strings.HasPrefix(s, "Array/") {
		order++
		s = strings.TrimPrefix(s, "Array/")
	}
	return order, DataType(s)
}

// IsWellFormed reports whether every "/"-separated segment of d is one of
// the fixed vocabulary words.
func (d DataType) IsWellFormed() bool {
	if d == "" {
		return false
	}
	for _, seg := range strings.Split(string(d), "/") {
		if !scalarTypes[seg] {
			return false
		}
	}
	return true
}

// Compatible reports whether a value declared as "from" may be delivered to
// an input declared as "to": equal types, either side generic (Value), or
// array/scalar pairs that the scheduler coerces at send time (§4.K).
func Compatible(from, to DataType) bool {
	if from == TypeValue || to == TypeValue {
		return true
	}
	if from == to {
		return true
	}
	fromOrder, fromElem := from.ArrayOrder()
	toOrder, toElem := to.ArrayOrder()
	if fromOrder == toOrder {
		return fromElem == toElem || fromElem == TypeValue || toElem == TypeValue
	}
	// Array-serialize (fromOrder > toOrder) or wrap-as-array (fromOrder <
	// toOrder) are both compatible provided they differ by exactly one
	// level, at any depth — fromElem/toElem are already fully stripped of
	// every "Array/" prefix by ArrayOrder, so the element types only need
	// to line up with each other, not with the remaining order.
	if fromOrder == toOrder+1 || toOrder == fromOrder+1 {
		return fromElem == toElem || fromElem == TypeValue || toElem == TypeValue
	}
	return false
}
