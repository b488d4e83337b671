package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArrayOrder(t *testing.T) {
	order, elem := DataType("Array/Array/Number").ArrayOrder()
	assert.Equal(t, 2, order)
	assert.Equal(t, TypeNumber, elem)

	order, elem = DataType("String").ArrayOrder()
	assert.Equal(t, 0, order)
	assert.Equal(t, TypeString, elem)
}

func TestIsWellFormed(t *testing.T) {
	assert.True(t, DataType("Array/Number").IsWellFormed())
	assert.True(t, DataType("Value").IsWellFormed())
	assert.False(t, DataType("").IsWellFormed())
	assert.False(t, DataType("Array/Bogus").IsWellFormed())
}

func TestCompatible(t *testing.T) {
	cases := []struct {
		name string
		from DataType
		to   DataType
		want bool
	}{
		{"identical scalars", TypeNumber, TypeNumber, true},
		{"mismatched scalars", TypeNumber, TypeString, false},
		{"either side Value", TypeValue, TypeNumber, true},
		{"array-serialize one level", "Array/Number", TypeNumber, true},
		{"wrap-as-array one level", TypeNumber, "Array/Number", true},
		{"array order differs by two", "Array/Array/Number", TypeNumber, false},
		{"array-serialize nested array, order difference one", "Array/Array/Number", "Array/Number", true},
		{"wrap-as-array into nested array, order difference one", "Array/Number", "Array/Array/Number", true},
		{"same order different element", "Array/Number", "Array/String", false},
		{"array of Value accepts array of Number", "Array/Number", "Array/Value", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Compatible(tc.from, tc.to))
		})
	}
}
