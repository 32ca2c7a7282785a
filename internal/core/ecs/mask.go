package ecs

import "math/bits"

const (
	bitsPerWord       = 64
	maskWords         = 4
	maxComponentTypes = maskWords * bitsPerWord
)

// Mask is a bitset of component types. An entity's archetype is the Mask of
// the components currently attached to it.
type Mask [maskWords]uint64

// MaskOf builds a mask from a list of component types.
func MaskOf(types ...ComponentType) Mask {
	var m Mask
	for _, t := range types {
		m = m.With(t)
	}
	return m
}

func (m Mask) Has(t ComponentType) bool {
	return m[int(t)/bitsPerWord]&(1<<(uint(t)%bitsPerWord)) != 0
}

func (m Mask) With(t ComponentType) Mask {
	m[int(t)/bitsPerWord] |= 1 << (uint(t) % bitsPerWord)
	return m
}

func (m Mask) Without(t ComponentType) Mask {
	m[int(t)/bitsPerWord] &^= 1 << (uint(t) % bitsPerWord)
	return m
}

func (m Mask) Or(o Mask) Mask {
	for i := range m {
		m[i] |= o[i]
	}
	return m
}

// ContainsAll reports whether every type in o is also in m.
func (m Mask) ContainsAll(o Mask) bool {
	for i := range m {
		if m[i]&o[i] != o[i] {
			return false
		}
	}
	return true
}

// Intersects reports whether m and o share at least one type.
func (m Mask) Intersects(o Mask) bool {
	for i := range m {
		if m[i]&o[i] != 0 {
			return true
		}
	}
	return false
}

func (m Mask) IsEmpty() bool {
	return m == Mask{}
}

func (m Mask) Count() int {
	n := 0
	for _, w := range m {
		n += bits.OnesCount64(w)
	}
	return n
}

// Types lists the component types in ascending order.
func (m Mask) Types() []ComponentType {
	out := make([]ComponentType, 0, m.Count())
	for i, w := range m {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			out = append(out, ComponentType(i*bitsPerWord+b))
			w &^= 1 << uint(b)
		}
	}
	return out
}
