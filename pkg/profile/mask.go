package profile

// Mask is a boolean profile, typically the result of extremum detection.
type Mask struct {
	values []bool
}

// NewMask creates a mask from flags. The input slice is copied.
func NewMask(flags []bool) Mask {
	v := make([]bool, len(flags))
	copy(v, flags)
	return Mask{values: v}
}

// FullMask returns a mask of length with every position set to value.
func FullMask(length int, value bool) Mask {
	v := make([]bool, length)
	for i := range v {
		v[i] = value
	}
	return Mask{values: v}
}

// Len returns the number of positions.
func (m Mask) Len() int {
	return len(m.values)
}

// Get reports whether index is set. The index wraps.
func (m Mask) Get(index int) bool {
	if len(m.values) == 0 {
		return false
	}
	return m.values[Wrap(index, len(m.values))]
}

// Count returns the number of set positions.
func (m Mask) Count() int {
	n := 0
	for _, v := range m.values {
		if v {
			n++
		}
	}
	return n
}

// Indexes returns the set positions in ascending order.
func (m Mask) Indexes() []int {
	out := make([]int, 0, m.Count())
	for i, v := range m.values {
		if v {
			out = append(out, i)
		}
	}
	return out
}

// And returns the positions set in both masks.
func (m Mask) And(other Mask) (Mask, error) {
	return m.combine(other, func(a, b bool) bool { return a && b })
}

// Or returns the positions set in either mask.
func (m Mask) Or(other Mask) (Mask, error) {
	return m.combine(other, func(a, b bool) bool { return a || b })
}

// Invert flips every position.
func (m Mask) Invert() Mask {
	out := make([]bool, len(m.values))
	for i, v := range m.values {
		out[i] = !v
	}
	return Mask{values: out}
}

func (m Mask) combine(other Mask, op func(a, b bool) bool) (Mask, error) {
	if len(m.values) != len(other.values) {
		return Mask{}, Invalidf("mask lengths differ: %d and %d", len(m.values), len(other.values))
	}
	out := make([]bool, len(m.values))
	for i := range out {
		out[i] = op(m.values[i], other.values[i])
	}
	return Mask{values: out}, nil
}
