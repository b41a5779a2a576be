package tensor

// Shape are the dimensions of a tensor
type Shape []int

// NumElements returns the product of all dimensions.  An empty shape
// describes a scalar holding one element
func (s Shape) NumElements() int {

	n := 1

	for _, d := range s {
		n *= d
	}

	return n
}

// Squeeze returns a copy of the shape with all dimensions of size 1 removed
func (s Shape) Squeeze() Shape {

	out := make(Shape, 0, len(s))

	for _, d := range s {
		if d != 1 {
			out = append(out, d)
		}
	}

	return out
}

// Equal reports whether both shapes have the same dimensions
func (s Shape) Equal(o Shape) bool {

	if len(s) != len(o) {
		return false
	}

	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}

	return true
}

// FromInt64 converts runtime int64 dimensions into a Shape
func FromInt64(dims []int64) Shape {

	s := make(Shape, len(dims))

	for i, d := range dims {
		s[i] = int(d)
	}

	return s
}

// Int64 returns the shape as int64 dimensions as used by the C runtimes
func (s Shape) Int64() []int64 {

	dims := make([]int64, len(s))

	for i, d := range s {
		dims[i] = int64(d)
	}

	return dims
}
