package diag

import "strings"

// Ranger wraps the Range method.
type Ranger interface {
	// Range returns the range associated with the value.
	Range() Ranging
}

// Ranging represents a range [From, To) within an indexable sequence. Structs
// can embed Ranging to satisfy the [Ranger] interface.
//
// Ideally, this type would be called Range. However, doing that means structs
// embedding this type will have Range as a field instead of a method, thus not
// implementing the [Ranger] interface.
type Ranging struct {
	From int
	To   int
}

// Range returns the Ranging itself.
func (r Ranging) Range() Ranging { return r }

// PointRanging returns a zero-width Ranging at the given point.
func PointRanging(p int) Ranging {
	return Ranging{p, p}
}

// MixedRanging returns a Ranging from the start position of a to the end
// position of b.
func MixedRanging(a, b Ranger) Ranging {
	return Ranging{a.Range().From, b.Range().To}
}

// LineRanging returns the Ranging covering the given 1-based line of source,
// excluding the line terminator. Lines past the end of source map to a
// zero-width Ranging at the end; a non-positive line maps to an unknown
// position.
func LineRanging(source string, line int) Ranging {
	if line <= 0 {
		return Ranging{-1, -1}
	}
	from := 0
	for i := 1; i < line; i++ {
		j := strings.IndexByte(source[from:], '\n')
		if j == -1 {
			return PointRanging(len(source))
		}
		from += j + 1
	}
	to := strings.IndexByte(source[from:], '\n')
	if to == -1 {
		return Ranging{from, len(source)}
	}
	return Ranging{from, from + to}
}
