package regime

import "strconv"

// Op is the comparison a Bound applies.
type Op int

const (
	OpNone Op = iota
	OpLess
	OpGreater
	OpRange // inclusive on both ends
)

// Bound is a one- or two-sided numeric constraint. The zero value admits
// everything.
type Bound struct {
	Op Op
	Lo float64
	Hi float64
}

// Below returns the constraint v < x.
func Below(x float64) Bound { return Bound{Op: OpLess, Hi: x} }

// Above returns the constraint v > x.
func Above(x float64) Bound { return Bound{Op: OpGreater, Lo: x} }

// Between returns the constraint lo <= v <= hi.
func Between(lo, hi float64) Bound { return Bound{Op: OpRange, Lo: lo, Hi: hi} }

// IsZero reports whether the bound is unconstrained.
func (b Bound) IsZero() bool { return b.Op == OpNone }

// Contains evaluates the bound against v.
func (b Bound) Contains(v float64) bool {
	switch b.Op {
	case OpLess:
		return v < b.Hi
	case OpGreater:
		return v > b.Lo
	case OpRange:
		return v >= b.Lo && v <= b.Hi
	default:
		return true
	}
}

// String renders the provider operator syntax: "<x", ">x" or "lo--hi".
// Unconstrained bounds render as "".
func (b Bound) String() string {
	switch b.Op {
	case OpLess:
		return "<" + format(b.Hi)
	case OpGreater:
		return ">" + format(b.Lo)
	case OpRange:
		return format(b.Lo) + "--" + format(b.Hi)
	default:
		return ""
	}
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
