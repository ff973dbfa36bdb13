package media

import "fmt"

// FieldParity is the half-frame due for presentation on interlaced sources.
//
// The values feed the pass index directly: a tick that retired a new frame
// reports FieldOdd and selects pass 1 (first field of the new frame); a tick
// that re-presents the held frame reports FieldEven and selects pass 2.
type FieldParity int

// Field parities.
const (
	FieldOdd  FieldParity = 0
	FieldEven FieldParity = 1
)

func (p FieldParity) String() string {
	switch p {
	case FieldOdd:
		return "odd"
	case FieldEven:
		return "even"
	default:
		return fmt.Sprintf("fieldparity(%d)", int(p))
	}
}
