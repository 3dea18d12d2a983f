// Package assert checks structural invariants. A failure here means a
// programming error violated one of the tree's invariants, not a normal
// domain outcome — those travel as a Status value instead.
package assert

import "fmt"

// Invariant panics with a formatted message when cond is false.
func Invariant(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
