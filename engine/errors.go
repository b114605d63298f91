package engine

import (
	"fmt"
	"strings"

	"github.com/dhamidi/iparse/scanner"
)

// FurthestFailure is the deepest position any element failed at, with
// everything that was expected there.
type FurthestFailure struct {
	Pos      scanner.Position
	Expected []string
	Found    string
}

// ParseFailure reports input that does not match the grammar.
type ParseFailure struct {
	FurthestFailure
}

func (e *ParseFailure) Error() string {
	return fmt.Sprintf("%s at line %d, column %d", e.Message(), e.Pos.Line, e.Pos.Column)
}

// Message describes the failure without its position.
func (e *ParseFailure) Message() string {
	if len(e.Expected) == 0 {
		return "parse failed"
	}
	return "expected " + strings.Join(e.Expected, " or ")
}

// abort carries a fatal error out of a parse. It is raised with panic and
// recovered at the engine boundary.
type abort struct {
	err error
}

// recoverAbort turns an abort panic into *err. Other panics propagate.
func recoverAbort(err *error) {
	if r := recover(); r != nil {
		a, ok := r.(abort)
		if !ok {
			panic(r)
		}
		*err = a.err
	}
}
