package vm

import (
	"strings"

	"tlog.app/go/tlog/tlwire"
)

// Fault is a set of run-time error conditions.
// Routines record them on the Context; execution carries on in Fast mode.
type Fault uint16

const (
	OutOfRange Fault = 1 << iota
	Overflow
	InternalSetup
	NotCompleted
	StackOverflow
	StackUnderflow
	BadAddress
	IllegalCode
)

var faultNames = []string{
	"out_of_range",
	"overflow",
	"internal_setup",
	"not_completed",
	"stack_overflow",
	"stack_underflow",
	"bad_address",
	"illegal_code",
}

func (f Fault) Has(x Fault) bool {
	return f&x == x
}

func (f Fault) Error() string {
	return "runtime fault: " + f.String()
}

func (f Fault) String() string {
	if f == 0 {
		return "none"
	}

	var b strings.Builder

	for i, n := range faultNames {
		if f&(1<<i) == 0 {
			continue
		}

		if b.Len() != 0 {
			b.WriteByte('|')
		}

		b.WriteString(n)
	}

	return b.String()
}

func (f Fault) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	return e.AppendString(b, f.String())
}
