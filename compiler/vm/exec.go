package vm

import (
	"io"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"
)

type Mode int

const (
	// Fast runs every instruction without checks.
	Fast Mode = iota
	// Safe stops at the first fault.
	Safe
	// Debug is Safe plus a trace line per instruction.
	Debug
)

var modeNames = []string{"fast", "safe", "debug"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "unknown"
	}

	return modeNames[m]
}

func ParseMode(s string) (Mode, bool) {
	for i, n := range modeNames {
		if n == s {
			return Mode(i), true
		}
	}

	return Fast, false
}

var ErrNoDebugOutput = errors.New("debug mode without output")

// Execute runs the program once from its first instruction on an empty stack.
// The stack must be empty again at the end.
// Faults are cleared before the run and returned as error if any were raised.
// Debug mode requires debug output.
func (c *Context) Execute(mode Mode, debug io.Writer) error {
	if mode == Debug && debug == nil {
		return ErrNoDebugOutput
	}

	c.pc = 0
	c.sp = 0
	c.Faults = 0

	switch mode {
	case Fast:
		for c.pc < len(c.code) {
			x := c.code[c.pc]
			c.pc++

			c.instr[x].Exec(c)
		}
	default:
		line := 1

		for c.pc < len(c.code) && c.Faults == 0 {
			at, sp := c.pc, c.sp

			x := c.code[c.pc]
			c.pc++

			if int(x) >= len(c.instr) {
				c.Fail(IllegalCode)
				break
			}

			c.instr[x].Exec(c)

			if mode == Debug {
				c.trace(debug, line, at, sp, x)
			}

			line++
		}

		if c.pc < len(c.code) {
			c.Fail(NotCompleted)
		}

		if mode == Debug && c.Faults == 0 {
			c.buf = hfmt.Appendf(c.buf[:0], "%d - %d :: END\n", c.sp, c.pc)
			_, _ = debug.Write(c.buf)
		}
	}

	if c.sp != 0 {
		c.Fail(InternalSetup)
	}

	if c.Faults != 0 {
		return c.Faults
	}

	return nil
}

func (c *Context) trace(w io.Writer, line, at, sp int, x Code) {
	b := hfmt.Appendf(c.buf[:0], "%d - %d - %d :: %s", line, sp, at, c.instr[x].Name)

	for i := at + 1; i < c.pc; i++ {
		b = hfmt.Appendf(b, " @%d", c.code[i])
	}

	b = hfmt.Appendf(b, " => %d", c.sp)

	if c.Faults != 0 {
		b = hfmt.Appendf(b, " <ERROR %v>", c.Faults)
	}

	b = append(b, '\n')

	c.buf = b

	_, _ = w.Write(b)
}
