package vm

import (
	"math"
	"unsafe"

	"github.com/slowlang/rteval/compiler/mat"
	"github.com/slowlang/rteval/compiler/tp"
)

type (
	// Code is an element of the program: an operator code or an embedded literal.
	Code uint16

	// Addr is an index of a data memory word.
	Addr = Code

	Word uint32

	Routine func(c *Context)

	Instr struct {
		Name string
		Exec Routine
	}

	Scalar interface {
		int8 | int16 | int32 | int64 |
			uint8 | uint16 | uint32 | uint64 |
			float32 | float64 | bool | Code
	}

	// Context executes one compiled program.
	// It's not safe for concurrent use: one execution at a time.
	Context struct {
		instr []Instr
		code  []Code
		pc    int

		mem  []Word
		mats []any

		stack []Word
		sp    int

		Faults Fault

		buf []byte
	}
)

const InvalidCode Code = math.MaxUint16

func NewContext(instr []Instr, code []Code, memWords, stackWords int) *Context {
	return &Context{
		instr: instr,
		code:  code,
		mem:   make([]Word, memWords),
		stack: make([]Word, stackWords),
	}
}

// BindMatrix makes the matrix variable at a refer to m.
// m must be *mat.Matrix[float32] or *mat.Matrix[float64].
// Rebinding the same address reuses its slot.
func (c *Context) BindMatrix(a Addr, m any) {
	if i := int(c.mem[a]); i != 0 && i <= len(c.mats) {
		c.mats[i-1] = m
		return
	}

	c.mats = append(c.mats, m)
	c.mem[a] = Word(len(c.mats))
}

// Literal reads the next embedded program operand.
func (c *Context) Literal() Code {
	if c.pc >= len(c.code) {
		c.Fail(NotCompleted)
		return InvalidCode
	}

	x := c.code[c.pc]
	c.pc++

	return x
}

func (c *Context) Fail(f Fault) {
	c.Faults |= f
}

// Reset clears the stack, the program counter and faults.
func (c *Context) Reset() {
	c.pc = 0
	c.sp = 0
	c.Faults = 0
}

func (c *Context) StackDepth() int { return c.sp }

func (c *Context) StackSize() int { return len(c.stack) }

func (c *Context) MemorySize() int { return len(c.mem) }

func (c *Context) Code() []Code { return c.code }

func Push[T Scalar](c *Context, v T) {
	n := words[T]()

	if c.sp+n > len(c.stack) {
		c.Fail(StackOverflow)
		return
	}

	put(c.stack[c.sp:], n, toBits(v))
	c.sp += n
}

func Pop[T Scalar](c *Context) (v T) {
	n := words[T]()

	if c.sp < n {
		c.Fail(StackUnderflow)
		return v
	}

	c.sp -= n

	return fromBits[T](get(c.stack[c.sp:], n))
}

func Peek[T Scalar](c *Context) (v T) {
	n := words[T]()

	if c.sp < n {
		c.Fail(StackUnderflow)
		return v
	}

	return fromBits[T](get(c.stack[c.sp-n:], n))
}

// Load reads the scalar variable at a.
func Load[T Scalar](c *Context, a Addr) (v T) {
	n := words[T]()

	if int(a)+n > len(c.mem) {
		c.Fail(BadAddress)
		return v
	}

	return fromBits[T](get(c.mem[a:], n))
}

// Store writes the scalar variable at a.
func Store[T Scalar](c *Context, a Addr, v T) {
	n := words[T]()

	if int(a)+n > len(c.mem) {
		c.Fail(BadAddress)
		return
	}

	put(c.mem[a:], n, toBits(v))
}

// Matrix binds the matrix variable at a.
// It returns nil if a doesn't hold a matrix of T.
func Matrix[T mat.Float](c *Context, a Addr) *mat.Matrix[T] {
	if int(a) >= len(c.mem) {
		return nil
	}

	// slot index plus one, zero is unbound
	i := int(c.mem[a])
	if i == 0 || i > len(c.mats) {
		return nil
	}

	m, _ := c.mats[i-1].(*mat.Matrix[T])

	return m
}

func words[T Scalar]() int {
	var v T
	return tp.Words(int(unsafe.Sizeof(v)))
}

func put(w []Word, n int, b uint64) {
	w[0] = Word(b)

	if n > 1 {
		w[1] = Word(b >> 32)
	}
}

func get(w []Word, n int) (b uint64) {
	b = uint64(w[0])

	if n > 1 {
		b |= uint64(w[1]) << 32
	}

	return b
}

func toBits[T Scalar](v T) uint64 {
	switch x := any(v).(type) {
	case int8:
		return uint64(uint8(x))
	case int16:
		return uint64(uint16(x))
	case int32:
		return uint64(uint32(x))
	case int64:
		return uint64(x)
	case uint8:
		return uint64(x)
	case uint16:
		return uint64(x)
	case uint32:
		return uint64(x)
	case uint64:
		return x
	case float32:
		return uint64(math.Float32bits(x))
	case float64:
		return math.Float64bits(x)
	case bool:
		if x {
			return 1
		}

		return 0
	case Code:
		return uint64(x)
	}

	panic(v)
}

func fromBits[T Scalar](b uint64) (v T) {
	switch p := any(&v).(type) {
	case *int8:
		*p = int8(b)
	case *int16:
		*p = int16(b)
	case *int32:
		*p = int32(b)
	case *int64:
		*p = int64(b)
	case *uint8:
		*p = uint8(b)
	case *uint16:
		*p = uint16(b)
	case *uint32:
		*p = uint32(b)
	case *uint64:
		*p = b
	case *float32:
		*p = math.Float32frombits(uint32(b))
	case *float64:
		*p = math.Float64frombits(b)
	case *bool:
		*p = uint8(b) != 0
	case *Code:
		*p = Code(b)
	}

	return v
}
