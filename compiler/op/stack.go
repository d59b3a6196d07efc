package op

import (
	"strconv"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/rteval/compiler/mat"
	"github.com/slowlang/rteval/compiler/tp"
)

type (
	// Operand is the compile-time image of a value on the run-time stack.
	// Shape is set for matrices which storage is known.
	Operand struct {
		Type  tp.Type
		Shape mat.Shape
	}

	TypeStack struct {
		s []Operand
	}

	// ShapeQueue carries matrix shapes from the consumed operands
	// to the shape check and from it to the produced results.
	ShapeQueue struct {
		q []mat.Shape
		h int
	}
)

var (
	ErrStackUnderflow = errors.New("type stack underflow")
	ErrQueueEmpty     = errors.New("shape queue empty")
)

func (s *TypeStack) Push(o Operand) {
	s.s = append(s.s, o)
}

func (s *TypeStack) Pop() (o Operand, err error) {
	if len(s.s) == 0 {
		return o, ErrStackUnderflow
	}

	o = s.s[len(s.s)-1]
	s.s = s.s[:len(s.s)-1]

	return o, nil
}

// Peek returns the i-th operand from the top.
func (s *TypeStack) Peek(i int) (o Operand, err error) {
	if i < 0 || i >= len(s.s) {
		return o, ErrStackUnderflow
	}

	return s.s[len(s.s)-1-i], nil
}

func (s *TypeStack) Len() int { return len(s.s) }

func (s *TypeStack) Reset() { s.s = s.s[:0] }

// Describe lists up to n operands from the top.
func (s *TypeStack) Describe(n int) string {
	var b strings.Builder

	b.WriteByte('[')

	for i := 0; i < n && i < len(s.s); i++ {
		if i != 0 {
			b.WriteByte('|')
		}

		b.WriteString(s.s[len(s.s)-1-i].String())
	}

	b.WriteByte(']')

	return b.String()
}

func (s *TypeStack) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendArray(b, len(s.s))

	for i := len(s.s) - 1; i >= 0; i-- {
		b = e.AppendString(b, s.s[i].String())
	}

	return b
}

func (o Operand) String() string {
	if !o.Type.Matrix || !o.Shape.Valid() {
		return o.Type.String()
	}

	return o.Type.String() + "(" + strconv.Itoa(int(o.Shape.Rows)) + "x" + strconv.Itoa(int(o.Shape.Cols)) + ")"
}

func (q *ShapeQueue) Insert(s mat.Shape) {
	q.q = append(q.q, s)
}

func (q *ShapeQueue) Remove() (s mat.Shape, err error) {
	if q.h == len(q.q) {
		return s, ErrQueueEmpty
	}

	s = q.q[q.h]
	q.h++

	if q.h == len(q.q) {
		q.q = q.q[:0]
		q.h = 0
	}

	return s, nil
}

func (q *ShapeQueue) Len() int { return len(q.q) - q.h }
