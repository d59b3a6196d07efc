package op

import (
	"strconv"
	"strings"

	"tlog.app/go/errors"

	"github.com/slowlang/rteval/compiler/mat"
	"github.com/slowlang/rteval/compiler/tp"
	"github.com/slowlang/rteval/compiler/vm"
)

type (
	// Func is an operator record.
	//
	// In lists input types from the top of the stack down,
	// in the order they are matched and consumed.
	// Dest is matched against the top of the stack instead of Out[0]
	// for records without outputs which write into an existing destination.
	Func struct {
		Name    string
		Variant string

		In   []tp.Type
		Out  []tp.Type
		Dest tp.Type

		Exec vm.Routine

		// Sizer replaces the generic stack sizing if set.
		Sizer StackSizer
		// Shapes checks matrix operand shapes and produces result shapes.
		// Nil means all the matrix operands must have the same shape
		// which is also the shape of the result.
		Shapes ShapeChecker
	}

	StackSizer interface {
		SizeStack(f *Func, l *Layout, matchOutput bool) error
	}

	ShapeChecker interface {
		CheckShapes(in, out *ShapeQueue) error
	}

	// Temporary is an intermediate matrix result with no user declared destination.
	Temporary struct {
		Name  string
		Type  tp.Type
		Shape mat.Shape
	}

	// Layout accumulates the compile-time state of a program being sized.
	// Size is the current run-time stack depth in words, Max is its high-water mark.
	Layout struct {
		Types TypeStack

		Size int
		Max  int

		Temps    []Temporary
		NextTemp int
	}

	// SameShape is the default shape policy.
	SameShape struct{}

	// SameShapeSink requires equal shapes and produces no result.
	SameShapeSink struct{}

	// KeepShape passes the only matrix shape through.
	KeepShape struct{}

	// ProductShape is the matrix product rule.
	// The right operand is on top of the stack and so it comes first.
	ProductShape struct{}

	// ReadMatrix sizes a matrix READ: the operand pushed by the compiler is the result.
	ReadMatrix struct{}
)

var (
	ErrShapeMismatch   = errors.New("matrix size mismatch")
	ErrQueueNotDrained = errors.New("shape queue not drained")
	ErrMissingMemory   = errors.New("matrix without storage")
)

var addrWords = tp.Words(tp.AddrSize)

// Target is the type matched against the top of the stack
// when the result location is already there.
func (f *Func) Target() tp.Type {
	if len(f.Out) != 0 {
		return f.Out[0]
	}

	return f.Dest
}

func (f *Func) String() string {
	var b strings.Builder

	b.WriteString(f.Name)
	b.WriteByte('(')

	for i, t := range f.In {
		if i != 0 {
			b.WriteString(", ")
		}

		b.WriteString(t.String())
	}

	b.WriteByte(')')

	switch {
	case len(f.Out) != 0:
		for i, t := range f.Out {
			if i == 0 {
				b.WriteByte(' ')
			} else {
				b.WriteString(", ")
			}

			b.WriteString(t.String())
		}
	case !f.Dest.IsVoid():
		b.WriteString(" -> ")
		b.WriteString(f.Dest.String())
	}

	return b.String()
}

// accepts reports whether the operands on top of st match the record signature.
func (f *Func) accepts(st *TypeStack, matchOutput bool) bool {
	i := 0

	if matchOutput {
		o, err := st.Peek(i)
		if err != nil || !o.Type.SameAs(f.Target()) {
			return false
		}

		i++
	}

	for _, t := range f.In {
		o, err := st.Peek(i)
		if err != nil || !o.Type.SameAs(t) {
			return false
		}

		i++
	}

	return true
}

func (l *Layout) grow(n int) {
	l.Size += n

	if l.Size > l.Max {
		l.Max = l.Size
	}
}

func (l *Layout) shrink(n int) {
	l.Size -= n
}

func (l *Layout) newTemp(t tp.Type, s mat.Shape) Temporary {
	tmp := Temporary{
		Name:  "Temp@" + strconv.Itoa(l.NextTemp),
		Type:  t,
		Shape: s,
	}

	l.NextTemp++
	l.Temps = append(l.Temps, tmp)

	return tmp
}

// SizeStack is the generic stack sizing.
// It consumes the matched operands, checks matrix shapes
// and pushes the results allocating temporaries for new matrices.
func SizeStack(f *Func, l *Layout, matchOutput bool) (err error) {
	var in, out ShapeQueue

	if matchOutput {
		o, err := l.Types.Pop()
		if err != nil {
			return errors.Wrap(err, "pop destination")
		}

		if o.Type.Matrix {
			s, err := classify(o)
			if err != nil {
				return errors.Wrap(err, "destination")
			}

			in.Insert(s)
		}
	}

	for i := range f.In {
		o, err := l.Types.Pop()
		if err != nil {
			return errors.Wrap(err, "pop input %d", i)
		}

		if !o.Type.Matrix {
			l.shrink(o.Type.Words())
			continue
		}

		s, err := classify(o)
		if err != nil {
			return errors.Wrap(err, "input %d", i)
		}

		in.Insert(s)
		l.shrink(addrWords)
	}

	shapes := f.Shapes
	if shapes == nil && in.Len() != 0 {
		shapes = SameShape{}
	}

	if shapes != nil {
		err = shapes.CheckShapes(&in, &out)
		if err != nil {
			return errors.Wrap(err, "check shapes")
		}
	}

	if in.Len() != 0 {
		return errors.Wrap(ErrQueueNotDrained, "%d input shapes left", in.Len())
	}

	for _, t := range f.Out {
		if t.Matrix && out.Len() != 0 {
			s, _ := out.Remove()

			l.newTemp(t, s)
			l.Types.Push(Operand{Type: t, Shape: s})
			l.grow(addrWords)

			continue
		}

		l.Types.Push(Operand{Type: t})
		l.grow(t.Words())
	}

	if out.Len() != 0 {
		return errors.Wrap(ErrQueueNotDrained, "%d output shapes left", out.Len())
	}

	return nil
}

func classify(o Operand) (mat.Shape, error) {
	if !o.Shape.Valid() {
		return mat.Shape{}, errors.Wrap(ErrMissingMemory, "%v", o.Type)
	}

	return o.Shape, nil
}

func (SameShape) CheckShapes(in, out *ShapeQueue) error {
	ref, err := in.Remove()
	if err != nil {
		return err
	}

	for in.Len() != 0 {
		s, _ := in.Remove()

		if s != ref {
			return errors.Wrap(ErrShapeMismatch, "%dx%d vs %dx%d", ref.Rows, ref.Cols, s.Rows, s.Cols)
		}
	}

	out.Insert(ref)

	return nil
}

func (SameShapeSink) CheckShapes(in, out *ShapeQueue) error {
	dst, err := in.Remove()
	if err != nil {
		return err
	}

	src, err := in.Remove()
	if err != nil {
		return err
	}

	if dst != src {
		return errors.Wrap(ErrShapeMismatch, "%dx%d into %dx%d", src.Rows, src.Cols, dst.Rows, dst.Cols)
	}

	return nil
}

func (KeepShape) CheckShapes(in, out *ShapeQueue) error {
	s, err := in.Remove()
	if err != nil {
		return err
	}

	out.Insert(s)

	return nil
}

func (ProductShape) CheckShapes(in, out *ShapeQueue) error {
	r, err := in.Remove()
	if err != nil {
		return err
	}

	l, err := in.Remove()
	if err != nil {
		return err
	}

	s, ok := l.Product(r)
	if !ok {
		return errors.Wrap(ErrShapeMismatch, "product of %dx%d and %dx%d", l.Rows, l.Cols, r.Rows, r.Cols)
	}

	out.Insert(s)

	return nil
}

func (ReadMatrix) SizeStack(f *Func, l *Layout, matchOutput bool) error {
	o, err := l.Types.Peek(0)
	if err != nil {
		return err
	}

	_, err = classify(o)
	if err != nil {
		return err
	}

	l.grow(addrWords)

	return nil
}
