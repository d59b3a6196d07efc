package op

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/errors"

	"github.com/slowlang/rteval/compiler/mat"
	"github.com/slowlang/rteval/compiler/tp"
	"github.com/slowlang/rteval/compiler/vm"
)

type badShapes struct{}

func (badShapes) CheckShapes(in, out *ShapeQueue) error { return nil }

func nop(c *vm.Context) {}

func matrix(t tp.Type, rows, cols uint32) Operand {
	return Operand{Type: t, Shape: mat.Shape{Rows: rows, Cols: cols}}
}

func TestMatchOrder(t *testing.T) {
	r, err := NewRegistry([]Func{
		{Name: "ADD", Variant: "first", In: []tp.Type{tp.Int32, tp.Int32}, Out: []tp.Type{tp.Int32}, Exec: nop},
		{Name: "ADD", Variant: "second", In: []tp.Type{tp.Int32, tp.Int32}, Out: []tp.Type{tp.Int64}, Exec: nop},
		{Name: "ADD", Variant: "float", In: []tp.Type{tp.Float32, tp.Float32}, Out: []tp.Type{tp.Float32}, Exec: nop},
	})
	require.NoError(t, err)

	var l Layout
	l.Types.Push(Operand{Type: tp.Int32})
	l.Types.Push(Operand{Type: tp.Int32})

	c, err := r.Match("ADD", &l.Types, false)
	require.NoError(t, err)
	assert.Equal(t, "first", r.Func(c).Variant)

	// destination on top selects by the output type
	l.Types.Push(Operand{Type: tp.Int64})

	c, err = r.Match("ADD", &l.Types, true)
	require.NoError(t, err)
	assert.Equal(t, "second", r.Func(c).Variant)

	_, err = r.Match("ADD", &l.Types, false)
	assert.True(t, errors.Is(err, ErrNoMatch))

	_, err = r.Match("SUB", &l.Types, false)
	assert.True(t, errors.Is(err, ErrNoMatch))
	assert.Contains(t, err.Error(), "unknown operator SUB")
}

func TestRegistryValidation(t *testing.T) {
	_, err := NewRegistry([]Func{{Name: "X"}})
	assert.Error(t, err)

	r := Builtin()
	assert.Same(t, r, Builtin())
	assert.Len(t, r.Instrs(), r.Len())
	assert.Nil(t, r.Func(vm.Code(r.Len())))
}

func TestScalarSizing(t *testing.T) {
	r := Builtin()

	var l Layout

	// READ a; READ b; ADD; WRITE c
	for i := 0; i < 2; i++ {
		l.Types.Push(Operand{Type: tp.Float64})

		c, err := r.Match("READ", &l.Types, true)
		require.NoError(t, err)
		require.NoError(t, r.Finalize(c, &l, true))
	}

	assert.Equal(t, 4, l.Size)

	c, err := r.Match("ADD", &l.Types, false)
	require.NoError(t, err)
	require.NoError(t, r.Finalize(c, &l, false))

	assert.Equal(t, 2, l.Size)

	l.Types.Push(Operand{Type: tp.Float64})

	c, err = r.Match("WRITE", &l.Types, true)
	require.NoError(t, err)
	require.NoError(t, r.Finalize(c, &l, true))

	assert.Equal(t, 0, l.Size)
	assert.Equal(t, 4, l.Max)
	assert.Equal(t, 0, l.Types.Len())
}

func TestMultipleOutputs(t *testing.T) {
	r := Builtin()

	var l Layout
	l.Types.Push(Operand{Type: tp.Int16})
	l.grow(1)

	c, err := r.Match("DUP", &l.Types, false)
	require.NoError(t, err)
	require.NoError(t, r.Finalize(c, &l, false))

	assert.Equal(t, 2, l.Types.Len())
	assert.Equal(t, 2, l.Size)
	assert.Equal(t, 2, l.Max)
}

func TestMatrixSum(t *testing.T) {
	r := Builtin()

	var l Layout
	l.Types.Push(matrix(tp.Float32Matrix, 2, 3))
	l.Types.Push(matrix(tp.Float32Matrix, 2, 3))
	l.grow(2)

	c, err := r.Match("ADD", &l.Types, false)
	require.NoError(t, err)
	require.NoError(t, r.Finalize(c, &l, false))

	require.Len(t, l.Temps, 1)
	assert.Equal(t, Temporary{Name: "Temp@0", Type: tp.Float32Matrix, Shape: mat.Shape{Rows: 2, Cols: 3}}, l.Temps[0])

	o, err := l.Types.Peek(0)
	require.NoError(t, err)
	assert.Equal(t, matrix(tp.Float32Matrix, 2, 3), o)
	assert.Equal(t, 1, l.Size)

	l.Types.Reset()
	l.Types.Push(matrix(tp.Float32Matrix, 2, 3))
	l.Types.Push(matrix(tp.Float32Matrix, 3, 2))

	c, err = r.Match("ADD", &l.Types, false)
	require.NoError(t, err)

	err = r.Finalize(c, &l, false)
	assert.True(t, errors.Is(err, ErrShapeMismatch), "%v", err)
}

func TestMatrixProduct(t *testing.T) {
	r := Builtin()

	var l Layout
	l.Types.Push(matrix(tp.Float64Matrix, 2, 3)) // lhs
	l.Types.Push(matrix(tp.Float64Matrix, 3, 4)) // rhs on top
	l.grow(2)

	c, err := r.Match("MUL", &l.Types, false)
	require.NoError(t, err)
	assert.Equal(t, "float64_MM", r.Func(c).Variant)

	require.NoError(t, r.Finalize(c, &l, false))

	o, err := l.Types.Pop()
	require.NoError(t, err)
	assert.Equal(t, matrix(tp.Float64Matrix, 2, 4), o)

	l.Types.Push(matrix(tp.Float64Matrix, 2, 3))
	l.Types.Push(matrix(tp.Float64Matrix, 2, 3))

	c, err = r.Match("MUL", &l.Types, false)
	require.NoError(t, err)

	err = r.Finalize(c, &l, false)
	assert.True(t, errors.Is(err, ErrShapeMismatch))

	require.Len(t, l.Temps, 1)
	assert.Equal(t, "Temp@0", l.Temps[0].Name)
}

func TestMatrixScale(t *testing.T) {
	r := Builtin()

	for _, sc := range []struct {
		st []Operand
		v  string
	}{
		{st: []Operand{{Type: tp.Float32}, matrix(tp.Float32Matrix, 4, 1)}, v: "float32_M"},
		{st: []Operand{matrix(tp.Float32Matrix, 4, 1), {Type: tp.Float32}}, v: "float32_MR"},
	} {
		var l Layout

		for _, o := range sc.st {
			l.Types.Push(o)
		}

		l.grow(2)

		c, err := r.Match("MUL", &l.Types, false)
		require.NoError(t, err)
		assert.Equal(t, sc.v, r.Func(c).Variant)

		require.NoError(t, r.Finalize(c, &l, false))

		o, err := l.Types.Pop()
		require.NoError(t, err)
		assert.Equal(t, matrix(tp.Float32Matrix, 4, 1), o)
		assert.Equal(t, "Temp@0", l.Temps[0].Name)
	}
}

func TestTemporaryNames(t *testing.T) {
	r := Builtin()

	var l Layout

	for i := 0; i < 2; i++ {
		l.Types.Push(matrix(tp.Float64Matrix, 1, 1))
		l.Types.Push(matrix(tp.Float64Matrix, 1, 1))
		l.grow(2)

		c, err := r.Match("ADD", &l.Types, false)
		require.NoError(t, err)
		require.NoError(t, r.Finalize(c, &l, false))
	}

	require.Len(t, l.Temps, 2)
	assert.Equal(t, "Temp@0", l.Temps[0].Name)
	assert.Equal(t, "Temp@1", l.Temps[1].Name)
}

func TestMatrixWrite(t *testing.T) {
	r := Builtin()

	var l Layout
	l.Types.Push(matrix(tp.Float32Matrix, 2, 2))
	l.Types.Push(matrix(tp.Float32Matrix, 2, 2))
	l.grow(1)

	c, err := r.Match("WRITE", &l.Types, true)
	require.NoError(t, err)
	require.NoError(t, r.Finalize(c, &l, true))

	assert.Equal(t, 0, l.Types.Len())
	assert.Equal(t, 0, l.Size)
	assert.Len(t, l.Temps, 0)

	l.Types.Push(matrix(tp.Float32Matrix, 2, 2))
	l.Types.Push(matrix(tp.Float32Matrix, 1, 2))

	c, err = r.Match("WRITE", &l.Types, true)
	require.NoError(t, err)

	err = r.Finalize(c, &l, true)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestMissingMemory(t *testing.T) {
	r := Builtin()

	var l Layout
	l.Types.Push(Operand{Type: tp.Float32Matrix})

	c, err := r.Match("READ", &l.Types, true)
	require.NoError(t, err)

	err = r.Finalize(c, &l, true)
	assert.True(t, errors.Is(err, ErrMissingMemory))
}

func TestQueueNotDrained(t *testing.T) {
	r, err := NewRegistry([]Func{
		{Name: "ADD", In: []tp.Type{tp.Float32Matrix, tp.Float32Matrix}, Out: []tp.Type{tp.Float32Matrix}, Exec: nop, Shapes: badShapes{}},
	})
	require.NoError(t, err)

	var l Layout
	l.Types.Push(matrix(tp.Float32Matrix, 1, 1))
	l.Types.Push(matrix(tp.Float32Matrix, 1, 1))

	err = r.Finalize(0, &l, false)
	assert.True(t, errors.Is(err, ErrQueueNotDrained))
}

func TestUnderflow(t *testing.T) {
	r := Builtin()

	var l Layout
	l.Types.Push(Operand{Type: tp.Int8})

	_, err := r.Match("ADD", &l.Types, false)
	assert.True(t, errors.Is(err, ErrNoMatch))

	// the value to write was never pushed at run time
	l.Types.Reset()
	l.Types.Push(Operand{Type: tp.Float64})
	l.Types.Push(Operand{Type: tp.Float64})

	c, err := r.Match("WRITE", &l.Types, true)
	require.NoError(t, err)

	err = r.Finalize(c, &l, true)
	assert.True(t, errors.Is(err, ErrStackUnderflow))
}

func TestConvert(t *testing.T) {
	v8, ok := Convert[float64, int8](200.4)
	assert.False(t, ok)
	assert.Equal(t, int8(127), v8)

	v8, ok = Convert[float64, int8](-2.5)
	assert.True(t, ok)
	assert.Equal(t, int8(-3), v8)

	u8, ok := Convert[int32, uint8](-1)
	assert.False(t, ok)
	assert.Equal(t, uint8(0), u8)

	i64, ok := Convert[uint64, int64](math.MaxUint64)
	assert.False(t, ok)
	assert.Equal(t, int64(math.MaxInt64), i64)

	u64, ok := Convert[float64, uint64](math.Ldexp(1, 64))
	assert.False(t, ok)
	assert.Equal(t, uint64(math.MaxUint64), u64)

	_, ok = Convert[float32, int32](float32(math.NaN()))
	assert.False(t, ok)

	f32, ok := Convert[float64, float32](1e300)
	assert.False(t, ok)
	assert.Equal(t, float32(math.MaxFloat32), f32)

	f64, ok := Convert[int16, float64](-7)
	assert.True(t, ok)
	assert.Equal(t, -7.0, f64)
}

func run(t *testing.T, mode vm.Mode, code []vm.Code, mem, stack int, setup func(c *vm.Context)) *vm.Context {
	t.Helper()

	c := vm.NewContext(Builtin().Instrs(), code, mem, stack)
	setup(c)

	_ = c.Execute(mode, nil)

	return c
}

func code(t *testing.T, name, variant string) vm.Code {
	t.Helper()

	for i, f := range Builtin().Funcs() {
		if f.Name == name && f.Variant == variant {
			return vm.Code(i)
		}
	}

	t.Fatalf("no operator %v %v", name, variant)

	return vm.InvalidCode
}

func TestScalarRoutines(t *testing.T) {
	rd := code(t, "READ", "int32")
	wr := code(t, "WRITE", "int32")
	dv := code(t, "DIV", "int32")
	sub := code(t, "SUB", "int32")

	// mem[2] = mem[0] - mem[1]
	c := run(t, vm.Safe, []vm.Code{rd, 0, rd, 1, sub, wr, 2}, 3, 2, func(c *vm.Context) {
		vm.Store(c, 0, int32(10))
		vm.Store(c, 1, int32(3))
	})

	assert.Equal(t, vm.Fault(0), c.Faults)
	assert.Equal(t, int32(7), vm.Load[int32](c, 2))

	c = run(t, vm.Safe, []vm.Code{rd, 0, rd, 1, dv, wr, 2}, 3, 2, func(c *vm.Context) {
		vm.Store(c, 0, int32(10))
	})

	assert.True(t, c.Faults.Has(vm.Overflow))
	assert.True(t, c.Faults.Has(vm.NotCompleted))
	assert.Equal(t, int32(0), vm.Load[int32](c, 2))
}

func TestCastRoutine(t *testing.T) {
	rd := code(t, "READ", "float64")
	cast := code(t, "CAST", "float64>uint8")
	wr := code(t, "WRITE", "uint8")

	c := run(t, vm.Fast, []vm.Code{rd, 0, cast, wr, 2}, 3, 2, func(c *vm.Context) {
		vm.Store(c, 0, float64(300))
	})

	assert.True(t, c.Faults.Has(vm.OutOfRange))
	assert.Equal(t, uint8(255), vm.Load[uint8](c, 2))
}

func TestCompareRoutine(t *testing.T) {
	rd := code(t, "READ", "float32")
	gt := code(t, "GT", "float32")
	not := code(t, "NOT", "boolean")
	wr := code(t, "WRITE", "boolean")

	// mem[2] = !(mem[0] > mem[1])
	c := run(t, vm.Safe, []vm.Code{rd, 0, rd, 1, gt, not, wr, 2}, 3, 2, func(c *vm.Context) {
		vm.Store(c, 0, float32(1))
		vm.Store(c, 1, float32(2))
	})

	assert.Equal(t, vm.Fault(0), c.Faults)
	assert.True(t, vm.Load[bool](c, 2))
}

func TestMatrixRoutines(t *testing.T) {
	rd := code(t, "READ", "float64_M")
	mul := code(t, "MUL", "float64_MM")
	wr := code(t, "WRITE", "float64_M")

	a, err := mat.Wrap(mat.Shape{Rows: 2, Cols: 3}, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	b, err := mat.Wrap(mat.Shape{Rows: 3, Cols: 2}, []float64{7, 8, 9, 10, 11, 12})
	require.NoError(t, err)

	tmp := mat.New[float64](mat.Shape{Rows: 2, Cols: 2})
	out := mat.New[float64](mat.Shape{Rows: 2, Cols: 2})

	c := run(t, vm.Safe, []vm.Code{rd, 0, rd, 1, mul, 2, wr, 3}, 4, 2, func(c *vm.Context) {
		c.BindMatrix(0, a)
		c.BindMatrix(1, b)
		c.BindMatrix(2, tmp)
		c.BindMatrix(3, out)
	})

	assert.Equal(t, vm.Fault(0), c.Faults)
	assert.Equal(t, []float64{58, 64, 139, 154}, out.Data())

	// result storage not set up
	c = run(t, vm.Safe, []vm.Code{rd, 0, rd, 1, mul, 2, wr, 3}, 4, 2, func(c *vm.Context) {
		c.BindMatrix(0, a)
		c.BindMatrix(1, b)
	})

	assert.True(t, c.Faults.Has(vm.InternalSetup))

	// unbound temporary must not alias the first bound matrix
	add := code(t, "ADD", "float64_M")

	x, err := mat.Wrap(mat.Shape{Rows: 2, Cols: 2}, []float64{1, 2, 3, 4})
	require.NoError(t, err)

	y, err := mat.Wrap(mat.Shape{Rows: 2, Cols: 2}, []float64{10, 20, 30, 40})
	require.NoError(t, err)

	out = mat.New[float64](mat.Shape{Rows: 2, Cols: 2})

	c = run(t, vm.Safe, []vm.Code{rd, 0, rd, 1, add, 2, wr, 3}, 4, 2, func(c *vm.Context) {
		c.BindMatrix(0, x)
		c.BindMatrix(1, y)
		c.BindMatrix(3, out)
	})

	assert.True(t, c.Faults.Has(vm.InternalSetup))
	assert.Equal(t, []float64{1, 2, 3, 4}, x.Data())
	assert.Equal(t, []float64{0, 0, 0, 0}, out.Data())
}
