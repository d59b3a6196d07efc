package op

import (
	"math"

	"github.com/slowlang/rteval/compiler/tp"
	"github.com/slowlang/rteval/compiler/vm"
)

type (
	Integer interface {
		int8 | int16 | int32 | int64 |
			uint8 | uint16 | uint32 | uint64
	}

	Number interface {
		Integer | float32 | float64
	}
)

// ScalarFuncs are the scalar operators.
// Binary operators compute x2 op x1 where x1 is the top of the stack.
func ScalarFuncs() []Func {
	var l []Func

	l = numericFuncs[float64](l)
	l = numericFuncs[float32](l)
	l = numericFuncs[uint64](l)
	l = numericFuncs[int64](l)
	l = numericFuncs[uint32](l)
	l = numericFuncs[int32](l)
	l = numericFuncs[uint16](l)
	l = numericFuncs[int16](l)
	l = numericFuncs[uint8](l)
	l = numericFuncs[int8](l)

	l = floatFuncs[float64](l)
	l = floatFuncs[float32](l)

	l = booleanFuncs(l)

	l = castsFrom[float64](l)
	l = castsFrom[float32](l)
	l = castsFrom[uint64](l)
	l = castsFrom[int64](l)
	l = castsFrom[uint32](l)
	l = castsFrom[int32](l)
	l = castsFrom[uint16](l)
	l = castsFrom[int16](l)
	l = castsFrom[uint8](l)
	l = castsFrom[int8](l)

	return l
}

func numericFuncs[T Number](l []Func) []Func {
	t := vm.TypeOf[T]()
	v := t.String()

	un := []tp.Type{t}
	bin := []tp.Type{t, t}
	res := []tp.Type{t}
	cmp := []tp.Type{tp.Boolean}

	return append(l,
		Func{Name: "READ", Variant: v, Out: res, Exec: read[T]},
		Func{Name: "WRITE", Variant: v, In: un, Dest: t, Exec: write[T]},
		Func{Name: "DUP", Variant: v, In: un, Out: bin, Exec: dup[T]},

		Func{Name: "ADD", Variant: v, In: bin, Out: res, Exec: binary(func(x2, x1 T) T { return x2 + x1 })},
		Func{Name: "SUB", Variant: v, In: bin, Out: res, Exec: binary(func(x2, x1 T) T { return x2 - x1 })},
		Func{Name: "MUL", Variant: v, In: bin, Out: res, Exec: binary(func(x2, x1 T) T { return x2 * x1 })},
		Func{Name: "DIV", Variant: v, In: bin, Out: res, Exec: div[T](t.Kind == tp.Float)},

		Func{Name: "EQ", Variant: v, In: bin, Out: cmp, Exec: compare(func(x2, x1 T) bool { return x2 == x1 })},
		Func{Name: "NEQ", Variant: v, In: bin, Out: cmp, Exec: compare(func(x2, x1 T) bool { return x2 != x1 })},
		Func{Name: "GT", Variant: v, In: bin, Out: cmp, Exec: compare(func(x2, x1 T) bool { return x2 > x1 })},
		Func{Name: "LT", Variant: v, In: bin, Out: cmp, Exec: compare(func(x2, x1 T) bool { return x2 < x1 })},
		Func{Name: "GTE", Variant: v, In: bin, Out: cmp, Exec: compare(func(x2, x1 T) bool { return x2 >= x1 })},
		Func{Name: "LTE", Variant: v, In: bin, Out: cmp, Exec: compare(func(x2, x1 T) bool { return x2 <= x1 })},
	)
}

func floatFuncs[T float32 | float64](l []Func) []Func {
	t := vm.TypeOf[T]()
	v := t.String()

	un := []tp.Type{t}
	bin := []tp.Type{t, t}

	return append(l,
		Func{Name: "SIN", Variant: v, In: un, Out: un, Exec: unary[T](math.Sin)},
		Func{Name: "COS", Variant: v, In: un, Out: un, Exec: unary[T](math.Cos)},
		Func{Name: "TAN", Variant: v, In: un, Out: un, Exec: unary[T](math.Tan)},
		Func{Name: "EXP", Variant: v, In: un, Out: un, Exec: unary[T](math.Exp)},
		Func{Name: "LOG", Variant: v, In: un, Out: un, Exec: unary[T](math.Log)},
		Func{Name: "LOG10", Variant: v, In: un, Out: un, Exec: unary[T](math.Log10)},
		Func{Name: "POW", Variant: v, In: bin, Out: un, Exec: binary(func(x2, x1 T) T { return T(math.Pow(float64(x2), float64(x1))) })},
	)
}

func booleanFuncs(l []Func) []Func {
	t := tp.Boolean
	v := t.String()

	un := []tp.Type{t}
	bin := []tp.Type{t, t}

	return append(l,
		Func{Name: "READ", Variant: v, Out: un, Exec: read[bool]},
		Func{Name: "WRITE", Variant: v, In: un, Dest: t, Exec: write[bool]},
		Func{Name: "DUP", Variant: v, In: un, Out: bin, Exec: dup[bool]},

		Func{Name: "EQ", Variant: v, In: bin, Out: un, Exec: binary(func(x2, x1 bool) bool { return x2 == x1 })},
		Func{Name: "NEQ", Variant: v, In: bin, Out: un, Exec: binary(func(x2, x1 bool) bool { return x2 != x1 })},
		Func{Name: "AND", Variant: v, In: bin, Out: un, Exec: binary(func(x2, x1 bool) bool { return x2 && x1 })},
		Func{Name: "OR", Variant: v, In: bin, Out: un, Exec: binary(func(x2, x1 bool) bool { return x2 || x1 })},
		Func{Name: "XOR", Variant: v, In: bin, Out: un, Exec: binary(func(x2, x1 bool) bool { return x2 != x1 })},
		Func{Name: "NOT", Variant: v, In: un, Out: un, Exec: not},
	)
}

func castsFrom[S Number](l []Func) []Func {
	return append(l,
		castFunc[S, float64](),
		castFunc[S, float32](),
		castFunc[S, uint64](),
		castFunc[S, int64](),
		castFunc[S, uint32](),
		castFunc[S, int32](),
		castFunc[S, uint16](),
		castFunc[S, int16](),
		castFunc[S, uint8](),
		castFunc[S, int8](),
	)
}

func castFunc[S, D Number]() Func {
	s := vm.TypeOf[S]()
	d := vm.TypeOf[D]()

	return Func{
		Name:    "CAST",
		Variant: s.String() + ">" + d.String(),
		In:      []tp.Type{s},
		Out:     []tp.Type{d},
		Exec:    cast[S, D],
	}
}

func read[T vm.Scalar](c *vm.Context) {
	vm.Push(c, vm.Load[T](c, c.Literal()))
}

func write[T vm.Scalar](c *vm.Context) {
	x := vm.Pop[T](c)
	vm.Store(c, c.Literal(), x)
}

func dup[T vm.Scalar](c *vm.Context) {
	vm.Push(c, vm.Peek[T](c))
}

func not(c *vm.Context) {
	vm.Push(c, !vm.Pop[bool](c))
}

func binary[T, R vm.Scalar](f func(x2, x1 T) R) vm.Routine {
	return func(c *vm.Context) {
		x1 := vm.Pop[T](c)
		x2 := vm.Pop[T](c)

		vm.Push(c, f(x2, x1))
	}
}

func compare[T Number](f func(x2, x1 T) bool) vm.Routine {
	return binary(f)
}

func unary[T float32 | float64](f func(float64) float64) vm.Routine {
	return func(c *vm.Context) {
		x := vm.Pop[T](c)

		vm.Push(c, T(f(float64(x))))
	}
}

func div[T Number](float bool) vm.Routine {
	return func(c *vm.Context) {
		x1 := vm.Pop[T](c)
		x2 := vm.Pop[T](c)

		if x1 == 0 && !float {
			c.Fail(vm.Overflow)
			vm.Push(c, T(0))

			return
		}

		vm.Push(c, x2/x1)
	}
}

func cast[S, D Number](c *vm.Context) {
	x := vm.Pop[S](c)

	y, ok := Convert[S, D](x)
	if !ok {
		c.Fail(vm.OutOfRange)
	}

	vm.Push(c, y)
}

// Convert converts x to D rounding floats to the nearest integer.
// Out of range values saturate and ok is false.
func Convert[S, D Number](x S) (y D, ok bool) {
	d := vm.TypeOf[D]()

	if d.Kind == tp.Float {
		f := float64(x)

		if d.Bits == 32 && math.Abs(f) > math.MaxFloat32 && !math.IsInf(f, 0) {
			return D(math.Copysign(math.MaxFloat32, f)), false
		}

		return D(x), true
	}

	lo, hi := intRange(d)

	switch vm.TypeOf[S]().Kind {
	case tp.Float:
		f := math.Round(float64(x))

		switch {
		case math.IsNaN(f):
			return 0, false
		case f < float64(lo):
			return D(lo), false
		case f >= math.Ldexp(1, positiveBits(d)):
			return D(hi), false
		}

		return D(f), true
	case tp.Signed:
		v := int64(x)

		switch {
		case v < lo:
			return D(lo), false
		case v > 0 && uint64(v) > hi:
			return D(hi), false
		}

		return D(v), true
	default:
		v := uint64(x)

		if v > hi {
			return D(hi), false
		}

		return D(v), true
	}
}

func intRange(t tp.Type) (lo int64, hi uint64) {
	if t.Kind == tp.Signed {
		return -1 << (t.Bits - 1), 1<<(t.Bits-1) - 1
	}

	return 0, math.MaxUint64 >> (64 - t.Bits)
}

func positiveBits(t tp.Type) int {
	if t.Kind == tp.Signed {
		return int(t.Bits) - 1
	}

	return int(t.Bits)
}
