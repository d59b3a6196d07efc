package op

import (
	"github.com/slowlang/rteval/compiler/mat"
	"github.com/slowlang/rteval/compiler/tp"
	"github.com/slowlang/rteval/compiler/vm"
)

// MatrixFuncs are the matrix operators for float32 and float64 elements.
func MatrixFuncs() []Func {
	return append(matrixFuncs[float32](), matrixFuncs[float64]()...)
}

func matrixFuncs[T mat.Float]() []Func {
	s := vm.TypeOf[T]()
	m := s.MatrixOf()
	v := m.String()

	return []Func{
		{Name: "READ", Variant: v, Out: []tp.Type{m}, Exec: matrixRead, Sizer: ReadMatrix{}},
		{Name: "WRITE", Variant: v, In: []tp.Type{m}, Dest: m, Exec: matrixWrite[T], Shapes: SameShapeSink{}},
		{Name: "ADD", Variant: v, In: []tp.Type{m, m}, Out: []tp.Type{m}, Exec: matrixAdd[T]},
		{Name: "MUL", Variant: v, In: []tp.Type{m, s}, Out: []tp.Type{m}, Exec: matrixScale[T], Shapes: KeepShape{}},
		{Name: "MUL", Variant: v + "R", In: []tp.Type{s, m}, Out: []tp.Type{m}, Exec: matrixScaleR[T], Shapes: KeepShape{}},
		{Name: "MUL", Variant: v + "M", In: []tp.Type{m, m}, Out: []tp.Type{m}, Exec: matrixProduct[T], Shapes: ProductShape{}},
	}
}

func matrixRead(c *vm.Context) {
	vm.Push(c, c.Literal())
}

func matrixWrite[T mat.Float](c *vm.Context) {
	y := vm.Pop[vm.Addr](c)
	dst := c.Literal()

	if !vm.Matrix[T](c, dst).Copy(vm.Matrix[T](c, y)) {
		c.Fail(vm.InternalSetup)
	}
}

func matrixAdd[T mat.Float](c *vm.Context) {
	y1 := vm.Pop[vm.Addr](c)
	y2 := vm.Pop[vm.Addr](c)
	res := c.Literal()

	if !vm.Matrix[T](c, y1).Sum(vm.Matrix[T](c, y2), vm.Matrix[T](c, res)) {
		c.Fail(vm.InternalSetup)
	}

	vm.Push(c, res)
}

func matrixScale[T mat.Float](c *vm.Context) {
	y := vm.Pop[vm.Addr](c)
	a := vm.Pop[T](c)
	res := c.Literal()

	if !vm.Matrix[T](c, y).Scale(a, vm.Matrix[T](c, res)) {
		c.Fail(vm.InternalSetup)
	}

	vm.Push(c, res)
}

func matrixScaleR[T mat.Float](c *vm.Context) {
	a := vm.Pop[T](c)
	y := vm.Pop[vm.Addr](c)
	res := c.Literal()

	if !vm.Matrix[T](c, y).Scale(a, vm.Matrix[T](c, res)) {
		c.Fail(vm.InternalSetup)
	}

	vm.Push(c, res)
}

func matrixProduct[T mat.Float](c *vm.Context) {
	r := vm.Pop[vm.Addr](c)
	l := vm.Pop[vm.Addr](c)
	res := c.Literal()

	if !vm.Matrix[T](c, l).Product(vm.Matrix[T](c, r), vm.Matrix[T](c, res)) {
		c.Fail(vm.InternalSetup)
	}

	vm.Push(c, res)
}
