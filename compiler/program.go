package compiler

import (
	"tlog.app/go/errors"

	"github.com/slowlang/rteval/compiler/mat"
	"github.com/slowlang/rteval/compiler/op"
	"github.com/slowlang/rteval/compiler/tp"
	"github.com/slowlang/rteval/compiler/vm"
)

type (
	// Program is a compiled program.
	// It's immutable and may be shared by any number of contexts.
	Program struct {
		Code []vm.Code

		// data segment and run-time stack sizes in words
		MemWords   int
		StackWords int

		Vars     *Variables
		Registry *op.Registry
	}
)

// NewContext creates an execution context for the program.
// Constants are stored and matrices get their own storage.
func (p *Program) NewContext() (*vm.Context, error) {
	c := vm.NewContext(p.Registry.Instrs(), p.Code, p.MemWords, p.StackWords)

	for _, v := range p.Vars.All() {
		if !v.Allocated {
			continue
		}

		switch {
		case v.Type.Matrix && v.Type.SameAs(tp.Float32Matrix):
			c.BindMatrix(v.Addr, mat.New[float32](v.Shape))
		case v.Type.Matrix && v.Type.SameAs(tp.Float64Matrix):
			c.BindMatrix(v.Addr, mat.New[float64](v.Shape))
		case v.Type.Matrix:
			return nil, errors.New("%v: unsupported matrix type %v", v.Name, v.Type)
		case v.Class == Constant:
			err := storeValue(c, v.Addr, v.Value)
			if err != nil {
				return nil, errors.Wrap(err, "%v", v.Name)
			}
		}
	}

	return c, nil
}

// Lookup finds a variable by name preferring outputs.
func (p *Program) Lookup(name string) *Variable {
	return p.Vars.Lookup(name)
}

// Set sets the input variable.
func Set[T vm.Scalar](c *vm.Context, p *Program, name string, x T) error {
	v, err := p.variable(p.Vars.Find(name, Input), name, vm.TypeOf[T]())
	if err != nil {
		return err
	}

	vm.Store(c, v.Addr, x)

	return nil
}

// Get reads the variable.
func Get[T vm.Scalar](c *vm.Context, p *Program, name string) (x T, err error) {
	v, err := p.variable(p.Lookup(name), name, vm.TypeOf[T]())
	if err != nil {
		return x, err
	}

	return vm.Load[T](c, v.Addr), nil
}

// MatrixOf returns the storage of the matrix variable.
func MatrixOf[T mat.Float](c *vm.Context, p *Program, name string) (*mat.Matrix[T], error) {
	v, err := p.variable(p.Lookup(name), name, vm.TypeOf[T]().MatrixOf())
	if err != nil {
		return nil, err
	}

	m := vm.Matrix[T](c, v.Addr)
	if m == nil {
		return nil, errors.New("%v: matrix is not bound", name)
	}

	return m, nil
}

// BindMatrix makes the matrix variable use external storage.
// The shape must match the compiled one.
func BindMatrix[T mat.Float](c *vm.Context, p *Program, name string, m *mat.Matrix[T]) error {
	v, err := p.variable(p.Lookup(name), name, vm.TypeOf[T]().MatrixOf())
	if err != nil {
		return err
	}

	if m == nil || m.Shape() != v.Shape {
		return errors.Wrap(op.ErrShapeMismatch, "bind %v", v)
	}

	c.BindMatrix(v.Addr, m)

	return nil
}

func (p *Program) variable(v *Variable, name string, t tp.Type) (*Variable, error) {
	if v == nil {
		return nil, errors.Wrap(ErrUnknownVariable, "%v", name)
	}

	if !v.Allocated {
		return nil, errors.New("%v: variable is not used by the program", name)
	}

	if !v.Type.SameAs(t) {
		return nil, errors.New("%v: type mismatch: %v, accessed as %v", name, v.Type, t)
	}

	return v, nil
}

// SetText parses s as the value of the scalar input variable.
func SetText(c *vm.Context, p *Program, name, s string) error {
	v := p.Vars.Find(name, Input)
	if v == nil {
		return errors.Wrap(ErrUnknownVariable, "%v", name)
	}

	if !v.Allocated {
		return errors.New("%v: variable is not used by the program", name)
	}

	x, err := ParseValue(v.Type, s)
	if err != nil {
		return errors.Wrap(err, "%v", name)
	}

	return storeValue(c, v.Addr, x)
}

// Value returns the current value of the variable.
// Matrices are returned as *mat.Matrix[T].
func (p *Program) Value(c *vm.Context, v *Variable) (any, error) {
	if !v.Allocated {
		return nil, errors.New("%v: variable is not used by the program", v.Name)
	}

	x := loadValue(c, v)
	if x == nil {
		return nil, errors.New("%v: unsupported type %v", v.Name, v.Type)
	}

	return x, nil
}
