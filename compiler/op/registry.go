package op

import (
	"slices"
	"sync"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slowlang/rteval/compiler/vm"
)

type (
	// Registry is an ordered, immutable operator table.
	// Matching returns the first record which signature fits,
	// so registration order resolves overloads.
	Registry struct {
		funcs []Func
	}
)

var (
	ErrNoMatch      = errors.New("no matching operator")
	ErrRegistryFull = errors.New("operator registry full")
)

var Builtin = sync.OnceValue(func() *Registry {
	r, err := NewRegistry(ScalarFuncs(), MatrixFuncs())
	if err != nil {
		panic(err)
	}

	return r
})

func NewRegistry(lists ...[]Func) (*Registry, error) {
	r := &Registry{}

	for _, l := range lists {
		for _, f := range l {
			if f.Name == "" || f.Exec == nil {
				return nil, errors.New("incomplete operator record: %v", f.String())
			}

			if len(r.funcs) >= int(vm.InvalidCode) {
				return nil, errors.Wrap(ErrRegistryFull, "add %v", f.String())
			}

			f.In = slices.Clip(f.In)
			f.Out = slices.Clip(f.Out)

			r.funcs = append(r.funcs, f)
		}
	}

	return r, nil
}

func (r *Registry) Len() int { return len(r.funcs) }

// Func returns the record for the code.
// The record must not be modified.
func (r *Registry) Func(c vm.Code) *Func {
	if int(c) >= len(r.funcs) {
		return nil
	}

	return &r.funcs[c]
}

func (r *Registry) Funcs() []Func {
	return slices.Clone(r.funcs)
}

// Instrs is the dispatch table for vm.Context.
func (r *Registry) Instrs() []vm.Instr {
	l := make([]vm.Instr, len(r.funcs))

	for i, f := range r.funcs {
		l[i] = vm.Instr{Name: f.Name, Exec: f.Exec}
	}

	return l
}

// Match finds the first record named name which signature matches the stack top.
// If matchOutput is set the top of the stack holds the destination
// and it must match the record output type.
func (r *Registry) Match(name string, st *TypeStack, matchOutput bool) (vm.Code, error) {
	named := false

	for i := range r.funcs {
		f := &r.funcs[i]

		if f.Name != name {
			continue
		}

		named = true

		if !f.accepts(st, matchOutput) {
			continue
		}

		if tlog.If("op_match") {
			tlog.Printw("operator matched", "name", name, "code", i, "sig", f.String(), "stack", st, "from", loc.Caller(1))
		}

		return vm.Code(i), nil
	}

	n := 2
	if matchOutput {
		n++
	}

	if !named {
		return vm.InvalidCode, errors.Wrap(ErrNoMatch, "unknown operator %v", name)
	}

	return vm.InvalidCode, errors.Wrap(ErrNoMatch, "%v%v", name, st.Describe(n))
}

// Finalize updates the layout with the effect of the matched operator.
func (r *Registry) Finalize(c vm.Code, l *Layout, matchOutput bool) (err error) {
	f := r.Func(c)
	if f == nil {
		return errors.New("invalid operator code: %d", c)
	}

	if f.Sizer != nil {
		err = f.Sizer.SizeStack(f, l, matchOutput)
	} else {
		err = SizeStack(f, l, matchOutput)
	}

	if err != nil {
		return errors.Wrap(err, "%v", f.String())
	}

	if l.Size < 0 {
		return errors.Wrap(ErrStackUnderflow, "%v: stack size %d", f.String(), l.Size)
	}

	return nil
}
