package format

import (
	"context"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/slowlang/rteval/compiler"
	"github.com/slowlang/rteval/compiler/op"
)

type (
	Options struct {
		// ShowTypes appends operator signatures to decompiled instructions.
		ShowTypes bool
	}
)

func Format(ctx context.Context, b []byte, x any) ([]byte, error) {
	return FormatOptions(ctx, b, x, Options{})
}

func FormatOptions(ctx context.Context, b []byte, x any, opts Options) ([]byte, error) {
	switch x := x.(type) {
	case *compiler.Program:
		return Decompile(b, x, opts.ShowTypes)
	case *op.Registry:
		return formatRegistry(b, x), nil
	case *compiler.Variables:
		return formatVariables(b, x), nil
	default:
		return nil, errors.New("unsupported type: %T", x)
	}
}

// Decompile regenerates the program text.
// Constants are printed as CONST and temporaries are skipped.
func Decompile(b []byte, p *compiler.Program, showTypes bool) ([]byte, error) {
	code := p.Code

	for pc := 0; pc < len(code); {
		at := pc

		f := p.Registry.Func(code[pc])
		if f == nil {
			return nil, errors.New("illegal code %d at %d", code[pc], at)
		}

		pc++

		var v *compiler.Variable

		if f.Name == "READ" || f.Name == "WRITE" {
			if pc == len(code) {
				return nil, errors.New("%v at %d: address expected", f.Name, at)
			}

			v = p.Vars.At(code[pc])
			if v == nil {
				return nil, errors.New("%v at %d: no variable at address %d", f.Name, at, code[pc])
			}

			pc++
		} else {
			pc += temporaries(f)
		}

		switch {
		case v != nil && v.Class == compiler.Constant:
			b = hfmt.Appendf(b, "CONST %v %v", v.Type, v.Value)
		case v != nil:
			b = hfmt.Appendf(b, "%s %s", f.Name, v.Name)
		case f.Name == "CAST":
			b = hfmt.Appendf(b, "CAST %v", f.Out[0])
		default:
			b = append(b, f.Name...)
		}

		if showTypes {
			b = appendSig(b, f)
		}

		b = append(b, '\n')
	}

	return b, nil
}

// temporaries is the number of address literals following the operator.
// Every matrix result of a generic operator is a new temporary.
func temporaries(f *op.Func) (n int) {
	for _, t := range f.Out {
		if t.Matrix {
			n++
		}
	}

	return n
}

func appendSig(b []byte, f *op.Func) []byte {
	b = append(b, " ("...)

	for i, t := range f.In {
		if i != 0 {
			b = append(b, ',')
		}

		b = append(b, t.String()...)
	}

	b = append(b, ')')

	if len(f.Out) == 0 {
		return b
	}

	b = append(b, " => ("...)

	for i, t := range f.Out {
		if i != 0 {
			b = append(b, ',')
		}

		b = append(b, t.String()...)
	}

	return append(b, ')')
}

func formatRegistry(b []byte, r *op.Registry) []byte {
	for i, f := range r.Funcs() {
		b = hfmt.Appendf(b, "%4d  %-6s %-18s %s\n", i, f.Name, f.Variant, f.String())
	}

	return b
}

func formatVariables(b []byte, vs *compiler.Variables) []byte {
	for _, v := range vs.All() {
		b = hfmt.Appendf(b, "%-10s %-12s %-10v", v.Name, v.Class, v.Type)

		if v.Type.Matrix {
			b = hfmt.Appendf(b, " %dx%d", v.Shape.Rows, v.Shape.Cols)
		}

		if v.Allocated {
			b = hfmt.Appendf(b, " @%d", v.Addr)
		}

		if v.Class == compiler.Constant {
			b = hfmt.Appendf(b, " = %v", v.Value)
		}

		b = append(b, '\n')
	}

	return b
}
