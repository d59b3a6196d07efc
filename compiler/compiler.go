package compiler

import (
	"context"
	"os"
	"strconv"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/rteval/compiler/op"
	"github.com/slowlang/rteval/compiler/tp"
	"github.com/slowlang/rteval/compiler/vm"
)

type (
	state struct {
		tr tlog.Span

		reg  *op.Registry
		vars *Variables

		seg  vm.Segment
		l    op.Layout
		code []vm.Code
	}
)

func CompileFile(ctx context.Context, name string, vars *Variables, reg *op.Registry) (*Program, error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Compile(ctx, string(text), vars, reg)
}

// Compile compiles RPN program text.
// vars declares the variable types, it's not modified.
// If vars is nil the variables are extracted from the text and must be all outputs.
// Builtin registry is used if reg is nil.
func Compile(ctx context.Context, text string, vars *Variables, reg *op.Registry) (p *Program, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "compile", "size", len(text))
	defer tr.Finish("err", &err)

	if reg == nil {
		reg = op.Builtin()
	}

	if vars == nil {
		vars, err = ExtractVariables(text)
		if err != nil {
			return nil, errors.Wrap(err, "extract variables")
		}
	} else {
		vars = vars.Clone()
	}

	s := &state{
		tr:   tr,
		reg:  reg,
		vars: vars,
	}

	for i, line := range strings.Split(text, "\n") {
		cmd, args := splitLine(line)
		if cmd == "" {
			continue
		}

		err = s.instr(cmd, args)
		if err != nil {
			return nil, errors.Wrap(err, "line %d: %v", i+1, strings.TrimSpace(line))
		}
	}

	if n := s.l.Types.Len(); n != 0 {
		return nil, errors.Wrap(ErrIncomplete, "%d operands left in stack %v", n, s.l.Types.Describe(n))
	}

	p = &Program{
		Code:       s.code,
		MemWords:   s.seg.Size(),
		StackWords: s.l.Max,
		Vars:       vars,
		Registry:   reg,
	}

	tr.Printw("compiled", "code", len(p.Code), "mem_words", p.MemWords, "stack_words", p.StackWords, "vars", vars.Len())

	return p, nil
}

func (s *state) instr(cmd string, args []string) (err error) {
	lit := vm.InvalidCode
	matchOutput := false

	switch cmd {
	case rreadToken, rwriteToken:
		return errors.Wrap(ErrReserved, "%v", cmd)
	case castToken:
		if len(args) != 1 {
			return errors.Wrap(ErrSyntax, "%v without type name", cmd)
		}

		t, err := tp.Parse(args[0])
		if err != nil {
			return err
		}

		s.l.Types.Push(op.Operand{Type: t})
		matchOutput = true
	case writeToken:
		if len(args) != 1 {
			return errors.Wrap(ErrSyntax, "%v without variable name", cmd)
		}

		v := s.vars.Find(args[0], Output)
		if v == nil || v.Class != Output {
			return errors.Wrap(ErrUnknownVariable, "output %v", args[0])
		}

		if v.Allocated {
			return errors.Wrap(ErrOverwrite, "%v", v.Name)
		}

		if v.Type.IsVoid() {
			o, err := s.l.Types.Peek(0)
			if err != nil {
				return errors.Wrap(err, "expecting source type for %v", v.Name)
			}

			v.Type, v.Shape = o.Type, o.Shape
		}

		err = s.alloc(v)
		if err != nil {
			return err
		}

		s.push(v)
		matchOutput = true
		lit = v.Addr
	case readToken:
		if len(args) != 1 {
			return errors.Wrap(ErrSyntax, "%v without variable name", cmd)
		}

		v := s.vars.Find(args[0], Output)
		if v == nil || !v.Allocated {
			v = s.vars.Find(args[0], Input)
		}

		if v == nil {
			return errors.Wrap(ErrUnknownVariable, "input %v", args[0])
		}

		if !v.Allocated {
			if v.Type.IsVoid() {
				return errors.Wrap(ErrUntyped, "%v", v.Name)
			}

			err = s.alloc(v)
			if err != nil {
				return err
			}
		}

		s.push(v)
		matchOutput = true
		lit = v.Addr
	case constToken:
		if len(args) != 2 {
			return errors.Wrap(ErrSyntax, "%v without type name and value", cmd)
		}

		t, err := tp.Parse(args[0])
		if err != nil {
			return err
		}

		val, err := ParseValue(t, args[1])
		if err != nil {
			return err
		}

		v := &Variable{
			Name:  constPrefix + strconv.Itoa(s.l.NextTemp),
			Class: Constant,
			Type:  t,
			Value: val,
		}

		s.l.NextTemp++

		err = s.alloc(v)
		if err != nil {
			return err
		}

		s.vars.Add(v)

		s.push(v)
		matchOutput = true
		lit = v.Addr

		cmd = readToken
	default:
		if len(args) != 0 {
			return errors.Wrap(ErrSyntax, "%v takes no arguments", cmd)
		}
	}

	code, err := s.reg.Match(cmd, &s.l.Types, matchOutput)
	if err != nil {
		return err
	}

	temps := len(s.l.Temps)

	err = s.reg.Finalize(code, &s.l, matchOutput)
	if err != nil {
		return err
	}

	s.code = append(s.code, code)

	if lit != vm.InvalidCode {
		s.code = append(s.code, lit)
	}

	for _, t := range s.l.Temps[temps:] {
		v := &Variable{
			Name:  t.Name,
			Class: Temporary,
			Type:  t.Type,
			Shape: t.Shape,
		}

		err = s.alloc(v)
		if err != nil {
			return err
		}

		s.vars.Add(v)
		s.code = append(s.code, v.Addr)
	}

	if s.tr.If("compile_instr") {
		s.tr.Printw("instr", "cmd", cmd, "code", code, "sig", s.reg.Func(code).String(), "stack", &s.l.Types, "size", s.l.Size, "max", s.l.Max)
	}

	return nil
}

func (s *state) alloc(v *Variable) error {
	a, err := s.seg.Alloc(v.Type.Words())
	if err != nil {
		return errors.Wrap(err, "allocate %v", v.Name)
	}

	v.Addr = a
	v.Allocated = true

	return nil
}

func (s *state) push(v *Variable) {
	s.l.Types.Push(op.Operand{Type: v.Type, Shape: v.Shape})
}
