package compiler

import (
	"strconv"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/rteval/compiler/mat"
	"github.com/slowlang/rteval/compiler/tp"
	"github.com/slowlang/rteval/compiler/vm"
)

type (
	Class uint8

	Variable struct {
		Name  string
		Class Class

		Type  tp.Type
		Shape mat.Shape

		// Value is the constant value.
		Value any

		Addr      vm.Addr
		Allocated bool
	}

	// Variables is the variable database of a program.
	// Names are unique within inputs and within outputs,
	// the same name may be both an input and an output.
	Variables struct {
		list []*Variable
	}
)

const (
	Input Class = iota
	Output
	Constant
	Temporary
)

const (
	readToken   = "READ"
	writeToken  = "WRITE"
	constToken  = "CONST"
	castToken   = "CAST"
	rreadToken  = "RREAD"
	rwriteToken = "RWRITE"

	constPrefix = "Constant@"
)

var (
	ErrSyntax           = errors.New("syntax error")
	ErrReserved         = errors.New("reserved command")
	ErrUnknownVariable  = errors.New("unknown variable")
	ErrDuplicateOutput  = errors.New("output variable already registered")
	ErrOverwrite        = errors.New("output variable written twice")
	ErrUntyped          = errors.New("untyped variable")
	ErrIncomplete       = errors.New("operation sequence is incomplete")
	ErrUnsupportedConst = errors.New("unsupported constant type")
)

var classNames = []string{"input", "output", "constant", "temporary"}

func (c Class) String() string {
	if int(c) >= len(classNames) {
		return "class(" + strconv.Itoa(int(c)) + ")"
	}

	return classNames[c]
}

func (c Class) IsInput() bool { return c == Input || c == Constant }

// ExtractVariables lists the variables the program reads and writes.
// A name read before it's written is an input.
func ExtractVariables(text string) (*Variables, error) {
	vs := &Variables{}

	for i, line := range strings.Split(text, "\n") {
		cmd, args := splitLine(line)

		switch cmd {
		case readToken:
			if len(args) != 1 {
				return nil, errors.Wrap(ErrSyntax, "line %d: %v without variable name", i+1, cmd)
			}

			if vs.Find(args[0], Output) != nil || vs.Find(args[0], Input) != nil {
				continue
			}

			vs.Add(&Variable{Name: args[0], Class: Input})
		case writeToken:
			if len(args) != 1 {
				return nil, errors.Wrap(ErrSyntax, "line %d: %v without variable name", i+1, cmd)
			}

			if vs.Find(args[0], Output) != nil {
				return nil, errors.Wrap(ErrDuplicateOutput, "line %d: %v", i+1, args[0])
			}

			vs.Add(&Variable{Name: args[0], Class: Output})
		}
	}

	return vs, nil
}

func (vs *Variables) Add(v *Variable) {
	vs.list = append(vs.list, v)
}

// Find finds the variable by name.
// Input class also matches constants and Output matches temporaries.
func (vs *Variables) Find(name string, class Class) *Variable {
	for _, v := range vs.list {
		if v.Name == name && v.Class.IsInput() == class.IsInput() {
			return v
		}
	}

	return nil
}

// Lookup finds a variable preferring outputs.
func (vs *Variables) Lookup(name string) *Variable {
	if v := vs.Find(name, Output); v != nil {
		return v
	}

	return vs.Find(name, Input)
}

// At finds the allocated variable at address a.
func (vs *Variables) At(a vm.Addr) *Variable {
	for _, v := range vs.list {
		if v.Allocated && v.Addr == a {
			return v
		}
	}

	return nil
}

// Declare sets the type and shape of the input or output named name.
func (vs *Variables) Declare(name string, t tp.Type, s mat.Shape) error {
	found := false

	for _, v := range vs.list {
		if v.Name != name || (v.Class != Input && v.Class != Output) {
			continue
		}

		if t.Matrix && !s.Valid() {
			return errors.New("%v: matrix shape %dx%d", name, s.Rows, s.Cols)
		}

		v.Type = t
		v.Shape = s
		found = true
	}

	if !found {
		return errors.Wrap(ErrUnknownVariable, "%v", name)
	}

	return nil
}

func (vs *Variables) Inputs() []*Variable { return vs.filter(true) }

func (vs *Variables) Outputs() []*Variable { return vs.filter(false) }

func (vs *Variables) All() []*Variable { return vs.list }

func (vs *Variables) Len() int { return len(vs.list) }

func (vs *Variables) filter(input bool) (r []*Variable) {
	for _, v := range vs.list {
		if v.Class.IsInput() == input {
			r = append(r, v)
		}
	}

	return r
}

// Clone makes a deep copy so the clone can be compiled independently.
func (vs *Variables) Clone() *Variables {
	r := &Variables{list: make([]*Variable, len(vs.list))}

	for i, v := range vs.list {
		c := *v
		r.list[i] = &c
	}

	return r
}

func (v *Variable) String() string {
	if v.Type.IsVoid() {
		return v.Name
	}

	if v.Type.Matrix {
		return v.Name + " " + v.Type.String() + "(" + strconv.Itoa(int(v.Shape.Rows)) + "x" + strconv.Itoa(int(v.Shape.Cols)) + ")"
	}

	return v.Name + " " + v.Type.String()
}

func (v *Variable) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	n := 3
	if v.Allocated {
		n++
	}

	b = e.AppendMap(b, n)

	b = e.AppendKey(b, "name")
	b = e.AppendString(b, v.Name)
	b = e.AppendKey(b, "class")
	b = e.AppendString(b, v.Class.String())
	b = e.AppendKey(b, "type")
	b = e.AppendString(b, v.Type.String())

	if v.Allocated {
		b = e.AppendKeyInt(b, "addr", int(v.Addr))
	}

	return b
}

func splitLine(line string) (cmd string, args []string) {
	line = strings.TrimSpace(line)

	if line == "" || strings.HasPrefix(line, "//") {
		return "", nil
	}

	f := strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
	if len(f) == 0 {
		return "", nil
	}

	return f[0], f[1:]
}
