package config

import (
	"os"
	"sort"

	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"

	"github.com/slowlang/rteval/compiler"
	"github.com/slowlang/rteval/compiler/mat"
	"github.com/slowlang/rteval/compiler/tp"
	"github.com/slowlang/rteval/compiler/vm"
)

type (
	// Config describes a program, its variables and how to run it.
	Config struct {
		Code      string              `yaml:"code"`
		Variables map[string]Variable `yaml:"variables"`

		Mode   string `yaml:"mode"`
		Cycles int    `yaml:"cycles"`
	}

	// Variable is a variable declaration.
	// Value is a scalar literal or a row-major list of matrix elements.
	Variable struct {
		Type  string    `yaml:"type"`
		Rows  uint32    `yaml:"rows"`
		Cols  uint32    `yaml:"cols"`
		Value yaml.Node `yaml:"value"`
	}
)

func Load(name string) (*Config, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}

	c, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, "%v", name)
	}

	return c, nil
}

func Parse(data []byte) (*Config, error) {
	c := &Config{
		Mode:   vm.Safe.String(),
		Cycles: 1,
	}

	err := yaml.Unmarshal(data, c)
	if err != nil {
		return nil, errors.Wrap(err, "decode yaml")
	}

	if _, ok := vm.ParseMode(c.Mode); !ok {
		return nil, errors.New("unknown execution mode: %q", c.Mode)
	}

	if c.Cycles < 0 {
		return nil, errors.New("negative cycles: %d", c.Cycles)
	}

	return c, nil
}

func (c *Config) ExecMode() vm.Mode {
	m, _ := vm.ParseMode(c.Mode)
	return m
}

// Names returns declared variable names in order.
func (c *Config) Names() []string {
	l := make([]string, 0, len(c.Variables))

	for n := range c.Variables {
		l = append(l, n)
	}

	sort.Strings(l)

	return l
}

// Declare extracts the program variables and declares their types.
func (c *Config) Declare() (*compiler.Variables, error) {
	vs, err := compiler.ExtractVariables(c.Code)
	if err != nil {
		return nil, errors.Wrap(err, "extract variables")
	}

	for _, n := range c.Names() {
		v := c.Variables[n]

		if v.Type == "" {
			continue
		}

		t, err := tp.Parse(v.Type)
		if err != nil {
			return nil, errors.Wrap(err, "variable %v", n)
		}

		err = vs.Declare(n, t, mat.Shape{Rows: v.Rows, Cols: v.Cols})
		if err != nil {
			return nil, err
		}
	}

	return vs, nil
}

// Apply sets the initial values of the input variables.
func (c *Config) Apply(ctx *vm.Context, p *compiler.Program) error {
	for _, n := range c.Names() {
		v := c.Variables[n]

		if v.Value.Kind == 0 {
			continue
		}

		in := p.Vars.Find(n, compiler.Input)
		if in == nil {
			return errors.New("value for %v: not an input", n)
		}

		var err error

		switch {
		case in.Type.SameAs(tp.Float32Matrix):
			err = fill[float32](ctx, p, n, &v.Value)
		case in.Type.SameAs(tp.Float64Matrix):
			err = fill[float64](ctx, p, n, &v.Value)
		case v.Value.Kind == yaml.ScalarNode:
			err = compiler.SetText(ctx, p, n, v.Value.Value)
		default:
			err = errors.New("scalar value expected")
		}

		if err != nil {
			return errors.Wrap(err, "value for %v", n)
		}
	}

	return nil
}

func fill[T mat.Float](ctx *vm.Context, p *compiler.Program, name string, node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return errors.New("list of elements expected")
	}

	var vals []T

	err := node.Decode(&vals)
	if err != nil {
		return errors.Wrap(err, "decode")
	}

	m, err := compiler.MatrixOf[T](ctx, p, name)
	if err != nil {
		return err
	}

	if len(vals) != len(m.Data()) {
		return errors.New("%d elements for %dx%d matrix", len(vals), m.Rows(), m.Cols())
	}

	copy(m.Data(), vals)

	return nil
}
