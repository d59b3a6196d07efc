package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nikandfor/hacked/hfmt"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/rteval/compiler"
	"github.com/slowlang/rteval/compiler/config"
	"github.com/slowlang/rteval/compiler/format"
	"github.com/slowlang/rteval/compiler/mat"
	"github.com/slowlang/rteval/compiler/op"
	"github.com/slowlang/rteval/compiler/vm"
)

func main() {
	opsCmd := &cli.Command{
		Name:        "ops",
		Description: "list registered operators",
		Action:      opsAct,
	}

	compileCmd := &cli.Command{
		Name:        "compile",
		Description: "compile programs and print the listing",
		Action:      compileAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("config,c", "", "config file"),
			cli.NewFlag("types", false, "show operator signatures"),
		},
	}

	runCmd := &cli.Command{
		Name:        "run",
		Description: "compile and execute a program",
		Action:      runAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("config,c", "", "config file"),
			cli.NewFlag("cycles,n", 0, "number of cycles (config value if 0)"),
			cli.NewFlag("mode", "", "execution mode: fast, safe or debug (config value if empty)"),
		},
	}

	app := &cli.Command{
		Name:        "rteval",
		Description: "rteval compiles and runs real-time RPN expression programs",
		Before:      before,
		Flags: []*cli.Flag{
			cli.NewFlag("verbosity,v", "", "tlog verbosity topics"),
			cli.HelpFlag,
			cli.FlagfileFlag,
		},
		Commands: []*cli.Command{
			opsCmd,
			compileCmd,
			runCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func before(c *cli.Command) error {
	tlog.SetVerbosity(c.String("verbosity"))

	return nil
}

func opsAct(c *cli.Command) (err error) {
	ctx := context.Background()

	b, err := format.Format(ctx, nil, op.Builtin())
	if err != nil {
		return errors.Wrap(err, "format")
	}

	_, err = os.Stdout.Write(b)

	return err
}

func compileAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, name := range configs(c) {
		cfg, p, err := load(ctx, name)
		if err != nil {
			return errors.Wrap(err, "compile %v", name)
		}

		b := hfmt.Appendf(nil, "// %v: %d codes, %d data words, %d stack words, %d cycles\n", name, len(p.Code), p.MemWords, p.StackWords, cfg.Cycles)

		b, err = format.FormatOptions(ctx, b, p.Vars, format.Options{})
		if err != nil {
			return errors.Wrap(err, "format variables")
		}

		b = append(b, '\n')

		b, err = format.FormatOptions(ctx, b, p, format.Options{ShowTypes: c.Bool("types")})
		if err != nil {
			return errors.Wrap(err, "decompile")
		}

		fmt.Printf("%s", b)
	}

	return nil
}

func runAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, name := range configs(c) {
		err = run(ctx, c, name)
		if err != nil {
			return errors.Wrap(err, "run %v", name)
		}
	}

	return nil
}

func run(ctx context.Context, c *cli.Command, name string) (err error) {
	cfg, p, err := load(ctx, name)
	if err != nil {
		return err
	}

	mode := cfg.ExecMode()

	if q := c.String("mode"); q != "" {
		var ok bool

		mode, ok = vm.ParseMode(q)
		if !ok {
			return errors.New("unknown mode: %q", q)
		}
	}

	cycles := cfg.Cycles
	if n := c.Int("cycles"); n != 0 {
		cycles = n
	}

	x, err := p.NewContext()
	if err != nil {
		return errors.Wrap(err, "new context")
	}

	err = cfg.Apply(x, p)
	if err != nil {
		return errors.Wrap(err, "apply config")
	}

	for i := 0; i < cycles; i++ {
		err = x.Execute(mode, os.Stdout)
		if err != nil {
			return errors.Wrap(err, "cycle %d", i)
		}
	}

	tlog.SpanFromContext(ctx).Printw("executed", "name", name, "cycles", cycles, "mode", mode)

	for _, v := range p.Vars.Outputs() {
		if v.Class != compiler.Output || !v.Allocated {
			continue
		}

		val, err := p.Value(x, v)
		if err != nil {
			return err
		}

		switch m := val.(type) {
		case *mat.Matrix[float32]:
			fmt.Printf("%v = %v\n", v, m.Data())
		case *mat.Matrix[float64]:
			fmt.Printf("%v = %v\n", v, m.Data())
		default:
			fmt.Printf("%v = %v\n", v, val)
		}
	}

	return nil
}

func load(ctx context.Context, name string) (cfg *config.Config, p *compiler.Program, err error) {
	cfg, err = config.Load(name)
	if err != nil {
		return nil, nil, err
	}

	vs, err := cfg.Declare()
	if err != nil {
		return nil, nil, err
	}

	p, err = compiler.Compile(ctx, cfg.Code, vs, nil)
	if err != nil {
		return nil, nil, err
	}

	return cfg, p, nil
}

func configs(c *cli.Command) []string {
	l := []string(c.Args)

	if f := c.String("config"); f != "" {
		l = append(l, f)
	}

	return l
}
