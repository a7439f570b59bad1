package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/quadcc/compiler"
	"github.com/slowlang/quadcc/compiler/diag"
)

type (
	// failure is an error of the compilation itself, not of the command line.
	failure struct {
		error
	}
)

const (
	exitFailure = 1
	exitUsage   = 255
)

func main() {
	app := &cli.Command{
		Name:        "quadcc",
		Description: "quadcc compiles a subset of C to 32 bit x86 assembly",
		Action:      compileAct(compiler.StageAssembly),
		Args:        cli.Args{},
		Flags:       flags(),
		Commands: []*cli.Command{
			stageCmd(compiler.StageAST, "parse and resolve symbols"),
			stageCmd(compiler.StageIR, "generate quads"),
			stageCmd(compiler.StageAssembly, "generate assembly"),
		},
	}

	err := cli.Run(app, os.Args, os.Environ())
	if err == nil {
		return
	}

	var f failure
	if errors.As(err, &f) {
		diag.Report(os.Stderr, f.error)
		os.Exit(exitFailure)
	}

	fmt.Fprintf(os.Stderr, "usage: %v\n", err)
	os.Exit(exitUsage)
}

func stageCmd(st compiler.Stage, desc string) *cli.Command {
	return &cli.Command{
		Name:        st.String(),
		Description: desc,
		Action:      compileAct(st),
		Args:        cli.Args{},
		Flags:       flags(),
	}
}

func flags() []*cli.Flag {
	return []*cli.Flag{
		cli.NewFlag("ast,a", false, "print the syntax tree"),
		cli.NewFlag("ir,i", false, "print the quads"),
		cli.NewFlag("output,o", "-", "output file, - or stdout for standard output"),
		cli.NewFlag("debug,d", false, "trace grammar rules"),
		cli.HelpFlag,
	}
}

func compileAct(st compiler.Stage) func(c *cli.Command) error {
	return func(c *cli.Command) (err error) {
		ctx := context.Background()
		ctx = tlog.ContextWithSpan(ctx, tlog.Root())

		out, err := output(c.String("output"))
		if err != nil {
			return failure{errors.Wrap(err, "open output")}
		}

		defer func() {
			e := out.Close()
			if err == nil && e != nil {
				err = failure{errors.Wrap(e, "close output")}
			}
		}()

		opts := compiler.Options{
			Stop:  st,
			Trace: c.Bool("debug"),
		}

		if c.Bool("ast") {
			opts.AST = out
		}

		if c.Bool("ir") {
			opts.IR = out
		}

		if len(c.Args) == 0 {
			text, err := io.ReadAll(os.Stdin)
			if err != nil {
				return failure{errors.Wrap(err, "read stdin")}
			}

			obj, err := compiler.Compile(ctx, "<stdin>", text, opts)
			if err != nil {
				return failure{err}
			}

			_, err = out.Write(obj)
			if err != nil {
				return failure{errors.Wrap(err, "write output")}
			}

			return nil
		}

		for _, a := range c.Args {
			obj, err := compiler.CompileFile(ctx, a, opts)
			if err != nil {
				return failure{errors.Wrap(err, "compile %v", a)}
			}

			_, err = out.Write(obj)
			if err != nil {
				return failure{errors.Wrap(err, "write output")}
			}
		}

		return nil
	}
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// output opens the destination named by the -o flag.
func output(name string) (io.WriteCloser, error) {
	switch name {
	case "", "-", "stdout":
		return nopCloser{Writer: os.Stdout}, nil
	}

	return os.Create(name)
}
