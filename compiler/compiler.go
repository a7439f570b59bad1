package compiler

import (
	"context"
	"io"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/quadcc/compiler/back"
	"github.com/slowlang/quadcc/compiler/diag"
	"github.com/slowlang/quadcc/compiler/format"
	"github.com/slowlang/quadcc/compiler/front"
	"github.com/slowlang/quadcc/compiler/parse"
)

type (
	// Stage is the last phase the pipeline runs.
	Stage int

	Options struct {
		Stop Stage

		AST io.Writer // syntax tree dump, if set
		IR  io.Writer // quads dump, if set

		Trace bool // log reduced grammar rules
	}
)

const (
	StageAST Stage = iota
	StageIR
	StageAssembly
)

var stageNames = []string{
	StageAST:      "ast",
	StageIR:       "ir",
	StageAssembly: "assembly",
}

// ParseStage is the inverse of Stage.String.
func ParseStage(s string) (Stage, bool) {
	for st, name := range stageNames {
		if name == s {
			return Stage(st), true
		}
	}

	return 0, false
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}

	return stageNames[s]
}

func CompileFile(ctx context.Context, name string, opts Options) (obj []byte, err error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Compile(ctx, name, text, opts)
}

// Compile runs the pipeline up to opts.Stop.
// Assembly is returned only when the last stage is reached.
func Compile(ctx context.Context, name string, text []byte, opts Options) (obj []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile", "file", name, "stop", opts.Stop)
	defer tr.Finish("err", &err)

	defer diag.Recover(&err)

	x, _, err := parse.Parse(ctx, name, text, opts.Trace)
	if err != nil {
		return nil, errors.Wrap(err, "parse text")
	}

	if opts.AST != nil {
		b, err := format.Format(ctx, nil, x)
		if err != nil {
			return nil, errors.Wrap(err, "format ast")
		}

		_, err = opts.AST.Write(b)
		if err != nil {
			return nil, errors.Wrap(err, "write ast")
		}
	}

	if opts.Stop == StageAST {
		return nil, nil
	}

	p, err := front.New(name).Compile(ctx, x)
	if err != nil {
		return nil, errors.Wrap(err, "generate quads")
	}

	if opts.IR != nil {
		_, err = opts.IR.Write(format.FormatIR(ctx, nil, p))
		if err != nil {
			return nil, errors.Wrap(err, "write ir")
		}
	}

	if opts.Stop == StageIR {
		return nil, nil
	}

	obj, err = back.New().CompileProgram(ctx, nil, p)
	if err != nil {
		return nil, errors.Wrap(err, "generate assembly")
	}

	return obj, nil
}
