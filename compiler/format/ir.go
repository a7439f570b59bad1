package format

import (
	"context"

	"github.com/nikandfor/hacked/hfmt"
	"nikand.dev/go/heap"
	"tlog.app/go/tlog"

	"github.com/slowlang/quadcc/compiler/ir"
	"github.com/slowlang/quadcc/compiler/set"
)

// FormatIR appends the quads of every function,
// reachable blocks in ascending block number.
func FormatIR(ctx context.Context, b []byte, p *ir.Program) []byte {
	for i, f := range p.Funcs {
		if i != 0 {
			b = append(b, '\n')
		}

		b = formatFunc(ctx, b, f)
	}

	return b
}

func formatFunc(ctx context.Context, b []byte, f *ir.Func) []byte {
	b = hfmt.Appendf(b, "FN_%s:\n", f.Name)

	blocks := heap.Heap[*ir.Block]{Less: blockLess}

	var seen set.Bitmap

	var walk func(bl *ir.Block)
	walk = func(bl *ir.Block) {
		if bl == nil || seen.TestAndSet(bl.Num) {
			return
		}

		blocks.Push(bl)

		walk(bl.Then)
		walk(bl.Else)
	}

	walk(f.Entry)

	tlog.SpanFromContext(ctx).V("dump_ir").Printw("function blocks", "func", f.Name, "blocks", seen)

	for blocks.Len() != 0 {
		bl := blocks.Pop()

		b = hfmt.Appendf(b, "%s:\n", bl.Name())

		for _, q := range bl.Quads {
			b = hfmt.Appendf(b, "\t%s = %s %s %s\n", ir.RegString(q.Dst), q.Op, ir.RegString(q.Src1), ir.RegString(q.Src2))
		}
	}

	return b
}

func blockLess(d []*ir.Block, i, j int) bool {
	return d[i].Num < d[j].Num
}
