package decompiler

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"charless/pkg/isa"
)

// Decompile decodes code and emits it as C.
func Decompile(ctx context.Context, code string, opts Options) (src string, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "decompile", "size", len(code), "symbols", opts.Symbols != nil)
	defer tr.Finish("err", &err)

	l, err := isa.Decode(ctx, code, isa.DecodeOptions{
		Legacy:          opts.Legacy,
		MaxInstructions: opts.MaxInstructions,
	})
	if err != nil {
		return "", errors.Wrap(err, "decode")
	}

	if opts.Symbols != nil && opts.Symbols.Size != l.Size {
		tr.Printw("symbol map size mismatch", "map_size", opts.Symbols.Size, "stream_size", l.Size)
	}

	src, err = Emit(l, opts)
	if err != nil {
		return "", errors.Wrap(err, "emit")
	}

	tr.Printw("decompiled", "instructions", len(l.Instrs), "lines", len(l.Instrs)+1)

	return src, nil
}
