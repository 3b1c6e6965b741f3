package compiler

import (
	"context"
	"io/fs"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"charless/pkg/asm"
	"charless/pkg/symmap"
)

type (
	Options struct {
		// Strict turns skipped statements into a ParseError.
		Strict bool

		// Fold evaluates operations over two literals at compile time.
		Fold bool

		// MaxOutput bounds the stream length in digits. Zero means no bound.
		MaxOutput int

		// Include resolves #include "file". Nil drops include lines.
		Include fs.FS
	}

	Result struct {
		Code    string
		Slots   []Slot
		Layout  *asm.Layout
		Program *asm.Program
	}
)

// Compile translates src into the digit stream.
//
// Pipeline: Preprocess → Lex → Parse → (Fold) → Generate → Assemble
func Compile(ctx context.Context, src string, opts Options) (res *Result, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile", "src_len", len(src), "strict", opts.Strict, "fold", opts.Fold)
	defer tr.Finish("err", &err)

	src, err = Preprocess(src, opts.Include)
	if err != nil {
		return nil, errors.Wrap(err, "preprocess")
	}

	tokens, err := Lex(src)
	if err != nil {
		return nil, errors.Wrap(err, "lex")
	}

	if tr.If("dump_tokens") {
		for _, tok := range tokens {
			tr.Printw("token", "type", tok.Type, "lexeme", tok.Lexeme, "line", tok.Line)
		}
	}

	p := NewParser(tokens, src, opts.Strict)

	stmts, err := p.parseProgram()
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}

	if n := p.Skipped(); n != 0 {
		tr.Printw("skipped unrecognised tokens", "count", n)
	}

	if opts.Fold {
		stmts = foldConstants(stmts)
	}

	if tr.If("dump_ast") {
		for _, s := range stmts {
			tr.Printw("stmt", "node", s)
		}
	}

	syms := NewSymbolTable()

	prog, err := Generate(stmts, syms)
	if err != nil {
		return nil, errors.Wrap(err, "codegen")
	}

	code, lay, err := prog.Assemble(ctx, asm.Options{MaxOutput: opts.MaxOutput})
	if err != nil {
		return nil, errors.Wrap(err, "assemble")
	}

	tr.Printw("compiled", "tokens", len(tokens), "stmts", len(stmts), "slots", syms.Len(), "digits", len(code))

	return &Result{
		Code:    code,
		Slots:   syms.Slots(),
		Layout:  lay,
		Program: prog,
	}, nil
}

// SymbolMap returns the names the stream itself does not carry.
func (r *Result) SymbolMap() *symmap.Map {
	slots := make([]symmap.Slot, len(r.Slots))
	for i, s := range r.Slots {
		slots[i] = symmap.Slot{Name: s.Name, Index: s.Index}
	}

	return symmap.New(slots, r.Layout.Labels, r.Layout.Size)
}
