// Command ccompiler prints every compiler stage for one source file.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"tlog.app/go/tlog"

	"charless/pkg/asm"
	"charless/pkg/compiler"
)

const testSource = `int x = 10;
int y = 20;
while (x < y) { x = x + 5; }
printf("%d", x);
return 0;
`

func main() {
	src := testSource
	baseDir := "."
	if len(os.Args) > 1 {
		data, err := os.ReadFile(os.Args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, "read error:", err)
			os.Exit(1)
		}
		src = string(data)
		baseDir = filepath.Dir(os.Args[1])
	}

	// Preprocess
	var err error
	src, err = compiler.Preprocess(src, os.DirFS(baseDir))
	if err != nil {
		fmt.Fprintln(os.Stderr, "preprocess error:", err)
		os.Exit(1)
	}

	fmt.Printf("Source:\n%s\n", src)

	// Lex
	tokens, err := compiler.Lex(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, "lex error:", err)
		os.Exit(1)
	}

	fmt.Printf("Tokens (%d)\n", len(tokens))
	for _, tok := range tokens {
		fmt.Println(" ", tok)
	}
	fmt.Println()

	// Parse
	stmts, err := compiler.Parse(tokens, src, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, "parse error:", err)
		os.Exit(1)
	}

	fmt.Println("AST")
	for _, s := range stmts {
		fmt.Println(" ", s)
	}
	fmt.Println()

	// code Generation
	syms := compiler.NewSymbolTable()
	prog, err := compiler.Generate(stmts, syms)
	if err != nil {
		fmt.Fprintln(os.Stderr, "codegen error:", err)
		os.Exit(1)
	}

	fmt.Println("Generated Assembly")
	fmt.Print(prog)
	fmt.Println()
	fmt.Print(syms)

	ctx := tlog.ContextWithSpan(context.Background(), tlog.Root())

	code, lay, err := prog.Assemble(ctx, asm.Options{})
	if err != nil {
		fmt.Fprintln(os.Stderr, "assemble error:", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Printf("Digits (%d)\n%s\n", lay.Size, code)
}
