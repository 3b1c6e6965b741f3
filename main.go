package main

import (
	"context"
	"fmt"
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"charless/pkg/asm"
	"charless/pkg/compiler"
	"charless/pkg/config"
	"charless/pkg/decompiler"
	"charless/pkg/isa"
	"charless/pkg/symmap"
	"charless/pkg/utils"
)

func main() {
	compileCmd := &cli.Command{
		Name:        "compile",
		Description: "compile C source to a digit stream",
		Action:      compileAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("output,o", "", "output file (default: stdout)"),
			cli.NewFlag("map", "", "write the symbol map to this file"),
			cli.NewFlag("strict", false, "reject statements the parser would skip"),
			cli.NewFlag("fold", false, "fold constant expressions"),
			cli.NewFlag("max-output", 0, "maximum stream length in digits (default: from config)"),
			cli.NewFlag("asm", false, "print the assembly listing instead of digits"),
			configFlag(),
		},
	}

	decodeCmd := &cli.Command{
		Name:        "decode",
		Description: "re-emit a digit stream as goto-style C",
		Action:      decodeAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("output,o", "", "output file (default: stdout)"),
			cli.NewFlag("map", "", "read variable and label names from this symbol map"),
			cli.NewFlag("no-legacy", false, "reject the 2-digit separator and literal prefix"),
			cli.NewFlag("stack-size", 0, "stack size of the emitted program (default: from config)"),
			cli.NewFlag("memory-size", 0, "memory size of the emitted program (default: from config)"),
			configFlag(),
		},
	}

	disasmCmd := &cli.Command{
		Name:        "disasm",
		Description: "print a digit stream as an instruction table",
		Action:      disasmAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("map", "", "read variable and label names from this symbol map"),
			cli.NewFlag("text", false, "print assembly text instead of a table"),
			cli.NewFlag("no-legacy", false, "reject the 2-digit separator and literal prefix"),
			configFlag(),
		},
	}

	asmCmd := &cli.Command{
		Name:        "asm",
		Description: "assemble text assembly to a digit stream",
		Action:      asmAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("output,o", "", "output file (default: stdout)"),
			cli.NewFlag("map", "", "write the label map to this file"),
			configFlag(),
		},
	}

	app := &cli.Command{
		Name:        "charless",
		Description: "charless compiles a C subset to a stream of decimal digits and back",
		Commands: []*cli.Command{
			compileCmd,
			decodeCmd,
			disasmCmd,
			asmCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func compileAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	in, err := singleArg(c)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c, in)
	if err != nil {
		return err
	}

	src, err := utils.ReadInput(in, os.Stdin)
	if err != nil {
		return err
	}

	_, dir, err := utils.GetPathInfo(in)
	if err != nil {
		return errors.Wrap(err, "resolve %v", in)
	}

	opts := compiler.Options{
		Strict:    cfg.Compile.Strict || c.Bool("strict"),
		Fold:      cfg.Compile.Fold || c.Bool("fold"),
		MaxOutput: cfg.Compile.MaxOutput,
		Include:   os.DirFS(dir),
	}

	if n := c.Int("max-output"); n > 0 {
		opts.MaxOutput = n
	}

	res, err := compiler.Compile(ctx, string(src), opts)
	if err != nil {
		return errors.Wrap(err, "compile %v", in)
	}

	if path := c.String("map"); path != "" {
		err = writeMap(path, res.SymbolMap())
		if err != nil {
			return err
		}
	}

	out := res.Code + "\n"
	if c.Bool("asm") {
		out = res.Program.String()
	}

	return utils.WriteOutput(c.String("output"), []byte(out), os.Stdout)
}

func decodeAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	in, err := singleArg(c)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c, in)
	if err != nil {
		return err
	}

	code, err := utils.ReadInput(in, os.Stdin)
	if err != nil {
		return err
	}

	opts := decompiler.Options{
		StackSize:       cfg.Decode.StackSize,
		MemorySize:      cfg.Decode.MemorySize,
		Legacy:          cfg.Decode.Legacy && !c.Bool("no-legacy"),
		MaxInstructions: cfg.Decode.MaxInstructions,
	}

	if n := c.Int("stack-size"); n > 0 {
		opts.StackSize = n
	}
	if n := c.Int("memory-size"); n > 0 {
		opts.MemorySize = n
	}

	opts.Symbols, err = readMap(c.String("map"))
	if err != nil {
		return err
	}

	src, err := decompiler.Decompile(ctx, string(code), opts)
	if err != nil {
		return errors.Wrap(err, "decode %v", in)
	}

	return utils.WriteOutput(c.String("output"), []byte(src), os.Stdout)
}

func disasmAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	in, err := singleArg(c)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c, in)
	if err != nil {
		return err
	}

	code, err := utils.ReadInput(in, os.Stdin)
	if err != nil {
		return err
	}

	l, err := isa.Decode(ctx, string(code), isa.DecodeOptions{
		Legacy:          cfg.Decode.Legacy && !c.Bool("no-legacy"),
		MaxInstructions: cfg.Decode.MaxInstructions,
	})
	if err != nil {
		return errors.Wrap(err, "decode %v", in)
	}

	if c.Bool("text") {
		fmt.Print(asm.Disassemble(l))
		return nil
	}

	m, err := readMap(c.String("map"))
	if err != nil {
		return err
	}

	fmt.Println(decompiler.Table(l, m))

	return nil
}

func asmAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	in, err := singleArg(c)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c, in)
	if err != nil {
		return err
	}

	src, err := utils.ReadInput(in, os.Stdin)
	if err != nil {
		return err
	}

	prog, err := asm.Parse(string(src))
	if err != nil {
		return errors.Wrap(err, "parse %v", in)
	}

	code, lay, err := prog.Assemble(ctx, asm.Options{MaxOutput: cfg.Compile.MaxOutput})
	if err != nil {
		return errors.Wrap(err, "assemble %v", in)
	}

	if path := c.String("map"); path != "" {
		err = writeMap(path, symmap.New(nil, lay.Labels, lay.Size))
		if err != nil {
			return err
		}
	}

	return utils.WriteOutput(c.String("output"), []byte(code+"\n"), os.Stdout)
}

func configFlag() *cli.Flag {
	return cli.NewFlag("config", "", "path to charless.toml (default: searched upwards from the input)")
}

func singleArg(c *cli.Command) (string, error) {
	if len(c.Args) != 1 {
		return "", errors.New("expected one input file (or %v for stdin), got %d args", utils.Stdio, len(c.Args))
	}

	return c.Args[0], nil
}

func loadConfig(c *cli.Command, in string) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.Load(path)
	}

	_, dir, err := utils.GetPathInfo(in)
	if err != nil {
		return nil, errors.Wrap(err, "resolve %v", in)
	}

	return config.FindAndLoad(dir)
}

func writeMap(path string, m *symmap.Map) error {
	data, err := symmap.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "encode symbol map")
	}

	return utils.WriteOutput(path, data, os.Stdout)
}

func readMap(path string) (*symmap.Map, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read symbol map")
	}

	m, err := symmap.Unmarshal(data)
	if err != nil {
		return nil, errors.Wrap(err, "%v", path)
	}

	return m, nil
}
