package decompiler

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"charless/pkg/compiler"
	"charless/pkg/isa"
)

const countLoop = `int i = 0; while (i < 3) { printf("%d", i); i = i + 1; }`

func TestDecompileCountLoop(t *testing.T) {
	res, err := compiler.Compile(context.Background(), countLoop, compiler.Options{})
	require.NoError(t, err)

	src, err := Decompile(context.Background(), res.Code, Options{})
	require.NoError(t, err)

	start := res.Layout.Labels["L0"]
	end := res.Layout.Labels["L1"]

	assert.Contains(t, src, "goto Label_"+strconv.Itoa(start)+";")
	assert.Contains(t, src, "if (pop() == 0) goto Label_"+strconv.Itoa(end)+";")
	assert.Contains(t, src, "    Label_"+strconv.Itoa(end)+": ;\n    return 0;\n}\n")
	assert.Contains(t, src, `printf("%ld", pop());`)

	// One labelled line per instruction plus the end label.
	assert.Len(t, body(src), len(res.Layout.Instrs)+1)

	runC(t, src, "012")
}

func TestDecompileWithSymbols(t *testing.T) {
	res, err := compiler.Compile(context.Background(), countLoop, compiler.Options{})
	require.NoError(t, err)

	src, err := Decompile(context.Background(), res.Code, Options{Symbols: res.SymbolMap()})
	require.NoError(t, err)

	assert.Contains(t, src, "/* memory[0]: i */")
	assert.Contains(t, src, "push(0); /* i */")
	assert.Contains(t, src, "/* L0 */")
	assert.Contains(t, src, "/* L1 */")
}

func TestDecompileArithmetic(t *testing.T) {
	res, err := compiler.Compile(context.Background(), `int x = 2 + 3 * 4; printf("%d", x);`, compiler.Options{})
	require.NoError(t, err)

	src, err := Decompile(context.Background(), res.Code, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Label_0: ; push(2);",
		"Label_13: ; push(3);",
		"Label_26: ; push(4);",
		"Label_39: ; { long b = pop(); long a = pop(); push(a * b); }",
		"Label_45: ; { long b = pop(); long a = pop(); push(a + b); }",
		"Label_51: ; push(0);",
		"Label_64: ; { long addr = pop(); long val = pop(); store(addr, val); }",
		"Label_70: ; push(0);",
		"Label_83: ; push(load(pop()));",
		`Label_89: ; printf("%ld", pop());`,
		"Label_95: ;",
	}, body(src))

	runC(t, src, "14")
}

func TestDecompileErrors(t *testing.T) {
	tests := []struct {
		name string
		code string
		opts Options
	}{
		{"truncated literal", "500200990123", Options{}},
		{"bad target", "70020099000005200", Options{}},
		{"legacy disabled", "500209952050120", Options{}},
		{"too many", "501200501200501200", Options{MaxInstructions: 2}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decompile(context.Background(), tc.code, tc.opts)
			assert.Error(t, err)
		})
	}

	_, err := Decompile(context.Background(), "70020099000005200", Options{})

	var de *isa.DecodeError
	assert.ErrorAs(t, err, &de)
}

func TestDecompileLegacy(t *testing.T) {
	src, err := Decompile(context.Background(), "500209952050120", Options{Legacy: true})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Label_0: ; push(5);",
		"Label_10: ; pop();",
		"Label_15: ;",
	}, body(src))
}

func TestDecompileUnterminatedComment(t *testing.T) {
	src, err := Decompile(context.Background(), "50120090120 501200", Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"Label_0: ; pop();", "Label_18: ;"}, body(src))
}

func TestTable(t *testing.T) {
	res, err := compiler.Compile(context.Background(), countLoop, compiler.Options{})
	require.NoError(t, err)

	l, err := isa.Decode(context.Background(), res.Code, isa.DecodeOptions{})
	require.NoError(t, err)

	out := Table(l, res.SymbolMap())

	assert.Contains(t, out, "OFFSET")
	assert.Contains(t, out, "ENCODING")
	assert.Contains(t, out, "PRINT_NUM")
	assert.Contains(t, out, "5002009900200")
	assert.Contains(t, out, "Label_"+strconv.Itoa(res.Layout.Labels["L0"])+" L0")
	assert.Contains(t, out, "end")

	plain := Table(l, nil)
	assert.NotContains(t, plain, " L0")
}

// runC compiles src with the system C compiler, when there is one, and
// checks what the program prints.
func runC(t *testing.T, src, want string) {
	t.Helper()

	cc, err := exec.LookPath("cc")
	if err != nil {
		t.Logf("no C compiler: %v", err)
		return
	}

	dir := t.TempDir()
	cfile := filepath.Join(dir, "prog.c")
	bin := filepath.Join(dir, "prog")

	require.NoError(t, os.WriteFile(cfile, []byte(src), 0o644))

	out, err := exec.Command(cc, "-w", "-o", bin, cfile).CombinedOutput()
	require.NoError(t, err, "%s", out)

	got, err := exec.Command(bin).Output()
	require.NoError(t, err)

	assert.Equal(t, want, string(got))
}
