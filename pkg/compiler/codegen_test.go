package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// genLines compiles src up to the Program and returns its text form,
// one trimmed line per entry.
func genLines(t *testing.T, src string, fold bool) []string {
	t.Helper()

	stmts, err := parseSource(t, src, false)
	require.NoError(t, err)

	if fold {
		stmts = foldConstants(stmts)
	}

	prog, err := Generate(stmts, NewSymbolTable())
	require.NoError(t, err)

	var lines []string
	for _, l := range strings.Split(strings.TrimSpace(prog.String()), "\n") {
		lines = append(lines, strings.TrimSpace(l))
	}

	return lines
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "post order",
			src:  "int x = 2 + 3 * 4;",
			want: []string{"PUSH 2", "PUSH 3", "PUSH 4", "MUL", "ADD", "PUSH 0", "STORE"},
		},
		{
			name: "declaration only allocates",
			src:  "int a; int b = 7;",
			want: []string{"PUSH 7", "PUSH 1", "STORE"},
		},
		{
			name: "variable read",
			src:  "x = 1; y = x;",
			want: []string{"PUSH 1", "PUSH 0", "STORE", "PUSH 0", "LOAD", "PUSH 1", "STORE"},
		},
		{
			name: "assignment target allocated first",
			src:  "y = x + 1;",
			want: []string{"PUSH 1", "LOAD", "PUSH 1", "ADD", "PUSH 0", "STORE"},
		},
		{
			name: "not equal",
			src:  "int a; int b; int c = a != b;",
			want: []string{"PUSH 0", "LOAD", "PUSH 1", "LOAD", "EQ", "PUSH 0", "EQ", "PUSH 2", "STORE"},
		},
		{
			name: "comparisons",
			src:  "c = 1 == 2; c = 1 > 2; c = 1 < 2; c = 1 >= 2; c = 1 <= 2;",
			want: []string{
				"PUSH 1", "PUSH 2", "EQ", "PUSH 0", "STORE",
				"PUSH 1", "PUSH 2", "GT", "PUSH 0", "STORE",
				"PUSH 1", "PUSH 2", "LT", "PUSH 0", "STORE",
				"PUSH 1", "PUSH 2", "GE", "PUSH 0", "STORE",
				"PUSH 1", "PUSH 2", "LE", "PUSH 0", "STORE",
			},
		},
		{
			name: "arithmetic",
			src:  "c = 9 - 4 / 2 % 3;",
			want: []string{"PUSH 9", "PUSH 4", "PUSH 2", "DIV", "PUSH 3", "MOD", "SUB", "PUSH 0", "STORE"},
		},
		{
			name: "while",
			src:  "while (i < 3) { i = i + 1; }",
			want: []string{
				"L0:",
				"PUSH 0", "LOAD", "PUSH 3", "LT",
				"JZ L1",
				"PUSH 0", "LOAD", "PUSH 1", "ADD", "PUSH 0", "STORE",
				"JUMP L0",
				"L1:",
			},
		},
		{
			name: "if",
			src:  "if (x) { return 0; }",
			want: []string{"PUSH 0", "LOAD", "JZ L0", "HALT", "JUMP L1", "L0:", "L1:"},
		},
		{
			name: "printf string",
			src:  `printf("hi"); printf("a\n");`,
			want: []string{`PRINT_STR "hi"`, `PRINT_STR "a\n"`},
		},
		{
			name: "printf number",
			src:  `printf("%d", x);`,
			want: []string{"PUSH 0", "LOAD", "PRINT_NUM"},
		},
		{
			name: "printf char",
			src:  `printf("%c", 65);`,
			want: []string{"PUSH 65", "PRINT_CHAR"},
		},
		{
			name: "printf other format",
			src:  `printf("%s", x); printf("hi");`,
			want: []string{`PRINT_STR "hi"`},
		},
		{
			name: "scanf",
			src:  `scanf("%d", &n); scanf("%c", &c); scanf("%s", &s);`,
			want: []string{"INPUT_NUM", "PUSH 0", "STORE", "INPUT_CHAR", "PUSH 1", "STORE"},
		},
		{
			name: "separator in literal",
			src:  "int x = 2005;",
			want: []string{"PUSH 1995", "PUSH 10", "ADD", "PUSH 0", "STORE"},
		},
		{
			name: "separator twice in literal",
			src:  "int x = 200200;",
			want: []string{"PUSH 199199", "PUSH 1001", "ADD", "PUSH 0", "STORE"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, genLines(t, tc.src, false))
		})
	}
}

func TestGenerateFold(t *testing.T) {
	tests := []struct {
		src  string
		want []string
	}{
		{"x = 2 + 3 * 4;", []string{"PUSH 14", "PUSH 0", "STORE"}},
		{"x = 0 - 5;", []string{"PUSH 0", "PUSH 5", "SUB", "PUSH 0", "STORE"}},
		{"x = 3 != 4;", []string{"PUSH 1", "PUSH 0", "STORE"}},
		{"x = 1 / 0;", []string{"PUSH 1", "PUSH 0", "DIV", "PUSH 0", "STORE"}},
		{"x = y * (2 + 2);", []string{"PUSH 1", "LOAD", "PUSH 4", "MUL", "PUSH 0", "STORE"}},
		{"while (1 < 2) { }", []string{"L0:", "PUSH 1", "JZ L1", "JUMP L0", "L1:"}},
		{"x = 1000 * 2;", []string{"PUSH 1990", "PUSH 10", "ADD", "PUSH 0", "STORE"}},
	}

	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			assert.Equal(t, tc.want, genLines(t, tc.src, true))
		})
	}
}

func TestSymbolTable(t *testing.T) {
	syms := NewSymbolTable()

	a, existed := syms.Allocate("a")
	assert.False(t, existed)
	assert.Equal(t, Slot{Name: "a", Index: 0}, a)

	b, _ := syms.Allocate("b")
	again, existed := syms.Allocate("a")
	assert.True(t, existed)
	assert.Equal(t, a, again)
	assert.Equal(t, 1, b.Index)

	_, ok := syms.Lookup("c")
	assert.False(t, ok)

	assert.Equal(t, []Slot{{"a", 0}, {"b", 1}}, syms.Slots())
	assert.Equal(t, "   0  a\n   1  b\n", syms.String())
}

func TestUnescape(t *testing.T) {
	tests := map[string]string{
		`plain`:    "plain",
		`a\nb`:     "a\nb",
		`\t\\\"`:   "\t\\\"",
		`keep \q`:  `keep \q`,
		`trail \`:  `trail \`,
		`%d\n`:     "%d\n",
		`\\n`:      `\n`,
		`\n\n\n\n`: "\n\n\n\n",
	}

	for in, want := range tests {
		assert.Equal(t, want, unescape(in), "in %q", in)
	}
}
