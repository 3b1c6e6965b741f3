package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseSource(t *testing.T, src string, strict bool) ([]Stmt, error) {
	t.Helper()

	toks, err := Lex(src)
	require.NoError(t, err)

	return Parse(toks, src, strict)
}

func TestParseStatements(t *testing.T) {
	tests := []struct {
		src  string
		want []string
	}{
		{"int x;", []string{"VarDecl(x)"}},
		{"int x = 2 + 3 * 4;", []string{"VarDecl(x = (2 PLUS (3 STAR 4)))"}},
		{"x = (2 + 3) * 4;", []string{"Assign(x = ((2 PLUS 3) STAR 4))"}},
		{"x = a - b - c;", []string{"Assign(x = ((a MINUS b) MINUS c))"}},
		{"x = a / b % c;", []string{"Assign(x = ((a SLASH b) PERCENT c))"}},
		{"x = a < b == c;", []string{"Assign(x = ((a LESS b) EQUALS c))"}},
		{"x = a + 1 != b * 2;", []string{"Assign(x = ((a PLUS 1) NOT_EQ (b STAR 2)))"}},
		{"while (i < 3) { i = i + 1; }", []string{"While((i LESS 3)) {Assign(i = (i PLUS 1))}"}},
		{"while (1) { }", []string{"While(1) {}"}},
		{"if (x >= 2) { printf(\"big\"); }", []string{`If((x GREATER_EQ 2)) {Printf("big")}`}},
		{"if (x) { if (y) { return; } }", []string{"If(x) {If(y) {Return}}"}},
		{`printf("%d", x + 1);`, []string{`Printf("%d", (x PLUS 1))`}},
		{`scanf("%d", &n);`, []string{`Scanf("%d", &n)`}},
		{`scanf("%c", c);`, []string{`Scanf("%c", &c)`}},
		{"return 0;", []string{"Return(0)"}},
		{"return;", []string{"Return"}},
		{"int main() { int x = 1; return 0; }", []string{"VarDecl(x = 1)", "Return(0)"}},
		{"int main() { x = 1; } x = 2;", []string{"Assign(x = 1)", "Assign(x = 2)"}},
	}

	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			stmts, err := parseSource(t, tc.src, true)
			require.NoError(t, err)

			got := make([]string, len(stmts))
			for i, s := range stmts {
				got[i] = s.String()
			}

			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseLenientSkipsTokens(t *testing.T) {
	src := "int x = 1; x; } + 5; x = 2;"

	toks, err := Lex(src)
	require.NoError(t, err)

	p := NewParser(toks, src, false)
	stmts, err := p.parseProgram()
	require.NoError(t, err)

	require.Len(t, stmts, 2)
	assert.Equal(t, "VarDecl(x = 1)", stmts[0].String())
	assert.Equal(t, "Assign(x = 2)", stmts[1].String())
	assert.Equal(t, 6, p.Skipped())
}

func TestParseStrictRejectsSkips(t *testing.T) {
	_, err := parseSource(t, "int x = 1;\nx;", true)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 2, pe.Line)
	assert.Equal(t, "statement", pe.Want)
	assert.Equal(t, IDENTIFIER, pe.Got.Type)
	assert.Contains(t, pe.Error(), "|> x;")
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
		line int
	}{
		{"int = 3;", "variable name", 1},
		{"int x = ;", "expression", 1},
		{"int x = 1", "';'", 1},
		{"x = (1 + 2;", "')'", 1},
		{"while i < 3 { }", "'('", 1},
		{"while (i < 3) i = 1;", "'{'", 1},
		{"while (1) {\n x = 1;\n", "'}'", 3},
		{"if (1) { if (2) { }", "'}'", 1},
		{"printf(x);", "format string", 1},
		{`printf("a" 1);`, "')'", 1},
		{`scanf("%d");`, "','", 1},
		{`scanf("%d", &1);`, "variable name", 1},
		{"return x;", "';'", 1},
		{"x = 99999999999999999999;", "integer within 64-bit range", 1},
		{"int main() { x = 1;", "'}'", 1},
	}

	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			// Required tokens fail in both modes.
			for _, strict := range []bool{false, true} {
				_, err := parseSource(t, tc.src, strict)

				var pe *ParseError
				if assert.ErrorAs(t, err, &pe) {
					assert.Equal(t, tc.want, pe.Want)
					assert.Equal(t, tc.line, pe.Line)
				}
			}
		})
	}
}
