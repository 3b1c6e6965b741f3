// Package decompiler turns a decoded digit stream back into C.
//
// The output is a flat program: every instruction gets a label named after
// its offset and jumps become gotos. Loops and conditionals are not
// recovered.
package decompiler

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"charless/pkg/isa"
	"charless/pkg/symmap"
)

const (
	DefaultStackSize  = 1024
	DefaultMemorySize = 1024
)

type Options struct {
	StackSize  int // zero means DefaultStackSize
	MemorySize int // zero means DefaultMemorySize

	// Legacy and MaxInstructions are passed to isa.Decode by Decompile.
	Legacy          bool
	MaxInstructions int

	// Symbols adds variable and label names as comments.
	Symbols *symmap.Map
}

const prelude = `#include <stdio.h>
#include <stdlib.h>

#define STACK_SIZE %d
#define MEMORY_SIZE %d

long stack[STACK_SIZE];
int sp = -1;
long memory[MEMORY_SIZE];
%s
void push(long value) {
    if (sp >= STACK_SIZE - 1) { fprintf(stderr, "Stack overflow\n"); exit(1); }
    stack[++sp] = value;
}

long pop(void) {
    if (sp < 0) { fprintf(stderr, "Stack underflow\n"); exit(1); }
    return stack[sp--];
}

long load(long addr) {
    if (addr < 0 || addr >= MEMORY_SIZE) { fprintf(stderr, "Memory read out of bounds: %%ld\n", addr); exit(1); }
    return memory[addr];
}

void store(long addr, long value) {
    if (addr < 0 || addr >= MEMORY_SIZE) { fprintf(stderr, "Memory write out of bounds: %%ld\n", addr); exit(1); }
    memory[addr] = value;
}

int main(void) {
`

var binaryExpr = map[isa.Opcode]string{
	isa.OpADD: "a + b",
	isa.OpSUB: "a - b",
	isa.OpMUL: "a * b",
	isa.OpEQ:  "a == b",
	isa.OpGT:  "a > b",
	isa.OpLT:  "a < b",
	isa.OpGE:  "a >= b",
	isa.OpLE:  "a <= b",
}

// Emit writes the C program for l.
func Emit(l *isa.Listing, opts Options) (string, error) {
	stackSize := opts.StackSize
	if stackSize <= 0 {
		stackSize = DefaultStackSize
	}

	memSize := opts.MemorySize
	if memSize <= 0 {
		memSize = DefaultMemorySize
	}

	var b strings.Builder

	fmt.Fprintf(&b, prelude, stackSize, memSize, slotComments(opts.Symbols))

	for i, d := range l.Instrs {
		stmt, err := statement(l, d)
		if err != nil {
			return "", err
		}

		stmt += slotNote(l, i, opts.Symbols)

		fmt.Fprintf(&b, "    Label_%d: ; %s%s\n", d.Offset, stmt, labelNote(d.Offset, opts.Symbols))
	}

	fmt.Fprintf(&b, "    Label_%d: ;%s\n", l.Size, labelNote(l.Size, opts.Symbols))
	b.WriteString("    return 0;\n}\n")

	return b.String(), nil
}

func statement(l *isa.Listing, d isa.Decoded) (string, error) {
	switch op := d.Op; op {
	case isa.OpHALT:
		return "return 0;", nil
	case isa.OpPRINT_STR:
		return printString(d.Text), nil
	case isa.OpPRINT_NUM:
		return `printf("%ld", pop());`, nil
	case isa.OpPRINT_CHAR:
		return `printf("%c", (char)pop());`, nil
	case isa.OpINPUT_CHAR:
		return "push(getchar());", nil
	case isa.OpINPUT_NUM:
		return `{ long val = 0; if (scanf("%ld", &val) != 1) val = 0; push(val); }`, nil
	case isa.OpPRINT_NEWLINE:
		return `printf("\n");`, nil
	case isa.OpPUSH:
		return fmt.Sprintf("push(%d);", d.Value), nil
	case isa.OpPOP:
		return "pop();", nil
	case isa.OpSTORE:
		return "{ long addr = pop(); long val = pop(); store(addr, val); }", nil
	case isa.OpLOAD:
		return "push(load(pop()));", nil
	case isa.OpDIV, isa.OpMOD:
		sym := "/"
		if op == isa.OpMOD {
			sym = "%"
		}
		return fmt.Sprintf(`{ long b = pop(); long a = pop(); if (b == 0) { fprintf(stderr, "Division by zero\n"); exit(1); } push(a %s b); }`, sym), nil
	case isa.OpJUMP, isa.OpJZ, isa.OpJNZ:
		target := int(d.Value)
		if _, ok := l.Index(target); !ok && target != l.Size {
			return "", &isa.DecodeError{Offset: d.Offset, Reason: fmt.Sprintf("jump target %d is not an instruction boundary", target)}
		}

		switch op {
		case isa.OpJZ:
			return fmt.Sprintf("if (pop() == 0) goto Label_%d;", target), nil
		case isa.OpJNZ:
			return fmt.Sprintf("if (pop() != 0) goto Label_%d;", target), nil
		}
		return fmt.Sprintf("goto Label_%d;", target), nil
	}

	if expr, ok := binaryExpr[d.Op]; ok {
		return fmt.Sprintf("{ long b = pop(); long a = pop(); push(%s); }", expr), nil
	}

	return "", &isa.DecodeError{Offset: d.Offset, Reason: fmt.Sprintf("no C form for %v", d.Op)}
}

// printString prints codes literally. printf stops at NUL, so text
// containing one is written with fwrite instead.
func printString(codes []int) string {
	for _, c := range codes {
		if c == 0 {
			lit, n := cString(codes, false)
			return fmt.Sprintf("fwrite(%s, 1, %d, stdout);", lit, n)
		}
	}

	lit, _ := cString(codes, true)

	return fmt.Sprintf("printf(%s);", lit)
}

// cString quotes codes as a C string literal and reports its length in
// bytes. Codes above 127 are written as UTF-8.
func cString(codes []int, format bool) (string, int) {
	var b strings.Builder
	n := 0

	b.WriteByte('"')

	var buf [utf8.UTFMax]byte

	for _, c := range codes {
		size := utf8.EncodeRune(buf[:], rune(c))
		n += size

		for _, ch := range buf[:size] {
			switch {
			case ch == '%' && format:
				b.WriteString("%%")
			case ch == '"' || ch == '\\':
				b.WriteByte('\\')
				b.WriteByte(ch)
			case ch == '\n':
				b.WriteString(`\n`)
			case ch == '\t':
				b.WriteString(`\t`)
			case ch < 0x20 || ch >= 0x7f:
				fmt.Fprintf(&b, `\%03o`, ch)
			default:
				b.WriteByte(ch)
			}
		}
	}

	b.WriteByte('"')

	return b.String(), n
}

func slotComments(m *symmap.Map) string {
	if m == nil || len(m.Slots) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n")

	for _, s := range m.Slots {
		fmt.Fprintf(&b, "/* memory[%d]: %s */\n", s.Index, commentSafe(s.Name))
	}

	return b.String()
}

// slotNote names the variable a PUSH addresses when a LOAD or STORE uses it next.
func slotNote(l *isa.Listing, i int, m *symmap.Map) string {
	if m == nil || l.Instrs[i].Op != isa.OpPUSH || i+1 >= len(l.Instrs) {
		return ""
	}

	if next := l.Instrs[i+1].Op; next != isa.OpLOAD && next != isa.OpSTORE {
		return ""
	}

	name, ok := m.SlotName(int(l.Instrs[i].Value))
	if !ok {
		return ""
	}

	return " /* " + commentSafe(name) + " */"
}

func labelNote(off int, m *symmap.Map) string {
	names := m.LabelsAt(off)
	if len(names) == 0 {
		return ""
	}

	for i, n := range names {
		names[i] = commentSafe(n)
	}

	return " /* " + strings.Join(names, ", ") + " */"
}

// commentSafe keeps a name from closing the comment it is printed in.
func commentSafe(s string) string {
	if strings.Contains(s, "*/") || strings.ContainsAny(s, "\n\r") {
		return strconv.Quote(strings.ReplaceAll(s, "*/", "* /"))
	}
	return s
}
