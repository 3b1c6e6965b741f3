package asm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"tlog.app/go/errors"

	"charless/pkg/isa"
)

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
}

// Parse reads text assembly into a Program.
//
//	loop:               label definition
//	    PUSH 5          instruction with a literal
//	    JZ done         jump to a label
//	    PRINT_STR "hi"  quoted string, Go escapes
//	    HALT            ; comment
func Parse(src string) (*Program, error) {
	p := NewProgram()

	for i, raw := range strings.Split(src, "\n") {
		lineNo := i + 1

		pl, err := parseLine(raw, lineNo)
		if err != nil {
			return nil, err
		}

		p.line = lineNo

		for _, lbl := range pl.labels {
			p.Mark(p.NamedLabel(lbl))
		}

		if pl.mnemonic == "" {
			continue
		}

		err = p.parseInstr(pl)
		if err != nil {
			return nil, err
		}
	}

	p.line = 0

	return p, nil
}

func (p *Program) parseInstr(pl parsedLine) error {
	op, ok := isa.Lookup(pl.mnemonic)
	if !ok {
		return errors.New("unknown instruction on line %d: %s", pl.lineNo, pl.mnemonic)
	}

	want := 1
	if op.Operand() == isa.OperandNone {
		want = 0
	}
	if len(pl.operands) != want {
		return errors.New("%s expects %d operand(s) on line %d", pl.mnemonic, want, pl.lineNo)
	}

	switch op.Operand() {
	case isa.OperandNone:
		p.Op(op)

	case isa.OperandLiteral:
		v, err := strconv.ParseInt(pl.operands[0], 0, 64)
		if err != nil {
			return errors.New("invalid literal '%s' on line %d", pl.operands[0], pl.lineNo)
		}
		p.Emit(isa.Instr{Op: op, Value: v})

	case isa.OperandString:
		p.Emit(isa.Instr{Op: op, Text: isa.CharCodes(pl.operands[0])})

	case isa.OperandTarget:
		if !isIdentifier(pl.operands[0]) {
			return errors.New("invalid label '%s' on line %d", pl.operands[0], pl.lineNo)
		}
		p.Jump(op, p.NamedLabel(pl.operands[0]))
	}

	return nil
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := strings.TrimSpace(raw)
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		quote := strings.IndexByte(line, '"')
		if colon <= 0 || quote >= 0 && quote < colon {
			break
		}

		beforeColon := strings.TrimSpace(line[:colon])
		if strings.ContainsAny(beforeColon, " \t") {
			break
		}

		if !isIdentifier(beforeColon) {
			return p, errors.New("invalid label '%s' on line %d", beforeColon, lineNo)
		}

		p.labels = append(p.labels, beforeColon)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	// A quoted operand keeps its spaces and may hold comment characters.
	if quote := strings.IndexByte(line, '"'); quote >= 0 {
		closing := closingQuote(line, quote)
		if closing < 0 {
			return p, errors.New("invalid string literal on line %d", lineNo)
		}

		s, err := strconv.Unquote(line[quote : closing+1])
		if err != nil {
			return p, errors.New("invalid string literal on line %d: %v", lineNo, err)
		}

		if rest := strings.TrimSpace(stripComments(line[closing+1:])); rest != "" {
			return p, errors.New("unexpected '%s' after string on line %d", rest, lineNo)
		}

		p.mnemonic = strings.ToUpper(strings.TrimSpace(line[:quote]))
		p.operands = []string{s}

		return p, nil
	}

	line = strings.TrimSpace(stripComments(line))
	if line == "" {
		return p, nil
	}

	fields := strings.Fields(strings.ReplaceAll(line, ",", " "))

	p.mnemonic = strings.ToUpper(fields[0])
	if len(fields) > 1 {
		p.operands = fields[1:]
	}

	return p, nil
}

func closingQuote(line string, open int) int {
	for i := open + 1; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}

	return -1
}

func stripComments(line string) string {
	semicolon := strings.Index(line, ";")
	doubleSlash := strings.Index(line, "//")

	cut := -1
	if semicolon >= 0 {
		cut = semicolon
	}
	if doubleSlash >= 0 && (cut == -1 || doubleSlash < cut) {
		cut = doubleSlash
	}
	if cut >= 0 {
		return line[:cut]
	}
	return line
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return false
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}

	return true
}

func formatInstr(in isa.Instr) string {
	switch in.Op.Operand() {
	case isa.OperandLiteral:
		return fmt.Sprintf("%v %d", in.Op, in.Value)
	case isa.OperandString:
		return fmt.Sprintf("%v %s", in.Op, strconv.Quote(isa.TextString(in.Text)))
	case isa.OperandTarget:
		return fmt.Sprintf("%v %d", in.Op, in.Value)
	default:
		return in.Op.String()
	}
}

// Disassemble turns a decoded listing back into a Program. Every jump
// target gets a label named after its offset, so assembling the result
// reproduces a canonical stream.
func Disassemble(l *isa.Listing) *Program {
	p := NewProgram()
	targets := l.Targets()

	mark := func(off int) {
		if targets[off] {
			p.Mark(p.NamedLabel(OffsetLabel(off)))
		}
	}

	for _, in := range l.Instrs {
		mark(in.Offset)

		if in.Op.IsJump() {
			p.Jump(in.Op, p.NamedLabel(OffsetLabel(int(in.Value))))
			continue
		}

		p.Emit(in.Instr)
	}

	mark(l.Size)

	return p
}

// OffsetLabel names the label placed at a stream offset.
func OffsetLabel(off int) string {
	return fmt.Sprintf("Label_%d", off)
}
