package isa

import (
	"fmt"
	"strconv"
	"strings"

	"tlog.app/go/errors"
)

// Instr is one instruction with its operand already resolved.
// Value holds the push literal or the jump target; Text holds the
// character codes of a PRINT_STR.
type Instr struct {
	Op    Opcode
	Value int64
	Text  []int
}

// EncodeError reports an operand that has no canonical digit form.
type EncodeError struct {
	Op     Opcode
	Reason string
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %v: %s", e.Op, e.Reason)
}

func (in Instr) String() string {
	switch in.Op.Operand() {
	case OperandLiteral:
		return fmt.Sprintf("%v %d", in.Op, in.Value)
	case OperandTarget:
		return fmt.Sprintf("%v @%05d", in.Op, in.Value)
	case OperandString:
		return fmt.Sprintf("%v %q", in.Op, TextString(in.Text))
	default:
		return in.Op.String()
	}
}

// CollidesWithSep reports whether the decimal digits of v would be cut short
// by a separator lookahead.
func CollidesWithSep(v int64) bool {
	if v < 0 {
		return false
	}
	digits := strconv.FormatInt(v, 10)
	return strings.Index(digits+Sep, Sep) != len(digits)
}

// CharCodes converts s to the character codes PRINT_STR carries.
func CharCodes(s string) []int {
	codes := make([]int, 0, len(s))
	for _, r := range s {
		codes = append(codes, int(r))
	}
	return codes
}

// TextString converts character codes back to a string.
func TextString(codes []int) string {
	var sb strings.Builder
	for _, c := range codes {
		sb.WriteRune(rune(c))
	}
	return sb.String()
}

// Width returns the number of digits in encodes to.
// Jumps are always JumpWidth wide.
func Width(in Instr) int {
	switch in.Op.Operand() {
	case OperandLiteral:
		return OpcodeWidth + len(Sep) + len(Prefix) + len(strconv.FormatInt(in.Value, 10)) + len(Sep)
	case OperandTarget:
		return JumpWidth
	case OperandString:
		n := OpcodeWidth + len(Sep) + len(Sep)
		for _, c := range in.Text {
			n += 1 + len(strconv.Itoa(c))
		}
		return n
	default:
		return OpcodeWidth + len(Sep)
	}
}

// AppendInstr appends the canonical digit form of in to b.
func AppendInstr(b []byte, in Instr) ([]byte, error) {
	if !in.Op.Valid() {
		return b, &EncodeError{Op: in.Op, Reason: "unknown opcode"}
	}

	b = append(b, in.Op.Digits()...)
	b = append(b, Sep...)

	switch in.Op.Operand() {
	case OperandLiteral:
		if in.Value < 0 {
			return b, &EncodeError{Op: in.Op, Reason: fmt.Sprintf("negative literal %d", in.Value)}
		}
		if CollidesWithSep(in.Value) {
			return b, &EncodeError{Op: in.Op, Reason: fmt.Sprintf("literal %d contains separator %s", in.Value, Sep)}
		}
		b = append(b, Prefix...)
		b = strconv.AppendInt(b, in.Value, 10)
		b = append(b, Sep...)

	case OperandTarget:
		if in.Value < 0 || in.Value > MaxTarget {
			return b, &EncodeError{Op: in.Op, Reason: fmt.Sprintf("target %d out of range 0..%d", in.Value, MaxTarget)}
		}
		b = append(b, Prefix...)
		b = fmt.Appendf(b, "%0*d", TargetWidth, in.Value)
		b = append(b, Sep...)

	case OperandString:
		for _, c := range in.Text {
			if c < 0 || c > 9999 {
				return b, &EncodeError{Op: in.Op, Reason: fmt.Sprintf("character code %d out of range 0..9999", c)}
			}
			code := strconv.Itoa(c)
			b = append(b, byte('0'+len(code)))
			b = append(b, code...)
		}
		b = append(b, Sep...)
	}

	return b, nil
}

// Encode renders a resolved instruction sequence.
func Encode(prog []Instr) (string, error) {
	var b []byte
	for i, in := range prog {
		var err error
		b, err = AppendInstr(b, in)
		if err != nil {
			return "", errors.Wrap(err, "instruction %d", i)
		}
	}
	return string(b), nil
}
