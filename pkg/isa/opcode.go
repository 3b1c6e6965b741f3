// Package isa describes the charless instruction set: the closed opcode
// table, the reserved digit sequences of the wire format, and the
// encoder and decoder for the digit stream.
//
// Every token of the wire format is itself a run of decimal digits:
//
//	OPCODE SEP                          opcode only
//	OPCODE SEP PREFIX DIGITS SEP        push
//	OPCODE SEP PREFIX NNNNN SEP         jump, 5-digit zero padded target
//	OPCODE SEP (LEN CODE)* SEP          print string
package isa

import "fmt"

// Opcode is the numeric value of the 3-digit opcode field.
type Opcode uint16

const (
	OpHALT          Opcode = 0
	OpPRINT_STR     Opcode = 10
	OpPRINT_NUM     Opcode = 20
	OpPRINT_CHAR    Opcode = 40
	OpINPUT_CHAR    Opcode = 100
	OpINPUT_NUM     Opcode = 101
	OpPRINT_NEWLINE Opcode = 210
	OpPUSH          Opcode = 500
	OpPOP           Opcode = 501
	OpSTORE         Opcode = 510
	OpLOAD          Opcode = 511
	OpADD           Opcode = 600
	OpSUB           Opcode = 601
	OpMUL           Opcode = 602
	OpDIV           Opcode = 603
	OpMOD           Opcode = 604
	OpJUMP          Opcode = 700
	OpJZ            Opcode = 701
	OpJNZ           Opcode = 702
	OpEQ            Opcode = 801
	OpGT            Opcode = 802
	OpLT            Opcode = 803
	OpGE            Opcode = 804
	OpLE            Opcode = 805
)

// Reserved digit sequences.
const (
	Sep    = "200" // field separator
	Prefix = "990" // numeric literal prefix

	LegacySep    = "20"
	LegacyPrefix = "99"

	LineComment  = "90020" // runs to end of line
	BlockComment = "90120" // runs to the next BlockComment or end of input

	OpcodeWidth = 3
	TargetWidth = 5
	MaxTarget   = 99999

	// JumpWidth is the encoded width of every jump regardless of target.
	JumpWidth = OpcodeWidth + len(Sep) + len(Prefix) + TargetWidth + len(Sep)
)

// Operand describes what follows the opcode and its separator.
type Operand int

const (
	OperandNone    Operand = iota
	OperandLiteral         // PREFIX DIGITS SEP
	OperandString          // (LEN CODE)* SEP
	OperandTarget          // PREFIX NNNNN SEP
)

var opcodeNames = map[Opcode]string{
	OpHALT:          "HALT",
	OpPRINT_STR:     "PRINT_STR",
	OpPRINT_NUM:     "PRINT_NUM",
	OpPRINT_CHAR:    "PRINT_CHAR",
	OpINPUT_CHAR:    "INPUT_CHAR",
	OpINPUT_NUM:     "INPUT_NUM",
	OpPRINT_NEWLINE: "PRINT_NEWLINE",
	OpPUSH:          "PUSH",
	OpPOP:           "POP",
	OpSTORE:         "STORE",
	OpLOAD:          "LOAD",
	OpADD:           "ADD",
	OpSUB:           "SUB",
	OpMUL:           "MUL",
	OpDIV:           "DIV",
	OpMOD:           "MOD",
	OpJUMP:          "JUMP",
	OpJZ:            "JZ",
	OpJNZ:           "JNZ",
	OpEQ:            "EQ",
	OpGT:            "GT",
	OpLT:            "LT",
	OpGE:            "GE",
	OpLE:            "LE",
}

var mnemonics = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for op, name := range opcodeNames {
		m[name] = op
	}
	return m
}()

// Valid reports whether op is in the opcode table.
func (op Opcode) Valid() bool {
	_, ok := opcodeNames[op]
	return ok
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Opcode(%03d)", uint16(op))
}

// Digits returns the 3-digit wire form of op.
func (op Opcode) Digits() string {
	return fmt.Sprintf("%03d", uint16(op))
}

// Operand returns the operand shape that follows op.
func (op Opcode) Operand() Operand {
	switch op {
	case OpPUSH:
		return OperandLiteral
	case OpPRINT_STR:
		return OperandString
	case OpJUMP, OpJZ, OpJNZ:
		return OperandTarget
	default:
		return OperandNone
	}
}

// IsJump reports whether op carries a jump target.
func (op Opcode) IsJump() bool {
	return op.Operand() == OperandTarget
}

// Lookup returns the opcode named by mnemonic, case sensitive.
func Lookup(mnemonic string) (Opcode, bool) {
	op, ok := mnemonics[mnemonic]
	return op, ok
}

// parseOpcode matches exactly three digits against the table.
func parseOpcode(s string) (Opcode, bool) {
	if len(s) != OpcodeWidth {
		return 0, false
	}

	var v uint16
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return 0, false
		}
		v = v*10 + uint16(s[i]-'0')
	}

	op := Opcode(v)
	return op, op.Valid()
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
