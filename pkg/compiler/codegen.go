package compiler

import (
	"math"
	"strconv"
	"strings"

	"tlog.app/go/errors"

	"charless/pkg/asm"
	"charless/pkg/isa"
)

// CodeGen walks an AST and emits instructions into an asm.Program.
// Every expression leaves exactly one value on the stack.
type CodeGen struct {
	syms *SymbolTable
	prog *asm.Program
}

func newCodeGen(syms *SymbolTable) *CodeGen {
	return &CodeGen{
		syms: syms,
		prog: asm.NewProgram(),
	}
}

// binaryOps maps operators with a direct opcode.
var binaryOps = map[TokenType]isa.Opcode{
	PLUS:       isa.OpADD,
	MINUS:      isa.OpSUB,
	STAR:       isa.OpMUL,
	SLASH:      isa.OpDIV,
	PERCENT:    isa.OpMOD,
	EQUALS:     isa.OpEQ,
	GREATER:    isa.OpGT,
	LESS:       isa.OpLT,
	GREATER_EQ: isa.OpGE,
	LESS_EQ:    isa.OpLE,
}

func (cg *CodeGen) push(v int64) {
	cg.prog.Emit(isa.Instr{Op: isa.OpPUSH, Value: v})
}

// genLiteral pushes v. Values the wire format cannot carry directly are
// built from parts that it can.
func (cg *CodeGen) genLiteral(v int64) {
	switch {
	case v == math.MinInt64:
		cg.push(0)
		cg.genLiteral(math.MaxInt64)
		cg.prog.Op(isa.OpSUB)
		cg.push(1)
		cg.prog.Op(isa.OpSUB)

	case v < 0:
		cg.push(0)
		cg.genLiteral(-v)
		cg.prog.Op(isa.OpSUB)

	case isa.CollidesWithSep(v):
		// Turning every 200 into 199 leaves a part free of the separator;
		// the remainder only has digits 0 and 1.
		digits := strconv.FormatInt(v, 10)
		a, _ := strconv.ParseInt(strings.ReplaceAll(digits, isa.Sep, "199"), 10, 64)

		cg.push(a)
		cg.push(v - a)
		cg.prog.Op(isa.OpADD)

	default:
		cg.push(v)
	}
}

// genAddress pushes the slot index of name, allocating it on first sight.
func (cg *CodeGen) genAddress(name string) {
	slot, _ := cg.syms.Allocate(name)
	cg.genLiteral(int64(slot.Index))
}

func (cg *CodeGen) genExpr(e Expr) error {
	switch n := e.(type) {
	case *Literal:
		cg.genLiteral(n.Value)

	case *VarRef:
		cg.genAddress(n.Name)
		cg.prog.Op(isa.OpLOAD)

	case *BinaryExpr:
		if err := cg.genExpr(n.Left); err != nil {
			return err
		}
		if err := cg.genExpr(n.Right); err != nil {
			return err
		}

		if n.Op == NOT_EQ {
			// No not-equal opcode: compare, then compare the result with zero.
			cg.prog.Op(isa.OpEQ)
			cg.push(0)
			cg.prog.Op(isa.OpEQ)
			return nil
		}

		op, ok := binaryOps[n.Op]
		if !ok {
			return errors.New("unsupported operator %v", n.Op)
		}
		cg.prog.Op(op)

	default:
		return errors.New("unsupported expression %T", e)
	}

	return nil
}

// genStore evaluates value then stores it into name's slot.
// STORE pops the address first, so the value goes below it.
func (cg *CodeGen) genStore(name string, value Expr) error {
	if err := cg.genExpr(value); err != nil {
		return err
	}

	cg.genAddress(name)
	cg.prog.Op(isa.OpSTORE)

	return nil
}

func (cg *CodeGen) genBlock(stmts []Stmt) error {
	for _, s := range stmts {
		if err := cg.genStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (cg *CodeGen) genStmt(s Stmt) error {
	switch n := s.(type) {
	case *VariableDecl:
		if n.Init == nil {
			cg.syms.Allocate(n.Name)
			return nil
		}

		// The slot exists before the initializer so int x = x; reads it.
		cg.syms.Allocate(n.Name)

		return cg.genStore(n.Name, n.Init)

	case *Assignment:
		// Same order as a declaration: the target gets its slot before
		// any name first seen on the right.
		cg.syms.Allocate(n.Name)

		return cg.genStore(n.Name, n.Value)

	case *WhileStmt:
		startLabel := cg.prog.NewLabel()
		endLabel := cg.prog.NewLabel()

		cg.prog.Mark(startLabel)
		if err := cg.genExpr(n.Condition); err != nil {
			return err
		}
		cg.prog.Jump(isa.OpJZ, endLabel)

		if err := cg.genBlock(n.Body); err != nil {
			return err
		}

		cg.prog.Jump(isa.OpJUMP, startLabel)
		cg.prog.Mark(endLabel)

	case *IfStmt:
		elseLabel := cg.prog.NewLabel()
		endLabel := cg.prog.NewLabel()

		if err := cg.genExpr(n.Condition); err != nil {
			return err
		}
		cg.prog.Jump(isa.OpJZ, elseLabel)

		if err := cg.genBlock(n.Body); err != nil {
			return err
		}

		cg.prog.Jump(isa.OpJUMP, endLabel)
		cg.prog.Mark(elseLabel)
		cg.prog.Mark(endLabel)

	case *PrintStmt:
		if n.Arg == nil {
			cg.prog.Emit(isa.Instr{Op: isa.OpPRINT_STR, Text: isa.CharCodes(unescape(n.Format))})
			return nil
		}

		var op isa.Opcode
		switch {
		case strings.Contains(n.Format, "%d"):
			op = isa.OpPRINT_NUM
		case strings.Contains(n.Format, "%c"):
			op = isa.OpPRINT_CHAR
		default:
			return nil
		}

		if err := cg.genExpr(n.Arg); err != nil {
			return err
		}
		cg.prog.Op(op)

	case *ScanStmt:
		var op isa.Opcode
		switch {
		case strings.Contains(n.Format, "%d"):
			op = isa.OpINPUT_NUM
		case strings.Contains(n.Format, "%c"):
			op = isa.OpINPUT_CHAR
		default:
			return nil
		}

		cg.prog.Op(op)
		cg.genAddress(n.Name)
		cg.prog.Op(isa.OpSTORE)

	case *ReturnStmt:
		cg.prog.Op(isa.OpHALT)

	default:
		return errors.New("unsupported statement %T", s)
	}

	return nil
}

// unescape interprets the escapes printf output needs. Unknown escapes
// are kept as written.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var sb strings.Builder

	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			sb.WriteByte(s[i])
			continue
		}

		i++
		switch s[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case '"':
			sb.WriteByte('"')
		case '\\':
			sb.WriteByte('\\')
		default:
			sb.WriteByte('\\')
			sb.WriteByte(s[i])
		}
	}

	return sb.String()
}

// Generate emits stmts into a new Program, allocating slots in syms.
func Generate(stmts []Stmt, syms *SymbolTable) (*asm.Program, error) {
	cg := newCodeGen(syms)

	if err := cg.genBlock(stmts); err != nil {
		return nil, err
	}

	return cg.prog, nil
}
