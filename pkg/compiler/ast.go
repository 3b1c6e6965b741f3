package compiler

import (
	"fmt"
	"strings"
)

//  Expression nodes

// Expr is implemented by every node that produces a value.
// genExpr always leaves the result on top of the stack.
type Expr interface {
	exprNode()
	String() string
}

// Literal is a compile-time integer constant.
//
//	int x = 10;
//	        ^^  Literal{Value: 10}
type Literal struct {
	Value int64
}

func (*Literal) exprNode()        {}
func (l *Literal) String() string { return fmt.Sprintf("%d", l.Value) }

// VarRef is a read of a named variable.
//
//	x + 1
//	^  VarRef{Name: "x"}
type VarRef struct {
	Name string
}

func (*VarRef) exprNode()        {}
func (v *VarRef) String() string { return v.Name }

// BinaryExpr represents a binary operation: Left Op Right.
//
//	x + 1
//	^ ^ ^
//	| | |
//	| | Right
//	| Op
//	Left
type BinaryExpr struct {
	Op    TokenType
	Left  Expr
	Right Expr
}

func (*BinaryExpr) exprNode() {}
func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}

//  Statement nodes

// Stmt is implemented by every statement node.
type Stmt interface {
	stmtNode()
	String() string
}

// VariableDecl declares a variable with an optional initializer.
//
//	int x = 2 + 3;
type VariableDecl struct {
	Name string
	Init Expr // nil when absent
	Line int
}

func (*VariableDecl) stmtNode() {}
func (d *VariableDecl) String() string {
	if d.Init == nil {
		return fmt.Sprintf("VarDecl(%s)", d.Name)
	}
	return fmt.Sprintf("VarDecl(%s = %s)", d.Name, d.Init)
}

// Assignment stores a value into an existing or new variable.
//
//	x = x + 1;
type Assignment struct {
	Name  string
	Value Expr
	Line  int
}

func (*Assignment) stmtNode() {}
func (a *Assignment) String() string {
	return fmt.Sprintf("Assign(%s = %s)", a.Name, a.Value)
}

// WhileStmt loops while Condition is non-zero.
type WhileStmt struct {
	Condition Expr
	Body      []Stmt
}

func (*WhileStmt) stmtNode() {}
func (w *WhileStmt) String() string {
	return fmt.Sprintf("While(%s) %s", w.Condition, blockString(w.Body))
}

// IfStmt runs Body when Condition is non-zero. There is no else branch.
type IfStmt struct {
	Condition Expr
	Body      []Stmt
}

func (*IfStmt) stmtNode() {}
func (i *IfStmt) String() string {
	return fmt.Sprintf("If(%s) %s", i.Condition, blockString(i.Body))
}

// PrintStmt is a printf call. Format holds the raw literal, escapes
// included. Arg is nil for the single-argument form.
type PrintStmt struct {
	Format string
	Arg    Expr
}

func (*PrintStmt) stmtNode() {}
func (p *PrintStmt) String() string {
	if p.Arg == nil {
		return fmt.Sprintf("Printf(%q)", p.Format)
	}
	return fmt.Sprintf("Printf(%q, %s)", p.Format, p.Arg)
}

// ScanStmt is a scanf call reading into Name.
type ScanStmt struct {
	Format string
	Name   string
}

func (*ScanStmt) stmtNode() {}
func (s *ScanStmt) String() string {
	return fmt.Sprintf("Scanf(%q, &%s)", s.Format, s.Name)
}

// ReturnStmt stops the program. The value is parsed and dropped.
type ReturnStmt struct {
	Value Expr // nil for a bare return
}

func (*ReturnStmt) stmtNode() {}
func (r *ReturnStmt) String() string {
	if r.Value == nil {
		return "Return"
	}
	return fmt.Sprintf("Return(%s)", r.Value)
}

func blockString(stmts []Stmt) string {
	parts := make([]string, len(stmts))
	for i, s := range stmts {
		parts[i] = s.String()
	}
	return "{" + strings.Join(parts, "; ") + "}"
}
