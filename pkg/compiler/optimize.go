package compiler

// foldConstants replaces every BinaryExpr over two literals with its value.
// Division and modulo by zero are left for run time.
func foldConstants(stmts []Stmt) []Stmt {
	for _, s := range stmts {
		foldStmt(s)
	}
	return stmts
}

func foldStmt(s Stmt) {
	switch n := s.(type) {
	case *VariableDecl:
		if n.Init != nil {
			n.Init = foldExpr(n.Init)
		}
	case *Assignment:
		n.Value = foldExpr(n.Value)
	case *WhileStmt:
		n.Condition = foldExpr(n.Condition)
		foldConstants(n.Body)
	case *IfStmt:
		n.Condition = foldExpr(n.Condition)
		foldConstants(n.Body)
	case *PrintStmt:
		if n.Arg != nil {
			n.Arg = foldExpr(n.Arg)
		}
	case *ScanStmt, *ReturnStmt:
		// nothing to fold
	}
}

func foldExpr(e Expr) Expr {
	b, ok := e.(*BinaryExpr)
	if !ok {
		return e
	}

	b.Left = foldExpr(b.Left)
	b.Right = foldExpr(b.Right)

	l, lok := b.Left.(*Literal)
	r, rok := b.Right.(*Literal)
	if !lok || !rok {
		return b
	}

	v, ok := evalBinary(b.Op, l.Value, r.Value)
	if !ok {
		return b
	}

	return &Literal{Value: v}
}

// evalBinary applies op with the same results the comparison opcodes give.
func evalBinary(op TokenType, a, b int64) (int64, bool) {
	switch op {
	case PLUS:
		return a + b, true
	case MINUS:
		return a - b, true
	case STAR:
		return a * b, true
	case SLASH:
		if b == 0 {
			return 0, false
		}
		return a / b, true
	case PERCENT:
		if b == 0 {
			return 0, false
		}
		return a % b, true
	case EQUALS:
		return boolValue(a == b), true
	case NOT_EQ:
		return boolValue(a != b), true
	case LESS:
		return boolValue(a < b), true
	case GREATER:
		return boolValue(a > b), true
	case LESS_EQ:
		return boolValue(a <= b), true
	case GREATER_EQ:
		return boolValue(a >= b), true
	}
	return 0, false
}

func boolValue(v bool) int64 {
	if v {
		return 1
	}
	return 0
}
