package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError reports a token that does not fit the grammar.
type ParseError struct {
	Line    int
	Want    string
	Got     Token
	Snippet string
}

func (e *ParseError) Error() string {
	got := e.Got.Type.String()
	if e.Got.Lexeme != "" {
		got = fmt.Sprintf("%s (%q)", e.Got.Type, e.Got.Lexeme)
	}

	msg := fmt.Sprintf("line %d: expected %s, got %s", e.Line, e.Want, got)
	if e.Snippet != "" {
		msg += "\n  |> " + e.Snippet
	}

	return msg
}

// Parser consumes the flat token slice produced by the Lexer and builds an AST.
//
// Grammar:
//
//	program    = "int" "main" "(" ")" "{" statement* "}" statement* EOF
//	           | statement* EOF
//	statement  = "int" IDENTIFIER ("=" expression)? ";"
//	           | IDENTIFIER "=" expression ";"
//	           | "while" "(" expression ")" block
//	           | "if" "(" expression ")" block
//	           | "printf" "(" STRING ("," expression)? ")" ";"
//	           | "scanf" "(" STRING "," "&"? IDENTIFIER ")" ";"
//	           | "return" INTEGER? ";"
//	block      = "{" statement* "}"
//	expression = comparison
//	comparison = sum (("==" | "!=" | "<" | ">" | "<=" | ">=") sum)*
//	sum        = term (("+" | "-") term)*
//	term       = factor (("*" | "/" | "%") factor)*
//	factor     = INTEGER | IDENTIFIER | "(" expression ")"
//
// Outside strict mode a token that cannot start a statement is skipped.
type Parser struct {
	tokens      []Token
	pos         int
	strict      bool
	sourceLines []string
	skipped     int
}

func NewParser(tokens []Token, rawSource string, strict bool) *Parser {
	return &Parser{tokens: tokens, strict: strict, sourceLines: strings.Split(rawSource, "\n")}
}

// fail builds a ParseError carrying the source line where tok appears.
func (p *Parser) fail(tok Token, want string) error {
	e := &ParseError{Line: tok.Line, Want: want, Got: tok}

	if idx := tok.Line - 1; idx >= 0 && idx < len(p.sourceLines) {
		e.Snippet = strings.TrimSpace(p.sourceLines[idx])
	}

	return e
}

// peek returns the current token without consuming it.
func (p *Parser) peek() Token {
	return p.peekAt(0)
}

// peekAt returns the token at the given offset from the current position.
func (p *Parser) peekAt(offset int) Token {
	if p.pos+offset >= len(p.tokens) {
		line := 0
		if len(p.tokens) != 0 {
			line = p.tokens[len(p.tokens)-1].Line
		}
		return Token{Type: EOF, Line: line}
	}
	return p.tokens[p.pos+offset]
}

// advance consumes and returns the current token.
func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// expect consumes the current token if it matches tt, otherwise returns an error.
func (p *Parser) expect(tt TokenType, want string) (Token, error) {
	tok := p.peek()
	if tok.Type != tt {
		return tok, p.fail(tok, want)
	}
	return p.advance(), nil
}

// parseExpression is the entry point for expression parsing.
func (p *Parser) parseExpression() (Expr, error) {
	return p.parseComparison()
}

// parseComparison handles == != < > <= >=, all at one level.
func (p *Parser) parseComparison() (Expr, error) {
	expr, err := p.parseSum()
	if err != nil {
		return nil, err
	}

	for isComparison(p.peek().Type) {
		op := p.advance().Type
		right, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		expr = &BinaryExpr{Op: op, Left: expr, Right: right}
	}

	return expr, nil
}

// parseSum handles + and -
func (p *Parser) parseSum() (Expr, error) {
	expr, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	for {
		tt := p.peek().Type
		if tt != PLUS && tt != MINUS {
			break
		}
		op := p.advance().Type
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		expr = &BinaryExpr{Op: op, Left: expr, Right: right}
	}

	return expr, nil
}

// parseTerm handles * / and %
func (p *Parser) parseTerm() (Expr, error) {
	expr, err := p.parseFactor()
	if err != nil {
		return nil, err
	}

	for {
		tt := p.peek().Type
		if tt != STAR && tt != SLASH && tt != PERCENT {
			break
		}
		op := p.advance().Type
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		expr = &BinaryExpr{Op: op, Left: expr, Right: right}
	}

	return expr, nil
}

// parseFactor handles literals, variables, and parenthesised expressions.
func (p *Parser) parseFactor() (Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case INTEGER:
		p.advance()
		val, err := strconv.ParseInt(tok.Lexeme, 10, 64)
		if err != nil {
			return nil, p.fail(tok, "integer within 64-bit range")
		}
		return &Literal{Value: val}, nil

	case IDENTIFIER:
		p.advance()
		return &VarRef{Name: tok.Lexeme}, nil

	case LPAREN:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN, "')'"); err != nil {
			return nil, err
		}
		return expr, nil

	default:
		return nil, p.fail(tok, "expression")
	}
}

func isComparison(tt TokenType) bool {
	switch tt {
	case EQUALS, NOT_EQ, LESS, GREATER, LESS_EQ, GREATER_EQ:
		return true
	}
	return false
}

// parseVarDecl parses  int NAME [= expr] ;
// The leading INT token has already been consumed.
func (p *Parser) parseVarDecl() (Stmt, error) {
	nameTok, err := p.expect(IDENTIFIER, "variable name")
	if err != nil {
		return nil, err
	}

	decl := &VariableDecl{Name: nameTok.Lexeme, Line: nameTok.Line}

	if p.peek().Type == ASSIGN {
		p.advance()
		decl.Init, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(SEMICOLON, "';'"); err != nil {
		return nil, err
	}

	return decl, nil
}

// parseAssignment parses  NAME = expr ;
// The name token has already been consumed.
func (p *Parser) parseAssignment(nameTok Token) (Stmt, error) {
	p.advance() // =

	val, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON, "';'"); err != nil {
		return nil, err
	}

	return &Assignment{Name: nameTok.Lexeme, Value: val, Line: nameTok.Line}, nil
}

// parseCondition parses  ( expr )
func (p *Parser) parseCondition() (Expr, error) {
	if _, err := p.expect(LPAREN, "'('"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN, "')'"); err != nil {
		return nil, err
	}
	return cond, nil
}

// parseBlock parses { stmt* }. Reaching EOF before the closing brace is an error.
func (p *Parser) parseBlock() ([]Stmt, error) {
	if _, err := p.expect(LBRACE, "'{'"); err != nil {
		return nil, err
	}

	stmts, err := p.parseStatements()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(RBRACE, "'}'"); err != nil {
		return nil, err
	}

	return stmts, nil
}

// parseStatements parses statements up to a closing brace or EOF, which is left unconsumed.
func (p *Parser) parseStatements() ([]Stmt, error) {
	var stmts []Stmt

	for p.peek().Type != RBRACE && p.peek().Type != EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
	}

	return stmts, nil
}

// parsePrintf parses  printf ( STRING [, expr] ) ;
func (p *Parser) parsePrintf() (Stmt, error) {
	if _, err := p.expect(LPAREN, "'('"); err != nil {
		return nil, err
	}
	format, err := p.expect(STRING, "format string")
	if err != nil {
		return nil, err
	}

	stmt := &PrintStmt{Format: format.Lexeme}

	if p.peek().Type == COMMA {
		p.advance()
		stmt.Arg, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(RPAREN, "')'"); err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON, "';'"); err != nil {
		return nil, err
	}

	return stmt, nil
}

// parseScanf parses  scanf ( STRING , [&] NAME ) ;
func (p *Parser) parseScanf() (Stmt, error) {
	if _, err := p.expect(LPAREN, "'('"); err != nil {
		return nil, err
	}
	format, err := p.expect(STRING, "format string")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(COMMA, "','"); err != nil {
		return nil, err
	}
	if p.peek().Type == AND {
		p.advance()
	}
	name, err := p.expect(IDENTIFIER, "variable name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN, "')'"); err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON, "';'"); err != nil {
		return nil, err
	}

	return &ScanStmt{Format: format.Lexeme, Name: name.Lexeme}, nil
}

// parseReturn parses  return [NUMBER] ;
func (p *Parser) parseReturn() (Stmt, error) {
	stmt := &ReturnStmt{}

	if tok := p.peek(); tok.Type == INTEGER {
		val, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		stmt.Value = val
	}

	if _, err := p.expect(SEMICOLON, "';'"); err != nil {
		return nil, err
	}

	return stmt, nil
}

// parseStatement dispatches to the correct sub-parser based on the leading token.
// It returns a nil Stmt for a skipped token.
func (p *Parser) parseStatement() (Stmt, error) {
	tok := p.peek()
	switch tok.Type {
	case INT:
		p.advance()
		return p.parseVarDecl()

	case IDENTIFIER:
		if p.peekAt(1).Type == ASSIGN {
			p.advance()
			return p.parseAssignment(tok)
		}

	case WHILE:
		p.advance()
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &WhileStmt{Condition: cond, Body: body}, nil

	case IF:
		p.advance()
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &IfStmt{Condition: cond, Body: body}, nil

	case PRINTF:
		p.advance()
		return p.parsePrintf()

	case SCANF:
		p.advance()
		return p.parseScanf()

	case RETURN:
		p.advance()
		return p.parseReturn()
	}

	if p.strict {
		return nil, p.fail(tok, "statement")
	}

	p.advance()
	p.skipped++

	return nil, nil
}

// isMainWrapper reports whether the stream opens with  int main ( ) {
func (p *Parser) isMainWrapper() bool {
	return p.peekAt(0).Type == INT &&
		p.peekAt(1).Type == IDENTIFIER && p.peekAt(1).Lexeme == "main" &&
		p.peekAt(2).Type == LPAREN &&
		p.peekAt(3).Type == RPAREN &&
		p.peekAt(4).Type == LBRACE
}

// parseProgram parses the whole token stream.
func (p *Parser) parseProgram() ([]Stmt, error) {
	var stmts []Stmt

	if p.isMainWrapper() {
		p.pos += 4

		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		stmts = body
	}

	for p.peek().Type != EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
	}

	return stmts, nil
}

// Skipped is the number of tokens dropped in lenient mode.
func (p *Parser) Skipped() int { return p.skipped }

// Parse builds the statement list for tokens. rawSource is only used for
// error snippets. With strict set, tokens that would be skipped are errors.
func Parse(tokens []Token, rawSource string, strict bool) ([]Stmt, error) {
	p := NewParser(tokens, rawSource, strict)
	return p.parseProgram()
}
