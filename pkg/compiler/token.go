package compiler

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	// Literals
	IDENTIFIER // variable name
	INTEGER    // decimal integer literal
	STRING     // string literal "...", raw contents

	// Keywords
	INT    // "int"
	IF     // "if"
	WHILE  // "while"
	RETURN // "return"
	PRINTF // "printf"
	SCANF  // "scanf"

	// Paired delimiters
	LBRACE // {
	RBRACE // }
	LPAREN // (
	RPAREN // )

	// Punctuation
	SEMICOLON // ;
	COMMA     // ,

	// Arithmetic operators
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %
	AND     // & (address-of in scanf)
	PIPE    // |
	NOT     // !

	// Assignment / comparison  (order matters: ASSIGN before EQUALS)
	ASSIGN     // =
	EQUALS     // ==
	NOT_EQ     // !=
	LESS       // <
	GREATER    // >
	LESS_EQ    // <=
	GREATER_EQ // >=
)

// tokenNames is indexed by TokenType.
var tokenNames = [...]string{
	EOF:        "EOF",
	IDENTIFIER: "IDENTIFIER",
	INTEGER:    "INTEGER",
	STRING:     "STRING",
	INT:        "INT",
	IF:         "IF",
	WHILE:      "WHILE",
	RETURN:     "RETURN",
	PRINTF:     "PRINTF",
	SCANF:      "SCANF",
	LBRACE:     "LBRACE",
	RBRACE:     "RBRACE",
	LPAREN:     "LPAREN",
	RPAREN:     "RPAREN",
	SEMICOLON:  "SEMICOLON",
	COMMA:      "COMMA",
	PLUS:       "PLUS",
	MINUS:      "MINUS",
	STAR:       "STAR",
	SLASH:      "SLASH",
	PERCENT:    "PERCENT",
	AND:        "AND",
	PIPE:       "PIPE",
	NOT:        "NOT",
	ASSIGN:     "ASSIGN",
	EQUALS:     "EQUALS",
	NOT_EQ:     "NOT_EQ",
	LESS:       "LESS",
	GREATER:    "GREATER",
	LESS_EQ:    "LESS_EQ",
	GREATER_EQ: "GREATER_EQ",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// TokenClass is the coarse kind of a token.
type TokenClass int

const (
	ClassEndOfInput TokenClass = iota
	ClassKeyword
	ClassIdentifier
	ClassNumber
	ClassString
	ClassOperator
)

var classNames = [...]string{
	ClassEndOfInput: "EndOfInput",
	ClassKeyword:    "Keyword",
	ClassIdentifier: "Identifier",
	ClassNumber:     "Number",
	ClassString:     "String",
	ClassOperator:   "Operator",
}

func (c TokenClass) String() string {
	if int(c) >= 0 && int(c) < len(classNames) {
		return classNames[c]
	}
	return fmt.Sprintf("TokenClass(%d)", int(c))
}

// Class maps tt onto its coarse kind. Delimiters and punctuation count as
// operators.
func (tt TokenType) Class() TokenClass {
	switch {
	case tt == EOF:
		return ClassEndOfInput
	case tt == IDENTIFIER:
		return ClassIdentifier
	case tt == INTEGER:
		return ClassNumber
	case tt == STRING:
		return ClassString
	case tt >= INT && tt <= SCANF:
		return ClassKeyword
	default:
		return ClassOperator
	}
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type   TokenType
	Lexeme string // the exact source text that was matched
	Line   int    // 1-based source line
}

func (t Token) String() string {
	return fmt.Sprintf("%-10s %-14q  line %d", t.Type, t.Lexeme, t.Line)
}
