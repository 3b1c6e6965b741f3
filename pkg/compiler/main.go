// Package compiler translates a small C subset into the charless digit stream.
//
// Pipeline: C source → Preprocess → Lex → Parse → Generate → asm.Program → digits
package compiler
