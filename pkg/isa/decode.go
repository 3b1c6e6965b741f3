package isa

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

type (
	DecodeOptions struct {
		// Legacy accepts the 2-digit separator and literal prefix.
		Legacy bool

		// MaxInstructions bounds the listing. Zero means no bound.
		MaxInstructions int
	}

	// Decoded is an instruction together with the offset of its first digit.
	Decoded struct {
		Offset int
		Instr
	}

	// Listing is a decoded stream. Size is the length of the trimmed stream,
	// which is also the offset a jump to the very end refers to.
	Listing struct {
		Instrs []Decoded
		Size   int
	}

	// DecodeError reports a malformed stream.
	DecodeError struct {
		Offset int
		Reason string
	}

	decoder struct {
		code   string
		pos    int
		legacy bool
	}
)

var ErrTooManyInstructions = errors.New("too many instructions")

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode at offset %d: %s", e.Offset, e.Reason)
}

// Decode scans code left to right and recovers the instruction sequence.
//
// Whitespace and comments are skipped. A run that is not an opcode is
// skipped one character at a time. Truncated operands and jumps to an
// offset that is not an instruction boundary are errors.
func Decode(ctx context.Context, code string, opts DecodeOptions) (l *Listing, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "decode", "size", len(code), "legacy", opts.Legacy)
	defer tr.Finish("err", &err)

	d := &decoder{
		code:   strings.TrimSpace(code),
		legacy: opts.Legacy,
	}

	l = &Listing{Size: len(d.code)}

	for d.pos < len(d.code) {
		if d.skipFiller() {
			continue
		}

		off := d.pos

		op, ok := parseOpcode(d.peek(OpcodeWidth))
		if !ok {
			tr.V("decode_skip").Printw("skip", "offset", off, "char", string(d.code[off]))
			d.pos++
			continue
		}

		d.pos += OpcodeWidth
		d.separator()

		in := Instr{Op: op}

		switch op.Operand() {
		case OperandLiteral:
			in.Value, err = d.literal(off)
		case OperandTarget:
			in.Value, err = d.target(off)
		case OperandString:
			in.Text, err = d.text(off)
		}
		if err != nil {
			return nil, err
		}

		if opts.MaxInstructions > 0 && len(l.Instrs) >= opts.MaxInstructions {
			return nil, errors.Wrap(ErrTooManyInstructions, "offset %d", off)
		}

		l.Instrs = append(l.Instrs, Decoded{Offset: off, Instr: in})
	}

	err = l.checkTargets()
	if err != nil {
		return nil, err
	}

	tr.Printw("decoded", "instructions", len(l.Instrs), "size", l.Size)

	return l, nil
}

// Index returns the position in Instrs of the instruction starting at off.
func (l *Listing) Index(off int) (int, bool) {
	i := sort.Search(len(l.Instrs), func(i int) bool {
		return l.Instrs[i].Offset >= off
	})

	return i, i < len(l.Instrs) && l.Instrs[i].Offset == off
}

// Targets returns the set of offsets some jump refers to.
func (l *Listing) Targets() map[int]bool {
	t := make(map[int]bool)
	for _, in := range l.Instrs {
		if in.Op.IsJump() {
			t[int(in.Value)] = true
		}
	}
	return t
}

func (l *Listing) checkTargets() error {
	for _, in := range l.Instrs {
		if !in.Op.IsJump() {
			continue
		}

		target := int(in.Value)
		if target == l.Size {
			continue
		}
		if _, ok := l.Index(target); !ok {
			return &DecodeError{Offset: in.Offset, Reason: fmt.Sprintf("jump target %d is not an instruction boundary", target)}
		}
	}

	return nil
}

func (d *decoder) has(s string) bool {
	return strings.HasPrefix(d.code[d.pos:], s)
}

func (d *decoder) peek(n int) string {
	if d.pos+n > len(d.code) {
		return d.code[d.pos:]
	}
	return d.code[d.pos : d.pos+n]
}

func (d *decoder) errorf(off int, format string, args ...any) error {
	return &DecodeError{Offset: off, Reason: fmt.Sprintf(format, args...)}
}

// skipFiller consumes one whitespace character or one comment.
func (d *decoder) skipFiller() bool {
	switch c := d.code[d.pos]; {
	case c == ' ' || c == '\t' || c == '\n' || c == '\r':
		d.pos++
		return true
	case d.has(LineComment):
		d.pos += len(LineComment)
		for d.pos < len(d.code) && d.code[d.pos] != '\n' {
			d.pos++
		}
		return true
	case d.has(BlockComment):
		d.pos += len(BlockComment)
		end := strings.Index(d.code[d.pos:], BlockComment)
		if end < 0 {
			d.pos = len(d.code)
			return true
		}
		d.pos += end + len(BlockComment)
		return true
	}

	return false
}

// separator consumes the optional separator after an opcode.
func (d *decoder) separator() {
	switch {
	case d.has(Sep):
		d.pos += len(Sep)
	case d.legacy && d.has(LegacySep):
		d.pos += len(LegacySep)
	}
}

// terminator consumes the separator closing an operand.
// The 2-digit form only closes legacy operands.
func (d *decoder) terminator(legacy bool) bool {
	switch {
	case d.has(Sep):
		d.pos += len(Sep)
		return true
	case legacy && d.has(LegacySep):
		d.pos += len(LegacySep)
		return true
	}

	return false
}

func (d *decoder) prefix(off int) (legacy bool, err error) {
	switch {
	case d.has(Prefix):
		d.pos += len(Prefix)
		return false, nil
	case d.legacy && d.has(LegacyPrefix):
		d.pos += len(LegacyPrefix)
		return true, nil
	}

	return false, d.errorf(off, "missing literal prefix")
}

func (d *decoder) literal(off int) (int64, error) {
	legacy, err := d.prefix(off)
	if err != nil {
		return 0, err
	}

	return d.digits(off, legacy)
}

// digits reads a literal payload up to the next separator.
func (d *decoder) digits(off int, legacy bool) (int64, error) {
	start := d.pos

	for {
		if d.pos >= len(d.code) {
			return 0, d.errorf(off, "literal truncated at end of input")
		}
		if d.has(Sep) || legacy && d.has(LegacySep) {
			break
		}
		if !isDigit(d.code[d.pos]) {
			return 0, d.errorf(d.pos, "unexpected %q in literal", d.code[d.pos])
		}

		d.pos++
	}

	payload := d.code[start:d.pos]
	d.terminator(legacy)

	if payload == "" {
		return 0, d.errorf(off, "empty literal")
	}

	v, err := strconv.ParseInt(payload, 10, 64)
	if err != nil {
		return 0, d.errorf(off, "literal %s out of range", payload)
	}

	return v, nil
}

// target reads a jump target. A canonical target is exactly TargetWidth
// digits followed by a separator, so its digits may contain the separator.
// Anything else falls back to the literal lookahead.
func (d *decoder) target(off int) (int64, error) {
	legacy, err := d.prefix(off)
	if err != nil {
		return 0, err
	}

	if !legacy && d.fixedTarget() {
		v, _ := strconv.ParseInt(d.code[d.pos:d.pos+TargetWidth], 10, 64)
		d.pos += TargetWidth + len(Sep)

		return v, nil
	}

	return d.digits(off, legacy)
}

func (d *decoder) fixedTarget() bool {
	end := d.pos + TargetWidth
	if end+len(Sep) > len(d.code) || d.code[end:end+len(Sep)] != Sep {
		return false
	}

	for i := d.pos; i < end; i++ {
		if !isDigit(d.code[i]) {
			return false
		}
	}

	return true
}

// text reads (LEN CODE)* groups up to the closing separator.
// Codes never have leading zeros, so a group never starts with the separator.
func (d *decoder) text(off int) ([]int, error) {
	codes := []int{}

	for {
		if d.pos >= len(d.code) {
			return nil, d.errorf(off, "string truncated at end of input")
		}
		if d.terminator(d.legacy) {
			return codes, nil
		}

		n := int(d.code[d.pos] - '0')
		if n < 1 || n > 4 {
			return nil, d.errorf(d.pos, "bad character length %q", d.code[d.pos])
		}
		d.pos++

		if d.pos+n > len(d.code) {
			return nil, d.errorf(off, "string truncated at end of input")
		}

		c := 0
		for _, r := range []byte(d.code[d.pos : d.pos+n]) {
			if !isDigit(r) {
				return nil, d.errorf(d.pos, "bad character code %q", d.code[d.pos:d.pos+n])
			}
			c = c*10 + int(r-'0')
		}
		d.pos += n

		codes = append(codes, c)
	}
}
