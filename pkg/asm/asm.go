package asm

import (
	"context"
	"fmt"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"charless/pkg/isa"
)

// Label is a symbolic jump target, unique within one Program.
type Label int

type entryKind int

const (
	entryInstr entryKind = iota
	entryJump
	entryMark
)

type entry struct {
	kind  entryKind
	instr isa.Instr // Op only for jumps
	label Label
	line  int // source line for text assembly, 0 otherwise
}

type labelInfo struct {
	name string
	from loc.PC
}

// Program is an instruction stream with label definitions and label
// references interleaved in emission order.
type Program struct {
	entries []entry
	labels  []labelInfo
	named   map[string]Label
	line    int
}

// Options bound the assembled output.
type Options struct {
	// MaxOutput is the longest stream Assemble renders. Zero means no bound.
	MaxOutput int
}

// Layout is the outcome of the offset pass.
type Layout struct {
	Labels  map[string]int // label name -> offset
	Instrs  []isa.Instr    // resolved instructions
	Offsets []int          // Offsets[i] is where Instrs[i] starts
	Size    int
}

type (
	UnresolvedLabelError struct {
		Label string
		From  loc.PC
		Line  int
	}

	DuplicateLabelError struct {
		Label string
		First int
		Line  int
	}
)

var (
	ErrOffsetOverflow = errors.New("offset overflow")
	ErrOutputTooLarge = errors.New("output too large")
)

func (e *UnresolvedLabelError) Error() string {
	if e.Line != 0 {
		return fmt.Sprintf("undefined label '%s' on line %d", e.Label, e.Line)
	}
	return fmt.Sprintf("undefined label '%s' (created at %v)", e.Label, e.From)
}

func (e *DuplicateLabelError) Error() string {
	if e.Line != 0 {
		return fmt.Sprintf("duplicate label '%s' on line %d", e.Label, e.Line)
	}
	return fmt.Sprintf("duplicate label '%s' (first defined at offset %d)", e.Label, e.First)
}

func NewProgram() *Program {
	return &Program{
		named: make(map[string]Label),
	}
}

// NewLabel returns a fresh label named L0, L1, ...
func (p *Program) NewLabel() Label {
	l := Label(len(p.labels))
	p.labels = append(p.labels, labelInfo{
		name: fmt.Sprintf("L%d", l),
		from: loc.Caller(1),
	})

	return l
}

// NamedLabel returns the label called name, creating it on first use.
func (p *Program) NamedLabel(name string) Label {
	if l, ok := p.named[name]; ok {
		return l
	}

	l := Label(len(p.labels))
	p.labels = append(p.labels, labelInfo{name: name, from: loc.Caller(1)})
	p.named[name] = l

	return l
}

// Name returns the printable name of l.
func (p *Program) Name(l Label) string {
	if int(l) < 0 || int(l) >= len(p.labels) {
		return fmt.Sprintf("L?%d", int(l))
	}
	return p.labels[l].name
}

// NumLabels is the number of labels issued so far.
func (p *Program) NumLabels() int { return len(p.labels) }

// Emit appends an instruction with a literal, string or no operand.
func (p *Program) Emit(in isa.Instr) {
	p.entries = append(p.entries, entry{kind: entryInstr, instr: in, line: p.line})
}

// Op appends an instruction that takes no operand.
func (p *Program) Op(op isa.Opcode) {
	p.Emit(isa.Instr{Op: op})
}

// Jump appends a jump to l. The target is filled in by Assemble.
func (p *Program) Jump(op isa.Opcode, l Label) {
	p.entries = append(p.entries, entry{kind: entryJump, instr: isa.Instr{Op: op}, label: l, line: p.line})
}

// Mark defines l at the current end of the stream.
func (p *Program) Mark(l Label) {
	p.entries = append(p.entries, entry{kind: entryMark, label: l, line: p.line})
}

// Assemble resolves labels and renders the digit stream.
//
// The offset pass counts every jump as isa.JumpWidth digits, so no target
// value can shift any offset. The render pass then writes each target zero
// padded to the same width.
func (p *Program) Assemble(ctx context.Context, opts Options) (code string, lay *Layout, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "assemble", "entries", len(p.entries), "labels", len(p.labels))
	defer tr.Finish("err", &err)

	lay, offsets, err := p.pass1()
	if err != nil {
		return "", nil, err
	}

	if opts.MaxOutput > 0 && lay.Size > opts.MaxOutput {
		return "", nil, errors.Wrap(ErrOutputTooLarge, "%d digits (limit %d)", lay.Size, opts.MaxOutput)
	}

	if tr.If("dump_labels") {
		for i, info := range p.labels {
			tr.Printw("label", "name", info.name, "offset", offsets[Label(i)], "from", info.from)
		}
	}

	code, err = p.pass2(lay, offsets)
	if err != nil {
		return "", nil, err
	}

	tr.Printw("assembled", "instructions", len(lay.Instrs), "size", lay.Size)

	return code, lay, nil
}

func (p *Program) pass1() (*Layout, map[Label]int, error) {
	lay := &Layout{Labels: make(map[string]int)}
	offsets := make(map[Label]int)

	var address int

	for _, e := range p.entries {
		switch e.kind {
		case entryMark:
			if first, exists := offsets[e.label]; exists {
				return nil, nil, &DuplicateLabelError{Label: p.Name(e.label), First: first, Line: e.line}
			}
			offsets[e.label] = address
			lay.Labels[p.Name(e.label)] = address

		case entryJump:
			lay.Instrs = append(lay.Instrs, e.instr)
			lay.Offsets = append(lay.Offsets, address)
			address += isa.JumpWidth

		case entryInstr:
			lay.Instrs = append(lay.Instrs, e.instr)
			lay.Offsets = append(lay.Offsets, address)
			address += isa.Width(e.instr)
		}
	}

	lay.Size = address

	return lay, offsets, nil
}

func (p *Program) pass2(lay *Layout, offsets map[Label]int) (string, error) {
	b := make([]byte, 0, lay.Size)

	i := 0
	for _, e := range p.entries {
		if e.kind == entryMark {
			continue
		}

		in := e.instr

		if e.kind == entryJump {
			target, ok := offsets[e.label]
			if !ok {
				info := p.labels[e.label]
				return "", &UnresolvedLabelError{Label: info.name, From: info.from, Line: e.line}
			}
			if target > isa.MaxTarget {
				return "", errors.Wrap(ErrOffsetOverflow, "label %s at %d", p.Name(e.label), target)
			}

			in.Value = int64(target)
			lay.Instrs[i] = in
		}

		if len(b) != lay.Offsets[i] {
			return "", errors.New("layout drift at instruction %d: offset %d, rendered %d", i, lay.Offsets[i], len(b))
		}

		var err error
		b, err = isa.AppendInstr(b, in)
		if err != nil {
			if e.line != 0 {
				return "", errors.Wrap(err, "line %d", e.line)
			}
			return "", err
		}

		i++
	}

	return string(b), nil
}

// String prints the program in the text form Parse reads.
func (p *Program) String() string {
	var sb strings.Builder

	for _, e := range p.entries {
		switch e.kind {
		case entryMark:
			fmt.Fprintf(&sb, "%s:\n", p.Name(e.label))
		case entryJump:
			fmt.Fprintf(&sb, "\t%v %s\n", e.instr.Op, p.Name(e.label))
		case entryInstr:
			sb.WriteString("\t")
			sb.WriteString(formatInstr(e.instr))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}
