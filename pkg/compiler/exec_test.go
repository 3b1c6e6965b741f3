package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"tlog.app/go/errors"

	"charless/pkg/isa"
)

// machine runs a decoded listing with the semantics the generated goto C
// program has. It only exists to check compiled programs end to end.
type machine struct {
	stack []int64
	mem   map[int64]int64
	out   strings.Builder
	in    []string
}

func run(l *isa.Listing, input ...string) (*machine, error) {
	m := &machine{mem: map[int64]int64{}, in: input}

	for pc, steps := 0, 0; pc < len(l.Instrs); steps++ {
		if steps > 100000 {
			return m, errors.New("step limit")
		}

		in := l.Instrs[pc].Instr
		pc++

		jump := func(target int64) error {
			idx, ok := l.Index(int(target))
			if !ok && int(target) != l.Size {
				return errors.New("bad target %d", target)
			}
			if !ok {
				idx = len(l.Instrs)
			}
			pc = idx
			return nil
		}

		var err error

		switch in.Op {
		case isa.OpHALT:
			return m, nil
		case isa.OpPUSH:
			m.push(in.Value)
		case isa.OpPOP:
			_, err = m.pop()
		case isa.OpSTORE:
			var addr, v int64
			if addr, err = m.pop(); err == nil {
				if v, err = m.pop(); err == nil {
					m.mem[addr] = v
				}
			}
		case isa.OpLOAD:
			var addr int64
			if addr, err = m.pop(); err == nil {
				m.push(m.mem[addr])
			}
		case isa.OpPRINT_STR:
			m.out.WriteString(isa.TextString(in.Text))
		case isa.OpPRINT_NEWLINE:
			m.out.WriteByte('\n')
		case isa.OpPRINT_NUM, isa.OpPRINT_CHAR:
			var v int64
			if v, err = m.pop(); err == nil {
				if in.Op == isa.OpPRINT_NUM {
					fmt.Fprintf(&m.out, "%d", v)
				} else {
					m.out.WriteByte(byte(v))
				}
			}
		case isa.OpINPUT_NUM, isa.OpINPUT_CHAR:
			if len(m.in) == 0 {
				return m, errors.New("input exhausted")
			}
			s := m.in[0]
			m.in = m.in[1:]

			if in.Op == isa.OpINPUT_CHAR {
				m.push(int64(s[0]))
			} else {
				v, perr := strconv.ParseInt(s, 10, 64)
				if perr != nil {
					return m, perr
				}
				m.push(v)
			}
		case isa.OpJUMP:
			err = jump(in.Value)
		case isa.OpJZ, isa.OpJNZ:
			var c int64
			if c, err = m.pop(); err == nil && (c == 0) == (in.Op == isa.OpJZ) {
				err = jump(in.Value)
			}
		default:
			var a, b int64
			if b, err = m.pop(); err == nil {
				if a, err = m.pop(); err == nil {
					var v int64
					v, err = binary(in.Op, a, b)
					m.push(v)
				}
			}
		}

		if err != nil {
			return m, errors.Wrap(err, "at offset %d", l.Instrs[pc-1].Offset)
		}
	}

	return m, nil
}

func (m *machine) push(v int64) { m.stack = append(m.stack, v) }

func (m *machine) pop() (int64, error) {
	if len(m.stack) == 0 {
		return 0, errors.New("stack underflow")
	}
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v, nil
}

func binary(op isa.Opcode, a, b int64) (int64, error) {
	switch op {
	case isa.OpADD:
		return a + b, nil
	case isa.OpSUB:
		return a - b, nil
	case isa.OpMUL:
		return a * b, nil
	case isa.OpDIV, isa.OpMOD:
		if b == 0 {
			return 0, errors.New("division by zero")
		}
		if op == isa.OpDIV {
			return a / b, nil
		}
		return a % b, nil
	case isa.OpEQ:
		return boolValue(a == b), nil
	case isa.OpGT:
		return boolValue(a > b), nil
	case isa.OpLT:
		return boolValue(a < b), nil
	case isa.OpGE:
		return boolValue(a >= b), nil
	case isa.OpLE:
		return boolValue(a <= b), nil
	}
	return 0, errors.New("unexpected opcode %v", op)
}
