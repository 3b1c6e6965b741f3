package decompiler

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"charless/pkg/isa"
	"charless/pkg/symmap"
)

// Table renders l as a disassembly table. m may be nil.
func Table(l *isa.Listing, m *symmap.Map) string {
	targets := l.Targets()

	tw := table.NewWriter()
	tw.SetTitle(fmt.Sprintf("%d instructions, %d digits", len(l.Instrs), l.Size))
	tw.AppendHeader(table.Row{"Offset", "Label", "Instruction", "Encoding", "Note"})

	for i, d := range l.Instrs {
		var labels []string
		if targets[d.Offset] {
			labels = append(labels, fmt.Sprintf("Label_%d", d.Offset))
		}
		labels = append(labels, m.LabelsAt(d.Offset)...)

		enc, err := isa.AppendInstr(nil, d.Instr)
		encoding := string(enc)
		if err != nil {
			encoding = "!" + err.Error()
		}

		note := strings.TrimSuffix(strings.TrimPrefix(slotNote(l, i, m), " /* "), " */")

		tw.AppendRow(table.Row{d.Offset, strings.Join(labels, " "), d.Instr.String(), encoding, note})
	}

	if targets[l.Size] || len(m.LabelsAt(l.Size)) != 0 {
		labels := append([]string{fmt.Sprintf("Label_%d", l.Size)}, m.LabelsAt(l.Size)...)
		tw.AppendRow(table.Row{l.Size, strings.Join(labels, " "), "", "", "end"})
	}

	return tw.Render()
}
