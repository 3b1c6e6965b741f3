package compiler

import (
	"fmt"
	"strings"
)

// Slot is a variable's memory cell.
type Slot struct {
	Name  string
	Index int
}

// SymbolTable maps variable names to memory slots.
// Indexes are handed out from 0 in order of first sight and never reused.
type SymbolTable struct {
	slots map[string]Slot
	order []string
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		slots: make(map[string]Slot),
	}
}

// Allocate returns the slot for name, assigning the next index on first use.
// existed reports whether the name was already known.
func (s *SymbolTable) Allocate(name string) (slot Slot, existed bool) {
	if slot, ok := s.slots[name]; ok {
		return slot, true
	}

	slot = Slot{Name: name, Index: len(s.order)}
	s.slots[name] = slot
	s.order = append(s.order, name)

	return slot, false
}

func (s *SymbolTable) Lookup(name string) (Slot, bool) {
	slot, ok := s.slots[name]
	return slot, ok
}

// Slots returns all slots ordered by index.
func (s *SymbolTable) Slots() []Slot {
	out := make([]Slot, len(s.order))
	for i, name := range s.order {
		out[i] = s.slots[name]
	}
	return out
}

func (s *SymbolTable) Len() int { return len(s.order) }

func (s *SymbolTable) String() string {
	var sb strings.Builder
	for _, slot := range s.Slots() {
		fmt.Fprintf(&sb, "%4d  %s\n", slot.Index, slot.Name)
	}
	return sb.String()
}
