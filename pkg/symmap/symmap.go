// Package symmap is the sidecar that carries variable and label names
// from compile to decode. The digit stream itself has no names.
package symmap

import (
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"tlog.app/go/errors"
)

// Version is bumped on incompatible changes.
const Version = 1

type (
	Map struct {
		Version int     `cbor:"1,keyasint"`
		Slots   []Slot  `cbor:"2,keyasint,omitempty"`
		Labels  []Label `cbor:"3,keyasint,omitempty"`
		Size    int     `cbor:"4,keyasint"` // stream length in digits
	}

	Slot struct {
		Name  string `cbor:"1,keyasint"`
		Index int    `cbor:"2,keyasint"`
	}

	Label struct {
		Name   string `cbor:"1,keyasint"`
		Offset int    `cbor:"2,keyasint"`
	}
)

var ErrVersion = errors.New("unsupported symbol map version")

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("symmap: cbor enc mode: %v", err))
	}
	encMode = em
}

// New builds a map from slots and label offsets, sorted so the encoding
// does not depend on map iteration order.
func New(slots []Slot, labels map[string]int, size int) *Map {
	m := &Map{
		Version: Version,
		Slots:   append([]Slot(nil), slots...),
		Size:    size,
	}

	sort.Slice(m.Slots, func(i, j int) bool { return m.Slots[i].Index < m.Slots[j].Index })

	for name, off := range labels {
		m.Labels = append(m.Labels, Label{Name: name, Offset: off})
	}

	sort.Slice(m.Labels, func(i, j int) bool {
		if m.Labels[i].Offset != m.Labels[j].Offset {
			return m.Labels[i].Offset < m.Labels[j].Offset
		}
		return m.Labels[i].Name < m.Labels[j].Name
	})

	return m
}

func Marshal(m *Map) ([]byte, error) {
	return encMode.Marshal(m)
}

func Unmarshal(data []byte) (*Map, error) {
	var m Map

	err := cbor.Unmarshal(data, &m)
	if err != nil {
		return nil, errors.Wrap(err, "unmarshal symbol map")
	}

	if m.Version != Version {
		return nil, errors.Wrap(ErrVersion, "version %d", m.Version)
	}

	return &m, nil
}

// SlotName returns the variable stored at index.
func (m *Map) SlotName(index int) (string, bool) {
	if m == nil {
		return "", false
	}

	for _, s := range m.Slots {
		if s.Index == index {
			return s.Name, true
		}
	}

	return "", false
}

// LabelsAt returns the names of all labels resolved to off.
func (m *Map) LabelsAt(off int) []string {
	if m == nil {
		return nil
	}

	var names []string
	for _, l := range m.Labels {
		if l.Offset == off {
			names = append(names, l.Name)
		}
	}

	return names
}
