package symmap

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	m := New(
		[]Slot{{Name: "y", Index: 1}, {Name: "x", Index: 0}},
		map[string]int{"L1": 40, "L0": 0, "L2": 40},
		57,
	)

	data, err := Marshal(m)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, m, got)
	assert.Equal(t, []Slot{{Name: "x", Index: 0}, {Name: "y", Index: 1}}, got.Slots)
	assert.Equal(t, []Label{{"L0", 0}, {"L1", 40}, {"L2", 40}}, got.Labels)
}

func TestMarshalIsDeterministic(t *testing.T) {
	labels := map[string]int{"a": 3, "b": 1, "c": 2, "d": 1}

	first, err := Marshal(New(nil, labels, 10))
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		data, err := Marshal(New(nil, labels, 10))
		require.NoError(t, err)
		assert.Equal(t, first, data)
	}
}

func TestUnmarshalErrors(t *testing.T) {
	_, err := Unmarshal([]byte("not cbor"))
	assert.Error(t, err)

	data, err := cbor.Marshal(&Map{Version: Version + 1})
	require.NoError(t, err)

	_, err = Unmarshal(data)
	assert.ErrorIs(t, err, ErrVersion)
}

func TestLookups(t *testing.T) {
	m := New([]Slot{{Name: "n", Index: 2}}, map[string]int{"L0": 5, "L3": 5, "L1": 9}, 20)

	name, ok := m.SlotName(2)
	assert.True(t, ok)
	assert.Equal(t, "n", name)

	_, ok = m.SlotName(0)
	assert.False(t, ok)

	assert.Equal(t, []string{"L0", "L3"}, m.LabelsAt(5))
	assert.Nil(t, m.LabelsAt(6))

	var nilMap *Map

	_, ok = nilMap.SlotName(0)
	assert.False(t, ok)
	assert.Nil(t, nilMap.LabelsAt(0))
}
