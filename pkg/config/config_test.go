package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, dir, data string) string {
	t.Helper()

	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	return path
}

func TestLoadMissing(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, Default(), c)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := write(t, t.TempDir(), `
[compile]
strict = true
max_output = 500

[decode]
legacy = false
memory_size = 64
`)

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, Compile{Strict: true, MaxOutput: 500}, c.Compile)
	assert.Equal(t, Decode{StackSize: 1024, MemorySize: 64, MaxInstructions: 1 << 20}, c.Decode)
	assert.Equal(t, path, c.Path)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"syntax", "[compile\n", "parse"},
		{"unknown key", "[compile]\nfolding = true\n", "unknown key"},
		{"bad type", "[decode]\nstack_size = \"big\"\n", "parse"},
		{"zero stack", "[decode]\nstack_size = 0\n", "stack_size"},
		{"negative output", "[compile]\nmax_output = -1\n", "max_output"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(write(t, t.TempDir(), tc.data))
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	write(t, root, "[compile]\nfold = true\n")

	sub := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	c, err := FindAndLoad(sub)
	require.NoError(t, err)

	assert.True(t, c.Compile.Fold)
	assert.Equal(t, filepath.Join(root, FileName), c.Path)
}
