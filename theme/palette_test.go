package theme

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPalette(t *testing.T) {
	p := Default()
	assert.Equal(t, "plasma", p.Name)
	require.Len(t, p.Colors, 11)
	assert.Equal(t, RGB{13, 8, 135}, p.Colors[0])
	assert.Equal(t, RGB{240, 249, 33}, p.Colors[10])
}

func TestParseGPL(t *testing.T) {
	src := `GIMP Palette
Name: two
Columns: 2
# comment
  0   0   0	black
255 100  50	orange
bad line
`
	p, err := ParseGPL(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, "two", p.Name)
	assert.Equal(t, []RGB{{0, 0, 0}, {255, 100, 50}}, p.Colors)
}

func TestParseGPLEmpty(t *testing.T) {
	_, err := ParseGPL(strings.NewReader("GIMP Palette\nName: none\n"))
	assert.Error(t, err)
}

func TestLoadGPL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.gpl")
	require.NoError(t, os.WriteFile(path, []byte("GIMP Palette\n1 2 3\n"), 0644))

	p, err := LoadGPL(path)
	require.NoError(t, err)
	assert.Equal(t, []RGB{{1, 2, 3}}, p.Colors)

	_, err = LoadGPL(filepath.Join(t.TempDir(), "missing.gpl"))
	assert.Error(t, err)
}

func TestLookup(t *testing.T) {
	p := &Palette{Colors: []RGB{{0, 0, 0}, {200, 100, 50}}}

	assert.Equal(t, RGB{0, 0, 0}, p.Lookup(-1))
	assert.Equal(t, RGB{200, 100, 50}, p.Lookup(2))
	assert.Equal(t, RGB{100, 50, 25}, p.Lookup(0.5))
}

func TestHex(t *testing.T) {
	assert.Equal(t, "#0d0887", Hex(RGB{13, 8, 135}))
	assert.Equal(t, "#0d0887", string(New(nil).Color(0)))
}
