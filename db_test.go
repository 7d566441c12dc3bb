package apecore

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/openztcc/apecore/internal/apetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogScan(t *testing.T) {
	lion := tree(t, walk())
	root := filepath.Dir(filepath.Dir(lion))

	stray := walk()
	stray.Palette = "C:/nowhere/missing.pal"
	strayFile := writeFile(t, filepath.Join(root, "Sprites", "stray"), stray.Bytes())
	writeFile(t, filepath.Join(root, "Sprites", "notes.txt"), []byte("walk cycle, eight frames"))
	writeFile(t, filepath.Join(root, ".hidden", "bar"), walk().Bytes())

	c, err := NewCatalog(filepath.Join(t.TempDir(), "catalog.db"), nil)
	require.NoError(t, err)
	defer c.Close()

	id, n, err := c.Scan(root)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 2, n)

	sprites, err := c.Sprites()
	require.NoError(t, err)
	require.Len(t, sprites, 2)

	// Ordered by path, "bar" before "stray"
	assert.Equal(t, lion, sprites[0].Path)
	assert.Equal(t, id, sprites[0].ScanID)
	assert.Equal(t, uint32(3), sprites[0].Header.FrameCount)
	assert.Equal(t, uint32(100), sprites[0].Header.Speed)
	assert.Equal(t, declaredPalette, sprites[0].Header.PaletteName)
	assert.Equal(t, filepath.ToSlash(filepath.Join(root, "Pal", "foo.pal")), sprites[0].PalettePath)
	assert.Len(t, sprites[0].SHA1, 40)
	assert.True(t, sprites[0].HasPreview)

	assert.Equal(t, strayFile, sprites[1].Path)
	assert.Empty(t, sprites[1].PalettePath)
	assert.False(t, sprites[1].HasPreview)

	m, err := c.Preview(lion)
	require.NoError(t, err)
	require.NotNil(t, m)
	// First presented frame is the last stored one
	assert.Equal(t, image.Rect(0, 0, 5, 3), m.Bounds())

	m, err = c.Preview(strayFile)
	require.NoError(t, err)
	assert.Nil(t, m)

	s, err := c.FindSprite(lion)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, sprites[0], *s)

	s, err = c.FindSprite(filepath.Join(root, "nope"))
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestCatalogRescan(t *testing.T) {
	file := tree(t, walk())
	root := filepath.Dir(filepath.Dir(file))

	c, err := NewCatalog(filepath.Join(t.TempDir(), "catalog.db"), nil)
	require.NoError(t, err)
	defer c.Close()

	first, _, err := c.Scan(root)
	require.NoError(t, err)

	sprite := walk()
	sprite.Speed = 250
	writeFile(t, file, sprite.Bytes())

	second, n, err := c.Scan(root)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NotEqual(t, first, second)

	sprites, err := c.Sprites()
	require.NoError(t, err)
	require.Len(t, sprites, 1)
	assert.Equal(t, uint32(250), sprites[0].Header.Speed)
	assert.Equal(t, second, sprites[0].ScanID)
}

func TestCatalogScanCorrupt(t *testing.T) {
	file := tree(t, walk())
	root := filepath.Dir(filepath.Dir(file))

	// Parses fine but claims far more pixels than it carries
	huge := writeFile(t, filepath.Join(root, "Sprites", "huge"), apetest.Sprite{
		Palette: declaredPalette,
		Frames:  []apetest.Frame{{Width: 0xffff, Height: 0xffff, Raw: []byte{}}},
	}.Bytes())

	c, err := NewCatalog(filepath.Join(t.TempDir(), "catalog.db"), nil)
	require.NoError(t, err)
	defer c.Close()

	_, n, err := c.Scan(root)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	s, err := c.FindSprite(huge)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.False(t, s.HasPreview)

	s, err = c.FindSprite(file)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.True(t, s.HasPreview)
}

func TestCatalogScanFile(t *testing.T) {
	file := tree(t, walk())

	c, err := NewCatalog(filepath.Join(t.TempDir(), "catalog.db"), nil)
	require.NoError(t, err)
	defer c.Close()

	s, ok := c.scanFile("id", file)
	require.True(t, ok)
	assert.Equal(t, file, s.sprite.Path)
	assert.Equal(t, "id", s.sprite.ScanID)
	assert.NotNil(t, s.preview)

	// Files vanishing between the walk and the read are skipped
	require.NoError(t, os.Remove(file))
	_, ok = c.scanFile("id", file)
	assert.False(t, ok)

	text := writeFile(t, filepath.Join(t.TempDir(), "notes.txt"), []byte("walk cycle"))
	_, ok = c.scanFile("id", text)
	assert.False(t, ok)
}
