package img

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadAt(t *testing.T) {
	im := FromBytes([]byte("0123456789"))
	require.EqualValues(t, 10, im.Size())

	p := make([]byte, 4)
	require.NoError(t, im.ReadAt(p, 3))
	require.Equal(t, "3456", string(p))

	require.Error(t, im.ReadAt(p, 7), "read past end must fail")
	require.Error(t, im.ReadAt(p, -1), "negative offset must fail")
	require.NoError(t, im.Close())
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.dd")
	require.NoError(t, os.WriteFile(path, []byte("abcdef"), 0o644))

	im, err := OpenFile(path)
	require.NoError(t, err)
	defer im.Close()

	require.EqualValues(t, 6, im.Size())
	p := make([]byte, 2)
	require.NoError(t, im.ReadAt(p, 4))
	require.Equal(t, "ef", string(p))
}

func TestOpenMmap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.dd")
	require.NoError(t, os.WriteFile(path, []byte("mmap-backed"), 0o644))

	im, err := OpenMmap(path)
	require.NoError(t, err)

	p := make([]byte, 4)
	require.NoError(t, im.ReadAt(p, 0))
	require.Equal(t, "mmap", string(p))
	require.NoError(t, im.Close())
}
