package fs

import (
	"encoding/binary"
	"testing"

	"github.com/fskope/fskope/internal/fsys"
	"github.com/fskope/fskope/internal/img"
	"github.com/stretchr/testify/require"
)

func buildHive(t *testing.T) *img.Image {
	t.Helper()
	data := make([]byte, 2*4096)
	copy(data, "regf")
	binary.LittleEndian.PutUint32(data[0x24:], 0x20)
	binary.LittleEndian.PutUint32(data[0x28:], 4096)
	return img.FromBytes(data)
}

func TestOpenDispatchesRegistry(t *testing.T) {
	h, err := Open(buildHive(t), 0, fsys.TypeReg, nil)
	require.NoError(t, err)
	defer h.Close()

	require.Equal(t, fsys.TypeReg, h.Type())
	require.EqualValues(t, 4096, h.BlockSize())
}

func TestOpenDispatchesFAT(t *testing.T) {
	// An XTAF boot sector with an unrecognised partition geometry still
	// reaches the FAT back-end, which rejects it.
	data := make([]byte, 4096)
	copy(data, "XTAF")
	data[11] = 1
	data[15] = 1

	_, err := Open(img.FromBytes(data), 0, fsys.TypeFATAuto, nil)
	require.True(t, fsys.IsKind(err, fsys.KindUnsupported), "got %v", err)
	require.Contains(t, err.Error(), "unknown partition geometry")
}

func TestOpenUnknownType(t *testing.T) {
	_, err := Open(buildHive(t), 0, fsys.TypeUnknown, nil)
	require.True(t, fsys.IsKind(err, fsys.KindUnsupported), "got %v", err)
}

func TestOpenWrongMagic(t *testing.T) {
	_, err := Open(buildHive(t), 0, fsys.TypeFAT16, nil)
	require.True(t, fsys.IsKind(err, fsys.KindMagic), "got %v", err)
}
