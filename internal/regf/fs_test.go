package regf

import (
	"bytes"
	"testing"
	"time"

	"github.com/fskope/fskope/internal/fsys"
	"github.com/fskope/fskope/internal/img"
	"github.com/stretchr/testify/require"
)

func openTestHive(t *testing.T, b *hiveBuilder) *FS {
	t.Helper()
	fs, err := Open(b.image(), 0, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		if !fs.closed {
			require.NoError(t, fs.Close())
		}
	})
	return fs
}

func TestOpenHive(t *testing.T) {
	fs := openTestHive(t, newHiveBuilder(2))

	require.Equal(t, fsys.TypeReg, fs.Type())
	require.EqualValues(t, HBINSize, fs.BlockSize())
	require.EqualValues(t, 0, fs.FirstBlock())
	require.EqualValues(t, 0x2000, fs.LastBlock())
	require.EqualValues(t, 3, fs.LastBlockActual())
	require.EqualValues(t, 0x1000, fs.FirstInode())
	require.EqualValues(t, 0x3000, fs.LastInode())
	require.EqualValues(t, 0x1020, fs.RootInode())

	require.LessOrEqual(t, fs.FirstInode(), fs.RootInode())
	require.LessOrEqual(t, fs.RootInode(), fs.LastInode())

	// The last hbin offset stays page-aligned.
	require.Zero(t, fs.LastBlock()%HBINSize)
}

func TestOpenBadMagic(t *testing.T) {
	data := make([]byte, 2*HBINSize)
	copy(data, "gfer")

	_, err := Open(img.FromBytes(data), 0, nil)
	require.True(t, fsys.IsKind(err, fsys.KindMagic), "got %v", err)
}

func TestLoadCellRoundTrip(t *testing.T) {
	b := newHiveBuilder(1)
	b.putCell(0x1020, 0x30, true, "vk")
	b.putCell(0x1050, 0x30, false, "")

	fs := openTestHive(t, b)

	c, err := fs.loadCell(0x1020)
	require.NoError(t, err)
	require.True(t, c.allocated)
	require.EqualValues(t, 0x30, c.length)
	require.Equal(t, recordVK, c.typ)

	// Re-loading the same offset yields the identical view.
	again, err := fs.loadCell(0x1020)
	require.NoError(t, err)
	require.Equal(t, c, again)

	free, err := fs.loadCell(0x1050)
	require.NoError(t, err)
	require.False(t, free.allocated)
	require.EqualValues(t, 0x30, free.length)
	require.Equal(t, recordUnknown, free.typ)
}

func TestLoadCellErrors(t *testing.T) {
	b := newHiveBuilder(1)
	b.putCell(0x1020, HBINSize, false, "")

	fs := openTestHive(t, b)

	_, err := fs.loadCell(0x1020)
	require.True(t, fsys.IsKind(err, fsys.KindInodeCorrupt), "got %v", err)

	_, err = fs.loadCell(fs.LastInode() + 1)
	require.True(t, fsys.IsKind(err, fsys.KindBlockNum), "got %v", err)

	_, err = fs.loadCell(0x500)
	require.True(t, fsys.IsKind(err, fsys.KindBlockNum), "got %v", err)
}

func TestBlockFlags(t *testing.T) {
	fs := openTestHive(t, newHiveBuilder(2))

	for _, addr := range []uint64{0, 0x1000, 0x2000} {
		flags, err := fs.BlockFlags(addr)
		require.NoError(t, err)
		require.Equal(t, fsys.FlagAlloc|fsys.FlagMeta|fsys.FlagContent, flags)
	}

	_, err := fs.BlockFlags(fs.LastBlock() + 1)
	require.True(t, fsys.IsKind(err, fsys.KindBlockNum), "got %v", err)
}

func TestWalkBlocks(t *testing.T) {
	fs := openTestHive(t, newHiveBuilder(2))

	var visited []uint64
	err := fs.WalkBlocks(0, fs.LastBlock(), 0, func(blk *fsys.Block) fsys.WalkAction {
		require.Len(t, blk.Data, HBINSize)
		require.Equal(t, hbinBlockFlags|fsys.FlagRaw, blk.Flags)
		visited = append(visited, blk.Addr)
		return fsys.WalkCont
	})
	require.NoError(t, err)
	require.Equal(t, []uint64{0, 0x1000, 0x2000}, visited)

	// Unaligned starts snap down to their page.
	visited = nil
	err = fs.WalkBlocks(0x1800, fs.LastBlock(), 0, func(blk *fsys.Block) fsys.WalkAction {
		visited = append(visited, blk.Addr)
		return fsys.WalkCont
	})
	require.NoError(t, err)
	require.Equal(t, []uint64{0x1000, 0x2000}, visited)
}

func TestWalkBlocksStopAndError(t *testing.T) {
	fs := openTestHive(t, newHiveBuilder(2))

	n := 0
	err := fs.WalkBlocks(0, fs.LastBlock(), 0, func(blk *fsys.Block) fsys.WalkAction {
		n++
		return fsys.WalkStop
	})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	err = fs.WalkBlocks(0, fs.LastBlock(), 0, func(blk *fsys.Block) fsys.WalkAction {
		return fsys.WalkError
	})
	require.ErrorIs(t, err, fsys.ErrStopped)
}

func TestWalkBlocksRange(t *testing.T) {
	fs := openTestHive(t, newHiveBuilder(1))

	err := fs.WalkBlocks(fs.LastBlock()+1, fs.LastBlock()+1, 0, nil)
	require.True(t, fsys.IsKind(err, fsys.KindWalkRange), "got %v", err)
}

func TestOpenInode(t *testing.T) {
	b := newHiveBuilder(1)
	// FILETIME one second past the epoch.
	b.putNK(0x1020, 0x80, "Select", nkRootFlags, 0x20, ntEpochDelta+10000000, classNameNone, 0)
	b.putCell(0x10A0, 0x20, true, "vk")
	b.putCell(0x10C0, 0x20, true, "sk")
	b.putCell(0x10E0, 0x20, false, "")

	fs := openTestHive(t, b)

	nk, err := fs.OpenInode(0x1020)
	require.NoError(t, err)
	require.Equal(t, fsys.MetaTypeDir, nk.Type)
	require.Equal(t, fsys.FlagAlloc, nk.Flags)
	require.EqualValues(t, 0o7777, nk.Mode)
	require.Equal(t, 1, nk.NLink)
	require.EqualValues(t, 0x80, nk.Size)
	require.Len(t, nk.Content, 0x80)
	require.Equal(t, time.Date(1970, 1, 1, 0, 0, 1, 0, time.UTC), nk.MTime)

	vk, err := fs.OpenInode(0x10A0)
	require.NoError(t, err)
	require.Equal(t, fsys.MetaTypeRegular, vk.Type)
	require.True(t, vk.MTime.IsZero())

	sk, err := fs.OpenInode(0x10C0)
	require.NoError(t, err)
	require.Equal(t, fsys.MetaTypeVirtual, sk.Type)

	free, err := fs.OpenInode(0x10E0)
	require.NoError(t, err)
	require.Equal(t, fsys.FlagUnalloc, free.Flags)
}

func TestOpenInodeRange(t *testing.T) {
	fs := openTestHive(t, newHiveBuilder(1))

	_, err := fs.OpenInode(fs.FirstInode() - 1)
	require.True(t, fsys.IsKind(err, fsys.KindInodeNum), "got %v", err)

	_, err = fs.OpenInode(fs.LastInode() + 1)
	require.True(t, fsys.IsKind(err, fsys.KindInodeNum), "got %v", err)
}

func TestWalkInodes(t *testing.T) {
	b := newHiveBuilder(2)
	b.putNK(0x1020, 0x60, "Root", nkRootFlags, 0x20, 0, classNameNone, 0)
	b.putCell(0x1080, 0x20, true, "vk")
	b.putCell(0x10A0, 0x20, false, "")
	// Free cell covering the rest of the first page.
	b.putCell(0x10C0, HBINSize-0xC0, false, "")
	b.putCell(0x2020, 0x20, true, "sk")

	fs := openTestHive(t, b)

	var visited []uint64
	err := fs.WalkInodes(fs.FirstInode(), 0x2040, 0, func(m *fsys.Meta) fsys.WalkAction {
		visited = append(visited, m.Addr)
		return fsys.WalkCont
	})
	require.NoError(t, err)
	// The walk steps cell to cell and hops the second page's header.
	require.Equal(t, []uint64{0x1020, 0x1080, 0x10A0, 0x10C0, 0x2020}, visited)

	// The allocation filter selects allocated cells only.
	visited = nil
	err = fs.WalkInodes(fs.FirstInode(), 0x2040, fsys.FlagAlloc, func(m *fsys.Meta) fsys.WalkAction {
		visited = append(visited, m.Addr)
		return fsys.WalkCont
	})
	require.NoError(t, err)
	require.Equal(t, []uint64{0x1020, 0x1080, 0x2020}, visited)
}

func TestWalkInodesCellOverrun(t *testing.T) {
	b := newHiveBuilder(2)
	// This cell runs into the next page's header.
	b.putCell(0x1020, 0xFF0, true, "vk")

	fs := openTestHive(t, b)
	err := fs.WalkInodes(0x1020, 0x2040, 0, func(m *fsys.Meta) fsys.WalkAction {
		return fsys.WalkCont
	})
	require.True(t, fsys.IsKind(err, fsys.KindBlockNum), "got %v", err)
}

func TestFSStatSynchronized(t *testing.T) {
	b := newHiveBuilder(2)
	fs := openTestHive(t, b)

	var out bytes.Buffer
	require.NoError(t, fs.FSStat(&out))
	s := out.String()

	require.Contains(t, s, "File System Type: Windows Registry")
	require.Contains(t, s, "Major Version: 1")
	require.Contains(t, s, "Minor Version: 5")
	require.Contains(t, s, "Synchronized: Yes")
	require.Contains(t, s, "Hive name: SYSTEM")
	require.Contains(t, s, "Offset to first key: 32")
	require.Contains(t, s, "Offset to last HBIN: 8192")

	// Desynchronise the sequence numbers and reopen.
	b.putU32(offSeq2, 6)
	fs2 := openTestHive(t, b)

	out.Reset()
	require.NoError(t, fs2.FSStat(&out))
	require.Contains(t, out.String(), "Synchronized: No")
}

func TestIStatNK(t *testing.T) {
	b := newHiveBuilder(1)
	b.putNK(0x1020, 0x80, "ControlSet001", nkRootFlags, 0x20, ntEpochDelta, classNameNone, 0)

	fs := openTestHive(t, b)

	var out bytes.Buffer
	require.NoError(t, fs.IStat(&out, 0x1020, 0, 0))
	s := out.String()

	require.Contains(t, s, "Cell: 4128")
	require.Contains(t, s, "Allocated: Yes")
	require.Contains(t, s, "Cell Size: 128")
	require.Contains(t, s, "Record Type: NK")
	require.Contains(t, s, "Class Name: None")
	require.Contains(t, s, "Key Name: ControlSet001")
	require.Contains(t, s, "Root Record: Yes")
	require.Contains(t, s, "Parent Record: 4128")
}

func TestIStatNKClassName(t *testing.T) {
	b := newHiveBuilder(1)
	// Class name lives at hive-relative offset 0x200 within the hbin
	// space; the renderer reads it at 0x1000 + offset + 4.
	b.putNK(0x1020, 0x80, "Key", 0, 0x20, 0, 0x200, 14)
	b.putUTF16(0x1000+0x200+4, "MyClass")

	fs := openTestHive(t, b)

	var out bytes.Buffer
	require.NoError(t, fs.IStat(&out, 0x1020, 0, 0))
	require.Contains(t, out.String(), "Class Name: MyClass")
	require.Contains(t, out.String(), "Root Record: No")
}

func TestIStatNKCorruptNameLength(t *testing.T) {
	b := newHiveBuilder(1)
	b.putNK(0x1020, 0x80, "Key", 0, 0x20, 0, classNameNone, 0)
	// Overwrite the declared name length with something absurd.
	b.data[0x1024+nkOffNameLength] = 0xFF
	b.data[0x1024+nkOffNameLength+1] = 0x7F

	fs := openTestHive(t, b)

	var out bytes.Buffer
	err := fs.IStat(&out, 0x1020, 0, 0)
	require.True(t, fsys.IsKind(err, fsys.KindInodeCorrupt), "got %v", err)
}

func TestIStatOtherRecords(t *testing.T) {
	b := newHiveBuilder(1)
	b.putCell(0x1020, 0x20, true, "vk")
	b.putCell(0x1040, 0x20, true, "lf")
	b.putCell(0x1060, 0x20, false, "zz")

	fs := openTestHive(t, b)

	var out bytes.Buffer
	require.NoError(t, fs.IStat(&out, 0x1020, 0, 0))
	require.Contains(t, out.String(), "Record Type: VK")

	out.Reset()
	require.NoError(t, fs.IStat(&out, 0x1040, 0, 0))
	require.Contains(t, out.String(), "Record Type: LF")

	out.Reset()
	require.NoError(t, fs.IStat(&out, 0x1060, 0, 0))
	require.Contains(t, out.String(), "Allocated: No")
	require.Contains(t, out.String(), "Record Type: Unknown (Data Record?)")
	require.Contains(t, out.String(), "Type identifier: 0x7a7a")
}

func TestIStatTimeSkew(t *testing.T) {
	b := newHiveBuilder(1)
	b.putNK(0x1020, 0x80, "Key", 0, 0x20, ntEpochDelta+10000000, classNameNone, 0)

	fs := openTestHive(t, b)

	var out bytes.Buffer
	require.NoError(t, fs.IStat(&out, 0x1020, 0, 3600))
	s := out.String()
	require.Contains(t, s, "Adjusted Entry Times:")
	require.Contains(t, s, "Original Entry Times:")
}

func TestNTTime(t *testing.T) {
	require.True(t, ntTime(0).IsZero())
	require.Equal(t, time.Unix(0, 0).UTC(), ntTime(ntEpochDelta))
	require.Equal(t, time.Unix(1, 100).UTC(), ntTime(ntEpochDelta+10000001))
}

func TestDecodeUTF16(t *testing.T) {
	b := newHiveBuilder(1)
	fs := openTestHive(t, b)

	raw := []byte{'S', 0, 'A', 0, 'M', 0, 0, 0, 0, 0}
	require.Equal(t, "SAM", fs.decodeUTF16("test", raw))
	require.Equal(t, "", fs.decodeUTF16("test", nil))
}

func TestNameCompare(t *testing.T) {
	fs := openTestHive(t, newHiveBuilder(1))
	require.Zero(t, fs.NameCompare("SYSTEM", "system"))
	require.Negative(t, fs.NameCompare("sam", "SOFTWARE"))
}

func TestUnsupportedOps(t *testing.T) {
	fs := openTestHive(t, newHiveBuilder(1))

	require.True(t, fsys.IsKind(fs.OpenJournal(0), fsys.KindUnsupported))
	require.True(t, fsys.IsKind(fs.WalkJournalBlocks(0, 0, 0, nil), fsys.KindUnsupported))
	require.True(t, fsys.IsKind(fs.WalkJournalEntries(nil), fsys.KindUnsupported))
	require.True(t, fsys.IsKind(fs.FSCheck(&bytes.Buffer{}), fsys.KindUnsupported))
}

func TestCloseInvalidatesHandle(t *testing.T) {
	fs := openTestHive(t, newHiveBuilder(1))

	require.NoError(t, fs.Close())
	require.Error(t, fs.Close())
	_, err := fs.OpenInode(fs.FirstInode())
	require.True(t, fsys.IsKind(err, fsys.KindArg), "got %v", err)
}
