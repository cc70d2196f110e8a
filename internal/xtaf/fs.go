// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package xtaf

import (
	"io"
	"strings"

	"github.com/fskope/fskope/internal/fsys"
	"github.com/fskope/fskope/internal/img"
	"github.com/fskope/fskope/internal/logger"
)

var _ fsys.FileSystem = (*FS)(nil)

// FS is an opened XTAF partition. Geometry is captured immutably at open
// time; only the FAT sector cache mutates afterwards. An FS must not be
// used from more than one goroutine at a time.
type FS struct {
	im     *img.Image
	offset int64
	typ    fsys.Type
	geo    geometry
	serial [4]byte
	cache  fatCache
	log    *logger.Logger
	closed bool

	firstBlock      uint64
	lastBlock       uint64
	lastBlockActual uint64

	firstIno uint64
	lastIno  uint64

	dentryPerSect  uint64
	dentryPerClust uint64
}

// Open parses the boot sector at offset and builds an XTAF handle. typ may
// be a concrete FAT variant or TypeFATAuto to detect from the cluster
// count. When the primary boot sector's magic reads all zero, the backup at
// sector 6 is tried before giving up.
func Open(im *img.Image, offset int64, typ fsys.Type, log *logger.Logger) (*FS, error) {
	switch typ {
	case fsys.TypeFAT12, fsys.TypeFAT16, fsys.TypeFAT32, fsys.TypeFATAuto:
	default:
		return nil, fsys.E(fsys.KindArg, "xtaf_open", "invalid FS type: %v", typ)
	}

	fs := &FS{im: im, offset: offset, typ: typ, log: log}

	raw := make([]byte, bootSectorSize)
	var bs bootSector
	for attempt := 0; ; attempt++ {
		sbOff := int64(0)
		if attempt == 1 {
			sbOff = backupBootSect * SectorSize
		}
		if err := fs.read(raw, sbOff); err != nil {
			return nil, fsys.E(fsys.KindRead, "xtaf_open", "boot sector: %v", err)
		}
		var err error
		bs, err = parseBootSector(raw)
		if err == nil {
			break
		}
		// A zeroed primary sector means the backup may still be intact.
		if attempt == 0 && isZeroMagic(raw) {
			continue
		}
		return nil, err
	}
	fs.serial = bs.serial

	if bs.clusterSize > 256 {
		fs.logf("open: sectors per cluster is more than 256 (%d)", bs.clusterSize)
	}
	switch uint8(bs.clusterSize) {
	case 1, 2, 4, 8, 16, 32, 64, 128:
	default:
		return nil, fsys.E(fsys.KindMagic, "xtaf_open",
			"not an XTAF file system (cluster size %d)", bs.clusterSize)
	}
	if bs.numFATs > 256 {
		fs.logf("open: number of FATs is more than 256 (%d)", bs.numFATs)
	}
	if n := uint8(bs.numFATs); n == 0 || n > 8 {
		return nil, fsys.E(fsys.KindMagic, "xtaf_open",
			"not an XTAF file system (number of FATs %d)", bs.numFATs)
	}

	part, ok := lookupPartition(im.Size(), offset)
	if !ok {
		return nil, fsys.E(fsys.KindUnsupported, "xtaf_open",
			"unknown partition geometry (size=%d, offset=0x%x)", im.Size(), offset)
	}

	g := &fs.geo
	g.clusterSize = bs.clusterSize & 0xff
	g.numFATs = bs.numFATs & 0xff
	g.firstFATSector = firstFATSector
	g.sectorsPerFAT = part.sectorsPerFAT
	g.rootSector = part.rootSector
	g.clusterCount = part.clusterCount
	g.lastCluster = part.lastCluster
	// The root directory sits right after the FATs and spans a fixed 32
	// sectors; clusters start immediately after it.
	g.firstDataSector = g.rootSector
	g.firstClusterSector = g.firstDataSector + rootDirSectors

	sectors := uint64(im.Size() / SectorSize)
	if g.firstFATSector > sectors {
		return nil, fsys.E(fsys.KindWalkRange, "xtaf_open",
			"not an XTAF file system (invalid first FAT sector %d)", g.firstFATSector)
	}

	if typ == fsys.TypeFATAuto {
		if g.clusterCount < 0xfff4 {
			fs.typ = fsys.TypeFAT16
		} else {
			fs.typ = fsys.TypeFAT32
		}
	} else if typ == fsys.TypeFAT12 && g.clusterCount >= 4085 {
		return nil, fsys.E(fsys.KindMagic, "xtaf_open",
			"too many clusters for FAT12: try auto-detect mode")
	}

	switch fs.typ {
	case fsys.TypeFAT12:
		g.mask = mask12
	case fsys.TypeFAT16:
		g.mask = mask16
	case fsys.TypeFAT32:
		g.mask = mask32
	}

	fs.firstBlock = 0
	fs.lastBlock = sectors - 1
	fs.lastBlockActual = fs.lastBlock
	if avail := im.Size() - offset; avail > 0 && uint64(avail/SectorSize) < sectors {
		fs.lastBlockActual = uint64(avail/SectorSize) - 1
	}

	fs.dentryPerSect = SectorSize / dentrySize
	fs.dentryPerClust = fs.dentryPerSect * uint64(g.clusterSize)

	fs.firstIno = firstInode
	fs.lastIno = fs.inodeFromSectSlot(fs.lastBlockActual+1, 0) - 1 + numSpecInodes

	return fs, nil
}

// read fills p from the image at off bytes past the partition start.
func (fs *FS) read(p []byte, off int64) error {
	return fs.im.ReadAt(p, fs.offset+off)
}

func (fs *FS) logf(format string, args ...any) {
	if fs.log != nil {
		fs.log.Debugf(format, args...)
	}
}

func (fs *FS) checkOpen(op string) error {
	if fs.closed {
		return fsys.E(fsys.KindArg, op, "handle is closed")
	}
	return nil
}

func (fs *FS) Type() fsys.Type { return fs.typ }
func (fs *FS) BlockSize() uint32 { return SectorSize }
func (fs *FS) FirstBlock() uint64 { return fs.firstBlock }
func (fs *FS) LastBlock() uint64 { return fs.lastBlock }
func (fs *FS) LastBlockActual() uint64 { return fs.lastBlockActual }
func (fs *FS) FirstInode() uint64 { return fs.firstIno }
func (fs *FS) LastInode() uint64 { return fs.lastIno }
func (fs *FS) RootInode() uint64 { return rootInode }
func (fs *FS) NameCompare(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// Close invalidates the handle. Operations on a closed handle fail with an
// argument error.
func (fs *FS) Close() error {
	if err := fs.checkOpen("xtaf_close"); err != nil {
		return err
	}
	fs.closed = true
	fs.cache = fatCache{}
	return nil
}

// inodeFromSectSlot numbers the dentry slots of the data area sequentially
// after the reserved root inode.
func (fs *FS) inodeFromSectSlot(sect, slot uint64) uint64 {
	return rootInode + 1 + (sect-fs.geo.firstDataSector)*fs.dentryPerSect + slot
}

// sectSlotFromInode is the inverse of inodeFromSectSlot.
func (fs *FS) sectSlotFromInode(inum uint64) (sect, slot uint64) {
	n := inum - rootInode - 1
	return fs.geo.firstDataSector + n/fs.dentryPerSect, n % fs.dentryPerSect
}

// BlockFlags classifies a sector without reading it: the reserved area and
// FATs are allocated metadata, the fixed root directory is allocated
// content, and data-area sectors take their allocation from the FAT.
func (fs *FS) BlockFlags(addr uint64) (fsys.Flags, error) {
	if err := fs.checkOpen("xtaf_block_getflags"); err != nil {
		return 0, err
	}
	if addr < fs.firstBlock || addr > fs.lastBlock {
		return 0, fsys.E(fsys.KindBlockNum, "xtaf_block_getflags", "block address: %d", addr)
	}

	if addr < fs.geo.firstDataSector {
		return fsys.FlagMeta | fsys.FlagAlloc, nil
	}
	if addr < fs.geo.firstClusterSector {
		return fsys.FlagContent | fsys.FlagAlloc, nil
	}

	flags := fsys.FlagContent
	alloc, err := fs.isSectAlloc(addr)
	if err != nil {
		return 0, err
	}
	if alloc {
		flags |= fsys.FlagAlloc
	} else {
		flags |= fsys.FlagUnalloc
	}
	return flags, nil
}

// WalkBlocks walks sectors in [start, end]. The area before the first
// cluster is read in eight-sector chunks; the data area in cluster-sized
// chunks, classifying each cluster's allocation once.
func (fs *FS) WalkBlocks(start, end uint64, flags fsys.Flags, visit fsys.BlockVisitor) error {
	const op = "xtaf_block_walk"

	if err := fs.checkOpen(op); err != nil {
		return err
	}
	if start < fs.firstBlock || start > fs.lastBlock {
		return fsys.E(fsys.KindWalkRange, op, "start block: %d", start)
	}
	if end < fs.firstBlock || end > fs.lastBlock {
		return fsys.E(fsys.KindWalkRange, op, "end block: %d", end)
	}

	flags = flags.Normalize()
	fs.logf("block_walk: walking %d to %d", start, end)

	g := &fs.geo
	addr := start

	// Phase A: reserved area, FATs, and fixed root directory.
	if addr < g.firstClusterSector && flags&fsys.FlagAlloc != 0 {
		chunk := make([]byte, SectorSize*8)

		for addr < g.firstClusterSector && addr <= end {
			n := uint64(8)
			if rem := g.firstClusterSector - addr; rem < n {
				n = rem
			}
			if rem := end - addr + 1; rem < n {
				n = rem
			}
			if err := fs.read(chunk[:n*SectorSize], int64(addr)<<sectorShift); err != nil {
				return fsys.E(fsys.KindRead, op, "pre-data area block: %d", addr)
			}

			for i := uint64(0); i < n; i, addr = i+1, addr+1 {
				bf := fsys.FlagAlloc
				if addr < g.firstDataSector {
					bf |= fsys.FlagMeta
				} else {
					bf |= fsys.FlagContent
				}
				if !flags.Admits(bf) {
					continue
				}

				blk := fsys.Block{
					Addr:  addr,
					Flags: bf | fsys.FlagRaw,
					Data:  chunk[i*SectorSize : (i+1)*SectorSize],
				}
				switch visit(&blk) {
				case fsys.WalkStop:
					return nil
				case fsys.WalkError:
					return fsys.ErrStopped
				}
			}
		}

		if addr > end {
			return nil
		}
	} else if addr < g.firstClusterSector {
		addr = g.firstClusterSector
	}

	// Phase B: clustered data area. Align down to the cluster base so the
	// allocation of the whole chunk is decided once.
	addr = g.clustToSect(g.sectToClust(addr))
	chunk := make([]byte, uint64(g.clusterSize)*SectorSize)

	for ; addr <= end; addr += uint64(g.clusterSize) {
		alloc, err := fs.isSectAlloc(addr)
		if err != nil {
			return err
		}

		bf := fsys.FlagContent
		if alloc {
			bf |= fsys.FlagAlloc
		} else {
			bf |= fsys.FlagUnalloc
		}
		if !flags.Admits(bf) {
			continue
		}

		// The final chunk may not span a full cluster.
		readSects := uint64(g.clusterSize)
		if rem := end - addr + 1; rem < readSects {
			readSects = rem
		}
		if err := fs.read(chunk[:readSects*SectorSize], int64(addr)<<sectorShift); err != nil {
			return fsys.E(fsys.KindRead, op, "block: %d", addr)
		}

		for i := uint64(0); i < readSects; i++ {
			if addr+i < start {
				continue
			}
			if addr+i > end {
				break
			}
			blk := fsys.Block{
				Addr:  addr + i,
				Flags: bf | fsys.FlagRaw,
				Data:  chunk[i*SectorSize : (i+1)*SectorSize],
			}
			switch visit(&blk) {
			case fsys.WalkStop:
				return nil
			case fsys.WalkError:
				return fsys.ErrStopped
			}
		}
	}

	return nil
}

// OpenInode loads the metadata view of one inode: the reserved root
// directory, a synthetic special inode, or a 32-byte dentry slot.
func (fs *FS) OpenInode(inum uint64) (*fsys.Meta, error) {
	const op = "xtaf_inode_open"

	if err := fs.checkOpen(op); err != nil {
		return nil, err
	}
	if inum < fs.firstIno || inum > fs.lastIno {
		return nil, fsys.E(fsys.KindInodeNum, op, "inode: %d", inum)
	}

	if inum == rootInode {
		return &fsys.Meta{
			Addr:  inum,
			Type:  fsys.MetaTypeDir,
			Flags: fsys.FlagAlloc,
			Mode:  0,
			NLink: 1,
			Size:  int64(rootDirSectors * SectorSize),
		}, nil
	}
	if inum > fs.lastIno-numSpecInodes {
		return &fsys.Meta{
			Addr:  inum,
			Type:  fsys.MetaTypeVirtual,
			Flags: fsys.FlagAlloc,
			NLink: 1,
		}, nil
	}

	d, raw, err := fs.loadDentry(inum)
	if err != nil {
		return nil, err
	}

	m := &fsys.Meta{
		Addr:    inum,
		NLink:   1,
		Size:    int64(d.size),
		MTime:   dosTime(d.wDate, d.wTime, 0),
		ATime:   dosTime(d.aDate, 0, 0),
		CrTime:  dosTime(d.crDate, d.crTime, d.crTimeTen),
		Content: raw,
	}
	switch {
	case d.isLFN() || d.attr&attrVolume != 0:
		m.Type = fsys.MetaTypeVirtual
	case d.attr&attrDir != 0:
		m.Type = fsys.MetaTypeDir
	default:
		m.Type = fsys.MetaTypeRegular
	}
	if d.inUse() {
		m.Flags = fsys.FlagAlloc
	} else {
		m.Flags = fsys.FlagUnalloc
	}
	return m, nil
}

// loadDentry reads the raw slot behind inum.
func (fs *FS) loadDentry(inum uint64) (dentry, []byte, error) {
	sect, slot := fs.sectSlotFromInode(inum)
	raw := make([]byte, dentrySize)
	off := int64(sect)<<sectorShift + int64(slot*dentrySize)
	if err := fs.read(raw, off); err != nil {
		return dentry{}, nil, fsys.E(fsys.KindRead, "xtaf_inode_open",
			"directory entry at sector %d slot %d", sect, slot)
	}
	return parseDentry(raw), raw, nil
}

// WalkInodes visits every dentry-slot inode in [start, end] whose
// allocation status passes the filter. The reserved root and trailing
// special inodes are emitted as synthetic records.
func (fs *FS) WalkInodes(start, end uint64, flags fsys.Flags, visit fsys.MetaVisitor) error {
	const op = "xtaf_inode_walk"

	if err := fs.checkOpen(op); err != nil {
		return err
	}
	if start < fs.firstIno || start > fs.lastIno {
		return fsys.E(fsys.KindWalkRange, op, "start inode: %d", start)
	}
	if end < fs.firstIno || end > fs.lastIno {
		return fsys.E(fsys.KindWalkRange, op, "end inode: %d", end)
	}
	flags = flags.Normalize()

	for inum := start; inum <= end; inum++ {
		m, err := fs.OpenInode(inum)
		if err != nil {
			return err
		}
		if !flags.Admits(m.Flags | fsys.FlagMeta) {
			continue
		}
		switch visit(m) {
		case fsys.WalkStop:
			return nil
		case fsys.WalkError:
			return fsys.ErrStopped
		}
	}
	return nil
}

// FSCheck is not implemented for FAT.
func (fs *FS) FSCheck(w io.Writer) error {
	return fsys.E(fsys.KindUnsupported, "xtaf_fscheck", "fscheck not implemented for FAT")
}

// OpenJournal fails: FAT has no journal.
func (fs *FS) OpenJournal(inum uint64) error {
	return fsys.E(fsys.KindUnsupported, "xtaf_jopen", "FAT does not have a journal")
}

// WalkJournalBlocks fails: FAT has no journal.
func (fs *FS) WalkJournalBlocks(start, end uint64, flags fsys.Flags, visit fsys.BlockVisitor) error {
	return fsys.E(fsys.KindUnsupported, "xtaf_jblk_walk", "FAT does not have a journal")
}

// WalkJournalEntries fails: FAT has no journal.
func (fs *FS) WalkJournalEntries(visit fsys.BlockVisitor) error {
	return fsys.E(fsys.KindUnsupported, "xtaf_jentry_walk", "FAT does not have a journal")
}
