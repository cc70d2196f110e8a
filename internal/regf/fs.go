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

package regf

import (
	"io"

	"github.com/fskope/fskope/internal/buf"
	"github.com/fskope/fskope/internal/fsys"
)

// hbinBlockFlags is the fixed classification of every hbin page: pages are
// always allocated and may hold both record structures and embedded data.
const hbinBlockFlags = fsys.FlagAlloc | fsys.FlagMeta | fsys.FlagContent

// BlockFlags classifies one hbin page.
func (fs *FS) BlockFlags(addr uint64) (fsys.Flags, error) {
	if err := fs.checkOpen("regf_block_getflags"); err != nil {
		return 0, err
	}
	if addr < fs.firstBlock || addr > fs.lastBlock {
		return 0, fsys.E(fsys.KindBlockNum, "regf_block_getflags", "block address: %d", addr)
	}
	return hbinBlockFlags, nil
}

// WalkBlocks iterates hbin-aligned pages in [start, end], reading each page
// whole and handing it to the visitor with the fixed hbin flag set.
func (fs *FS) WalkBlocks(start, end uint64, flags fsys.Flags, visit fsys.BlockVisitor) error {
	const op = "regf_block_walk"

	if err := fs.checkOpen(op); err != nil {
		return err
	}
	if start < fs.firstBlock || start > fs.lastBlock {
		return fsys.E(fsys.KindWalkRange, op, "invalid block walk start block: %d", start)
	}
	if end < fs.firstBlock || end > fs.lastBlock {
		return fsys.E(fsys.KindWalkRange, op, "invalid block walk end block: %d", end)
	}

	flags = flags.Normalize()
	fs.logf("block_walk: walking %d to %d", start, end)

	page := make([]byte, HBINSize)
	for addr := start - start%HBINSize; addr <= end; addr += HBINSize {
		if !flags.Admits(hbinBlockFlags) {
			continue
		}
		if err := fs.read(page, int64(addr)); err != nil {
			return fsys.E(fsys.KindRead, op, "block at %d", addr)
		}

		blk := fsys.Block{
			Addr:  addr,
			Flags: hbinBlockFlags | fsys.FlagRaw,
			Data:  page,
		}
		switch visit(&blk) {
		case fsys.WalkStop:
			return nil
		case fsys.WalkError:
			return fsys.ErrStopped
		}
	}
	return nil
}

// OpenInode loads the cell at inum and presents it as a metadata record:
// VK records are files, NK records directories, everything else virtual.
// Security descriptors are not parsed, so the mode is wide open and owner
// ids are zero.
func (fs *FS) OpenInode(inum uint64) (*fsys.Meta, error) {
	const op = "regf_inode_open"

	if err := fs.checkOpen(op); err != nil {
		return nil, err
	}
	if inum < fs.firstIno || inum > fs.lastIno {
		return nil, fsys.E(fsys.KindInodeNum, op, "inode %d too large/small", inum)
	}

	c, err := fs.loadCell(inum)
	if err != nil {
		return nil, err
	}
	raw, err := fs.readCell(c)
	if err != nil {
		return nil, err
	}

	m := &fsys.Meta{
		Addr:    inum,
		Mode:    0o7777,
		NLink:   1,
		Size:    int64(c.length),
		Content: raw,
	}
	if c.allocated {
		m.Flags = fsys.FlagAlloc
	} else {
		m.Flags = fsys.FlagUnalloc
	}

	switch c.typ {
	case recordVK:
		m.Type = fsys.MetaTypeRegular
	case recordNK:
		m.Type = fsys.MetaTypeDir
	default:
		m.Type = fsys.MetaTypeVirtual
	}

	// Only NK records carry a timestamp: the key's last modification time
	// as a Windows FILETIME.
	if c.typ == recordNK && buf.Has(raw, 4+nkOffTimestamp, 8) {
		m.MTime = ntTime(buf.U64LE(raw, 4+nkOffTimestamp))
	}

	return m, nil
}

// WalkInodes iterates every cell in [start, end], following cell lengths
// within each hbin page and skipping the 32-byte page header at each
// boundary. The allocation half of the filter selects allocated or free
// cells.
func (fs *FS) WalkInodes(start, end uint64, flags fsys.Flags, visit fsys.MetaVisitor) error {
	const op = "regf_inode_walk"

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

	addr := start
	// Cells never live inside a page header; bump an address that points
	// into one past it.
	if addr%HBINSize < hbinHeaderSize {
		addr = addr - addr%HBINSize + hbinHeaderSize
	}
	hbinStart := addr - addr%HBINSize

	for addr <= end {
		c, err := fs.loadCell(addr)
		if err != nil {
			return err
		}
		if c.length == 0 {
			// A zero-length cell cannot advance the walk; the rest of this
			// page is padding.
			fs.logf("inode_walk: zero-length cell at %d, skipping to next hbin", addr)
			hbinStart += HBINSize
			addr = hbinStart + hbinHeaderSize
			continue
		}
		if addr+uint64(c.length) > hbinStart+HBINSize {
			return fsys.E(fsys.KindBlockNum, op,
				"cell at %d overran into subsequent hbin header", addr)
		}

		var bf fsys.Flags
		if c.allocated {
			bf = fsys.FlagAlloc
		} else {
			bf = fsys.FlagUnalloc
		}
		if flags.Admits(bf | fsys.FlagMeta) {
			m, err := fs.OpenInode(addr)
			if err != nil {
				return err
			}
			switch visit(m) {
			case fsys.WalkStop:
				return nil
			case fsys.WalkError:
				return fsys.ErrStopped
			}
		}

		addr += uint64(c.length)

		// Hop over the next page header.
		if addr >= hbinStart+HBINSize {
			hbinStart += HBINSize
			addr = hbinStart + hbinHeaderSize
		}
	}
	return nil
}

// FSCheck is not implemented for Registry hives.
func (fs *FS) FSCheck(w io.Writer) error {
	return fsys.E(fsys.KindUnsupported, "regf_fscheck",
		"fscheck not implemented for Windows Registries")
}

// OpenJournal fails: the Windows Registry has no journal.
func (fs *FS) OpenJournal(inum uint64) error {
	return fsys.E(fsys.KindUnsupported, "regf_jopen", "the Windows Registry does not have a journal")
}

// WalkJournalBlocks fails: the Windows Registry has no journal.
func (fs *FS) WalkJournalBlocks(start, end uint64, flags fsys.Flags, visit fsys.BlockVisitor) error {
	return fsys.E(fsys.KindUnsupported, "regf_jblk_walk", "the Windows Registry does not have a journal")
}

// WalkJournalEntries fails: the Windows Registry has no journal.
func (fs *FS) WalkJournalEntries(visit fsys.BlockVisitor) error {
	return fsys.E(fsys.KindUnsupported, "regf_jentry_walk", "the Windows Registry does not have a journal")
}
