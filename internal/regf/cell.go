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
	"github.com/fskope/fskope/internal/buf"
	"github.com/fskope/fskope/internal/fsys"
)

// recordType tags a cell by its 16-bit record signature.
type recordType uint16

const (
	recordUnknown recordType = 0
	recordVK      recordType = 0x6b76
	recordNK      recordType = 0x6b6e
	recordLF      recordType = 0x666c
	recordLH      recordType = 0x686c
	recordLI      recordType = 0x696c
	recordRI      recordType = 0x6972
	recordSK      recordType = 0x6b73
	recordDB      recordType = 0x6264
)

func tagRecord(sig uint16) recordType {
	switch recordType(sig) {
	case recordVK, recordNK, recordLF, recordLH, recordLI, recordRI, recordSK, recordDB:
		return recordType(sig)
	default:
		return recordUnknown
	}
}

func (t recordType) String() string {
	switch t {
	case recordVK:
		return "VK"
	case recordNK:
		return "NK"
	case recordLF:
		return "LF"
	case recordLH:
		return "LH"
	case recordLI:
		return "LI"
	case recordRI:
		return "RI"
	case recordSK:
		return "SK"
	case recordDB:
		return "DB"
	default:
		return "Unknown"
	}
}

// cell is the decoded header of one hive cell.
type cell struct {
	inum      uint64
	length    uint32
	allocated bool
	typ       recordType
}

// loadCell reads the six-byte cell header at inum: a signed length word
// whose high bit marks allocation, followed by the record signature. A
// length reaching a full page is corruption, since cells never cross an
// hbin boundary.
func (fs *FS) loadCell(inum uint64) (cell, error) {
	const op = "regf_load_cell"

	// Cells live in hbin space: past the base block, up to the end of the
	// last hbin.
	if inum < firstHBINOffset || inum > fs.lastIno {
		return cell{}, fsys.E(fsys.KindBlockNum, op, "invalid block number to load: %d", inum)
	}

	var raw [6]byte
	if err := fs.read(raw[:], int64(inum)); err != nil {
		return cell{}, fsys.E(fsys.KindRead, op, "failed to read cell structure at %d", inum)
	}

	c := cell{inum: inum}
	word := buf.U32LE(raw[:], 0)
	if word&(1<<31) != 0 {
		c.allocated = true
		c.length = uint32(-buf.I32LE(raw[:], 0))
	} else {
		c.allocated = false
		c.length = word
	}
	if c.length >= HBINSize {
		return cell{}, fsys.E(fsys.KindInodeCorrupt, op,
			"registry cell corrupt: size too large (%d)", c.length)
	}

	c.typ = tagRecord(buf.U16LE(raw[:], 4))
	return c, nil
}

// readCell returns the full raw bytes of a loaded cell.
func (fs *FS) readCell(c cell) ([]byte, error) {
	raw := make([]byte, c.length)
	if err := fs.read(raw, int64(c.inum)); err != nil {
		return nil, fsys.E(fsys.KindRead, "regf_read_cell",
			"failed to read cell structure at %d", c.inum)
	}
	return raw, nil
}
