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
	"fmt"
	"io"
	"time"

	"github.com/fskope/fskope/internal/buf"
	"github.com/fskope/fskope/internal/fsys"
)

// FSStat renders the hive summary: format versions, the sequence-number
// synchronisation state, the hive name, and the key/hbin offsets.
func (fs *FS) FSStat(w io.Writer) error {
	if err := fs.checkOpen("regf_fsstat"); err != nil {
		return err
	}

	fmt.Fprintf(w, "FILE SYSTEM INFORMATION\n")
	fmt.Fprintf(w, "--------------------------------------------\n")
	fmt.Fprintf(w, "File System Type: Windows Registry\n")
	fmt.Fprintf(w, "Major Version: %d\n", fs.hdr.major)
	fmt.Fprintf(w, "Minor Version: %d\n", fs.hdr.minor)

	if fs.hdr.synchronized() {
		fmt.Fprintf(w, "Synchronized: Yes\n")
	} else {
		fmt.Fprintf(w, "Synchronized: No\n")
	}

	fmt.Fprintf(w, "Hive name: %s\n", fs.decodeUTF16("REGF hive name label", fs.hdr.hiveName[:]))

	fmt.Fprintf(w, "\nMETADATA INFORMATION\n")
	fmt.Fprintf(w, "--------------------------------------------\n")
	fmt.Fprintf(w, "Offset to first key: %d\n", fs.hdr.firstKey)
	fmt.Fprintf(w, "Offset to last HBIN: %d\n", fs.hdr.lastHBIN)

	return nil
}

// IStat renders the cell header at inum and dispatches to the renderer for
// its record kind.
func (fs *FS) IStat(w io.Writer, inum uint64, numBlocks uint64, skew int64) error {
	if err := fs.checkOpen("regf_istat"); err != nil {
		return err
	}

	fmt.Fprintf(w, "CELL INFORMATION\n")
	fmt.Fprintf(w, "--------------------------------------------\n")

	c, err := fs.loadCell(inum)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Cell: %d\n", inum)
	if c.allocated {
		fmt.Fprintf(w, "Allocated: Yes\n")
	} else {
		fmt.Fprintf(w, "Allocated: No\n")
	}
	fmt.Fprintf(w, "Cell Size: %d\n", c.length)

	switch c.typ {
	case recordNK:
		return fs.istatNK(w, c, skew)
	case recordVK, recordLF, recordLH, recordLI, recordRI, recordSK, recordDB:
		fmt.Fprintf(w, "\nRECORD INFORMATION\n")
		fmt.Fprintf(w, "--------------------------------------------\n")
		fmt.Fprintf(w, "Record Type: %s\n", c.typ)
		return nil
	default:
		return fs.istatUnknown(w, c)
	}
}

// istatNK renders a named-key record: class name, key name, root flag,
// modification time, and the parent record.
func (fs *FS) istatNK(w io.Writer, c cell, skew int64) error {
	const op = "regf_istat"

	raw, err := fs.readCell(c)
	if err != nil {
		return err
	}
	// nk points past the four-byte cell header at the record payload.
	nk := raw[4:]

	fmt.Fprintf(w, "\nRECORD INFORMATION\n")
	fmt.Fprintf(w, "--------------------------------------------\n")
	fmt.Fprintf(w, "Record Type: NK\n")

	if !buf.Has(nk, 0, nkOffName) {
		return fsys.E(fsys.KindInodeCorrupt, op, "NK record truncated at %d", c.inum)
	}

	classOff := buf.U32LE(nk, nkOffClassNameOffset)
	if classOff == classNameNone {
		fmt.Fprintf(w, "Class Name: None\n")
	} else {
		classLen := buf.U16LE(nk, nkOffClassNameLength)
		if classLen > maxNameLength {
			return fsys.E(fsys.KindInodeCorrupt, op, "NK classname string too long")
		}
		name16 := make([]byte, classLen)
		if err := fs.read(name16, firstHBINOffset+int64(classOff)+4); err != nil {
			return fsys.E(fsys.KindRead, op, "failed to read NK classname string")
		}
		fmt.Fprintf(w, "Class Name: %s\n", fs.decodeUTF16("NK class name", name16))
	}

	nameLen := buf.U16LE(nk, nkOffNameLength)
	if nameLen > maxNameLength {
		return fsys.E(fsys.KindInodeCorrupt, op, "NK key name string too long")
	}
	// The name is ASCII and bounded by both its declared length and the
	// cell it lives in.
	if !buf.Has(nk, nkOffName, int(nameLen)) {
		return fsys.E(fsys.KindInodeCorrupt, op, "NK key name exceeds cell")
	}
	fmt.Fprintf(w, "Key Name: %s\n", string(nk[nkOffName:nkOffName+int(nameLen)]))

	if buf.U16LE(nk, nkOffFlags) == nkRootFlags {
		fmt.Fprintf(w, "Root Record: Yes\n")
	} else {
		fmt.Fprintf(w, "Root Record: No\n")
	}

	mtime := ntTime(buf.U64LE(nk, nkOffTimestamp))
	if skew != 0 {
		fmt.Fprintf(w, "\nAdjusted Entry Times:\n")
		fmt.Fprintf(w, "Modified:\t%s\n", timeStr(shift(mtime, -skew)))
		fmt.Fprintf(w, "\nOriginal Entry Times:\n")
	} else {
		fmt.Fprintf(w, "\nEntry Times:\n")
	}
	fmt.Fprintf(w, "Modified:\t%s\n", timeStr(mtime))

	fmt.Fprintf(w, "Parent Record: %d\n",
		firstHBINOffset+uint64(buf.U32LE(nk, nkOffParent)))

	return nil
}

// istatUnknown renders a cell with no recognised signature, dumping the
// raw type identifier.
func (fs *FS) istatUnknown(w io.Writer, c cell) error {
	raw, err := fs.readCell(c)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\nRECORD INFORMATION\n")
	fmt.Fprintf(w, "--------------------------------------------\n")
	fmt.Fprintf(w, "Record Type: Unknown (Data Record?)\n")
	if len(raw) >= 6 {
		fmt.Fprintf(w, "Type identifier: 0x%x%x\n", raw[4], raw[5])
	}
	return nil
}

func timeStr(t time.Time) string {
	if t.IsZero() {
		return "0000-00-00 00:00:00 (UTC)"
	}
	return t.UTC().Format("2006-01-02 15:04:05 (UTC)")
}

func shift(t time.Time, secs int64) time.Time {
	if t.IsZero() {
		return t
	}
	return t.Add(time.Duration(secs) * time.Second)
}
