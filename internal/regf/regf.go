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

// Package regf implements the uniform file-system interface for Windows
// Registry hives. Blocks are 4 KiB hbin pages; inodes are the byte offsets
// of cells within the hive.
package regf

import (
	"strings"
	"time"

	"github.com/fskope/fskope/internal/buf"
	"github.com/fskope/fskope/internal/fsys"
	"github.com/fskope/fskope/internal/img"
	"github.com/fskope/fskope/internal/logger"
)

const (
	// HBINSize is one hive bin page.
	HBINSize = 4096
	// firstHBINOffset is where the first hbin starts, right after the
	// 4 KiB REGF base block. Cell offsets stored in records are relative
	// to this point.
	firstHBINOffset = 0x1000
	// hbinHeaderSize is the per-page header cells never overlap.
	hbinHeaderSize = 0x20

	regfMagic = "regf"

	// Header field offsets.
	offSeq1      = 0x04
	offSeq2      = 0x08
	offMajor     = 0x14
	offMinor     = 0x18
	offFirstKey  = 0x24
	offLastHBIN  = 0x28
	offHiveName  = 0x30
	hiveNameSize = 60

	headerSize = offHiveName + hiveNameSize

	// A class-name or key-name length beyond this is treated as corrupt.
	maxNameLength = 512

	// NK record field offsets, relative to the record payload (the two
	// signature bytes included).
	nkOffFlags           = 2
	nkOffTimestamp       = 4
	nkOffParent          = 16
	nkOffClassNameOffset = 48
	nkOffNameLength      = 72
	nkOffClassNameLength = 74
	nkOffName            = 76

	// nkRootFlags is the flags value marking the hive's root key.
	nkRootFlags = 0x2C

	// classNameNone is the sentinel for an absent class name.
	classNameNone = 0xFFFFFFFF
)

// ntEpochDelta is the number of 100ns intervals between 1601-01-01 and
// 1970-01-01.
const ntEpochDelta = 116444736000000000

// ntTime converts a Windows FILETIME to a UTC timestamp.
func ntTime(v uint64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	v -= ntEpochDelta
	sec := int64(v / 10000000)
	nsec := int64(v%10000000) * 100
	return time.Unix(sec, nsec).UTC()
}

// header is the parsed REGF base block.
type header struct {
	seq1     uint32
	seq2     uint32
	major    uint32
	minor    uint32
	firstKey uint32 // offset of the root key cell, relative to the first hbin
	lastHBIN uint32 // offset of the last hbin page from the start of the hive
	hiveName [hiveNameSize]byte
}

func (h *header) synchronized() bool {
	return h.seq1 == h.seq2
}

func parseHeader(raw []byte) (header, error) {
	var h header
	if len(raw) < headerSize {
		return h, fsys.E(fsys.KindRead, "regf_open", "REGF header truncated")
	}
	if string(raw[0:4]) != regfMagic {
		return h, fsys.E(fsys.KindMagic, "regf_open", "REGF header has an invalid magic value")
	}
	h.seq1 = buf.U32LE(raw, offSeq1)
	h.seq2 = buf.U32LE(raw, offSeq2)
	h.major = buf.U32LE(raw, offMajor)
	h.minor = buf.U32LE(raw, offMinor)
	h.firstKey = buf.U32LE(raw, offFirstKey)
	h.lastHBIN = buf.U32LE(raw, offLastHBIN)
	copy(h.hiveName[:], raw[offHiveName:offHiveName+hiveNameSize])
	return h, nil
}

var _ fsys.FileSystem = (*FS)(nil)

// FS is an opened Registry hive. Block addresses and inode numbers share
// one space: byte offsets from the start of the hive, page-aligned for
// blocks. An FS must not be used from more than one goroutine at a time.
type FS struct {
	im     *img.Image
	offset int64
	hdr    header
	log    *logger.Logger
	closed bool

	firstBlock      uint64
	lastBlock       uint64
	lastBlockActual uint64
	firstIno        uint64
	lastIno         uint64
	rootIno         uint64
}

// Open reads and validates the REGF base block at offset and builds a hive
// handle.
func Open(im *img.Image, offset int64, log *logger.Logger) (*FS, error) {
	fs := &FS{im: im, offset: offset, log: log}

	raw := make([]byte, headerSize)
	if err := fs.read(raw, 0); err != nil {
		return nil, fsys.E(fsys.KindRead, "regf_open", "REGF header: %v", err)
	}
	hdr, err := parseHeader(raw)
	if err != nil {
		return nil, err
	}
	fs.hdr = hdr

	// The last-hbin offset is the hive offset of the final page, so hbin
	// space ends one page past it.
	fs.firstBlock = 0
	fs.lastBlock = uint64(hdr.lastHBIN)
	fs.lastBlockActual = uint64(im.Size()-offset) / HBINSize
	fs.firstIno = firstHBINOffset
	fs.lastIno = uint64(hdr.lastHBIN) + HBINSize
	fs.rootIno = firstHBINOffset + uint64(hdr.firstKey)

	return fs, nil
}

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

func (fs *FS) Type() fsys.Type { return fsys.TypeReg }
func (fs *FS) BlockSize() uint32 { return HBINSize }
func (fs *FS) FirstBlock() uint64 { return fs.firstBlock }
func (fs *FS) LastBlock() uint64 { return fs.lastBlock }
func (fs *FS) LastBlockActual() uint64 { return fs.lastBlockActual }
func (fs *FS) FirstInode() uint64 { return fs.firstIno }
func (fs *FS) LastInode() uint64 { return fs.lastIno }
func (fs *FS) RootInode() uint64 { return fs.rootIno }

func (fs *FS) NameCompare(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// Close invalidates the handle.
func (fs *FS) Close() error {
	if err := fs.checkOpen("regf_close"); err != nil {
		return err
	}
	fs.closed = true
	return nil
}
