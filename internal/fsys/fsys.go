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

// Package fsys defines the uniform contract every file-system back-end
// implements: an image is an addressable sequence of blocks, a set of
// metadata records addressed by inode number, and a pair of text renderers
// (fsstat, istat), regardless of the underlying on-disk format.
package fsys

import (
	"io"
	"time"
)

// Type identifies a file-system format a back-end can open.
type Type int

const (
	TypeUnknown Type = iota
	TypeFAT12
	TypeFAT16
	TypeFAT32
	// TypeFATAuto asks the FAT back-end to detect the variant from the
	// cluster count.
	TypeFATAuto
	TypeReg
)

func (t Type) String() string {
	switch t {
	case TypeFAT12:
		return "fat12"
	case TypeFAT16:
		return "fat16"
	case TypeFAT32:
		return "fat32"
	case TypeFATAuto:
		return "fat"
	case TypeReg:
		return "reg"
	default:
		return "unknown"
	}
}

// ParseType maps a CLI type name to a Type.
func ParseType(s string) Type {
	switch s {
	case "fat12":
		return TypeFAT12
	case "fat16":
		return TypeFAT16
	case "fat32":
		return TypeFAT32
	case "fat", "xtaf":
		return TypeFATAuto
	case "reg", "regf":
		return TypeReg
	}
	return TypeUnknown
}

// Flags decorate a block or metadata record with its allocation and content
// class, and select subsets during walks. A walk filter that sets neither
// flag of a pair is treated as selecting both.
type Flags uint8

const (
	FlagAlloc Flags = 1 << iota
	FlagUnalloc
	FlagMeta
	FlagContent
	// FlagRaw marks a block whose bytes were handed to the visitor as read
	// from the image.
	FlagRaw
)

// Normalize fills in both halves of any pair the filter leaves empty.
func (f Flags) Normalize() Flags {
	if f&(FlagAlloc|FlagUnalloc) == 0 {
		f |= FlagAlloc | FlagUnalloc
	}
	if f&(FlagMeta|FlagContent) == 0 {
		f |= FlagMeta | FlagContent
	}
	return f
}

// Admits reports whether a block carrying bf passes the filter f. A block
// may carry both classes of a pair (Registry pages are metadata and
// content at once); it passes when the filter selects at least one of
// them.
func (f Flags) Admits(bf Flags) bool {
	if f&bf&(FlagMeta|FlagContent) == 0 {
		return false
	}
	if f&bf&(FlagAlloc|FlagUnalloc) == 0 {
		return false
	}
	return true
}

// Block is one fixed-size unit handed to a walk visitor. Data aliases the
// walk's internal buffer and is only valid for the duration of the visit.
type Block struct {
	Addr  uint64
	Flags Flags
	Data  []byte
}

// WalkAction is a visitor's verdict on how a walk proceeds.
type WalkAction int

const (
	// WalkCont continues with the next record.
	WalkCont WalkAction = iota
	// WalkStop terminates the walk successfully.
	WalkStop
	// WalkError terminates the walk with a failure.
	WalkError
)

// BlockVisitor observes one block per call, in ascending address order.
type BlockVisitor func(b *Block) WalkAction

// MetaType is the semantic class of a metadata record.
type MetaType int

const (
	MetaTypeOther MetaType = iota
	MetaTypeRegular
	MetaTypeDir
	MetaTypeVirtual
)

func (t MetaType) String() string {
	switch t {
	case MetaTypeRegular:
		return "File"
	case MetaTypeDir:
		return "Directory"
	case MetaTypeVirtual:
		return "Virtual"
	default:
		return "Other"
	}
}

// Meta is the metadata view of one inode. Times that a format does not
// record are zero. Content carries back-end specific raw bytes (the full
// cell for Registry records, the 32-byte directory entry for FAT).
type Meta struct {
	Addr    uint64
	Type    MetaType
	Flags   Flags
	Mode    uint32
	NLink   int
	Size    int64
	UID     uint32
	GID     uint32
	MTime   time.Time
	ATime   time.Time
	CTime   time.Time
	CrTime  time.Time
	Content []byte
}

// MetaVisitor observes one metadata record per call.
type MetaVisitor func(m *Meta) WalkAction

// FileSystem is the uniform interface over an opened file system. A handle
// is single-threaded: callers must not invoke operations concurrently.
// Close invalidates the handle; no operation may be called afterwards.
type FileSystem interface {
	Type() Type
	BlockSize() uint32

	FirstBlock() uint64
	LastBlock() uint64
	// LastBlockActual is the last block backed by image bytes; less than
	// LastBlock when the image is truncated.
	LastBlockActual() uint64

	FirstInode() uint64
	LastInode() uint64
	RootInode() uint64

	// WalkBlocks invokes visit on every block in [start, end] admitted by
	// flags, passing the decorated block and its raw bytes.
	WalkBlocks(start, end uint64, flags Flags, visit BlockVisitor) error

	// BlockFlags classifies one block without reading its content.
	BlockFlags(addr uint64) (Flags, error)

	// OpenInode loads the metadata record at inum.
	OpenInode(inum uint64) (*Meta, error)

	// WalkInodes invokes visit on every metadata record in [start, end]
	// admitted by the allocation half of flags.
	WalkInodes(start, end uint64, flags Flags, visit MetaVisitor) error

	// FSStat renders the file-system layout summary.
	FSStat(w io.Writer) error

	// IStat renders per-inode detail. numBlocks, when non-zero, overrides
	// the record's reported size; skew shifts displayed timestamps.
	IStat(w io.Writer, inum uint64, numBlocks uint64, skew int64) error

	// NameCompare orders two names case-insensitively.
	NameCompare(a, b string) int

	// FSCheck is unsupported for both back-ends in scope.
	FSCheck(w io.Writer) error

	// Journal operations are unsupported for both back-ends in scope.
	OpenJournal(inum uint64) error
	WalkJournalBlocks(start, end uint64, flags Flags, visit BlockVisitor) error
	WalkJournalEntries(visit BlockVisitor) error

	Close() error
}
