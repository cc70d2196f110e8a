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

// Package buf provides endian-aware integer readers over borrowed byte
// slices. On-disk structures mix byte orders: XTAF boot sectors store their
// fields big-endian while FAT tables and Registry hives are little-endian.
package buf

import "encoding/binary"

// U16LE reads a little-endian uint16 at off.
func U16LE(b []byte, off int) uint16 {
	return binary.LittleEndian.Uint16(b[off : off+2])
}

// U32LE reads a little-endian uint32 at off.
func U32LE(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off : off+4])
}

// U64LE reads a little-endian uint64 at off.
func U64LE(b []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(b[off : off+8])
}

// I32LE reads a little-endian int32 at off.
func I32LE(b []byte, off int) int32 {
	return int32(binary.LittleEndian.Uint32(b[off : off+4]))
}

// U16BE reads a big-endian uint16 at off.
func U16BE(b []byte, off int) uint16 {
	return binary.BigEndian.Uint16(b[off : off+2])
}

// U32BE reads a big-endian uint32 at off.
func U32BE(b []byte, off int) uint32 {
	return binary.BigEndian.Uint32(b[off : off+4])
}

// Has reports whether b[off:off+n] is within bounds.
func Has(b []byte, off, n int) bool {
	return off >= 0 && n >= 0 && off+n <= len(b)
}
