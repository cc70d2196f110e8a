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
	"strings"
	"time"

	"github.com/fskope/fskope/internal/buf"
)

// Directory entry attribute bits.
const (
	attrReadOnly = 0x01
	attrHidden   = 0x02
	attrSystem   = 0x04
	attrVolume   = 0x08
	attrDir      = 0x10
	attrArchive  = 0x20
	attrLFN      = attrReadOnly | attrHidden | attrSystem | attrVolume
)

// deletedFlag in name[0] marks a deleted entry; 0x00 marks a never-used slot.
const deletedFlag = 0xE5

// dentry is one decoded 32-byte directory-entry slot.
type dentry struct {
	name       [8]byte
	ext        [3]byte
	attr       uint8
	crTimeTen  uint8
	crTime     uint16
	crDate     uint16
	aDate      uint16
	highClust  uint16
	wTime      uint16
	wDate      uint16
	startClust uint16
	size       uint32
}

func parseDentry(raw []byte) dentry {
	var d dentry
	copy(d.name[:], raw[0:8])
	copy(d.ext[:], raw[8:11])
	d.attr = raw[11]
	d.crTimeTen = raw[13]
	d.crTime = buf.U16LE(raw, 14)
	d.crDate = buf.U16LE(raw, 16)
	d.aDate = buf.U16LE(raw, 18)
	d.highClust = buf.U16LE(raw, 20)
	d.wTime = buf.U16LE(raw, 22)
	d.wDate = buf.U16LE(raw, 24)
	d.startClust = buf.U16LE(raw, 26)
	d.size = buf.U32LE(raw, 28)
	return d
}

func (d *dentry) isLFN() bool {
	return d.attr&attrLFN == attrLFN
}

// inUse reports whether the slot holds a live entry. Deleted entries and
// never-used slots both count as unallocated.
func (d *dentry) inUse() bool {
	return d.name[0] != 0 && d.name[0] != deletedFlag
}

// firstCluster joins the split 16-bit halves of the starting cluster. The
// high half is only meaningful on FAT32.
func (d *dentry) firstCluster(typ32 bool) uint64 {
	c := uint64(d.startClust)
	if typ32 {
		c |= uint64(d.highClust) << 16
	}
	return c
}

// shortName renders the 8.3 name with the dot separator.
func (d *dentry) shortName() string {
	base := strings.TrimRight(string(d.name[:]), " ")
	ext := strings.TrimRight(string(d.ext[:]), " ")
	if ext == "" {
		return base
	}
	return base + "." + ext
}

// attrString renders attributes the way istat prints them.
func (d *dentry) attrString() string {
	if d.isLFN() {
		return "Long File Name"
	}
	var sb strings.Builder
	switch {
	case d.attr&attrDir != 0:
		sb.WriteString("Directory")
	case d.attr&attrVolume != 0:
		sb.WriteString("Volume Label")
	default:
		sb.WriteString("File")
	}
	if d.attr&attrReadOnly != 0 {
		sb.WriteString(", Read Only")
	}
	if d.attr&attrHidden != 0 {
		sb.WriteString(", Hidden")
	}
	if d.attr&attrSystem != 0 {
		sb.WriteString(", System")
	}
	if d.attr&attrArchive != 0 {
		sb.WriteString(", Archive")
	}
	return sb.String()
}

// dosTime converts a FAT date/time pair to a UTC timestamp. A zero date
// yields the zero time (FAT leaves unset timestamps as all-zero words).
func dosTime(date, tod uint16, tenths uint8) time.Time {
	if date == 0 {
		return time.Time{}
	}
	year := 1980 + int(date>>9&0x7f)
	month := time.Month(date >> 5 & 0x0f)
	day := int(date & 0x1f)
	hour := int(tod >> 11 & 0x1f)
	min := int(tod >> 5 & 0x3f)
	sec := int(tod&0x1f) * 2
	nsec := int(tenths) * 10 * int(time.Millisecond)
	return time.Date(year, month, day, hour, min, sec, nsec, time.UTC)
}
