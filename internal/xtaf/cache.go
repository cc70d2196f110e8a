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
	"github.com/fskope/fskope/internal/fsys"
)

// FAT sector cache: a fixed number of FAT-sized windows with integer TTLs.
// TTL 0 marks an empty slot, 1 the most recently used window, fatCacheSlots
// the least recently used, and anything larger an eviction candidate.
const (
	fatCacheSlots = 4
	// fatCacheBytes must be at least two sectors so the FAT12 entry that
	// straddles a window end can always be re-read from its own sector.
	fatCacheBytes = 4096
)

type fatCacheSlot struct {
	base uint64 // first FAT sector held in buf; valid when ttl > 0
	ttl  int
	buf  [fatCacheBytes]byte
}

type fatCache struct {
	slots [fatCacheSlots]fatCacheSlot
}

// sectorsPerWindow is how many sectors one cache window spans.
func sectorsPerWindow() uint64 {
	return fatCacheBytes >> sectorShift
}

// window returns the index of the cache slot holding sect, loading it on a
// miss with an LRU replacement over the slot TTLs.
func (fs *FS) window(sect uint64) (int, error) {
	c := &fs.cache

	// Hit: promote the slot to TTL 1 and age everything else.
	for i := range c.slots {
		s := &c.slots[i]
		if s.ttl > 0 && sect >= s.base && sect < s.base+sectorsPerWindow() {
			for a := range c.slots {
				if a == i || c.slots[a].ttl == 0 {
					continue
				}
				if c.slots[a].ttl < s.ttl {
					c.slots[a].ttl++
				}
			}
			s.ttl = 1
			return i, nil
		}
	}

	// Miss: evict the first empty or stale slot.
	cidx := 0
	for i := range c.slots {
		if c.slots[i].ttl == 0 || c.slots[i].ttl >= fatCacheSlots {
			cidx = i
			break
		}
	}

	// Read through a scratch buffer first so a failed read leaves the
	// cache untouched.
	var tmp [fatCacheBytes]byte
	if err := fs.read(tmp[:], int64(sect)<<sectorShift); err != nil {
		return -1, fsys.E(fsys.KindRead, "xtaf_fat_cache", "FAT sector %d: %v", sect, err)
	}

	victim := &c.slots[cidx]
	if victim.ttl == 0 {
		victim.ttl = fatCacheSlots + 1
	}
	for i := range c.slots {
		if i == cidx || c.slots[i].ttl == 0 {
			continue
		}
		if c.slots[i].ttl < victim.ttl {
			c.slots[i].ttl++
		}
	}
	victim.buf = tmp
	victim.base = sect
	victim.ttl = 1
	return cidx, nil
}

// reload re-reads a window in place so that it starts exactly at sect. Used
// for the FAT12 entry that straddles the final byte of a window; TTLs have
// already been refreshed by the preceding window call.
func (fs *FS) reload(idx int, sect uint64) error {
	var tmp [fatCacheBytes]byte
	if err := fs.read(tmp[:], int64(sect)<<sectorShift); err != nil {
		return fsys.E(fsys.KindRead, "xtaf_fat_cache", "FAT12 window overlap at sector %d: %v", sect, err)
	}
	fs.cache.slots[idx].buf = tmp
	fs.cache.slots[idx].base = sect
	return nil
}
