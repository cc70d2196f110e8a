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
	"github.com/fskope/fskope/internal/buf"
	"github.com/fskope/fskope/internal/fsys"
)

// getFAT decodes the FAT entry for clust. The returned value is 0 for a
// free cluster, a next-cluster number for an allocated one, or an EOF/BAD
// marker (classify with isEOF/isBad). Entries pointing past the last
// cluster but below the bad marker are corrupt; they are coerced to free so
// a walk over a damaged FAT keeps going.
func (fs *FS) getFAT(clust uint64) (uint64, error) {
	g := &fs.geo

	if clust > g.lastCluster {
		// A request for the cluster just past the end can come from the
		// trailing non-clustered sectors; ignore it silently.
		if clust == g.lastCluster+1 &&
			g.firstClusterSector+uint64(g.clusterSize)*g.clusterCount-1 != fs.lastBlock {
			fs.logf("getFAT: ignoring request for non-clustered sector")
			return 0, nil
		}
		return 0, fsys.E(fsys.KindArg, "xtaf_getfat", "invalid cluster address: %d", clust)
	}

	var (
		value uint64
		sect  uint64
		offs  uint64
	)

	switch fs.typ {
	case fsys.TypeFAT12:
		if clust&0xf000 != 0 {
			return 0, fsys.E(fsys.KindArg, "xtaf_getfat", "FAT12 cluster %d too large", clust)
		}

		sect = g.firstFATSector + ((clust + clust>>1) >> sectorShift)
		cidx, err := fs.window(sect)
		if err != nil {
			return 0, err
		}

		offs = (sect-fs.cache.slots[cidx].base)<<sectorShift +
			(clust+clust>>1)%SectorSize

		// A 12-bit entry whose first byte is the last byte of the window
		// straddles the window end. Re-read the window to start at this
		// sector; the window size guarantees both bytes then fit.
		if offs == fatCacheBytes-1 {
			fs.logf("getFAT: FAT12 entry %d straddles the cache window, re-reading from sector %d", clust, sect)
			if err := fs.reload(cidx, sect); err != nil {
				return 0, err
			}
			offs = (clust + clust>>1) % SectorSize
		}

		tmp := buf.U16LE(fs.cache.slots[cidx].buf[:], int(offs))
		if clust&1 != 0 {
			tmp >>= 4
		}
		value = uint64(tmp & mask12)

	case fsys.TypeFAT16:
		sect = g.firstFATSector + ((clust << 1) >> sectorShift)
		cidx, err := fs.window(sect)
		if err != nil {
			return 0, err
		}
		offs = (sect-fs.cache.slots[cidx].base)<<sectorShift + (clust<<1)%SectorSize
		value = uint64(buf.U16LE(fs.cache.slots[cidx].buf[:], int(offs)) & mask16)

	case fsys.TypeFAT32:
		sect = g.firstFATSector + ((clust << 2) >> sectorShift)
		cidx, err := fs.window(sect)
		if err != nil {
			return 0, err
		}
		offs = (sect-fs.cache.slots[cidx].base)<<sectorShift + (clust<<2)%SectorSize
		value = uint64(buf.U32LE(fs.cache.slots[cidx].buf[:], int(offs)) & mask32)

	default:
		return 0, fsys.E(fsys.KindArg, "xtaf_getfat", "unknown FAT type: %v", fs.typ)
	}

	if value > g.lastCluster && value < uint64(0x0ffffff7&g.mask) {
		fs.logf("getFAT: entry %d value %d too large, resetting", clust, value)
		value = 0
	}
	return value, nil
}

// isClustAlloc reports whether a cluster is referenced by the FAT.
func (fs *FS) isClustAlloc(clust uint64) (bool, error) {
	v, err := fs.getFAT(clust)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// isSectAlloc reports the allocation status of a sector. Everything before
// the first cluster (reserved area, FATs, fixed root directory) is
// allocated; the trailing non-clustered tail is unallocated; everything
// else follows the FAT entry of its cluster.
func (fs *FS) isSectAlloc(sect uint64) (bool, error) {
	g := &fs.geo

	if sect < g.firstClusterSector {
		return true, nil
	}
	if sect <= fs.lastBlock &&
		sect >= g.firstClusterSector+uint64(g.clusterSize)*g.clusterCount {
		return false, nil
	}
	return fs.isClustAlloc(g.sectToClust(sect))
}
