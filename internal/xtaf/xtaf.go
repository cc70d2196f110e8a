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

// Package xtaf implements the uniform file-system interface for the XTAF
// FAT dialect used by game-console partitions. Blocks are 512-byte sectors;
// inodes are synthetic and map to 32-byte directory-entry slots.
package xtaf

import (
	"github.com/fskope/fskope/internal/buf"
	"github.com/fskope/fskope/internal/fsys"
)

const (
	// SectorSize is fixed for XTAF partitions. The field exists on disk in
	// regular FAT boot sectors, but every known XTAF image uses 512.
	// TODO: confirm against a console drive with 4Kn sectors, if any exist.
	SectorSize  = 512
	sectorShift = 9

	// firstFATSector is where the first FAT starts on every known image.
	firstFATSector = 8

	// rootDirSectors is the fixed size of the root directory area that sits
	// between the FATs and the first cluster.
	rootDirSectors = 32

	dentrySize = 32

	bootSectorSize = 512
	backupBootSect = 6

	mask12 = 0x0FFF
	mask16 = 0xFFFF
	mask32 = 0x0FFFFFFF

	// Inode numbering: the root directory takes the reserved inode 2 and
	// dentry slots are numbered from 3 upward; a couple of synthetic
	// inodes (orphan collector) trail the range.
	rootInode     = 2
	firstInode    = 2
	numSpecInodes = 2
)

func isEOF(v uint64, mask uint32) bool {
	return v >= uint64(0x0FFFFFF8&mask)
}

func isBad(v uint64, mask uint32) bool {
	return v == uint64(0x0FFFFFF7&mask)
}

// bootSector is the parsed XTAF partition header.
//
// Layout (all fields big-endian):
//
//	0x00  4  magic "XTAF"
//	0x04  4  serial number (raw bytes, rendered as hex)
//	0x08  4  sectors per cluster
//	0x0C  4  number of FAT copies
type bootSector struct {
	serial      [4]byte
	clusterSize uint32
	numFATs     uint32
}

// isZeroMagic reports whether the magic field reads as all zero, which
// triggers the backup boot-sector retry at sector 6.
func isZeroMagic(raw []byte) bool {
	return raw[0] == 0 && raw[1] == 0 && raw[2] == 0 && raw[3] == 0
}

func parseBootSector(raw []byte) (bootSector, error) {
	var bs bootSector
	if len(raw) < 16 {
		return bs, fsys.E(fsys.KindRead, "xtaf_open", "boot sector truncated")
	}
	if string(raw[0:4]) != "XTAF" {
		return bs, fsys.E(fsys.KindMagic, "xtaf_open", "not an XTAF file system (magic)")
	}
	copy(bs.serial[:], raw[4:8])
	bs.clusterSize = buf.U32BE(raw, 8)
	bs.numFATs = buf.U32BE(raw, 12)
	return bs, nil
}

// geometry is the immutable sector/cluster layout captured at open time.
type geometry struct {
	clusterSize        uint32 // sectors per cluster
	numFATs            uint32
	firstFATSector     uint64
	sectorsPerFAT      uint32
	firstDataSector    uint64
	firstClusterSector uint64
	rootSector         uint64
	clusterCount       uint64
	lastCluster        uint64
	mask               uint32
}

// clustToSect maps a cluster number (>= 2) to its first sector.
func (g *geometry) clustToSect(clust uint64) uint64 {
	return g.firstClusterSector + (clust-2)*uint64(g.clusterSize)
}

// sectToClust maps a data-area sector to the cluster containing it.
func (g *geometry) sectToClust(sect uint64) uint64 {
	return 2 + (sect-g.firstClusterSector)/uint64(g.clusterSize)
}

// partitionGeometry is one known (image size, partition offset) layout.
// XTAF carries no BPB fields for these values, so they are table-driven;
// unrecognised combinations fail open. This is a documented limitation.
type partitionGeometry struct {
	sizes  []int64 // image sizes that select this entry
	offset int64   // partition offset that selects this entry (0 = none)

	rootSector    uint64
	sectorsPerFAT uint32
	clusterCount  uint64
	lastCluster   uint64
}

var knownPartitions = []partitionGeometry{
	{
		sizes:         []int64{146413464, 4712496640, 4846714880},
		rootSector:    1176,
		sectorsPerFAT: 1160,
		clusterCount:  147910,
		lastCluster:   147891,
	},
	{
		sizes:         []int64{2147483648},
		offset:        0x80000,
		rootSector:    528,
		sectorsPerFAT: 512,
		clusterCount:  65536,
		lastCluster:   65527,
	},
	{
		sizes:         []int64{2348810240},
		offset:        0x80080000,
		rootSector:    2248,
		sectorsPerFAT: 2240,
		clusterCount:  65536,
		lastCluster:   65527,
	},
	{
		sizes:         []int64{216203264},
		offset:        0x10C080000,
		rootSector:    64,
		sectorsPerFAT: 56,
		clusterCount:  13196,
		lastCluster:   13194,
	},
	{
		sizes:         []int64{134217728},
		offset:        0x118eb0000,
		rootSector:    48,
		sectorsPerFAT: 40,
		clusterCount:  8192,
		lastCluster:   8190,
	},
	{
		// System partition.
		sizes:         []int64{268435456},
		offset:        0x120eb0000,
		rootSector:    80,
		sectorsPerFAT: 64,
		clusterCount:  16384,
		lastCluster:   16381,
	},
	{
		// Data partition.
		sizes:         []int64{244943674880},
		offset:        0x130eb0000,
		rootSector:    116808,
		sectorsPerFAT: 116800,
		clusterCount:  14950175,
		lastCluster:   14946525,
	},
}

// lookupPartition matches the image size or partition offset against the
// table of known layouts.
func lookupPartition(size, offset int64) (partitionGeometry, bool) {
	for _, p := range knownPartitions {
		for _, s := range p.sizes {
			if s == size {
				return p, true
			}
		}
		if p.offset != 0 && p.offset == offset {
			return p, true
		}
	}
	return partitionGeometry{}, false
}
