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
	"fmt"
	"io"
	"time"

	"github.com/fskope/fskope/internal/buf"
	"github.com/fskope/fskope/internal/fsys"
)

func timeStr(t time.Time) string {
	if t.IsZero() {
		return "0000-00-00 00:00:00 (UTC)"
	}
	return t.UTC().Format("2006-01-02 15:04:05 (UTC)")
}

// FSStat renders the file-system layout summary: general information, the
// sector layout, the metadata and content ranges, bad sectors, and a
// run-length summary of the FAT's chains.
func (fs *FS) FSStat(w io.Writer) error {
	const op = "xtaf_fsstat"

	if err := fs.checkOpen(op); err != nil {
		return err
	}
	g := &fs.geo

	// The volume label lives in the first sector of the root directory.
	sector := make([]byte, SectorSize)
	if err := fs.read(sector, int64(g.rootSector)<<sectorShift); err != nil {
		return fsys.E(fsys.KindRead, op, "root directory: %d", g.rootSector)
	}
	var label *dentry
	for off := 0; off+dentrySize <= SectorSize; off += dentrySize {
		d := parseDentry(sector[off : off+dentrySize])
		if d.attr == attrVolume {
			label = &d
			break
		}
	}

	fmt.Fprintf(w, "FILE SYSTEM INFORMATION\n")
	fmt.Fprintf(w, "--------------------------------------------\n")
	switch fs.typ {
	case fsys.TypeFAT12:
		fmt.Fprintf(w, "File System Type: FAT12\n")
	case fsys.TypeFAT16:
		fmt.Fprintf(w, "File System Type: FAT16\n")
	case fsys.TypeFAT32:
		fmt.Fprintf(w, "File System Type: FAT32\n")
	default:
		fmt.Fprintf(w, "File System Type: FAT\n")
	}

	fmt.Fprintf(w, "Serial number: 0x%x\n", buf.U32BE(fs.serial[:], 0))
	if label != nil {
		fmt.Fprintf(w, "Volume Label (Root Directory): %s\n", string(label.name[:]))
	} else {
		fmt.Fprintf(w, "Volume Label (Root Directory):\n")
	}

	fmt.Fprintf(w, "\nFile System Layout (in sectors)\n")
	fmt.Fprintf(w, "Total Range: %d - %d\n", fs.firstBlock, fs.lastBlock)
	if fs.lastBlock != fs.lastBlockActual {
		fmt.Fprintf(w, "Total Range in Image: %d - %d\n", fs.firstBlock, fs.lastBlockActual)
	}

	fmt.Fprintf(w, "* Reserved: 0 - %d\n", g.firstFATSector-1)
	fmt.Fprintf(w, "** Boot Sector: 0\n")

	for i := uint32(0); i < g.numFATs; i++ {
		base := g.firstFATSector + uint64(i)*uint64(g.sectorsPerFAT)
		fmt.Fprintf(w, "* FAT %d: %d - %d\n", i, base, base+uint64(g.sectorsPerFAT)-1)
	}

	fmt.Fprintf(w, "* Data Area: %d - %d\n", g.firstDataSector, fs.lastBlock)

	if fs.typ != fsys.TypeFAT32 {
		clustSects := uint64(g.clusterSize) * g.clusterCount

		fmt.Fprintf(w, "** Root Directory: %d - %d\n", g.firstDataSector, g.firstClusterSector-1)
		fmt.Fprintf(w, "** Cluster Area: %d - %d\n",
			g.firstClusterSector, g.firstClusterSector+clustSects-1)
		if g.firstClusterSector+clustSects-1 != fs.lastBlock {
			fmt.Fprintf(w, "** Non-clustered: %d - %d\n",
				g.firstClusterSector+clustSects, fs.lastBlock)
		}
	} else {
		clustSects := uint64(g.clusterSize) * (g.lastCluster - 1)

		fmt.Fprintf(w, "** Cluster Area: %d - %d\n",
			g.firstClusterSector, g.firstClusterSector+clustSects-1)

		// Chase the root directory chain to find its extent; a visited set
		// guards against FAT loops.
		seen := make(map[uint64]bool)
		clustP := g.sectToClust(g.rootSector)
		clust := clustP
		for clust != 0 && !isEOF(clust, g.mask) {
			clustP = clust
			if seen[clust] {
				fs.logf("fsstat: loop found while determining root directory size")
				break
			}
			seen[clust] = true
			next, err := fs.getFAT(clust)
			if err != nil {
				break
			}
			clust = next
		}
		fmt.Fprintf(w, "*** Root Directory: %d - %d\n",
			g.rootSector, g.clustToSect(clustP+1)-1)

		if g.firstClusterSector+clustSects-1 != fs.lastBlock {
			fmt.Fprintf(w, "** Non-clustered: %d - %d\n",
				g.firstClusterSector+clustSects, fs.lastBlock)
		}
	}

	fmt.Fprintf(w, "\nMETADATA INFORMATION\n")
	fmt.Fprintf(w, "--------------------------------------------\n")
	fmt.Fprintf(w, "Range: %d - %d\n", fs.firstIno, fs.lastIno)
	fmt.Fprintf(w, "Root Directory: %d\n", uint64(rootInode))

	fmt.Fprintf(w, "\nCONTENT INFORMATION\n")
	fmt.Fprintf(w, "--------------------------------------------\n")
	fmt.Fprintf(w, "Sector Size: %d\n", SectorSize)
	fmt.Fprintf(w, "Cluster Size: %d\n", uint32(g.clusterSize)<<sectorShift)
	fmt.Fprintf(w, "Total Cluster Range: 2 - %d\n", g.lastCluster)

	// Clusters whose FAT entry carries the bad marker.
	cnt := 0
	for c := uint64(2); c <= g.lastCluster; c++ {
		entry, err := fs.getFAT(c)
		if err != nil {
			break
		}
		if !isBad(entry, g.mask) {
			continue
		}
		if cnt == 0 {
			fmt.Fprintf(w, "Bad Sectors: ")
		}
		sect := g.clustToSect(c)
		for a := uint64(0); a < uint64(g.clusterSize); a++ {
			fmt.Fprintf(w, "%d ", sect+a)
			cnt++
			if cnt%8 == 0 {
				fmt.Fprintf(w, "\n")
			}
		}
	}
	if cnt > 0 && cnt%8 != 0 {
		fmt.Fprintf(w, "\n")
	}

	// Contiguous next-pointer runs of the FAT.
	fmt.Fprintf(w, "\nFAT CONTENTS (in sectors)\n")
	fmt.Fprintf(w, "--------------------------------------------\n")

	sstart := g.firstClusterSector
	for c := uint64(2); c <= g.lastCluster; c++ {
		send := g.clustToSect(c+1) - 1

		next, err := fs.getFAT(c)
		if err != nil {
			break
		}

		// The run keeps extending while the chain points to the very next
		// cluster.
		if next&uint64(g.mask) == c+1 {
			continue
		}

		if next&uint64(g.mask) != 0 {
			switch {
			case isEOF(next, g.mask):
				fmt.Fprintf(w, "%d-%d (%d) -> EOF\n", sstart, send, send-sstart+1)
			case isBad(next, g.mask):
				fmt.Fprintf(w, "%d-%d (%d) -> BAD\n", sstart, send, send-sstart+1)
			default:
				fmt.Fprintf(w, "%d-%d (%d) -> %d\n", sstart, send, send-sstart+1,
					g.clustToSect(next))
			}
		}
		sstart = send + 1
	}

	return nil
}

// IStat renders per-inode detail: allocation, attributes, size, name,
// timestamps (optionally skew-adjusted), and the sector addresses of the
// file content, eight per line.
func (fs *FS) IStat(w io.Writer, inum uint64, numBlocks uint64, skew int64) error {
	const op = "xtaf_istat"

	if err := fs.checkOpen(op); err != nil {
		return err
	}

	m, err := fs.OpenInode(inum)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Directory Entry: %d\n", inum)
	if m.Flags&fsys.FlagUnalloc != 0 {
		fmt.Fprintf(w, "Not Allocated\n")
	} else {
		fmt.Fprintf(w, "Allocated\n")
	}

	fmt.Fprintf(w, "File Attributes: ")

	var d *dentry
	if inum == rootInode {
		fmt.Fprintf(w, "Directory\n")
	} else if m.Type == fsys.MetaTypeVirtual && m.Content == nil {
		fmt.Fprintf(w, "Virtual\n")
	} else {
		de := parseDentry(m.Content)
		d = &de
		fmt.Fprintf(w, "%s\n", d.attrString())
	}

	fmt.Fprintf(w, "Size: %d\n", m.Size)
	if d != nil && !d.isLFN() {
		fmt.Fprintf(w, "Name: %s\n", d.shortName())
	}

	if skew != 0 {
		fmt.Fprintf(w, "\nAdjusted Directory Entry Times:\n")
		fmt.Fprintf(w, "Written:\t%s\n", timeStr(shift(m.MTime, -skew)))
		fmt.Fprintf(w, "Accessed:\t%s\n", timeStr(shift(m.ATime, -skew)))
		fmt.Fprintf(w, "Created:\t%s\n", timeStr(shift(m.CrTime, -skew)))
		fmt.Fprintf(w, "\nOriginal Directory Entry Times:\n")
	} else {
		fmt.Fprintf(w, "\nDirectory Entry Times:\n")
	}
	fmt.Fprintf(w, "Written:\t%s\n", timeStr(m.MTime))
	fmt.Fprintf(w, "Accessed:\t%s\n", timeStr(m.ATime))
	fmt.Fprintf(w, "Created:\t%s\n", timeStr(m.CrTime))

	fmt.Fprintf(w, "\nSectors:\n")

	size := m.Size
	if numBlocks > 0 {
		size = int64(numBlocks) * SectorSize
	}

	idx := 0
	emit := func(sect uint64) {
		fmt.Fprintf(w, "%d ", sect)
		idx++
		if idx%8 == 0 {
			fmt.Fprintf(w, "\n")
		}
	}

	if err := fs.walkFileSectors(inum, d, size, emit); err != nil {
		fmt.Fprintf(w, "\nError reading file\n")
	} else if idx%8 != 0 {
		fmt.Fprintf(w, "\n")
	}
	return nil
}

func shift(t time.Time, secs int64) time.Time {
	if t.IsZero() {
		return t
	}
	return t.Add(time.Duration(secs) * time.Second)
}

// walkFileSectors lists the sectors backing an inode. The root directory of
// a FAT12/16 volume is the fixed area between the FATs and the first
// cluster; everything else follows its cluster chain, stopping at EOF, a
// bad or free entry, an exhausted size budget, or a detected cycle.
func (fs *FS) walkFileSectors(inum uint64, d *dentry, size int64, emit func(uint64)) error {
	g := &fs.geo

	if inum == rootInode && fs.typ != fsys.TypeFAT32 {
		for sect := g.firstDataSector; sect < g.firstClusterSector; sect++ {
			emit(sect)
		}
		return nil
	}

	var clust uint64
	if inum == rootInode {
		clust = g.sectToClust(g.rootSector)
	} else if d != nil {
		clust = d.firstCluster(fs.typ == fsys.TypeFAT32)
	}
	if clust < 2 || clust > g.lastCluster {
		return nil
	}

	seen := make(map[uint64]bool)
	remaining := size

	for clust >= 2 && clust <= g.lastCluster && !isEOF(clust, g.mask) {
		if seen[clust] {
			fs.logf("istat: loop found while walking cluster chain of %d", inum)
			break
		}
		seen[clust] = true

		sect := g.clustToSect(clust)
		for a := uint64(0); a < uint64(g.clusterSize); a++ {
			if size > 0 && remaining <= 0 {
				return nil
			}
			emit(sect + a)
			remaining -= SectorSize
		}

		next, err := fs.getFAT(clust)
		if err != nil {
			return err
		}
		if next == 0 || isBad(next, g.mask) {
			break
		}
		clust = next
	}
	return nil
}
