package xtaf

import (
	"encoding/binary"
	"io"

	"github.com/fskope/fskope/internal/img"
)

// testPartOffset selects the 0x80000 entry of the geometry table:
// rootSector 528, sectorsPerFAT 512, clusterCount 65536, lastCluster 65527.
const testPartOffset = 0x80000

// testImageSize leaves lastBlockActual at 3071 sectors past the partition
// start, well inside the cluster area.
const testImageSize = testPartOffset + 3072*SectorSize

// imageBuilder assembles a synthetic XTAF partition in memory.
type imageBuilder struct {
	data []byte
	off  int64
}

func newImageBuilder() *imageBuilder {
	b := &imageBuilder{
		data: make([]byte, testImageSize),
		off:  testPartOffset,
	}
	b.putBootSector(0, 1, 1)
	return b
}

// putBootSector writes an XTAF header at the given sector of the partition.
func (b *imageBuilder) putBootSector(sect int64, csize, numfat uint32) {
	p := b.data[b.off+sect*SectorSize:]
	copy(p, "XTAF")
	copy(p[4:8], []byte{0xAA, 0xBB, 0xCC, 0xDD})
	binary.BigEndian.PutUint32(p[8:12], csize)
	binary.BigEndian.PutUint32(p[12:16], numfat)
}

func (b *imageBuilder) zeroBootSector() {
	copy(b.data[b.off:b.off+SectorSize], make([]byte, SectorSize))
}

// putFAT16 writes a 16-bit FAT entry for a cluster.
func (b *imageBuilder) putFAT16(clust uint64, val uint16) {
	off := b.off + firstFATSector*SectorSize + int64(clust)*2
	binary.LittleEndian.PutUint16(b.data[off:off+2], val)
}

// putFAT32 writes a 32-bit FAT entry for a cluster.
func (b *imageBuilder) putFAT32(clust uint64, val uint32) {
	off := b.off + firstFATSector*SectorSize + int64(clust)*4
	binary.LittleEndian.PutUint32(b.data[off:off+4], val)
}

// putDentry writes a 32-byte directory entry into a root-directory slot.
func (b *imageBuilder) putDentry(slot int64, name string, attr uint8, startClust uint16, size uint32, wdate, wtime uint16) {
	const rootSector = 528
	p := b.data[b.off+rootSector*SectorSize+slot*dentrySize:]
	copy(p[0:11], "           ")
	copy(p, name)
	p[11] = attr
	binary.LittleEndian.PutUint16(p[22:24], wtime)
	binary.LittleEndian.PutUint16(p[24:26], wdate)
	binary.LittleEndian.PutUint16(p[26:28], startClust)
	binary.LittleEndian.PutUint32(p[28:32], size)
}

func (b *imageBuilder) image() *img.Image {
	return img.FromBytes(b.data)
}

// sparseImage is a zero-filled ReaderAt with a few byte overlays, used to
// fake large images without allocating them.
type sparseImage struct {
	size   int64
	chunks map[int64][]byte
}

func newSparseImage(size int64) *sparseImage {
	return &sparseImage{size: size, chunks: map[int64][]byte{}}
}

func (s *sparseImage) put(off int64, p []byte) {
	s.chunks[off] = append([]byte(nil), p...)
}

func (s *sparseImage) ReadAt(p []byte, off int64) (int, error) {
	if off >= s.size {
		return 0, io.EOF
	}
	n := len(p)
	if int64(n) > s.size-off {
		n = int(s.size - off)
	}
	for i := 0; i < n; i++ {
		p[i] = 0
	}
	for base, chunk := range s.chunks {
		lo, hi := base, base+int64(len(chunk))
		rlo, rhi := off, off+int64(n)
		if hi <= rlo || lo >= rhi {
			continue
		}
		from, to := max64(lo, rlo), min64(hi, rhi)
		copy(p[from-off:to-off], chunk[from-base:to-base])
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
