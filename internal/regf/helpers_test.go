package regf

import (
	"encoding/binary"

	"github.com/fskope/fskope/internal/img"
)

// hiveBuilder assembles a synthetic hive: a REGF base block followed by a
// number of 4 KiB hbin pages.
type hiveBuilder struct {
	data []byte
}

// newHiveBuilder creates a hive with the given number of hbin pages. The
// last-hbin offset points at the final page.
func newHiveBuilder(pages int) *hiveBuilder {
	b := &hiveBuilder{data: make([]byte, (1+pages)*HBINSize)}

	copy(b.data, regfMagic)
	b.putU32(offSeq1, 5)
	b.putU32(offSeq2, 5)
	b.putU32(offMajor, 1)
	b.putU32(offMinor, 5)
	b.putU32(offFirstKey, hbinHeaderSize)
	b.putU32(offLastHBIN, uint32(pages)*HBINSize)
	b.putName("SYSTEM")

	for p := 0; p < pages; p++ {
		off := (1 + p) * HBINSize
		copy(b.data[off:], "hbin")
		binary.LittleEndian.PutUint32(b.data[off+8:], HBINSize)
	}
	return b
}

func (b *hiveBuilder) putU32(off int, v uint32) {
	binary.LittleEndian.PutUint32(b.data[off:], v)
}

// putName writes an ASCII hive name as UTF-16LE with NUL padding.
func (b *hiveBuilder) putName(name string) {
	for i := 0; i < hiveNameSize; i++ {
		b.data[offHiveName+i] = 0
	}
	for i, c := range []byte(name) {
		b.data[offHiveName+2*i] = c
	}
}

// putCell writes a cell header at the absolute offset: a signed length
// word (negative when allocated) and an optional record signature.
func (b *hiveBuilder) putCell(off uint32, length uint32, allocated bool, sig string) {
	word := length
	if allocated {
		word = uint32(-int32(length))
	}
	binary.LittleEndian.PutUint32(b.data[off:], word)
	copy(b.data[off+4:], sig)
}

// putNK writes an allocated NK cell. classOff of classNameNone means no
// class name.
func (b *hiveBuilder) putNK(off, length uint32, name string, flags uint16, parent uint32, filetime uint64, classOff uint32, classLen uint16) {
	b.putCell(off, length, true, "nk")
	nk := b.data[off+4:]
	binary.LittleEndian.PutUint16(nk[nkOffFlags:], flags)
	binary.LittleEndian.PutUint64(nk[nkOffTimestamp:], filetime)
	binary.LittleEndian.PutUint32(nk[nkOffParent:], parent)
	binary.LittleEndian.PutUint32(nk[nkOffClassNameOffset:], classOff)
	binary.LittleEndian.PutUint16(nk[nkOffNameLength:], uint16(len(name)))
	binary.LittleEndian.PutUint16(nk[nkOffClassNameLength:], classLen)
	copy(nk[nkOffName:], name)
}

// putUTF16 writes an ASCII string as UTF-16LE at the absolute offset.
func (b *hiveBuilder) putUTF16(off uint32, s string) {
	for i, c := range []byte(s) {
		b.data[off+uint32(2*i)] = c
		b.data[off+uint32(2*i)+1] = 0
	}
}

func (b *hiveBuilder) image() *img.Image {
	return img.FromBytes(b.data)
}
