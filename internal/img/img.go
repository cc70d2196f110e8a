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

// Package img provides positioned byte reads over a disk image. An Image
// wraps any io.ReaderAt together with its total size; file- and mmap-backed
// constructors are provided for on-disk images and raw devices.
package img

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// Image is a random-access view of a disk image. All reads are absolute;
// file-system back-ends add their own partition offset before calling ReadAt.
type Image struct {
	r      io.ReaderAt
	size   int64
	closer io.Closer
}

// New wraps an existing reader. closer may be nil.
func New(r io.ReaderAt, size int64, closer io.Closer) *Image {
	return &Image{r: r, size: size, closer: closer}
}

// FromBytes builds an in-memory image, mainly for tests.
func FromBytes(data []byte) *Image {
	return &Image{r: bytes.NewReader(data), size: int64(len(data))}
}

// OpenFile opens a regular image file for positioned reads.
func OpenFile(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("img: open %q: %w", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("img: stat %q: %w", path, err)
	}
	return &Image{r: f, size: fi.Size(), closer: f}, nil
}

// Size returns the total image size in bytes.
func (im *Image) Size() int64 {
	return im.size
}

// ReadAt fills p from the image starting at off. Unlike io.ReaderAt, a short
// read is an error: callers parse fixed-size on-disk structures and must not
// see partial buffers.
func (im *Image) ReadAt(p []byte, off int64) error {
	if off < 0 || off+int64(len(p)) > im.size {
		return fmt.Errorf("img: read [%d, %d) outside image of %d bytes",
			off, off+int64(len(p)), im.size)
	}
	n, err := im.r.ReadAt(p, off)
	if err != nil && err != io.EOF {
		return fmt.Errorf("img: read at %d: %w", off, err)
	}
	if n != len(p) {
		return fmt.Errorf("img: short read at %d: %d of %d bytes", off, n, len(p))
	}
	return nil
}

// Close releases the underlying file or mapping, when there is one.
func (im *Image) Close() error {
	if im.closer != nil {
		return im.closer.Close()
	}
	return nil
}
