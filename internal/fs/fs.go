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

// Package fs dispatches an (image, offset, declared type) triple to the
// back-end that can open it.
package fs

import (
	"github.com/fskope/fskope/internal/fsys"
	"github.com/fskope/fskope/internal/img"
	"github.com/fskope/fskope/internal/logger"
	"github.com/fskope/fskope/internal/regf"
	"github.com/fskope/fskope/internal/xtaf"
)

// Open produces a handle for the file system of the declared type found at
// offset within the image. log may be nil.
func Open(im *img.Image, offset int64, typ fsys.Type, log *logger.Logger) (fsys.FileSystem, error) {
	switch typ {
	case fsys.TypeFAT12, fsys.TypeFAT16, fsys.TypeFAT32, fsys.TypeFATAuto:
		return xtaf.Open(im, offset, typ, log)
	case fsys.TypeReg:
		return regf.Open(im, offset, log)
	default:
		return nil, fsys.E(fsys.KindUnsupported, "fs_open", "unknown file system type")
	}
}
