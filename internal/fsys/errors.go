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

package fsys

import (
	"errors"
	"fmt"
)

// Kind classifies an operation failure.
type Kind int

const (
	// KindArg is a caller error: a type or number outside the contract.
	KindArg Kind = iota + 1
	// KindMagic is a magic mismatch during open.
	KindMagic
	// KindWalkRange is a walk bound outside [first_block, last_block].
	KindWalkRange
	// KindBlockNum is a block or cell address outside the valid range.
	KindBlockNum
	// KindInodeNum is an inode outside [first_inode, last_inode].
	KindInodeNum
	// KindRead is a short or failed image read.
	KindRead
	// KindInodeCorrupt is an on-disk metadata record that fails validation.
	KindInodeCorrupt
	// KindUnicode is a UTF-16 to UTF-8 conversion failure.
	KindUnicode
	// KindUnsupported marks operations a back-end does not implement.
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindArg:
		return "invalid argument"
	case KindMagic:
		return "invalid magic"
	case KindWalkRange:
		return "invalid walk range"
	case KindBlockNum:
		return "invalid block address"
	case KindInodeNum:
		return "invalid inode address"
	case KindRead:
		return "read error"
	case KindInodeCorrupt:
		return "corrupt metadata record"
	case KindUnicode:
		return "unicode conversion error"
	case KindUnsupported:
		return "unsupported operation"
	default:
		return "unknown error"
	}
}

// Error carries the failure kind, the operation that raised it, and detail.
type Error struct {
	Kind   Kind
	Op     string
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Detail)
}

// E builds an *Error with a formatted detail string.
func E(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err (or anything it wraps) is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// ErrStopped is returned internally when a visitor requests an error stop.
// Walks translate it into a failure result without further wrapping.
var ErrStopped = errors.New("fsys: walk aborted by visitor")
