// Package ncodec implements the network codec (§4.7): typed CAN/PDU
// messages framed over a growable byte-buffer stream bound 1:1 to a
// binary signal, with echo suppression and pluggable trace hooks.
// Grounded on the teacher's memsys.SGL growable-buffer style (a stream
// that grows geometrically and supports seek/reset) adapted from
// aistore's object-transfer buffers to one codec-per-binary-signal.
package ncodec

import (
	"fmt"

	"github.com/boschglobal/dse.modelc-sub000/internal/xerr"
)

// Whence selects the origin for Stream.Seek (§4.7).
type Whence int

const (
	SeekSet Whence = iota
	SeekEnd
	SeekReset // additionally frees the underlying buffer
)

// Stream is the codec's backing store: bound 1:1 to a binary signal's
// growable buffer (internal/signal.Value.Bin).
type Stream struct {
	buf []byte
	pos int
}

func NewStream() *Stream { return &Stream{} }

// Bind points the stream directly at an existing buffer (the owning
// signal's Bin slice), so reads see it without a copy. Write appends and
// may reallocate; written bytes are then reachable only through Bytes().
func (s *Stream) Bind(buf []byte) { s.buf = buf; s.pos = 0 }

func (s *Stream) Bytes() []byte { return s.buf }

func (s *Stream) Tell() int { return s.pos }

func (s *Stream) Seek(offset int, whence Whence) (int, error) {
	switch whence {
	case SeekSet:
		s.pos = offset
	case SeekEnd:
		s.pos = len(s.buf) + offset
	case SeekReset:
		s.buf = nil
		s.pos = 0
		return 0, nil
	default:
		return s.pos, fmt.Errorf("ncodec: unknown whence %d", whence)
	}
	if s.pos < 0 {
		s.pos = 0
	}
	return s.pos, nil
}

// Read copies up to len(dst) bytes starting at the current position,
// returning the number of bytes copied and xerr.ErrNoMsg once the
// stream is exhausted (the expected end-of-stream sentinel, §7).
func (s *Stream) Read(dst []byte) (int, error) {
	if s.pos >= len(s.buf) {
		return 0, xerr.ErrNoMsg
	}
	n := copy(dst, s.buf[s.pos:])
	s.pos += n
	return n, nil
}

// Write appends src at the current position, growing the buffer as
// needed (truncating any bytes previously past this position — writes
// are not inserts).
func (s *Stream) Write(src []byte) (int, error) {
	if s.pos > len(s.buf) {
		grown := make([]byte, s.pos)
		copy(grown, s.buf)
		s.buf = grown
	}
	s.buf = append(s.buf[:s.pos], src...)
	s.pos += len(src)
	return len(src), nil
}
