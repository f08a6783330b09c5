package wire

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/boschglobal/dse.modelc-sub000/internal/xerr"
)

// Identifiers for the two top-level message kinds (§4.2). Each is exactly
// 4 ASCII bytes, written immediately after the stream's size prefix.
const (
	IdentSBCH = "SBCH" // per-channel message
	IdentSBNO = "SBNO" // notify, cross-channel
)

// bw is a tiny little-endian binary writer used for the outer SBCH/SBNO
// framing; the embedded (UID, value) payload is msgpack (see payload.go),
// but the envelope around it is a hand-rolled length-prefixed layout, same
// spirit as the teacher's transport.ObjHdr/transport.Msg framing.
type bw struct {
	buf []byte
}

func (w *bw) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *bw) f64(v float64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, math.Float64bits(v))
}
func (w *bw) byte(v byte) { w.buf = append(w.buf, v) }
func (w *bw) str(s string) {
	w.u32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}
func (w *bw) bytes(b []byte) {
	w.u32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}
func (w *bw) bool(b bool) {
	if b {
		w.byte(1)
	} else {
		w.byte(0)
	}
}

type br struct {
	buf []byte
	off int
	err error
}

func (r *br) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *br) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.off+n > len(r.buf) {
		r.fail(fmt.Errorf("wire: short read: need %d more bytes", n))
		return false
	}
	return true
}

func (r *br) u32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *br) f64() float64 {
	if !r.need(8) {
		return 0
	}
	bits := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return math.Float64frombits(bits)
}

func (r *br) byte() byte {
	if !r.need(1) {
		return 0
	}
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *br) bool() bool { return r.byte() != 0 }

func (r *br) str() string {
	n := int(r.u32())
	if !r.need(n) {
		return ""
	}
	s := string(r.buf[r.off : r.off+n])
	r.off += n
	return s
}

func (r *br) bytes() []byte {
	n := int(r.u32())
	if !r.need(n) {
		return nil
	}
	b := append([]byte(nil), r.buf[r.off:r.off+n]...)
	r.off += n
	return b
}

// StreamWriter writes a continuous length-prefixed sequence of SBCH/SBNO
// frames to an underlying io.Writer (§4.2: "sent as a continuous
// length-prefixed stream").
type StreamWriter struct {
	w io.Writer
}

func NewStreamWriter(w io.Writer) *StreamWriter { return &StreamWriter{w: w} }

func (sw *StreamWriter) writeFrame(ident string, body []byte) error {
	hdr := make([]byte, 4)
	binary.LittleEndian.PutUint32(hdr, uint32(len(ident)+len(body)))
	if _, err := sw.w.Write(hdr); err != nil {
		return err
	}
	if _, err := io.WriteString(sw.w, ident); err != nil {
		return err
	}
	_, err := sw.w.Write(body)
	return err
}

// StreamReader decodes a continuous length-prefixed sequence of frames,
// dispatching by the 4-byte identifier. A missing identifier or zero-size
// prefix aborts the stream (§4.2).
type StreamReader struct {
	r *bufio.Reader
}

func NewStreamReader(r io.Reader) *StreamReader { return &StreamReader{r: bufio.NewReader(r)} }

// ReadFrame returns the next frame's identifier and raw body, or an error.
// io.EOF signals a clean stream close between messages.
func (sr *StreamReader) ReadFrame() (ident string, body []byte, err error) {
	var hdr [4]byte
	if _, err = io.ReadFull(sr.r, hdr[:]); err != nil {
		return "", nil, err
	}
	size := binary.LittleEndian.Uint32(hdr[:])
	if size == 0 {
		return "", nil, fmt.Errorf("%w: zero-size frame prefix", xerr.ErrBadSize)
	}
	if size < 4 {
		return "", nil, fmt.Errorf("%w: frame size %d too small for identifier", xerr.ErrBadSize, size)
	}
	identb := make([]byte, 4)
	if _, err = io.ReadFull(sr.r, identb); err != nil {
		return "", nil, err
	}
	ident = string(identb)
	if ident != IdentSBCH && ident != IdentSBNO {
		return "", nil, fmt.Errorf("%w: %q", xerr.ErrBadIdentity, ident)
	}
	body = make([]byte, size-4)
	if _, err = io.ReadFull(sr.r, body); err != nil {
		return "", nil, err
	}
	return ident, body, nil
}
