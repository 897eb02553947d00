// Package byteio provides little-endian scalar and length-prefixed string
// readers shared by every record decoder in this module.
//
// Every method fails with a corrupt-file error on short read, matching the
// behavior the compound-file and record decoders rely on throughout.
package byteio

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/cfbkit/oleobj"
	"golang.org/x/text/encoding/charmap"
)

// Reader sequentially decodes little-endian scalars and the handful of
// ANSI/UTF-16LE string encodings used by OLE record families.
type Reader struct {
	r   io.Reader
	pos int
}

// NewReader wraps r for sequential little-endian decoding.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// NewReaderFromBytes is a convenience constructor over an in-memory buffer.
func NewReaderFromBytes(b []byte) *Reader {
	return NewReader(bytes.NewReader(b))
}

// Pos returns the number of bytes consumed so far.
func (r *Reader) Pos() int { return r.pos }

func (r *Reader) corrupt(err error, what string) error {
	return oleobj.Errf(oleobj.CorruptFile, err, "short read: %s", what)
}

// Full reads exactly n bytes, failing with corrupt-file on short read.
func (r *Reader) Full(n int) ([]byte, error) {
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return nil, r.corrupt(err, "full read")
	}
	r.pos += n
	return buf, nil
}

// Skip discards n bytes.
func (r *Reader) Skip(n int) error {
	_, err := r.Full(n)
	return err
}

// U8 reads an unsigned byte.
func (r *Reader) U8() (byte, error) {
	b, err := r.Full(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// U16 reads a little-endian unsigned 16-bit integer.
func (r *Reader) U16() (uint16, error) {
	b, err := r.Full(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// I16 reads a little-endian signed 16-bit integer.
func (r *Reader) I16() (int16, error) {
	v, err := r.U16()
	return int16(v), err
}

// U32 reads a little-endian unsigned 32-bit integer.
func (r *Reader) U32() (uint32, error) {
	b, err := r.Full(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// I32 reads a little-endian signed 32-bit integer.
func (r *Reader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

// U64 reads a little-endian unsigned 64-bit integer.
func (r *Reader) U64() (uint64, error) {
	b, err := r.Full(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// I64 reads a little-endian signed 64-bit integer.
func (r *Reader) I64() (int64, error) {
	v, err := r.U64()
	return int64(v), err
}

// F64 reads an IEEE-754 double via a 64-bit bit-cast.
func (r *Reader) F64() (float64, error) {
	v, err := r.U64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// AnsiNullTerminated reads bytes until the first 0x00 (which is consumed
// but not returned) and decodes them with the single-byte code page used
// for OLE record strings. Unmapped bytes are treated as Latin-1, matching
// the documented non-Windows-host fallback.
func (r *Reader) AnsiNullTerminated() (string, error) {
	var raw []byte
	for {
		b, err := r.U8()
		if err != nil {
			return "", err
		}
		if b == 0 {
			break
		}
		raw = append(raw, b)
	}
	return decodeAnsi(raw), nil
}

// AnsiNullTerminatedSkippingLeadingNuls skips any 0x00 padding bytes before
// the string (some Package blob producers insert them), then reads the
// null-terminated ANSI string that follows.
func (r *Reader) AnsiNullTerminatedSkippingLeadingNuls() (string, error) {
	var raw []byte
	skipping := true
	for {
		b, err := r.U8()
		if err != nil {
			return "", err
		}
		if skipping && b == 0 {
			continue
		}
		skipping = false
		if b == 0 {
			break
		}
		raw = append(raw, b)
	}
	return decodeAnsi(raw), nil
}

// Ansi1Prefixed reads one length byte N followed by N bytes of ANSI payload.
func (r *Reader) Ansi1Prefixed() (string, error) {
	n, err := r.U8()
	if err != nil {
		return "", err
	}
	raw, err := r.Full(int(n))
	if err != nil {
		return "", err
	}
	return decodeAnsi(trimTrailingNul(raw)), nil
}

// Ansi4Prefixed reads a 32-bit length N followed by N bytes of ANSI payload.
func (r *Reader) Ansi4Prefixed() (string, error) {
	n, err := r.U32()
	if err != nil {
		return "", err
	}
	raw, err := r.Full(int(n))
	if err != nil {
		return "", err
	}
	return decodeAnsi(trimTrailingNul(raw)), nil
}

// UTF16LE4Prefixed reads a 32-bit length N (characters) followed by 2*N
// bytes of UTF-16LE payload.
func (r *Reader) UTF16LE4Prefixed() (string, error) {
	n, err := r.U32()
	if err != nil {
		return "", err
	}
	raw, err := r.Full(int(n) * 2)
	if err != nil {
		return "", err
	}
	return DecodeUTF16LE(raw), nil
}

func trimTrailingNul(b []byte) []byte {
	for len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return b
}

// decodeAnsi decodes a single-byte ANSI string. Bytes that Windows-1252
// cannot map decode as Latin-1, which is the documented fallback for a
// non-Windows host.
func decodeAnsi(raw []byte) string {
	out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		out = raw
	}
	return string(out)
}

// DecodeUTF16LE decodes a little-endian UTF-16 byte slice, trimming a
// trailing NUL terminator if present.
func DecodeUTF16LE(b []byte) string {
	out, err := decodeUTF16LEBytes(b)
	if err != nil {
		out = nil
	}
	for len(out) > 0 && out[len(out)-1] == 0 {
		out = out[:len(out)-1]
	}
	return string(out)
}
