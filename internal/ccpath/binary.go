package ccpath

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// BinaryWriter produces the little-endian, length-prefixed framed format
// used by every on-disk cache file (fingerprints, internal dep-info).
type BinaryWriter struct {
	buf []byte
}

// NewBinaryWriter returns a writer with capacity pre-reserved.
func NewBinaryWriter(capacity int) *BinaryWriter {
	return &BinaryWriter{buf: make([]byte, 0, capacity)}
}

// Bytes returns the accumulated buffer.
func (w *BinaryWriter) Bytes() []byte { return w.buf }

// WriteU8 appends a single byte.
func (w *BinaryWriter) WriteU8(v uint8) *BinaryWriter {
	w.buf = append(w.buf, v)
	return w
}

// WriteU32 appends a little-endian uint32.
func (w *BinaryWriter) WriteU32(v uint32) *BinaryWriter {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
	return w
}

// WriteU64 appends a little-endian uint64.
func (w *BinaryWriter) WriteU64(v uint64) *BinaryWriter {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
	return w
}

// WriteBytes writes a u64 length prefix followed by the raw bytes.
func (w *BinaryWriter) WriteBytes(b []byte) *BinaryWriter {
	w.WriteU64(uint64(len(b)))
	w.buf = append(w.buf, b...)
	return w
}

// WritePath writes a path using the OS-neutral bytes encoding (raw bytes
// on Unix; the platform encoding is UTF-8 on every platform Go targets,
// so this is simply the string's bytes).
func (w *BinaryWriter) WritePath(p string) *BinaryWriter {
	return w.WriteBytes([]byte(p))
}

// BinaryReader consumes the format produced by BinaryWriter. All read
// methods return an error rather than panicking on malformed/truncated
// input, since the contract is "rebuild on deserialization failure," not
// "crash on deserialization failure."
type BinaryReader struct {
	buf []byte
	pos int
}

// NewBinaryReader wraps b for reading.
func NewBinaryReader(b []byte) *BinaryReader {
	return &BinaryReader{buf: b}
}

var errTruncated = errors.New("truncated binary cache data")

func (r *BinaryReader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return errTruncated
	}
	return nil
}

// ReadU8 reads a single byte.
func (r *BinaryReader) ReadU8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

// ReadU32 reads a little-endian uint32.
func (r *BinaryReader) ReadU32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadU64 reads a little-endian uint64.
func (r *BinaryReader) ReadU64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

// ReadBytes reads a u64-length-prefixed byte slice.
func (r *BinaryReader) ReadBytes() ([]byte, error) {
	n, err := r.ReadU64()
	if err != nil {
		return nil, err
	}
	if err := r.need(int(n)); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, r.buf[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return b, nil
}

// ReadPath reads a path written by WritePath.
func (r *BinaryReader) ReadPath() (string, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Remaining reports whether unread bytes remain.
func (r *BinaryReader) Remaining() bool { return r.pos < len(r.buf) }
