package extab

import "encoding/binary"

// stream reads fixed-width big-endian values from a byte buffer, tracking a
// current offset. Peek variants read without advancing; they back the
// control-flow decisions that depend on unconsumed bytes (the PC-range
// terminator and the Specification count). Every read is bounds-checked:
// running off the end of the table surfaces ErrUnexpectedEOF instead of
// reading out of bounds.
type stream struct {
	data []byte
	pos  int
}

func newStream(data []byte) *stream {
	return &stream{data: data}
}

// Position returns the current read offset.
func (s *stream) Position() int { return s.pos }

// Remaining returns bytes left to read.
func (s *stream) Remaining() int { return len(s.data) - s.pos }

// Skip advances the cursor n bytes.
func (s *stream) Skip(n int) error {
	if s.pos+n > len(s.data) {
		return ErrUnexpectedEOF
	}
	s.pos += n
	return nil
}

// ReadByte reads a single byte.
func (s *stream) ReadByte() (byte, error) {
	if s.pos >= len(s.data) {
		return 0, ErrUnexpectedEOF
	}
	b := s.data[s.pos]
	s.pos++
	return b, nil
}

// ReadBytes reads n bytes into a new slice. The slice is a copy; records own
// their payload bytes independently of the input buffer.
func (s *stream) ReadBytes(n int) ([]byte, error) {
	if s.pos+n > len(s.data) {
		return nil, ErrUnexpectedEOF
	}
	out := make([]byte, n)
	copy(out, s.data[s.pos:s.pos+n])
	s.pos += n
	return out, nil
}

// ReadUint16 reads a big-endian uint16.
func (s *stream) ReadUint16() (uint16, error) {
	if s.pos+2 > len(s.data) {
		return 0, ErrUnexpectedEOF
	}
	v := binary.BigEndian.Uint16(s.data[s.pos:])
	s.pos += 2
	return v, nil
}

// ReadUint32 reads a big-endian uint32.
func (s *stream) ReadUint32() (uint32, error) {
	if s.pos+4 > len(s.data) {
		return 0, ErrUnexpectedEOF
	}
	v := binary.BigEndian.Uint32(s.data[s.pos:])
	s.pos += 4
	return v, nil
}

// PeekUint16 reads a big-endian uint16 without advancing.
func (s *stream) PeekUint16() (uint16, error) {
	if s.pos+2 > len(s.data) {
		return 0, ErrUnexpectedEOF
	}
	return binary.BigEndian.Uint16(s.data[s.pos:]), nil
}

// PeekUint32 reads a big-endian uint32 without advancing.
func (s *stream) PeekUint32() (uint32, error) {
	if s.pos+4 > len(s.data) {
		return 0, ErrUnexpectedEOF
	}
	return binary.BigEndian.Uint32(s.data[s.pos:]), nil
}
