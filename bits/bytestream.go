/*
DESCRIPTION
  bytestream.go provides a seekable byte stream cursor with bit-level reads
  and absolute offset tracking, for parsers that address a file by byte
  offset as well as consuming it sequentially.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/


package bits

import (
	"io"

	"github.com/pkg/errors"
)

// ByteStream is a cursor over an io.ReadSeeker with big-endian bit and byte
// reads and absolute offset tracking. A failed read returns a zero value and
// sets a sticky error retrievable with Err; this lets a parser issue a series
// of reads and check for failure once.
//
// All reads are buffered; GotoOffset invalidates the buffer only when the
// target is outside it.
type ByteStream struct {
	r    io.ReadSeeker
	size int64

	buf   []byte
	start int64 // absolute offset of buf[0]
	pos   int   // byte position within buf
	bit   int   // bit position within buf[pos], 0..7 (0 = aligned)

	err error
}

// byteStreamBufSize is the size of the internal read buffer.
const byteStreamBufSize = 1 << 16

// NewByteStream returns a ByteStream over r. The source size is determined
// by seeking to the end and back.
func NewByteStream(r io.ReadSeeker) (*ByteStream, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, errors.Wrap(err, "could not seek to end of source")
	}
	_, err = r.Seek(0, io.SeekStart)
	if err != nil {
		return nil, errors.Wrap(err, "could not seek to start of source")
	}
	return &ByteStream{r: r, size: size, buf: make([]byte, 0, byteStreamBufSize)}, nil
}

// Err returns the sticky error, or nil if all reads so far have succeeded.
func (s *ByteStream) Err() error { return s.err }

// ClearErr clears the sticky error so that parsing may resume after a
// recovery seek.
func (s *ByteStream) ClearErr() { s.err = nil }

// Size returns the total size of the source in bytes.
func (s *ByteStream) Size() int64 { return s.size }

// ByteOffset returns the absolute byte offset of the cursor. A partially
// read byte counts as consumed.
func (s *ByteStream) ByteOffset() int64 {
	off := s.start + int64(s.pos)
	if s.bit != 0 {
		off++
	}
	return off
}

// BitOffset returns the absolute bit offset of the cursor.
func (s *ByteStream) BitOffset() int64 {
	return (s.start+int64(s.pos))*8 + int64(s.bit)
}

// Aligned returns true if the cursor lies on a byte boundary.
func (s *ByteStream) Aligned() bool { return s.bit == 0 }

// fill ensures at least one unread byte is buffered.
func (s *ByteStream) fill() bool {
	if s.pos < len(s.buf) {
		return true
	}
	s.start += int64(len(s.buf))
	s.pos = 0
	s.buf = s.buf[:cap(s.buf)]
	n, err := s.r.Read(s.buf)
	if n == 0 {
		s.buf = s.buf[:0]
		if err == nil || err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		s.err = errors.Wrap(err, "read past end of stream")
		return false
	}
	s.buf = s.buf[:n]
	return true
}

// readByte returns the next byte, ignoring bit alignment.
func (s *ByteStream) readByte() byte {
	if s.err != nil || !s.fill() {
		return 0
	}
	b := s.buf[s.pos]
	s.pos++
	return b
}

// ReadBit reads a single bit.
func (s *ByteStream) ReadBit() uint8 {
	if s.err != nil {
		return 0
	}
	if !s.fill() {
		return 0
	}
	b := s.buf[s.pos] >> uint(7-s.bit) & 1
	s.bit++
	if s.bit == 8 {
		s.bit = 0
		s.pos++
	}
	return b
}

// ReadBits reads n bits, n <= 32, returning them in the least-significant
// part of a uint32. Reads are big-endian.
func (s *ByteStream) ReadBits(n int) uint32 {
	return uint32(s.ReadBits64(n))
}

// ReadBits64 reads n bits, n <= 64, returning them in the least-significant
// part of a uint64. Reads are big-endian.
func (s *ByteStream) ReadBits64(n int) uint64 {
	var v uint64
	if s.bit == 0 {
		for ; n >= 8; n -= 8 {
			v = v<<8 | uint64(s.readByte())
		}
	}
	for ; n > 0; n-- {
		v = v<<1 | uint64(s.ReadBit())
	}
	return v
}

// NextBits provides the next n bits, n <= 32, without advancing the cursor.
// A peek past the end of the stream returns zero and sets the sticky error,
// like a read.
func (s *ByteStream) NextBits(n int) uint32 {
	if s.err != nil {
		return 0
	}
	abs := s.BitOffset()
	v := s.ReadBits(n)
	if s.err != nil {
		return 0
	}
	s.GotoOffset(abs / 8)
	for i := int64(0); i < abs%8; i++ {
		s.ReadBit()
	}
	return v
}

// ReadBytes reads n bytes into a newly allocated slice. The cursor must be
// byte aligned.
func (s *ByteStream) ReadBytes(n int) []byte {
	if s.err != nil {
		return nil
	}
	if s.bit != 0 {
		s.err = errMisaligned
		return nil
	}
	p := make([]byte, n)
	for i := 0; i < n; i++ {
		p[i] = s.readByte()
	}
	if s.err != nil {
		return nil
	}
	return p
}

var errMisaligned = errors.New("cursor is not byte aligned")

// SkipBits advances the cursor by n bits without interpreting them.
func (s *ByteStream) SkipBits(n int64) error {
	if s.err != nil {
		return s.err
	}
	if s.bit != 0 || n%8 != 0 {
		for ; n > 0 && s.err == nil; n-- {
			s.ReadBit()
		}
		return s.err
	}
	return s.GotoOffset(s.start + int64(s.pos) + n/8)
}

// RewindBits moves the cursor backward by n bits.
func (s *ByteStream) RewindBits(n int64) error {
	if s.err != nil {
		return s.err
	}
	abs := s.BitOffset() - n
	if abs < 0 {
		abs = 0
	}
	if err := s.GotoOffset(abs / 8); err != nil {
		return err
	}
	for i := int64(0); i < abs%8; i++ {
		s.ReadBit()
	}
	return s.err
}

// GotoOffset positions the cursor at the given absolute byte offset.
// Seeking within the current buffer does not touch the source.
func (s *ByteStream) GotoOffset(off int64) error {
	if off < 0 {
		off = 0
	}
	s.bit = 0
	if off >= s.start && off <= s.start+int64(len(s.buf)) {
		s.pos = int(off - s.start)
		return nil
	}
	if _, err := s.r.Seek(off, io.SeekStart); err != nil {
		s.err = errors.Wrapf(err, "could not seek to offset %d", off)
		return s.err
	}
	s.start = off
	s.pos = 0
	s.buf = s.buf[:0]
	return nil
}
