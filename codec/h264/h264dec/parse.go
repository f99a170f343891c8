/*
DESCRIPTION
  parse.go provides parsing processes for syntax elements of different
  descriptors specified in 7.2 of ITU-T H.264.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/


package h264dec

import (
	"github.com/pkg/errors"

	"github.com/ausocean/mediaprobe/bits"
)

// fieldReader provides methods for reading bool and int fields from a
// bits.BitReader with a sticky error that may be checked after a series of
// parsing read calls.
type fieldReader struct {
	e  *error
	br *bits.BitReader
}

// newFieldReader returns a new fieldReader.
func newFieldReader(br *bits.BitReader) fieldReader {
	var err error
	return fieldReader{br: br, e: &err}
}

// readBits returns an int from reading n bits from br. If we have an error
// already, we do not continue with the read.
func (r fieldReader) readBits(n int) uint64 {
	if *r.e != nil {
		return 0
	}
	var b uint64
	b, *r.e = r.br.ReadBits(n)
	return b
}

// readFlag reads a single bit as a bool.
func (r fieldReader) readFlag() bool {
	return r.readBits(1) == 1
}

// readUe parses a syntax element of ue(v) descriptor, i.e. an unsigned
// integer Exp-Golomb-coded element using the method specified in section 9.1
// of ITU-T H.264. The read does not happen if the fieldReader has a non-nil
// error.
func (r fieldReader) readUe() uint64 {
	if *r.e != nil {
		return 0
	}
	var i uint64
	i, *r.e = readUe(r.br)
	return i
}

// readSe parses a syntax element with descriptor se(v), i.e. a signed
// integer Exp-Golomb-coded syntax element, using the method described in
// sections 9.1 and 9.1.1, and returns as int.
func (r fieldReader) readSe() int {
	if *r.e != nil {
		return 0
	}
	var i int
	i, *r.e = readSe(r.br)
	return i
}

// err returns the fieldReader's sticky error.
func (r fieldReader) err() error {
	return *r.e
}

// readUe parses a syntax element of ue(v) descriptor, i.e. an unsigned
// integer Exp-Golomb-coded element using the method specified in section 9.1
// of ITU-T H.264: count leading zero bits, then codeNum = 2^n - 1 + the next
// n bits.
func readUe(r *bits.BitReader) (uint64, error) {
	var nZeros int
	for {
		b, err := r.ReadBits(1)
		if err != nil {
			return 0, err
		}
		if b != 0 {
			break
		}
		nZeros++
		if nZeros > 32 {
			return 0, errUeTooLong
		}
	}
	rem, err := r.ReadBits(nZeros)
	if err != nil {
		return 0, err
	}
	return (1 << uint(nZeros)) - 1 + rem, nil
}

var errUeTooLong = errors.New("invalid ue(v) code length")

// readSe parses a syntax element with descriptor se(v), i.e. a signed
// integer Exp-Golomb-coded syntax element, using the mapping of section
// 9.1.1: codeNum k maps to (-1)^(k+1) * ceil(k/2).
func readSe(r *bits.BitReader) (int, error) {
	codeNum, err := readUe(r)
	if err != nil {
		return 0, errors.Wrap(err, "error reading ue(v)")
	}
	v := int(codeNum+1) / 2
	if codeNum%2 == 0 {
		v = -v
	}
	return v, nil
}

// readTe parses a syntax element of te(v) descriptor, i.e. truncated
// Exp-Golomb-coded syntax element, per section 9.1: a single inverted bit
// when the range bound x is 1, ue(v) otherwise.
func readTe(r *bits.BitReader, x uint) (uint64, error) {
	if x > 1 {
		return readUe(r)
	}
	if x != 1 {
		return 0, errReadTeBadX
	}
	b, err := r.ReadBits(1)
	if err != nil {
		return 0, errors.Wrap(err, "could not read bit")
	}
	return 1 - b, nil
}

var errReadTeBadX = errors.New("x must be more than or equal to 1")

// moreRBSPData returns true if there is more data in the raw byte sequence
// payload, i.e. the stop bit and trailing zeros have not been reached.
func moreRBSPData(br *bits.BitReader) bool {
	b, err := br.PeekBits(1)
	if err != nil {
		return false
	}
	if b == 0 {
		return true
	}

	// A set bit is only the stop bit if all remaining bits of the byte are
	// zero and no further byte follows.
	rem := br.Off()
	if rem == 0 {
		rem = 8
	}
	b, err = br.PeekBits(rem)
	if err != nil {
		return false
	}
	if b != 1<<uint(rem-1) {
		return true
	}
	_, err = br.PeekBits(rem + 1)
	return err == nil
}
