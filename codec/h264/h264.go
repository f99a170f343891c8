/*
DESCRIPTION
  h264.go provides utilities for splitting H.264 elementary streams into
  NAL units: Annex B byte streams with start codes, and length prefixed
  sample data as stored in ISO base media files.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/


// Package h264 provides H.264 elementary stream utilities: NAL unit
// boundary detection for Annex B and length prefixed formats, feeding the
// h264dec decoder.
package h264

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// NALType returns the NAL unit type of the NAL unit starting at b[0] (the
// header byte, no start code).
func NALType(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, errNotEnoughBytes
	}
	return int(b[0] & 0x1f), nil
}

var errNotEnoughBytes = errors.New("not enough bytes to read")

// SplitAnnexB splits an Annex B byte stream into its NAL units, removing
// the 3 or 4 byte start codes. The returned slices alias b.
func SplitAnnexB(b []byte) [][]byte {
	var units [][]byte
	start := -1
	zeros := 0
	for i := 0; i < len(b); i++ {
		switch {
		case b[i] == 0x00:
			zeros++
		case b[i] == 0x01 && zeros >= 2:
			if start >= 0 {
				end := i - zeros
				if end > start {
					units = append(units, b[start:end])
				}
			}
			start = i + 1
			zeros = 0
		default:
			zeros = 0
		}
	}
	if start >= 0 && start < len(b) {
		units = append(units, b[start:])
	}
	return units
}

// SplitLengthPrefixed splits the length prefixed sample data of an ISO
// base media file into NAL units. lengthSize is the NAL length field size
// from the decoder configuration record, 1, 2 or 4 bytes. The returned
// slices alias b.
func SplitLengthPrefixed(b []byte, lengthSize int) ([][]byte, error) {
	switch lengthSize {
	case 1, 2, 4:
	default:
		return nil, errors.Errorf("invalid NAL length size %d", lengthSize)
	}

	var units [][]byte
	for len(b) > 0 {
		if len(b) < lengthSize {
			return nil, errors.New("truncated NAL length field")
		}
		var n int
		switch lengthSize {
		case 1:
			n = int(b[0])
		case 2:
			n = int(binary.BigEndian.Uint16(b))
		case 4:
			n = int(binary.BigEndian.Uint32(b))
		}
		b = b[lengthSize:]
		if n > len(b) {
			return nil, errors.Errorf("NAL length %d exceeds remaining sample data", n)
		}
		units = append(units, b[:n])
		b = b[n:]
	}
	return units, nil
}
