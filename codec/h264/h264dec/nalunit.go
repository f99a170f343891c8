/*
DESCRIPTION
  nalunit.go provides structures and parsing for network abstraction layer
  units, including extraction of the raw byte sequence payload with
  emulation prevention bytes removed.

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

import "github.com/pkg/errors"

// NAL unit types, as defined by table 7-1 in the specifications.
const (
	NALTypeUnspecified          = 0
	NALTypeNonIDR               = 1
	NALTypePartitionA           = 2
	NALTypePartitionB           = 3
	NALTypePartitionC           = 4
	NALTypeIDR                  = 5
	NALTypeSEI                  = 6
	NALTypeSPS                  = 7
	NALTypePPS                  = 8
	NALTypeAccessUnitDelimiter  = 9
	NALTypeEndOfSequence        = 10
	NALTypeEndOfStream          = 11
	NALTypeFiller               = 12
	NALTypeSPSExtension         = 13
	NALTypePrefixNALUnit        = 14
	NALTypeSubsetSPS            = 15
	NALTypeDepthParameterSet    = 16
	NALTypeSliceLayerExtension  = 20
	NALTypeSliceLayerExtension2 = 21
)

// NALUnit is one parsed network abstraction layer unit: the one byte header
// plus the raw byte sequence payload with emulation prevention bytes
// removed.
type NALUnit struct {
	// forbidden_zero_bit, always 0 in a conforming stream.
	ForbiddenZeroBit uint8

	// nal_ref_idc, non-zero if the unit carries a reference picture or a
	// parameter set.
	RefIDC uint8

	// nal_unit_type, one of the NALType constants.
	Type uint8

	// RBSP is the raw byte sequence payload after emulation prevention byte
	// removal.
	RBSP []byte
}

// Errors returnable by NewNALUnit.
var (
	errNALTooShort       = errors.New("NAL unit too short for its header")
	errNALExtUnsupported = errors.New("NAL unit header extensions are not supported")
)

// NewNALUnit parses the NAL unit in b, which must start at the NAL header
// byte (no start code), and returns it with its RBSP extracted.
func NewNALUnit(b []byte) (*NALUnit, error) {
	if len(b) < 1 {
		return nil, errNALTooShort
	}
	n := &NALUnit{
		ForbiddenZeroBit: b[0] >> 7 & 1,
		RefIDC:           b[0] >> 5 & 3,
		Type:             b[0] & 0x1f,
	}
	if n.Type == NALTypePrefixNALUnit || n.Type == NALTypeSliceLayerExtension ||
		n.Type == NALTypeSliceLayerExtension2 {
		// SVC/MVC/3D header extensions; out of scope for this decoder.
		return nil, errNALExtUnsupported
	}
	n.RBSP = removeEmulationPrevention(b[1:])
	return n, nil
}

// removeEmulationPrevention returns a copy of b with every 0x000003 sequence
// collapsed to 0x0000; the 0x03 is the emulation prevention byte specified
// by section 7.4.1.1.
func removeEmulationPrevention(b []byte) []byte {
	out := make([]byte, 0, len(b))
	var zeros int
	for i := 0; i < len(b); i++ {
		if zeros == 2 && b[i] == 0x03 {
			// Drop the emulation prevention byte. A byte following it is
			// payload even when zero.
			zeros = 0
			continue
		}
		if b[i] == 0x00 {
			zeros++
		} else {
			zeros = 0
		}
		out = append(out, b[i])
	}
	return out
}
