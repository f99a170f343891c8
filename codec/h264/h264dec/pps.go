/*
DESCRIPTION
  pps.go provides parsing of picture parameter set raw byte sequence
  payloads, as specified in section 7.3.2.2 of ITU-T H.264.

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
	"bytes"

	"github.com/pkg/errors"

	"github.com/ausocean/mediaprobe/bits"
)

// PPS describes a picture parameter set as defined by section 7.3.2.2 of
// the specifications. For semantics see section 7.4.2.2.
type PPS struct {
	// pic_parameter_set_id and the seq_parameter_set_id it references.
	ID, SPSID uint64

	// entropy_coding_mode_flag selects CAVLC (0) or CABAC (1) for slice data.
	EntropyCodingMode int

	// bottom_field_pic_order_in_frame_present_flag per clause 7.4.2.2.
	BottomFieldPicOrderInFramePresent bool

	// num_slice_groups_minus1; slice group maps beyond one group are parsed
	// past but not retained, FMO is not used by this decoder.
	NumSliceGroupsMinus1 int

	// num_ref_idx_lX_default_active_minus1 defaults for the slice header.
	NumRefIdxL0DefaultActiveMinus1 int
	NumRefIdxL1DefaultActiveMinus1 int

	// weighted_pred_flag and weighted_bipred_idc.
	WeightedPred   bool
	WeightedBipred int

	// pic_init_qp_minus26 and pic_init_qs_minus26 seed the slice
	// quantisation parameters (eq 7-30).
	PicInitQpMinus26 int
	PicInitQsMinus26 int

	// chroma_qp_index_offset is added to QPY when addressing the chroma QP
	// mapping table for Cb; second_chroma_qp_index_offset for Cr.
	ChromaQpIndexOffset       int
	SecondChromaQpIndexOffset int

	// deblocking_filter_control_present_flag per clause 7.4.2.2.
	DeblockingFilterControlPresent bool

	// constrained_intra_pred_flag restricts intra prediction to intra coded
	// neighbours.
	ConstrainedIntraPred bool

	// redundant_pic_cnt_present_flag per clause 7.4.2.2.
	RedundantPicCntPresent bool

	// transform_8x8_mode_flag enables the 8x8 transform for macroblocks
	// that signal it.
	Transform8x8Mode bool

	// pic_scaling_matrix_present_flag and the picture level scaling lists,
	// overriding the sequence level lists when present.
	PicScalingMatrixPresent bool
	ScalingList4x4          [6][16]int
	ScalingList8x8          [6][64]int
}

// NewPPS parses a picture parameter set raw byte sequence payload following
// the syntax structure specified in section 7.3.2.2, and returns as a new
// PPS. The SPS referenced by the payload is needed for the scaling list
// count.
func NewPPS(rbsp []byte, sps *SPS) (*PPS, error) {
	pps := PPS{}
	br := bits.NewBitReader(bytes.NewReader(rbsp))
	r := newFieldReader(br)

	pps.ID = r.readUe()
	pps.SPSID = r.readUe()
	pps.EntropyCodingMode = int(r.readBits(1))
	pps.BottomFieldPicOrderInFramePresent = r.readFlag()
	pps.NumSliceGroupsMinus1 = int(r.readUe())

	if pps.NumSliceGroupsMinus1 > 0 {
		if err := skipSliceGroupMap(r, pps.NumSliceGroupsMinus1); err != nil {
			return nil, errors.Wrap(err, "could not parse slice group map")
		}
	}

	pps.NumRefIdxL0DefaultActiveMinus1 = int(r.readUe())
	pps.NumRefIdxL1DefaultActiveMinus1 = int(r.readUe())
	pps.WeightedPred = r.readFlag()
	pps.WeightedBipred = int(r.readBits(2))
	pps.PicInitQpMinus26 = r.readSe()
	pps.PicInitQsMinus26 = r.readSe()
	pps.ChromaQpIndexOffset = r.readSe()
	pps.DeblockingFilterControlPresent = r.readFlag()
	pps.ConstrainedIntraPred = r.readFlag()
	pps.RedundantPicCntPresent = r.readFlag()
	pps.SecondChromaQpIndexOffset = pps.ChromaQpIndexOffset

	if r.err() == nil && moreRBSPData(br) {
		pps.Transform8x8Mode = r.readBits(1) == 1
		pps.PicScalingMatrixPresent = r.readFlag()
		if pps.PicScalingMatrixPresent {
			n := 6
			if pps.Transform8x8Mode {
				if sps != nil && sps.ChromaFormatIDC == chroma444 {
					n += 6
				} else {
					n += 2
				}
			}
			// Picture lists land in a scratch SPS so sequence lists are
			// not clobbered, then move to the PPS.
			var scratch SPS
			if err := parseScalingMatrices(br, n, &scratch); err != nil {
				return nil, errors.Wrap(err, "could not parse picture scaling matrices")
			}
			pps.ScalingList4x4 = scratch.ScalingList4x4
			pps.ScalingList8x8 = scratch.ScalingList8x8
		}
		pps.SecondChromaQpIndexOffset = r.readSe()
	}

	if r.err() != nil {
		return nil, errors.Wrap(r.err(), "could not parse PPS fields")
	}
	return &pps, nil
}

// skipSliceGroupMap parses past the slice group map syntax of section
// 7.3.2.2 without retaining it.
func skipSliceGroupMap(r fieldReader, numGroupsMinus1 int) error {
	mapType := int(r.readUe())
	switch {
	case mapType == 0:
		for i := 0; i <= numGroupsMinus1; i++ {
			r.readUe() // run_length_minus1.
		}
	case mapType == 2:
		for i := 0; i < numGroupsMinus1; i++ {
			r.readUe() // top_left.
			r.readUe() // bottom_right.
		}
	case mapType > 2 && mapType < 6:
		r.readBits(1) // slice_group_change_direction_flag.
		r.readUe()    // slice_group_change_rate_minus1.
	case mapType == 6:
		n := int(r.readUe()) + 1
		bitsPer := ceilLog2(numGroupsMinus1 + 1)
		for i := 0; i < n; i++ {
			r.readBits(bitsPer)
		}
	}
	return r.err()
}

// ceilLog2 returns the number of bits needed to represent values in [0, n).
func ceilLog2(n int) int {
	var b int
	for v := n - 1; v > 0; v >>= 1 {
		b++
	}
	return b
}
