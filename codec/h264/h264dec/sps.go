/*
DESCRIPTION
  sps.go provides parsing of sequence parameter set raw byte sequence
  payloads, as specified in section 7.3.2.1.1 of ITU-T H.264.

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

// Chroma formats as defined in section 6.2, tab 6-1.
const (
	chromaMonochrome = iota
	chroma420
	chroma422
	chroma444
)

// Profiles for which the extended SPS fields (chroma format, bit depths,
// scaling matrices) are present.
var highProfiles = []int{100, 110, 122, 244, 44, 83, 86, 118, 128, 138, 139, 134, 135}

// SPS describes a sequence parameter set as defined by section 7.3.2.1.1 of
// the specifications. For semantics see section 7.4.2.1.
type SPS struct {
	// profile_idc and level_idc indicate the profile and level to which the
	// coded video sequence conforms.
	Profile, LevelIDC uint8

	// seq_parameter_set_id identifies this sequence parameter set, in the
	// range 0 to 31 inclusive.
	SPSID uint64

	// chroma_format_idc specifies the chroma sampling relative to the luma
	// sampling as specified in clause 6.2.
	ChromaFormatIDC uint64

	// separate_colour_plane_flag if true specifies that the three components
	// of the 4:4:4 chroma format are coded separately.
	SeparateColorPlaneFlag bool

	// bit_depth_luma_minus8 and bit_depth_chroma_minus8 specify the luma and
	// chroma array sample bit depths (eq 7-3 and 7-4).
	BitDepthLumaMinus8   uint64
	BitDepthChromaMinus8 uint64

	// qpprime_y_zero_transform_bypass_flag equal to 1 specifies that, when
	// QP'Y is equal to 0, a transform bypass operation is applied to the
	// transform coefficient decoding and picture construction processes of
	// clause 8.5.
	QPPrimeYZeroTransformBypassFlag bool

	// seq_scaling_matrix_present_flag, and the parsed 4x4 and 8x8 scaling
	// lists. When absent the flat lists are inferred.
	SeqScalingMatrixPresentFlag bool
	ScalingList4x4              [6][16]int
	ScalingList8x8              [6][64]int

	// log2_max_frame_num_minus4 allows derivation of MaxFrameNum (eq 7-10).
	Log2MaxFrameNumMinus4 uint64

	// pic_order_cnt_type specifies the method to decode picture order count.
	PicOrderCntType uint64

	// log2_max_pic_order_cnt_lsb_minus4 allows derivation of
	// MaxPicOrderCntLsb (eq 7-11).
	Log2MaxPicOrderCntLSBMinus4 uint64

	// Fields of the pic_order_cnt_type == 1 mode.
	DeltaPicOrderAlwaysZeroFlag    bool
	OffsetForNonRefPic             int
	OffsetForTopToBottomField      int
	NumRefFramesInPicOrderCntCycle uint64
	OffsetForRefFrameList          []int

	// max_num_ref_frames specifies the maximum number of reference frames
	// used by inter prediction.
	MaxNumRefFrames uint64

	// gaps_in_frame_num_value_allowed_flag per clauses 7.4.3 and 8.2.5.2.
	GapsInFrameNumValueAllowed bool

	// pic_width_in_mbs_minus1 plus 1 is the picture width in macroblocks
	// (eq 7-13); pic_height_in_map_units_minus1 plus 1 the height in slice
	// group map units (eq 7-16).
	PicWidthInMBSMinus1       uint64
	PicHeightInMapUnitsMinus1 uint64

	// frame_mbs_only_flag if 1 every coded picture is a coded frame
	// containing only frame macroblocks.
	FrameMBSOnlyFlag bool

	// mb_adaptive_frame_field_flag per clause 7.4.2.1.
	MBAdaptiveFrameFieldFlag bool

	// direct_8x8_inference_flag per clause 8.4.1.2.
	Direct8x8InferenceFlag bool

	// Frame cropping offsets, present when frame_cropping_flag is 1.
	FrameCroppingFlag     bool
	FrameCropLeftOffset   uint64
	FrameCropRightOffset  uint64
	FrameCropTopOffset    uint64
	FrameCropBottomOffset uint64

	// vui_parameters_present_flag; the VUI itself is not interpreted here.
	VUIParametersPresentFlag bool
}

// BitDepthY returns the luma sample bit depth.
func (s *SPS) BitDepthY() int {
	return 8 + int(s.BitDepthLumaMinus8)
}

// BitDepthC returns the chroma sample bit depth.
func (s *SPS) BitDepthC() int {
	return 8 + int(s.BitDepthChromaMinus8)
}

// ChromaArrayType returns ChromaFormatIDC, or 0 when the colour planes are
// coded separately, per clause 7.4.2.1.
func (s *SPS) ChromaArrayType() int {
	if s.SeparateColorPlaneFlag {
		return 0
	}
	return int(s.ChromaFormatIDC)
}

// PicWidthInMbs returns the picture width in macroblocks (eq 7-13).
func (s *SPS) PicWidthInMbs() int {
	return int(s.PicWidthInMBSMinus1) + 1
}

// PicHeightInMbs returns the frame height in macroblocks for a frame-only
// stream (eq 7-17 with frame_mbs_only_flag equal to 1).
func (s *SPS) PicHeightInMbs() int {
	h := int(s.PicHeightInMapUnitsMinus1) + 1
	if !s.FrameMBSOnlyFlag {
		h *= 2
	}
	return h
}

// NewSPS parses a sequence parameter set raw byte sequence payload following
// the syntax structure specified in section 7.3.2.1.1, and returns as a new
// SPS.
func NewSPS(rbsp []byte) (*SPS, error) {
	sps := SPS{ChromaFormatIDC: chroma420}
	br := bits.NewBitReader(bytes.NewReader(rbsp))
	r := newFieldReader(br)

	sps.Profile = uint8(r.readBits(8))
	r.readBits(8) // Constraint set flags and reserved bits.
	sps.LevelIDC = uint8(r.readBits(8))
	sps.SPSID = r.readUe()

	if isInList(highProfiles, int(sps.Profile)) {
		sps.ChromaFormatIDC = r.readUe()
		if sps.ChromaFormatIDC == chroma444 {
			sps.SeparateColorPlaneFlag = r.readFlag()
		}
		sps.BitDepthLumaMinus8 = r.readUe()
		sps.BitDepthChromaMinus8 = r.readUe()
		sps.QPPrimeYZeroTransformBypassFlag = r.readFlag()
		sps.SeqScalingMatrixPresentFlag = r.readFlag()

		if sps.SeqScalingMatrixPresentFlag {
			n := 8
			if sps.ChromaFormatIDC == chroma444 {
				n = 12
			}
			if err := parseScalingMatrices(br, n, &sps); err != nil {
				return nil, errors.Wrap(err, "could not parse scaling matrices")
			}
		} else {
			flatScalingMatrices(&sps)
		}
	} else {
		flatScalingMatrices(&sps)
	}

	sps.Log2MaxFrameNumMinus4 = r.readUe()
	sps.PicOrderCntType = r.readUe()
	switch sps.PicOrderCntType {
	case 0:
		sps.Log2MaxPicOrderCntLSBMinus4 = r.readUe()
	case 1:
		sps.DeltaPicOrderAlwaysZeroFlag = r.readFlag()
		sps.OffsetForNonRefPic = r.readSe()
		sps.OffsetForTopToBottomField = r.readSe()
		sps.NumRefFramesInPicOrderCntCycle = r.readUe()
		for i := uint64(0); i < sps.NumRefFramesInPicOrderCntCycle; i++ {
			sps.OffsetForRefFrameList = append(sps.OffsetForRefFrameList, r.readSe())
		}
	}

	sps.MaxNumRefFrames = r.readUe()
	sps.GapsInFrameNumValueAllowed = r.readFlag()
	sps.PicWidthInMBSMinus1 = r.readUe()
	sps.PicHeightInMapUnitsMinus1 = r.readUe()
	sps.FrameMBSOnlyFlag = r.readFlag()
	if !sps.FrameMBSOnlyFlag {
		sps.MBAdaptiveFrameFieldFlag = r.readFlag()
	}
	sps.Direct8x8InferenceFlag = r.readFlag()
	sps.FrameCroppingFlag = r.readFlag()
	if sps.FrameCroppingFlag {
		sps.FrameCropLeftOffset = r.readUe()
		sps.FrameCropRightOffset = r.readUe()
		sps.FrameCropTopOffset = r.readUe()
		sps.FrameCropBottomOffset = r.readUe()
	}
	sps.VUIParametersPresentFlag = r.readFlag()

	if r.err() != nil {
		return nil, errors.Wrap(r.err(), "could not parse SPS fields")
	}
	return &sps, nil
}

// Default scaling lists from table 7-2 (rule set A fallbacks).
var (
	default4x4Intra = [16]int{6, 13, 13, 20, 20, 20, 28, 28, 28, 28, 32, 32, 32, 37, 37, 42}
	default4x4Inter = [16]int{10, 14, 14, 20, 20, 20, 24, 24, 24, 24, 27, 27, 27, 30, 30, 34}
	default8x8Intra = [64]int{
		6, 10, 10, 13, 11, 13, 16, 16, 16, 16, 18, 18, 18, 18, 18, 23,
		23, 23, 23, 23, 23, 25, 25, 25, 25, 25, 25, 25, 27, 27, 27, 27,
		27, 27, 27, 27, 29, 29, 29, 29, 29, 29, 29, 31, 31, 31, 31, 31,
		31, 33, 33, 33, 33, 33, 36, 36, 36, 36, 38, 38, 38, 40, 40, 42}
	default8x8Inter = [64]int{
		9, 13, 13, 15, 13, 15, 17, 17, 17, 17, 19, 19, 19, 19, 19, 21,
		21, 21, 21, 21, 21, 22, 22, 22, 22, 22, 22, 22, 24, 24, 24, 24,
		24, 24, 24, 24, 25, 25, 25, 25, 25, 25, 25, 27, 27, 27, 27, 27,
		27, 28, 28, 28, 28, 28, 30, 30, 30, 30, 32, 32, 32, 33, 33, 35}
)

// flatScalingMatrices fills the scaling lists with the Flat_4x4_16 and
// Flat_8x8_16 defaults.
func flatScalingMatrices(sps *SPS) {
	for i := range sps.ScalingList4x4 {
		for j := range sps.ScalingList4x4[i] {
			sps.ScalingList4x4[i][j] = 16
		}
	}
	for i := range sps.ScalingList8x8 {
		for j := range sps.ScalingList8x8[i] {
			sps.ScalingList8x8[i][j] = 16
		}
	}
}

// parseScalingMatrices parses n scaling lists into the SPS, applying the
// fall-back rules of table 7-2 for absent lists.
func parseScalingMatrices(br *bits.BitReader, n int, sps *SPS) error {
	flatScalingMatrices(sps)
	for i := 0; i < n; i++ {
		present, err := br.ReadBits(1)
		if err != nil {
			return err
		}
		if present == 0 {
			// Lists 0, 3, 6 and 7 fall back to the default list; the others
			// copy the preceding list of the same size and prediction type.
			switch {
			case i == 1 || i == 2 || i == 4 || i == 5:
				sps.ScalingList4x4[i] = sps.ScalingList4x4[i-1]
			case i >= 8:
				sps.ScalingList8x8[i-6] = sps.ScalingList8x8[i-8]
			default:
				applyDefaultScalingList(sps, i)
			}
			continue
		}
		if i < 6 {
			var l [16]int
			useDefault, err := scalingList(br, l[:])
			if err != nil {
				return errors.Wrapf(err, "could not parse 4x4 scaling list %d", i)
			}
			if useDefault {
				applyDefaultScalingList(sps, i)
			} else {
				sps.ScalingList4x4[i] = l
			}
		} else {
			var l [64]int
			useDefault, err := scalingList(br, l[:])
			if err != nil {
				return errors.Wrapf(err, "could not parse 8x8 scaling list %d", i)
			}
			if useDefault {
				applyDefaultScalingList(sps, i)
			} else {
				sps.ScalingList8x8[i-6] = l
			}
		}
	}
	return nil
}

// applyDefaultScalingList installs the default list of tables 7-3 and 7-4
// for index i.
func applyDefaultScalingList(sps *SPS, i int) {
	switch {
	case i < 3:
		sps.ScalingList4x4[i] = default4x4Intra
	case i < 6:
		sps.ScalingList4x4[i] = default4x4Inter
	case i%2 == 0:
		sps.ScalingList8x8[i-6] = default8x8Intra
	default:
		sps.ScalingList8x8[i-6] = default8x8Inter
	}
}

// scalingList parses one scaling list following the syntax of section
// 7.3.2.1.1.1, returning true if the default matrix should be used.
func scalingList(br *bits.BitReader, list []int) (useDefault bool, err error) {
	lastScale, nextScale := 8, 8
	for j := range list {
		if nextScale != 0 {
			delta, err := readSe(br)
			if err != nil {
				return false, errors.Wrap(err, "could not read delta_scale")
			}
			nextScale = (lastScale + delta + 256) % 256
			if j == 0 && nextScale == 0 {
				return true, nil
			}
		}
		if nextScale == 0 {
			list[j] = lastScale
		} else {
			list[j] = nextScale
			lastScale = nextScale
		}
	}
	return false, nil
}

// isInList returns true if e is present in l.
func isInList(l []int, e int) bool {
	for _, v := range l {
		if v == e {
			return true
		}
	}
	return false
}
