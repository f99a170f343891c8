/*
DESCRIPTION
  slice.go provides parsing of slice headers and the CABAC slice data loop
  for intra coded slices: macroblocks are decoded in raster order until the
  end of slice flag terminates the engine.

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

// Slice types as defined by table 7-6 in the specifications. Values 5 to 9
// fold onto 0 to 4.
const (
	sliceTypeP  = 0
	sliceTypeB  = 1
	sliceTypeI  = 2
	sliceTypeSP = 3
	sliceTypeSI = 4
)

// VideoStream holds the active parameter sets of a coded video sequence and
// the pictures decoded from it.
type VideoStream struct {
	SPS *SPS
	PPS *PPS

	// Pictures decoded so far, in decode order.
	Pictures []*Picture
}

// SliceHeader describes a slice header as specified in section 7.3.3. Only
// the fields meaningful to intra decoding are retained.
type SliceHeader struct {
	// first_mb_in_slice, the raster address of the first macroblock.
	FirstMbInSlice int

	// slice_type folded to the range 0 to 4.
	SliceType int

	// pic_parameter_set_id referencing the active PPS.
	PPSID uint64

	// frame_num, per clause 7.4.3.
	FrameNum int

	// idr_pic_id, present for IDR pictures.
	IDRPicID uint64

	// pic_order_cnt_lsb, present when pic_order_cnt_type is 0.
	PicOrderCntLsb int

	// slice_qp_delta contributes to the initial QPY of the slice (eq 7-30).
	SliceQPDelta int

	// Deblocking filter control fields; parsed past, the filter itself is
	// not run here.
	DisableDeblockingFilterIdc int
}

// SliceContext carries the state of one slice being decoded: the header,
// the entropy engine, the picture under construction and the per slice
// quantisation state.
type SliceContext struct {
	*VideoStream
	Header *SliceHeader
	NAL    *NALUnit

	engine *cabac
	pic    *Picture

	// QPY is the current luma quantisation parameter, updated by
	// mb_qp_delta as macroblocks are parsed.
	QPY int

	// prevMbQPDelta is the mb_qp_delta of the previous macroblock in decode
	// order, used for context selection.
	prevMbQPDelta int
}

var (
	errNotISlice    = errors.New("only intra coded slices are supported")
	errNotCABAC     = errors.New("slice data is not CABAC coded")
	errChromaFormat = errors.New("only 4:2:0 and monochrome chroma formats are supported")
)

// NewSliceHeader parses a slice header from br following section 7.3.3,
// using the active parameter sets for conditional fields.
func NewSliceHeader(br *bits.BitReader, vid *VideoStream, nal *NALUnit) (*SliceHeader, error) {
	h := &SliceHeader{}
	r := newFieldReader(br)

	h.FirstMbInSlice = int(r.readUe())
	h.SliceType = int(r.readUe())
	if h.SliceType > 4 {
		h.SliceType -= 5
	}
	h.PPSID = r.readUe()

	if vid.SPS.SeparateColorPlaneFlag {
		r.readBits(2) // colour_plane_id.
	}

	h.FrameNum = int(r.readBits(int(vid.SPS.Log2MaxFrameNumMinus4) + 4))

	if nal.Type == NALTypeIDR {
		h.IDRPicID = r.readUe()
	}

	if vid.SPS.PicOrderCntType == 0 {
		h.PicOrderCntLsb = int(r.readBits(int(vid.SPS.Log2MaxPicOrderCntLSBMinus4) + 4))
		if vid.PPS.BottomFieldPicOrderInFramePresent {
			r.readSe() // delta_pic_order_cnt_bottom.
		}
	} else if vid.SPS.PicOrderCntType == 1 && !vid.SPS.DeltaPicOrderAlwaysZeroFlag {
		r.readSe() // delta_pic_order_cnt[0].
		if vid.PPS.BottomFieldPicOrderInFramePresent {
			r.readSe() // delta_pic_order_cnt[1].
		}
	}

	if vid.PPS.RedundantPicCntPresent {
		r.readUe() // redundant_pic_cnt.
	}

	if h.SliceType != sliceTypeI && h.SliceType != sliceTypeSI {
		return nil, errNotISlice
	}

	// dec_ref_pic_marking for an IDR picture.
	if nal.Type == NALTypeIDR {
		r.readBits(1) // no_output_of_prior_pics_flag.
		r.readBits(1) // long_term_reference_flag.
	} else if nal.RefIDC != 0 {
		// adaptive_ref_pic_marking_mode_flag and its operations.
		if r.readFlag() {
			for {
				op := r.readUe()
				if op == 0 || r.err() != nil {
					break
				}
				switch op {
				case 1, 3:
					r.readUe()
					if op == 3 {
						r.readUe()
					}
				case 2, 6:
					r.readUe()
				case 4:
					r.readUe()
				}
			}
		}
	}

	if vid.PPS.EntropyCodingMode == 1 && h.SliceType != sliceTypeI && h.SliceType != sliceTypeSI {
		r.readUe() // cabac_init_idc.
	}

	h.SliceQPDelta = r.readSe()

	if vid.PPS.DeblockingFilterControlPresent {
		h.DisableDeblockingFilterIdc = int(r.readUe())
		if h.DisableDeblockingFilterIdc != 1 {
			r.readSe() // slice_alpha_c0_offset_div2.
			r.readSe() // slice_beta_offset_div2.
		}
	}

	if r.err() != nil {
		return nil, errors.Wrap(r.err(), "could not parse slice header")
	}
	return h, nil
}

// NewSliceContext parses the slice in nal against the stream's active
// parameter sets and decodes its macroblocks into a picture. The picture is
// appended to the stream on success. CABAC errors inside the slice data are
// bitstream-fatal: the slice and picture are abandoned and the error is
// returned.
func NewSliceContext(vid *VideoStream, nal *NALUnit) (*SliceContext, error) {
	if vid.SPS == nil || vid.PPS == nil {
		return nil, errors.New("missing active parameter sets")
	}
	if vid.PPS.EntropyCodingMode != 1 {
		return nil, errNotCABAC
	}
	if cat := vid.SPS.ChromaArrayType(); cat != chromaMonochrome && cat != chroma420 {
		return nil, errChromaFormat
	}

	br := bits.NewBitReader(bytes.NewReader(nal.RBSP))
	h, err := NewSliceHeader(br, vid, nal)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse slice header")
	}

	ctx := &SliceContext{
		VideoStream: vid,
		Header:      h,
		NAL:         nal,
		QPY:         sliceQPy(vid.PPS, h),
	}

	// cabac_alignment_one_bit until the engine's byte aligned entry point.
	for !br.ByteAligned() {
		b, err := br.ReadBits(1)
		if err != nil {
			return nil, errors.Wrap(err, "could not read cabac_alignment_one_bit")
		}
		if b != 1 {
			return nil, errors.New("cabac_alignment_one_bit is zero")
		}
	}

	ctx.engine, err = newCABAC(ctx.QPY, br)
	if err != nil {
		return nil, errors.Wrap(err, "could not initialise decoding engine")
	}

	ctx.pic = NewPicture(vid.SPS)

	if err := ctx.decodeSliceData(); err != nil {
		// The engine state is corrupt; abandon the picture as well.
		return nil, errors.Wrap(err, "could not decode slice data")
	}

	vid.Pictures = append(vid.Pictures, ctx.pic)
	return ctx, nil
}

// decodeSliceData runs the CABAC slice data loop of section 7.3.4:
// macroblocks decode in raster order until end_of_slice_flag, decoded with
// the terminate primitive at context 276, is 1.
func (ctx *SliceContext) decodeSliceData() error {
	mbAddr := ctx.Header.FirstMbInSlice
	for {
		if mbAddr >= len(ctx.pic.mbs) {
			return errors.Errorf("macroblock address %d outside picture", mbAddr)
		}
		if err := ctx.decodeMacroblock(mbAddr); err != nil {
			return errors.Wrapf(err, "could not decode macroblock %d", mbAddr)
		}

		end, err := ctx.engine.decodeTerminate()
		if err != nil {
			return errors.Wrap(err, "could not decode end_of_slice_flag")
		}
		if end == 1 {
			return nil
		}
		mbAddr++
	}
}
