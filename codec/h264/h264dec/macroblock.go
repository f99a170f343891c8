/*
DESCRIPTION
  macroblock.go provides the macroblock structure, neighbour derivation and
  the CABAC macroblock layer parse for intra coded macroblocks, following
  sections 7.3.5 and 9.3.3.1 of ITU-T H.264.

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

// Macroblock types of I slices from table 7-11. Values 1 to 24 are the
// I_16x16 variants; their prediction mode and coded block pattern are
// derived from the type value.
const (
	mbTypeINxN = 0
	mbTypeIPCM = 25
)

// Macroblock partition prediction modes, section 7.4.5.
type mbPartPredMode int8

const (
	intra4x4 mbPartPredMode = iota
	intra8x8
	intra16x16
	predL0
	predL1
	direct
	biPred
	naMbPartPredMode
)

// Macroblock holds the decoded state of one macroblock: its address and
// type, prediction modes, quantisation parameter, residual coefficient
// levels and the coded block flags used for neighbour context derivation.
type Macroblock struct {
	// Addr is the raster order macroblock address.
	Addr int

	// Neighbour addresses: A left, B above, C above right, D above left.
	// mbAddrNotAvailable when off the picture edge.
	AddrA, AddrB, AddrC, AddrD int

	// MbType is the decoded mb_type for an I slice, range 0 to 25.
	MbType int

	// TransformSize8x8 selects the 8x8 transform for an I_NxN macroblock.
	TransformSize8x8 bool

	// Per block intra prediction modes.
	Intra4x4PredMode    [16]int
	Intra8x8PredMode    [4]int
	Intra16x16PredMode  int
	IntraChromaPredMode int

	// CodedBlockPatternLuma holds one bit per 8x8 block;
	// CodedBlockPatternChroma is 0, 1 or 2.
	CodedBlockPatternLuma   int
	CodedBlockPatternChroma int

	// QPY is the luma quantisation parameter in effect for this macroblock,
	// and MbQPDelta the transmitted delta.
	QPY       int
	MbQPDelta int

	// Residual levels in decoding scan order.
	LumaDC   [16]int
	LumaAC   [16][16]int
	Luma8x8  [4][64]int
	ChromaDC [2][4]int
	ChromaAC [2][4][16]int

	// Coded block flags, retained for neighbour context derivation.
	cbfLumaDC   bool
	cbfLuma     [16]bool
	cbfChromaDC [2]bool
	cbfChroma   [2][4]bool

	// I_PCM sample payloads, raw from the bitstream.
	PCMLuma   []int
	PCMChroma []int
}

// IsIntra reports whether the macroblock is intra coded. Every macroblock
// of an I slice is.
func (mb *Macroblock) IsIntra() bool {
	return true
}

// is16x16 reports whether the macroblock is one of the I_16x16 types.
func (mb *Macroblock) is16x16() bool {
	return mb.MbType >= 1 && mb.MbType <= 24
}

// predMode returns the macroblock partition prediction mode per table 7-11.
func (mb *Macroblock) predMode() mbPartPredMode {
	switch {
	case mb.MbType == mbTypeINxN && mb.TransformSize8x8:
		return intra8x8
	case mb.MbType == mbTypeINxN:
		return intra4x4
	case mb.is16x16():
		return intra16x16
	}
	return naMbPartPredMode
}

// applyI16x16Type derives the 16x16 prediction mode and coded block pattern
// from an I_16x16 mb_type value, per table 7-11.
func (mb *Macroblock) applyI16x16Type() {
	k := mb.MbType - 1
	mb.Intra16x16PredMode = k % 4
	mb.CodedBlockPatternChroma = (k / 4) % 3
	mb.CodedBlockPatternLuma = (k / 12) * 15
}

// decodeMacroblock parses and reconstructs the macroblock at mbAddr.
func (ctx *SliceContext) decodeMacroblock(mbAddr int) error {
	mb := &Macroblock{Addr: mbAddr, QPY: ctx.QPY}
	mb.AddrA, mb.AddrB, mb.AddrC, mb.AddrD = ctx.pic.neighbourAddrs(mbAddr)

	var err error
	mb.MbType, err = ctx.decodeMbTypeI(mb)
	if err != nil {
		return errors.Wrap(err, "could not decode mb_type")
	}

	switch {
	case mb.MbType == mbTypeIPCM:
		if err := ctx.parsePCM(mb); err != nil {
			return errors.Wrap(err, "could not parse I_PCM sample data")
		}
		ctx.prevMbQPDelta = 0
	case mb.MbType == mbTypeINxN:
		if err := ctx.parseINxN(mb); err != nil {
			return err
		}
	default:
		mb.applyI16x16Type()
		if err := ctx.parseIntraChromaPredMode(mb); err != nil {
			return err
		}
		if err := ctx.parseQPDeltaAndResiduals(mb); err != nil {
			return err
		}
	}

	ctx.pic.mbs[mbAddr] = mb

	if mb.MbType == mbTypeIPCM {
		writePCM(ctx.pic, mb)
		return nil
	}
	return ctx.reconstruct(mb)
}

// parseINxN parses the transform size flag, prediction modes, coded block
// pattern and residuals of an I_NxN macroblock.
func (ctx *SliceContext) parseINxN(mb *Macroblock) error {
	if ctx.PPS.Transform8x8Mode {
		var err error
		mb.TransformSize8x8, err = ctx.decodeTransformSize8x8Flag(mb)
		if err != nil {
			return errors.Wrap(err, "could not decode transform_size_8x8_flag")
		}
	}

	if mb.TransformSize8x8 {
		for blk := 0; blk < 4; blk++ {
			m, err := ctx.decodeIntraPredMode(mb, blk, true)
			if err != nil {
				return errors.Wrap(err, "could not decode intra 8x8 prediction mode")
			}
			mb.Intra8x8PredMode[blk] = m
			// The co-located 4x4 modes carry the 8x8 mode for neighbour
			// derivation.
			for _, sub := range blk4x4Of8x8[blk] {
				mb.Intra4x4PredMode[sub] = m
			}
		}
	} else {
		for blk := 0; blk < 16; blk++ {
			m, err := ctx.decodeIntraPredMode(mb, blk, false)
			if err != nil {
				return errors.Wrap(err, "could not decode intra 4x4 prediction mode")
			}
			mb.Intra4x4PredMode[blk] = m
		}
	}

	if err := ctx.parseIntraChromaPredMode(mb); err != nil {
		return err
	}

	cbp, err := ctx.decodeCBP(mb)
	if err != nil {
		return errors.Wrap(err, "could not decode coded_block_pattern")
	}
	mb.CodedBlockPatternLuma = cbp & 0x0f
	mb.CodedBlockPatternChroma = cbp >> 4

	if cbp != 0 {
		return ctx.parseQPDeltaAndResiduals(mb)
	}
	ctx.prevMbQPDelta = 0
	return nil
}

// parseIntraChromaPredMode decodes intra_chroma_pred_mode when the chroma
// array type calls for it.
func (ctx *SliceContext) parseIntraChromaPredMode(mb *Macroblock) error {
	if ctx.pic.ChromaArrayType != chroma420 {
		return nil
	}
	m, err := ctx.decodeIntraChromaPredMode(mb)
	if err != nil {
		return errors.Wrap(err, "could not decode intra_chroma_pred_mode")
	}
	mb.IntraChromaPredMode = m
	return nil
}

// parseQPDeltaAndResiduals decodes mb_qp_delta, updates the slice QPY, and
// parses the macroblock's residual data.
func (ctx *SliceContext) parseQPDeltaAndResiduals(mb *Macroblock) error {
	delta, err := ctx.decodeMbQPDelta()
	if err != nil {
		return errors.Wrap(err, "could not decode mb_qp_delta")
	}
	mb.MbQPDelta = delta
	ctx.prevMbQPDelta = delta

	// QPY update per eq 7-37 for 8 bit depth.
	ctx.QPY = (ctx.QPY + delta + 52) % 52
	mb.QPY = ctx.QPY

	if err := ctx.parseResiduals(mb); err != nil {
		return errors.Wrap(err, "could not parse residual data")
	}
	return nil
}

// parsePCM reads the raw I_PCM sample payload: the engine's bitstream is
// byte aligned, samples are read uncoded, and the engine registers are
// re-initialised afterwards per section 9.3.1.2.
func (ctx *SliceContext) parsePCM(mb *Macroblock) error {
	br := ctx.engine.br
	for !br.ByteAligned() {
		b, err := br.ReadBits(1)
		if err != nil {
			return errors.Wrap(err, "could not read pcm_alignment_zero_bit")
		}
		if b != 0 {
			return errors.New("pcm_alignment_zero_bit is not zero")
		}
	}

	mb.PCMLuma = make([]int, 256)
	for i := range mb.PCMLuma {
		v, err := br.ReadBits(ctx.pic.BitDepthY)
		if err != nil {
			return errors.Wrap(err, "could not read pcm_sample_luma")
		}
		mb.PCMLuma[i] = int(v)
	}

	nChroma := 2 * ctx.pic.MbWidthC * ctx.pic.MbHeightC
	mb.PCMChroma = make([]int, nChroma)
	for i := range mb.PCMChroma {
		v, err := br.ReadBits(ctx.pic.BitDepthC)
		if err != nil {
			return errors.Wrap(err, "could not read pcm_sample_chroma")
		}
		mb.PCMChroma[i] = int(v)
	}

	// I_PCM macroblocks behave as fully coded neighbours.
	for i := range mb.cbfLuma {
		mb.cbfLuma[i] = true
	}
	mb.cbfLumaDC = true
	mb.cbfChromaDC = [2]bool{true, true}
	for c := range mb.cbfChroma {
		for i := range mb.cbfChroma[c] {
			mb.cbfChroma[c][i] = true
		}
	}
	mb.CodedBlockPatternLuma = 0x0f
	mb.CodedBlockPatternChroma = 2

	return ctx.engine.initRegisters()
}

// writePCM copies I_PCM samples straight into the picture planes.
func writePCM(p *Picture, mb *Macroblock) {
	x0 := (mb.Addr % p.WidthInMbs) * 16
	y0 := (mb.Addr / p.WidthInMbs) * 16
	for i, v := range mb.PCMLuma {
		p.setLuma(x0+i%16, y0+i/16, v)
	}
	if p.MbWidthC == 0 {
		return
	}
	w, h := p.MbWidthC, p.MbHeightC
	cx0 := (mb.Addr % p.WidthInMbs) * w
	cy0 := (mb.Addr / p.WidthInMbs) * h
	for i, v := range mb.PCMChroma {
		c := i / (w * h)
		j := i % (w * h)
		p.setChroma(c, cx0+j%w, cy0+j/w, v)
	}
}

// decodeMbTypeI decodes mb_type of an I slice macroblock with the
// binarization of table 9-36 matched row by row. Context selection follows
// table 9-39 for ctxIdxOffset 3: bin 0 is neighbour sensitive per section
// 9.3.3.1.1.3, bin 1 is the terminate bin, and bins 4 and 5 depend on the
// value of bin 3.
func (ctx *SliceContext) decodeMbTypeI(mb *Macroblock) (int, error) {
	inc := ctx.mbTypeCondTerm(mb.AddrA) + ctx.mbTypeCondTerm(mb.AddrB)

	return matchBinarization(ctx.engine, binOfIMBTypes[:], func(binIdx int, bins []int) binCtx {
		switch binIdx {
		case 0:
			return binCtx{ctxIdx: 3 + inc}
		case 1:
			return binCtx{terminate: true}
		case 2:
			return binCtx{ctxIdx: 3 + 3}
		case 3:
			return binCtx{ctxIdx: 3 + 4}
		case 4:
			if bins[3] != 0 {
				return binCtx{ctxIdx: 3 + 5}
			}
			return binCtx{ctxIdx: 3 + 6}
		case 5:
			if bins[3] != 0 {
				return binCtx{ctxIdx: 3 + 6}
			}
			return binCtx{ctxIdx: 3 + 7}
		default:
			return binCtx{ctxIdx: 3 + 7}
		}
	})
}

// mbTypeCondTerm returns the condTermFlag contribution of neighbour addr
// for mb_type context selection: 0 when the neighbour is unavailable or is
// I_NxN, 1 otherwise.
func (ctx *SliceContext) mbTypeCondTerm(addr int) int {
	mb := ctx.pic.Mb(addr)
	if mb == nil || mb.MbType == mbTypeINxN {
		return 0
	}
	return 1
}

// decodeTransformSize8x8Flag decodes transform_size_8x8_flag with context
// selection per section 9.3.3.1.1.10.
func (ctx *SliceContext) decodeTransformSize8x8Flag(mb *Macroblock) (bool, error) {
	var inc int
	if n := ctx.pic.Mb(mb.AddrA); n != nil && n.TransformSize8x8 {
		inc++
	}
	if n := ctx.pic.Mb(mb.AddrB); n != nil && n.TransformSize8x8 {
		inc++
	}
	b, err := ctx.engine.decodeDecision(399 + inc)
	return b == 1, err
}

// decodeIntraPredMode decodes one prev_intra_pred_mode_flag and, when the
// flag is unset, the three bit rem_intra_pred_mode, returning the decoded
// mode via the most-probable-mode rule of sections 8.3.1.1 and 8.3.2.1.
func (ctx *SliceContext) decodeIntraPredMode(mb *Macroblock, blkIdx int, is8x8 bool) (int, error) {
	prev, err := ctx.engine.decodeDecision(68)
	if err != nil {
		return 0, err
	}

	mpm := ctx.predIntraPredMode(mb, blkIdx, is8x8)
	if prev == 1 {
		return mpm, nil
	}

	var rem int
	for i := 0; i < 3; i++ {
		b, err := ctx.engine.decodeDecision(69)
		if err != nil {
			return 0, err
		}
		// rem_intra_pred_mode is fixed length with its first decoded bin as
		// the least significant.
		rem |= b << uint(i)
	}
	if rem < mpm {
		return rem, nil
	}
	return rem + 1, nil
}

// predIntraPredMode derives the most probable prediction mode of a block
// from its A and B neighbour blocks: the minimum of the two neighbour
// modes, with DC (2) substituted for an unavailable neighbour.
func (ctx *SliceContext) predIntraPredMode(mb *Macroblock, blkIdx int, is8x8 bool) int {
	const dc = 2
	scale := 1
	if is8x8 {
		scale = 4
	}

	modeA, modeB := dc, dc
	if m, ok := ctx.neighbourBlkMode(mb, blkIdx*scale, true); ok {
		modeA = m
	}
	if m, ok := ctx.neighbourBlkMode(mb, blkIdx*scale, false); ok {
		modeB = m
	}
	return mini(modeA, modeB)
}

// neighbourBlkMode resolves the intra prediction mode of the 4x4 block to
// the left of (or above) 4x4 block blkIdx. The bool result is false when
// the neighbour cannot supply a mode: it is unavailable or excluded by
// constrained intra prediction.
func (ctx *SliceContext) neighbourBlkMode(mb *Macroblock, blkIdx int, left bool) (int, bool) {
	n := ctx.luma4x4Neighbour(mb, blkIdx, left, ctx.PPS.ConstrainedIntraPred)
	if n.mb == nil {
		return 0, false
	}
	if n.mb != mb && n.mb.MbType != mbTypeINxN {
		// A 16x16 or PCM neighbour supplies the DC mode per clause 8.3.1.1.
		return 2, true
	}
	return n.mb.Intra4x4PredMode[n.blkIdx], true
}

// decodeIntraChromaPredMode decodes intra_chroma_pred_mode: truncated unary
// with cMax 3 at ctxIdxOffset 64, bin 0 neighbour sensitive per section
// 9.3.3.1.1.8.
func (ctx *SliceContext) decodeIntraChromaPredMode(mb *Macroblock) (int, error) {
	var inc int
	if n := ctx.pic.Mb(mb.AddrA); n != nil && n.IntraChromaPredMode != 0 {
		inc++
	}
	if n := ctx.pic.Mb(mb.AddrB); n != nil && n.IntraChromaPredMode != 0 {
		inc++
	}
	return ctx.engine.decodeUnary(3, []int{64 + inc, 64 + 3, 64 + 3})
}

// decodeMbQPDelta decodes mb_qp_delta: the signed value is mapped per table
// 9-3 and binarized unary at ctxIdxOffset 60, bin 0 selected by the
// previous macroblock's delta per section 9.3.3.1.1.5.
func (ctx *SliceContext) decodeMbQPDelta() (int, error) {
	var inc int
	if ctx.prevMbQPDelta != 0 {
		inc = 1
	}
	k, err := ctx.engine.decodeUnary(-1, []int{60 + inc, 60 + 2, 60 + 3})
	if err != nil {
		return 0, err
	}
	// Inverse of the signed mapping: k odd maps to (k+1)/2, k even to -k/2.
	if k%2 != 0 {
		return (k + 1) / 2, nil
	}
	return -k / 2, nil
}

// decodeCBP decodes coded_block_pattern: a four bit fixed length luma
// prefix at ctxIdxOffset 73 and, for chroma format 4:2:0, a
// truncated unary chroma suffix at ctxIdxOffset 77, both neighbour
// sensitive per section 9.3.3.1.1.4. The returned value packs
// CodedBlockPatternChroma above bit 4.
func (ctx *SliceContext) decodeCBP(mb *Macroblock) (int, error) {
	var lumaCBP int
	for blk := 0; blk < 4; blk++ {
		inc := ctx.cbpLumaCondTerm(mb, blk, lumaCBP)
		b, err := ctx.engine.decodeDecision(73 + inc)
		if err != nil {
			return 0, err
		}
		lumaCBP |= b << uint(blk)
	}

	if ctx.pic.ChromaArrayType != chroma420 {
		return lumaCBP, nil
	}

	// Chroma suffix: bin 0 decides zero versus non-zero, bin 1 one versus
	// two.
	nA, nB := ctx.pic.Mb(mb.AddrA), ctx.pic.Mb(mb.AddrB)
	inc := cbpChromaCond(nA, 1) + 2*cbpChromaCond(nB, 1)
	b, err := ctx.engine.decodeDecision(77 + inc)
	if err != nil {
		return 0, err
	}
	var chroma int
	if b == 1 {
		inc = 4 + cbpChromaCond(nA, 2) + 2*cbpChromaCond(nB, 2)
		b, err = ctx.engine.decodeDecision(77 + inc)
		if err != nil {
			return 0, err
		}
		chroma = 1 + b
	}
	return lumaCBP | chroma<<4, nil
}

// cbpLumaCondTerm derives the context increment of coded_block_pattern luma
// bin blk: condTermFlagA + 2*condTermFlagB, where a neighbouring 8x8 block
// contributes 1 when its coded block pattern bit is zero. Unavailable
// neighbours count as coded.
func (ctx *SliceContext) cbpLumaCondTerm(mb *Macroblock, blk, partial int) int {
	x, y := blk%2, blk/2

	condA := 0
	if x > 0 {
		if partial&(1<<uint(y*2)) == 0 {
			condA = 1
		}
	} else if n := ctx.pic.Mb(mb.AddrA); n != nil {
		if n.CodedBlockPatternLuma&(1<<uint(y*2+1)) == 0 {
			condA = 1
		}
	}

	condB := 0
	if y > 0 {
		if partial&(1<<uint(x)) == 0 {
			condB = 1
		}
	} else if n := ctx.pic.Mb(mb.AddrB); n != nil {
		if n.CodedBlockPatternLuma&(1<<uint(2+x)) == 0 {
			condB = 1
		}
	}

	return condA + 2*condB
}

// cbpChromaCond returns 1 when the neighbour's chroma coded block pattern
// reaches level, 0 otherwise. An unavailable neighbour contributes 0.
func cbpChromaCond(n *Macroblock, level int) int {
	if n == nil {
		return 0
	}
	if n.CodedBlockPatternChroma >= level {
		return 1
	}
	return 0
}
