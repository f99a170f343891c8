/*
DESCRIPTION
  residual.go provides CABAC residual block decoding following section
  7.3.5.3.3 of ITU-T H.264: the coded block flag, the significance map, and
  the coefficient levels with their adaptive context selection.

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

// Context block categories from table 9-42.
const (
	catLumaDC   = 0
	catLumaAC   = 1
	catLuma4x4  = 2
	catChromaDC = 3
	catChromaAC = 4
	catLuma8x8  = 5
)

// Context index bases and per category offsets for the residual syntax
// elements, from table 9-40.
var (
	cbfCatOffset = [5]int{0, 4, 8, 12, 16}

	sigCatOffset  = [5]int{0, 15, 29, 44, 47}
	lastCatOffset = [5]int{0, 15, 29, 44, 47}
	absCatOffset  = [5]int{0, 10, 20, 30, 39}
)

const (
	cbfBase  = 85
	sigBase  = 105
	lastBase = 166
	absBase  = 227

	sig8x8Base  = 402
	last8x8Base = 417
	abs8x8Base  = 426
)

// Significance map context assignment for 8x8 blocks in frame coding, from
// table 9-43.
var sigCoeffFlagMap8x8 = [64]int{
	0, 1, 2, 3, 4, 5, 5, 4, 4, 3, 3, 4, 4, 4, 5, 5,
	4, 4, 4, 4, 3, 3, 6, 7, 7, 7, 8, 9, 10, 9, 8, 7,
	7, 6, 11, 12, 13, 11, 6, 7, 8, 9, 14, 10, 9, 8, 6, 11,
	12, 13, 11, 6, 9, 14, 10, 9, 11, 12, 13, 11, 14, 10, 12, 14,
}

// Last coefficient context assignment for 8x8 blocks, from table 9-43.
var lastCoeffFlagMap8x8 = [64]int{
	0, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2,
	3, 3, 3, 3, 3, 3, 3, 3, 4, 4, 4, 4, 4, 4, 4, 4,
	5, 5, 5, 5, 6, 6, 6, 6, 7, 7, 7, 7, 8, 8, 8, 8,
}

// parseResiduals decodes the residual data of mb following section 7.3.5.3.
func (ctx *SliceContext) parseResiduals(mb *Macroblock) error {
	if mb.is16x16() {
		// Luma DC: its coded block flag is always transmitted.
		cbf, err := ctx.residualBlock(mb.LumaDC[:], 16, catLumaDC, ctx.cbfIncLumaDC(mb))
		if err != nil {
			return errors.Wrap(err, "could not decode Intra16x16DCLevel")
		}
		mb.cbfLumaDC = cbf

		for blk := 0; blk < 16; blk++ {
			if mb.CodedBlockPatternLuma&(1<<uint(blk/4)) == 0 {
				continue
			}
			cbf, err := ctx.residualBlock(mb.LumaAC[blk][:15], 15, catLumaAC, ctx.cbfIncLuma4x4(mb, blk))
			if err != nil {
				return errors.Wrapf(err, "could not decode Intra16x16ACLevel %d", blk)
			}
			mb.cbfLuma[blk] = cbf
		}
	} else if mb.TransformSize8x8 {
		for blk8 := 0; blk8 < 4; blk8++ {
			if mb.CodedBlockPatternLuma&(1<<uint(blk8)) == 0 {
				continue
			}
			// The 8x8 luma coded block flag is implied by the coded block
			// pattern and is not transmitted.
			if _, err := ctx.residualBlock(mb.Luma8x8[blk8][:], 64, catLuma8x8, -1); err != nil {
				return errors.Wrapf(err, "could not decode LumaLevel8x8 %d", blk8)
			}
			for _, sub := range blk4x4Of8x8[blk8] {
				mb.cbfLuma[sub] = true
			}
		}
	} else {
		for blk := 0; blk < 16; blk++ {
			if mb.CodedBlockPatternLuma&(1<<uint(blk/4)) == 0 {
				continue
			}
			cbf, err := ctx.residualBlock(mb.LumaAC[blk][:], 16, catLuma4x4, ctx.cbfIncLuma4x4(mb, blk))
			if err != nil {
				return errors.Wrapf(err, "could not decode LumaLevel4x4 %d", blk)
			}
			mb.cbfLuma[blk] = cbf
		}
	}

	if ctx.pic.ChromaArrayType != chroma420 {
		return nil
	}
	const nDC, numBlk = 4, 4

	if mb.CodedBlockPatternChroma != 0 {
		for c := 0; c < 2; c++ {
			cbf, err := ctx.residualBlock(mb.ChromaDC[c][:nDC], nDC, catChromaDC, ctx.cbfIncChromaDC(mb, c))
			if err != nil {
				return errors.Wrapf(err, "could not decode ChromaDCLevel %d", c)
			}
			mb.cbfChromaDC[c] = cbf
		}
	}
	if mb.CodedBlockPatternChroma == 2 {
		for c := 0; c < 2; c++ {
			for blk := 0; blk < numBlk; blk++ {
				cbf, err := ctx.residualBlock(mb.ChromaAC[c][blk][:15], 15, catChromaAC, ctx.cbfIncChromaAC(mb, c, blk))
				if err != nil {
					return errors.Wrapf(err, "could not decode ChromaACLevel %d %d", c, blk)
				}
				mb.cbfChroma[c][blk] = cbf
			}
		}
	}
	return nil
}

// residualBlock decodes one residual block of n level positions into coeff,
// following section 7.3.5.3.3. cbfInc is the coded block flag context
// increment, or negative when the flag is implied set (8x8 luma blocks).
// It returns whether the block carries coefficients.
func (ctx *SliceContext) residualBlock(coeff []int, n, cat, cbfInc int) (bool, error) {
	c := ctx.engine

	if cbfInc >= 0 {
		b, err := c.decodeDecision(cbfBase + cbfCatOffset[cat] + cbfInc)
		if err != nil {
			return false, errors.Wrap(err, "could not decode coded_block_flag")
		}
		if b == 0 {
			for i := range coeff {
				coeff[i] = 0
			}
			return false, nil
		}
	}

	// Significance map: positions 0 to n-2 are transmitted; when no last
	// flag fires the final position is significant by implication.
	sig := make([]bool, n)
	numCoeff := n
	for i := 0; i < n-1; i++ {
		b, err := c.decodeDecision(ctx.sigCtxIdx(cat, i, false))
		if err != nil {
			return false, errors.Wrap(err, "could not decode significant_coeff_flag")
		}
		if b == 0 {
			continue
		}
		sig[i] = true
		b, err = c.decodeDecision(ctx.sigCtxIdx(cat, i, true))
		if err != nil {
			return false, errors.Wrap(err, "could not decode last_significant_coeff_flag")
		}
		if b == 1 {
			numCoeff = i + 1
			break
		}
	}
	if numCoeff == n {
		sig[n-1] = true
	}

	// Levels decode from the last significant coefficient down to the
	// first; the running counters steer context selection for later levels.
	var numEq1, numGt1 int
	for i := numCoeff - 1; i >= 0; i-- {
		if !sig[i] {
			coeff[i] = 0
			continue
		}

		level, err := ctx.decodeAbsLevelMinus1(cat, numEq1, numGt1)
		if err != nil {
			return false, errors.Wrap(err, "could not decode coeff_abs_level_minus1")
		}
		level++

		sign, err := c.decodeBypass()
		if err != nil {
			return false, errors.Wrap(err, "could not decode coeff_sign_flag")
		}
		if sign == 1 {
			coeff[i] = -level
		} else {
			coeff[i] = level
		}

		if level == 1 {
			numEq1++
		} else {
			numGt1++
		}
	}
	for i := numCoeff; i < n; i++ {
		coeff[i] = 0
	}
	return true, nil
}

// sigCtxIdx returns the context index of significant_coeff_flag, or of
// last_significant_coeff_flag when last is true, for scanning position i of
// block category cat, frame coding.
func (ctx *SliceContext) sigCtxIdx(cat, i int, last bool) int {
	if cat == catLuma8x8 {
		if last {
			return last8x8Base + lastCoeffFlagMap8x8[i]
		}
		return sig8x8Base + sigCoeffFlagMap8x8[i]
	}

	inc := i
	if cat == catChromaDC {
		// Chroma DC uses Min(i/NumC8x8, 2); NumC8x8 is 1 for 4:2:0 and 2
		// for 4:2:2.
		numC8x8 := 1
		if ctx.pic.ChromaArrayType == chroma422 {
			numC8x8 = 2
		}
		inc = mini(i/numC8x8, 2)
	}
	if last {
		return lastBase + lastCatOffset[cat] + inc
	}
	return sigBase + sigCatOffset[cat] + inc
}

// decodeAbsLevelMinus1 decodes coeff_abs_level_minus1: a truncated unary
// prefix bounded at 14 with adaptive contexts, and a 0th order Exp-Golomb
// bypass suffix when the prefix saturates (UEG0, uCoff 14).
func (ctx *SliceContext) decodeAbsLevelMinus1(cat, numEq1, numGt1 int) (int, error) {
	c := ctx.engine

	base := absBase + absCatOffset[cat]
	if cat == catLuma8x8 {
		base = abs8x8Base
	}

	inc0 := 0
	if numGt1 == 0 {
		inc0 = mini(4, 1+numEq1)
	}
	incN := 5 + mini(4-b2i(cat == catChromaDC), numGt1)

	var v int
	for v < 14 {
		idx := base + incN
		if v == 0 {
			idx = base + inc0
		}
		b, err := c.decodeDecision(idx)
		if err != nil {
			return 0, err
		}
		if b == 0 {
			return v, nil
		}
		v++
	}

	suffix, err := c.decodeUEGk(0)
	if err != nil {
		return 0, err
	}
	return v + suffix, nil
}

// b2i converts a bool to 0 or 1.
func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// cbfIncLumaDC derives the coded_block_flag context increment of the luma
// DC block per section 9.3.3.1.1.9: condTermFlagA + 2*condTermFlagB. An
// unavailable neighbour of an intra macroblock contributes 1; an available
// neighbour contributes its own luma DC coded block flag, with I_PCM
// counting as coded.
func (ctx *SliceContext) cbfIncLumaDC(mb *Macroblock) int {
	cond := func(addr int) int {
		n := ctx.pic.Mb(addr)
		if n == nil {
			return 1
		}
		if n.MbType == mbTypeIPCM {
			return 1
		}
		if n.is16x16() && n.cbfLumaDC {
			return 1
		}
		return 0
	}
	return cond(mb.AddrA) + 2*cond(mb.AddrB)
}

// cbfIncLuma4x4 derives the coded_block_flag context increment of 4x4 luma
// block blkIdx.
func (ctx *SliceContext) cbfIncLuma4x4(mb *Macroblock, blkIdx int) int {
	cond := func(left bool) int {
		nb := ctx.luma4x4Neighbour(mb, blkIdx, left, false)
		if nb.mb == nil {
			return 1
		}
		if nb.mb.MbType == mbTypeIPCM {
			return 1
		}
		return b2i(nb.mb.cbfLuma[nb.blkIdx])
	}
	return cond(true) + 2*cond(false)
}

// cbfIncChromaDC derives the coded_block_flag context increment of the
// chroma DC block of plane c.
func (ctx *SliceContext) cbfIncChromaDC(mb *Macroblock, c int) int {
	cond := func(addr int) int {
		n := ctx.pic.Mb(addr)
		if n == nil {
			return 1
		}
		if n.MbType == mbTypeIPCM {
			return 1
		}
		return b2i(n.cbfChromaDC[c])
	}
	return cond(mb.AddrA) + 2*cond(mb.AddrB)
}

// cbfIncChromaAC derives the coded_block_flag context increment of chroma
// AC block blkIdx of plane c.
func (ctx *SliceContext) cbfIncChromaAC(mb *Macroblock, c, blkIdx int) int {
	cond := func(left bool) int {
		nb := ctx.chroma4x4Neighbour(mb, blkIdx, left, false)
		if nb.mb == nil {
			return 1
		}
		if nb.mb.MbType == mbTypeIPCM {
			return 1
		}
		return b2i(nb.mb.cbfChroma[c][nb.blkIdx])
	}
	return cond(true) + 2*cond(false)
}
