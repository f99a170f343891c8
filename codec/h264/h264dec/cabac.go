/*
DESCRIPTION
  cabac.go provides the context-adaptive binary arithmetic decoding engine
  used for the parsing of H.264 slice data syntax elements: context variable
  initialisation per section 9.3.1.1, and the DecodeDecision, DecodeBypass
  and DecodeTerminate primitives of section 9.3.3.2.

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

// ctxVar is one context variable of the engine: a probability state index
// and the value of the most probable symbol.
type ctxVar struct {
	pStateIdx int
	valMPS    int
}

// cabac is the arithmetic decoding engine for one slice: the 460 context
// variables plus the two engine registers. Context variables are allocated
// per slice and discarded at slice end.
type cabac struct {
	ctx [numCtxVars]ctxVar

	codIRange  uint32
	codIOffset uint32

	br *bits.BitReader
}

// Errors classed as bitstream-fatal: the engine state is corrupt and the
// slice must be abandoned.
var (
	errInitialOffset = errors.New("initial codIOffset is 510 or 511")
	errCtxIdxRange   = errors.New("context index out of range")
	errBinMatch      = errors.New("bin string matches no binarization row")
)

// sliceQPy returns the initial luma quantisation parameter of the slice,
// eq 7-30.
func sliceQPy(pps *PPS, hdr *SliceHeader) int {
	return 26 + pps.PicInitQpMinus26 + hdr.SliceQPDelta
}

// preCtxState implements eq 9-5.
func preCtxState(m, n, sliceQPy int) int {
	return clip3(1, 126, ((m*clip3(0, 51, sliceQPy))>>4)+n)
}

// newCABAC returns an engine with contexts initialised for the given slice
// QPY per section 9.3.1.1, and the decoding registers initialised per
// section 9.3.1.2: codIRange starts at 510 and codIOffset holds the next 9
// bits of the bitstream. The values 510 and 511 for codIOffset are
// forbidden.
func newCABAC(qpy int, br *bits.BitReader) (*cabac, error) {
	c := &cabac{br: br}
	for i := range c.ctx {
		pre := preCtxState(ctxInitI[i][0], ctxInitI[i][1], qpy)
		if pre <= 63 {
			c.ctx[i] = ctxVar{pStateIdx: 63 - pre, valMPS: 0}
		} else {
			c.ctx[i] = ctxVar{pStateIdx: pre - 64, valMPS: 1}
		}
	}

	if err := c.initRegisters(); err != nil {
		return nil, err
	}
	return c, nil
}

// initRegisters performs the engine register initialisation of section
// 9.3.1.2. It is also invoked after the sample data of an I_PCM macroblock;
// the context variables are left untouched there.
func (c *cabac) initRegisters() error {
	c.codIRange = 510
	off, err := c.br.ReadBits(9)
	if err != nil {
		return errors.Wrap(err, "could not read initial codIOffset")
	}
	c.codIOffset = uint32(off)
	if c.codIOffset == 510 || c.codIOffset == 511 {
		return errInitialOffset
	}
	return nil
}

// decodeDecision implements the arithmetic decision decoding of section
// 9.3.3.2.1: the range is split using rangeTabLPS; an offset inside the MPS
// interval decodes the most probable symbol and advances the state via
// TransIdxMPS, otherwise the least probable symbol is decoded, valMPS flips
// when pStateIdx is 0, and the state advances via TransIdxLPS. The engine
// is renormalised afterwards.
func (c *cabac) decodeDecision(ctxIdx int) (int, error) {
	if ctxIdx < 0 || ctxIdx >= numCtxVars {
		return 0, errCtxIdxRange
	}
	ctx := &c.ctx[ctxIdx]

	qCodIRangeIdx := (c.codIRange >> 6) & 3
	codIRangeLPS := rangeTabLPS[ctx.pStateIdx][qCodIRangeIdx]

	var binVal int
	c.codIRange -= codIRangeLPS
	if c.codIOffset >= c.codIRange {
		binVal = 1 - ctx.valMPS
		c.codIOffset -= c.codIRange
		c.codIRange = codIRangeLPS
		if ctx.pStateIdx == 0 {
			ctx.valMPS = 1 - ctx.valMPS
		}
		ctx.pStateIdx = stateTransxTab[ctx.pStateIdx].TransIdxLPS
	} else {
		binVal = ctx.valMPS
		ctx.pStateIdx = stateTransxTab[ctx.pStateIdx].TransIdxMPS
	}

	if err := c.renormD(); err != nil {
		return 0, err
	}
	return binVal, nil
}

// decodeBypass implements the bypass decoding of section 9.3.3.2.3: the
// offset is doubled and fed one bit, then compared against the range.
func (c *cabac) decodeBypass() (int, error) {
	b, err := c.br.ReadBits(1)
	if err != nil {
		return 0, errors.Wrap(err, "could not read bypass bit")
	}
	c.codIOffset = c.codIOffset<<1 | uint32(b)
	if c.codIOffset >= c.codIRange {
		c.codIOffset -= c.codIRange
		return 1, nil
	}
	return 0, nil
}

// decodeTerminate implements section 9.3.3.2.4, used for end_of_slice_flag
// and the bin preceding I_PCM sample data. A result of 1 terminates the
// slice without renormalisation; a result of 0 renormalises and continues.
func (c *cabac) decodeTerminate() (int, error) {
	c.codIRange -= 2
	if c.codIOffset >= c.codIRange {
		return 1, nil
	}
	if err := c.renormD(); err != nil {
		return 0, err
	}
	return 0, nil
}

// renormD implements the renormalisation of section 9.3.3.2.2: both
// registers shift left while codIRange is below 256, feeding one input bit
// per shift into the offset.
func (c *cabac) renormD() error {
	for c.codIRange < 256 {
		b, err := c.br.ReadBits(1)
		if err != nil {
			return errors.Wrap(err, "could not read renormalisation bit")
		}
		c.codIRange <<= 1
		c.codIOffset = c.codIOffset<<1 | uint32(b)
	}
	return nil
}

// decodeUnary decodes a unary binarized value with the given per-bin
// context indices; ctxIdxs[len-1] is reused for all further bins. cMax < 0
// means plain unary, otherwise truncated unary with that bound.
func (c *cabac) decodeUnary(cMax int, ctxIdxs []int) (int, error) {
	var v int
	for {
		if cMax >= 0 && v == cMax {
			return v, nil
		}
		idx := ctxIdxs[len(ctxIdxs)-1]
		if v < len(ctxIdxs) {
			idx = ctxIdxs[v]
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
}

// decodeUEGk decodes the suffix of a concatenated unary / k-th order
// Exp-Golomb binarization per section 9.3.2.3, given that the truncated
// unary prefix reached uCoff. All suffix bins are bypass decoded.
func (c *cabac) decodeUEGk(k int) (int, error) {
	var v int
	for {
		b, err := c.decodeBypass()
		if err != nil {
			return 0, err
		}
		if b == 0 {
			break
		}
		v += 1 << uint(k)
		k++
		if k > 30 {
			return 0, errBinMatch
		}
	}
	for ; k > 0; k-- {
		b, err := c.decodeBypass()
		if err != nil {
			return 0, err
		}
		v += b << uint(k-1)
	}
	return v, nil
}

// clip3 implements eq 5-5.
func clip3(x, y, z int) int {
	if z < x {
		return x
	}
	if z > y {
		return y
	}
	return z
}

// clip1y clips to the luma sample range for the given bit depth.
func clip1y(x, bitDepthY int) int {
	return clip3(0, (1<<uint(bitDepthY))-1, x)
}

// clip1c clips to the chroma sample range for the given bit depth.
func clip1c(x, bitDepthC int) int {
	return clip3(0, (1<<uint(bitDepthC))-1, x)
}
