/*
DESCRIPTION
  intrapred8x8.go provides the Intra_8x8 luma prediction of clause 8.3.2 of
  ITU-T H.264, including the normative reference sample filtering applied
  before prediction, and 8x8 block reconstruction.

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

// refs8x8 holds the reference samples of one 8x8 block after gathering and
// filtering: the above row extended to 16 samples, the left column, and
// the corner.
type refs8x8 struct {
	top    [16]int
	left   [8]int
	upLeft int

	topOK, leftOK, upLeftOK bool
}

// reconIntra8x8 reconstructs the four 8x8 luma blocks of an I_NxN
// macroblock coded with the 8x8 transform, per clauses 8.3.2 and 8.5.13.
func (ctx *SliceContext) reconIntra8x8(mb *Macroblock, bypass bool) error {
	for blk8 := 0; blk8 < 4; blk8++ {
		bx, by := luma8x8BlkPos(blk8)
		mode := mb.Intra8x8PredMode[blk8]

		refs := ctx.gather8x8Refs(mb, blk8, bx, by)
		refs.filter()

		pred, err := predict8x8(mode, &refs, ctx.pic.BitDepthY)
		if err != nil {
			return errors.Wrapf(err, "could not predict 8x8 block %d", blk8)
		}

		var res [8][8]int
		if mb.CodedBlockPatternLuma&(1<<uint(blk8)) != 0 {
			res = inverseScan8x8(mb.Luma8x8[blk8][:])
			if bypass {
				rows := make([][]int, 8)
				for i := range rows {
					rows[i] = res[i][:]
				}
				if mode == predVertical {
					bypassSums(rows, true)
				} else if mode == predHorizontal {
					bypassSums(rows, false)
				}
			} else {
				scale8x8(&res, mb.QPY, ctx.weight8x8(0))
				inverseTransform8x8(&res)
			}
		}

		for i := 0; i < 8; i++ {
			for j := 0; j < 8; j++ {
				ctx.setLumaMb(mb, bx+j, by+i, clip1y(pred[i][j]+res[i][j], ctx.pic.BitDepthY))
			}
		}
	}
	return nil
}

// gather8x8Refs collects the unfiltered reference samples of 8x8 block
// blk8, substituting the rightmost above sample for unavailable above
// right samples.
func (ctx *SliceContext) gather8x8Refs(mb *Macroblock, blk8, bx, by int) refs8x8 {
	var r refs8x8
	cur := blk8 * 4

	var top [16]refSample
	for i := 0; i < 16; i++ {
		top[i] = ctx.lumaRef(mb, bx+i, by-1, cur)
	}
	var left [8]refSample
	for i := 0; i < 8; i++ {
		left[i] = ctx.lumaRef(mb, bx-1, by+i, cur)
	}
	ul := ctx.lumaRef(mb, bx-1, by-1, cur)

	r.topOK = top[0].ok
	r.leftOK = left[0].ok
	r.upLeftOK = ul.ok
	r.upLeft = ul.v

	if r.topOK && !top[8].ok {
		for i := 8; i < 16; i++ {
			top[i] = top[7]
		}
	}
	for i := range top {
		r.top[i] = top[i].v
	}
	for i := range left {
		r.left[i] = left[i].v
	}
	return r
}

// filter applies the reference sample filtering of clause 8.3.2.2.1 in
// place.
func (r *refs8x8) filter() {
	top0, ul := r.top[0], r.upLeft
	if r.topOK {
		var f [16]int
		if r.upLeftOK {
			f[0] = (r.upLeft + 2*r.top[0] + r.top[1] + 2) >> 2
		} else {
			f[0] = (3*r.top[0] + r.top[1] + 2) >> 2
		}
		for x := 1; x < 15; x++ {
			f[x] = (r.top[x-1] + 2*r.top[x] + r.top[x+1] + 2) >> 2
		}
		f[15] = (r.top[14] + 3*r.top[15] + 2) >> 2
		r.top = f
	}

	if r.upLeftOK {
		switch {
		case r.topOK && r.leftOK:
			r.upLeft = (top0 + 2*r.upLeft + r.left[0] + 2) >> 2
		case r.topOK:
			r.upLeft = (3*r.upLeft + top0 + 2) >> 2
		case r.leftOK:
			r.upLeft = (3*r.upLeft + r.left[0] + 2) >> 2
		}
	}

	if r.leftOK {
		var f [8]int
		if r.upLeftOK {
			f[0] = (ul + 2*r.left[0] + r.left[1] + 2) >> 2
		} else {
			f[0] = (3*r.left[0] + r.left[1] + 2) >> 2
		}
		for y := 1; y < 7; y++ {
			f[y] = (r.left[y-1] + 2*r.left[y] + r.left[y+1] + 2) >> 2
		}
		f[7] = (r.left[6] + 3*r.left[7] + 2) >> 2
		r.left = f
	}
}

// topAt returns the above reference row extended to the corner at index -1.
func (r *refs8x8) topAt(i int) int {
	if i < 0 {
		return r.upLeft
	}
	return r.top[i]
}

// leftAt returns the left reference column extended to the corner at index
// -1.
func (r *refs8x8) leftAt(i int) int {
	if i < 0 {
		return r.upLeft
	}
	return r.left[i]
}

// predict8x8 forms the 8x8 prediction block for the given mode per clause
// 8.3.2.2. The returned block is indexed [y][x].
func predict8x8(mode int, r *refs8x8, bitDepth int) ([8][8]int, error) {
	var pred [8][8]int

	switch mode {
	case predVertical:
		if !r.topOK {
			return pred, errRefUnavailable
		}
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				pred[y][x] = r.top[x]
			}
		}

	case predHorizontal:
		if !r.leftOK {
			return pred, errRefUnavailable
		}
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				pred[y][x] = r.left[y]
			}
		}

	case predDC:
		var sum, n int
		if r.leftOK {
			for i := 0; i < 8; i++ {
				sum += r.left[i]
			}
			n += 8
		}
		if r.topOK {
			for i := 0; i < 8; i++ {
				sum += r.top[i]
			}
			n += 8
		}
		dc := 1 << uint(bitDepth-1)
		if n != 0 {
			dc = (sum + n/2) / n
		}
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				pred[y][x] = dc
			}
		}

	case predDiagDownLeft:
		if !r.topOK {
			return pred, errRefUnavailable
		}
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				if x == 7 && y == 7 {
					pred[y][x] = (r.top[14] + 3*r.top[15] + 2) >> 2
				} else {
					pred[y][x] = (r.top[x+y] + 2*r.top[x+y+1] + r.top[x+y+2] + 2) >> 2
				}
			}
		}

	case predDiagDownRight:
		if !r.topOK || !r.leftOK || !r.upLeftOK {
			return pred, errRefUnavailable
		}
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				switch {
				case x > y:
					pred[y][x] = (r.topAt(x-y-2) + 2*r.topAt(x-y-1) + r.topAt(x-y) + 2) >> 2
				case x < y:
					pred[y][x] = (r.leftAt(y-x-2) + 2*r.leftAt(y-x-1) + r.leftAt(y-x) + 2) >> 2
				default:
					pred[y][x] = (r.top[0] + 2*r.upLeft + r.left[0] + 2) >> 2
				}
			}
		}

	case predVerticalRight:
		if !r.topOK || !r.leftOK || !r.upLeftOK {
			return pred, errRefUnavailable
		}
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				z := 2*x - y
				switch {
				case z >= 0 && z%2 == 0:
					pred[y][x] = (r.topAt(x-y/2-1) + r.topAt(x-y/2) + 1) >> 1
				case z >= 0:
					pred[y][x] = (r.topAt(x-y/2-2) + 2*r.topAt(x-y/2-1) + r.topAt(x-y/2) + 2) >> 2
				case z == -1:
					pred[y][x] = (r.left[0] + 2*r.upLeft + r.top[0] + 2) >> 2
				default:
					pred[y][x] = (r.leftAt(y-2*x-1) + 2*r.leftAt(y-2*x-2) + r.leftAt(y-2*x-3) + 2) >> 2
				}
			}
		}

	case predHorizontalDown:
		if !r.topOK || !r.leftOK || !r.upLeftOK {
			return pred, errRefUnavailable
		}
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				z := 2*y - x
				switch {
				case z >= 0 && z%2 == 0:
					pred[y][x] = (r.leftAt(y-x/2-1) + r.leftAt(y-x/2) + 1) >> 1
				case z >= 0:
					pred[y][x] = (r.leftAt(y-x/2-2) + 2*r.leftAt(y-x/2-1) + r.leftAt(y-x/2) + 2) >> 2
				case z == -1:
					pred[y][x] = (r.top[0] + 2*r.upLeft + r.left[0] + 2) >> 2
				default:
					pred[y][x] = (r.topAt(x-2*y-1) + 2*r.topAt(x-2*y-2) + r.topAt(x-2*y-3) + 2) >> 2
				}
			}
		}

	case predVerticalLeft:
		if !r.topOK {
			return pred, errRefUnavailable
		}
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				if y%2 == 0 {
					pred[y][x] = (r.top[x+y/2] + r.top[x+y/2+1] + 1) >> 1
				} else {
					pred[y][x] = (r.top[x+y/2] + 2*r.top[x+y/2+1] + r.top[x+y/2+2] + 2) >> 2
				}
			}
		}

	case predHorizontalUp:
		if !r.leftOK {
			return pred, errRefUnavailable
		}
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				z := x + 2*y
				switch {
				case z < 13 && z%2 == 0:
					pred[y][x] = (r.left[y+x/2] + r.left[y+x/2+1] + 1) >> 1
				case z < 13:
					pred[y][x] = (r.left[y+x/2] + 2*r.left[y+x/2+1] + r.left[y+x/2+2] + 2) >> 2
				case z == 13:
					pred[y][x] = (r.left[6] + 3*r.left[7] + 2) >> 2
				default:
					pred[y][x] = r.left[7]
				}
			}
		}

	default:
		return pred, errors.Errorf("invalid intra 8x8 prediction mode %d", mode)
	}
	return pred, nil
}
