/*
DESCRIPTION
  intrapred.go provides the intra prediction sample processes of clause 8.3
  of ITU-T H.264 and the reconstruction of macroblocks from prediction and
  residual: the nine Intra_4x4 and Intra_8x8 modes, the four Intra_16x16
  modes, the four chroma modes, and the residual application including the
  transform bypass of clause 8.5.15.

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

// Intra_4x4 and Intra_8x8 luma prediction modes, tables 8-2 and 8-3.
const (
	predVertical = iota
	predHorizontal
	predDC
	predDiagDownLeft
	predDiagDownRight
	predVerticalRight
	predHorizontalDown
	predVerticalLeft
	predHorizontalUp
)

// Intra_16x16 luma prediction modes, table 8-4.
const (
	pred16x16Vertical = iota
	pred16x16Horizontal
	pred16x16DC
	pred16x16Plane
)

// Intra chroma prediction modes, table 8-5.
const (
	predChromaDC = iota
	predChromaHorizontal
	predChromaVertical
	predChromaPlane
)

// refSample is one neighbouring reference sample with its availability.
type refSample struct {
	v  int
	ok bool
}

// lumaRef fetches the reconstructed luma sample at macroblock relative
// position (x, y) of mb. curBlk4x4 bounds the decoded region of the current
// macroblock: a sample inside the current macroblock is available only when
// its containing 4x4 block precedes curBlk4x4 in decoding order.
func (ctx *SliceContext) lumaRef(mb *Macroblock, x, y, curBlk4x4 int) refSample {
	p := ctx.pic
	ax := (mb.Addr%p.WidthInMbs)*16 + x
	ay := (mb.Addr/p.WidthInMbs)*16 + y
	if ax < 0 || ay < 0 || ax >= p.Width || ay >= p.Height {
		return refSample{}
	}

	naddr := (ay/16)*p.WidthInMbs + ax/16
	if naddr == mb.Addr {
		if luma4x4BlkIdx(x, y) >= curBlk4x4 {
			return refSample{}
		}
		return refSample{v: p.lumaAt(ax, ay), ok: true}
	}

	if ctx.pic.availableMb(naddr, ctx.PPS.ConstrainedIntraPred) == nil {
		return refSample{}
	}
	return refSample{v: p.lumaAt(ax, ay), ok: true}
}

// chromaRef fetches the reconstructed chroma sample of plane c at
// macroblock relative position (x, y) of mb. Chroma prediction only
// references other macroblocks, which are whole once decoded.
func (ctx *SliceContext) chromaRef(mb *Macroblock, c, x, y int) refSample {
	p := ctx.pic
	cw, chh := p.MbWidthC, p.MbHeightC
	ax := (mb.Addr%p.WidthInMbs)*cw + x
	ay := (mb.Addr/p.WidthInMbs)*chh + y
	if ax < 0 || ay < 0 || ax >= p.WidthInMbs*cw || ay >= p.HeightInMbs*chh {
		return refSample{}
	}

	naddr := (ay/chh)*p.WidthInMbs + ax/cw
	if naddr == mb.Addr {
		return refSample{}
	}
	if ctx.pic.availableMb(naddr, ctx.PPS.ConstrainedIntraPred) == nil {
		return refSample{}
	}
	return refSample{v: p.chromaAt(c, ax, ay), ok: true}
}

// reconstruct applies intra prediction and the inverse transforms to mb,
// writing the reconstructed samples into the picture.
func (ctx *SliceContext) reconstruct(mb *Macroblock) error {
	// Transform bypass per clause 8.5.15; QP'Y equals QPY at 8 bit depth.
	bypass := ctx.SPS.QPPrimeYZeroTransformBypassFlag && mb.QPY == 0

	var err error
	switch mb.predMode() {
	case intra4x4:
		err = ctx.reconIntra4x4(mb, bypass)
	case intra8x8:
		err = ctx.reconIntra8x8(mb, bypass)
	case intra16x16:
		err = ctx.reconIntra16x16(mb, bypass)
	default:
		return errors.Errorf("unsupported prediction mode for mb_type %d", mb.MbType)
	}
	if err != nil {
		return err
	}

	if ctx.pic.ChromaArrayType == chroma420 {
		if err := ctx.reconChroma(mb, bypass); err != nil {
			return err
		}
	}
	return nil
}

// weight4x4 returns the active 4x4 scaling list i: the picture level list
// when the PPS carries one, the sequence level list otherwise.
func (ctx *SliceContext) weight4x4(i int) *[16]int {
	if ctx.PPS.PicScalingMatrixPresent {
		return &ctx.PPS.ScalingList4x4[i]
	}
	return &ctx.SPS.ScalingList4x4[i]
}

// weight8x8 returns the active 8x8 scaling list i.
func (ctx *SliceContext) weight8x8(i int) *[64]int {
	if ctx.PPS.PicScalingMatrixPresent {
		return &ctx.PPS.ScalingList8x8[i]
	}
	return &ctx.SPS.ScalingList8x8[i]
}

// reconIntra4x4 reconstructs the 16 4x4 luma blocks of an I_NxN macroblock
// per clause 8.3.1.
func (ctx *SliceContext) reconIntra4x4(mb *Macroblock, bypass bool) error {
	for blk := 0; blk < 16; blk++ {
		bx, by := luma4x4BlkPos(blk)
		mode := mb.Intra4x4PredMode[blk]

		// Reference samples: 1 upper left, 4 left, 4 above, 4 above right.
		var left, above, aboveRight [4]refSample
		for i := 0; i < 4; i++ {
			left[i] = ctx.lumaRef(mb, bx-1, by+i, blk)
			above[i] = ctx.lumaRef(mb, bx+i, by-1, blk)
			aboveRight[i] = ctx.lumaRef(mb, bx+4+i, by-1, blk)
		}
		upLeft := ctx.lumaRef(mb, bx-1, by-1, blk)

		// Unavailable above right samples take the rightmost above sample.
		if !aboveRight[0].ok && above[3].ok {
			for i := range aboveRight {
				aboveRight[i] = above[3]
			}
		}

		pred, err := predict4x4(mode, left, above, aboveRight, upLeft, ctx.pic.BitDepthY)
		if err != nil {
			return errors.Wrapf(err, "could not predict 4x4 block %d", blk)
		}

		// Residual.
		var res [4][4]int
		if mb.cbfLuma[blk] {
			if bypass {
				res = inverseScan4x4(mb.LumaAC[blk][:])
				applyBypassSums(&res, mode)
			} else {
				res = inverseScan4x4(mb.LumaAC[blk][:])
				scale4x4(&res, mb.QPY, ctx.weight4x4(0), false)
				inverseTransform4x4(&res)
			}
		}

		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				v := clip1y(pred[i][j]+res[i][j], ctx.pic.BitDepthY)
				ctx.setLumaMb(mb, bx+j, by+i, v)
			}
		}
	}
	return nil
}

// setLumaMb writes a luma sample at macroblock relative position (x, y).
func (ctx *SliceContext) setLumaMb(mb *Macroblock, x, y, v int) {
	p := ctx.pic
	p.setLuma((mb.Addr%p.WidthInMbs)*16+x, (mb.Addr/p.WidthInMbs)*16+y, v)
}

// setChromaMb writes a chroma sample of plane c at macroblock relative
// position (x, y).
func (ctx *SliceContext) setChromaMb(mb *Macroblock, c, x, y, v int) {
	p := ctx.pic
	p.setChroma(c, (mb.Addr%p.WidthInMbs)*p.MbWidthC+x, (mb.Addr/p.WidthInMbs)*p.MbHeightC+y, v)
}

// applyBypassSums applies the clause 8.5.15 cumulative sums for vertical
// and horizontal prediction under transform bypass.
func applyBypassSums(res *[4][4]int, mode int) {
	if mode != predVertical && mode != predHorizontal {
		return
	}
	rows := make([][]int, 4)
	for i := range rows {
		rows[i] = res[i][:]
	}
	bypassSums(rows, mode == predVertical)
}

// predict4x4 forms the 4x4 prediction block for the given mode per clause
// 8.3.1.2. The returned block is indexed [y][x].
func predict4x4(mode int, left, above, aboveRight [4]refSample, upLeft refSample, bitDepth int) ([4][4]int, error) {
	var pred [4][4]int

	// Flattened reference line p[-1..7][-1] for the diagonal modes.
	var top [8]int
	for i := 0; i < 4; i++ {
		top[i] = above[i].v
		top[i+4] = aboveRight[i].v
	}

	switch mode {
	case predVertical:
		if !above[0].ok {
			return pred, errRefUnavailable
		}
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				pred[y][x] = above[x].v
			}
		}

	case predHorizontal:
		if !left[0].ok {
			return pred, errRefUnavailable
		}
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				pred[y][x] = left[y].v
			}
		}

	case predDC:
		var sum, n int
		if left[0].ok {
			for i := 0; i < 4; i++ {
				sum += left[i].v
			}
			n += 4
		}
		if above[0].ok {
			for i := 0; i < 4; i++ {
				sum += above[i].v
			}
			n += 4
		}
		dc := 1 << uint(bitDepth-1)
		if n != 0 {
			dc = (sum + n/2) / n
		}
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				pred[y][x] = dc
			}
		}

	case predDiagDownLeft:
		if !above[0].ok {
			return pred, errRefUnavailable
		}
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				if x == 3 && y == 3 {
					pred[y][x] = (top[6] + 3*top[7] + 2) >> 2
				} else {
					pred[y][x] = (top[x+y] + 2*top[x+y+1] + top[x+y+2] + 2) >> 2
				}
			}
		}

	case predDiagDownRight:
		if !above[0].ok || !left[0].ok || !upLeft.ok {
			return pred, errRefUnavailable
		}
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				switch {
				case x > y:
					pred[y][x] = (tv(above, upLeft, x-y-2) + 2*tv(above, upLeft, x-y-1) + tv(above, upLeft, x-y) + 2) >> 2
				case x < y:
					pred[y][x] = (lu(left, upLeft, y-x-2) + 2*lu(left, upLeft, y-x-1) + lu(left, upLeft, y-x) + 2) >> 2
				default:
					pred[y][x] = (above[0].v + 2*upLeft.v + left[0].v + 2) >> 2
				}
			}
		}

	case predVerticalRight:
		if !above[0].ok || !left[0].ok || !upLeft.ok {
			return pred, errRefUnavailable
		}
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				z := 2*x - y
				switch {
				case z >= 0 && z%2 == 0:
					pred[y][x] = (tv(above, upLeft, x-y/2-1) + tv(above, upLeft, x-y/2) + 1) >> 1
				case z >= 0:
					pred[y][x] = (tv(above, upLeft, x-y/2-2) + 2*tv(above, upLeft, x-y/2-1) + tv(above, upLeft, x-y/2) + 2) >> 2
				case z == -1:
					pred[y][x] = (left[0].v + 2*upLeft.v + above[0].v + 2) >> 2
				default:
					pred[y][x] = (lu(left, upLeft, y-1) + 2*lu(left, upLeft, y-2) + lu(left, upLeft, y-3) + 2) >> 2
				}
			}
		}

	case predHorizontalDown:
		if !above[0].ok || !left[0].ok || !upLeft.ok {
			return pred, errRefUnavailable
		}
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				z := 2*y - x
				switch {
				case z >= 0 && z%2 == 0:
					pred[y][x] = (lu(left, upLeft, y-x/2-1) + lu(left, upLeft, y-x/2) + 1) >> 1
				case z >= 0:
					pred[y][x] = (lu(left, upLeft, y-x/2-2) + 2*lu(left, upLeft, y-x/2-1) + lu(left, upLeft, y-x/2) + 2) >> 2
				case z == -1:
					pred[y][x] = (above[0].v + 2*upLeft.v + left[0].v + 2) >> 2
				default:
					pred[y][x] = (tv(above, upLeft, x-1) + 2*tv(above, upLeft, x-2) + tv(above, upLeft, x-3) + 2) >> 2
				}
			}
		}

	case predVerticalLeft:
		if !above[0].ok {
			return pred, errRefUnavailable
		}
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				if y%2 == 0 {
					pred[y][x] = (top[x+y/2] + top[x+y/2+1] + 1) >> 1
				} else {
					pred[y][x] = (top[x+y/2] + 2*top[x+y/2+1] + top[x+y/2+2] + 2) >> 2
				}
			}
		}

	case predHorizontalUp:
		if !left[0].ok {
			return pred, errRefUnavailable
		}
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				z := x + 2*y
				switch {
				case z < 5 && z%2 == 0:
					pred[y][x] = (left[y+x/2].v + left[y+x/2+1].v + 1) >> 1
				case z < 5:
					pred[y][x] = (left[y+x/2].v + 2*left[y+x/2+1].v + left[y+x/2+2].v + 2) >> 2
				case z == 5:
					pred[y][x] = (left[2].v + 3*left[3].v + 2) >> 2
				default:
					pred[y][x] = left[3].v
				}
			}
		}

	default:
		return pred, errors.Errorf("invalid intra 4x4 prediction mode %d", mode)
	}
	return pred, nil
}

var errRefUnavailable = errors.New("required reference samples unavailable")

// tv returns the above reference row extended to the upper left sample at
// index -1.
func tv(above [4]refSample, upLeft refSample, i int) int {
	if i < 0 {
		return upLeft.v
	}
	if i > 3 {
		i = 3
	}
	return above[i].v
}

// lu returns the left reference column extended to the upper left sample
// at index -1.
func lu(left [4]refSample, upLeft refSample, i int) int {
	if i < 0 {
		return upLeft.v
	}
	if i > 3 {
		i = 3
	}
	return left[i].v
}

// reconIntra16x16 reconstructs an I_16x16 macroblock per clauses 8.3.3 and
// 8.5.10.
func (ctx *SliceContext) reconIntra16x16(mb *Macroblock, bypass bool) error {
	// Reference lines.
	var left, above [16]refSample
	for i := 0; i < 16; i++ {
		left[i] = ctx.lumaRef(mb, -1, i, 0)
		above[i] = ctx.lumaRef(mb, i, -1, 0)
	}
	upLeft := ctx.lumaRef(mb, -1, -1, 0)

	var pred [16][16]int
	switch mb.Intra16x16PredMode {
	case pred16x16Vertical:
		if !above[0].ok {
			return errRefUnavailable
		}
		for y := 0; y < 16; y++ {
			for x := 0; x < 16; x++ {
				pred[y][x] = above[x].v
			}
		}
	case pred16x16Horizontal:
		if !left[0].ok {
			return errRefUnavailable
		}
		for y := 0; y < 16; y++ {
			for x := 0; x < 16; x++ {
				pred[y][x] = left[y].v
			}
		}
	case pred16x16DC:
		var sum, n int
		if left[0].ok {
			for i := 0; i < 16; i++ {
				sum += left[i].v
			}
			n += 16
		}
		if above[0].ok {
			for i := 0; i < 16; i++ {
				sum += above[i].v
			}
			n += 16
		}
		dc := 1 << uint(ctx.pic.BitDepthY-1)
		if n != 0 {
			dc = (sum + n/2) / n
		}
		for y := 0; y < 16; y++ {
			for x := 0; x < 16; x++ {
				pred[y][x] = dc
			}
		}
	case pred16x16Plane:
		if !above[0].ok || !left[0].ok || !upLeft.ok {
			return errRefUnavailable
		}
		var h, v int
		for i := 0; i < 8; i++ {
			h += (i + 1) * (above[8+i].v - tv16(above, upLeft, 6-i))
			v += (i + 1) * (left[8+i].v - lu16(left, upLeft, 6-i))
		}
		a := 16 * (left[15].v + above[15].v)
		b := (5*h + 32) >> 6
		cc := (5*v + 32) >> 6
		for y := 0; y < 16; y++ {
			for x := 0; x < 16; x++ {
				pred[y][x] = clip1y((a+b*(x-7)+cc*(y-7)+16)>>5, ctx.pic.BitDepthY)
			}
		}
	default:
		return errors.Errorf("invalid intra 16x16 prediction mode %d", mb.Intra16x16PredMode)
	}

	// Residual: the DC levels transform as a 4x4 block, then each 4x4 AC
	// block carries its DC coefficient at position (0, 0).
	var res [16][16]int
	if bypass {
		dc := inverseScan4x4(mb.LumaDC[:])
		for blk := 0; blk < 16; blk++ {
			bx, by := luma4x4BlkPos(blk)
			ac := inverseScanAC4x4(mb.LumaAC[blk][:15])
			ac[0][0] = dc[by/4][bx/4]
			for i := 0; i < 4; i++ {
				for j := 0; j < 4; j++ {
					res[by+i][bx+j] = ac[i][j]
				}
			}
		}
		rows := make([][]int, 16)
		for i := range rows {
			rows[i] = res[i][:]
		}
		if mb.Intra16x16PredMode == pred16x16Vertical {
			bypassSums(rows, true)
		} else if mb.Intra16x16PredMode == pred16x16Horizontal {
			bypassSums(rows, false)
		}
	} else {
		dc := inverseScan4x4(mb.LumaDC[:])
		hadamard4x4(&dc)
		scaleLumaDC(&dc, mb.QPY, ctx.weight4x4(0))

		for blk := 0; blk < 16; blk++ {
			bx, by := luma4x4BlkPos(blk)
			ac := inverseScanAC4x4(mb.LumaAC[blk][:15])
			scale4x4(&ac, mb.QPY, ctx.weight4x4(0), true)
			ac[0][0] = dc[by/4][bx/4]
			inverseTransform4x4(&ac)
			for i := 0; i < 4; i++ {
				for j := 0; j < 4; j++ {
					res[by+i][bx+j] = ac[i][j]
				}
			}
		}
	}

	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			ctx.setLumaMb(mb, x, y, clip1y(pred[y][x]+res[y][x], ctx.pic.BitDepthY))
		}
	}
	return nil
}

// tv16 indexes the 16 sample above line extended to the upper left sample.
func tv16(above [16]refSample, upLeft refSample, i int) int {
	if i < 0 {
		return upLeft.v
	}
	return above[i].v
}

// lu16 indexes the 16 sample left line extended to the upper left sample.
func lu16(left [16]refSample, upLeft refSample, i int) int {
	if i < 0 {
		return upLeft.v
	}
	return left[i].v
}

// reconChroma reconstructs the two 8x8 chroma blocks of a macroblock for
// 4:2:0 coding, per clauses 8.3.4 and 8.5.11.
func (ctx *SliceContext) reconChroma(mb *Macroblock, bypass bool) error {
	for c := 0; c < 2; c++ {
		var left, above [8]refSample
		for i := 0; i < 8; i++ {
			left[i] = ctx.chromaRef(mb, c, -1, i)
			above[i] = ctx.chromaRef(mb, c, i, -1)
		}
		upLeft := ctx.chromaRef(mb, c, -1, -1)

		var pred [8][8]int
		switch mb.IntraChromaPredMode {
		case predChromaDC:
			ctx.predictChromaDC(&pred, left, above)
		case predChromaHorizontal:
			if !left[0].ok {
				return errRefUnavailable
			}
			for y := 0; y < 8; y++ {
				for x := 0; x < 8; x++ {
					pred[y][x] = left[y].v
				}
			}
		case predChromaVertical:
			if !above[0].ok {
				return errRefUnavailable
			}
			for y := 0; y < 8; y++ {
				for x := 0; x < 8; x++ {
					pred[y][x] = above[x].v
				}
			}
		case predChromaPlane:
			if !above[0].ok || !left[0].ok || !upLeft.ok {
				return errRefUnavailable
			}
			var h, v int
			for i := 0; i < 4; i++ {
				h += (i + 1) * (above[4+i].v - cu(above, upLeft, 2-i))
				v += (i + 1) * (left[4+i].v - cu(left, upLeft, 2-i))
			}
			a := 16 * (left[7].v + above[7].v)
			b := (34*h + 32) >> 6
			cc := (34*v + 32) >> 6
			for y := 0; y < 8; y++ {
				for x := 0; x < 8; x++ {
					pred[y][x] = clip1c((a+b*(x-3)+cc*(y-3)+16)>>5, ctx.pic.BitDepthC)
				}
			}
		default:
			return errors.Errorf("invalid intra chroma prediction mode %d", mb.IntraChromaPredMode)
		}

		// Residual.
		qpOff := ctx.PPS.ChromaQpIndexOffset
		wsIdx := 1
		if c == 1 {
			qpOff = ctx.PPS.SecondChromaQpIndexOffset
			wsIdx = 2
		}
		qpc := chromaQP(mb.QPY, qpOff)

		dc := mb.ChromaDC[c]
		if !bypass && mb.CodedBlockPatternChroma != 0 {
			chromaDCTransformQuant(&dc, qpc, ctx.weight4x4(wsIdx))
		}

		var res [8][8]int
		for blk := 0; blk < 4; blk++ {
			bx, by := chroma4x4BlkPos(blk)
			var ac [4][4]int
			if mb.CodedBlockPatternChroma == 2 {
				ac = inverseScanAC4x4(mb.ChromaAC[c][blk][:15])
			}
			if bypass {
				ac[0][0] = dc[blk]
			} else {
				scale4x4(&ac, qpc, ctx.weight4x4(wsIdx), true)
				ac[0][0] = dc[blk]
				if mb.CodedBlockPatternChroma != 0 {
					inverseTransform4x4(&ac)
				}
			}
			for i := 0; i < 4; i++ {
				for j := 0; j < 4; j++ {
					res[by+i][bx+j] = ac[i][j]
				}
			}
		}

		if bypass {
			rows := make([][]int, 8)
			for i := range rows {
				rows[i] = res[i][:]
			}
			if mb.IntraChromaPredMode == predChromaVertical {
				bypassSums(rows, true)
			} else if mb.IntraChromaPredMode == predChromaHorizontal {
				bypassSums(rows, false)
			}
		}

		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				ctx.setChromaMb(mb, c, x, y, clip1c(pred[y][x]+res[y][x], ctx.pic.BitDepthC))
			}
		}
	}
	return nil
}

// cu indexes a chroma reference line extended to the upper left sample.
func cu(line [8]refSample, upLeft refSample, i int) int {
	if i < 0 {
		return upLeft.v
	}
	return line[i].v
}

// predictChromaDC fills the chroma DC prediction: each 4x4 block averages
// its specific neighbour sets per clause 8.3.4.1, preferring the above
// samples for the upper right block and the left samples for the lower
// left block.
func (ctx *SliceContext) predictChromaDC(pred *[8][8]int, left, above [8]refSample) {
	fallback := 1 << uint(ctx.pic.BitDepthC-1)

	for blk := 0; blk < 4; blk++ {
		bx, by := chroma4x4BlkPos(blk)

		sumLeft, sumAbove := 0, 0
		okLeft, okAbove := left[0].ok, above[0].ok
		for i := 0; i < 4; i++ {
			sumLeft += left[by+i].v
			sumAbove += above[bx+i].v
		}

		var dc int
		corner := blk == 0 || blk == 3
		switch {
		case corner && okLeft && okAbove:
			dc = (sumLeft + sumAbove + 4) >> 3
		case blk == 1 && okAbove, corner && okAbove && !okLeft:
			dc = (sumAbove + 2) >> 2
		case blk == 2 && okLeft, corner && okLeft && !okAbove:
			dc = (sumLeft + 2) >> 2
		case blk == 1 && okLeft:
			dc = (sumLeft + 2) >> 2
		case blk == 2 && okAbove:
			dc = (sumAbove + 2) >> 2
		default:
			dc = fallback
		}

		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				pred[by+i][bx+j] = dc
			}
		}
	}
}
