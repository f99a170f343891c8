/*
DESCRIPTION
  spatial.go provides the spatial index arithmetic of the decoder: the
  inverse scans locating 4x4 and 8x8 blocks within a macroblock, and the
  derivation of neighbouring blocks across macroblock boundaries used by
  context selection and intra prediction.

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

// blk4x4Of8x8 lists the 4x4 block indices covered by each 8x8 block.
var blk4x4Of8x8 = [4][4]int{
	{0, 1, 2, 3},
	{4, 5, 6, 7},
	{8, 9, 10, 11},
	{12, 13, 14, 15},
}

// luma4x4BlkPos returns the upper left luma sample position of 4x4 block
// blkIdx within its macroblock, per the inverse scan of section 6.4.3.
func luma4x4BlkPos(blkIdx int) (x, y int) {
	x = (blkIdx/4%2)*8 + (blkIdx%4%2)*4
	y = (blkIdx/8)*8 + (blkIdx%4/2)*4
	return x, y
}

// luma4x4BlkIdx returns the 4x4 block index covering the luma sample
// position (x, y) within a macroblock, the inverse of luma4x4BlkPos.
func luma4x4BlkIdx(x, y int) int {
	return 8*(y/8) + 4*(x/8) + 2*(y%8/4) + x%8/4
}

// luma8x8BlkPos returns the upper left luma sample position of 8x8 block
// blk8 within its macroblock.
func luma8x8BlkPos(blk8 int) (x, y int) {
	return (blk8 % 2) * 8, (blk8 / 2) * 8
}

// chroma4x4BlkPos returns the upper left chroma sample position of 4x4
// block blkIdx within its macroblock; chroma blocks are in raster order.
func chroma4x4BlkPos(blkIdx int) (x, y int) {
	return (blkIdx % 2) * 4, (blkIdx / 2) * 4
}

// blkNeighbour is the result of a neighbouring block derivation: the
// macroblock holding the neighbour, nil when unavailable, and the block
// index within it.
type blkNeighbour struct {
	mb     *Macroblock
	blkIdx int
}

// luma4x4Neighbour derives the neighbouring 4x4 luma block to the left of
// (left true) or above (left false) 4x4 block blkIdx of mb, per section
// 6.4.11.4. constrained excludes non-intra neighbours, which cannot occur
// in an I slice but mirrors the constrained intra prediction rule.
func (ctx *SliceContext) luma4x4Neighbour(mb *Macroblock, blkIdx int, left, constrained bool) blkNeighbour {
	x, y := luma4x4BlkPos(blkIdx)
	if left {
		x -= 4
	} else {
		y -= 4
	}

	if x >= 0 && y >= 0 {
		return blkNeighbour{mb: mb, blkIdx: luma4x4BlkIdx(x, y)}
	}

	var n *Macroblock
	if x < 0 {
		n = ctx.pic.availableMb(mb.AddrA, constrained)
		x += 16
	} else {
		n = ctx.pic.availableMb(mb.AddrB, constrained)
		y += 16
	}
	if n == nil {
		return blkNeighbour{}
	}
	return blkNeighbour{mb: n, blkIdx: luma4x4BlkIdx(x, y)}
}

// luma8x8Neighbour derives the neighbouring 8x8 luma block to the left of
// or above 8x8 block blk8 of mb, per section 6.4.11.2.
func (ctx *SliceContext) luma8x8Neighbour(mb *Macroblock, blk8 int, left, constrained bool) blkNeighbour {
	x, y := blk8%2, blk8/2
	if left {
		x--
	} else {
		y--
	}

	if x >= 0 && y >= 0 {
		return blkNeighbour{mb: mb, blkIdx: y*2 + x}
	}

	var n *Macroblock
	if x < 0 {
		n = ctx.pic.availableMb(mb.AddrA, constrained)
		x += 2
	} else {
		n = ctx.pic.availableMb(mb.AddrB, constrained)
		y += 2
	}
	if n == nil {
		return blkNeighbour{}
	}
	return blkNeighbour{mb: n, blkIdx: y*2 + x}
}

// chroma4x4Neighbour derives the neighbouring 4x4 chroma block to the left
// of or above chroma block blkIdx of mb for 4:2:0 coding, per section
// 6.4.11.5.
func (ctx *SliceContext) chroma4x4Neighbour(mb *Macroblock, blkIdx int, left, constrained bool) blkNeighbour {
	x, y := blkIdx%2, blkIdx/2
	if left {
		x--
	} else {
		y--
	}

	if x >= 0 && y >= 0 {
		return blkNeighbour{mb: mb, blkIdx: y*2 + x}
	}

	var n *Macroblock
	if x < 0 {
		n = ctx.pic.availableMb(mb.AddrA, constrained)
		x += 2
	} else {
		n = ctx.pic.availableMb(mb.AddrB, constrained)
		y += 2
	}
	if n == nil {
		return blkNeighbour{}
	}
	return blkNeighbour{mb: n, blkIdx: y*2 + x}
}
