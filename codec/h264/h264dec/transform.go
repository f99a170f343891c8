/*
DESCRIPTION
  transform.go provides the inverse scanning, scaling and transform
  processes of clause 8.5 of ITU-T H.264: the zig-zag scans, the LevelScale
  derivation from the normAdjust tables and scaling matrices, the 4x4 and
  8x8 inverse integer transforms, the Hadamard transforms of the DC levels,
  and the transform bypass of clause 8.5.15.

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

// zigZag4x4 maps a scanning position to its raster index within a 4x4
// block, per the zig-zag scan of table 8-13.
var zigZag4x4 = [16]int{
	0, 1, 4, 8,
	5, 2, 3, 6,
	9, 12, 13, 10,
	7, 11, 14, 15,
}

// zigZag8x8 maps a scanning position to its raster index within an 8x8
// block, per the 8x8 zig-zag scan of table 8-14.
var zigZag8x8 = [64]int{
	0, 1, 8, 16, 9, 2, 3, 10,
	17, 24, 32, 25, 18, 11, 4, 5,
	12, 19, 26, 33, 40, 48, 41, 34,
	27, 20, 13, 6, 7, 14, 21, 28,
	35, 42, 49, 56, 57, 50, 43, 36,
	29, 22, 15, 23, 30, 37, 44, 51,
	58, 59, 52, 45, 38, 31, 39, 46,
	53, 60, 61, 54, 47, 55, 62, 63,
}

// normAdjust4x4 provides the quantisation norm adjustment of eq 8-264,
// indexed by qP%6 and the coefficient position class.
var normAdjust4x4 = [6][3]int{
	{10, 16, 13},
	{11, 18, 14},
	{13, 20, 16},
	{14, 23, 18},
	{16, 25, 20},
	{18, 29, 23},
}

// normAdjust8x8 provides the 8x8 norm adjustment of eq 8-272, indexed by
// qP%6 and the coefficient position class.
var normAdjust8x8 = [6][6]int{
	{20, 18, 32, 19, 25, 24},
	{22, 19, 35, 21, 28, 26},
	{26, 23, 42, 24, 33, 31},
	{28, 25, 45, 26, 35, 33},
	{32, 28, 51, 30, 40, 38},
	{36, 32, 58, 34, 46, 43},
}

// normAdjustIdx4x4 classifies position (i, j) of a 4x4 block for
// normAdjust4x4.
func normAdjustIdx4x4(i, j int) int {
	switch {
	case i%2 == 0 && j%2 == 0:
		return 0
	case i%2 == 1 && j%2 == 1:
		return 1
	}
	return 2
}

// normAdjustIdx8x8 classifies position (i, j) of an 8x8 block for
// normAdjust8x8.
func normAdjustIdx8x8(i, j int) int {
	switch {
	case i%4 == 0 && j%4 == 0:
		return 0
	case i%2 == 1 && j%2 == 1:
		return 1
	case i%4 == 2 && j%4 == 2:
		return 2
	case i%4 == 0 && j%2 == 1 || i%2 == 1 && j%4 == 0:
		return 3
	case i%4 == 0 && j%4 == 2 || i%4 == 2 && j%4 == 0:
		return 4
	}
	return 5
}

// levelScale4x4 returns LevelScale4x4(m, i, j) of eq 8-262 for the given
// scaling list.
func levelScale4x4(m int, weightScale *[16]int, i, j int) int {
	return weightScale[i*4+j] * normAdjust4x4[m][normAdjustIdx4x4(i, j)]
}

// levelScale8x8 returns LevelScale8x8(m, i, j) of eq 8-270.
func levelScale8x8(m int, weightScale *[64]int, i, j int) int {
	return weightScale[i*8+j] * normAdjust8x8[m][normAdjustIdx8x8(i, j)]
}

// inverseScan4x4 places 16 levels in scanning order into a 4x4 raster
// block.
func inverseScan4x4(level []int) (blk [4][4]int) {
	for k, idx := range zigZag4x4 {
		if k >= len(level) {
			break
		}
		blk[idx/4][idx%4] = level[k]
	}
	return blk
}

// inverseScanAC4x4 places 15 AC levels (scanning positions 1 to 15) into a
// 4x4 raster block, leaving position (0, 0) for the separately decoded DC.
func inverseScanAC4x4(level []int) (blk [4][4]int) {
	for k := 0; k < len(level) && k < 15; k++ {
		idx := zigZag4x4[k+1]
		blk[idx/4][idx%4] = level[k]
	}
	return blk
}

// inverseScan8x8 places 64 levels in scanning order into an 8x8 raster
// block.
func inverseScan8x8(level []int) (blk [8][8]int) {
	for k, idx := range zigZag8x8 {
		blk[idx/8][idx%8] = level[k]
	}
	return blk
}

// scale4x4 applies the residual scaling of clause 8.5.12.1 to a 4x4 block
// of levels. dcSkip skips position (0, 0), used when the DC coefficient was
// decoded and scaled separately.
func scale4x4(blk *[4][4]int, qP int, weightScale *[16]int, dcSkip bool) {
	m := qP % 6
	shift := qP / 6
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if dcSkip && i == 0 && j == 0 {
				continue
			}
			ls := levelScale4x4(m, weightScale, i, j)
			if qP >= 24 {
				blk[i][j] = (blk[i][j] * ls) << uint(shift-4)
			} else {
				blk[i][j] = (blk[i][j]*ls + 1<<uint(3-shift)) >> uint(4-shift)
			}
		}
	}
}

// inverseTransform4x4 applies the 4x4 inverse integer transform butterfly
// of clause 8.5.12.2, including the final (x + 32) >> 6 rounding, in place.
func inverseTransform4x4(d *[4][4]int) {
	var e [4][4]int

	// Horizontal.
	for i := 0; i < 4; i++ {
		e0 := d[i][0] + d[i][2]
		e1 := d[i][0] - d[i][2]
		e2 := d[i][1]>>1 - d[i][3]
		e3 := d[i][1] + d[i][3]>>1
		e[i][0] = e0 + e3
		e[i][1] = e1 + e2
		e[i][2] = e1 - e2
		e[i][3] = e0 - e3
	}

	// Vertical.
	for j := 0; j < 4; j++ {
		g0 := e[0][j] + e[2][j]
		g1 := e[0][j] - e[2][j]
		g2 := e[1][j]>>1 - e[3][j]
		g3 := e[1][j] + e[3][j]>>1
		d[0][j] = (g0 + g3 + 32) >> 6
		d[1][j] = (g1 + g2 + 32) >> 6
		d[2][j] = (g1 - g2 + 32) >> 6
		d[3][j] = (g0 - g3 + 32) >> 6
	}
}

// hadamard4x4 applies the 4x4 Hadamard transform of clause 8.5.10 to the
// Intra_16x16 DC levels, in place.
func hadamard4x4(c *[4][4]int) {
	var e [4][4]int
	for i := 0; i < 4; i++ {
		s0 := c[i][0] + c[i][2]
		s1 := c[i][0] - c[i][2]
		s2 := c[i][1] - c[i][3]
		s3 := c[i][1] + c[i][3]
		e[i][0] = s0 + s3
		e[i][1] = s1 + s2
		e[i][2] = s1 - s2
		e[i][3] = s0 - s3
	}
	for j := 0; j < 4; j++ {
		s0 := e[0][j] + e[2][j]
		s1 := e[0][j] - e[2][j]
		s2 := e[1][j] - e[3][j]
		s3 := e[1][j] + e[3][j]
		c[0][j] = s0 + s3
		c[1][j] = s1 + s2
		c[2][j] = s1 - s2
		c[3][j] = s0 - s3
	}
}

// scaleLumaDC applies the Intra_16x16 DC scaling of clause 8.5.10 after
// the Hadamard transform.
func scaleLumaDC(c *[4][4]int, qP int, weightScale *[16]int) {
	ls := levelScale4x4(qP%6, weightScale, 0, 0)
	shift := qP / 6
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if qP >= 36 {
				c[i][j] = (c[i][j] * ls) << uint(shift-6)
			} else {
				c[i][j] = (c[i][j]*ls + 1<<uint(5-shift)) >> uint(6-shift)
			}
		}
	}
}

// chromaDCTransformQuant applies the 2x2 Hadamard transform and scaling of
// clause 8.5.11 to the four chroma DC levels of one component.
func chromaDCTransformQuant(c *[4]int, qP int, weightScale *[16]int) {
	f0 := c[0] + c[1] + c[2] + c[3]
	f1 := c[0] - c[1] + c[2] - c[3]
	f2 := c[0] + c[1] - c[2] - c[3]
	f3 := c[0] - c[1] - c[2] + c[3]

	ls := levelScale4x4(qP%6, weightScale, 0, 0)
	shift := qP / 6
	c[0] = ((f0 * ls) << uint(shift)) >> 5
	c[1] = ((f1 * ls) << uint(shift)) >> 5
	c[2] = ((f2 * ls) << uint(shift)) >> 5
	c[3] = ((f3 * ls) << uint(shift)) >> 5
}

// scale8x8 applies the 8x8 residual scaling of clause 8.5.13.1.
func scale8x8(blk *[8][8]int, qP int, weightScale *[64]int) {
	m := qP % 6
	shift := qP / 6
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			ls := levelScale8x8(m, weightScale, i, j)
			if qP >= 36 {
				blk[i][j] = (blk[i][j] * ls) << uint(shift-6)
			} else {
				blk[i][j] = (blk[i][j]*ls + 1<<uint(5-shift)) >> uint(6-shift)
			}
		}
	}
}

// inverseTransform8x8 applies the 8x8 inverse integer transform butterfly
// of clause 8.5.13.2, including the final (x + 32) >> 6 rounding, in place.
func inverseTransform8x8(d *[8][8]int) {
	var g [8][8]int

	// Horizontal.
	for i := 0; i < 8; i++ {
		e0 := d[i][0] + d[i][4]
		e1 := -d[i][3] + d[i][5] - d[i][7] - d[i][7]>>1
		e2 := d[i][0] - d[i][4]
		e3 := d[i][1] + d[i][7] - d[i][3] - d[i][3]>>1
		e4 := d[i][2]>>1 - d[i][6]
		e5 := -d[i][1] + d[i][7] + d[i][5] + d[i][5]>>1
		e6 := d[i][2] + d[i][6]>>1
		e7 := d[i][3] + d[i][5] + d[i][1] + d[i][1]>>1

		f0 := e0 + e6
		f1 := e1 + e7>>2
		f2 := e2 + e4
		f3 := e3 + e5>>2
		f4 := e2 - e4
		f5 := e3>>2 - e5
		f6 := e0 - e6
		f7 := e7 - e1>>2

		g[i][0] = f0 + f7
		g[i][1] = f2 + f5
		g[i][2] = f4 + f3
		g[i][3] = f6 + f1
		g[i][4] = f6 - f1
		g[i][5] = f4 - f3
		g[i][6] = f2 - f5
		g[i][7] = f0 - f7
	}

	// Vertical.
	for j := 0; j < 8; j++ {
		e0 := g[0][j] + g[4][j]
		e1 := -g[3][j] + g[5][j] - g[7][j] - g[7][j]>>1
		e2 := g[0][j] - g[4][j]
		e3 := g[1][j] + g[7][j] - g[3][j] - g[3][j]>>1
		e4 := g[2][j]>>1 - g[6][j]
		e5 := -g[1][j] + g[7][j] + g[5][j] + g[5][j]>>1
		e6 := g[2][j] + g[6][j]>>1
		e7 := g[3][j] + g[5][j] + g[1][j] + g[1][j]>>1

		f0 := e0 + e6
		f1 := e1 + e7>>2
		f2 := e2 + e4
		f3 := e3 + e5>>2
		f4 := e2 - e4
		f5 := e3>>2 - e5
		f6 := e0 - e6
		f7 := e7 - e1>>2

		d[0][j] = (f0 + f7 + 32) >> 6
		d[1][j] = (f2 + f5 + 32) >> 6
		d[2][j] = (f4 + f3 + 32) >> 6
		d[3][j] = (f6 + f1 + 32) >> 6
		d[4][j] = (f6 - f1 + 32) >> 6
		d[5][j] = (f4 - f3 + 32) >> 6
		d[6][j] = (f2 - f5 + 32) >> 6
		d[7][j] = (f0 - f7 + 32) >> 6
	}
}

// qpcTable maps a clipped chroma qPI in the range 30 to 51 to QPC, per
// table 8-15. Below 30 QPC equals qPI.
var qpcTable = [22]int{
	29, 30, 31, 32, 32, 33, 34, 34, 35, 35, 36, 36,
	37, 37, 37, 38, 38, 38, 39, 39, 39, 39,
}

// chromaQP derives the chroma quantisation parameter from the luma QPY and
// the PPS chroma QP index offset, per clause 8.5.8.
func chromaQP(qpy, offset int) int {
	qpi := clip3(0, 51, qpy+offset)
	if qpi < 30 {
		return qpi
	}
	return qpcTable[qpi-30]
}

// bypassSums applies the cumulative summation of clause 8.5.15 used when
// transform bypass is active with an intra vertical (vertical true) or
// horizontal prediction mode: each sample accumulates the residuals above
// it in its column, or to its left in its row.
func bypassSums(blk [][]int, vertical bool) {
	n := len(blk)
	if vertical {
		for j := 0; j < n; j++ {
			for i := 1; i < n; i++ {
				blk[i][j] += blk[i-1][j]
			}
		}
		return
	}
	for i := 0; i < n; i++ {
		for j := 1; j < n; j++ {
			blk[i][j] += blk[i][j-1]
		}
	}
}
