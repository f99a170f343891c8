/*
DESCRIPTION
  picture.go provides the picture under construction: the luma and chroma
  sample planes written by macroblock reconstruction, and the macroblock
  arena indexed by raster address used for neighbour lookups.

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

// mbAddrNotAvailable tags a neighbour macroblock address as unavailable.
const mbAddrNotAvailable = -1

// Picture is one picture under construction: sample planes plus the
// macroblock arena. The arena is allocated once per picture, sized
// PicWidthInMbs x PicHeightInMbs, and populated in raster order.
type Picture struct {
	// Picture dimensions in macroblocks and in samples.
	WidthInMbs, HeightInMbs int
	Width, Height           int

	// Chroma macroblock dimensions; zero for monochrome.
	MbWidthC, MbHeightC int

	// Luma and chroma sample planes, row major.
	SL       []int
	SCb, SCr []int

	// ChromaArrayType from the active SPS.
	ChromaArrayType int

	// Bit depths from the active SPS.
	BitDepthY, BitDepthC int

	// mbs is the macroblock arena; a nil entry has not been decoded.
	mbs []*Macroblock
}

// NewPicture allocates a picture for the dimensions of the given SPS.
func NewPicture(sps *SPS) *Picture {
	p := &Picture{
		WidthInMbs:      sps.PicWidthInMbs(),
		HeightInMbs:     sps.PicHeightInMbs(),
		ChromaArrayType: sps.ChromaArrayType(),
		BitDepthY:       sps.BitDepthY(),
		BitDepthC:       sps.BitDepthC(),
	}
	p.Width = p.WidthInMbs * 16
	p.Height = p.HeightInMbs * 16
	p.SL = make([]int, p.Width*p.Height)

	switch p.ChromaArrayType {
	case chroma420:
		p.MbWidthC, p.MbHeightC = 8, 8
	case chroma422:
		p.MbWidthC, p.MbHeightC = 8, 16
	case chroma444:
		p.MbWidthC, p.MbHeightC = 16, 16
	}
	if p.MbWidthC != 0 {
		cw := p.WidthInMbs * p.MbWidthC
		ch := p.HeightInMbs * p.MbHeightC
		p.SCb = make([]int, cw*ch)
		p.SCr = make([]int, cw*ch)
	}

	p.mbs = make([]*Macroblock, p.WidthInMbs*p.HeightInMbs)
	return p
}

// Mb returns the decoded macroblock at addr, or nil if addr is out of range
// or not yet decoded.
func (p *Picture) Mb(addr int) *Macroblock {
	if addr < 0 || addr >= len(p.mbs) {
		return nil
	}
	return p.mbs[addr]
}

// neighbourAddrs derives the A (left), B (above), C (above right) and D
// (above left) neighbour addresses of mbAddr, per section 6.4.9 restricted
// to frame coding. Unavailable neighbours are mbAddrNotAvailable.
func (p *Picture) neighbourAddrs(mbAddr int) (a, b, c, d int) {
	w := p.WidthInMbs
	a, b, c, d = mbAddrNotAvailable, mbAddrNotAvailable, mbAddrNotAvailable, mbAddrNotAvailable

	if mbAddr%w != 0 {
		a = mbAddr - 1
	}
	if mbAddr-w >= 0 {
		b = mbAddr - w
	}
	if mbAddr-w+1 >= 0 && (mbAddr+1)%w != 0 {
		c = mbAddr - w + 1
	}
	if mbAddr-w-1 >= 0 && mbAddr%w != 0 {
		d = mbAddr - w - 1
	}
	return a, b, c, d
}

// availableMb returns the macroblock at addr if it exists, has been
// decoded, and is usable for intra prediction under the constrained intra
// prediction rule; nil otherwise.
func (p *Picture) availableMb(addr int, constrained bool) *Macroblock {
	mb := p.Mb(addr)
	if mb == nil {
		return nil
	}
	if constrained && !mb.IsIntra() {
		return nil
	}
	return mb
}

// lumaAt returns the reconstructed luma sample at (x, y), in picture
// coordinates.
func (p *Picture) lumaAt(x, y int) int {
	return p.SL[y*p.Width+x]
}

// setLuma writes the reconstructed luma sample at (x, y).
func (p *Picture) setLuma(x, y, v int) {
	p.SL[y*p.Width+x] = v
}

// chromaAt returns the reconstructed chroma sample at (x, y) of plane c
// (0 Cb, 1 Cr).
func (p *Picture) chromaAt(c, x, y int) int {
	cw := p.WidthInMbs * p.MbWidthC
	if c == 0 {
		return p.SCb[y*cw+x]
	}
	return p.SCr[y*cw+x]
}

// setChroma writes the reconstructed chroma sample at (x, y) of plane c.
func (p *Picture) setChroma(c, x, y, v int) {
	cw := p.WidthInMbs * p.MbWidthC
	if c == 0 {
		p.SCb[y*cw+x] = v
	} else {
		p.SCr[y*cw+x] = v
	}
}
