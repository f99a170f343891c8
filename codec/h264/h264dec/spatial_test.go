/*
DESCRIPTION
  spatial_test.go provides testing for block index arithmetic and
  neighbouring block derivation.

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

import "testing"

func TestLuma4x4BlkPos(t *testing.T) {
	tests := []struct {
		blk  int
		x, y int
	}{
		{0, 0, 0},
		{1, 4, 0},
		{2, 0, 4},
		{3, 4, 4},
		{4, 8, 0},
		{5, 12, 0},
		{7, 12, 4},
		{8, 0, 8},
		{10, 0, 12},
		{15, 12, 12},
	}
	for _, test := range tests {
		x, y := luma4x4BlkPos(test.blk)
		if x != test.x || y != test.y {
			t.Errorf("did not get expected position for block %d.\nGot: (%d, %d)\nWant: (%d, %d)", test.blk, x, y, test.x, test.y)
		}
	}
}

func TestLuma4x4BlkIdxRoundTrip(t *testing.T) {
	for blk := 0; blk < 16; blk++ {
		x, y := luma4x4BlkPos(blk)
		if got := luma4x4BlkIdx(x, y); got != blk {
			t.Errorf("round trip failed for block %d, got %d", blk, got)
		}
	}
}

func TestLuma4x4NeighbourWithinMb(t *testing.T) {
	ctx := testSliceContext(2, 2)
	mb := &Macroblock{Addr: 3}
	mb.AddrA, mb.AddrB, mb.AddrC, mb.AddrD = ctx.pic.neighbourAddrs(3)

	// Block 3's left neighbour is block 2, above is block 1.
	if n := ctx.luma4x4Neighbour(mb, 3, true, false); n.mb != mb || n.blkIdx != 2 {
		t.Errorf("did not get expected left neighbour.\nGot: %v, %d", n.mb, n.blkIdx)
	}
	if n := ctx.luma4x4Neighbour(mb, 3, false, false); n.mb != mb || n.blkIdx != 1 {
		t.Errorf("did not get expected above neighbour.\nGot: %v, %d", n.mb, n.blkIdx)
	}

	// Block 4's left neighbour crosses the 8x8 boundary to block 1.
	if n := ctx.luma4x4Neighbour(mb, 4, true, false); n.mb != mb || n.blkIdx != 1 {
		t.Errorf("did not get expected left neighbour of block 4.\nGot: %v, %d", n.mb, n.blkIdx)
	}
}

func TestLuma4x4NeighbourAcrossMb(t *testing.T) {
	ctx := testSliceContext(2, 2)

	left := &Macroblock{Addr: 2}
	above := &Macroblock{Addr: 1}
	ctx.pic.mbs[2] = left
	ctx.pic.mbs[1] = above

	mb := &Macroblock{Addr: 3}
	mb.AddrA, mb.AddrB, mb.AddrC, mb.AddrD = ctx.pic.neighbourAddrs(3)

	// Block 0's left neighbour is block 5 of the A macroblock: x wraps from
	// -1 to 15, within the top row.
	if n := ctx.luma4x4Neighbour(mb, 0, true, false); n.mb != left || n.blkIdx != luma4x4BlkIdx(15, 0) {
		t.Errorf("did not get expected cross-mb left neighbour.\nGot: %v, %d", n.mb, n.blkIdx)
	}
	// Block 0's above neighbour is the bottom row of the B macroblock.
	if n := ctx.luma4x4Neighbour(mb, 0, false, false); n.mb != above || n.blkIdx != luma4x4BlkIdx(0, 15) {
		t.Errorf("did not get expected cross-mb above neighbour.\nGot: %v, %d", n.mb, n.blkIdx)
	}

	// An undecoded neighbour is unavailable.
	mb2 := &Macroblock{Addr: 0}
	mb2.AddrA, mb2.AddrB, mb2.AddrC, mb2.AddrD = ctx.pic.neighbourAddrs(0)
	if n := ctx.luma4x4Neighbour(mb2, 0, true, false); n.mb != nil {
		t.Error("expected unavailable neighbour at picture edge")
	}
}

func TestChroma4x4Neighbour(t *testing.T) {
	ctx := testSliceContext(2, 1)
	left := &Macroblock{Addr: 0}
	ctx.pic.mbs[0] = left

	mb := &Macroblock{Addr: 1}
	mb.AddrA, mb.AddrB, mb.AddrC, mb.AddrD = ctx.pic.neighbourAddrs(1)

	if n := ctx.chroma4x4Neighbour(mb, 0, true, false); n.mb != left || n.blkIdx != 1 {
		t.Errorf("did not get expected chroma left neighbour.\nGot: %v, %d", n.mb, n.blkIdx)
	}
	if n := ctx.chroma4x4Neighbour(mb, 3, true, false); n.mb != mb || n.blkIdx != 2 {
		t.Errorf("did not get expected chroma in-mb neighbour.\nGot: %v, %d", n.mb, n.blkIdx)
	}
	if n := ctx.chroma4x4Neighbour(mb, 0, false, false); n.mb != nil {
		t.Error("expected unavailable chroma neighbour above top row")
	}
}

func TestBlk4x4Of8x8(t *testing.T) {
	seen := map[int]bool{}
	for blk8 := 0; blk8 < 4; blk8++ {
		for _, b := range blk4x4Of8x8[blk8] {
			if seen[b] {
				t.Fatalf("block %d appears twice", b)
			}
			seen[b] = true
			if b/4 != blk8 {
				t.Errorf("block %d not within 8x8 block %d", b, blk8)
			}
		}
	}
}
