/*
DESCRIPTION
  intrapred_test.go provides testing for the intra prediction sample
  processes and macroblock reconstruction.

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

// testSPS returns an SPS describing a small 4:2:0 frame picture.
func testSPS(widthInMbs, heightInMbs int) *SPS {
	sps := &SPS{
		ChromaFormatIDC:           chroma420,
		PicWidthInMBSMinus1:       uint64(widthInMbs - 1),
		PicHeightInMapUnitsMinus1: uint64(heightInMbs - 1),
		FrameMBSOnlyFlag:          true,
	}
	flatScalingMatrices(sps)
	return sps
}

func testSliceContext(widthInMbs, heightInMbs int) *SliceContext {
	sps := testSPS(widthInMbs, heightInMbs)
	return &SliceContext{
		VideoStream: &VideoStream{SPS: sps, PPS: &PPS{}},
		Header:      &SliceHeader{SliceType: sliceTypeI},
		pic:         NewPicture(sps),
		QPY:         26,
	}
}

// TestPredict4x4DCNoRefs checks the DC fallback: with every reference
// unavailable the block fills with 1 << (BitDepthY - 1).
func TestPredict4x4DCNoRefs(t *testing.T) {
	var left, above, aboveRight [4]refSample
	pred, err := predict4x4(predDC, left, above, aboveRight, refSample{}, 8)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	for i := range pred {
		for j := range pred[i] {
			if pred[i][j] != 128 {
				t.Fatalf("did not get expected sample at (%d, %d).\nGot: %d\nWant: %d", i, j, pred[i][j], 128)
			}
		}
	}
}

func TestPredict4x4Vertical(t *testing.T) {
	var left, aboveRight [4]refSample
	above := [4]refSample{{10, true}, {20, true}, {30, true}, {40, true}}
	pred, err := predict4x4(predVertical, left, above, aboveRight, refSample{}, 8)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if pred[y][x] != above[x].v {
				t.Fatalf("did not get expected sample at (%d, %d).\nGot: %d\nWant: %d", y, x, pred[y][x], above[x].v)
			}
		}
	}
}

func TestPredict4x4Horizontal(t *testing.T) {
	var above, aboveRight [4]refSample
	left := [4]refSample{{7, true}, {8, true}, {9, true}, {10, true}}
	pred, err := predict4x4(predHorizontal, left, above, aboveRight, refSample{}, 8)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if pred[y][x] != left[y].v {
				t.Fatalf("did not get expected sample at (%d, %d).\nGot: %d\nWant: %d", y, x, pred[y][x], left[y].v)
			}
		}
	}
}

func TestPredict4x4VerticalNeedsRefs(t *testing.T) {
	var left, above, aboveRight [4]refSample
	if _, err := predict4x4(predVertical, left, above, aboveRight, refSample{}, 8); err != errRefUnavailable {
		t.Errorf("did not get expected error.\nGot: %v\nWant: %v", err, errRefUnavailable)
	}
}

// TestPredict4x4DCPartialRefs checks averaging with only one side
// available.
func TestPredict4x4DCPartialRefs(t *testing.T) {
	var left, aboveRight [4]refSample
	above := [4]refSample{{10, true}, {20, true}, {30, true}, {40, true}}
	pred, err := predict4x4(predDC, left, above, aboveRight, refSample{}, 8)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	want := (10 + 20 + 30 + 40 + 2) / 4
	if pred[0][0] != want {
		t.Errorf("did not get expected DC.\nGot: %d\nWant: %d", pred[0][0], want)
	}
}

// TestIntra16x16DCTopLeft checks the end to end DC reconstruction of the
// top left macroblock: with A and B unavailable and zero residual every
// output luma sample is 1 << (BitDepthY - 1).
func TestIntra16x16DCTopLeft(t *testing.T) {
	ctx := testSliceContext(2, 2)

	mb := &Macroblock{Addr: 0, QPY: 26}
	mb.AddrA, mb.AddrB, mb.AddrC, mb.AddrD = ctx.pic.neighbourAddrs(0)
	mb.MbType = 3 // I_16x16_2_0_0: DC prediction, no coded blocks.
	mb.applyI16x16Type()
	if mb.Intra16x16PredMode != pred16x16DC {
		t.Fatalf("did not get expected prediction mode.\nGot: %d\nWant: %d", mb.Intra16x16PredMode, pred16x16DC)
	}

	if err := ctx.reconIntra16x16(mb, false); err != nil {
		t.Fatalf("did not expect error: %v", err)
	}

	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			if got := ctx.pic.lumaAt(x, y); got != 128 {
				t.Fatalf("did not get expected sample at (%d, %d).\nGot: %d\nWant: %d", x, y, got, 128)
			}
		}
	}
}

// TestChromaDCNoRefs checks the chroma DC fallback on an isolated
// macroblock.
func TestChromaDCNoRefs(t *testing.T) {
	ctx := testSliceContext(1, 1)
	mb := &Macroblock{Addr: 0, QPY: 26, MbType: 3}
	mb.AddrA, mb.AddrB, mb.AddrC, mb.AddrD = ctx.pic.neighbourAddrs(0)
	mb.applyI16x16Type()

	if err := ctx.reconChroma(mb, false); err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	for c := 0; c < 2; c++ {
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				if got := ctx.pic.chromaAt(c, x, y); got != 128 {
					t.Fatalf("did not get expected chroma sample at (%d, %d, %d).\nGot: %d\nWant: %d", c, x, y, got, 128)
				}
			}
		}
	}
}

// TestNeighbourAddrs checks the neighbour derivation formulas.
func TestNeighbourAddrs(t *testing.T) {
	p := NewPicture(testSPS(4, 3))

	tests := []struct {
		addr       int
		a, b, c, d int
	}{
		{0, mbAddrNotAvailable, mbAddrNotAvailable, mbAddrNotAvailable, mbAddrNotAvailable},
		{1, 0, mbAddrNotAvailable, mbAddrNotAvailable, mbAddrNotAvailable},
		{4, mbAddrNotAvailable, 0, 1, mbAddrNotAvailable},
		{5, 4, 1, 2, 0},
		{7, 6, 3, mbAddrNotAvailable, 2},
		{8, mbAddrNotAvailable, 4, 5, mbAddrNotAvailable},
		{11, 10, 7, mbAddrNotAvailable, 6},
	}
	for _, test := range tests {
		a, b, c, d := p.neighbourAddrs(test.addr)
		if a != test.a || b != test.b || c != test.c || d != test.d {
			t.Errorf("did not get expected neighbours for %d.\nGot: (%d %d %d %d)\nWant: (%d %d %d %d)",
				test.addr, a, b, c, d, test.a, test.b, test.c, test.d)
		}
	}
}

// TestPredIntraPredMode checks the most probable mode rule.
func TestPredIntraPredMode(t *testing.T) {
	ctx := testSliceContext(2, 1)

	// Isolated block: both neighbours unavailable, DC is most probable.
	mb := &Macroblock{Addr: 0}
	mb.AddrA, mb.AddrB, mb.AddrC, mb.AddrD = ctx.pic.neighbourAddrs(0)
	if got := ctx.predIntraPredMode(mb, 0, false); got != 2 {
		t.Errorf("did not get expected mode.\nGot: %d\nWant: %d", got, 2)
	}

	// With a decoded left neighbour, the minimum of the neighbour modes
	// wins; the above neighbour is still unavailable so DC is substituted.
	left := &Macroblock{Addr: 0, MbType: mbTypeINxN}
	for i := range left.Intra4x4PredMode {
		left.Intra4x4PredMode[i] = predVertical
	}
	ctx.pic.mbs[0] = left

	mb = &Macroblock{Addr: 1}
	mb.AddrA, mb.AddrB, mb.AddrC, mb.AddrD = ctx.pic.neighbourAddrs(1)
	if got := ctx.predIntraPredMode(mb, 0, false); got != predVertical {
		t.Errorf("did not get expected mode.\nGot: %d\nWant: %d", got, predVertical)
	}
}
