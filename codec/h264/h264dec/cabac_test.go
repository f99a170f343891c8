/*
DESCRIPTION
  cabac_test.go provides testing for the arithmetic decoding engine.

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
	"bytes"
	"testing"

	"github.com/ausocean/mediaprobe/bits"
)

func newTestEngine(t *testing.T, qpy int, stream string) *cabac {
	t.Helper()
	b, err := binToSlice(stream)
	if err != nil {
		t.Fatalf("could not parse binary string: %v", err)
	}
	c, err := newCABAC(qpy, bits.NewBitReader(bytes.NewReader(b)))
	if err != nil {
		t.Fatalf("could not create engine: %v", err)
	}
	return c
}

func TestPreCtxState(t *testing.T) {
	tests := []struct {
		m, n, qpy int
		want      int
	}{
		{20, -15, 26, 17},
		{2, 54, 26, 57},
		{0, 0, 26, 1},
		{-128, 126, 51, 1},
		{127, 127, 51, 126},
	}
	for i, test := range tests {
		if got := preCtxState(test.m, test.n, test.qpy); got != test.want {
			t.Errorf("did not get expected result for test %d.\nGot: %d\nWant: %d", i, got, test.want)
		}
	}
}

func TestEngineInit(t *testing.T) {
	// codIRange initialises to 510 and codIOffset to the first 9 bits.
	c := newTestEngine(t, 26, "0 1010 1010 0000 0000")
	if c.codIRange != 510 {
		t.Errorf("did not get expected codIRange.\nGot: %d\nWant: %d", c.codIRange, 510)
	}
	if c.codIOffset != 0xaa {
		t.Errorf("did not get expected codIOffset.\nGot: %d\nWant: %d", c.codIOffset, 0xaa)
	}
}

func TestEngineInitForbiddenOffsets(t *testing.T) {
	// 510 and 511 as the initial 9 bit offset are forbidden.
	for _, stream := range []string{"1 1111 1110 0000 0000", "1 1111 1111 0000 0000"} {
		b, err := binToSlice(stream)
		if err != nil {
			t.Fatalf("could not parse binary string: %v", err)
		}
		_, err = newCABAC(26, bits.NewBitReader(bytes.NewReader(b)))
		if err != errInitialOffset {
			t.Errorf("did not get expected error.\nGot: %v\nWant: %v", err, errInitialOffset)
		}
	}
}

func TestContextInit(t *testing.T) {
	// Context 0 has (m, n) = (20, -15); at QPY 26 preCtxState is 17, giving
	// pStateIdx 46 with valMPS 0.
	c := newTestEngine(t, 26, "0 0000 0000 0000 0000")
	if c.ctx[0].pStateIdx != 46 || c.ctx[0].valMPS != 0 {
		t.Errorf("did not get expected context 0 init.\nGot: (%d, %d)\nWant: (46, 0)", c.ctx[0].pStateIdx, c.ctx[0].valMPS)
	}
}

// TestDecodeDecisionAllMPS checks that a bitstream encoding an all-MPS
// sequence decodes to the MPS value bit for bit: with codIOffset 0 the
// offset always stays inside the MPS interval.
func TestDecodeDecisionAllMPS(t *testing.T) {
	c := newTestEngine(t, 26, "0 0000 0000 "+"0000 0000 0000 0000 0000 0000 0000 0000")
	const ctxIdx = 3
	mps := c.ctx[ctxIdx].valMPS
	for i := 0; i < 20; i++ {
		got, err := c.decodeDecision(ctxIdx)
		if err != nil {
			t.Fatalf("did not expect error at decision %d: %v", i, err)
		}
		if got != mps {
			t.Errorf("did not get MPS at decision %d.\nGot: %d\nWant: %d", i, got, mps)
		}
	}
}

// TestDecodeDecisionStateAdvance checks the probability state transition on
// the MPS path.
func TestDecodeDecisionStateAdvance(t *testing.T) {
	c := newTestEngine(t, 26, "0 0000 0000 "+"0000 0000 0000 0000")
	const ctxIdx = 3
	before := c.ctx[ctxIdx].pStateIdx
	if _, err := c.decodeDecision(ctxIdx); err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if got, want := c.ctx[ctxIdx].pStateIdx, stateTransxTab[before].TransIdxMPS; got != want {
		t.Errorf("did not get expected state.\nGot: %d\nWant: %d", got, want)
	}
}

func TestDecodeBypass(t *testing.T) {
	// With codIOffset 0 and codIRange 510, a bypass bin is 1 only if the
	// shifted offset reaches the range.
	c := newTestEngine(t, 26, "0 0000 0000 "+"1111 1111 0000 0000")
	var got []int
	for i := 0; i < 4; i++ {
		b, err := c.decodeBypass()
		if err != nil {
			t.Fatalf("did not expect error: %v", err)
		}
		got = append(got, b)
	}
	// Offset evolves 1, 3, 7, 15... staying below 510 for the first
	// several ones.
	for i, b := range got {
		if b != 0 {
			t.Errorf("did not get expected bypass bin %d.\nGot: %d\nWant: %d", i, b, 0)
		}
	}
}

// TestDecodeTerminateEnds checks that a codIOffset at the top of the range
// terminates without consuming further input, per the end of slice flag
// semantics.
func TestDecodeTerminateEnds(t *testing.T) {
	// Initial offset 509: after codIRange -= 2 the offset equals or
	// exceeds the range, so the slice ends.
	c := newTestEngine(t, 26, "1 1111 1101 0000 0000")
	got, err := c.decodeTerminate()
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if got != 1 {
		t.Errorf("did not get expected terminate result.\nGot: %d\nWant: %d", got, 1)
	}
}

func TestDecodeTerminateContinues(t *testing.T) {
	c := newTestEngine(t, 26, "0 0000 0000 0000 0000")
	got, err := c.decodeTerminate()
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if got != 0 {
		t.Errorf("did not get expected terminate result.\nGot: %d\nWant: %d", got, 0)
	}
	if c.codIRange != 508 {
		t.Errorf("did not get expected codIRange.\nGot: %d\nWant: %d", c.codIRange, 508)
	}
}

// TestMatchBinarizationNoMatch checks that a bin string matching no table
// row surfaces the bitstream-fatal error rather than a bogus value.
func TestMatchBinarizationNoMatch(t *testing.T) {
	// Context 0 initialises with valMPS 0 at QPY 26, and offset 0 decodes
	// MPS, so the decoded bin is 0 and can never match the single row {1}.
	c := newTestEngine(t, 26, "0 0000 0000 0000 0000")
	rows := [][]int{{1}}
	_, err := matchBinarization(c, rows, func(int, []int) binCtx { return binCtx{ctxIdx: 0} })
	if err != errBinMatch {
		t.Errorf("did not get expected error.\nGot: %v\nWant: %v", err, errBinMatch)
	}
}

// TestMatchBinarizationIMBTypes checks that the I slice macroblock type
// table is prefix free, which the matcher relies on.
func TestMatchBinarizationIMBTypes(t *testing.T) {
	// The table is prefix free: every row is reachable and no row is the
	// prefix of another.
	for i, row := range binOfIMBTypes {
		for j, other := range binOfIMBTypes {
			if i == j {
				continue
			}
			if len(row) <= len(other) && binPrefixEq(other, row) {
				t.Errorf("row %d is a prefix of row %d", i, j)
			}
		}
	}
}

func TestRenormD(t *testing.T) {
	c := newTestEngine(t, 26, "0 0000 0000 "+"1010 1010")
	c.codIRange = 100
	c.codIOffset = 0
	if err := c.renormD(); err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	// 100 << 2 = 400 >= 256 after two shifts; offset takes two stream bits.
	if c.codIRange != 400 {
		t.Errorf("did not get expected codIRange.\nGot: %d\nWant: %d", c.codIRange, 400)
	}
	if c.codIOffset != 2 {
		t.Errorf("did not get expected codIOffset.\nGot: %d\nWant: %d", c.codIOffset, 2)
	}
}

func TestDecodeUEGkSuffix(t *testing.T) {
	// With codIOffset 0 every bypass bin decodes as 0, so the first bin ends
	// the unary prefix and the value is 0.
	c := newTestEngine(t, 26, "0 0000 0000 "+"0000 0000")
	got, err := c.decodeUEGk(0)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if got != 0 {
		t.Errorf("did not get expected result.\nGot: %d\nWant: %d", got, 0)
	}
}
