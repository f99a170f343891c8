/*
DESCRIPTION
  parse_test.go provides testing for the Exp-Golomb syntax element parsing.

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

func TestReadUe(t *testing.T) {
	// Bit strings from table 9-2.
	tests := []struct {
		in   string
		want uint64
	}{
		{"1", 0},
		{"010", 1},
		{"011", 2},
		{"0 0100", 3},
		{"0 0101", 4},
		{"0 0110", 5},
		{"0 0111", 6},
		{"000 1000", 7},
		{"000 1111", 14},
		{"0000 10000", 15},
	}
	for i, test := range tests {
		b, err := binToSlice(test.in)
		if err != nil {
			t.Fatalf("could not parse binary string: %v", err)
		}
		got, err := readUe(bits.NewBitReader(bytes.NewReader(b)))
		if err != nil {
			t.Fatalf("did not expect error: %v for test: %d", err, i)
		}
		if got != test.want {
			t.Errorf("did not get expected result for test: %d\nGot: %d\nWant: %d", i, got, test.want)
		}
	}
}

func TestReadSe(t *testing.T) {
	// Mapping from table 9-3.
	tests := []struct {
		in   string
		want int
	}{
		{"1", 0},
		{"010", 1},
		{"011", -1},
		{"0 0100", 2},
		{"0 0101", -2},
		{"0 0110", 3},
		{"0 0111", -3},
	}
	for i, test := range tests {
		b, err := binToSlice(test.in)
		if err != nil {
			t.Fatalf("could not parse binary string: %v", err)
		}
		got, err := readSe(bits.NewBitReader(bytes.NewReader(b)))
		if err != nil {
			t.Fatalf("did not expect error: %v for test: %d", err, i)
		}
		if got != test.want {
			t.Errorf("did not get expected result for test: %d\nGot: %d\nWant: %d", i, got, test.want)
		}
	}
}

func TestReadTe(t *testing.T) {
	tests := []struct {
		in   string
		x    uint
		want uint64
	}{
		{"1", 1, 0},
		{"0", 1, 1},
		{"010", 5, 1},
	}
	for i, test := range tests {
		b, err := binToSlice(test.in)
		if err != nil {
			t.Fatalf("could not parse binary string: %v", err)
		}
		got, err := readTe(bits.NewBitReader(bytes.NewReader(b)), test.x)
		if err != nil {
			t.Fatalf("did not expect error: %v for test: %d", err, i)
		}
		if got != test.want {
			t.Errorf("did not get expected result for test: %d\nGot: %d\nWant: %d", i, got, test.want)
		}
	}
}

func TestFieldReaderStickyError(t *testing.T) {
	// One byte only: the second read fails and the first error sticks.
	br := bits.NewBitReader(bytes.NewReader([]byte{0xff}))
	r := newFieldReader(br)

	if got := r.readBits(8); got != 0xff {
		t.Errorf("did not get expected result.\nGot: %x\nWant: %x", got, 0xff)
	}
	r.readBits(8)
	if r.err() == nil {
		t.Error("expected sticky error after read past end")
	}
	if got := r.readBits(8); got != 0 {
		t.Errorf("expected zero result after error, got: %x", got)
	}
}

func TestRemoveEmulationPrevention(t *testing.T) {
	tests := []struct {
		in, want []byte
	}{
		{[]byte{0x00, 0x00, 0x03, 0x00}, []byte{0x00, 0x00, 0x00}},
		{[]byte{0x00, 0x00, 0x03, 0x01}, []byte{0x00, 0x00, 0x01}},
		{[]byte{0x01, 0x02, 0x03}, []byte{0x01, 0x02, 0x03}},
		{[]byte{0x00, 0x00, 0x03, 0x00, 0x00, 0x03, 0x01}, []byte{0x00, 0x00, 0x00, 0x00, 0x01}},
		{nil, nil},
	}
	for i, test := range tests {
		got := removeEmulationPrevention(test.in)
		if !bytes.Equal(got, test.want) {
			t.Errorf("did not get expected result for test: %d\nGot: %x\nWant: %x", i, got, test.want)
		}
	}
}

func TestNewNALUnit(t *testing.T) {
	n, err := NewNALUnit([]byte{0x67, 0x42, 0x00, 0x1e})
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if n.Type != NALTypeSPS {
		t.Errorf("did not get expected type.\nGot: %d\nWant: %d", n.Type, NALTypeSPS)
	}
	if n.RefIDC != 3 {
		t.Errorf("did not get expected ref idc.\nGot: %d\nWant: %d", n.RefIDC, 3)
	}
	if !bytes.Equal(n.RBSP, []byte{0x42, 0x00, 0x1e}) {
		t.Errorf("did not get expected RBSP: %x", n.RBSP)
	}
}
