/*
DESCRIPTION
  bitreader_test.go provides testing for the BitReader.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/


package bits

import (
	"bytes"
	"io"
	"testing"
)

func TestReadBits(t *testing.T) {
	tests := []struct {
		in    []byte
		reads []int
		want  []uint64
	}{
		{
			in:    []byte{0x8f, 0xe3},
			reads: []int{4, 2, 4, 6},
			want:  []uint64{0x8, 0x3, 0xf, 0x23},
		},
		{
			in:    []byte{0xff, 0x00, 0xff},
			reads: []int{8, 8, 8},
			want:  []uint64{0xff, 0x00, 0xff},
		},
		{
			in:    []byte{0xab, 0xcd, 0xef, 0x12},
			reads: []int{32},
			want:  []uint64{0xabcdef12},
		},
		{
			in:    []byte{0x80},
			reads: []int{1, 7},
			want:  []uint64{1, 0},
		},
	}

	for i, test := range tests {
		br := NewBitReader(bytes.NewReader(test.in))
		for j, n := range test.reads {
			got, err := br.ReadBits(n)
			if err != nil {
				t.Fatalf("did not expect error: %v for read: %d test: %d", err, j, i)
			}
			if got != test.want[j] {
				t.Errorf("did not get expected result for read: %d test: %d\nGot: %x\nWant: %x", j, i, got, test.want[j])
			}
		}
	}
}

func TestReadBitsEOF(t *testing.T) {
	br := NewBitReader(bytes.NewReader([]byte{0xff}))
	if _, err := br.ReadBits(8); err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if _, err := br.ReadBits(1); err != io.ErrUnexpectedEOF {
		t.Errorf("did not get expected error, got: %v", err)
	}
}

func TestPeekBits(t *testing.T) {
	br := NewBitReader(bytes.NewReader([]byte{0x8f, 0xe3, 0x11}))

	got, err := br.PeekBits(4)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if got != 0x8 {
		t.Errorf("did not get expected result.\nGot: %x\nWant: %x", got, 0x8)
	}

	// A peek must not advance the reader.
	got, err = br.PeekBits(16)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if got != 0x8fe3 {
		t.Errorf("did not get expected result.\nGot: %x\nWant: %x", got, 0x8fe3)
	}

	got, err = br.ReadBits(8)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if got != 0x8f {
		t.Errorf("did not get expected result after peeks.\nGot: %x\nWant: %x", got, 0x8f)
	}
}

func TestByteAligned(t *testing.T) {
	br := NewBitReader(bytes.NewReader([]byte{0x8f, 0xe3}))
	if !br.ByteAligned() {
		t.Error("expected aligned reader at start")
	}
	br.ReadBits(3)
	if br.ByteAligned() {
		t.Error("did not expect aligned reader mid byte")
	}
	br.ReadBits(5)
	if !br.ByteAligned() {
		t.Error("expected aligned reader at byte boundary")
	}
}

func TestSkipBits(t *testing.T) {
	br := NewBitReader(bytes.NewReader([]byte{0x8f, 0xe3}))
	if err := br.SkipBits(12); err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	got, err := br.ReadBits(4)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if got != 0x3 {
		t.Errorf("did not get expected result.\nGot: %x\nWant: %x", got, 0x3)
	}
}
