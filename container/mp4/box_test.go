/*
DESCRIPTION
  box_test.go provides testing for box header parsing and the jumpy
  recovery primitive.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/


package mp4

import (
	"bytes"
	"testing"

	"github.com/ausocean/mediaprobe/bits"
)

func newStream(t *testing.T, b []byte) *bits.ByteStream {
	t.Helper()
	s, err := bits.NewByteStream(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("could not create stream: %v", err)
	}
	return s
}

func TestReadBoxHeader(t *testing.T) {
	b := box("free", make([]byte, 8))
	s := newStream(t, b)

	got, err := readBoxHeader(s)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if got.Type != typeFree {
		t.Errorf("did not get expected type.\nGot: %v\nWant: %v", got.Type, typeFree)
	}
	if got.Start != 0 || got.Size != 16 || got.End != 16 {
		t.Errorf("did not get expected geometry.\nGot: start=%d size=%d end=%d", got.Start, got.Size, got.End)
	}
	// The cursor is left at the first payload byte.
	if s.ByteOffset() != 8 {
		t.Errorf("did not get expected cursor position.\nGot: %d\nWant: %d", s.ByteOffset(), 8)
	}
}

func TestReadBoxHeaderLargesize(t *testing.T) {
	// Size 1 means a 64 bit size follows the type.
	payload := make([]byte, 4)
	b := cat(be32(1), []byte("mdat"), be64(20), payload)
	s := newStream(t, b)

	got, err := readBoxHeader(s)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if got.Size != 20 || got.End != 20 {
		t.Errorf("did not get expected geometry.\nGot: size=%d end=%d", got.Size, got.End)
	}
	if s.ByteOffset() != 16 {
		t.Errorf("did not get expected cursor position.\nGot: %d\nWant: %d", s.ByteOffset(), 16)
	}
}

func TestReadBoxHeaderToEOF(t *testing.T) {
	// Size 0 means the box extends to the end of the file.
	b := cat(be32(0), []byte("mdat"), make([]byte, 24))
	s := newStream(t, b)

	got, err := readBoxHeader(s)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if got.Size != 32 || got.End != 32 {
		t.Errorf("did not get expected geometry.\nGot: size=%d end=%d", got.Size, got.End)
	}
}

func TestReadBoxHeaderUUID(t *testing.T) {
	user := bytes.Repeat([]byte{0xaa}, 16)
	b := cat(be32(8+16+4), []byte("uuid"), user, make([]byte, 4))
	s := newStream(t, b)

	got, err := readBoxHeader(s)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if got.Type != typeUUID {
		t.Errorf("did not get expected type.\nGot: %v\nWant: %v", got.Type, typeUUID)
	}
	if !bytes.Equal(got.UserType[:], user) {
		t.Errorf("did not get expected user type.\nGot: %x\nWant: %x", got.UserType, user)
	}
	if s.ByteOffset() != 24 {
		t.Errorf("did not get expected cursor position.\nGot: %d\nWant: %d", s.ByteOffset(), 24)
	}
}

func TestReadBoxHeaderUndersize(t *testing.T) {
	b := cat(be32(4), []byte("free"))
	s := newStream(t, b)
	if _, err := readBoxHeader(s); err != errBoxTooSmall {
		t.Errorf("did not get expected error.\nGot: %v\nWant: %v", err, errBoxTooSmall)
	}
}

func TestFullBoxHeader(t *testing.T) {
	b := fbox("stts", 1, 0x00abcdef, be32(0))
	s := newStream(t, b)

	bx, err := readBoxHeader(s)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if err := readFullBoxHeader(s, bx); err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if bx.Version != 1 {
		t.Errorf("did not get expected version.\nGot: %d\nWant: %d", bx.Version, 1)
	}
	if bx.Flags != 0xabcdef {
		t.Errorf("did not get expected flags.\nGot: %x\nWant: %x", bx.Flags, 0xabcdef)
	}
}

// TestBoxRoundTrip builds a hierarchy with known sizes and checks that
// reparsing yields the same (start, end, type) for each box.
func TestBoxRoundTrip(t *testing.T) {
	inner := box("free", make([]byte, 4))
	outer := box("moov", inner, box("udta"))
	s := newStream(t, outer)

	parent, err := readBoxHeader(s)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if parent.Type != typeMoov || parent.Start != 0 || parent.End != int64(len(outer)) {
		t.Fatalf("did not get expected parent geometry: %+v", parent)
	}

	child1, err := readBoxHeader(s)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if child1.Type != typeFree || child1.Start != 8 || child1.End != 8+int64(len(inner)) {
		t.Fatalf("did not get expected first child geometry: %+v", child1)
	}
	if err := jumpy(s, parent, child1); err != nil {
		t.Fatalf("did not expect error: %v", err)
	}

	child2, err := readBoxHeader(s)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if child2.Type != typeUdta || child2.Start != child1.End || child2.End != parent.End {
		t.Fatalf("did not get expected second child geometry: %+v", child2)
	}
}

// TestJumpyIdempotent checks that calling jumpy twice leaves the cursor
// where one call does.
func TestJumpyIdempotent(t *testing.T) {
	data := cat(box("free", make([]byte, 12)), box("skip", make([]byte, 4)))
	s := newStream(t, data)

	bx, err := readBoxHeader(s)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	// Consume part of the payload only.
	s.ReadBits(32)

	if err := jumpy(s, nil, bx); err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	after1 := s.ByteOffset()
	if err := jumpy(s, nil, bx); err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if got := s.ByteOffset(); got != after1 {
		t.Errorf("jumpy not idempotent.\nGot: %d\nWant: %d", got, after1)
	}
	if after1 != bx.End {
		t.Errorf("did not land on box end.\nGot: %d\nWant: %d", after1, bx.End)
	}
}

// TestJumpyClampsToParent checks the oversized child clamp.
func TestJumpyClampsToParent(t *testing.T) {
	// A parent whose child claims to extend past the parent end.
	child := cat(be32(64), []byte("free"), make([]byte, 8))
	parentPayload := child
	parent := cat(be32(uint32(8+len(parentPayload))), []byte("moov"), parentPayload)
	data := cat(parent, box("skip", make([]byte, 32)))
	s := newStream(t, data)

	p, err := readBoxHeader(s)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	c, err := readBoxHeader(s)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if err := jumpy(s, p, c); err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if got := s.ByteOffset(); got != p.End {
		t.Errorf("did not clamp to parent end.\nGot: %d\nWant: %d", got, p.End)
	}
}

// TestJumpyRewinds checks backward repositioning when a parser overshoots.
func TestJumpyRewinds(t *testing.T) {
	data := cat(box("free", make([]byte, 4)), box("skip", make([]byte, 16)))
	s := newStream(t, data)

	bx, err := readBoxHeader(s)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	// Overshoot into the next box.
	s.ReadBits64(64)

	if err := jumpy(s, nil, bx); err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if got := s.ByteOffset(); got != bx.End {
		t.Errorf("did not rewind to box end.\nGot: %d\nWant: %d", got, bx.End)
	}
}
