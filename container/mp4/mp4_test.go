/*
DESCRIPTION
  mp4_test.go provides testing for the mp4 demuxer against synthetic files
  built box by box: track conversion, timestamp reconstruction, sync sample
  tagging, malformed box recovery and fragmented movies.

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
	"encoding/binary"
	"testing"

	"github.com/ausocean/mediaprobe/media"
)

// testLogger satisfies logging.Logger, discarding all output.
type testLogger struct{}

func (testLogger) SetLevel(int8)                                {}
func (testLogger) Log(l int8, m string, args ...interface{})    {}
func (testLogger) Debug(msg string, args ...interface{})        {}
func (testLogger) Info(msg string, args ...interface{})         {}
func (testLogger) Warning(msg string, args ...interface{})      {}
func (testLogger) Error(msg string, args ...interface{})        {}
func (testLogger) Fatal(msg string, args ...interface{})        {}

// Box building helpers.

func be16(v uint16) []byte { b := make([]byte, 2); binary.BigEndian.PutUint16(b, v); return b }
func be32(v uint32) []byte { b := make([]byte, 4); binary.BigEndian.PutUint32(b, v); return b }
func be64(v uint64) []byte { b := make([]byte, 8); binary.BigEndian.PutUint64(b, v); return b }

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// box builds a box with the given type and payload.
func box(typ string, parts ...[]byte) []byte {
	payload := cat(parts...)
	return cat(be32(uint32(8+len(payload))), []byte(typ), payload)
}

// fbox builds a full box with version and flags.
func fbox(typ string, version byte, flags uint32, parts ...[]byte) []byte {
	vf := be32(flags)
	vf[0] = version
	return box(typ, cat(vf, cat(parts...)))
}

// mdhd builds a version 0 media header with the given timescale and
// duration, language "und".
func mdhd(timescale, duration uint32) []byte {
	// Packed "und" in 5 bit fields offset from 0x60.
	lang := uint16('u'-0x60)<<10 | uint16('n'-0x60)<<5 | uint16('d'-0x60)
	return fbox("mdhd", 0, 0, be32(0), be32(0), be32(timescale), be32(duration), be16(lang), be16(0))
}

func hdlr(handler string) []byte {
	return fbox("hdlr", 0, 0, be32(0), []byte(handler), be32(0), be32(0), be32(0), []byte{0})
}

func tkhd(id uint32) []byte {
	parts := [][]byte{be32(0), be32(0), be32(id), be32(0), be32(0)}
	parts = append(parts, be32(0), be32(0)) // Reserved.
	parts = append(parts, be16(0), be16(0), be16(0), be16(0))
	for i := 0; i < 9; i++ {
		parts = append(parts, be32(0)) // Matrix.
	}
	parts = append(parts, be32(640<<16), be32(480<<16))
	return fbox("tkhd", 0, 0, parts...)
}

func sttsBox(entries ...[2]uint32) []byte {
	parts := [][]byte{be32(uint32(len(entries)))}
	for _, e := range entries {
		parts = append(parts, be32(e[0]), be32(e[1]))
	}
	return fbox("stts", 0, 0, parts...)
}

func cttsBox(entries ...[2]uint32) []byte {
	parts := [][]byte{be32(uint32(len(entries)))}
	for _, e := range entries {
		parts = append(parts, be32(e[0]), be32(e[1]))
	}
	return fbox("ctts", 0, 0, parts...)
}

func stscBox(entries ...[3]uint32) []byte {
	parts := [][]byte{be32(uint32(len(entries)))}
	for _, e := range entries {
		parts = append(parts, be32(e[0]), be32(e[1]), be32(e[2]))
	}
	return fbox("stsc", 0, 0, parts...)
}

func stszBox(constant uint32, sizes []uint32, count uint32) []byte {
	parts := [][]byte{be32(constant), be32(count)}
	for _, s := range sizes {
		parts = append(parts, be32(s))
	}
	return fbox("stsz", 0, 0, parts...)
}

func stcoBox(offsets ...uint32) []byte {
	parts := [][]byte{be32(uint32(len(offsets)))}
	for _, o := range offsets {
		parts = append(parts, be32(o))
	}
	return fbox("stco", 0, 0, parts...)
}

func stssBox(samples ...uint32) []byte {
	parts := [][]byte{be32(uint32(len(samples)))}
	for _, s := range samples {
		parts = append(parts, be32(s))
	}
	return fbox("stss", 0, 0, parts...)
}

func ftyp() []byte {
	return box("ftyp", []byte("isom"), be32(0x200), []byte("isom"), []byte("avc1"))
}

func parseFile(t *testing.T, b []byte) *media.File {
	t.Helper()
	d, err := NewDemuxer(bytes.NewReader(b), testLogger{})
	if err != nil {
		t.Fatalf("could not create demuxer: %v", err)
	}
	f, err := d.Parse()
	if err != nil {
		t.Fatalf("could not parse file: %v", err)
	}
	return f
}

// TestConstantSizeAudioTrack checks conversion of a constant sample size
// audio track: sizes, decode timestamps in microseconds and chunk offset
// assignment.
func TestConstantSizeAudioTrack(t *testing.T) {
	const (
		nSamples  = 1000
		size      = 417
		delta     = 1024
		timescale = 44100
	)
	chunkOffsets := make([]uint32, 20)
	for i := range chunkOffsets {
		chunkOffsets[i] = uint32(10000 + i*50*size)
	}

	stbl := box("stbl",
		sttsBox([2]uint32{nSamples, delta}),
		stscBox([3]uint32{1, 50, 1}),
		stszBox(size, nil, nSamples),
		stcoBox(chunkOffsets...),
	)
	trak := box("trak", tkhd(1), box("mdia", mdhd(timescale, nSamples*delta), hdlr("soun"), box("minf", stbl)))
	f := parseFile(t, cat(ftyp(), box("moov", fbox("mvhd", 0, 0, be32(0), be32(0), be32(600), be32(600)), trak)))

	if len(f.Streams) != 1 {
		t.Fatalf("did not get expected stream count.\nGot: %d\nWant: %d", len(f.Streams), 1)
	}
	s := f.Streams[0]
	if s.Type != media.StreamAudio {
		t.Errorf("did not get expected stream type.\nGot: %v\nWant: %v", s.Type, media.StreamAudio)
	}
	if len(s.Samples) != nSamples {
		t.Fatalf("did not get expected sample count.\nGot: %d\nWant: %d", len(s.Samples), nSamples)
	}
	if s.Language != "und" {
		t.Errorf("did not get expected language.\nGot: %s\nWant: %s", s.Language, "und")
	}

	for k, smp := range s.Samples {
		if smp.Size != size {
			t.Fatalf("did not get expected size for sample %d.\nGot: %d\nWant: %d", k, smp.Size, size)
		}
		want := int64(k) * delta * 1e6 / timescale
		if smp.DTS != want {
			t.Fatalf("did not get expected DTS for sample %d.\nGot: %d\nWant: %d", k, smp.DTS, want)
		}
		if smp.PTS != smp.DTS {
			t.Fatalf("did not get expected PTS for sample %d.\nGot: %d\nWant: %d", k, smp.PTS, smp.DTS)
		}
	}

	if s.Samples[0].Offset != int64(chunkOffsets[0]) {
		t.Errorf("did not get expected first sample offset.\nGot: %d\nWant: %d", s.Samples[0].Offset, chunkOffsets[0])
	}
	// Second sample of the first chunk follows the first.
	if s.Samples[1].Offset != int64(chunkOffsets[0])+size {
		t.Errorf("did not get expected second sample offset.\nGot: %d\nWant: %d", s.Samples[1].Offset, int64(chunkOffsets[0])+size)
	}
	// First sample of the second chunk takes the second chunk offset.
	if s.Samples[50].Offset != int64(chunkOffsets[1]) {
		t.Errorf("did not get expected offset for sample 50.\nGot: %d\nWant: %d", s.Samples[50].Offset, chunkOffsets[1])
	}
}

// TestBFrameVideoTrack checks PTS reordering from ctts and sync sample
// tagging from stss.
func TestBFrameVideoTrack(t *testing.T) {
	const (
		nSamples  = 300
		delta     = 3000
		timescale = 90000
	)

	ctts := [][2]uint32{{1, 6000}, {1, 9000}, {1, 3000}, {nSamples - 3, 6000}}
	var sync []uint32
	for k := uint32(1); k <= nSamples; k += 30 {
		sync = append(sync, k)
	}

	sizes := make([]uint32, nSamples)
	for i := range sizes {
		sizes[i] = uint32(100 + i)
	}

	stbl := box("stbl",
		sttsBox([2]uint32{nSamples, delta}),
		cttsBox(ctts...),
		stscBox([3]uint32{1, nSamples, 1}),
		stszBox(0, sizes, nSamples),
		stcoBox(4096),
		stssBox(sync...),
	)
	trak := box("trak", tkhd(1), box("mdia", mdhd(timescale, nSamples*delta), hdlr("vide"), box("minf", stbl)))
	f := parseFile(t, cat(ftyp(), box("moov", trak)))

	if len(f.Streams) != 1 {
		t.Fatalf("did not get expected stream count.\nGot: %d\nWant: %d", len(f.Streams), 1)
	}
	s := f.Streams[0]

	if got, want := s.Samples[0].PTS, int64(6000)*1e6/timescale; got != want {
		t.Errorf("did not get expected PTS for sample 0.\nGot: %d\nWant: %d", got, want)
	}
	// Presentation reordering: sample 2 precedes sample 1 while DTS is
	// monotone.
	if s.Samples[2].PTS >= s.Samples[1].PTS {
		t.Errorf("expected sample 2 PTS before sample 1 PTS, got %d >= %d", s.Samples[2].PTS, s.Samples[1].PTS)
	}
	for k := 1; k < len(s.Samples); k++ {
		if s.Samples[k].DTS < s.Samples[k-1].DTS {
			t.Fatalf("DTS not monotone at sample %d", k)
		}
	}

	for k, smp := range s.Samples {
		wantSync := k%30 == 0
		isSync := smp.Type == media.SampleVideoSync
		if isSync != wantSync {
			t.Fatalf("did not get expected sync tag for sample %d.\nGot: %t\nWant: %t", k, isSync, wantSync)
		}
	}

	// Per sample sizes from the explicit stsz array.
	for k, smp := range s.Samples {
		if smp.Size != int64(sizes[k]) {
			t.Fatalf("did not get expected size for sample %d.\nGot: %d\nWant: %d", k, smp.Size, sizes[k])
		}
	}

	// Framerate derives from timescale and average sample duration.
	if s.Framerate.Num != timescale || s.Framerate.Base != delta {
		t.Errorf("did not get expected framerate.\nGot: %d/%d\nWant: %d/%d", s.Framerate.Num, s.Framerate.Base, timescale, delta)
	}
}

// TestTruncatedTrak checks that a trak with a child box extending past its
// parent is clamped by the jumpy recovery and the next sibling trak still
// parses.
func TestTruncatedTrak(t *testing.T) {
	// A mdia box whose declared size extends 8 bytes past the end of its
	// trak parent.
	badMdia := cat(be32(uint32(8+len(mdhd(600, 600))+8)), []byte("mdia"), mdhd(600, 600))
	badTrak := box("trak", tkhd(1), badMdia)

	goodStbl := box("stbl",
		sttsBox([2]uint32{10, 100}),
		stscBox([3]uint32{1, 10, 1}),
		stszBox(50, nil, 10),
		stcoBox(2048),
	)
	goodTrak := box("trak", tkhd(2), box("mdia", mdhd(600, 1000), hdlr("soun"), box("minf", goodStbl)))

	f := parseFile(t, cat(ftyp(), box("moov", badTrak, goodTrak)))

	if len(f.Streams) != 1 {
		t.Fatalf("did not get expected stream count.\nGot: %d\nWant: %d", len(f.Streams), 1)
	}
	if f.Streams[0].TrackID != 2 {
		t.Errorf("did not get expected track ID.\nGot: %d\nWant: %d", f.Streams[0].TrackID, 2)
	}
	if len(f.Streams[0].Samples) != 10 {
		t.Errorf("did not get expected sample count.\nGot: %d\nWant: %d", len(f.Streams[0].Samples), 10)
	}
}

// TestDroppedTrack checks that a track missing a mandatory table is dropped
// without aborting file parsing.
func TestDroppedTrack(t *testing.T) {
	// No stco.
	badStbl := box("stbl",
		sttsBox([2]uint32{10, 100}),
		stscBox([3]uint32{1, 10, 1}),
		stszBox(50, nil, 10),
	)
	badTrak := box("trak", tkhd(1), box("mdia", mdhd(600, 1000), hdlr("soun"), box("minf", badStbl)))
	f := parseFile(t, cat(ftyp(), box("moov", badTrak)))

	if len(f.Streams) != 0 {
		t.Fatalf("did not expect streams from track missing stco, got %d", len(f.Streams))
	}
}

// TestFragmentedMovie checks sample reconstruction from moof/traf/trun.
func TestFragmentedMovie(t *testing.T) {
	emptyStbl := box("stbl",
		sttsBox(),
		stscBox(),
		stszBox(0, nil, 0),
		stcoBox(),
	)
	trak := box("trak", tkhd(1), box("mdia", mdhd(90000, 0), hdlr("vide"), box("minf", emptyStbl)))
	mvex := box("mvex", fbox("trex", 0, 0, be32(1), be32(1), be32(3000), be32(0), be32(0x10000)))
	moov := box("moov", trak, mvex)

	var moofs []byte
	const perFrag = 30
	for i := 0; i < 3; i++ {
		parts := [][]byte{be32(perFrag), be32(0x100)} // Count, data offset.
		parts = append(parts, be32(0x02000000))       // First sample flags: sync.
		for j := 0; j < perFrag; j++ {
			parts = append(parts, be32(uint32(500+j)))
		}
		trun := fbox("trun", 0, trunDataOffset|trunFirstSampleFlags|trunSampleSize, parts...)
		tfhd := fbox("tfhd", 0, 0, be32(1))
		tfdt := fbox("tfdt", 1, 0, be64(uint64(i*perFrag*3000)))
		moofs = append(moofs, box("moof", fbox("mfhd", 0, 0, be32(uint32(i+1))), box("traf", tfhd, tfdt, trun))...)
	}

	f := parseFile(t, cat(ftyp(), moov, moofs))

	if !f.Fragmented {
		t.Error("expected fragmented file")
	}
	if len(f.Streams) != 1 {
		t.Fatalf("did not get expected stream count.\nGot: %d\nWant: %d", len(f.Streams), 1)
	}
	s := f.Streams[0]
	if len(s.Samples) != 3*perFrag {
		t.Fatalf("did not get expected sample count.\nGot: %d\nWant: %d", len(s.Samples), 3*perFrag)
	}

	// Sizes from the trun entries; durations from the trex default.
	if s.Samples[0].Size != 500 {
		t.Errorf("did not get expected size for sample 0.\nGot: %d\nWant: %d", s.Samples[0].Size, 500)
	}
	want := int64(3000) * 1e6 / 90000
	if s.Samples[1].DTS != want {
		t.Errorf("did not get expected DTS for sample 1.\nGot: %d\nWant: %d", s.Samples[1].DTS, want)
	}

	// The first sample of each fragment is sync per the first sample flags;
	// the rest take the trex default non sync flag.
	for k, smp := range s.Samples {
		wantSync := k%perFrag == 0
		isSync := smp.Type == media.SampleVideoSync
		if isSync != wantSync {
			t.Fatalf("did not get expected sync tag for sample %d.\nGot: %t\nWant: %t", k, isSync, wantSync)
		}
	}

	// Offsets: consecutive samples within a run are contiguous.
	if diff := s.Samples[1].Offset - s.Samples[0].Offset; diff != 500 {
		t.Errorf("did not get expected offset delta.\nGot: %d\nWant: %d", diff, 500)
	}
}

// TestStreamCounts checks the parallel array invariant of the converter.
func TestStreamCounts(t *testing.T) {
	stbl := box("stbl",
		sttsBox([2]uint32{7, 100}, [2]uint32{3, 200}),
		stscBox([3]uint32{1, 4, 1}, [3]uint32{2, 3, 1}),
		stszBox(0, []uint32{9, 8, 7, 6, 5, 4, 3, 2, 1, 9}, 10),
		stcoBox(100, 200, 300),
	)
	trak := box("trak", tkhd(1), box("mdia", mdhd(1000, 1300), hdlr("soun"), box("minf", stbl)))
	f := parseFile(t, cat(ftyp(), box("moov", trak)))

	if len(f.Streams) != 1 {
		t.Fatalf("did not get expected stream count.\nGot: %d\nWant: %d", len(f.Streams), 1)
	}
	s := f.Streams[0]
	if len(s.Samples) != 10 {
		t.Fatalf("did not get expected sample count.\nGot: %d\nWant: %d", len(s.Samples), 10)
	}
	// Chunk walk: chunks hold 4, 3, 3 samples at offsets 100, 200, 300.
	if s.Samples[4].Offset != 200 {
		t.Errorf("did not get expected offset for sample 4.\nGot: %d\nWant: %d", s.Samples[4].Offset, 200)
	}
	if s.Samples[7].Offset != 300 {
		t.Errorf("did not get expected offset for sample 7.\nGot: %d\nWant: %d", s.Samples[7].Offset, 300)
	}
}
