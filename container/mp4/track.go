/*
DESCRIPTION
  track.go provides the Track structure holding the per-track sample tables
  collected while walking a trak box, together with the consistency checks
  applied before a track is converted to a media stream.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/


package mp4

import (
	"github.com/pkg/errors"

	"github.com/ausocean/mediaprobe/media"
)

// Handler types from the hdlr box.
const (
	handlerVideo    = "vide"
	handlerAudio    = "soun"
	handlerText     = "text"
	handlerSubtitle = "sbtl"
	handlerTimedMD  = "meta"
	handlerHint     = "hint"
)

// sttsEntry is one run of the decoding time-to-sample table: Count samples
// each spanning Delta ticks.
type sttsEntry struct {
	Count uint32
	Delta uint32
}

// cttsEntry is one run of the composition offset table: Count samples each
// with Offset ticks between composition and decode time. Offset is signed
// when the box version is 1 or greater.
type cttsEntry struct {
	Count  uint32
	Offset int32
}

// stscEntry is one run of the sample-to-chunk table. FirstChunk is 1-based.
type stscEntry struct {
	FirstChunk      uint32
	SamplesPerChunk uint32
	DescIdx         uint32
}

// fragSample is one sample reconstructed from a trun entry of a movie
// fragment, in file order.
type fragSample struct {
	Offset    int64
	Size      uint32
	Duration  uint32
	CTSOffset int32
	Sync      bool
}

// Track accumulates everything learned about one trak (or track fragment)
// while walking the box tree. Sample tables are parallel arrays indexed by
// 0-based sample number once expanded by the converter.
type Track struct {
	ID        uint32
	Handler   string
	Timescale uint32
	Duration  uint64

	// Language is the ISO-639-2/T code from mdhd.
	Language string

	// Edit list media time, used for framerate derivation on
	// progressive-download files with no useful duration.
	MediaTime int64

	// Sample description.
	Codec         string
	Width, Height int
	Compressor    string
	SampleRate    uint32
	ChannelCount  int
	SampleSize    int
	Profile       int
	Level         int
	NALLengthSize int
	ParamSets     []media.ParamSet
	PixelAspect   media.Rational

	ColorPrimaries uint16
	ColorTransfer  uint16
	ColorMatrix    uint16

	// Time-to-sample runs (stts) and optional composition offsets (ctts).
	TimeToSample []sttsEntry
	CompOffsets  []cttsEntry

	// Sample-to-chunk runs (stsc).
	SampleToChunk []stscEntry

	// Sample sizes: either one constant size for every sample, or one entry
	// per sample in SampleSizes.
	ConstantSize uint32
	SampleCount  uint32
	SampleSizes  []uint32

	// Per-chunk absolute byte offsets (stco or co64).
	ChunkOffsets []uint64

	// 1-based sync sample numbers (stss). A nil table with SyncAll set means
	// every sample is a sync sample.
	SyncSamples []uint32
	SyncAll     bool

	// Dependency nibbles from sdtp, one byte per sample.
	DependsOn []uint8

	// Fragment run defaults from trex, and samples appended from moof/trun.
	DefaultSampleDuration uint32
	DefaultSampleSize     uint32
	DefaultSampleFlags    uint32
	FragSamples           []fragSample

	// Table presence flags for validation.
	hasStts, hasStsc, hasStsz, hasStco bool
}

// Errors describing why a track was dropped. These are track-fatal: the
// track is excluded from the output but file parsing continues.
var (
	errNoStts        = errors.New("track missing mandatory stts box")
	errNoStsc        = errors.New("track missing mandatory stsc box")
	errNoStsz        = errors.New("track missing mandatory stsz or stz2 box")
	errNoStco        = errors.New("track missing mandatory stco or co64 box")
	errCountMismatch = errors.New("stts sample count does not match stsz sample count")
	errChunkRange    = errors.New("stsc references a chunk beyond the chunk offset table")
	errSyncOrder     = errors.New("stss sample numbers are not strictly increasing")
)

// sampleTotal returns the total sample count described by the stts runs.
func (t *Track) sampleTotal() uint64 {
	var n uint64
	for _, e := range t.TimeToSample {
		n += uint64(e.Count)
	}
	return n
}

// validate checks the internal consistency of the track's sample tables.
// A nil return means the track may be converted; otherwise the returned
// error names the first inconsistency found.
func (t *Track) validate() error {
	// A purely fragmented track has empty moov tables, which is legal.
	if t.SampleCount == 0 && len(t.FragSamples) > 0 {
		return nil
	}

	switch {
	case !t.hasStts:
		return errNoStts
	case !t.hasStsc:
		return errNoStsc
	case !t.hasStsz:
		return errNoStsz
	case !t.hasStco:
		return errNoStco
	}

	if t.sampleTotal() != uint64(t.SampleCount) {
		return errCountMismatch
	}

	// Every chunk referenced by stsc must resolve in the chunk offset table.
	for _, e := range t.SampleToChunk {
		if e.FirstChunk == 0 || uint64(e.FirstChunk) > uint64(len(t.ChunkOffsets)) {
			return errChunkRange
		}
	}

	var prev uint32
	for _, n := range t.SyncSamples {
		if n <= prev {
			return errSyncOrder
		}
		prev = n
	}
	return nil
}

// isSync reports whether 1-based sample number n is a sync sample.
func (t *Track) isSync(n uint32) bool {
	if t.SyncAll {
		return true
	}
	for _, s := range t.SyncSamples {
		if s == n {
			return true
		}
		if s > n {
			break
		}
	}
	return false
}

// streamType maps the track handler to a stream type.
func (t *Track) streamType() media.StreamType {
	switch t.Handler {
	case handlerVideo:
		return media.StreamVideo
	case handlerAudio:
		return media.StreamAudio
	case handlerText, handlerSubtitle:
		return media.StreamText
	case handlerTimedMD:
		return media.StreamTimedMeta
	case handlerHint:
		return media.StreamHint
	}
	return media.StreamOther
}
