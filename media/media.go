/*
DESCRIPTION
  media.go provides the language-neutral view of a parsed media file: per
  stream sample indexes with byte offsets, sizes and microsecond timestamps,
  together with stream-level metadata.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/


// Package media defines the output contract of the demuxers: streams of
// indexed samples with timestamps in microseconds and offsets in bytes from
// the start of the file.
package media

// StreamType classifies a stream by its payload kind.
type StreamType int

// Stream types.
const (
	StreamUnknown StreamType = iota
	StreamAudio
	StreamVideo
	StreamText
	StreamTimedMeta
	StreamHint
	StreamOther
)

// String returns a human readable name for the stream type.
func (t StreamType) String() string {
	switch t {
	case StreamAudio:
		return "audio"
	case StreamVideo:
		return "video"
	case StreamText:
		return "text"
	case StreamTimedMeta:
		return "timed-metadata"
	case StreamHint:
		return "hint"
	case StreamOther:
		return "other"
	}
	return "unknown"
}

// SampleType classifies a single sample.
type SampleType int

// Sample types. A sync video sample can be decoded without reference to any
// prior sample.
const (
	SampleUnknown SampleType = iota
	SampleAudio
	SampleVideo
	SampleVideoSync
	SampleVideoParams
	SampleText
	SampleTimedMeta
	SampleOther
)

// Sample is one coded unit of a stream: a video frame, an audio frame or a
// timed-text cue. Offset is in bytes from the start of the file, and DTS/PTS
// are in microseconds from presentation time zero.
type Sample struct {
	Type   SampleType
	Offset int64
	Size   int64
	DTS    int64
	PTS    int64
}

// ParamSet is an out-of-band codec parameter set, e.g. an H.264 SPS or PPS
// extracted from an avcC configuration record. Offset and Size locate the
// raw NAL unit in the file where possible; Data holds its bytes.
type ParamSet struct {
	Kind   string // e.g. "SPS", "PPS", "VPS".
	Offset int64
	Size   int64
	Data   []byte
}

// Rational is a rational number used for framerates and aspect ratios.
type Rational struct {
	Num  int64
	Base int64
}

// Float returns the rational as a float64, or 0 if the base is 0.
func (r Rational) Float() float64 {
	if r.Base == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Base)
}

// Stream is the per-track output of a demuxer: an indexed view of every
// sample together with stream-level metadata.
type Stream struct {
	Type  StreamType
	Codec string // Codec identifier, e.g. "avc1", "hvc1", "mp4a".

	// TrackID is the container-level track identifier.
	TrackID uint32

	// Samples is the per-sample index, in decode order.
	Samples []Sample

	// ParamSets holds out-of-band parameter sets for codecs that carry them.
	ParamSets []ParamSet

	// Duration is the stream duration in microseconds.
	Duration int64

	// Framerate is the stream framerate as a rational, video streams only.
	Framerate Rational

	// Video properties.
	Width, Height int
	PixelAspect   Rational

	// Colour description from the sample entry, zero when absent.
	ColorPrimaries, ColorTransfer, ColorMatrix uint16

	// Audio properties.
	SampleRate   uint32
	ChannelCount int
	SampleSize   int

	// Codec profile/level where the sample entry provides them.
	Profile, Level int

	// NALLengthSize is the length-field size for length-prefixed NAL streams.
	NALLengthSize int

	// Metadata.
	Language string // ISO-639-2/T code from the media header.
	Title    string
	Encoder  string
}

// SyncCount returns the number of sync samples in the stream.
func (s *Stream) SyncCount() int {
	var n int
	for i := range s.Samples {
		if s.Samples[i].Type == SampleVideoSync {
			n++
		}
	}
	return n
}

// File is the top-level result of demuxing: zero or more streams plus
// file-level properties.
type File struct {
	// Brand is the major brand from the ftyp or styp box, and Compatible the
	// compatible-brand list. They are recorded but do not gate parsing.
	Brand      string
	Compatible []string

	// Duration is the presentation duration in microseconds, from mvhd.
	Duration int64

	// Fragmented is true if the file carries movie fragments.
	Fragmented bool

	Streams []*Stream

	// Metadata harvested from udta/meta, best effort.
	Title   string
	Artist  string
	Encoder string
}

// StreamsOfType returns the streams whose type is t, in file order.
func (f *File) StreamsOfType(t StreamType) []*Stream {
	var out []*Stream
	for _, s := range f.Streams {
		if s.Type == t {
			out = append(out, s)
		}
	}
	return out
}
