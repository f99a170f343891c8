/*
DESCRIPTION
  convert.go provides conversion of collected track sample tables into the
  media package's stream view: per-sample types, byte offsets, sizes, and
  decode/presentation timestamps in microseconds.

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
	"github.com/ausocean/utils/logging"

	"github.com/ausocean/mediaprobe/media"
)

// convert walks the collected tracks, validates each, and emits a
// media.Stream per supported track into the demuxer's file. Tracks that fail
// validation are dropped with a log entry; the originals are released once
// conversion completes.
func (d *Demuxer) convert() error {
	for _, t := range d.tracks {
		if err := t.validate(); err != nil {
			d.log.Log(logging.Warning, pkg+"dropping track", "id", t.ID, "error", err.Error())
			continue
		}
		d.file.Streams = append(d.file.Streams, d.convertTrack(t))
	}
	// Tracks are owned by the demuxer; the streams carry their own copies.
	d.tracks = nil
	return nil
}

// convertTrack materialises one track's parallel tables as a stream.
func (d *Demuxer) convertTrack(t *Track) *media.Stream {
	st := &media.Stream{
		Type:           t.streamType(),
		Codec:          t.Codec,
		TrackID:        t.ID,
		ParamSets:      t.ParamSets,
		Width:          t.Width,
		Height:         t.Height,
		PixelAspect:    t.PixelAspect,
		ColorPrimaries: t.ColorPrimaries,
		ColorTransfer:  t.ColorTransfer,
		ColorMatrix:    t.ColorMatrix,
		SampleRate:     t.SampleRate,
		ChannelCount:   t.ChannelCount,
		SampleSize:     t.SampleSize,
		Profile:        t.Profile,
		Level:          t.Level,
		NALLengthSize:  t.NALLengthSize,
		Language:       t.Language,
		Duration:       ticksToUs(int64(t.Duration), t.Timescale),
	}

	n := int(t.SampleCount)
	st.Samples = make([]media.Sample, n, n+len(t.FragSamples))

	// Per-sample sizes; constant-size fast path when stsz carried one size.
	if t.ConstantSize != 0 {
		for k := range st.Samples {
			st.Samples[k].Size = int64(t.ConstantSize)
		}
	} else {
		for k := range st.Samples {
			st.Samples[k].Size = int64(t.SampleSizes[k])
		}
	}

	// Decode timestamps from the stts runs: DTS[0] = 0 and each sample adds
	// the delta of the run it falls in.
	var (
		dts int64
		k   int
	)
	for _, run := range t.TimeToSample {
		for i := uint32(0); i < run.Count && k < n; i++ {
			st.Samples[k].DTS = dts
			dts += int64(run.Delta)
			k++
		}
	}

	// Presentation timestamps: DTS plus the ctts offset when present.
	if len(t.CompOffsets) != 0 {
		k = 0
		for _, run := range t.CompOffsets {
			for i := uint32(0); i < run.Count && k < n; i++ {
				st.Samples[k].PTS = st.Samples[k].DTS + int64(run.Offset)
				k++
			}
		}
		for ; k < n; k++ {
			st.Samples[k].PTS = st.Samples[k].DTS
		}
	} else {
		for k := range st.Samples {
			st.Samples[k].PTS = st.Samples[k].DTS
		}
	}

	d.assignOffsets(t, st)

	// Sample types; sync tagging for video tracks from stss.
	for k := range st.Samples {
		st.Samples[k].Type = sampleType(t, uint32(k+1))
	}

	// Convert timestamps from track timescale to microseconds.
	for k := range st.Samples {
		st.Samples[k].DTS = ticksToUs(st.Samples[k].DTS, t.Timescale)
		st.Samples[k].PTS = ticksToUs(st.Samples[k].PTS, t.Timescale)
	}

	d.appendFragSamples(t, st, dts)

	st.Framerate = framerate(t, len(st.Samples))
	return st
}

// assignOffsets reconstructs per-sample byte offsets by walking the stsc
// runs against the chunk offset table. The first sample of each chunk takes
// the chunk's offset; each subsequent sample takes its predecessor's offset
// plus the predecessor's size. A sample on a run boundary belongs to the run
// whose first_chunk is the largest value not exceeding its chunk number.
func (d *Demuxer) assignOffsets(t *Track, st *media.Stream) {
	n := len(st.Samples)
	if n == 0 || len(t.SampleToChunk) == 0 || len(t.ChunkOffsets) == 0 {
		return
	}

	k := 0
	for ri, run := range t.SampleToChunk {
		// The run covers chunks [FirstChunk, nextFirst).
		nextFirst := uint32(len(t.ChunkOffsets)) + 1
		if ri+1 < len(t.SampleToChunk) {
			nextFirst = t.SampleToChunk[ri+1].FirstChunk
		}

		for chunk := run.FirstChunk; chunk < nextFirst && k < n; chunk++ {
			if int(chunk) > len(t.ChunkOffsets) {
				return
			}
			off := int64(t.ChunkOffsets[chunk-1])
			for i := uint32(0); i < run.SamplesPerChunk && k < n; i++ {
				st.Samples[k].Offset = off
				off += st.Samples[k].Size
				k++
			}
		}
	}
}

// sampleType returns the sample type for 1-based sample number n of t.
func sampleType(t *Track, n uint32) media.SampleType {
	switch t.streamType() {
	case media.StreamVideo:
		if t.isSync(n) {
			return media.SampleVideoSync
		}
		return media.SampleVideo
	case media.StreamAudio:
		return media.SampleAudio
	case media.StreamText:
		return media.SampleText
	case media.StreamTimedMeta:
		return media.SampleTimedMeta
	}
	return media.SampleOther
}

// appendFragSamples appends samples reconstructed from movie fragments,
// continuing the decode timeline from the end of the moov samples.
func (d *Demuxer) appendFragSamples(t *Track, st *media.Stream, dts int64) {
	for _, fs := range t.FragSamples {
		typ := sampleType(t, 0)
		if st.Type == media.StreamVideo {
			typ = media.SampleVideo
			if fs.Sync {
				typ = media.SampleVideoSync
			}
		}
		st.Samples = append(st.Samples, media.Sample{
			Type:   typ,
			Offset: fs.Offset,
			Size:   int64(fs.Size),
			DTS:    ticksToUs(dts, t.Timescale),
			PTS:    ticksToUs(dts+int64(fs.CTSOffset), t.Timescale),
		})
		dts += int64(fs.Duration)
	}
	if len(t.FragSamples) != 0 {
		end := ticksToUs(dts, t.Timescale)
		if end > st.Duration {
			st.Duration = end
		}
	}
}

// framerate derives the stream framerate rational: the numerator is the
// track timescale and the base the average sample duration in ticks. For
// progressive-download files with no samples in the moov the edit list
// media time stands in for the average duration.
func framerate(t *Track, samples int) media.Rational {
	if t.streamType() != media.StreamVideo || t.Timescale == 0 {
		return media.Rational{}
	}
	var base int64
	if samples != 0 && t.Duration != 0 {
		base = int64(t.Duration) / int64(samples)
	} else if t.MediaTime > 0 {
		base = t.MediaTime
	}
	if base == 0 {
		return media.Rational{}
	}
	return media.Rational{Num: int64(t.Timescale), Base: base}
}
