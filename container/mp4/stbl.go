/*
DESCRIPTION
  stbl.go provides parsing of the sample table box and its children: the
  time-to-sample, composition offset, sample-to-chunk, sample size, chunk
  offset, sync sample and dependency tables, and the sample description with
  its codec configuration boxes.

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
	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"

	"github.com/ausocean/mediaprobe/media"
)

// entryCap bounds table entry counts read from the file so a corrupt count
// cannot drive allocation past the file size.
const entryCap = 1 << 24

var errEntryCount = errors.New("table entry count exceeds sanity bound")

// parseStbl walks a sample table box. Children fill exactly one table each
// and are parsed strictly in the order they appear.
func (d *Demuxer) parseStbl(box *Box, t *Track) error {
	for d.s.ByteOffset() < box.End {
		if !d.run.Load() {
			return errStopped
		}
		child, err := readBoxHeader(d.s)
		if err != nil {
			return errors.Wrap(err, "could not read stbl child header")
		}

		switch child.Type {
		case typeStsd:
			err = d.parseStsd(child, t)
		case typeStts:
			err = d.parseStts(child, t)
		case typeCtts:
			err = d.parseCtts(child, t)
		case typeStsc:
			err = d.parseStsc(child, t)
		case typeStsz:
			err = d.parseStsz(child, t)
		case typeStz2:
			err = d.parseStz2(child, t)
		case typeStco:
			err = d.parseStco(child, t, false)
		case typeCo64:
			err = d.parseStco(child, t, true)
		case typeStss:
			err = d.parseStss(child, t)
		case typeSdtp:
			err = d.parseSdtp(child, t)
		default:
			d.log.Log(logging.Debug, pkg+"skipping unknown stbl child", "type", child.Type.String(), "offset", child.Start)
		}
		if err != nil {
			d.log.Log(logging.Warning, pkg+"skipping malformed box", "type", child.Type.String(), "offset", child.Start, "error", err.Error())
		}

		if err := jumpy(d.s, box, child); err != nil {
			return err
		}
	}
	return nil
}

// parseStts reads the decoding time-to-sample runs.
func (d *Demuxer) parseStts(box *Box, t *Track) error {
	if err := readFullBoxHeader(d.s, box); err != nil {
		return err
	}
	n := d.s.ReadBits(32)
	if n > entryCap {
		return errEntryCount
	}
	t.TimeToSample = make([]sttsEntry, 0, n)
	for i := uint32(0); i < n && d.s.Err() == nil; i++ {
		t.TimeToSample = append(t.TimeToSample, sttsEntry{
			Count: d.s.ReadBits(32),
			Delta: d.s.ReadBits(32),
		})
	}
	t.hasStts = d.s.Err() == nil
	return d.s.Err()
}

// parseCtts reads the composition (PTS-DTS) offset runs. Offsets are
// unsigned in version 0 boxes and signed in version 1 or greater.
func (d *Demuxer) parseCtts(box *Box, t *Track) error {
	if err := readFullBoxHeader(d.s, box); err != nil {
		return err
	}
	n := d.s.ReadBits(32)
	if n > entryCap {
		return errEntryCount
	}
	t.CompOffsets = make([]cttsEntry, 0, n)
	for i := uint32(0); i < n && d.s.Err() == nil; i++ {
		count := d.s.ReadBits(32)
		// Version 0 offsets are unsigned; version 1 or greater are signed.
		// Both are stored signed here, a v0 offset never reaches 2^31 in a
		// parseable file.
		off := int32(d.s.ReadBits(32))
		t.CompOffsets = append(t.CompOffsets, cttsEntry{Count: count, Offset: off})
	}
	return d.s.Err()
}

// parseStsc reads the compressed sample-to-chunk runs. Expansion to
// per-sample chunk indices is deferred to conversion.
func (d *Demuxer) parseStsc(box *Box, t *Track) error {
	if err := readFullBoxHeader(d.s, box); err != nil {
		return err
	}
	n := d.s.ReadBits(32)
	if n > entryCap {
		return errEntryCount
	}
	t.SampleToChunk = make([]stscEntry, 0, n)
	for i := uint32(0); i < n && d.s.Err() == nil; i++ {
		t.SampleToChunk = append(t.SampleToChunk, stscEntry{
			FirstChunk:      d.s.ReadBits(32),
			SamplesPerChunk: d.s.ReadBits(32),
			DescIdx:         d.s.ReadBits(32),
		})
	}
	t.hasStsc = d.s.Err() == nil
	return d.s.Err()
}

// parseStsz reads the sample size table: either one constant size for every
// sample, or an explicit per-sample array.
func (d *Demuxer) parseStsz(box *Box, t *Track) error {
	if err := readFullBoxHeader(d.s, box); err != nil {
		return err
	}
	t.ConstantSize = d.s.ReadBits(32)
	t.SampleCount = d.s.ReadBits(32)
	if t.ConstantSize == 0 {
		if t.SampleCount > entryCap {
			return errEntryCount
		}
		t.SampleSizes = make([]uint32, 0, t.SampleCount)
		for i := uint32(0); i < t.SampleCount && d.s.Err() == nil; i++ {
			t.SampleSizes = append(t.SampleSizes, d.s.ReadBits(32))
		}
	}
	t.hasStsz = d.s.Err() == nil
	return d.s.Err()
}

// parseStz2 reads the compact sample size table with 4, 8 or 16 bit fields.
func (d *Demuxer) parseStz2(box *Box, t *Track) error {
	if err := readFullBoxHeader(d.s, box); err != nil {
		return err
	}
	d.s.SkipBits(24) // Reserved.
	fieldSize := int(d.s.ReadBits(8))
	switch fieldSize {
	case 4, 8, 16:
	default:
		return errors.Errorf("invalid stz2 field size %d", fieldSize)
	}
	t.SampleCount = d.s.ReadBits(32)
	if t.SampleCount > entryCap {
		return errEntryCount
	}
	t.SampleSizes = make([]uint32, 0, t.SampleCount)
	for i := uint32(0); i < t.SampleCount && d.s.Err() == nil; i++ {
		t.SampleSizes = append(t.SampleSizes, d.s.ReadBits(fieldSize))
	}
	t.hasStsz = d.s.Err() == nil
	return d.s.Err()
}

// parseStco reads per-chunk absolute byte offsets, 32-bit (stco) or 64-bit
// (co64).
func (d *Demuxer) parseStco(box *Box, t *Track, wide bool) error {
	if err := readFullBoxHeader(d.s, box); err != nil {
		return err
	}
	n := d.s.ReadBits(32)
	if n > entryCap {
		return errEntryCount
	}
	t.ChunkOffsets = make([]uint64, 0, n)
	for i := uint32(0); i < n && d.s.Err() == nil; i++ {
		if wide {
			t.ChunkOffsets = append(t.ChunkOffsets, d.s.ReadBits64(64))
		} else {
			t.ChunkOffsets = append(t.ChunkOffsets, uint64(d.s.ReadBits(32)))
		}
	}
	t.hasStco = d.s.Err() == nil
	return d.s.Err()
}

// parseStss reads the 1-based sync (IDR) sample numbers. Absence of the box
// means every sample is a sync sample; presence means only listed samples
// are.
func (d *Demuxer) parseStss(box *Box, t *Track) error {
	if err := readFullBoxHeader(d.s, box); err != nil {
		return err
	}
	n := d.s.ReadBits(32)
	if n > entryCap {
		return errEntryCount
	}
	t.SyncAll = false
	t.SyncSamples = make([]uint32, 0, n)
	for i := uint32(0); i < n && d.s.Err() == nil; i++ {
		t.SyncSamples = append(t.SyncSamples, d.s.ReadBits(32))
	}
	return d.s.Err()
}

// parseSdtp reads per-sample dependency hints: four 2-bit fields per byte.
func (d *Demuxer) parseSdtp(box *Box, t *Track) error {
	if err := readFullBoxHeader(d.s, box); err != nil {
		return err
	}
	n := box.payloadLen(d.s)
	if n > entryCap {
		return errEntryCount
	}
	t.DependsOn = make([]uint8, 0, n)
	for i := int64(0); i < n && d.s.Err() == nil; i++ {
		t.DependsOn = append(t.DependsOn, uint8(d.s.ReadBits(8)))
	}
	return d.s.Err()
}

// parseStsd reads the sample description box: codec identity and the codec
// configuration children of the first sample entry.
func (d *Demuxer) parseStsd(box *Box, t *Track) error {
	if err := readFullBoxHeader(d.s, box); err != nil {
		return err
	}
	n := d.s.ReadBits(32)
	for i := uint32(0); i < n && d.s.ByteOffset() < box.End; i++ {
		entry, err := readBoxHeader(d.s)
		if err != nil {
			return errors.Wrap(err, "could not read sample entry header")
		}
		if i == 0 {
			t.Codec = entry.Type.String()
			switch t.Handler {
			case handlerVideo:
				err = d.parseVisualSampleEntry(entry, t)
			case handlerAudio:
				err = d.parseAudioSampleEntry(entry, t)
			}
			if err != nil {
				d.log.Log(logging.Warning, pkg+"skipping malformed sample entry", "type", entry.Type.String(), "offset", entry.Start, "error", err.Error())
			}
		}
		if err := jumpy(d.s, box, entry); err != nil {
			return err
		}
	}
	return d.s.Err()
}

// parseVisualSampleEntry reads the fixed fields of a visual sample entry and
// then walks its codec configuration children.
func (d *Demuxer) parseVisualSampleEntry(box *Box, t *Track) error {
	d.s.SkipBits(8 * 6)          // Reserved.
	d.s.SkipBits(16)             // Data reference index.
	d.s.SkipBits(16 + 16 + 32*3) // Pre-defined and reserved.
	t.Width = int(d.s.ReadBits(16))
	t.Height = int(d.s.ReadBits(16))
	d.s.SkipBits(32 + 32) // Horizontal and vertical resolution.
	d.s.SkipBits(32)      // Reserved.
	d.s.SkipBits(16)      // Frame count.

	// Compressor name is a 31-byte Pascal string.
	nameLen := int(d.s.ReadBits(8))
	name := d.s.ReadBytes(31)
	if nameLen > 0 && nameLen <= 31 && d.s.Err() == nil {
		t.Compressor = string(name[:nameLen])
	}
	d.s.SkipBits(16 + 16) // Depth, pre-defined.
	if err := d.s.Err(); err != nil {
		return err
	}
	return d.parseSampleEntryExtensions(box, t)
}

// parseAudioSampleEntry reads the fixed fields of an audio sample entry and
// then walks its codec configuration children.
func (d *Demuxer) parseAudioSampleEntry(box *Box, t *Track) error {
	d.s.SkipBits(8 * 6) // Reserved.
	d.s.SkipBits(16)    // Data reference index.
	version := d.s.ReadBits(16) // QuickTime sound sample description version.
	d.s.SkipBits(16 + 32)       // Revision level, vendor.
	t.ChannelCount = int(d.s.ReadBits(16))
	t.SampleSize = int(d.s.ReadBits(16))
	d.s.SkipBits(16 + 16) // Compression ID, packet size.
	t.SampleRate = d.s.ReadBits(32) >> 16 // 16.16 fixed point.

	// QuickTime v1 sound descriptions carry four additional 32-bit fields.
	if version == 1 {
		d.s.SkipBits(32 * 4)
	}
	if err := d.s.Err(); err != nil {
		return err
	}
	return d.parseSampleEntryExtensions(box, t)
}

// parseSampleEntryExtensions walks the codec configuration boxes following
// the fixed fields of a sample entry.
func (d *Demuxer) parseSampleEntryExtensions(box *Box, t *Track) error {
	for d.s.ByteOffset()+8 <= box.End {
		child, err := readBoxHeader(d.s)
		if err != nil {
			return errors.Wrap(err, "could not read sample entry child header")
		}

		switch child.Type {
		case typeAvcC:
			err = d.parseAvcC(child, t)
		case typeHvcC:
			err = d.parseHvcC(child, t)
		case typeEsds:
			err = d.parseEsds(child, t)
		case typePasp:
			t.PixelAspect = media.Rational{
				Num:  int64(d.s.ReadBits(32)),
				Base: int64(d.s.ReadBits(32)),
			}
			err = d.s.Err()
		case typeColr:
			err = d.parseColr(child, t)
		case typeFiel, typeGama, typeClap, typeBtrt:
			// Recorded as present; field level detail is not needed by the
			// sample index.
		default:
			d.log.Log(logging.Debug, pkg+"skipping unknown sample entry child", "type", child.Type.String(), "offset", child.Start)
		}
		if err != nil {
			d.log.Log(logging.Warning, pkg+"skipping malformed box", "type", child.Type.String(), "offset", child.Start, "error", err.Error())
		}

		if err := jumpy(d.s, box, child); err != nil {
			return err
		}
	}
	return nil
}

// parseColr reads an nclc/nclx colour information box.
func (d *Demuxer) parseColr(box *Box, t *Track) error {
	kind := string(d.s.ReadBytes(4))
	if kind != "nclc" && kind != "nclx" {
		return nil
	}
	t.ColorPrimaries = uint16(d.s.ReadBits(16))
	t.ColorTransfer = uint16(d.s.ReadBits(16))
	t.ColorMatrix = uint16(d.s.ReadBits(16))
	return d.s.Err()
}

// parseAvcC reads an AVC decoder configuration record, capturing the SPS and
// PPS NAL units with their absolute file offsets.
func (d *Demuxer) parseAvcC(box *Box, t *Track) error {
	d.s.SkipBits(8) // Configuration version.
	t.Profile = int(d.s.ReadBits(8))
	d.s.SkipBits(8) // Profile compatibility.
	t.Level = int(d.s.ReadBits(8))
	d.s.SkipBits(6) // Reserved.
	t.NALLengthSize = int(d.s.ReadBits(2)) + 1

	d.s.SkipBits(3) // Reserved.
	numSPS := int(d.s.ReadBits(5))
	for i := 0; i < numSPS && d.s.Err() == nil; i++ {
		if err := d.readParamSet(box, t, "SPS"); err != nil {
			return err
		}
	}
	numPPS := int(d.s.ReadBits(8))
	for i := 0; i < numPPS && d.s.Err() == nil; i++ {
		if err := d.readParamSet(box, t, "PPS"); err != nil {
			return err
		}
	}
	return d.s.Err()
}

// parseHvcC reads an HEVC decoder configuration record, capturing the
// VPS/SPS/PPS NAL unit arrays.
func (d *Demuxer) parseHvcC(box *Box, t *Track) error {
	d.s.SkipBits(8) // Configuration version.
	d.s.SkipBits(2 + 1 + 5) // Profile space, tier, profile idc.
	t.Profile = int(d.s.ReadBits(32)) // Profile compatibility flags.
	d.s.SkipBits(48)                  // Constraint indicator flags.
	t.Level = int(d.s.ReadBits(8))
	d.s.SkipBits(4 + 12) // Reserved, min spatial segmentation.
	d.s.SkipBits(6 + 2)  // Reserved, parallelism type.
	d.s.SkipBits(6 + 2)  // Reserved, chroma format.
	d.s.SkipBits(5 + 3)  // Reserved, luma bit depth.
	d.s.SkipBits(5 + 3)  // Reserved, chroma bit depth.
	d.s.SkipBits(16)     // Average frame rate.
	d.s.SkipBits(2 + 3 + 1) // Constant frame rate, num temporal layers, temporal nested.
	t.NALLengthSize = int(d.s.ReadBits(2)) + 1

	numArrays := int(d.s.ReadBits(8))
	for i := 0; i < numArrays && d.s.Err() == nil; i++ {
		d.s.SkipBits(2) // Array completeness, reserved.
		nalType := int(d.s.ReadBits(6))
		kind := "NAL"
		switch nalType {
		case 32:
			kind = "VPS"
		case 33:
			kind = "SPS"
		case 34:
			kind = "PPS"
		}
		numNals := int(d.s.ReadBits(16))
		for j := 0; j < numNals && d.s.Err() == nil; j++ {
			if err := d.readParamSet(box, t, kind); err != nil {
				return err
			}
		}
	}
	return d.s.Err()
}

// readParamSet reads one 16-bit-length-prefixed parameter set NAL unit,
// recording its absolute offset, size and bytes.
func (d *Demuxer) readParamSet(box *Box, t *Track, kind string) error {
	n := int64(d.s.ReadBits(16))
	if n <= 0 || d.s.ByteOffset()+n > box.End {
		return errors.Errorf("parameter set length %d exceeds its box", n)
	}
	off := d.s.ByteOffset()
	data := d.s.ReadBytes(int(n))
	if err := d.s.Err(); err != nil {
		return err
	}
	t.ParamSets = append(t.ParamSets, media.ParamSet{Kind: kind, Offset: off, Size: n, Data: data})
	return nil
}

// parseEsds walks the MPEG-4 elementary stream descriptor for the audio
// object type. Descriptor lengths use a 7-bit big-endian varint with a
// continuation bit.
func (d *Demuxer) parseEsds(box *Box, t *Track) error {
	if err := readFullBoxHeader(d.s, box); err != nil {
		return err
	}
	// ES descriptor (tag 0x03).
	if tag := d.s.ReadBits(8); tag != 0x03 {
		return nil
	}
	d.readDescLen()
	d.s.SkipBits(16) // ES ID.
	esFlags := d.s.ReadBits(8)
	if esFlags&0x80 != 0 {
		d.s.SkipBits(16) // Depends-on ES ID.
	}
	if esFlags&0x40 != 0 {
		urlLen := int(d.s.ReadBits(8))
		d.s.SkipBits(int64(urlLen) * 8)
	}

	// Decoder config descriptor (tag 0x04).
	if tag := d.s.ReadBits(8); tag != 0x04 {
		return d.s.Err()
	}
	d.readDescLen()
	objType := d.s.ReadBits(8)
	if t.Codec == "mp4a" {
		t.Profile = int(objType)
	}
	return d.s.Err()
}

// readDescLen reads an MPEG-4 descriptor expandable length field.
func (d *Demuxer) readDescLen() int {
	var n int
	for i := 0; i < 4; i++ {
		b := d.s.ReadBits(8)
		n = n<<7 | int(b&0x7f)
		if b&0x80 == 0 {
			break
		}
	}
	return n
}
