/*
DESCRIPTION
  box.go provides parsing of ISO base media file format box and full box
  headers, the box type vocabulary, and the jumpy recovery primitive that
  repositions the stream cursor after a malformed or partially parsed box.

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

	"github.com/ausocean/mediaprobe/bits"
)

// BoxType is a 4-byte box type identifier.
type BoxType [4]byte

func (t BoxType) String() string {
	return string(t[:])
}

// boxType builds a BoxType from a string literal of length 4.
func boxType(s string) BoxType {
	return BoxType{s[0], s[1], s[2], s[3]}
}

// File structure boxes.
var (
	typeFtyp = boxType("ftyp") // File type and compatibility.
	typeStyp = boxType("styp") // Segment type (fragmented MP4).
	typePdin = boxType("pdin") // Progressive download information.
	typeMdat = boxType("mdat") // Media data payload.
	typeFree = boxType("free") // Free space.
	typeSkip = boxType("skip") // Free space.
	typeUUID = boxType("uuid") // User extension box with 16-byte type.
)

// Movie structure boxes (moov and children).
var (
	typeMoov = boxType("moov") // Movie metadata container.
	typeMvhd = boxType("mvhd") // Movie header (timescale, duration).
	typeIods = boxType("iods") // Object descriptor.
	typeTrak = boxType("trak") // Track container.
	typeTkhd = boxType("tkhd") // Track header (ID, dimensions).
	typeTref = boxType("tref") // Track reference container.
	typeEdts = boxType("edts") // Edit list container.
	typeElst = boxType("elst") // Edit list entries.
	typeMdia = boxType("mdia") // Media information container.
	typeMdhd = boxType("mdhd") // Media header (timescale, duration).
	typeHdlr = boxType("hdlr") // Handler reference (vide/soun/...).
	typeMinf = boxType("minf") // Media information container.
	typeVmhd = boxType("vmhd") // Video media header.
	typeSmhd = boxType("smhd") // Sound media header.
	typeHmhd = boxType("hmhd") // Hint media header.
	typeNmhd = boxType("nmhd") // Null media header.
	typeDinf = boxType("dinf") // Data information container.
	typeDref = boxType("dref") // Data reference (URL/URN entries).
	typeURL  = boxType("url ") // Data entry URL.
	typeURN  = boxType("urn ") // Data entry URN.
	typeAlis = boxType("alis") // QuickTime file alias.
)

// Sample table boxes (stbl children).
var (
	typeStbl = boxType("stbl") // Sample table container.
	typeStsd = boxType("stsd") // Sample descriptions (codec config).
	typeStts = boxType("stts") // Decoding time-to-sample.
	typeCtts = boxType("ctts") // Composition time-to-sample.
	typeStsc = boxType("stsc") // Sample-to-chunk mapping.
	typeStsz = boxType("stsz") // Sample sizes.
	typeStz2 = boxType("stz2") // Compact sample sizes.
	typeStco = boxType("stco") // Chunk offsets (32-bit).
	typeCo64 = boxType("co64") // Chunk offsets (64-bit).
	typeStss = boxType("stss") // Sync sample table (keyframes).
	typeSdtp = boxType("sdtp") // Sample dependency type.
)

// Sample entry configuration boxes (children of stsd entries).
var (
	typeAvcC = boxType("avcC") // AVC decoder configuration record.
	typeHvcC = boxType("hvcC") // HEVC decoder configuration record.
	typeEsds = boxType("esds") // MPEG-4 ES descriptor.
	typePasp = boxType("pasp") // Pixel aspect ratio.
	typeColr = boxType("colr") // Colour information.
	typeFiel = boxType("fiel") // Field/interlace information.
	typeGama = boxType("gama") // QuickTime gamma.
	typeClap = boxType("clap") // Clean aperture.
	typeBtrt = boxType("btrt") // Bit rate.
)

// Fragment boxes (moof and children, mvex).
var (
	typeMvex = boxType("mvex") // Movie extends (signals fragmented file).
	typeMehd = boxType("mehd") // Movie extends header.
	typeTrex = boxType("trex") // Track extends defaults.
	typeMoof = boxType("moof") // Movie fragment container.
	typeMfhd = boxType("mfhd") // Movie fragment header (sequence number).
	typeTraf = boxType("traf") // Track fragment container.
	typeTfhd = boxType("tfhd") // Track fragment header.
	typeTfdt = boxType("tfdt") // Track fragment decode time.
	typeTrun = boxType("trun") // Track run (per-sample metadata).
)

// Metadata boxes.
var (
	typeMeta = boxType("meta") // Metadata container.
	typeIlst = boxType("ilst") // iTunes-style item list.
	typeUdta = boxType("udta") // User data container.
)

// Box describes one parsed box header. The stream cursor is left at the
// first byte of the box payload after a successful readBoxHeader.
type Box struct {
	// Start and End are absolute byte offsets; End == Start + Size.
	Start, End int64

	// Size is the total box size in bytes including the header.
	Size int64

	// Type is the 4-byte box type.
	Type BoxType

	// UserType holds the 16-byte extended type when Type is uuid.
	UserType [16]byte

	// Version and Flags are set by readFullBoxHeader.
	Version uint8
	Flags   uint32
}

// payloadLen returns the number of payload bytes remaining from the current
// stream position to the end of the box.
func (b *Box) payloadLen(s *bits.ByteStream) int64 {
	return b.End - s.ByteOffset()
}

// Errors returnable by box header parsing.
var (
	errBoxTooSmall  = errors.New("box size smaller than its header")
	errBoxPastEnd   = errors.New("box header extends past end of file")
	errShortVersion = errors.New("could not read full box version and flags")
)

// readBoxHeader reads a box header at the current stream position: 32-bit
// size and 4-byte type, then optionally a 64-bit largesize (size == 1) or a
// 16-byte user type (type uuid). A size of 0 means the box extends to the
// end of the file. See ISO/IEC 14496-12 section 4.2.
func readBoxHeader(s *bits.ByteStream) (*Box, error) {
	b := &Box{Start: s.ByteOffset()}

	b.Size = int64(s.ReadBits(32))
	copy(b.Type[:], s.ReadBytes(4))
	hdr := int64(8)

	if b.Size == 0 {
		// The box occupies the remaining space in the file.
		b.Size = s.Size() - b.Start
	} else if b.Size == 1 {
		// The real size is a 64-bit field following the type.
		b.Size = int64(s.ReadBits64(64))
		hdr += 8
	}

	if b.Type == typeUUID {
		copy(b.UserType[:], s.ReadBytes(16))
		hdr += 16
	}

	if err := s.Err(); err != nil {
		return nil, errors.Wrap(err, "could not read box header")
	}

	if b.Size < hdr {
		return nil, errBoxTooSmall
	}
	b.End = b.Start + b.Size

	if b.Start+hdr > s.Size() {
		return nil, errBoxPastEnd
	}
	return b, nil
}

// readFullBoxHeader consumes the version byte and 24-bit flags field of a
// full box. The box must already have had its header read.
func readFullBoxHeader(s *bits.ByteStream, b *Box) error {
	b.Version = uint8(s.ReadBits(8))
	b.Flags = s.ReadBits(24)
	if err := s.Err(); err != nil {
		return errors.Wrap(errShortVersion, err.Error())
	}
	return nil
}

// jumpy repositions the stream cursor at the end of current after its parse,
// clamped so a box claiming to extend past its parent (or the file, when
// parent is nil) cannot drag the cursor out of bounds. It is the single
// recovery primitive of the demuxer: real-world files contain undersized and
// oversized boxes, and a malformed descendant must not trap the parser.
func jumpy(s *bits.ByteStream, parent, current *Box) error {
	pos := s.ByteOffset()
	if pos == current.End {
		return nil
	}

	end := current.End
	if parent != nil && parent.End < s.Size() {
		// A child end past its parent end is broken; trust the parent.
		if end > parent.End {
			end = parent.End
		}
	} else if end > s.Size() {
		end = s.Size()
	}

	// Past the last byte of the file there is nothing to position over; park
	// the cursor at the end and let the box loop finish up.
	if end >= s.Size() {
		end = s.Size()
	}

	s.ClearErr()
	return s.GotoOffset(end)
}
