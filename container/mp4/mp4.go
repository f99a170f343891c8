/*
DESCRIPTION
  mp4.go provides the ISO base media file format demuxer: a recursive box
  tree walk that collects per-track sample tables and converts them into
  media streams.

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


// Package mp4 provides a demuxer for the ISO base media file format,
// covering the MP4, 3GP, QuickTime, JPEG-2000 and MPEG-21 profiles. The
// demuxer reconstructs a per-track sample index from the sample tables of
// the moov box hierarchy, including the fragmented movie variant, and
// produces the media package's language neutral stream view.
package mp4

import (
	"io"
	"sync/atomic"

	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"

	"github.com/ausocean/mediaprobe/bits"
	"github.com/ausocean/mediaprobe/media"
)

// Logging prefix for this package.
const pkg = "mp4: "

// Demuxer walks an ISO BMFF box tree and materialises per-track sample
// indexes. It owns the stream cursor; the input is never modified.
type Demuxer struct {
	s   *bits.ByteStream
	log logging.Logger

	file   *media.File
	tracks []*Track

	mvhdTimescale uint32
	mvhdDuration  uint64

	// run is checked at every box loop iteration, letting a caller request
	// an early stop without corrupting partial state.
	run atomic.Bool
}

// Errors returnable by Parse.
var (
	errStopped = errors.New("demuxing stopped by caller")
	errNoBoxes = errors.New("no parseable boxes found")
)

// NewDemuxer returns a Demuxer reading from r and logging with l.
func NewDemuxer(r io.ReadSeeker, l logging.Logger) (*Demuxer, error) {
	s, err := bits.NewByteStream(r)
	if err != nil {
		return nil, errors.Wrap(err, "could not create byte stream")
	}
	d := &Demuxer{s: s, log: l, file: &media.File{}}
	d.run.Store(true)
	return d, nil
}

// Stop requests a cooperative stop of an in-progress Parse. The box loop
// notices at its next iteration.
func (d *Demuxer) Stop() {
	d.run.Store(false)
}

// Parse walks the file from the first box to the last and returns the
// resulting media.File. Malformed boxes are logged and skipped; tracks whose
// sample tables are missing or inconsistent are dropped from the output but
// do not abort parsing.
func (d *Demuxer) Parse() (*media.File, error) {
	var parsed int
	for d.s.ByteOffset() < d.s.Size() {
		if !d.run.Load() {
			return nil, errStopped
		}

		box, err := readBoxHeader(d.s)
		if err != nil {
			if parsed == 0 {
				return nil, errors.Wrap(err, "could not read first box header")
			}
			// Trailing garbage after the last parseable box.
			d.log.Log(logging.Warning, pkg+"unreadable box header, stopping walk", "offset", d.s.ByteOffset(), "error", err.Error())
			break
		}

		switch box.Type {
		case typeFtyp, typeStyp:
			err = d.parseFtyp(box)
		case typeMoov:
			err = d.parseMoov(box)
		case typeMoof:
			err = d.parseMoof(box)
		case typeUdta:
			err = d.parseUdta(box)
		case typeMdat, typeFree, typeSkip, typePdin, typeUUID:
			// Nothing to collect; jumpy skips the payload.
		default:
			d.log.Log(logging.Debug, pkg+"skipping unknown box", "type", box.Type.String(), "offset", box.Start)
		}
		if err != nil {
			d.log.Log(logging.Warning, pkg+"skipping malformed box", "type", box.Type.String(), "offset", box.Start, "error", err.Error())
		}

		if err := jumpy(d.s, nil, box); err != nil {
			return nil, errors.Wrap(err, "could not recover after box")
		}
		parsed++
	}
	if parsed == 0 {
		return nil, errNoBoxes
	}

	if err := d.convert(); err != nil {
		return nil, errors.Wrap(err, "could not convert tracks")
	}
	return d.file, nil
}

// parseFtyp records the major and compatible brands. Brands do not gate
// parsing.
func (d *Demuxer) parseFtyp(box *Box) error {
	d.file.Brand = string(d.s.ReadBytes(4))
	d.s.SkipBits(32) // Minor version.
	for d.s.ByteOffset()+4 <= box.End && d.s.Err() == nil {
		d.file.Compatible = append(d.file.Compatible, string(d.s.ReadBytes(4)))
	}
	return d.s.Err()
}

// parseMoov walks the children of a moov box.
func (d *Demuxer) parseMoov(box *Box) error {
	for d.s.ByteOffset() < box.End {
		if !d.run.Load() {
			return errStopped
		}
		child, err := readBoxHeader(d.s)
		if err != nil {
			return errors.Wrap(err, "could not read moov child header")
		}

		switch child.Type {
		case typeMvhd:
			err = d.parseMvhd(child)
		case typeTrak:
			err = d.parseTrak(child)
		case typeMvex:
			err = d.parseMvex(child)
		case typeUdta:
			err = d.parseUdta(child)
		case typeIods:
			// Object descriptor carries no sample information.
		default:
			d.log.Log(logging.Debug, pkg+"skipping unknown moov child", "type", child.Type.String(), "offset", child.Start)
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

// parseMvhd reads the movie header: the file level timescale and duration.
func (d *Demuxer) parseMvhd(box *Box) error {
	if err := readFullBoxHeader(d.s, box); err != nil {
		return err
	}
	if box.Version == 1 {
		d.s.SkipBits(64 + 64) // Creation and modification times.
		d.mvhdTimescale = d.s.ReadBits(32)
		d.mvhdDuration = d.s.ReadBits64(64)
	} else {
		d.s.SkipBits(32 + 32)
		d.mvhdTimescale = d.s.ReadBits(32)
		d.mvhdDuration = uint64(d.s.ReadBits(32))
	}
	if d.mvhdTimescale != 0 {
		d.file.Duration = ticksToUs(int64(d.mvhdDuration), d.mvhdTimescale)
	}
	return d.s.Err()
}

// parseTrak walks a trak box, appending a fresh Track to the track list.
// Failure inside a trak is contained: the offending child is skipped via
// jumpy and its siblings remain parseable.
func (d *Demuxer) parseTrak(box *Box) error {
	t := &Track{SyncAll: true}
	d.tracks = append(d.tracks, t)

	for d.s.ByteOffset() < box.End {
		if !d.run.Load() {
			return errStopped
		}
		child, err := readBoxHeader(d.s)
		if err != nil {
			return errors.Wrap(err, "could not read trak child header")
		}

		switch child.Type {
		case typeTkhd:
			err = d.parseTkhd(child, t)
		case typeEdts:
			err = d.parseEdts(child, t)
		case typeMdia:
			err = d.parseMdia(child, t)
		case typeTref:
			// Track references are recorded nowhere; nothing to collect.
		default:
			d.log.Log(logging.Debug, pkg+"skipping unknown trak child", "type", child.Type.String(), "offset", child.Start)
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

// parseTkhd reads the track header for the track ID and presentation
// dimensions.
func (d *Demuxer) parseTkhd(box *Box, t *Track) error {
	if err := readFullBoxHeader(d.s, box); err != nil {
		return err
	}
	if box.Version == 1 {
		d.s.SkipBits(64 + 64)
		t.ID = d.s.ReadBits(32)
		d.s.SkipBits(32 + 64) // Reserved, duration.
	} else {
		d.s.SkipBits(32 + 32)
		t.ID = d.s.ReadBits(32)
		d.s.SkipBits(32 + 32)
	}
	d.s.SkipBits(32 * 2)     // Reserved.
	d.s.SkipBits(16 + 16)    // Layer, alternate group.
	d.s.SkipBits(16 + 16)    // Volume, reserved.
	d.s.SkipBits(32 * 9)     // Matrix.
	w := d.s.ReadBits(32)    // 16.16 fixed point.
	h := d.s.ReadBits(32)
	if t.Width == 0 {
		t.Width = int(w >> 16)
	}
	if t.Height == 0 {
		t.Height = int(h >> 16)
	}
	return d.s.Err()
}

// parseEdts walks an edts box for the elst media time.
func (d *Demuxer) parseEdts(box *Box, t *Track) error {
	for d.s.ByteOffset() < box.End {
		child, err := readBoxHeader(d.s)
		if err != nil {
			return errors.Wrap(err, "could not read edts child header")
		}
		if child.Type == typeElst {
			if err := d.parseElst(child, t); err != nil {
				d.log.Log(logging.Warning, pkg+"skipping malformed elst", "offset", child.Start, "error", err.Error())
			}
		}
		if err := jumpy(d.s, box, child); err != nil {
			return err
		}
	}
	return nil
}

// parseElst reads the edit list. Only the first entry's media time is kept;
// it seeds framerate derivation for progressive-download files.
func (d *Demuxer) parseElst(box *Box, t *Track) error {
	if err := readFullBoxHeader(d.s, box); err != nil {
		return err
	}
	n := d.s.ReadBits(32)
	for i := uint32(0); i < n && d.s.Err() == nil; i++ {
		var mediaTime int64
		if box.Version == 1 {
			d.s.SkipBits(64) // Segment duration.
			mediaTime = int64(d.s.ReadBits64(64))
		} else {
			d.s.SkipBits(32)
			mediaTime = int64(int32(d.s.ReadBits(32)))
		}
		d.s.SkipBits(16 + 16) // Media rate integer and fraction.
		if i == 0 {
			t.MediaTime = mediaTime
		}
	}
	return d.s.Err()
}

// parseMdia walks a mdia box: media header, handler and media information.
func (d *Demuxer) parseMdia(box *Box, t *Track) error {
	for d.s.ByteOffset() < box.End {
		child, err := readBoxHeader(d.s)
		if err != nil {
			return errors.Wrap(err, "could not read mdia child header")
		}

		switch child.Type {
		case typeMdhd:
			err = d.parseMdhd(child, t)
		case typeHdlr:
			err = d.parseHdlr(child, t)
		case typeMinf:
			err = d.parseMinf(child, t)
		default:
			d.log.Log(logging.Debug, pkg+"skipping unknown mdia child", "type", child.Type.String(), "offset", child.Start)
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

// parseMdhd reads the media header: track timescale, duration and packed
// ISO-639-2/T language code.
func (d *Demuxer) parseMdhd(box *Box, t *Track) error {
	if err := readFullBoxHeader(d.s, box); err != nil {
		return err
	}
	if box.Version == 1 {
		d.s.SkipBits(64 + 64)
		t.Timescale = d.s.ReadBits(32)
		t.Duration = d.s.ReadBits64(64)
	} else {
		d.s.SkipBits(32 + 32)
		t.Timescale = d.s.ReadBits(32)
		t.Duration = uint64(d.s.ReadBits(32))
	}

	// Language is three 5-bit values, each an offset from 0x60.
	d.s.SkipBits(1)
	lang := [3]byte{}
	for i := range lang {
		lang[i] = byte(d.s.ReadBits(5)) + 0x60
	}
	if lang[0] > 0x60 && lang[0] <= 'z' {
		t.Language = string(lang[:])
	}
	d.s.SkipBits(16) // Pre-defined.
	return d.s.Err()
}

// parseHdlr reads the handler reference: the track's media kind.
func (d *Demuxer) parseHdlr(box *Box, t *Track) error {
	if err := readFullBoxHeader(d.s, box); err != nil {
		return err
	}
	d.s.SkipBits(32) // Pre-defined (component type in QuickTime).
	t.Handler = string(d.s.ReadBytes(4))
	return d.s.Err()
}

// parseMinf walks a minf box down to the sample table.
func (d *Demuxer) parseMinf(box *Box, t *Track) error {
	for d.s.ByteOffset() < box.End {
		child, err := readBoxHeader(d.s)
		if err != nil {
			return errors.Wrap(err, "could not read minf child header")
		}

		switch child.Type {
		case typeStbl:
			err = d.parseStbl(child, t)
		case typeVmhd, typeSmhd, typeHmhd, typeNmhd, typeDinf:
			// Media headers and data references carry no sample information
			// for a self-contained file.
		default:
			d.log.Log(logging.Debug, pkg+"skipping unknown minf child", "type", child.Type.String(), "offset", child.Start)
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

// parseUdta walks user data for file level metadata, best effort.
func (d *Demuxer) parseUdta(box *Box) error {
	for d.s.ByteOffset() < box.End {
		child, err := readBoxHeader(d.s)
		if err != nil {
			return errors.Wrap(err, "could not read udta child header")
		}
		if child.Type == typeMeta {
			if err := d.parseMeta(child); err != nil {
				d.log.Log(logging.Warning, pkg+"skipping malformed meta", "offset", child.Start, "error", err.Error())
			}
		}
		if err := jumpy(d.s, box, child); err != nil {
			return err
		}
	}
	return nil
}

// parseMeta walks a meta box looking for an iTunes-style ilst.
func (d *Demuxer) parseMeta(box *Box) error {
	if err := readFullBoxHeader(d.s, box); err != nil {
		return err
	}
	for d.s.ByteOffset() < box.End {
		child, err := readBoxHeader(d.s)
		if err != nil {
			return errors.Wrap(err, "could not read meta child header")
		}
		if child.Type == typeIlst {
			if err := d.parseIlst(child); err != nil {
				d.log.Log(logging.Warning, pkg+"skipping malformed ilst", "offset", child.Start, "error", err.Error())
			}
		}
		if err := jumpy(d.s, box, child); err != nil {
			return err
		}
	}
	return nil
}

// iTunes metadata item types of interest.
var (
	itemTitle   = BoxType{0xa9, 'n', 'a', 'm'}
	itemArtist  = BoxType{0xa9, 'A', 'R', 'T'}
	itemEncoder = BoxType{0xa9, 't', 'o', 'o'}
)

// parseIlst walks an item list collecting well-known text items. Each item
// box wraps a data box whose payload, after an 8 byte type/locale prologue,
// is the UTF-8 value.
func (d *Demuxer) parseIlst(box *Box) error {
	for d.s.ByteOffset() < box.End {
		item, err := readBoxHeader(d.s)
		if err != nil {
			return errors.Wrap(err, "could not read ilst item header")
		}

		switch item.Type {
		case itemTitle, itemArtist, itemEncoder:
			data, err := readBoxHeader(d.s)
			if err == nil && data.Type == boxType("data") && data.payloadLen(d.s) >= 8 {
				d.s.SkipBits(64) // Type indicator and locale.
				v := string(d.s.ReadBytes(int(data.End - d.s.ByteOffset())))
				switch item.Type {
				case itemTitle:
					d.file.Title = v
				case itemArtist:
					d.file.Artist = v
				case itemEncoder:
					d.file.Encoder = v
				}
			}
		}

		if err := jumpy(d.s, box, item); err != nil {
			return err
		}
	}
	return nil
}

// ticksToUs converts t ticks at the given timescale to microseconds.
// Intermediate products fit in 64 bits for any realistic input.
func ticksToUs(t int64, timescale uint32) int64 {
	if timescale == 0 {
		return 0
	}
	return t * 1e6 / int64(timescale)
}
