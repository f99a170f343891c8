/*
DESCRIPTION
  frag.go provides parsing of the fragmented movie boxes: track extends
  defaults under mvex, and movie fragments with their track runs. Track run
  entries are reconstructed into samples and appended to the owning track.

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
	"github.com/pkg/errors"
)

// tfhd flags.
const (
	tfhdBaseDataOffset         = 0x000001
	tfhdSampleDescriptionIndex = 0x000002
	tfhdDefaultSampleDuration  = 0x000008
	tfhdDefaultSampleSize      = 0x000010
	tfhdDefaultSampleFlags     = 0x000020
	tfhdDurationIsEmpty        = 0x010000
	tfhdDefaultBaseIsMoof      = 0x020000
)

// trun flags.
const (
	trunDataOffset       = 0x000001
	trunFirstSampleFlags = 0x000004
	trunSampleDuration   = 0x000100
	trunSampleSize       = 0x000200
	trunSampleFlags      = 0x000400
	trunSampleCTSOffset  = 0x000800
)

// sampleIsNonSync is the sample_is_non_sync_sample bit of sample flags.
const sampleIsNonSync = 0x00010000

// trafState carries the per-track-fragment defaults resolved from tfhd and
// trex while the traf's runs are parsed.
type trafState struct {
	track *Track

	baseDataOffset  int64
	defaultDuration uint32
	defaultSize     uint32
	defaultFlags    uint32

	baseDecodeTime uint64
	haveDecodeTime bool
}

// parseMvex walks a movie extends box for per-track run defaults.
func (d *Demuxer) parseMvex(box *Box) error {
	d.file.Fragmented = true
	for d.s.ByteOffset() < box.End {
		child, err := readBoxHeader(d.s)
		if err != nil {
			return errors.Wrap(err, "could not read mvex child header")
		}
		switch child.Type {
		case typeTrex:
			if err := d.parseTrex(child); err != nil {
				d.log.Log(logging.Warning, pkg+"skipping malformed trex", "offset", child.Start, "error", err.Error())
			}
		case typeMehd:
			// Fragment duration; the mvhd duration is authoritative here.
		}
		if err := jumpy(d.s, box, child); err != nil {
			return err
		}
	}
	return nil
}

// parseTrex reads track extends defaults for one track.
func (d *Demuxer) parseTrex(box *Box) error {
	if err := readFullBoxHeader(d.s, box); err != nil {
		return err
	}
	id := d.s.ReadBits(32)
	d.s.SkipBits(32) // Default sample description index.
	dur := d.s.ReadBits(32)
	size := d.s.ReadBits(32)
	flags := d.s.ReadBits(32)
	if err := d.s.Err(); err != nil {
		return err
	}

	t := d.trackByID(id)
	if t == nil {
		return errors.Errorf("trex references unknown track %d", id)
	}
	t.DefaultSampleDuration = dur
	t.DefaultSampleSize = size
	t.DefaultSampleFlags = flags
	return nil
}

// trackByID returns the track with the given ID, or nil.
func (d *Demuxer) trackByID(id uint32) *Track {
	for _, t := range d.tracks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// parseMoof walks a movie fragment, appending reconstructed samples to the
// tracks its track fragments reference.
func (d *Demuxer) parseMoof(box *Box) error {
	d.file.Fragmented = true
	for d.s.ByteOffset() < box.End {
		if !d.run.Load() {
			return errStopped
		}
		child, err := readBoxHeader(d.s)
		if err != nil {
			return errors.Wrap(err, "could not read moof child header")
		}

		switch child.Type {
		case typeMfhd:
			// Fragment sequence number; ordering is taken from file order.
		case typeTraf:
			if err := d.parseTraf(child, box); err != nil {
				d.log.Log(logging.Warning, pkg+"skipping malformed traf", "offset", child.Start, "error", err.Error())
			}
		default:
			d.log.Log(logging.Debug, pkg+"skipping unknown moof child", "type", child.Type.String(), "offset", child.Start)
		}

		if err := jumpy(d.s, box, child); err != nil {
			return err
		}
	}
	return nil
}

// parseTraf walks a track fragment: header, decode time, then runs in order.
func (d *Demuxer) parseTraf(box *Box, moof *Box) error {
	st := &trafState{baseDataOffset: moof.Start}

	for d.s.ByteOffset() < box.End {
		child, err := readBoxHeader(d.s)
		if err != nil {
			return errors.Wrap(err, "could not read traf child header")
		}

		switch child.Type {
		case typeTfhd:
			err = d.parseTfhd(child, st, moof)
		case typeTfdt:
			err = d.parseTfdt(child, st)
		case typeTrun:
			err = d.parseTrun(child, st)
		default:
			d.log.Log(logging.Debug, pkg+"skipping unknown traf child", "type", child.Type.String(), "offset", child.Start)
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

// parseTfhd resolves the fragment's track and per-run defaults, falling back
// to the trex defaults for fields tfhd omits.
func (d *Demuxer) parseTfhd(box *Box, st *trafState, moof *Box) error {
	if err := readFullBoxHeader(d.s, box); err != nil {
		return err
	}
	id := d.s.ReadBits(32)

	if box.Flags&tfhdBaseDataOffset != 0 {
		st.baseDataOffset = int64(d.s.ReadBits64(64))
	} else {
		// Without an explicit base, the default base is the moof start.
		st.baseDataOffset = moof.Start
	}
	if box.Flags&tfhdSampleDescriptionIndex != 0 {
		d.s.SkipBits(32)
	}

	st.track = d.trackByID(id)
	if st.track == nil {
		return errors.Errorf("tfhd references unknown track %d", id)
	}

	st.defaultDuration = st.track.DefaultSampleDuration
	st.defaultSize = st.track.DefaultSampleSize
	st.defaultFlags = st.track.DefaultSampleFlags
	if box.Flags&tfhdDefaultSampleDuration != 0 {
		st.defaultDuration = d.s.ReadBits(32)
	}
	if box.Flags&tfhdDefaultSampleSize != 0 {
		st.defaultSize = d.s.ReadBits(32)
	}
	if box.Flags&tfhdDefaultSampleFlags != 0 {
		st.defaultFlags = d.s.ReadBits(32)
	}
	return d.s.Err()
}

// parseTfdt reads the base media decode time of the fragment.
func (d *Demuxer) parseTfdt(box *Box, st *trafState) error {
	if err := readFullBoxHeader(d.s, box); err != nil {
		return err
	}
	if box.Version == 1 {
		st.baseDecodeTime = d.s.ReadBits64(64)
	} else {
		st.baseDecodeTime = uint64(d.s.ReadBits(32))
	}
	st.haveDecodeTime = true
	return d.s.Err()
}

// parseTrun reads one track run and appends its samples to the fragment's
// track. Sample fields absent from the run take the traf defaults.
func (d *Demuxer) parseTrun(box *Box, st *trafState) error {
	if st.track == nil {
		return errors.New("trun before tfhd in traf")
	}
	if err := readFullBoxHeader(d.s, box); err != nil {
		return err
	}

	count := d.s.ReadBits(32)
	if count > entryCap {
		return errEntryCount
	}

	offset := st.baseDataOffset
	if box.Flags&trunDataOffset != 0 {
		offset += int64(int32(d.s.ReadBits(32)))
	}
	firstFlags := st.defaultFlags
	if box.Flags&trunFirstSampleFlags != 0 {
		firstFlags = d.s.ReadBits(32)
	}

	for i := uint32(0); i < count && d.s.Err() == nil; i++ {
		smp := fragSample{
			Offset:   offset,
			Size:     st.defaultSize,
			Duration: st.defaultDuration,
		}
		flags := st.defaultFlags
		if i == 0 {
			flags = firstFlags
		}

		if box.Flags&trunSampleDuration != 0 {
			smp.Duration = d.s.ReadBits(32)
		}
		if box.Flags&trunSampleSize != 0 {
			smp.Size = d.s.ReadBits(32)
		}
		if box.Flags&trunSampleFlags != 0 {
			flags = d.s.ReadBits(32)
		}
		if box.Flags&trunSampleCTSOffset != 0 {
			// Unsigned in version 0, signed thereafter; stored signed.
			smp.CTSOffset = int32(d.s.ReadBits(32))
		}

		smp.Sync = flags&sampleIsNonSync == 0
		st.track.FragSamples = append(st.track.FragSamples, smp)
		offset += int64(smp.Size)
	}
	return d.s.Err()
}
