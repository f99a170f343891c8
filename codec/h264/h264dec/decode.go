/*
DESCRIPTION
  decode.go provides the decoder entry points: NAL units are fed in decode
  order, parameter sets are activated, and intra coded slices are decoded
  into pictures.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/


// Package h264dec provides decoding of H.264 sequence and picture parameter
// sets and of CABAC coded intra slices: entropy decoding, intra prediction
// and inverse transforms reconstructing luma and chroma samples macroblock
// by macroblock.
package h264dec

import "github.com/pkg/errors"

// Decoder decodes a sequence of NAL units. SPS and PPS units activate
// parameter sets; IDR slice units decode into pictures.
type Decoder struct {
	vid *VideoStream
}

// NewDecoder returns a Decoder with no active parameter sets.
func NewDecoder() *Decoder {
	return &Decoder{vid: &VideoStream{}}
}

// Stream returns the decoder's video stream state.
func (d *Decoder) Stream() *VideoStream { return d.vid }

// Pictures returns the pictures decoded so far, in decode order.
func (d *Decoder) Pictures() []*Picture { return d.vid.Pictures }

// Decode parses the NAL unit in b, which must begin at the NAL header byte
// with emulation prevention bytes still in place, and acts on it: parameter
// sets are activated, intra slices are decoded. Unhandled NAL unit types
// are ignored. Errors from slice decoding are bitstream-fatal for that
// slice; the decoder remains usable for subsequent units.
func (d *Decoder) Decode(b []byte) error {
	nal, err := NewNALUnit(b)
	if err != nil {
		return errors.Wrap(err, "could not parse NAL unit")
	}

	switch nal.Type {
	case NALTypeSPS:
		sps, err := NewSPS(nal.RBSP)
		if err != nil {
			return errors.Wrap(err, "could not parse SPS")
		}
		d.vid.SPS = sps
	case NALTypePPS:
		pps, err := NewPPS(nal.RBSP, d.vid.SPS)
		if err != nil {
			return errors.Wrap(err, "could not parse PPS")
		}
		d.vid.PPS = pps
	case NALTypeIDR:
		if _, err := NewSliceContext(d.vid, nal); err != nil {
			return errors.Wrap(err, "could not decode IDR slice")
		}
	case NALTypeNonIDR:
		// Non-IDR slices of an all intra stream decode identically.
		if _, err := NewSliceContext(d.vid, nal); err != nil {
			return errors.Wrap(err, "could not decode slice")
		}
	}
	return nil
}
