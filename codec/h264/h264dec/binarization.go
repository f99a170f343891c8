/*
DESCRIPTION
  binarization.go provides the binarization tables of section 9.3.2 of
  ITU-T H.264 together with the bin string matcher used to decode syntax
  elements: bins are read one at a time and compared against every row of
  the element's table until exactly one row matches.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/


package h264dec

// Number of macroblock types for I slices, table 7-11.
const numOfIMBTypes = 26

// binOfIMBTypes provides binarization strings for values of macroblock
// type in I slices as defined in table 9-36 of the specifications.
var binOfIMBTypes = [numOfIMBTypes][]int{
	0:  {0},
	1:  {1, 0, 0, 0, 0, 0},
	2:  {1, 0, 0, 0, 0, 1},
	3:  {1, 0, 0, 0, 1, 0},
	4:  {1, 0, 0, 0, 1, 1},
	5:  {1, 0, 0, 1, 0, 0, 0},
	6:  {1, 0, 0, 1, 0, 0, 1},
	7:  {1, 0, 0, 1, 0, 1, 0},
	8:  {1, 0, 0, 1, 0, 1, 1},
	9:  {1, 0, 0, 1, 1, 0, 0},
	10: {1, 0, 0, 1, 1, 0, 1},
	11: {1, 0, 0, 1, 1, 1, 0},
	12: {1, 0, 0, 1, 1, 1, 1},
	13: {1, 0, 1, 0, 0, 0},
	14: {1, 0, 1, 0, 0, 1},
	15: {1, 0, 1, 0, 1, 0},
	16: {1, 0, 1, 0, 1, 1},
	17: {1, 0, 1, 1, 0, 0, 0},
	18: {1, 0, 1, 1, 0, 0, 1},
	19: {1, 0, 1, 1, 0, 1, 0},
	20: {1, 0, 1, 1, 0, 1, 1},
	21: {1, 0, 1, 1, 1, 0, 0},
	22: {1, 0, 1, 1, 1, 0, 1},
	23: {1, 0, 1, 1, 1, 1, 0},
	24: {1, 0, 1, 1, 1, 1, 1},
	25: {1, 1},
}

// binCtx describes how the bin at binIdx of a binarization is decoded:
// with decodeDecision at ctxIdx, with decodeTerminate, or with
// decodeBypass.
type binCtx struct {
	ctxIdx    int
	terminate bool
	bypass    bool
}

// matchBinarization decodes bins one at a time, after each bin comparing
// the accumulated bin string against every row of the table. Decoding stops
// when exactly one row matches completely; the row index is the decoded
// value. A bin string that matches no row is a bitstream-fatal error.
// ctxOf supplies the decode method for the bin at binIdx given the bins
// decoded so far.
func matchBinarization(c *cabac, rows [][]int, ctxOf func(binIdx int, bins []int) binCtx) (int, error) {
	var bins []int
	for {
		bc := ctxOf(len(bins), bins)
		var (
			b   int
			err error
		)
		switch {
		case bc.terminate:
			b, err = c.decodeTerminate()
		case bc.bypass:
			b, err = c.decodeBypass()
		default:
			b, err = c.decodeDecision(bc.ctxIdx)
		}
		if err != nil {
			return 0, err
		}
		bins = append(bins, b)

		match := -1
		var prefixes int
		for ri, row := range rows {
			if len(row) < len(bins) || !binPrefixEq(row, bins) {
				continue
			}
			if len(row) == len(bins) {
				match = ri
			}
			prefixes++
		}
		if prefixes == 0 {
			return 0, errBinMatch
		}
		// The tables are prefix-free, so a complete match is unique.
		if match >= 0 {
			return match, nil
		}
	}
}

// binPrefixEq returns true if bins matches the first len(bins) elements of
// row.
func binPrefixEq(row, bins []int) bool {
	for i := range bins {
		if row[i] != bins[i] {
			return false
		}
	}
	return true
}
