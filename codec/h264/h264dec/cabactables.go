/*
DESCRIPTION
  cabactables.go provides the normative read-only tables of the CABAC
  decoding engine: the LPS range subdivision table, the probability state
  transition table, and the (m,n) context initialisation values for I
  slices.

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

// Number of context variables maintained by the engine, and the reserved
// context index of end_of_slice_flag and the I_PCM terminating bin.
const (
	numCtxVars  = 460
	ctxTerminate = 276
)

// Number of columns and rows for rangeTabLPS.
const (
	rangeTabLPSColumns = 4
	rangeTabLPSRows    = 64
)

// rangeTabLPS provides values of codIRangeLPS as defined in section
// 9.3.3.2.1.1, tab 9-44. Rows correspond to pStateIdx, and columns to
// qCodIRangeIdx, i.e. codIRangeLPS = rangeTabLPS[pStateIdx][qCodIRangeIdx].
var rangeTabLPS = [rangeTabLPSRows][rangeTabLPSColumns]uint32{
	0:  {128, 176, 208, 240},
	1:  {128, 167, 197, 227},
	2:  {128, 158, 187, 216},
	3:  {123, 150, 178, 205},
	4:  {116, 142, 169, 195},
	5:  {111, 135, 160, 185},
	6:  {105, 128, 152, 175},
	7:  {100, 122, 144, 166},
	8:  {95, 116, 137, 158},
	9:  {90, 110, 130, 150},
	10: {85, 104, 123, 142},
	11: {81, 99, 117, 135},
	12: {77, 94, 111, 128},
	13: {73, 89, 105, 122},
	14: {69, 85, 100, 116},
	15: {66, 80, 95, 110},
	16: {62, 76, 90, 104},
	17: {59, 72, 86, 99},
	18: {56, 69, 81, 94},
	19: {53, 65, 77, 89},
	20: {51, 62, 73, 85},
	21: {48, 59, 69, 80},
	22: {46, 56, 66, 76},
	23: {43, 53, 63, 72},
	24: {41, 50, 59, 69},
	25: {39, 48, 56, 65},
	26: {37, 45, 54, 62},
	27: {35, 43, 51, 59},
	28: {33, 41, 48, 56},
	29: {32, 39, 46, 53},
	30: {30, 37, 43, 50},
	31: {29, 35, 41, 48},
	32: {27, 33, 39, 45},
	33: {26, 31, 37, 43},
	34: {24, 30, 35, 41},
	35: {23, 28, 33, 39},
	36: {22, 27, 32, 37},
	37: {21, 26, 30, 35},
	38: {20, 24, 29, 33},
	39: {19, 23, 27, 31},
	40: {18, 22, 26, 30},
	41: {17, 21, 25, 28},
	42: {16, 20, 23, 27},
	43: {15, 19, 22, 25},
	44: {14, 18, 21, 24},
	45: {14, 17, 20, 23},
	46: {13, 16, 19, 22},
	47: {12, 15, 18, 21},
	48: {12, 14, 17, 20},
	49: {11, 14, 16, 19},
	50: {11, 13, 15, 18},
	51: {10, 12, 15, 17},
	52: {10, 12, 14, 16},
	53: {9, 11, 13, 15},
	54: {9, 11, 12, 14},
	55: {8, 10, 12, 14},
	56: {8, 9, 11, 13},
	57: {7, 9, 11, 12},
	58: {7, 9, 10, 12},
	59: {7, 8, 10, 11},
	60: {6, 8, 9, 11},
	61: {6, 7, 9, 10},
	62: {6, 7, 8, 9},
	63: {2, 2, 2, 2},
}

// stateTransx holds one row of the probability state transition table.
type stateTransx struct {
	TransIdxLPS, TransIdxMPS int
}

// stateTransxTab provides the probability state transitions of section
// 9.3.3.2.1.1, tab 9-45, indexed by pStateIdx.
var stateTransxTab = [64]stateTransx{
	0:  {0, 1},
	1:  {0, 2},
	2:  {1, 3},
	3:  {2, 4},
	4:  {2, 5},
	5:  {4, 6},
	6:  {4, 7},
	7:  {5, 8},
	8:  {6, 9},
	9:  {7, 10},
	10: {8, 11},
	11: {9, 12},
	12: {9, 13},
	13: {11, 14},
	14: {11, 15},
	15: {12, 16},
	16: {13, 17},
	17: {13, 18},
	18: {15, 19},
	19: {15, 20},
	20: {16, 21},
	21: {16, 22},
	22: {18, 23},
	23: {18, 24},
	24: {19, 25},
	25: {19, 26},
	26: {21, 27},
	27: {21, 28},
	28: {22, 29},
	29: {22, 30},
	30: {23, 31},
	31: {24, 32},
	32: {24, 33},
	33: {25, 34},
	34: {26, 35},
	35: {26, 36},
	36: {27, 37},
	37: {27, 38},
	38: {28, 39},
	39: {29, 40},
	40: {29, 41},
	41: {30, 42},
	42: {30, 43},
	43: {30, 44},
	44: {31, 45},
	45: {32, 46},
	46: {32, 47},
	47: {33, 48},
	48: {33, 49},
	49: {33, 50},
	50: {34, 51},
	51: {34, 52},
	52: {35, 53},
	53: {35, 54},
	54: {35, 55},
	55: {36, 56},
	56: {36, 57},
	57: {36, 58},
	58: {37, 59},
	59: {37, 60},
	60: {37, 61},
	61: {38, 62},
	62: {38, 62},
	63: {63, 63},
}

// ctxInitI provides the (m,n) context initialisation variables for I slices
// from tables 9-12 to 9-33 of the specifications, indexed by ctxIdx. Index
// 276 is the terminate context and takes no initialisation.
var ctxInitI = [numCtxVars][2]int{
	// 0 to 10: mb_type (SI and I), mb_skip_flag unused in I.
	{20, -15}, {2, 54}, {3, 74}, {20, -15}, {2, 54}, {3, 74},
	{-28, 127}, {-23, 104}, {-6, 53}, {-1, 54}, {7, 51},
	// 11 to 23.
	{23, 33}, {23, 2}, {21, 0}, {1, 9}, {0, 49}, {-37, 118}, {5, 57},
	{-13, 78}, {-11, 65}, {1, 62}, {12, 49}, {-4, 73}, {17, 50},
	// 24 to 39.
	{18, 64}, {9, 43}, {29, 0}, {26, 67}, {16, 90}, {9, 104}, {-46, 127},
	{-20, 104}, {1, 67}, {-13, 78}, {-11, 65}, {1, 62}, {-6, 86},
	{-17, 95}, {-6, 61}, {9, 45},
	// 40 to 53.
	{-3, 69}, {-6, 81}, {-11, 96}, {6, 55}, {7, 67}, {-5, 86}, {2, 88},
	{0, 58}, {-3, 76}, {-10, 94}, {5, 54}, {4, 69}, {-3, 81}, {0, 88},
	// 54 to 59.
	{-7, 67}, {-5, 74}, {-4, 74}, {-5, 80}, {-7, 72}, {1, 58},
	// 60 to 69: mb_qp_delta (60 to 63), intra_chroma_pred_mode (64 to 67),
	// prev and rem intra pred mode (68, 69).
	{0, 41}, {0, 63}, {0, 63}, {0, 63}, {-9, 83}, {4, 86}, {0, 97},
	{-7, 72}, {13, 41}, {3, 62},
	// 70 to 87: mb_field_decoding_flag (70 to 72), coded_block_pattern
	// (73 to 84), coded_block_flag (85 to 87).
	{0, 45}, {-4, 78}, {-3, 96}, {-27, 126}, {-28, 98}, {-25, 101},
	{-23, 67}, {-28, 82}, {-20, 94}, {-16, 83}, {-22, 110}, {-21, 91},
	{-18, 102}, {-13, 93}, {-29, 127}, {-7, 92}, {-5, 89}, {-7, 96},
	// 88 to 104: coded_block_flag, continued.
	{-13, 108}, {-3, 46}, {-1, 65}, {-1, 57}, {-9, 93}, {-3, 74},
	{-9, 92}, {-8, 87}, {-23, 126}, {5, 54}, {6, 60}, {6, 59}, {6, 69},
	{-1, 48}, {0, 68}, {-4, 69}, {-8, 88},
	// 105 to 165: significant_coeff_flag, frame coded blocks.
	{-2, 85}, {-6, 78}, {-1, 75}, {-7, 77}, {2, 54}, {5, 50}, {-3, 68},
	{1, 50}, {6, 42}, {-4, 81}, {1, 63}, {-4, 70}, {0, 67}, {2, 57},
	{-2, 76}, {11, 35}, {4, 64}, {1, 61}, {11, 35}, {18, 25}, {12, 24},
	{13, 29}, {13, 36}, {-10, 93}, {-7, 73}, {-2, 73}, {13, 46}, {9, 49},
	{-7, 100}, {9, 53}, {2, 53}, {5, 53}, {-2, 61}, {0, 56}, {0, 56},
	{-13, 63}, {-5, 60}, {-1, 62}, {4, 57}, {-6, 69}, {4, 57}, {14, 39},
	{4, 51}, {13, 68}, {3, 64}, {1, 61}, {9, 63}, {7, 50}, {16, 39},
	{5, 44}, {4, 52}, {11, 48}, {-5, 60}, {-1, 59}, {0, 59}, {22, 33},
	{5, 44}, {14, 43}, {-1, 78}, {0, 60}, {9, 69},
	// 166 to 226: last_significant_coeff_flag, frame coded blocks.
	{11, 28}, {2, 40}, {3, 44}, {0, 49}, {0, 46}, {2, 44}, {2, 51},
	{0, 47}, {4, 39}, {2, 62}, {6, 46}, {0, 54}, {3, 54}, {2, 58},
	{4, 63}, {6, 51}, {6, 57}, {7, 53}, {6, 52}, {6, 55}, {11, 45},
	{14, 36}, {8, 53}, {-1, 82}, {7, 55}, {-3, 78}, {15, 46}, {22, 31},
	{-1, 84}, {25, 7}, {30, -7}, {28, 3}, {28, 4}, {32, 0}, {34, -1},
	{30, 6}, {30, 6}, {32, 9}, {31, 19}, {26, 27}, {26, 30}, {37, 20},
	{28, 34}, {17, 70}, {1, 67}, {5, 59}, {9, 67}, {16, 30}, {18, 32},
	{18, 35}, {22, 29}, {24, 31}, {23, 38}, {18, 43}, {20, 41}, {11, 63},
	{9, 59}, {9, 64}, {-1, 94}, {-2, 89}, {-9, 108},
	// 227 to 275: coeff_abs_level_minus1.
	{-6, 76}, {-2, 44}, {0, 45}, {0, 52}, {-3, 64}, {-2, 59}, {-4, 70},
	{-4, 75}, {-8, 82}, {-17, 102}, {-9, 77}, {3, 24}, {0, 42}, {0, 48},
	{0, 55}, {-6, 59}, {-7, 71}, {-12, 83}, {-11, 87}, {-30, 119},
	{1, 58}, {-3, 29}, {-1, 36}, {1, 38}, {2, 43}, {-6, 55}, {0, 58},
	{0, 64}, {-3, 74}, {-10, 90}, {0, 70}, {-4, 29}, {5, 31}, {7, 42},
	{1, 59}, {-2, 58}, {-3, 72}, {-3, 81}, {-11, 97}, {0, 58}, {8, 5},
	{10, 14}, {14, 18}, {13, 27}, {2, 40}, {0, 58}, {-3, 70}, {-6, 79},
	{-8, 85},
	// 276: end_of_slice_flag, not initialised from (m,n).
	{0, 0},
	// 277 to 337: significant_coeff_flag, field coded blocks.
	{-17, 123}, {-12, 115}, {-16, 122}, {-11, 115}, {-12, 63}, {-2, 68},
	{-15, 84}, {-13, 104}, {-3, 70}, {-8, 93}, {-10, 90}, {-30, 127},
	{-1, 74}, {-6, 97}, {-7, 91}, {-20, 127}, {-4, 56}, {-5, 82},
	{-7, 76}, {-22, 125}, {-7, 93}, {-11, 87}, {-3, 77}, {-5, 71},
	{-4, 63}, {-4, 68}, {-12, 84}, {-7, 62}, {-7, 65}, {8, 61}, {5, 56},
	{-2, 66}, {1, 64}, {0, 61}, {-2, 78}, {1, 50}, {7, 52}, {10, 35},
	{0, 44}, {11, 38}, {1, 45}, {0, 46}, {5, 44}, {31, 17}, {1, 51},
	{7, 50}, {28, 19}, {16, 33}, {14, 62}, {-13, 108}, {-15, 100},
	{-13, 101}, {-13, 91}, {-12, 94}, {-10, 88}, {-16, 84}, {-10, 86},
	{-7, 83}, {-13, 87}, {-19, 94}, {1, 70},
	// 338 to 398: last_significant_coeff_flag, field coded blocks, and the
	// remaining level contexts.
	{24, 0}, {15, 9}, {8, 25}, {13, 18}, {15, 9}, {13, 19}, {10, 37},
	{12, 18}, {6, 29}, {20, 33}, {15, 30}, {4, 45}, {1, 58}, {0, 62},
	{7, 61}, {12, 38}, {11, 45}, {15, 39}, {11, 42}, {13, 44}, {16, 45},
	{12, 41}, {10, 49}, {30, 34}, {18, 42}, {10, 55}, {17, 51}, {17, 46},
	{0, 89}, {26, -19}, {22, -17}, {26, -17}, {30, -25}, {28, -20},
	{33, -23}, {37, -27}, {33, -23}, {40, -28}, {38, -17}, {33, -11},
	{40, -15}, {41, -6}, {38, 1}, {41, 17}, {30, -6}, {27, 3}, {26, 22},
	{37, -16}, {35, -4}, {38, -8}, {38, -3}, {37, 3}, {38, 5}, {42, 0},
	{35, 16}, {39, 22}, {14, 48}, {27, 37}, {21, 60}, {12, 68}, {2, 97},
	// 399 to 401: transform_size_8x8_flag.
	{31, 21}, {31, 31}, {25, 50},
	// 402 to 435: 8x8 block significance maps and levels, frame coding.
	{-17, 120}, {-20, 112}, {-18, 114}, {-11, 85}, {-15, 92}, {-14, 89},
	{-26, 71}, {-15, 81}, {-14, 80}, {0, 68}, {-14, 70}, {-24, 56},
	{-23, 68}, {-24, 50}, {-11, 74}, {23, -13}, {26, -13}, {40, -15},
	{49, -14}, {44, 3}, {45, 6}, {44, 34}, {33, 54}, {19, 82}, {-3, 75},
	{-1, 23}, {1, 34}, {1, 43}, {0, 54}, {-2, 55}, {0, 61}, {1, 64},
	{0, 68}, {-9, 92},
	// 436 to 459: 8x8 block significance maps, field coding.
	{-14, 106}, {-13, 97}, {-15, 90}, {-12, 90}, {-18, 88}, {-10, 73},
	{-9, 79}, {-14, 86}, {-10, 73}, {-10, 70}, {-10, 69}, {-5, 66},
	{-9, 64}, {-5, 58}, {2, 59}, {21, -10}, {24, -11}, {28, -8}, {28, 1},
	{29, 3}, {29, 9}, {35, 20}, {29, 36}, {14, 67},
}
