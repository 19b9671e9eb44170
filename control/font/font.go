// Package font holds the large digits, each drawn across a block of 5x6 cells.
//
// The table was baked from DejaVu Sans Mono Bold by sampling each cell's segment positions
// against a 500px rendering of the glyph; a segment is lit when at least half of it is covered.
// Glyph 0 is the letter O, which reads better than the font's dotted zero.
package font

const (
	// Width is the width of a glyph in cells.
	Width = 5
	// Height is the height of a glyph in cells.
	Height = 6
)

// Glyphs is indexed by digit, then row, then column.
var Glyphs = [10][Height][Width]byte{
	{ // O
		{0x00, 0x3E, 0x7F, 0x7C, 0x00},
		{0x06, 0x7F, 0x00, 0x6F, 0x58},
		{0x2F, 0x79, 0x00, 0x2F, 0x79},
		{0x2F, 0x79, 0x00, 0x2F, 0x79},
		{0x07, 0x7D, 0x00, 0x3F, 0x50},
		{0x00, 0x67, 0x7F, 0x73, 0x00},
	},
	{ // 1
		{0x00, 0x7E, 0x7F, 0x50, 0x00},
		{0x00, 0x41, 0x7F, 0x50, 0x00},
		{0x00, 0x00, 0x7F, 0x50, 0x00},
		{0x00, 0x00, 0x7F, 0x50, 0x00},
		{0x00, 0x00, 0x7F, 0x50, 0x00},
		{0x06, 0x7F, 0x7F, 0x7F, 0x79},
	},
	{ // 2
		{0x06, 0x7F, 0x7F, 0x7C, 0x00},
		{0x00, 0x00, 0x00, 0x7F, 0x50},
		{0x00, 0x00, 0x04, 0x7F, 0x00},
		{0x00, 0x04, 0x7F, 0x40, 0x00},
		{0x04, 0x7F, 0x40, 0x00, 0x00},
		{0x27, 0x7F, 0x7F, 0x7F, 0x50},
	},
	{ // 3
		{0x06, 0x7F, 0x7F, 0x7C, 0x00},
		{0x00, 0x00, 0x00, 0x7F, 0x50},
		{0x00, 0x06, 0x7E, 0x73, 0x00},
		{0x00, 0x03, 0x43, 0x7F, 0x18},
		{0x00, 0x00, 0x00, 0x3F, 0x50},
		{0x07, 0x7F, 0x7F, 0x77, 0x00},
	},
	{ // 4
		{0x00, 0x00, 0x2E, 0x7F, 0x00},
		{0x00, 0x04, 0x7B, 0x7F, 0x00},
		{0x00, 0x7F, 0x00, 0x7F, 0x00},
		{0x2E, 0x5D, 0x1C, 0x7F, 0x18},
		{0x27, 0x77, 0x77, 0x7F, 0x71},
		{0x00, 0x00, 0x00, 0x7F, 0x00},
	},
	{ // 5
		{0x00, 0x7F, 0x7F, 0x7F, 0x00},
		{0x00, 0x79, 0x00, 0x00, 0x00},
		{0x00, 0x7F, 0x7F, 0x7C, 0x00},
		{0x00, 0x00, 0x00, 0x7F, 0x58},
		{0x00, 0x00, 0x00, 0x3F, 0x50},
		{0x07, 0x7F, 0x7F, 0x73, 0x00},
	},
	{ // 6
		{0x00, 0x2E, 0x7F, 0x7F, 0x00},
		{0x04, 0x7F, 0x00, 0x00, 0x00},
		{0x06, 0x7D, 0x7F, 0x7E, 0x00},
		{0x07, 0x7F, 0x00, 0x2F, 0x78},
		{0x06, 0x7F, 0x00, 0x2F, 0x79},
		{0x00, 0x67, 0x7F, 0x7F, 0x00},
	},
	{ // 7
		{0x07, 0x7F, 0x7F, 0x7F, 0x50},
		{0x00, 0x00, 0x00, 0x7F, 0x00},
		{0x00, 0x00, 0x0E, 0x7B, 0x00},
		{0x00, 0x00, 0x7F, 0x50, 0x00},
		{0x00, 0x06, 0x7F, 0x00, 0x00},
		{0x00, 0x3F, 0x71, 0x00, 0x00},
	},
	{ // 8
		{0x00, 0x3E, 0x7F, 0x7C, 0x00},
		{0x06, 0x7B, 0x00, 0x6F, 0x50},
		{0x00, 0x77, 0x3C, 0x7F, 0x00},
		{0x04, 0x7F, 0x43, 0x6F, 0x18},
		{0x07, 0x79, 0x00, 0x2F, 0x78},
		{0x00, 0x77, 0x7F, 0x7F, 0x00},
	},
	{ // 9
		{0x00, 0x3E, 0x7F, 0x7C, 0x00},
		{0x06, 0x79, 0x00, 0x7F, 0x50},
		{0x27, 0x79, 0x00, 0x7F, 0x58},
		{0x02, 0x7F, 0x7F, 0x6F, 0x58},
		{0x00, 0x00, 0x00, 0x7F, 0x50},
		{0x00, 0x7F, 0x7F, 0x73, 0x00},
	},
}
