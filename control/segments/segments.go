// Package segments describes the display surface: a grid of 7-segment cells, 24 wide and 6 tall,
// one byte per cell.
//
// The segments are wired to bits in this order, which is not the usual a-g order:
//
//	 --0--
//	|     |
//	6     1
//	|     |
//	 --5--
//	|     |
//	4     2
//	|     |
//	 --3--  .7
package segments

const (
	// Width is the number of cells in one row of the display.
	Width = 24
	// Height is the number of rows of cells.
	Height = 6
)

// Segment bits within one cell.
const (
	Top        byte = 1 << 0
	UpperRight byte = 1 << 1
	LowerRight byte = 1 << 2
	Bottom     byte = 1 << 3
	LowerLeft  byte = 1 << 4
	Middle     byte = 1 << 5
	UpperLeft  byte = 1 << 6
	// Point is the decimal point, which is also used as a separator.
	Point byte = 1 << 7
)

// Frame is the whole display surface, row-major.  Cell (x, y) is at index y*Width+x.
type Frame [Width * Height]byte

// Index returns the offset of cell (x, y).
func Index(x, y int) int {
	return y*Width + x
}

// Clear turns every segment off.
func (f *Frame) Clear() {
	*f = Frame{}
}

// Digits are the patterns for 0-9 on a single cell.
var Digits = [10]byte{
	0x5F, 0x06, 0x3B, 0x2F, 0x66,
	0x6D, 0x7D, 0x07, 0x7F, 0x6F,
}

// Letters that can be shown on a single cell.
const (
	LetterS byte = 0x6D
	LetterE byte = 0x79
	Lettert byte = 0x78
)
