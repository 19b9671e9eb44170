package tm1640

// The TM1640 is designed for common cathode displays: each of its 16 grid outputs is one digit
// and each byte written to it is that digit's segments.  This board uses common anode displays,
// so a grid output is one segment of 8 different cells, and what gets written is a bit-plane.

// Transpose turns 8 cell patterns into 8 bit-planes.  Bit i of plane p is bit p of cell i.
// Transpose is its own inverse.
func Transpose(cells [8]byte) [8]byte {
	var planes [8]byte
	for p := 0; p < 8; p++ {
		for i, c := range cells {
			if c&(1<<p) != 0 {
				planes[p] |= 1 << i
			}
		}
	}
	return planes
}
