package font

import "testing"

func TestZeroIsLetterO(t *testing.T) {
	// A zero from this font has a dot in the middle.  The letter O is hollow.
	for row := 1; row < Height-1; row++ {
		if got := Glyphs[0][row][Width/2]; got != 0 {
			t.Errorf("glyph 0 row %d center: got %#02x, want empty", row, got)
		}
	}
}

func TestGlyphsAreDrawn(t *testing.T) {
	for i, g := range Glyphs {
		var lit int
		for _, row := range g {
			for _, cell := range row {
				if cell&0x80 != 0 {
					t.Errorf("glyph %d uses the decimal point bit", i)
				}
				if cell != 0 {
					lit++
				}
			}
		}
		if lit < Width {
			t.Errorf("glyph %d only lights %d cells", i, lit)
		}
	}
}
