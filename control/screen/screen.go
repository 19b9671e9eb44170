// Package screen draws the clock into a frame of 7-segment cells, sends frames to the display, and
// retains the last one as an image for debugging the rest of the program without the display
// attached.
package screen

import (
	"image"
	"image/color"
	"image/png"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/jrockway/segment-clock/control/font"
	"github.com/jrockway/segment-clock/control/segments"
	"github.com/jrockway/segment-clock/control/timeofday"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/image/colornames"
	"golang.org/x/image/draw"
)

const (
	// colonWidth is the number of columns reserved between the hours and minutes for the colon.
	colonWidth = segments.Width - 4*font.Width

	// The colon's dots are the upper squares of two cells, one above the other.
	colon      = segments.Top | segments.UpperRight | segments.Middle | segments.UpperLeft
	colonUpper = 60
	colonLower = 107

	// The time setting readout is one row of compact digits, with the field being edited
	// underlined in the row below.
	setLabel       = 56
	setHoursTens   = 60
	setHoursOnes   = 61
	setMinutesTens = 62
	setMinutesOnes = 63
	underline      = segments.Width
)

// Field is the part of the time being edited.
type Field int

const (
	Hours Field = iota
	MinutesTens
	MinutesOnes
)

var renders = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "screen_renders_total",
	Help: "count of frames rendered, by kind",
}, []string{"kind"})

// Display is the hardware that shows frames.
type Display interface {
	// Present makes the display show f.
	Present(f *segments.Frame)
	// AllOn turns the display on.
	AllOn()
}

// Screen represents the board's display: a 24x6 grid of 7-segment cells, each with a decimal
// point.  Big digits are 5x6 blocks of cells drawn from the font; small digits and letters are a
// single cell.
type Screen struct {
	frame segments.Frame
	out   Display

	imageMu sync.Mutex
	image   *image.NRGBA // must hold imageMu to read or write.
}

// New returns a Screen that shows frames on out.  If out is nil, frames are only retained for the
// preview.
func New(out Display) *Screen {
	return &Screen{
		out:   out,
		image: image.NewNRGBA(image.Rect(0, 0, segments.Width*cellWidth, segments.Height*cellHeight)),
	}
}

// Frame returns the frame being drawn.
func (s *Screen) Frame() *segments.Frame {
	return &s.frame
}

// Clear blanks the frame.  It doesn't change what the display is showing.
func (s *Screen) Clear() {
	s.frame.Clear()
}

// BigChar copies digit's glyph into the frame with its left edge at column col.
func (s *Screen) BigChar(digit int, col int) {
	g := &font.Glyphs[digit]
	for y := 0; y < font.Height; y++ {
		copy(s.frame[segments.Index(col, y):], g[y][:])
	}
}

// RenderClock draws t in big digits.  A leading zero is left blank.
func (s *Screen) RenderClock(t timeofday.Time) {
	renders.WithLabelValues("clock").Inc()
	if t.HoursTens != 0 {
		s.BigChar(int(t.HoursTens), 0)
	}
	s.BigChar(int(t.HoursOnes), font.Width)
	s.frame[colonUpper] = colon
	s.frame[colonLower] = colon
	s.BigChar(int(t.MinutesTens), 2*font.Width+colonWidth)
	s.BigChar(int(t.MinutesOnes), 3*font.Width+colonWidth)
}

// RenderSetting draws the time setting readout, "SEt h.mm", with the field being edited
// underlined.
func (s *Screen) RenderSetting(editing Field, set timeofday.Setting) {
	renders.WithLabelValues("setting").Inc()
	s.frame[setLabel] = segments.LetterS
	s.frame[setLabel+1] = segments.LetterE
	s.frame[setLabel+2] = segments.Lettert

	ones := set.Hours
	if set.Hours >= 10 {
		ones = set.Hours - 10
		s.frame[setHoursTens] = segments.Digits[1]
	}
	s.frame[setHoursOnes] = segments.Digits[ones] | segments.Point
	s.frame[setMinutesTens] = segments.Digits[set.MinutesTens]
	s.frame[setMinutesOnes] = segments.Digits[set.MinutesOnes]

	switch editing {
	case Hours:
		if set.Hours >= 10 {
			s.frame[setHoursTens+underline] = segments.Top
		}
		s.frame[setHoursOnes+underline] = segments.Top
	case MinutesTens:
		s.frame[setMinutesTens+underline] = segments.Top
	case MinutesOnes:
		s.frame[setMinutesOnes+underline] = segments.Top
	}
}

// Show sends the frame to the display and updates the preview.
func (s *Screen) Show() {
	s.updateCurrentImage()
	if s.out != nil {
		s.out.Present(&s.frame)
	}
}

// AllOn turns the display on.
func (s *Screen) AllOn() {
	if s.out != nil {
		s.out.AllOn()
	}
}

// ServeHTTP serves the last frame shown as a PNG.  The optional "scale" parameter enlarges it.
func (s *Screen) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	scale := 1
	if v := req.FormValue("scale"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 8 {
			http.Error(w, "scale must be an integer from 1 to 8", http.StatusBadRequest)
			return
		}
		scale = n
	}

	s.imageMu.Lock()
	var img image.Image = s.image
	if scale > 1 {
		b := s.image.Bounds()
		dst := image.NewNRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
		draw.NearestNeighbor.Scale(dst, dst.Bounds(), s.image, b, draw.Src, nil)
		img = dst
	}
	s.imageMu.Unlock()

	w.Header().Add("content-type", "image/png")
	w.WriteHeader(http.StatusOK)
	if err := png.Encode(w, img); err != nil {
		log.Printf("encoding image: %v", err)
	}
}

const (
	cellWidth  = 12
	cellHeight = 20
)

// segmentRects is where each segment bit is drawn within a cell's preview.
var segmentRects = [8]image.Rectangle{
	image.Rect(2, 1, 9, 3),     // top
	image.Rect(8, 2, 10, 10),   // upper right
	image.Rect(8, 10, 10, 18),  // lower right
	image.Rect(2, 17, 9, 19),   // bottom
	image.Rect(1, 10, 3, 18),   // lower left
	image.Rect(2, 9, 9, 11),    // middle
	image.Rect(1, 2, 3, 10),    // upper left
	image.Rect(10, 17, 12, 19), // point
}

var (
	segmentOn  = colornames.Orangered
	segmentOff = color.NRGBA{R: 0x30, G: 0x08, B: 0x04, A: 0xff}
)

// updateCurrentImage updates the image data that will be returned via the web interface.
func (s *Screen) updateCurrentImage() {
	s.imageMu.Lock()
	defer s.imageMu.Unlock()
	draw.Draw(s.image, s.image.Bounds(), image.NewUniform(colornames.Black), image.Point{}, draw.Src)
	for y := 0; y < segments.Height; y++ {
		for x := 0; x < segments.Width; x++ {
			cell := s.frame[segments.Index(x, y)]
			origin := image.Pt(x*cellWidth, y*cellHeight)
			for bit, r := range segmentRects {
				c := color.Color(segmentOff)
				if cell&(1<<bit) != 0 {
					c = segmentOn
				}
				draw.Draw(s.image, r.Add(origin), image.NewUniform(c), image.Point{}, draw.Src)
			}
		}
	}
}
