package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jrockway/segment-clock/control/segments"
	"github.com/nsf/termbox-go"
)

// ErrQuit is returned by Terminal.Run when the user asks to quit.
var ErrQuit = errors.New("quit requested from the keyboard")

// Terminal draws the board's display in a terminal and turns key presses into button presses.
//
//	s     set
//	+ =   increment
//	- _   decrement
//	q Esc quit
type Terminal struct {
	Board *Board
	// Hold is how long a key press holds a button down.  It must be longer than the debounce
	// delay or presses will be ignored.
	Hold time.Duration
	// Refresh is how often the terminal is redrawn.
	Refresh time.Duration
}

// Run takes over the terminal until ctx is done or the user quits.
func (t *Terminal) Run(ctx context.Context) error {
	if err := termbox.Init(); err != nil {
		return fmt.Errorf("init terminal: %w", err)
	}
	defer termbox.Close()
	termbox.SetInputMode(termbox.InputEsc)

	events := make(chan termbox.Event)
	done := make(chan struct{})
	defer func() {
		close(done)
		termbox.Interrupt()
	}()
	go func() {
		for {
			ev := termbox.PollEvent()
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	refresh := time.NewTicker(t.Refresh)
	defer refresh.Stop()
	t.draw()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-refresh.C:
			t.draw()
		case ev := <-events:
			switch ev.Type {
			case termbox.EventError:
				return fmt.Errorf("read terminal: %w", ev.Err)
			case termbox.EventResize:
				t.draw()
			case termbox.EventKey:
				if ev.Key == termbox.KeyEsc || ev.Key == termbox.KeyCtrlC || ev.Ch == 'q' {
					return ErrQuit
				}
				if b := t.button(ev.Ch); b != nil {
					b.Tap(t.Hold)
				}
			}
		}
	}
}

func (t *Terminal) button(ch rune) *Button {
	switch ch {
	case 's', 'S':
		return t.Board.Set
	case '+', '=':
		return t.Board.Inc
	case '-', '_':
		return t.Board.Dec
	}
	return nil
}

// cellArt returns the characters that draw one cell: 4 wide and 3 tall, including the point.
func cellArt(c byte) [3][4]rune {
	art := [3][4]rune{
		{' ', ' ', ' ', ' '},
		{' ', ' ', ' ', ' '},
		{' ', ' ', ' ', ' '},
	}
	on := func(bit byte, y, x int, r rune) {
		if c&bit != 0 {
			art[y][x] = r
		}
	}
	on(segments.Top, 0, 1, '_')
	on(segments.UpperLeft, 1, 0, '|')
	on(segments.Middle, 1, 1, '_')
	on(segments.UpperRight, 1, 2, '|')
	on(segments.LowerLeft, 2, 0, '|')
	on(segments.Bottom, 2, 1, '_')
	on(segments.LowerRight, 2, 2, '|')
	on(segments.Point, 2, 3, '.')
	return art
}

func (t *Terminal) draw() {
	f := t.Board.Panel.Frame()
	termbox.Clear(termbox.ColorDefault, termbox.ColorDefault)
	for y := 0; y < segments.Height; y++ {
		for x := 0; x < segments.Width; x++ {
			art := cellArt(f[segments.Index(x, y)])
			for dy, row := range art {
				for dx, r := range row {
					termbox.SetCell(x*4+dx, y*3+dy, r, termbox.ColorRed|termbox.AttrBold, termbox.ColorDefault)
				}
			}
		}
	}
	help := "s: set   +: up   -: down   q: quit"
	for i, r := range help {
		termbox.SetCell(i, segments.Height*3+1, r, termbox.ColorDefault, termbox.ColorDefault)
	}
	termbox.Flush()
}
