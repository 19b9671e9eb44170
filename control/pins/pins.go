// Package pins provides the digital line primitives the rest of the clock is built on.
//
// Writing a Line is unconditional, the same as poking a port register on a microcontroller: the
// bit-banged protocols above never see an error.  Failures reported by the operating system's
// GPIO driver are collected in a Latch instead, and the main loop drains it once per iteration.
package pins

import (
	"fmt"
	"sync"
	"time"
)

// Line is one digital I/O line.
type Line interface {
	// Set drives the line high.
	Set()
	// Clear drives the line low.
	Clear()
	// Read samples the current level of the line; true is high.
	Read() bool
	// Tristate releases the line to its external pull-up.
	Tristate()
}

// Input is a line that can block until its level changes.  Buttons are Inputs.
type Input interface {
	Read() bool
	// WaitForEdge waits for the level to change.  A negative timeout waits forever.  It returns
	// false if the timeout expired first.
	WaitForEdge(timeout time.Duration) bool
}

// Latch records GPIO driver errors.  The zero value is ready to use, and a nil *Latch discards
// everything.
type Latch struct {
	mu    sync.Mutex
	first error
	count int
}

func (l *Latch) record(err error) {
	if l == nil || err == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.first == nil {
		l.first = err
	}
	l.count++
}

// Err returns the first error recorded since the last call to Err, or nil.  It resets the latch.
func (l *Latch) Err() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	err, n := l.first, l.count
	l.first, l.count = nil, 0
	if err == nil {
		return nil
	}
	if n == 1 {
		return err
	}
	return fmt.Errorf("%d gpio errors, first: %w", n, err)
}
