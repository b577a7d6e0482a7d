package timeline

import (
	"fmt"
)

// RangeError is returned when a cursor is set outside [-1, N-1].
type RangeError struct {
	Position int
	Length   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("cursor %d out of range [-1, %d]", e.Position, e.Length-1)
}

// Cursor is a position into an event log of a given length.
// Use NewCursor to build one; NewCursor(0) is an empty log at -1.
type Cursor struct {
	pos    int
	length int
}

// NewCursor returns a live cursor over a log of n events.
func NewCursor(n int) Cursor {
	return Cursor{pos: n - 1, length: n}
}

// Position returns the current index, -1 meaning "no events".
func (c *Cursor) Position() int { return c.pos }

// Len returns the length of the log the cursor ranges over.
func (c *Cursor) Len() int { return c.length }

// Live reports whether the cursor sits on the tip of the log.
func (c *Cursor) Live() bool { return c.pos == c.length-1 }

// Append records one more event and jumps to the new tip.
func (c *Cursor) Append() {
	c.length++
	c.pos = c.length - 1
}

// Set moves the cursor to i, which must lie in [-1, Len()-1].
func (c *Cursor) Set(i int) error {
	if i < -1 || i > c.length-1 {
		return &RangeError{Position: i, Length: c.length}
	}
	c.pos = i
	return nil
}

// GoLive moves the cursor to the tip.
func (c *Cursor) GoLive() {
	c.pos = c.length - 1
}

// Reset points the cursor at the tip of a newly loaded log of n events.
func (c *Cursor) Reset(n int) {
	*c = NewCursor(n)
}
