// Package numerator issues sequential document numbers. Accounting
// documents require strict, gapless numbering, so the sequence advances
// only when the surrounding mutation commits.
package numerator

import "fmt"

// Sequence produces prefixed, zero-padded numbers such as "JV-0042".
// Callers must hold the store write lock while advancing.
type Sequence struct {
	Prefix string `json:"prefix"`
	Width  int    `json:"width"`
	Last   int64  `json:"last"`
}

// NewSequence builds a sequence starting at zero.
func NewSequence(prefix string, width int) *Sequence {
	if width <= 0 {
		width = 4
	}
	return &Sequence{Prefix: prefix, Width: width}
}

// Next advances the counter and returns the formatted number.
func (s *Sequence) Next() string {
	s.Last++
	return s.Format(s.Last)
}

// Peek formats the number Next would return without advancing.
func (s *Sequence) Peek() string {
	return s.Format(s.Last + 1)
}

// Format renders an arbitrary ordinal in this sequence's style.
func (s *Sequence) Format(n int64) string {
	return fmt.Sprintf("%s-%0*d", s.Prefix, s.Width, n)
}
