package engine

import "fmt"

// Navigator tracks the current question index and the visited set.
// Out-of-range jumps are rejected, not clamped; Next/Previous at the
// boundaries are no-ops. Not safe for concurrent use on its own.
type Navigator struct {
	current int
	count   int
	visited map[int]bool
}

func NewNavigator(count int) *Navigator {
	return &Navigator{
		count:   count,
		visited: map[int]bool{0: true},
	}
}

// GoTo jumps to index. Rejects indexes outside [0, count).
func (n *Navigator) GoTo(index int) error {
	if index < 0 || index >= n.count {
		return &ValidationError{
			Field:  "index",
			Reason: fmt.Sprintf("must be in [0, %d)", n.count),
		}
	}
	n.current = index
	n.visited[index] = true
	return nil
}

// Next moves forward one question; a no-op at the last question.
func (n *Navigator) Next() {
	if n.current < n.count-1 {
		n.current++
		n.visited[n.current] = true
	}
}

// Previous moves back one question; a no-op at the first question.
func (n *Navigator) Previous() {
	if n.current > 0 {
		n.current--
		n.visited[n.current] = true
	}
}

// Current returns the current question index.
func (n *Navigator) Current() int { return n.current }

// Visited reports whether the taker has been shown question index.
func (n *Navigator) Visited(index int) bool { return n.visited[index] }
