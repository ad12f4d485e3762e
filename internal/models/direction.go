package models

// Direction identifies one of the four arrow keys. Category i is bound to
// Direction i, so a session with two categories only answers Left and Right.
type Direction int

const (
	Left Direction = iota
	Right
	Up
	Down
)

// MaxCategories is the number of arrow keys available for binding.
const MaxCategories = 4

// AllDirections lists directions in binding order.
var AllDirections = []Direction{Left, Right, Up, Down}

// Arrow returns the glyph shown on bucket labels and in the shortcut help.
func (d Direction) Arrow() string {
	switch d {
	case Left:
		return "←"
	case Right:
		return "→"
	case Up:
		return "↑"
	case Down:
		return "↓"
	default:
		return "?"
	}
}

func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Right:
		return "right"
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "unknown"
	}
}

// Valid reports whether d is one of the four arrow directions.
func (d Direction) Valid() bool {
	return d >= Left && d <= Down
}
