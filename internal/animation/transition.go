// Package animation computes the frames of the card that flies from the
// centre of the window into a category bucket.
package animation

import (
	"sync"
	"time"

	"fyne.io/fyne/v2"
)

// EaseOutCubic decelerates towards the end: 1-(1-t)^3.
func EaseOutCubic(t float32) float32 {
	inv := 1 - t
	return 1 - inv*inv*inv
}

// Transition is one card in flight.
type Transition struct {
	Path       string
	From       fyne.Position
	To         fyne.Position
	Start      time.Time
	Duration   time.Duration
	StartScale float32
	EndScale   float32
}

// Frame is the state of a transition at one instant.
type Frame struct {
	Path        string
	Position    fyne.Position
	Scale       float32
	ShadowAlpha uint8
	Progress    float32
	Done        bool
}

// Progress returns the linear progress at now, clamped to [0, 1].
func (t *Transition) Progress(now time.Time) float32 {
	if t.Duration <= 0 {
		return 1
	}
	p := float32(now.Sub(t.Start)) / float32(t.Duration)
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

// Frame computes the eased position and scale at now.
func (t *Transition) Frame(now time.Time) Frame {
	p := t.Progress(now)
	eased := EaseOutCubic(p)

	return Frame{
		Path: t.Path,
		Position: fyne.NewPos(
			t.From.X+(t.To.X-t.From.X)*eased,
			t.From.Y+(t.To.Y-t.From.Y)*eased,
		),
		Scale:       t.StartScale + (t.EndScale-t.StartScale)*eased,
		ShadowAlpha: uint8(40 * (1 - p)),
		Progress:    p,
		Done:        p >= 1,
	}
}

// Tracker holds the transitions currently on screen.
type Tracker struct {
	mu     sync.Mutex
	active []*Transition
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Add starts tracking t.
func (tr *Tracker) Add(t *Transition) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.active = append(tr.active, t)
}

// Step returns a frame for every active transition and drops the ones that
// have finished. Finished frames are still returned once, with Done set.
func (tr *Tracker) Step(now time.Time) (frames []Frame, finished []string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	kept := tr.active[:0]
	for _, t := range tr.active {
		f := t.Frame(now)
		frames = append(frames, f)
		if f.Done {
			finished = append(finished, t.Path)
			continue
		}
		kept = append(kept, t)
	}
	for i := len(kept); i < len(tr.active); i++ {
		tr.active[i] = nil
	}
	tr.active = kept
	return frames, finished
}

// Active reports whether any transition is running.
func (tr *Tracker) Active() bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return len(tr.active) > 0
}

// Cancel drops the transition for path, if any. Undo uses this when the card
// is pulled back before it lands.
func (tr *Tracker) Cancel(path string) bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	for i, t := range tr.active {
		if t.Path == path {
			tr.active = append(tr.active[:i], tr.active[i+1:]...)
			return true
		}
	}
	return false
}
