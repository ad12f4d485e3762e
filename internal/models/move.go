package models

import (
	"time"

	"github.com/google/uuid"
)

// MoveRecord describes one sort action, enough to reverse it.
type MoveRecord struct {
	ID        string
	From      string
	To        string
	Category  string
	Direction Direction
	Timestamp time.Time
}

// NewMoveRecord stamps a move with a fresh ID and the current time.
func NewMoveRecord(from, to, category string, dir Direction) MoveRecord {
	return MoveRecord{
		ID:        uuid.NewString(),
		From:      from,
		To:        to,
		Category:  category,
		Direction: dir,
		Timestamp: time.Now(),
	}
}

// UndoStack holds moves, newest last.
type UndoStack struct {
	records []MoveRecord
}

func (s *UndoStack) Push(record MoveRecord) {
	s.records = append(s.records, record)
}

// Pop removes and returns the newest record.
func (s *UndoStack) Pop() (MoveRecord, bool) {
	if len(s.records) == 0 {
		return MoveRecord{}, false
	}
	last := s.records[len(s.records)-1]
	s.records = s.records[:len(s.records)-1]
	return last, true
}

func (s *UndoStack) Len() int {
	return len(s.records)
}

// Snapshot returns a copy of the records, oldest first.
func (s *UndoStack) Snapshot() []MoveRecord {
	out := make([]MoveRecord, len(s.records))
	copy(out, s.records)
	return out
}
