package sorter

import "errors"

var (
	ErrNotConfigured      = errors.New("categories have not been set up")
	ErrNoCurrentImage     = errors.New("no image left to sort")
	ErrUnboundDirection   = errors.New("no category bound to this direction")
	ErrDestinationExists  = errors.New("destination file already exists")
	ErrNothingToUndo      = errors.New("nothing to undo")
	ErrOriginalReoccupied = errors.New("original location is occupied")
)
