package components

import (
	"fyne.io/fyne/v2"

	"leftright/internal/models"
)

const (
	BucketWidth        = 100
	BucketHeight       = 150
	BucketCornerRadius = 5
	StackOffset        = 3
	MaxVisibleCards    = 5
	CardScale          = 0.8
	CurrentImageRatio  = 0.4
	BucketSpacingRatio = 0.25
	ShadowOffset       = 2
)

// BucketSize is the footprint of one category target.
var BucketSize = fyne.NewSize(BucketWidth, BucketHeight)

// BucketCenter places bucket d around center. Spacing follows the panel width
// for every direction so the four targets form a cross.
func BucketCenter(center fyne.Position, panel fyne.Size, d models.Direction) fyne.Position {
	spacing := panel.Width * BucketSpacingRatio
	switch d {
	case models.Left:
		return center.Add(fyne.NewPos(-spacing, 0))
	case models.Right:
		return center.Add(fyne.NewPos(spacing, 0))
	case models.Up:
		return center.Add(fyne.NewPos(0, -spacing))
	case models.Down:
		return center.Add(fyne.NewPos(0, spacing))
	default:
		return center
	}
}

// ImageSize is the on-screen size of the current image at scale 1.
func ImageSize(aspect float32, panel fyne.Size) fyne.Size {
	if aspect <= 0 {
		aspect = 1
	}
	height := panel.Height * CurrentImageRatio
	return fyne.NewSize(height*aspect, height)
}

// TopLeft converts a centre point and size into the object position.
func TopLeft(center fyne.Position, size fyne.Size) fyne.Position {
	return fyne.NewPos(center.X-size.Width/2, center.Y-size.Height/2)
}

// CardOffset is the diagonal shift of the i-th card in a bucket stack.
func CardOffset(i int) fyne.Position {
	d := float32(i * StackOffset)
	return fyne.NewPos(d, d)
}

// CardSize is the size of a stacked card inside a bucket.
func CardSize() fyne.Size {
	return fyne.NewSize(BucketWidth*CardScale, BucketHeight*CardScale)
}

// LabelCenter is where the bucket caption sits, near the bucket's lower edge.
func LabelCenter(bucketCenter fyne.Position) fyne.Position {
	return bucketCenter.Add(fyne.NewPos(0, BucketHeight*0.4))
}
