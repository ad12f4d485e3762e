package components

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"leftright/internal/animation"
	"leftright/internal/models"
)

var (
	bucketColor      = color.Gray{Y: 40}
	labelColor       = color.White
	placeholderColor = color.Gray{Y: 90}
)

// Card is a thumbnail as drawn on the board. A nil Image draws a grey
// placeholder, used for files that failed to decode.
type Card struct {
	Path   string
	Image  image.Image
	Aspect float32
}

// CardFromThumbnail builds a card for path, tolerating a missing thumbnail.
func CardFromThumbnail(path string, thumb *models.Thumbnail) Card {
	card := Card{Path: path, Aspect: 1}
	if thumb != nil {
		card.Image = thumb.Image
		card.Aspect = thumb.AspectRatio()
	}
	return card
}

// BucketState is what one category target shows.
type BucketState struct {
	Direction models.Direction
	Category  string
	Count     int
	Cards     []Card
}

// Label is the two-line bucket caption.
func (b BucketState) Label() (string, string) {
	return fmt.Sprintf("%s %s", b.Direction.Arrow(), b.Category), fmt.Sprintf("%d files", b.Count)
}

// FlyingCard is a card mid-transition.
type FlyingCard struct {
	Card
	Frame animation.Frame
}

// SortBoard draws the buckets, the current image and any cards in flight.
type SortBoard struct {
	widget.BaseWidget

	mu          sync.RWMutex
	buckets     []BucketState
	current     *Card
	flying      []FlyingCard
	hideCurrent bool
	minSize     fyne.Size

	// bumped by SetBuckets and SetCurrent so the renderer only recreates
	// those layers when they actually change
	bucketsVersion uint64
	currentVersion uint64
}

// NewSortBoard creates an empty board with the given minimum size
func NewSortBoard(minSize fyne.Size) *SortBoard {
	b := &SortBoard{minSize: minSize}
	b.ExtendBaseWidget(b)
	return b
}

// SetBuckets replaces the bucket contents
func (b *SortBoard) SetBuckets(buckets []BucketState) {
	b.mu.Lock()
	b.buckets = buckets
	b.bucketsVersion++
	b.mu.Unlock()
	b.Refresh()
}

// SetCurrent sets the image in the centre; nil clears it
func (b *SortBoard) SetCurrent(card *Card) {
	b.mu.Lock()
	b.current = card
	b.currentVersion++
	b.mu.Unlock()
	b.Refresh()
}

// SetFlying replaces the cards in flight
func (b *SortBoard) SetFlying(cards []FlyingCard, hideCurrent bool) {
	b.mu.Lock()
	b.flying = cards
	b.hideCurrent = hideCurrent
	b.mu.Unlock()
	b.Refresh()
}

// Center is the middle of the board in its own coordinates
func (b *SortBoard) Center() fyne.Position {
	size := b.Size()
	return fyne.NewPos(size.Width/2, size.Height/2)
}

// BucketCenter is the middle of the bucket for d in board coordinates
func (b *SortBoard) BucketCenter(d models.Direction) fyne.Position {
	return BucketCenter(b.Center(), b.Size(), d)
}

// CurrentAspect returns the aspect ratio of the image on screen
func (b *SortBoard) CurrentAspect() float32 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.current == nil {
		return 1
	}
	return b.current.Aspect
}

type boardSnapshot struct {
	buckets        []BucketState
	current        *Card
	flying         []FlyingCard
	hideCurrent    bool
	bucketsVersion uint64
	currentVersion uint64
}

func (b *SortBoard) snapshot() boardSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return boardSnapshot{
		buckets:        b.buckets,
		current:        b.current,
		flying:         b.flying,
		hideCurrent:    b.hideCurrent,
		bucketsVersion: b.bucketsVersion,
		currentVersion: b.currentVersion,
	}
}

// CreateRenderer creates the renderer for SortBoard
func (b *SortBoard) CreateRenderer() fyne.WidgetRenderer {
	r := &sortBoardRenderer{board: b, flyingObjs: make(map[string]*flyingObjects)}
	r.rebuild()
	return r
}

// placed is one canvas object with enough information to lay it out for any
// board size.
type placed struct {
	obj    fyne.CanvasObject
	kind   placement
	bucket models.Direction
	offset fyne.Position
	size   fyne.Size
	scale  float32
	aspect float32
	shadow bool
}

type placement int

const (
	placeBucket placement = iota
	placeCurrent
	placeFlying
)

// flyingObjects are reused for every frame of one card's flight.
type flyingObjects struct {
	shadow *canvas.Rectangle
	card   fyne.CanvasObject
}

type sortBoardRenderer struct {
	board *SortBoard

	built          bool
	bucketsVersion uint64
	currentVersion uint64
	bucketItems    []placed
	currentItems   []placed
	flyingItems    []placed
	flyingObjs     map[string]*flyingObjects

	items   []placed
	objects []fyne.CanvasObject
}

// rebuild brings the canvas objects in line with the board state. Bucket
// and current objects are recreated only when their layer changed, flying
// cards keep their objects for the whole flight. Draw order is buckets,
// then the current image, then flying cards.
func (r *sortBoardRenderer) rebuild() {
	snap := r.board.snapshot()

	if !r.built || snap.bucketsVersion != r.bucketsVersion {
		r.bucketItems = r.bucketItems[:0]
		for _, bucket := range snap.buckets {
			r.addBucket(bucket)
		}
		r.bucketsVersion = snap.bucketsVersion
	}

	if !r.built || snap.currentVersion != r.currentVersion {
		r.currentItems = r.currentItems[:0]
		if snap.current != nil {
			r.currentItems = append(r.currentItems, placed{
				obj:    cardImage(*snap.current),
				kind:   placeCurrent,
				scale:  1,
				aspect: snap.current.Aspect,
			})
		}
		r.currentVersion = snap.currentVersion
	}
	r.built = true

	r.updateFlying(snap.flying)

	r.items = r.items[:0]
	r.items = append(r.items, r.bucketItems...)
	if !snap.hideCurrent {
		r.items = append(r.items, r.currentItems...)
	}
	r.items = append(r.items, r.flyingItems...)

	r.objects = make([]fyne.CanvasObject, 0, len(r.items))
	for _, item := range r.items {
		r.objects = append(r.objects, item.obj)
	}
}

func (r *sortBoardRenderer) updateFlying(flying []FlyingCard) {
	next := make(map[string]*flyingObjects, len(flying))
	r.flyingItems = r.flyingItems[:0]

	for _, fc := range flying {
		objs, ok := r.flyingObjs[fc.Path]
		if !ok {
			objs = &flyingObjects{shadow: shadowRect(0), card: cardImage(fc.Card)}
		}
		next[fc.Path] = objs

		item := placed{
			kind:   placeFlying,
			offset: fc.Frame.Position,
			scale:  fc.Frame.Scale,
			aspect: fc.Aspect,
		}
		if fc.Frame.ShadowAlpha > 0 {
			objs.shadow.FillColor = color.NRGBA{A: fc.Frame.ShadowAlpha}
			shadow := item
			shadow.obj = objs.shadow
			shadow.shadow = true
			r.flyingItems = append(r.flyingItems, shadow)
		}
		item.obj = objs.card
		r.flyingItems = append(r.flyingItems, item)
	}
	r.flyingObjs = next
}

func (r *sortBoardRenderer) addBucket(bucket BucketState) {
	bg := canvas.NewRectangle(bucketColor)
	bg.CornerRadius = BucketCornerRadius
	r.bucketItems = append(r.bucketItems, placed{obj: bg, kind: placeBucket, bucket: bucket.Direction, size: BucketSize})

	visible := bucket.Cards
	if len(visible) > MaxVisibleCards {
		visible = visible[:MaxVisibleCards]
	}
	// deepest card first so the newest is drawn on top
	for i := len(visible) - 1; i >= 0; i-- {
		card := placed{kind: placeBucket, bucket: bucket.Direction, offset: CardOffset(i), size: CardSize()}

		shadow := card
		shadow.obj = shadowRect(40)
		shadow.shadow = true
		card.obj = cardImage(visible[i])
		r.bucketItems = append(r.bucketItems, shadow, card)
	}

	title, count := bucket.Label()
	titleText := canvas.NewText(title, labelColor)
	titleText.TextSize = 16
	titleText.Alignment = fyne.TextAlignCenter
	countText := canvas.NewText(count, labelColor)
	countText.TextSize = 14
	countText.Alignment = fyne.TextAlignCenter

	label := LabelCenter(fyne.Position{})
	lineSize := fyne.NewSize(BucketWidth, 18)
	r.bucketItems = append(r.bucketItems,
		placed{obj: titleText, kind: placeBucket, bucket: bucket.Direction, offset: label.Subtract(fyne.NewPos(0, 9)), size: lineSize},
		placed{obj: countText, kind: placeBucket, bucket: bucket.Direction, offset: label.Add(fyne.NewPos(0, 9)), size: lineSize},
	)
}

func shadowRect(alpha uint8) *canvas.Rectangle {
	rect := canvas.NewRectangle(color.NRGBA{A: alpha})
	rect.CornerRadius = 3
	return rect
}

func cardImage(card Card) fyne.CanvasObject {
	if card.Image == nil {
		bg := canvas.NewRectangle(placeholderColor)
		bg.CornerRadius = 3
		return bg
	}
	img := canvas.NewImageFromImage(card.Image)
	img.FillMode = canvas.ImageFillContain
	img.ScaleMode = canvas.ImageScaleSmooth
	return img
}

func (r *sortBoardRenderer) Layout(size fyne.Size) {
	center := fyne.NewPos(size.Width/2, size.Height/2)

	for _, item := range r.items {
		var c fyne.Position
		var objSize fyne.Size

		switch item.kind {
		case placeBucket:
			c = BucketCenter(center, size, item.bucket).Add(item.offset)
			objSize = item.size
		case placeCurrent:
			c = center
			objSize = ImageSize(item.aspect, size)
		case placeFlying:
			c = item.offset
			base := ImageSize(item.aspect, size)
			objSize = fyne.NewSize(base.Width*item.scale, base.Height*item.scale)
		}

		if item.shadow {
			c = c.Add(fyne.NewPos(ShadowOffset, ShadowOffset))
		}
		item.obj.Resize(objSize)
		item.obj.Move(TopLeft(c, objSize))
	}
}

func (r *sortBoardRenderer) MinSize() fyne.Size {
	return r.board.minSize
}

func (r *sortBoardRenderer) Refresh() {
	r.rebuild()
	r.Layout(r.board.Size())
	canvas.Refresh(r.board)
}

func (r *sortBoardRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

func (r *sortBoardRenderer) Destroy() {}
