package components

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// StatusBar displays the last action and the queue counters
type StatusBar struct {
	container   *fyne.Container
	statusLabel *widget.Label
	imageInfo   *widget.Label
	queueInfo   *widget.Label
}

// NewStatusBar creates a new status bar component
func NewStatusBar() *StatusBar {
	sb := &StatusBar{}
	sb.createComponents()
	sb.buildLayout()
	return sb
}

func (sb *StatusBar) createComponents() {
	sb.statusLabel = widget.NewLabel("Ready")
	sb.imageInfo = widget.NewLabel("No image")
	sb.queueInfo = widget.NewLabel("")
}

func (sb *StatusBar) buildLayout() {
	sb.container = container.NewHBox(
		sb.statusLabel,
		widget.NewSeparator(),
		sb.imageInfo,
		widget.NewSeparator(),
		sb.queueInfo,
	)
}

// SetStatus updates the main status message
func (sb *StatusBar) SetStatus(status string) {
	sb.statusLabel.SetText(status)
}

// GetStatus returns the current status message
func (sb *StatusBar) GetStatus() string {
	return sb.statusLabel.Text
}

// SetImageInfo shows the name and size of the image on screen
func (sb *StatusBar) SetImageInfo(name string, width, height int) {
	switch {
	case name == "":
		sb.imageInfo.SetText("No image")
	case width == 0 || height == 0:
		sb.imageInfo.SetText(fmt.Sprintf("%s (not decodable)", name))
	default:
		sb.imageInfo.SetText(fmt.Sprintf("%s  %dx%d", name, width, height))
	}
}

// SetQueueInfo shows how many images remain and how many were sorted
func (sb *StatusBar) SetQueueInfo(remaining, sorted int) {
	sb.queueInfo.SetText(fmt.Sprintf("%d left, %d sorted", remaining, sorted))
}

// GetContainer returns the status bar container
func (sb *StatusBar) GetContainer() *fyne.Container {
	return sb.container
}

// LoadingIndicator shows thumbnail loading progress
type LoadingIndicator struct {
	container   *fyne.Container
	progressBar *widget.ProgressBar
	label       *widget.Label
}

// NewLoadingIndicator creates a hidden loading indicator
func NewLoadingIndicator() *LoadingIndicator {
	li := &LoadingIndicator{
		progressBar: widget.NewProgressBar(),
		label:       widget.NewLabel(LoadingText(0, 0)),
	}
	li.container = container.NewVBox(li.progressBar, li.label)
	li.container.Hide()
	return li
}

// LoadingText is the caption under the progress bar.
func LoadingText(done, total int) string {
	return fmt.Sprintf("Loading images... (%d/%d)", done, total)
}

// SetProgress updates the bar and caption
func (li *LoadingIndicator) SetProgress(done, total int) {
	value := 1.0
	if total > 0 {
		value = float64(done) / float64(total)
	}
	if value > 1 {
		value = 1
	}
	li.progressBar.SetValue(value)
	li.label.SetText(LoadingText(done, total))
}

// GetProgress returns the current progress value
func (li *LoadingIndicator) GetProgress() float64 {
	return li.progressBar.Value
}

// SetVisible shows or hides the indicator
func (li *LoadingIndicator) SetVisible(visible bool) {
	if visible {
		li.container.Show()
	} else {
		li.container.Hide()
	}
}

// IsVisible reports whether the indicator is shown
func (li *LoadingIndicator) IsVisible() bool {
	return li.container.Visible()
}

// GetContainer returns the indicator container
func (li *LoadingIndicator) GetContainer() *fyne.Container {
	return li.container
}
