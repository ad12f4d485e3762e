package components

import (
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"leftright/internal/models"
)

const (
	SetupTitle = "Enter Categories"
	SetupHint  = "Separate with commas (1-4 categories)"
)

// SetupForm collects the comma separated category list
type SetupForm struct {
	card         *widget.Card
	entry        *widget.Entry
	submitButton *widget.Button

	submitHandler func(string)
}

// NewSetupForm creates the category entry card
func NewSetupForm() *SetupForm {
	sf := &SetupForm{}

	sf.entry = widget.NewEntry()
	sf.entry.SetPlaceHolder("e.g. keep, trash, maybe")
	sf.entry.OnSubmitted = func(string) { sf.submit() }

	sf.submitButton = widget.NewButton("Start sorting", sf.submit)
	sf.submitButton.Importance = widget.HighImportance

	sf.card = widget.NewCard(SetupTitle, SetupHint, container.NewVBox(sf.entry, sf.submitButton))
	return sf
}

// SetSubmitHandler sets the handler receiving the raw input
func (sf *SetupForm) SetSubmitHandler(handler func(string)) {
	sf.submitHandler = handler
}

// SetText prefills the entry
func (sf *SetupForm) SetText(text string) {
	sf.entry.SetText(text)
}

// Entry exposes the input for focusing
func (sf *SetupForm) Entry() *widget.Entry {
	return sf.entry
}

func (sf *SetupForm) submit() {
	if sf.submitHandler != nil {
		sf.submitHandler(strings.TrimSpace(sf.entry.Text))
	}
}

// GetContainer returns the setup card centred in its area
func (sf *SetupForm) GetContainer() fyne.CanvasObject {
	return container.NewCenter(container.NewGridWrap(fyne.NewSize(400, 200), sf.card))
}

// NewShortcutsCard lists the key bindings
func NewShortcutsCard() *widget.Card {
	lines := []fyne.CanvasObject{}
	for _, d := range models.AllDirections {
		lines = append(lines, widget.NewLabel(ShortcutText(d)))
	}
	lines = append(lines, widget.NewSeparator(), widget.NewLabel("Ctrl+Z Undo last move"))
	return widget.NewCard("Shortcuts", "", container.NewVBox(lines...))
}

// ShortcutText is the help line for an arrow key, e.g. "← Left category".
func ShortcutText(d models.Direction) string {
	name := d.String()
	return d.Arrow() + " " + strings.ToUpper(name[:1]) + name[1:] + " category"
}
