package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global key bindings. Modal views (entity picker,
// edit form) consume their own keys before these apply.
type KeyMap struct {
	Quit    key.Binding
	Help    key.Binding
	NextTab key.Binding
	PrevTab key.Binding

	PlayPause    key.Binding
	StepBack     key.Binding
	StepForward  key.Binding
	StartBack    key.Binding
	StartForward key.Binding
	JumpFirst    key.Binding
	JumpLast     key.Binding

	Edit     key.Binding
	Entities key.Binding
	Export   key.Binding
	Yank     key.Binding
	Reload   key.Binding
}

// DefaultKeyMap returns the standard bindings. Arrow keys move the end
// handle one axis year; shift+arrows move the start handle.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		NextTab: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next view")),
		PrevTab: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev view")),

		PlayPause:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		StepBack:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "year back")),
		StepForward:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "year forward")),
		StartBack:    key.NewBinding(key.WithKeys("shift+left", "H"), key.WithHelp("shift+←", "start back")),
		StartForward: key.NewBinding(key.WithKeys("shift+right", "L"), key.WithHelp("shift+→", "start forward")),
		JumpFirst:    key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("home", "first year")),
		JumpLast:     key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("end", "last year")),

		Edit:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit config")),
		Entities: key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "entities")),
		Export:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "export")),
		Yank:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yank window")),
		Reload:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	}
}
