package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Open     key.Binding
	Back     key.Binding
	Refresh  key.Binding
	New      key.Binding
	Delete   key.Binding
	Flip     key.Binding
	Next     key.Binding
	Prev     key.Binding
	Shuffle  key.Binding
	Practice key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Open:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Back:     key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back")),
		Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		New:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
		Delete:   key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "delete")),
		Flip:     key.NewBinding(key.WithKeys(" ", "f"), key.WithHelp("space", "flip")),
		Next:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next")),
		Prev:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "previous")),
		Shuffle:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "shuffle")),
		Practice: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "practice")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// screenKeys adapts the bindings active on one screen to help.KeyMap.
type screenKeys []key.Binding

func (s screenKeys) ShortHelp() []key.Binding  { return s }
func (s screenKeys) FullHelp() [][]key.Binding { return [][]key.Binding{s} }

func (k keyMap) forScreen(s screen, canPractice bool) screenKeys {
	switch s {
	case screenDeck:
		keys := screenKeys{k.Up, k.Down, k.Flip, k.New, k.Delete}
		if canPractice {
			keys = append(keys, k.Practice)
		}
		return append(keys, k.Refresh, k.Back, k.Quit)
	case screenPractice:
		return screenKeys{k.Prev, k.Next, k.Flip, k.Shuffle, k.Back, k.Quit}
	default:
		return screenKeys{k.Up, k.Down, k.Open, k.New, k.Delete, k.Refresh, k.Quit}
	}
}
