package ui

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// entityItem is one selectable dataset entity in the picker.
type entityItem struct {
	name    string
	checked bool
}

func (i entityItem) Title() string       { return i.name }
func (i entityItem) Description() string { return "" }
func (i entityItem) FilterValue() string { return i.name }

// entityDelegate renders entity rows as single checkbox lines.
type entityDelegate struct {
	Theme Theme
}

func (d entityDelegate) Height() int                               { return 1 }
func (d entityDelegate) Spacing() int                              { return 0 }
func (d entityDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d entityDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(entityItem)
	if !ok {
		return
	}
	t := d.Theme

	check := "[ ]"
	checkStyle := t.MutedText
	if i.checked {
		check = "[x]"
		checkStyle = t.PlayText
	}
	width := m.Width()
	if width <= 0 {
		width = 40
	}
	name := truncateRunesHelper(i.name, width-6, "…")

	if index == m.Index() {
		fmt.Fprint(w, t.PrimaryBold.Render("› ")+checkStyle.Render(check)+" "+t.PrimaryBold.Render(name))
		return
	}
	fmt.Fprint(w, "  "+checkStyle.Render(check)+" "+name)
}

// EntityPicker is the modal for choosing which entities the chart plots.
// Space toggles, enter applies, esc cancels. The list's fuzzy filter is
// available on /.
type EntityPicker struct {
	list  list.Model
	theme Theme

	applied  bool
	canceled bool

	width  int
	height int
}

// NewEntityPicker builds the picker over the dataset's entities with the
// current selection pre-checked. Entity order follows the dataset.
func NewEntityPicker(entities, selected []string, theme Theme) EntityPicker {
	sel := make(map[string]bool, len(selected))
	for _, s := range selected {
		sel[s] = true
	}
	items := make([]list.Item, len(entities))
	for i, e := range entities {
		items[i] = entityItem{name: e, checked: sel[e]}
	}

	l := list.New(items, entityDelegate{Theme: theme}, 40, 12)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowPagination(false)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()
	l.Styles.Title = lipgloss.NewStyle()
	l.Styles.TitleBar = lipgloss.NewStyle()
	l.Styles.FilterPrompt = lipgloss.NewStyle().Foreground(theme.Primary)
	l.Styles.FilterCursor = lipgloss.NewStyle().Foreground(theme.Primary)
	l.Styles.StatusBar = lipgloss.NewStyle()
	l.Styles.StatusEmpty = lipgloss.NewStyle()
	l.Styles.StatusBarActiveFilter = lipgloss.NewStyle()
	l.Styles.StatusBarFilterCount = lipgloss.NewStyle()
	l.Styles.NoItems = lipgloss.NewStyle()
	l.Styles.PaginationStyle = lipgloss.NewStyle()
	l.Styles.HelpStyle = lipgloss.NewStyle()

	return EntityPicker{list: l, theme: theme, width: 44, height: 16}
}

// SetSize bounds the modal within the terminal.
func (p *EntityPicker) SetSize(width, height int) {
	p.width = min(max(width-10, 30), 60)
	p.height = min(max(height-6, 8), 20)
	p.list.SetSize(p.width-4, p.height-4)
}

// Update handles picker keys. Keystrokes go to the filter input first
// while it is active, so space and enter keep working as text there.
func (p EntityPicker) Update(msg tea.Msg) (EntityPicker, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		if p.list.FilterState() == list.Filtering {
			var cmd tea.Cmd
			p.list, cmd = p.list.Update(msg)
			return p, cmd
		}
		switch key.String() {
		case " ":
			p.toggleCurrent()
			return p, nil
		case "enter":
			p.applied = true
			return p, nil
		case "esc":
			p.canceled = true
			return p, nil
		case "a":
			p.setAll(true)
			return p, nil
		case "n":
			p.setAll(false)
			return p, nil
		}
	}
	var cmd tea.Cmd
	p.list, cmd = p.list.Update(msg)
	return p, cmd
}

// toggleCurrent flips the checkbox under the cursor. The cursor indexes
// the filtered view, so the item is matched back by name.
func (p *EntityPicker) toggleCurrent() {
	cur, ok := p.list.SelectedItem().(entityItem)
	if !ok {
		return
	}
	for i, it := range p.list.Items() {
		if e, ok := it.(entityItem); ok && e.name == cur.name {
			e.checked = !e.checked
			p.list.SetItem(i, e)
			return
		}
	}
}

func (p *EntityPicker) setAll(checked bool) {
	for i, it := range p.list.Items() {
		if e, ok := it.(entityItem); ok {
			e.checked = checked
			p.list.SetItem(i, e)
		}
	}
}

// Selected returns the checked entities in dataset order.
func (p EntityPicker) Selected() []string {
	var out []string
	for _, it := range p.list.Items() {
		if e, ok := it.(entityItem); ok && e.checked {
			out = append(out, e.name)
		}
	}
	return out
}

// Applied reports whether the user confirmed the selection.
func (p EntityPicker) Applied() bool { return p.applied }

// Canceled reports whether the user dismissed the picker.
func (p EntityPicker) Canceled() bool { return p.canceled }

// View renders the bordered modal body.
func (p EntityPicker) View() string {
	t := p.theme
	title := t.Header.Render("Entities")
	count := t.MutedText.Render(strconv.Itoa(len(p.Selected())) + " selected")
	hints := t.MutedText.Render("space toggle · a all · n none · / filter · enter apply · esc cancel")

	body := lipgloss.JoinVertical(lipgloss.Left,
		title+" "+count,
		"",
		p.list.View(),
		"",
		hints,
	)
	return t.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(0, 1).
		Width(p.width).
		Render(body)
}
