package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/grapher/pkg/model"
)

// EditFieldType defines the type of edit field
type EditFieldType int

const (
	EditFieldText EditFieldType = iota
	EditFieldTextArea
	EditFieldSelect
)

// EditField represents a single editable field
type EditField struct {
	Label    string
	Type     EditFieldType
	Input    textinput.Model // for text fields
	TextArea textarea.Model  // for textarea fields
	Options  []string        // for select fields
	Selected int             // current selection index for select fields
	Original string          // original value for dirty detection
}

// EditModal edits the chart's presentation metadata: title, subtitle,
// chart type, note and source line. Saving hands an updated config back
// to the host; the host decides whether to persist the sidecar.
type EditModal struct {
	fields       []EditField
	focusedField int
	width        int
	height       int
	theme        Theme

	dirty           bool // true if any field changed from original
	saveRequested   bool
	cancelRequested bool
}

// Display names for the chart type select, index-aligned with chartTypeValues.
var (
	chartTypeLabels = []string{"Line chart", "Discrete bar"}
	chartTypeValues = []model.ChartType{model.ChartTypeLine, model.ChartTypeBar}
)

func chartTypeLabel(t model.ChartType) string {
	for i, v := range chartTypeValues {
		if v == t {
			return chartTypeLabels[i]
		}
	}
	return chartTypeLabels[0]
}

// NewEditModal creates an edit modal pre-populated from the current config
func NewEditModal(cfg model.ChartConfig, theme Theme) EditModal {
	fields := []EditField{
		makeTextField("Title", cfg.Title),
		makeTextField("Subtitle", cfg.Subtitle),
		makeSelectField("Type", chartTypeLabel(cfg.Type), chartTypeLabels),
		makeTextAreaField("Note", cfg.Note),
		makeTextField("Source", cfg.SourceDesc),
	}

	// Focus the title field's input
	fields[0].Input.Focus()

	return EditModal{
		fields:       fields,
		focusedField: 0,
		theme:        theme,
	}
}

// makeTextField creates a text input field
func makeTextField(label, value string) EditField {
	ti := textinput.New()
	ti.SetValue(value)
	ti.CharLimit = 200
	ti.Width = 50

	return EditField{
		Label:    label,
		Type:     EditFieldText,
		Input:    ti,
		Original: value,
	}
}

// makeTextAreaField creates a textarea field
func makeTextAreaField(label, value string) EditField {
	ta := textarea.New()
	ta.SetValue(value)
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.CharLimit = 2000

	return EditField{
		Label:    label,
		Type:     EditFieldTextArea,
		TextArea: ta,
		Original: value,
	}
}

// makeSelectField creates a select field
func makeSelectField(label, value string, options []string) EditField {
	selected := 0
	for i, opt := range options {
		if opt == value {
			selected = i
			break
		}
	}

	return EditField{
		Label:    label,
		Type:     EditFieldSelect,
		Options:  options,
		Selected: selected,
		Original: value,
	}
}

// Update handles input for the edit modal
func (m EditModal) Update(msg tea.Msg) (EditModal, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+s":
			m.saveRequested = true
			return m, nil

		case "esc":
			m.cancelRequested = true
			return m, nil

		case "tab":
			// Move to next field
			m.fields[m.focusedField] = m.blurField(m.fields[m.focusedField])
			m.focusedField = (m.focusedField + 1) % len(m.fields)
			m.fields[m.focusedField] = m.focusField(m.fields[m.focusedField])
			return m, nil

		case "shift+tab":
			// Move to previous field
			m.fields[m.focusedField] = m.blurField(m.fields[m.focusedField])
			m.focusedField = (m.focusedField - 1 + len(m.fields)) % len(m.fields)
			m.fields[m.focusedField] = m.focusField(m.fields[m.focusedField])
			return m, nil

		case "left":
			// For select fields, cycle left
			if m.fields[m.focusedField].Type == EditFieldSelect {
				field := &m.fields[m.focusedField]
				field.Selected = (field.Selected - 1 + len(field.Options)) % len(field.Options)
				m.updateDirtyFlag()
				return m, nil
			}

		case "right":
			// For select fields, cycle right
			if m.fields[m.focusedField].Type == EditFieldSelect {
				field := &m.fields[m.focusedField]
				field.Selected = (field.Selected + 1) % len(field.Options)
				m.updateDirtyFlag()
				return m, nil
			}
		}

		// Pass key to focused field
		field := &m.fields[m.focusedField]
		switch field.Type {
		case EditFieldText:
			field.Input, cmd = field.Input.Update(msg)
			cmds = append(cmds, cmd)
		case EditFieldTextArea:
			field.TextArea, cmd = field.TextArea.Update(msg)
			cmds = append(cmds, cmd)
		}
		m.updateDirtyFlag()
	}

	return m, tea.Batch(cmds...)
}

// focusField sets focus on the given field
func (m EditModal) focusField(field EditField) EditField {
	switch field.Type {
	case EditFieldText:
		field.Input.Focus()
	case EditFieldTextArea:
		field.TextArea.Focus()
	}
	return field
}

// blurField removes focus from the given field
func (m EditModal) blurField(field EditField) EditField {
	switch field.Type {
	case EditFieldText:
		field.Input.Blur()
	case EditFieldTextArea:
		field.TextArea.Blur()
	}
	return field
}

// updateDirtyFlag checks if any field differs from its original value
func (m *EditModal) updateDirtyFlag() {
	m.dirty = false
	for _, field := range m.fields {
		if m.getCurrentValue(field) != field.Original {
			m.dirty = true
			break
		}
	}
}

// getCurrentValue returns the current value of a field as a string
func (m EditModal) getCurrentValue(field EditField) string {
	switch field.Type {
	case EditFieldText:
		return field.Input.Value()
	case EditFieldTextArea:
		return field.TextArea.Value()
	case EditFieldSelect:
		if field.Selected >= 0 && field.Selected < len(field.Options) {
			return field.Options[field.Selected]
		}
		return ""
	}
	return ""
}

// Apply writes the field values over the given config and returns it.
// Field order matches NewEditModal.
func (m EditModal) Apply(cfg model.ChartConfig) model.ChartConfig {
	cfg.Title = strings.TrimSpace(m.fields[0].Input.Value())
	cfg.Subtitle = strings.TrimSpace(m.fields[1].Input.Value())
	cfg.Type = chartTypeValues[m.fields[2].Selected]
	cfg.Note = strings.TrimSpace(m.fields[3].TextArea.Value())
	cfg.SourceDesc = strings.TrimSpace(m.fields[4].Input.Value())
	return cfg
}

// View renders the edit modal
func (m EditModal) View() string {
	r := m.theme.Renderer

	// Calculate box width based on terminal width
	boxWidth := m.width - 10
	if boxWidth < 60 {
		boxWidth = 60
	}
	if boxWidth > 80 {
		boxWidth = 80
	}

	// Modal header
	headerStyle := r.NewStyle().
		Bold(true).
		Foreground(m.theme.Primary)

	title := "Edit Chart"
	if m.dirty {
		title += " *"
	}

	var content strings.Builder
	content.WriteString(headerStyle.Render(title))
	content.WriteString("\n\n")

	// Render each field
	labelStyle := r.NewStyle().
		Foreground(m.theme.Secondary).
		Width(10).
		Align(lipgloss.Right)

	focusedLabelStyle := r.NewStyle().
		Foreground(m.theme.Primary).
		Bold(true).
		Width(10).
		Align(lipgloss.Right)

	selectStyle := r.NewStyle().
		Foreground(m.theme.Primary)

	for i, field := range m.fields {
		isFocused := i == m.focusedField

		// Render label
		var labelStr string
		if isFocused {
			labelStr = focusedLabelStyle.Render(field.Label + ":")
		} else {
			labelStr = labelStyle.Render(field.Label + ":")
		}
		content.WriteString(labelStr)
		content.WriteString(" ")

		// Render field value
		switch field.Type {
		case EditFieldText:
			content.WriteString(field.Input.View())

		case EditFieldTextArea:
			taView := field.TextArea.View()
			// Indent textarea lines
			lines := strings.Split(taView, "\n")
			for idx, line := range lines {
				if idx > 0 {
					content.WriteString(strings.Repeat(" ", 11)) // indent to match label width
				}
				content.WriteString(line)
				if idx < len(lines)-1 {
					content.WriteString("\n")
				}
			}

		case EditFieldSelect:
			val := field.Options[field.Selected]
			if isFocused {
				content.WriteString(selectStyle.Render("< " + val + " >"))
			} else {
				content.WriteString(val)
			}
		}

		content.WriteString("\n")
		if field.Type == EditFieldTextArea {
			content.WriteString("\n") // Extra spacing after textarea
		}
	}

	// Instructions
	content.WriteString("\n")
	subtextStyle := r.NewStyle().
		Foreground(m.theme.Subtext).
		Italic(true)

	instructions := "[Tab] Next field   [Ctrl+S] Save   [Esc] Cancel"
	if m.fields[m.focusedField].Type == EditFieldSelect {
		instructions = "[←/→] Change   [Tab] Next field   [Ctrl+S] Save   [Esc] Cancel"
	}
	content.WriteString(subtextStyle.Render(instructions))

	// Render modal with border
	boxStyle := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Primary).
		Padding(1, 2).
		Width(boxWidth)

	box := boxStyle.Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// SetSize sets the modal dimensions
func (m *EditModal) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// IsDirty returns true if any field differs from its original value
func (m EditModal) IsDirty() bool {
	return m.dirty
}

// IsSaveRequested returns true if ctrl+s was pressed
func (m EditModal) IsSaveRequested() bool {
	return m.saveRequested
}

// IsCancelRequested returns true if esc was pressed
func (m EditModal) IsCancelRequested() bool {
	return m.cancelRequested
}
