package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/vanderheijden86/grapher/pkg/config"
	"github.com/vanderheijden86/grapher/pkg/model"
)

// WizardConfig holds the answers the wizard persists between runs.
type WizardConfig struct {
	Format    string `json:"format"`
	OutputDir string `json:"output_dir,omitempty"`
}

// Wizard collects an export Request interactively: format, output path and
// overwrite confirmation, remembering the previous answers between runs.
type Wizard struct {
	dataset   *model.Dataset
	config    model.ChartConfig
	startYear int
	endYear   int
	saved     WizardConfig
}

// NewWizard creates an export wizard for the current chart state.
func NewWizard(ds *model.Dataset, cfg model.ChartConfig, startYear, endYear int) *Wizard {
	return &Wizard{
		dataset:   ds,
		config:    cfg,
		startYear: startYear,
		endYear:   endYear,
	}
}

// isTerminal checks if stdin is connected to a terminal
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm creates a form with appropriate settings based on TTY detection
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !isTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// wizardConfigPath is where previous answers live.
func wizardConfigPath() string {
	dir := config.StateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "export_wizard.json")
}

// LoadWizardConfig reads the saved wizard answers, if any.
func LoadWizardConfig() (*WizardConfig, error) {
	path := wizardConfigPath()
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var cfg WizardConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveWizardConfig persists the wizard answers for the next run.
func SaveWizardConfig(cfg WizardConfig) error {
	path := wizardConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine state directory")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Run executes the interactive wizard flow and returns the export request.
// The caller performs the actual export.
func (w *Wizard) Run() (*Request, error) {
	if saved, err := LoadWizardConfig(); err == nil && saved != nil {
		w.saved = *saved
	}

	format := w.saved.Format
	if format == "" {
		format = string(FormatCSV)
	}

	form := newForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Export format").
				Options(
					huh.NewOption("CSV (selected window, wide layout)", string(FormatCSV)),
					huh.NewOption("SVG chart snapshot", string(FormatSVG)),
					huh.NewOption("PNG chart snapshot", string(FormatPNG)),
					huh.NewOption("Markdown citation block", string(FormatMarkdown)),
				).
				Value(&format),
		),
	)
	if err := form.Run(); err != nil {
		return nil, err
	}

	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}

	defaultPath := DefaultFileName(w.dataset, f)
	if w.saved.OutputDir != "" {
		defaultPath = filepath.Join(w.saved.OutputDir, defaultPath)
	}
	path := defaultPath

	pathForm := newForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Output path").
				Value(&path).
				Placeholder(defaultPath).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("path must not be empty")
					}
					return nil
				}),
		),
	)
	if err := pathForm.Run(); err != nil {
		return nil, err
	}
	path = strings.TrimSpace(path)

	if _, err := os.Stat(path); err == nil {
		overwrite := false
		confirm := newForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("%s exists. Overwrite?", path)).
					Value(&overwrite).
					Affirmative("Yes, overwrite").
					Negative("No, cancel"),
			),
		)
		if err := confirm.Run(); err != nil {
			return nil, err
		}
		if !overwrite {
			return nil, fmt.Errorf("export cancelled")
		}
	}

	// Remember answers for next time; failures here do not block the export
	_ = SaveWizardConfig(WizardConfig{
		Format:    string(f),
		OutputDir: filepath.Dir(path),
	})

	return &Request{
		Path:      path,
		Format:    f,
		Dataset:   w.dataset,
		Config:    w.config,
		StartYear: w.startYear,
		EndYear:   w.endYear,
	}, nil
}
