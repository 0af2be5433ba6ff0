package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/grapher/internal/datasource"
	"github.com/vanderheijden86/grapher/pkg/config"
	"github.com/vanderheijden86/grapher/pkg/debug"
	"github.com/vanderheijden86/grapher/pkg/export"
	"github.com/vanderheijden86/grapher/pkg/model"
	"github.com/vanderheijden86/grapher/pkg/robot"
	"github.com/vanderheijden86/grapher/pkg/timeline"
	"github.com/vanderheijden86/grapher/pkg/ui"
	"github.com/vanderheijden86/grapher/pkg/version"
	"github.com/vanderheijden86/grapher/pkg/watcher"
)

func main() {
	configPath := flag.String("config", "", "Path to a gr config file (default: XDG config dir)")
	entitiesFlag := flag.String("entities", "", "Comma-separated entity names to select")
	startFlag := flag.String("start", "", "Window start: a year, or earliest/latest")
	endFlag := flag.String("end", "", "Window end: a year, or earliest/latest")
	exportPath := flag.String("export", "", "Export to PATH and exit (no TUI)")
	formatFlag := flag.String("format", "", "Export format: csv, svg, png, md (default: by extension)")
	robotSummary := flag.Bool("robot-summary", false, "Print a JSON dataset summary to stdout and exit")
	watchFlag := flag.Bool("watch", false, "With -export: re-export whenever the data file changes")
	versionFlag := flag.Bool("version", false, "Show version")
	cpuProfile := flag.String("cpuprofile", "", "Write CPU profile to file")
	help := flag.Bool("help", false, "Show help")
	flag.Parse()

	if *help {
		fmt.Println("Usage: gr [options] [data path, dataset name, or favorite number]")
		fmt.Println("\nA terminal viewer for statistical charts with a time scrubber.")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("gr %s\n", version.Version)
		os.Exit(0)
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	// App config. An explicit -config that fails to load is fatal; a broken
	// default config falls back so the viewer still starts.
	var appCfg config.Config
	if *configPath != "" {
		cfg, err := config.LoadFrom(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		appCfg = cfg
	} else {
		cfg, err := config.Load()
		if err != nil {
			cfg = config.DefaultConfig()
		}
		appCfg = cfg
	}

	dataPath := resolveDataPath(flag.Arg(0), appCfg)

	ctx := context.Background()
	res, err := datasource.Load(ctx, dataPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading data: %v\n", err)
		fmt.Fprintln(os.Stderr, "Point gr at a CSV, JSON or SQLite data file, or a directory containing one.")
		os.Exit(1)
	}

	if *entitiesFlag != "" {
		var names []string
		for _, n := range strings.Split(*entitiesFlag, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
		res.Config.SelectedEntities = names
	}
	if *startFlag != "" {
		b, err := parseTimeBound(*startFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -start: %v\n", err)
			os.Exit(2)
		}
		res.Config.MinTime = b
	}
	if *endFlag != "" {
		b, err := parseTimeBound(*endFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -end: %v\n", err)
			os.Exit(2)
		}
		res.Config.MaxTime = b
	}

	// Flag overrides are folded in at this point; this is the config the
	// viewer actually runs with.
	debug.Section("startup")
	debug.Dump("source", res.Source)
	debug.Dump("chart config", res.Config)

	if *robotSummary {
		if err := robot.WriteSummary(os.Stdout, res.Dataset); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing summary: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *exportPath != "" {
		if err := runHeadlessExport(ctx, res, *exportPath, *formatFlag, *watchFlag); err != nil {
			fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
			os.Exit(1)
		}
		return
	}
	if *watchFlag {
		fmt.Fprintln(os.Stderr, "-watch requires -export; the TUI always watches for changes.")
		os.Exit(2)
	}

	m := ui.NewModel(res, appCfg)
	final, err := runTUIProgram(m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running gr: %v\n", err)
		os.Exit(1)
	}

	// Export wizard runs after the alt screen is torn down so its forms
	// draw on the normal screen.
	if fm, ok := final.(ui.Model); ok && fm.ExportRequested() {
		start, end := fm.Window()
		req, err := export.NewWizard(fm.Dataset(), fm.Config(), start, end).Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Export cancelled: %v\n", err)
			os.Exit(1)
		}
		if err := export.Export(*req); err != nil {
			fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Exported %s\n", req.Path)
	}
}

// resolveDataPath maps the positional argument onto a filesystem path: a
// favorite number or registered dataset name from the config wins, then
// the argument as a path, then the config's first scan path, then the
// working directory.
func resolveDataPath(arg string, appCfg config.Config) string {
	if arg != "" {
		if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= 9 {
			if d := appCfg.FavoriteDataset(n); d != nil {
				return d.ResolvedPath()
			}
		}
		if d := appCfg.FindDataset(arg); d != nil {
			return d.ResolvedPath()
		}
		return arg
	}
	if len(appCfg.Discovery.ScanPaths) > 0 {
		return appCfg.Discovery.ScanPaths[0]
	}
	return "."
}

// parseTimeBound accepts a year number or the tokens earliest/latest.
func parseTimeBound(s string) (model.TimeBound, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "earliest":
		return model.EarliestBound(), nil
	case "latest":
		return model.LatestBound(), nil
	}
	year, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return model.TimeBound{}, fmt.Errorf("%q is not a year or earliest/latest", s)
	}
	return model.YearBound(year), nil
}

// resolveWindow snaps the config's time bounds onto the dataset's axis
// the same way the scrubber would.
func resolveWindow(res *datasource.LoadResult) (start, end int) {
	ctrl := timeline.New(timeline.Options{
		Axis:       res.Dataset.Axis(),
		Start:      res.Config.MinTime.Bound,
		End:        res.Config.MaxTime.Bound,
		SingleYear: res.Config.SingleYear(),
	})
	defer ctrl.Teardown()
	return ctrl.StartYear(), ctrl.EndYear()
}

// runHeadlessExport writes one artifact, and with watch set keeps
// re-exporting on every data change until interrupted.
func runHeadlessExport(ctx context.Context, res *datasource.LoadResult, path, format string, watch bool) error {
	doExport := func(r *datasource.LoadResult) error {
		start, end := resolveWindow(r)
		req := export.Request{
			Path:      path,
			Dataset:   r.Dataset,
			Config:    r.Config,
			StartYear: start,
			EndYear:   end,
		}
		if format != "" {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			req.Format = f
		}
		return export.Export(req)
	}

	if err := doExport(res); err != nil {
		return err
	}
	fmt.Printf("Exported %s\n", path)
	if !watch {
		return nil
	}

	w, err := watcher.NewWatcher(res.Source.Path,
		watcher.WithDebounceDuration(200*time.Millisecond),
		watcher.WithSidecar(res.Source.ConfigSidecarPath()),
	)
	if err != nil {
		return fmt.Errorf("watch %s: %w", res.Source.Path, err)
	}
	if err := w.Start(); err != nil {
		return fmt.Errorf("watch %s: %w", res.Source.Path, err)
	}
	defer w.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	fmt.Fprintf(os.Stderr, "Watching %s (ctrl+c to stop)\n", res.Source.Path)
	for {
		select {
		case <-sigCh:
			return nil
		case <-w.Changed():
			fresh, err := datasource.LoadFromSource(ctx, res.Source)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Reload error: %v\n", err)
				continue
			}
			if err := doExport(fresh); err != nil {
				fmt.Fprintf(os.Stderr, "Export error: %v\n", err)
				continue
			}
			fmt.Printf("Re-exported %s\n", path)
		}
	}
}

func runTUIProgram(m ui.Model) (tea.Model, error) {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set GR_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("GR_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()

				select {
				case <-runDone:
					return
				case <-time.After(2 * time.Second):
				}

				p.Kill()
			}()
		}
	}

	final, err := p.Run()
	if err != nil && (errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted)) {
		return final, nil
	}
	return final, err
}
