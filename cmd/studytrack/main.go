// Package main provides the CLI entrypoint for studytrack.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/studytrack/internal/config"
	"github.com/verte-zerg/studytrack/internal/insights"
	"github.com/verte-zerg/studytrack/internal/jsonstore"
	"github.com/verte-zerg/studytrack/internal/model"
	"github.com/verte-zerg/studytrack/internal/statsui"
	"github.com/verte-zerg/studytrack/internal/store"
	"github.com/verte-zerg/studytrack/internal/tracker"
	"github.com/verte-zerg/studytrack/internal/tui"
)

const (
	defaultGapTolerance = 10
	defaultBackend      = backendSQLite
)

const (
	backendSQLite = "sqlite"
	backendJSON   = "json"
)

var (
	trackerGapTolerance int
	trackerCadence      []int
	trackerExamDate     string
	trackerBackend      string
	trackerDataDir      string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "studytrack",
		Short:         "Study timer and log analytics",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runTimerCmd,
	}

	flags := rootCmd.PersistentFlags()
	flags.IntVar(&trackerGapTolerance, "gap-tolerance", defaultGapTolerance, "idle minutes allowed before a gap is logged")
	flags.IntSliceVar(&trackerCadence, "revision-cadence", []int(insights.DefaultCadence), "days between revisions, by revision count")
	flags.StringVar(&trackerExamDate, "exam-date", "", "exam date (YYYY-MM-DD)")
	flags.StringVar(&trackerBackend, "backend", defaultBackend, "log backend (sqlite or json)")
	flags.StringVar(&trackerDataDir, "data-dir", "", "data directory (default $XDG_DATA_HOME/studytrack)")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newLogCmd())
	rootCmd.AddCommand(newTopicsCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newEditCmd())

	return rootCmd
}

// logStore is a tracker.LogStore that owns resources.
type logStore interface {
	tracker.LogStore
	Close() error
}

// loadConfig merges the config file into the tracker flags and validates
// the result.
func loadConfig(cmd *cobra.Command) (model.Config, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return model.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "gap-tolerance", &trackerGapTolerance, fileCfg.Tracker.GapTolerance)
	applyIntSliceConfig(cmd, "revision-cadence", &trackerCadence, fileCfg.Tracker.RevisionCadence)
	applyStringConfig(cmd, "exam-date", &trackerExamDate, fileCfg.Tracker.ExamDate)
	applyStringConfig(cmd, "backend", &trackerBackend, fileCfg.Tracker.Backend)
	applyStringConfig(cmd, "data-dir", &trackerDataDir, fileCfg.Tracker.DataDir)

	cfg := model.Config{
		GapTolerance:    time.Duration(trackerGapTolerance) * time.Minute,
		RevisionCadence: append([]int(nil), trackerCadence...),
		Backend:         strings.ToLower(strings.TrimSpace(trackerBackend)),
		DataDir:         strings.TrimSpace(trackerDataDir),
		Targets:         fileCfg.Targets,
		Activities:      fileCfg.Activities,
	}
	if cfg.DataDir == "" {
		cfg.DataDir = config.DefaultDataDir()
	}
	if exam := strings.TrimSpace(trackerExamDate); exam != "" {
		parsed, err := time.ParseInLocation(model.DateLayout, exam, time.Local)
		if err != nil {
			return model.Config{}, fmt.Errorf("invalid exam date %q (expected YYYY-MM-DD)", exam)
		}
		cfg.ExamDate = &parsed
	}
	if err := validateConfig(cfg); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}

func openStore(cfg model.Config) (logStore, error) {
	switch cfg.Backend {
	case backendJSON:
		st, err := jsonstore.Open(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open json log: %w", err)
		}
		return st, nil
	default:
		st, err := store.Open(config.DBPath(cfg.DataDir))
		if err != nil {
			return nil, fmt.Errorf("failed to open db: %w", err)
		}
		return st, nil
	}
}

// withTracker loads settings, opens the configured store and runs fn.
func withTracker(cmd *cobra.Command, fn func(*tracker.Tracker, model.Config) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close store: %v\n", cerr)
		}
	}()
	return fn(tracker.New(st, cfg), cfg)
}

func runTimerCmd(cmd *cobra.Command, _ []string) error {
	return withTracker(cmd, func(tr *tracker.Tracker, cfg model.Config) error {
		program := tea.NewProgram(tui.NewModel(tr, cfg.Activities), tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run TUI: %w", err)
		}
		return nil
	})
}

var (
	statsSince string
	statsDays  int
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the stats dashboard",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	addFilterFlags(cmd)
	return cmd
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsDays, "days", 0, "limit to the last N days")
}

func statsConfigFromFlags() (model.StatsConfig, error) {
	if statsDays < 0 {
		return model.StatsConfig{}, fmt.Errorf("--days must be >= 0")
	}
	cfg := model.StatsConfig{Days: statsDays}
	if statsSince != "" {
		parsed, err := time.ParseInLocation(model.DateLayout, statsSince, time.Local)
		if err != nil {
			return model.StatsConfig{}, fmt.Errorf("invalid --since value: %w", err)
		}
		cfg.Since = &parsed
	}
	return cfg, nil
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	statsCfg, err := statsConfigFromFlags()
	if err != nil {
		return err
	}
	return withTracker(cmd, func(tr *tracker.Tracker, cfg model.Config) error {
		program := tea.NewProgram(statsui.NewModel(tr, statsCfg, cfg.Targets), tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run stats TUI: %w", err)
		}
		return nil
	})
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a plain-text summary and insights",
		Args:  cobra.NoArgs,
		RunE:  runReportCmd,
	}
	addFilterFlags(cmd)
	return cmd
}

func runReportCmd(cmd *cobra.Command, _ []string) error {
	statsCfg, err := statsConfigFromFlags()
	if err != nil {
		return err
	}
	return withTracker(cmd, func(tr *tracker.Tracker, cfg model.Config) error {
		d := tr.Dashboard(cmd.Context(), statsCfg, cfg.Targets)
		if err := tracker.RenderDashboard(cmd.OutOrStdout(), d, 0); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		return nil
	})
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	return openEditor(path)
}

// openEditor runs $EDITOR (default vi) on path and waits for it to exit.
func openEditor(path string) error {
	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntSliceConfig(cmd *cobra.Command, name string, target *[]int, value []int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# studytrack configuration
# Uncomment a value to enable it. CLI flags override config values.

[tracker]
# gap-tolerance = %d             # Idle minutes allowed before a gap is logged
# revision-cadence = [1, 3, 7, 15] # Days between revisions, by revision count
# exam-date = "2026-05-01"       # Shows a countdown when set
# backend = %q              # sqlite or json
# data-dir = ""                  # Default $XDG_DATA_HOME/studytrack

[targets]
# Subject hour targets, matched against session subject or activity.
# FR = 250

[activities]
# Timer choices per category.
# Study = ["FR Study", "AFM Study"]
# Classes = ["Lecture"]
`,
		defaultGapTolerance,
		defaultBackend,
	)
}

func validateConfig(cfg model.Config) error {
	if cfg.GapTolerance < 0 {
		return fmt.Errorf("--gap-tolerance must be >= 0")
	}
	if err := insights.Cadence(cfg.RevisionCadence).Validate(); err != nil {
		return fmt.Errorf("--revision-cadence: %w", err)
	}
	switch cfg.Backend {
	case backendSQLite, backendJSON:
	default:
		return fmt.Errorf("--backend must be %q or %q", backendSQLite, backendJSON)
	}
	for subject, hours := range cfg.Targets {
		if hours < 0 {
			return fmt.Errorf("target for %q must be >= 0", subject)
		}
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
