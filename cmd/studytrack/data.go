package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/studytrack/internal/ingest"
	"github.com/verte-zerg/studytrack/internal/model"
	"github.com/verte-zerg/studytrack/internal/stats"
	"github.com/verte-zerg/studytrack/internal/syllabus"
	"github.com/verte-zerg/studytrack/internal/tracker"
)

var (
	logCategory string
	logActivity string
	logSubject  string
	logTopic    string
	logDate     string
	logStart    string
	logEnd      string
	logFocus    int
	logNote     string

	topicsSubject string

	exportFormat string
	exportOutput string
	exportTopics bool

	importTopics bool
)

func newLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Record a session manually",
		Args:  cobra.NoArgs,
		RunE:  runLogCmd,
	}
	cmd.Flags().StringVar(&logCategory, "category", string(model.CategoryStudy), "session category")
	cmd.Flags().StringVar(&logActivity, "activity", "", "activity label")
	cmd.Flags().StringVar(&logSubject, "subject", "", "subject")
	cmd.Flags().StringVar(&logTopic, "topic", "", "syllabus topic")
	cmd.Flags().StringVar(&logDate, "date", "", "session date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&logStart, "start", "", "start time (HH:MM)")
	cmd.Flags().StringVar(&logEnd, "end", "", "end time (HH:MM)")
	cmd.Flags().IntVar(&logFocus, "focus", 0, "focus rating 1-5 (0 = unrated)")
	cmd.Flags().StringVar(&logNote, "note", "", "note")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func runLogCmd(cmd *cobra.Command, _ []string) error {
	return withTracker(cmd, func(tr *tracker.Tracker, _ model.Config) error {
		day := tr.Now()
		if logDate != "" {
			parsed, err := time.ParseInLocation(model.DateLayout, logDate, time.Local)
			if err != nil {
				return fmt.Errorf("invalid --date value: %w", err)
			}
			day = parsed
		}
		start, err := clockOn(day, logStart)
		if err != nil {
			return fmt.Errorf("invalid --start value: %w", err)
		}
		end, err := clockOn(day, logEnd)
		if err != nil {
			return fmt.Errorf("invalid --end value: %w", err)
		}
		if !end.After(start) {
			// A session past midnight ends on the next day.
			end = end.AddDate(0, 0, 1)
		}
		category, known := model.ParseCategory(logCategory)
		if !known {
			logErrf("unknown category %q kept as-is\n", logCategory)
		}
		activity := strings.TrimSpace(logActivity)
		if activity == "" {
			activity = string(category)
		}
		result, err := tr.Log(cmd.Context(), model.Session{
			Start:    start,
			End:      end,
			Category: category,
			Activity: activity,
			Subject:  logSubject,
			Topic:    logTopic,
			Focus:    logFocus,
			Note:     logNote,
		})
		if notice := gapNotice(result); notice != "" {
			logErrln(notice)
		}
		if err != nil {
			return fmt.Errorf("failed to log session: %w", err)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Logged %s %s-%s %s\n",
			start.Format(model.DateLayout), start.Format("15:04"), end.Format("15:04"), activity)
		return err
	})
}

// gapNotice describes the gap record of a manual log.
func gapNotice(result tracker.StartResult) string {
	if result.Gap == nil {
		return ""
	}
	if !result.GapSaved {
		return fmt.Sprintf("Unaccounted gap of %.0f min was not saved.", result.Gap.DurationMinutes)
	}
	return fmt.Sprintf("Logged %.0f min unaccounted gap before this session.", result.Gap.DurationMinutes)
}

// clockOn parses "HH:MM" on the given day.
func clockOn(day time.Time, value string) (time.Time, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("expected HH:MM, got %q", value)
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, parsed.Hour(), parsed.Minute(), 0, 0, time.Local), nil
}

func newTopicsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "Manage syllabus topics",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List syllabus topics",
		Args:  cobra.NoArgs,
		RunE:  runTopicsListCmd,
	}
	list.Flags().StringVar(&topicsSubject, "subject", "", "subject filter")

	due := &cobra.Command{
		Use:   "due",
		Short: "List topics due for revision",
		Args:  cobra.NoArgs,
		RunE:  runTopicsDueCmd,
	}

	advance := &cobra.Command{
		Use:   "advance TOPIC",
		Short: "Move a topic one step up the status ladder",
		Args:  cobra.ExactArgs(1),
		RunE:  runTopicsAdvanceCmd,
	}

	importCmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Add topics from a \"Subject / Chapter / Topic\" file",
		Args:  cobra.ExactArgs(1),
		RunE:  runTopicsImportCmd,
	}

	cmd.AddCommand(list, due, advance, importCmd)
	return cmd
}

func runTopicsListCmd(cmd *cobra.Command, _ []string) error {
	return withTracker(cmd, func(tr *tracker.Tracker, _ model.Config) error {
		var topics []model.Topic
		for _, t := range tr.Topics(cmd.Context()) {
			if topicsSubject != "" && !strings.EqualFold(t.Subject, topicsSubject) {
				continue
			}
			topics = append(topics, t)
		}
		return writeTopics(cmd.OutOrStdout(), topics, "No topics found. Add some with: studytrack topics import FILE")
	})
}

func runTopicsDueCmd(cmd *cobra.Command, _ []string) error {
	return withTracker(cmd, func(tr *tracker.Tracker, _ model.Config) error {
		due := tr.Scheduler().ListDue(tr.Topics(cmd.Context()), tr.Now())
		return writeTopics(cmd.OutOrStdout(), due, "No topics due for revision.")
	})
}

func writeTopics(w io.Writer, topics []model.Topic, empty string) error {
	if len(topics) == 0 {
		_, err := fmt.Fprintln(w, empty)
		return err
	}
	rows := make([][]string, 0, len(topics))
	for _, t := range topics {
		rows = append(rows, []string{t.Key(), string(t.Status), strconv.Itoa(t.RevCount), t.LastStudied, string(t.Confidence)})
	}
	headers := []string{"Topic", "Status", "Revs", "Last Studied", "Confidence"}
	return stats.RenderTable(w, headers, rows, map[int]bool{2: true})
}

func runTopicsAdvanceCmd(cmd *cobra.Command, args []string) error {
	return withTracker(cmd, func(tr *tracker.Tracker, _ model.Config) error {
		updated, err := tr.AdvanceTopic(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, t := range updated {
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", t.Key(), t.Status); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
		return nil
	})
}

func runTopicsImportCmd(cmd *cobra.Command, args []string) error {
	topics, err := syllabus.LoadTopics(args[0])
	if err != nil {
		return fmt.Errorf("failed to load syllabus: %w", err)
	}
	return withTracker(cmd, func(tr *tracker.Tracker, _ model.Config) error {
		added, err := tr.AddTopics(cmd.Context(), topics)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Added %d of %d topics (%d already present)\n", added, len(topics), len(topics)-added)
		return err
	})
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the study log",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVar(&exportFormat, "format", ingest.FormatJSON, "output format (json, csv, yaml)")
	cmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&exportTopics, "topics", false, "export syllabus topics instead of sessions")
	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	return withTracker(cmd, func(tr *tracker.Tracker, _ model.Config) (err error) {
		w := cmd.OutOrStdout()
		if exportOutput != "" {
			file, ferr := os.Create(exportOutput)
			if ferr != nil {
				return fmt.Errorf("failed to create output: %w", ferr)
			}
			defer func() {
				if cerr := file.Close(); cerr != nil && err == nil {
					err = fmt.Errorf("failed to close output: %w", cerr)
				}
			}()
			w = file
		}
		if err := tr.Export(cmd.Context(), w, strings.ToLower(exportFormat), exportTopics); err != nil {
			return fmt.Errorf("failed to export: %w", err)
		}
		return nil
	})
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the study log with a JSON backup",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportCmd,
	}
	cmd.Flags().BoolVar(&importTopics, "topics", false, "import syllabus topics instead of sessions")
	return cmd
}

func runImportCmd(cmd *cobra.Command, args []string) error {
	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open import file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only import file.
			_ = cerr
		}
	}()
	return withTracker(cmd, func(tr *tracker.Tracker, _ model.Config) error {
		var n int
		var err error
		if importTopics {
			n, err = tr.ImportTopics(cmd.Context(), file)
		} else {
			n, err = tr.ImportSessions(cmd.Context(), file)
		}
		if err != nil {
			if errors.Is(err, ingest.ErrInvalidImport) {
				logErrln("Import rejected; existing data was not changed.")
			}
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d records\n", n)
		return err
	})
}

var editTopics bool

func newEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit or delete logged records in $EDITOR",
		Long: "Opens the session log (or the syllabus with --topics) as JSON in $EDITOR.\n" +
			"Saved changes replace the stored data; an invalid document leaves it untouched.",
		Args: cobra.NoArgs,
		RunE: runEditCmd,
	}
	cmd.Flags().BoolVar(&editTopics, "topics", false, "edit syllabus topics instead of sessions")
	return cmd
}

func runEditCmd(cmd *cobra.Command, _ []string) error {
	return withTracker(cmd, func(tr *tracker.Tracker, _ model.Config) error {
		n, err := editData(cmd.Context(), tr, editTopics, openEditor)
		if err != nil {
			if errors.Is(err, ingest.ErrInvalidImport) {
				logErrln("Edit rejected; existing data was not changed.")
			}
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Saved %d records\n", n)
		return err
	})
}

// editData exports the log to a temporary JSON file, lets edit change it and
// imports the result.
func editData(ctx context.Context, tr *tracker.Tracker, topics bool, edit func(path string) error) (n int, err error) {
	file, err := os.CreateTemp("", "studytrack-edit-*.json")
	if err != nil {
		return 0, fmt.Errorf("failed to create edit file: %w", err)
	}
	path := file.Name()
	defer func() {
		if rerr := os.Remove(path); rerr != nil && !os.IsNotExist(rerr) && err == nil {
			err = fmt.Errorf("failed to remove edit file: %w", rerr)
		}
	}()

	if err := tr.Export(ctx, file, ingest.FormatJSON, topics); err != nil {
		_ = file.Close()
		return 0, fmt.Errorf("failed to export: %w", err)
	}
	if err := file.Close(); err != nil {
		return 0, fmt.Errorf("failed to close edit file: %w", err)
	}
	if err := edit(path); err != nil {
		return 0, err
	}

	edited, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read edit file: %w", err)
	}
	defer func() {
		if cerr := edited.Close(); cerr != nil {
			// Best-effort close for read-only edit file.
			_ = cerr
		}
	}()
	if topics {
		return tr.ImportTopics(ctx, edited)
	}
	return tr.ImportSessions(ctx, edited)
}
