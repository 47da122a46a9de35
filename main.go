// poreplace fills gettext PO files with item names from per-language CSV tables.
package main

import (
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/minios-linux/poreplace/config"
	"github.com/minios-linux/poreplace/i18n"
	"github.com/minios-linux/poreplace/lang"
	"github.com/minios-linux/poreplace/logging"
	"github.com/minios-linux/poreplace/report"
	"github.com/minios-linux/poreplace/table"
	"github.com/minios-linux/poreplace/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	colorInfo    = color.New(color.FgBlue)
	colorSuccess = color.New(color.FgGreen)
	colorWarning = color.New(color.FgYellow, color.Bold)
	colorError   = color.New(color.FgRed)
)

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorError.Sprint("[ERROR]")+" "+format+"\n", args...)
}

// loggedError marks an error that the run logger already reported.
type loggedError struct{ error }

func (e loggedError) Unwrap() error { return e.error }

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	flags := config.Default()
	var (
		configPath string
		dryRun     bool
	)

	root := &cobra.Command{
		Use:   "poreplace [input.po] [output.po]",
		Short: "Fill PO files with item names from per-language CSV tables",
		Long: `poreplace fills gettext PO files with item names from CSV lookup tables.

Every entry's text (its msgstr, or its msgid when the msgstr is empty) is
normalized and looked up among the source language's table values. When the
row key also has a value in the target language's table, that value becomes
the entry's msgstr. Everything else in the file is copied unchanged.

Tables are read from <csv-dir>/<Entity>_<LANG>.csv, e.g. csv/Item_JP.csv.
The output defaults to the input path with ".po" replaced by ".<tgt>.po".

Commands:
  status      Show the lookup tables available in --csv-dir
  version     Show version information`,
		Args:          cobra.RangeArgs(0, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			cfg, err := loadConfig(cmd, flags, configPath)
			if err != nil {
				return err
			}
			job := replaceJob{cfg: cfg, input: args[0], dryRun: dryRun}
			if len(args) == 2 {
				job.output = args[1]
			}
			_, err = job.run(os.Stderr)
			return err
		},
	}

	flags.BindFlags(root.PersistentFlags())
	root.PersistentFlags().StringVar(&configPath, "config", config.FileName, "Project file")
	root.Flags().BoolVar(&dryRun, "dry-run", false, "Translate and report without writing output")

	root.AddCommand(
		newStatusCmd(flags, &configPath),
		newVersionCmd(),
	)

	return root
}

func loadConfig(cmd *cobra.Command, flags *config.Config, path string) (*config.Config, error) {
	cfg, err := config.Load(path, cmd.Flags().Changed("config"))
	if err != nil {
		return nil, err
	}
	cfg.Overlay(cmd.Flags(), flags)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		var logged loggedError
		if !errors.As(err, &logged) {
			logError("%v", err)
		}
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("poreplace version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// replace (root command)
// ---------------------------------------------------------------------------

type replaceJob struct {
	cfg    *config.Config
	input  string
	output string
	dryRun bool
}

// defaultOutputPath derives the output path from the input path:
// items.po → items.jp.po. Inputs without a .po suffix get one appended.
func defaultOutputPath(input string, target lang.Language) string {
	if base, ok := strings.CutSuffix(input, ".po"); ok {
		return base + "." + target.String() + ".po"
	}
	return input + "." + target.String() + ".po"
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

// run executes the pipeline: open logger, load tables, index, translate,
// report. Errors after the logger is open are logged and wrapped in
// loggedError.
func (j *replaceJob) run(console io.Writer) (*translate.Stats, error) {
	cfg := j.cfg
	if j.output == "" {
		j.output = defaultOutputPath(j.input, cfg.Target)
	}
	if samePath(j.input, j.output) {
		return nil, fmt.Errorf("%w: output %s would overwrite the input", config.ErrInvalid, j.output)
	}

	log, err := logging.New(logging.Options{
		FilePath: cfg.LogFile,
		Console:  console,
		Verbose:  cfg.Verbose,
		NoColor:  color.NoColor,
	})
	if err != nil {
		return nil, err
	}
	defer log.Close()

	stats, err := j.execute(log)
	if err != nil {
		log.Errorf("%v", err)
		return nil, loggedError{err}
	}
	return stats, nil
}

func (j *replaceJob) execute(log *logging.Logger) (*translate.Stats, error) {
	cfg := j.cfg
	run := report.NewRun(cfg.Source, cfg.Target)
	run.Entity = cfg.Entity
	run.Input = j.input
	run.DryRun = j.dryRun
	if !j.dryRun {
		run.Output = j.output
	}
	log.Infof(i18n.T("Run %s: %s → %s"), run.ID, cfg.Source.Label(), cfg.Target.Label())

	src, err := table.Load(table.LoadOptions{
		Dir: cfg.CSVDir, Entity: cfg.Entity, Lang: cfg.Source,
		Column: cfg.SourceColumn, Layout: cfg.TableLayout(),
	}, log)
	if err != nil {
		return nil, err
	}
	tgt, err := table.Load(table.LoadOptions{
		Dir: cfg.CSVDir, Entity: cfg.Entity, Lang: cfg.Target,
		Column: cfg.TargetColumn, Layout: cfg.TableLayout(),
	}, log)
	if err != nil {
		return nil, err
	}
	run.Tables = []string{src.Path, tgt.Path}
	log.Infof(i18n.T("Loaded %d %s and %d %s entries"), src.Len(), cfg.Source, tgt.Len(), cfg.Target)

	index := table.NewReverseIndex(src, log)
	run.Collisions = index.Collisions()
	log.Debugf("Indexed %d normalized %s values (%d collisions)", index.Len(), cfg.Source, index.Collisions())

	in, err := os.Open(j.input)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer in.Close()
	if !j.dryRun && fileExists(j.output) {
		log.Debugf("Overwriting %s", j.output)
	}
	hash := md5.New()

	out, err := j.openOutput()
	if err != nil {
		return nil, err
	}

	tr := translate.New(index, tgt, log)
	stats, err := tr.Run(io.TeeReader(in, hash), out, translate.Options{
		OnlyEmpty: cfg.OnlyEmpty,
		Annotate:  cfg.Annotate,
	})
	if err == nil {
		err = out.Commit()
	}
	if err != nil {
		out.Abort()
		return nil, err
	}
	run.InputMD5 = fmt.Sprintf("%x", hash.Sum(nil))

	report.Summary(log, run, stats)
	if cfg.Report != "" {
		if err := report.New(run, stats).Save(cfg.Report); err != nil {
			return nil, err
		}
		log.Infof(i18n.T("Report written to %s"), cfg.Report)
	}
	if j.dryRun {
		log.Infof(i18n.T("Dry run: %s not written"), j.output)
	} else {
		log.Infof(i18n.T("Output written to %s"), j.output)
	}
	return stats, nil
}

// ---------------------------------------------------------------------------
// Output file
// ---------------------------------------------------------------------------

// outputFile writes to a temporary file next to the destination and
// renames it into place on Commit.
type outputFile struct {
	io.Writer
	tmp  *os.File
	path string
}

func (j *replaceJob) openOutput() (*outputFile, error) {
	if j.dryRun {
		return &outputFile{Writer: io.Discard}, nil
	}
	tmp, err := os.CreateTemp(filepath.Dir(j.output), "."+filepath.Base(j.output)+".*")
	if err != nil {
		return nil, fmt.Errorf("creating output: %w", err)
	}
	return &outputFile{Writer: tmp, tmp: tmp, path: j.output}, nil
}

func (o *outputFile) Commit() error {
	if o.tmp == nil {
		return nil
	}
	if err := o.tmp.Chmod(0644); err != nil {
		return fmt.Errorf("writing %s: %w", o.path, err)
	}
	if err := o.tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", o.path, err)
	}
	if err := os.Rename(o.tmp.Name(), o.path); err != nil {
		return fmt.Errorf("writing %s: %w", o.path, err)
	}
	o.tmp = nil
	return nil
}

func (o *outputFile) Abort() {
	if o.tmp == nil {
		return
	}
	o.tmp.Close()
	os.Remove(o.tmp.Name())
	o.tmp = nil
}

// ---------------------------------------------------------------------------
// status (read-only: table inventory)
// ---------------------------------------------------------------------------

func newStatusCmd(flags *config.Config, configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the lookup tables available in --csv-dir",
		Long: `List the <Entity>_<LANG>.csv table of every supported language with its
entry count and its coverage of the source language's keys. Does not modify
any files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags, *configPath)
			if err != nil {
				return err
			}
			log, err := logging.New(logging.Options{Console: os.Stderr, Verbose: cfg.Verbose, NoColor: color.NoColor})
			if err != nil {
				return err
			}
			defer log.Close()
			runStatus(os.Stderr, cfg, log)
			return nil
		},
	}
}

// tableStatus is one row of the status listing.
type tableStatus struct {
	Lang    lang.Language
	Path    string
	Entries int
	// Covered counts source keys that have a value in this table.
	Covered int
	Err     error
}

func collectStatus(cfg *config.Config, log *logging.Logger) (source *tableStatus, rows []tableStatus) {
	load := func(l lang.Language, column string) (*table.Table, error) {
		return table.Load(table.LoadOptions{
			Dir: cfg.CSVDir, Entity: cfg.Entity, Lang: l,
			Column: column, Layout: cfg.TableLayout(),
		}, log)
	}

	src, srcErr := load(cfg.Source, cfg.SourceColumn)
	for _, l := range lang.All() {
		row := tableStatus{Lang: l, Path: table.Path(cfg.CSVDir, cfg.Entity, l)}
		t, err := src, srcErr
		if l != cfg.Source {
			t, err = load(l, cfg.TargetColumn)
		}
		if err != nil {
			row.Err = err
			rows = append(rows, row)
			continue
		}
		row.Entries = t.Len()
		if srcErr == nil {
			for _, key := range src.Keys() {
				if _, ok := t.Get(key); ok {
					row.Covered++
				}
			}
		}
		rows = append(rows, row)
	}
	for i := range rows {
		if rows[i].Lang == cfg.Source {
			source = &rows[i]
		}
	}
	return source, rows
}

func runStatus(w io.Writer, cfg *config.Config, log *logging.Logger) {
	source, rows := collectStatus(cfg, log)

	fmt.Fprintf(w, "\n%s\n", colorInfo.Sprint(i18n.T("Lookup tables")))
	fmt.Fprintln(w, strings.Repeat("─", 60))
	fmt.Fprintf(w, "  %-12s %s\n", "Directory:", cfg.CSVDir)
	fmt.Fprintf(w, "  %-12s %s (%s)\n", "Entity:", cfg.Entity, cfg.Layout)
	fmt.Fprintf(w, "  %-12s %s → %s\n", "Columns:", cfg.SourceColumn, cfg.TargetColumn)
	fmt.Fprintln(w)

	for _, row := range rows {
		marker := " "
		if row.Lang == cfg.Source {
			marker = "*"
		}
		label := fmt.Sprintf("%s %-24s", marker, row.Lang.Label())
		switch {
		case errors.Is(row.Err, table.ErrMissingLanguage):
			fmt.Fprintf(w, "%s %s\n", label, colorError.Sprintf("missing %s", filepath.Base(row.Path)))
		case row.Err != nil:
			fmt.Fprintf(w, "%s %s\n", label, colorError.Sprint(row.Err))
		case source == nil || source.Err != nil || source.Entries == 0:
			fmt.Fprintf(w, "%s %6d\n", label, row.Entries)
		default:
			percent := row.Covered * 100 / source.Entries
			fmt.Fprintf(w, "%s %6d  %s\n", label, row.Entries, progressBar(percent, 20))
		}
	}
	fmt.Fprintln(w)
}

func progressBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100

	c := colorSuccess
	switch {
	case percent < 50:
		c = colorError
	case percent < 100:
		c = colorWarning
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return c.Sprint(bar) + fmt.Sprintf(" %3d%%", percent)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
