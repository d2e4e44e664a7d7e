package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tj/go-naturaldate"
	"golang.org/x/sync/errgroup"

	"github.com/christopherklint97/slotlog/internal/calendar"
	"github.com/christopherklint97/slotlog/internal/clock"
	"github.com/christopherklint97/slotlog/internal/config"
	"github.com/christopherklint97/slotlog/internal/notify"
	"github.com/christopherklint97/slotlog/internal/scheduler"
	"github.com/christopherklint97/slotlog/internal/slot"
	"github.com/christopherklint97/slotlog/internal/store"
	"github.com/christopherklint97/slotlog/internal/telegram"
	"github.com/christopherklint97/slotlog/internal/tracker"
	"github.com/christopherklint97/slotlog/internal/tui"
)

const trackerDaemon = "tracker"

var rootCmd = &cobra.Command{
	Use:          "slotlog",
	Short:        "Half-hour activity log over Telegram",
	Long:         "slotlog asks what you are doing every half hour, parses short replies and keeps a weekly activity table.",
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the tracker, talking over Telegram",
	Args:  cobra.NoArgs,
	RunE:  runTracker,
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Run the tracker with a local chat console instead of Telegram",
	Args:  cobra.NoArgs,
	RunE:  runConsole,
}

var stopCmd = &cobra.Command{
	Use:       "stop [tracker|vocab]",
	Short:     "Stop a running daemon",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{trackerDaemon, vocabDaemon},
	RunE:      runStop,
}

var statusCmd = &cobra.Command{
	Use:   "status [day]",
	Short: "Show the slots logged on a day (default today)",
	RunE:  runStatus,
}

var exportCmd = &cobra.Command{
	Use:   "export [day in week]",
	Short: "Export a logged week as iCalendar events",
	RunE:  runExport,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Open config file in your editor",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default ~/.config/slotlog/config.toml)")
	exportCmd.Flags().StringP("output", "o", "", "write to file instead of stdout")
	exportCmd.Flags().Bool("include-missed", false, "include unanswered slots")
	exportCmd.Flags().Bool("append", false, "keep events of other weeks already in the output file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(vocabCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func configPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("config"); p != "" {
		return p, nil
	}
	return config.ConfigPath()
}

// loadConfig reads and validates the config. Relative data paths are
// resolved against the config file's directory.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := configPath(cmd)
	if err != nil {
		return nil, err
	}
	var cfg *config.Config
	if explicit, _ := cmd.Flags().GetString("config"); explicit != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg.Resolve(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config (run 'slotlog config' to edit it): %w", err)
	}
	return cfg, nil
}

// newLogger builds the text logger. Without a log file it writes to
// fallback.
func newLogger(cfg *config.Config, fallback io.Writer) (*slog.Logger, func(), error) {
	var level slog.Level
	if cfg.Log.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
			return nil, nil, fmt.Errorf("parsing log level: %w", err)
		}
	}

	w, closeFn := fallback, func() {}
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		w, closeFn = f, func() { f.Close() }
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), closeFn, nil
}

func openTable(cfg *config.Config) (store.Table, error) {
	switch cfg.Tracker.Backend {
	case "sqlite":
		db, err := store.OpenDB(cfg.Tracker.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		return db, nil
	default:
		wb, err := store.OpenWorkbook(cfg.Tracker.WorkbookPath)
		if err != nil {
			return nil, fmt.Errorf("opening workbook: %w", err)
		}
		return wb, nil
	}
}

// withPID records the daemon's PID for "slotlog stop" while fn runs.
func withPID(name string, logger *slog.Logger, fn func() error) error {
	dir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	if err := scheduler.WritePID(dir, name); err != nil {
		logger.Warn("could not write PID file", "error", err)
	}
	defer scheduler.RemovePID(dir, name)
	return fn()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// trackerParts is the tracker wiring shared by run and console.
type trackerParts struct {
	machine *tracker.Machine
	loop    *scheduler.Loop
	table   store.Table
}

func newTracker(cfg *config.Config, out tracker.Sender, logger *slog.Logger) (*trackerParts, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	table, err := openTable(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Notifications.Enabled {
		out = notify.NewFanout(out, logger, notify.NewDesktop("slotlog"))
	}

	recorder := store.NewRecorder(table, out, logger.With("component", "store"))
	recorder.RetryDelay = cfg.RetryDelay()

	clk := clock.Real{Location: loc}
	machine := tracker.New(tracker.Options{
		Clock:    clk,
		Recorder: recorder,
		Sender:   out,
		Logger:   logger.With("component", "tracker"),
		Name:     cfg.Tracker.Name,
		Grace:    cfg.Grace(),
	})
	return &trackerParts{
		machine: machine,
		loop:    scheduler.New(machine, clk, logger.With("component", "scheduler")),
		table:   table,
	}, nil
}

func runTracker(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token not configured: set telegram.token or SLOTLOG_TELEGRAM_TOKEN")
	}
	logger, closeLog, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	client := telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.BaseURL, logger.With("component", "telegram"))
	sender := telegram.Sender{Client: client, ChatID: cfg.Telegram.ChatID}

	parts, err := newTracker(cfg, sender, logger)
	if err != nil {
		return err
	}
	defer parts.table.Close()

	ctx, stop := signalContext()
	defer stop()

	if me, err := client.GetMe(ctx); err != nil {
		logger.Error("could not reach Telegram, will keep retrying", "error", err)
	} else {
		logger.Info("connected to Telegram", "bot", me.Username)
	}

	poller := telegram.NewPoller(client, cfg.Telegram.ChatID, cfg.Telegram.PollTimeout, logger.With("component", "poller"))
	handle := func(ctx context.Context, msg *telegram.Message) {
		reply, err := parts.machine.Respond(ctx, msg.Text)
		if err != nil {
			return
		}
		if err := client.Reply(ctx, msg, reply); err != nil {
			logger.Error("failed to send reply", "error", err)
		}
	}

	return withPID(trackerDaemon, logger, func() error {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return parts.machine.Run(gctx) })
		g.Go(func() error { return parts.loop.Run(gctx) })
		g.Go(func() error { return poller.Run(gctx, handle) })
		return g.Wait()
	})
}

func runConsole(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// The console owns the terminal, so logs go to the log file or nowhere.
	logger, closeLog, err := newLogger(cfg, io.Discard)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signalContext()
	defer stop()

	var machine *tracker.Machine
	session := tui.NewSession("slotlog", func(ctx context.Context, text string) (string, error) {
		return machine.Respond(ctx, text)
	})

	parts, err := newTracker(cfg, session, logger)
	if err != nil {
		return err
	}
	defer parts.table.Close()
	machine = parts.machine

	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gctx)
	g.Go(func() error { return parts.machine.Run(runCtx) })
	g.Go(func() error { return parts.loop.Run(runCtx) })
	g.Go(func() error {
		defer cancel()
		return session.Run(runCtx)
	})
	return g.Wait()
}

func runStop(cmd *cobra.Command, args []string) error {
	name := trackerDaemon
	if len(args) == 1 {
		name = args[0]
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	pid, err := scheduler.ReadPID(dir, name)
	if err != nil {
		return err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("sending stop signal: %w", err)
	}

	fmt.Printf("Sent stop signal to slotlog %s (PID %d)\n", name, pid)
	return nil
}

// parseDay resolves a day argument: empty for today, YYYY-MM-DD, or a natural
// expression such as "yesterday" or "last friday".
func parseDay(args []string, now time.Time) (time.Time, error) {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" || strings.EqualFold(text, "today") {
		return slot.Date(now), nil
	}
	if d, err := time.ParseInLocation("2006-01-02", text, now.Location()); err == nil {
		return d, nil
	}
	d, err := naturaldate.Parse(text, now, naturaldate.WithDirection(naturaldate.Past))
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing day %q: %w", text, err)
	}
	if d.Equal(now) {
		return time.Time{}, fmt.Errorf("could not understand day %q", text)
	}
	return slot.Date(d.In(now.Location())), nil
}

// readWeek loads the week containing the day given in args.
func readWeek(cmd *cobra.Command, args []string) (*store.Week, time.Time, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, time.Time{}, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, time.Time{}, err
	}
	day, err := parseDay(args, time.Now().In(loc))
	if err != nil {
		return nil, time.Time{}, err
	}

	table, err := openTable(cfg)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer table.Close()

	week, err := table.Week(cmd.Context(), slot.WeekStart(day))
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading week: %w", err)
	}
	return week, day, nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	week, day, err := readWeek(cmd, args)
	if err != nil {
		return err
	}
	labels, err := week.Day(day)
	if err != nil {
		return err
	}
	fmt.Println(tui.RenderDay(day, labels, tracker.NoResponse))
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	week, _, err := readWeek(cmd, args)
	if err != nil {
		return err
	}

	var skip []string
	if missed, _ := cmd.Flags().GetBool("include-missed"); !missed {
		skip = append(skip, tracker.NoResponse)
	}
	events := calendar.Events(week, skip...)
	if len(events) == 0 {
		fmt.Fprintf(os.Stderr, "No activities logged in week %s.\n", week.Start.Format("2006-01-02"))
		return nil
	}

	out := io.Writer(os.Stdout)
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		if keep, _ := cmd.Flags().GetBool("append"); keep {
			others, err := otherWeeks(path, week.Start)
			if err != nil {
				return err
			}
			events = append(others, events...)
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	return calendar.Export(out, events, time.Now())
}

// otherWeeks returns the events in an existing calendar file that fall
// outside the week starting at weekStart.
func otherWeeks(path string, weekStart time.Time) ([]calendar.Event, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening existing calendar: %w", err)
	}
	defer f.Close()

	all, err := calendar.Read(f, time.Time{}, time.Date(9999, time.January, 1, 0, 0, 0, 0, time.UTC), weekStart.Location())
	if err != nil {
		return nil, err
	}
	weekEnd := weekStart.AddDate(0, 0, slot.DaysPerWeek)
	var kept []calendar.Event
	for _, e := range all {
		if e.EndTime.After(weekStart) && e.StartTime.Before(weekEnd) {
			continue
		}
		kept = append(kept, e)
	}
	return kept, nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	path, err := configPath(cmd)
	if err != nil {
		return err
	}
	if explicit, _ := cmd.Flags().GetString("config"); explicit == "" {
		if err := config.EnsureConfigDir(); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	if err := config.WriteDefault(path); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	fmt.Printf("Opening %s with %s...\n", path, editor)

	c := exec.Command(editor, path)
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := c.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return err
		}
		fmt.Printf("Could not open editor. Config file is at: %s\n", path)
	}
	return nil
}
