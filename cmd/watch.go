package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Jcruzb/controlants/internal/cli"
	"github.com/Jcruzb/controlants/internal/config"
	"github.com/Jcruzb/controlants/internal/notify"
	"github.com/Jcruzb/controlants/internal/store"
	"github.com/Jcruzb/controlants/internal/watch"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type watchRuntimeState struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	StartedAt time.Time `json:"started_at"`
	BaseURL   string    `json:"base_url"`
}

var (
	flagWatchAddr     string
	flagWatchSchedule string
	flagWatchDetach   bool
	flagWatchPIDFile  string
	flagWatchLogFile  string
	flagWatchRetain   time.Duration
	flagWatchChild    bool
	flagWatchLimit    int
	flagWatchPeriod   string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor the current month's budget and serve changes over HTTP/SSE",
	RunE:  runWatch,
}

var watchStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show watcher process and API status",
	RunE:  runWatchStatus,
}

var watchStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running watcher",
	RunE:  runWatchStop,
}

var watchHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Print journaled budget events",
	RunE:  runWatchHistory,
}

func init() {
	defaultPID := filepath.Join(config.CacheDir(), "watch.pid")
	defaultLog := filepath.Join(config.CacheDir(), "watch.log")

	watchCmd.PersistentFlags().StringVar(&flagWatchAddr, "addr", "", "HTTP listen address (default from config)")
	watchCmd.PersistentFlags().StringVar(&flagWatchPIDFile, "pid-file", defaultPID, "PID file path")

	watchCmd.Flags().StringVar(&flagWatchSchedule, "schedule", "", "Poll schedule, cron spec or @every (default from config)")
	watchCmd.Flags().StringVar(&flagWatchLogFile, "log-file", defaultLog, "Log file path for detached mode")
	watchCmd.Flags().DurationVar(&flagWatchRetain, "retain", 90*24*time.Hour, "Drop journaled events older than this at startup (0 keeps all)")
	watchCmd.Flags().BoolVar(&flagWatchDetach, "detach", false, "Run watcher as a background process")
	watchCmd.Flags().BoolVar(&flagWatchChild, "child", false, "Internal: mark detached child process")
	_ = watchCmd.Flags().MarkHidden("child")

	watchHistoryCmd.Flags().IntVarP(&flagWatchLimit, "limit", "n", 20, "Number of events")
	watchHistoryCmd.Flags().StringVar(&flagWatchPeriod, "period", "", "Only events for YYYY-MM")

	watchCmd.AddCommand(watchStatusCmd, watchStopCmd, watchHistoryCmd)
	rootCmd.AddCommand(watchCmd)
}

func watchAddr() string {
	if flagWatchAddr != "" {
		return flagWatchAddr
	}
	return appConfig.Watch.Addr
}

func runWatch(_ *cobra.Command, _ []string) error {
	if flagWatchDetach && flagWatchChild {
		return errors.New("invalid watch launch mode")
	}

	if flagWatchDetach {
		return startWatchDetached()
	}

	return runWatchForeground()
}

func startWatchDetached() error {
	if err := ensureWatchNotRunning(flagWatchPIDFile); err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	args := filterDetachArg(os.Args[1:])
	args = append(args, "--child")

	if err := os.MkdirAll(filepath.Dir(flagWatchPIDFile), 0o750); err != nil {
		return fmt.Errorf("create watch directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(flagWatchLogFile), 0o750); err != nil {
		return fmt.Errorf("create watch log directory: %w", err)
	}

	//nolint:gosec // watch log path is configured by the local user
	logf, err := os.OpenFile(flagWatchLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open watch log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	cmd := exec.Command(exe, args...) //nolint:gosec // exe/args come from current process invocation
	cmd.Stdout = logf
	cmd.Stderr = logf
	cmd.Stdin = nil
	cmd.Env = os.Environ()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start detached watcher: %w", err)
	}

	fmt.Printf("  Started watcher (pid %d)\n", cmd.Process.Pid)
	fmt.Printf("  PID file: %s\n", flagWatchPIDFile)
	fmt.Printf("  API: http://%s/v1/status\n", watchAddr())
	fmt.Printf("  Log: %s\n", flagWatchLogFile)
	return nil
}

func runWatchForeground() error {
	if err := ensureWatchNotRunning(flagWatchPIDFile); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(flagWatchPIDFile), 0o750); err != nil {
		return fmt.Errorf("create watch directory: %w", err)
	}

	pid := os.Getpid()
	if err := writePID(flagWatchPIDFile, pid); err != nil {
		return err
	}
	defer func() { _ = os.Remove(flagWatchPIDFile) }()

	addr := watchAddr()
	state := watchRuntimeState{
		PID:       pid,
		Addr:      addr,
		StartedAt: time.Now(),
		BaseURL:   appConfig.API.BaseURL,
	}
	_ = writeState(statePath(flagWatchPIDFile), state)
	defer func() { _ = os.Remove(statePath(flagWatchPIDFile)) }()

	// Structured output for log collectors.
	log.SetFormatter(&logrus.JSONFormatter{})
	logger := log.WithField("component", "watch")

	client, err := newClient(appConfig)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	journal, err := store.Open(config.WatchDBPath())
	if err != nil {
		return err
	}
	defer func() { _ = journal.Close() }()
	if flagWatchRetain > 0 {
		if n, err := journal.Prune(ctx, time.Now().Add(-flagWatchRetain)); err != nil {
			logger.WithError(err).Warn("pruning journal")
		} else if n > 0 {
			logger.WithField("removed", n).Info("pruned old events")
		}
	}

	opts := []watch.Option{watch.WithJournal(journal), watch.WithLogger(logger)}
	if url := appConfig.Notify.AMQPURL; url != "" {
		pub, err := notify.Dial(url, appConfig.Notify.Exchange, appConfig.Notify.RoutingKey, logger)
		if err != nil {
			return err
		}
		defer func() { _ = pub.Close() }()
		opts = append(opts, watch.WithPublisher(pub))
	}

	schedule := appConfig.Watch.Schedule
	if flagWatchSchedule != "" {
		schedule = flagWatchSchedule
	}
	svc := watch.New(watch.Config{
		Schedule:     schedule,
		Addr:         addr,
		EventsBuffer: appConfig.Watch.EventsBuffer,
	}, client, opts...)

	logger.WithFields(logrus.Fields{
		"addr":     "http://" + addr,
		"schedule": schedule,
		"backend":  appConfig.API.BaseURL,
	}).Info("watcher started")

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runWatchStatus(_ *cobra.Command, _ []string) error {
	pid, err := readPID(flagWatchPIDFile)
	if err != nil {
		fmt.Printf("  Watcher: not running (pid file not found)\n")
		return nil
	}

	alive := processAlive(pid)
	if !alive {
		fmt.Printf("  Watcher: stale pid file (pid %d not alive)\n", pid)
		return nil
	}

	addr := watchAddr()
	if st, err := readState(statePath(flagWatchPIDFile)); err == nil && st.Addr != "" {
		addr = st.Addr
	}

	fmt.Printf("  Watcher PID: %d\n", pid)
	fmt.Printf("  Address: http://%s\n", addr)

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + addr + "/v1/status") //nolint:noctx // short status probe
	if err != nil {
		fmt.Printf("  API status: unreachable (%v)\n", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("  API status: HTTP %d\n", resp.StatusCode)
		return nil
	}

	var st watch.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		fmt.Printf("  API status: malformed response (%v)\n", err)
		return nil
	}

	if st.LastPollAt.IsZero() {
		fmt.Printf("  Last poll: pending\n")
	} else {
		fmt.Printf("  Last poll: %s\n", st.LastPollAt.Local().Format(time.RFC3339))
	}
	fmt.Printf("  Schedule: %s\n", st.Schedule)
	fmt.Printf("  Poll count: %d\n", st.PollCount)
	if st.Summary.Period != "" {
		fmt.Printf("  Period: %s (%s)\n", st.Summary.Period, st.Summary.Status)
		fmt.Printf("  Spent: %s of %s\n", cli.FormatEuro(st.Summary.TotalSpent), cli.FormatEuro(st.Summary.TotalPlanned))
		fmt.Printf("  Remaining: %s\n", cli.FormatEuro(st.Summary.Remaining))
	}
	fmt.Printf("  Events: %d (%d subscribers)\n", st.EventCount, st.SubscriberCount)
	if st.LastError != "" {
		fmt.Printf("  Last error: %s\n", st.LastError)
	}
	return nil
}

func runWatchStop(_ *cobra.Command, _ []string) error {
	pid, err := readPID(flagWatchPIDFile)
	if err != nil {
		return errors.New("watcher is not running")
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find watch process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal watch process: %w", err)
	}

	deadline := time.Now().Add(8 * time.Second)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			_ = os.Remove(flagWatchPIDFile)
			_ = os.Remove(statePath(flagWatchPIDFile))
			fmt.Printf("  Stopped watcher (pid %d)\n", pid)
			return nil
		}
		time.Sleep(150 * time.Millisecond)
	}

	return fmt.Errorf("watcher (pid %d) did not exit in time", pid)
}

func runWatchHistory(_ *cobra.Command, _ []string) error {
	journal, err := store.Open(config.WatchDBPath())
	if err != nil {
		return err
	}
	defer func() { _ = journal.Close() }()

	entries, err := journal.Recent(context.Background(), flagWatchPeriod, flagWatchLimit)
	if err != nil {
		return err
	}

	fmt.Println()
	if len(entries) == 0 {
		fmt.Printf("  %s\n\n", cli.RenderMuted("No hay eventos registrados"))
		return nil
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.OccurredAt.Local().Format("2006-01-02 15:04"),
			e.Type,
			e.Period,
			e.Status,
			cli.FormatEuro(e.TotalSpent),
			cli.FormatSignedEuro(e.DeltaSpent),
			cli.FormatEuro(e.Remaining),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Eventos del presupuesto",
		Headers: []string{"Fecha", "Tipo", "Mes", "Estado", "Gastado", "Δ", "Restante"},
		Rows:    rows,
	}))
	fmt.Println()
	return nil
}

func filterDetachArg(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--detach" || strings.HasPrefix(a, "--detach=") {
			continue
		}
		out = append(out, a)
	}
	return out
}

func ensureWatchNotRunning(pidFile string) error {
	pid, err := readPID(pidFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if processAlive(pid) {
		return fmt.Errorf("watcher already running (pid %d)", pid)
	}
	_ = os.Remove(pidFile)
	_ = os.Remove(statePath(pidFile))
	return nil
}

func writePID(path string, pid int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o600)
}

func readPID(path string) (int, error) {
	//nolint:gosec // watch pid path is configured by the local user
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid in %s", path)
	}
	return pid, nil
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func statePath(pidFile string) string {
	return pidFile + ".json"
}

func writeState(path string, st watchRuntimeState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func readState(path string) (watchRuntimeState, error) {
	var st watchRuntimeState
	//nolint:gosec // watch state path is configured by the local user
	data, err := os.ReadFile(path)
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, err
	}
	return st, nil
}
