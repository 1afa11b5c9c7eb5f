// Package cmd implements the controlants CLI commands.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Jcruzb/controlants/internal/api"
	"github.com/Jcruzb/controlants/internal/config"
	"github.com/Jcruzb/controlants/internal/model"
	"github.com/Jcruzb/controlants/internal/quickadd"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	flagAPIURL   string
	flagYear     int
	flagMonth    int
	flagQuiet    bool
	flagLogLevel string
)

// Populated by PersistentPreRunE for every command.
var (
	appConfig config.Config
	log       = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "controlants",
	Short: "Personal budget client",
	Long:  "Check your monthly budget, record expenses and manage fixed payments against the controlants backend.",
	RunE:  runBudget,

	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute is the main entry point called from main.go.
// errReported marks a failure the command already printed; Execute only
// sets the exit status.
var errReported = errors.New("error already reported")

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

func reportError(w io.Writer, err error) {
	if errors.Is(err, errReported) {
		return
	}
	fmt.Fprintf(w, "  Error: %s\n", describeError(err))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagAPIURL, "api-url", "", "Backend API root (default from config)")
	rootCmd.PersistentFlags().IntVarP(&flagYear, "year", "y", 0, "Year to view (default: current)")
	rootCmd.PersistentFlags().IntVarP(&flagMonth, "month", "m", 0, "Month to view, 1-12 (default: current)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

// setup loads .env and the config file and configures the shared logger.
func setup(_ *cobra.Command, _ []string) error {
	// A missing .env is normal.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if flagAPIURL != "" {
		cfg.API.BaseURL = flagAPIURL
	} else {
		cfg.API.BaseURL = config.GetBaseURL(cfg)
	}
	cfg.API.SessionCookie = config.GetSessionCookie(cfg)
	cfg.Log.Level = config.GetLogLevel(cfg)
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	cfg.Notify.AMQPURL = config.GetAMQPURL(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration in %s: %w", config.Path(), err)
	}
	appConfig = cfg

	level, _ := logrus.ParseLevel(cfg.Log.Level)
	log.SetLevel(level)
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if flagQuiet {
		log.SetOutput(io.Discard)
	}
	return nil
}

// newClient builds the API client for the effective config.
func newClient(cfg config.Config) (*api.Client, error) {
	return api.New(api.Options{
		BaseURL:        cfg.API.BaseURL,
		Timeout:        time.Duration(cfg.API.TimeoutSec) * time.Second,
		SessionCookie:  cfg.API.SessionCookie,
		CSRFCookieName: cfg.API.CSRFCookie,
		CSRFHeaderName: cfg.API.CSRFHeader,
		Logger:         log,
	})
}

// viewPeriod resolves --year/--month against the current month.
func viewPeriod() (model.Period, error) {
	p := model.CurrentPeriod(time.Now())
	if flagYear != 0 {
		p.Year = flagYear
	}
	if flagMonth != 0 {
		p.Month = time.Month(flagMonth)
	}
	if err := p.Validate(); err != nil {
		return model.Period{}, err
	}
	return p, nil
}

// progress prints a status line on stderr unless --quiet.
func progress(format string, args ...any) {
	if flagQuiet {
		return
	}
	fmt.Fprintf(os.Stderr, "  "+format+"\n", args...)
}

// describeError adds a hint for the failures users can fix themselves.
func describeError(err error) string {
	if reqErr, ok := api.IsRequestError(err); ok && reqErr.Unauthorized() {
		return err.Error() + "\n  Hint: the session cookie is missing or expired; run `controlants setup` or set " + config.EnvSession
	}
	if api.IsNetworkError(err) {
		return err.Error() + "\n  Hint: check that the backend is running or pass --api-url"
	}
	var verr *quickadd.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	return err.Error()
}
