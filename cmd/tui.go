package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Jcruzb/controlants/internal/config"
	"github.com/Jcruzb/controlants/internal/tui"
	"github.com/Jcruzb/controlants/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	theme.SetActive(appConfig.Appearance.Theme)

	// Force TrueColor profile so all background styling produces ANSI codes
	// Without this, lipgloss may default to Ascii profile (no colors)
	lipgloss.SetColorProfile(termenv.TrueColor)

	// The alternate screen owns the terminal, so logs go to a file.
	tuiLog, closeLog, err := openTUILog(appConfig)
	if err != nil {
		return err
	}
	defer closeLog()

	client, err := newClient(appConfig)
	if err != nil {
		return err
	}
	p, err := viewPeriod()
	if err != nil {
		return err
	}

	app := tui.NewApp(tui.Options{
		Backend:   client,
		Period:    p,
		Config:    appConfig,
		NeedSetup: !config.Exists(),
		Logger:    tuiLog,
		Connect: func(cfg config.Config) (tui.Backend, error) {
			c, err := newClient(cfg)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
	})
	prog := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := prog.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}

func openTUILog(cfg config.Config) (*logrus.Logger, func(), error) {
	path := config.LogFile(cfg)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	//nolint:gosec // log path is configured by the local user
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	l := logrus.New()
	l.SetOutput(f)
	l.SetLevel(log.GetLevel())
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	return l, func() { _ = f.Close() }, nil
}
