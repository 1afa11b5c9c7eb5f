package cmd

import (
	"fmt"

	"github.com/Jcruzb/controlants/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg := appConfig

	fmt.Printf("  Config file: %s\n", config.Path())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [API]")
	fmt.Printf("    Base URL:       %s\n", cfg.API.BaseURL)
	fmt.Printf("    Timeout:        %ds\n", cfg.API.TimeoutSec)
	if cfg.API.SessionCookie != "" {
		fmt.Printf("    Session cookie: %s\n", maskSecret(cfg.API.SessionCookie))
	} else {
		fmt.Println("    Session cookie: not configured")
	}
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  [TUI]")
	fmt.Printf("    Auto refresh: %v (every %ds)\n", cfg.TUI.AutoRefresh, cfg.TUI.RefreshIntervalSec)
	fmt.Println()

	fmt.Println("  [Log]")
	fmt.Printf("    Level: %s\n", cfg.Log.Level)
	fmt.Printf("    TUI log file: %s\n", config.LogFile(cfg))
	fmt.Println()

	fmt.Println("  [Watch]")
	fmt.Printf("    Schedule: %s\n", cfg.Watch.Schedule)
	fmt.Printf("    Address:  http://%s\n", cfg.Watch.Addr)
	fmt.Printf("    Journal:  %s\n", config.WatchDBPath())
	fmt.Println()

	fmt.Println("  [Notify]")
	if cfg.Notify.AMQPURL != "" {
		fmt.Printf("    AMQP:     %s\n", maskSecret(cfg.Notify.AMQPURL))
		fmt.Printf("    Exchange: %s (%s)\n", cfg.Notify.Exchange, cfg.Notify.RoutingKey)
	} else {
		fmt.Println("    AMQP: disabled")
	}
	fmt.Println()

	fmt.Println("  Run `controlants setup` to reconfigure.")
	return nil
}

func maskSecret(s string) string {
	if len(s) > 16 {
		return s[:8] + "..." + s[len(s)-4:]
	}
	if len(s) > 4 {
		return s[:4] + "..."
	}
	return "****"
}
