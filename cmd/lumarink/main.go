// Command lumarink runs the LumaRink hockey sign.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lumarink/lumarink/internal/config"
)

var (
	configPath string
	logLevel   string
	logJSON    bool
	logFile    string
)

var rootCmd = &cobra.Command{
	Use:           "lumarink",
	Short:         "LED hockey sign controller",
	Long:          `lumarink animates a team word on an LED strip, celebrates goals from a score feed and takes its settings from three buttons.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "settings.yaml", "settings file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log JSON lines instead of console output")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "append logs to this file instead of stdout")
	rootCmd.AddCommand(runCmd, simCmd, selftestCmd)
}

func setupLogging(stdout io.Writer) error {
	lvl, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	out := stdout
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		out = f
	}
	if logJSON {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
		return nil
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen, NoColor: logFile != ""})
	return nil
}

// loadConfig reads the settings file. A broken file is reported and the
// sign runs on defaults, like a fresh device.
func loadConfig() (*config.Store, *config.Config) {
	store := config.NewStore(configPath)
	cfg, err := store.Load()
	if err != nil {
		log.Warn().Err(err).Str("path", configPath).Msg("settings unreadable; using defaults")
	}
	return store, cfg
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("lumarink")
		os.Exit(1)
	}
}
