package commands

import (
	"github.com/petems/memorylens/internal/config"
	"github.com/petems/memorylens/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	apiURL      string
	realtimeURL string
	verbose     bool

	version = "dev"
	commit  = "unknown"

	cfg *config.Config
	log zerolog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "memorylens",
	Short: "Face-aware conversation memory client",
	Long: `MemoryLens streams camera frames and microphone audio to a recognition
service, shows who is in view, and stores what was said as memories linked to
the person it was said with.

Configuration is read from the platform config directory (see 'memorylens
run --help'), then .env, then MEMORYLENS_API_URL / MEMORYLENS_REALTIME_URL /
MEMORYLENS_LOG_LEVEL, then flags.

Examples:
  # Start the tray and begin a session
  memorylens run

  # Run in a terminal; send SIGUSR1 to toggle the session
  memorylens run --headless

  # Register a face from an image file
  memorylens register --name "Ada" --image ada.jpg`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

// Execute adds all child commands to the root command and runs it.
func Execute(v, c string) error {
	version, commit = v, c
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "API origin (overrides config and MEMORYLENS_API_URL)")
	rootCmd.PersistentFlags().StringVar(&realtimeURL, "realtime-url", "", "realtime origin (overrides config and MEMORYLENS_REALTIME_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(peopleCmd)
	rootCmd.AddCommand(memoriesCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load()
	if err != nil {
		return err
	}
	if apiURL != "" {
		loaded.API.URL = apiURL
	}
	if realtimeURL != "" {
		loaded.Realtime.URL = realtimeURL
	}
	if verbose {
		loaded.LogLevel = "debug"
	}
	if err := loaded.Validate(); err != nil {
		return err
	}

	cfg = loaded
	log = logging.NewWithLevel(cfg.LogLevel)
	return nil
}
