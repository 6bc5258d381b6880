package cli

import (
	"fmt"
	"time"

	"github.com/buemura/safeurl/internal/config"
	"github.com/buemura/safeurl/internal/logging"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	outputFlag      string
	verboseFlag     bool
	concurrencyFlag int
	timeoutFlag     time.Duration
	userFlag        string
	storeFlag       string
	dsnFlag         string
	aiEndpointFlag  string
	logLevelFlag    string
	configFlag      string
)

// appConfig holds the loaded configuration, available after PersistentPreRunE.
var appConfig *config.Config

// appLog is the process logger, available after PersistentPreRunE.
var appLog *logging.Logger

var rootCmd = &cobra.Command{
	Use:   "safeurl",
	Short: "SafeURL, check a link before you open it",
	Long: `SafeURL scores URLs for phishing, malware and scam risk using a bank of
pattern detectors and an optional AI assessment, and explains its verdict.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var (
			cfg *config.Config
			err error
		)
		if configFlag != "" {
			cfg, err = config.LoadFromFile(configFlag)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		config.ApplyFlags(cfg, cmd)
		if err := cfg.Validate(); err != nil {
			return err
		}

		// Sync config values back to flag variables so all commands
		// pick up config-file and env-var defaults transparently.
		outputFlag = cfg.OutputFormat
		concurrencyFlag = cfg.Concurrency
		timeoutFlag = cfg.Timeout

		logCfg := logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File}
		if verboseFlag {
			logCfg.Level = "debug"
		}
		log, err := logging.New(logCfg, cmd.ErrOrStderr())
		if err != nil {
			return fmt.Errorf("opening log: %w", err)
		}

		appConfig = cfg
		appLog = log
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if appLog != nil {
			return appLog.Close()
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file (default ~/.safeurl.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", "table", "output format: table, json, markdown, html")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().IntVarP(&concurrencyFlag, "concurrency", "c", 4, "max concurrent scans")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 15*time.Second, "overall timeout")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "local", "user id for allowlist and history")
	rootCmd.PersistentFlags().StringVar(&storeFlag, "store", "sqlite", "storage driver: sqlite, postgres, memory")
	rootCmd.PersistentFlags().StringVar(&dsnFlag, "dsn", "", "sqlite path or postgres connection string")
	rootCmd.PersistentFlags().StringVar(&aiEndpointFlag, "ai-endpoint", "", "AI risk endpoint (empty disables AI)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "log level: debug, info, warn, error")

	rootCmd.AddCommand(versionCmd)
}
